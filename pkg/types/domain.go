package types

import "time"

// Product is a catalog item supplied read-only by the host application.
type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"` // CHF
	Category  string  `json:"category,omitempty"`
	Available bool    `json:"available"`
}

// CartItem is one line of the current cart.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // unit price, CHF
}

// Cart is the host-supplied cart snapshot.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Subtotal returns the cart subtotal before VAT and delivery.
func (c Cart) Subtotal() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Empty reports whether the cart holds no items.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Location describes the delivery destination for fee calculation.
type Location struct {
	Zone     string `json:"zone,omitempty"`
	Canton   string `json:"canton,omitempty"`
	PostCode string `json:"post_code,omitempty"`
}

// DomainContext is the read-only situational data the host passes on every
// interpret/execute call.
type DomainContext struct {
	SessionID string    `json:"session_id,omitempty"`
	Locale    string    `json:"locale,omitempty"`
	Page      string    `json:"page,omitempty"`
	Task      string    `json:"task,omitempty"`
	Products  []Product `json:"products,omitempty"`
	Cart      Cart      `json:"cart"`
	Location  Location  `json:"location"`

	// Now overrides the clock for business-hour checks; zero means time.Now.
	Now time.Time `json:"-"`
}

// Clock returns the effective current time for this call.
func (d DomainContext) Clock() time.Time {
	if d.Now.IsZero() {
		return time.Now()
	}
	return d.Now
}

// Callbacks are the domain operations the host application supplies. The
// dispatcher invokes them as the only suspension points of command execution;
// it never implements them.
type Callbacks struct {
	OnProductAdd    func(item CartItem) error
	OnProductRemove func(item CartItem, quantity int) error
	OnNavigate      func(target string) error
	OnOrderComplete func(tx *Transaction) error
}

// TransactionStatus is the lifecycle state of a pending checkout.
type TransactionStatus string

// Transaction statuses.
const (
	TxPending   TransactionStatus = "pending"
	TxCommitted TransactionStatus = "committed"
	TxExpired   TransactionStatus = "expired"
)

// Transaction groups the cart items of a checkout awaiting commit. A pending
// transaction that is not committed within the purge window simply expires;
// it is never rolled back mid-flight.
type Transaction struct {
	ID        string            `json:"id"`
	Items     []CartItem        `json:"items"`
	Subtotal  float64           `json:"subtotal"`
	VAT       float64           `json:"vat"`
	Delivery  float64           `json:"delivery_fee"`
	Total     float64           `json:"total"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}
