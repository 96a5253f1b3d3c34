package dispatch

import (
	"fmt"
	"log"
	"time"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/pkg/types"
)

// BusinessValidator applies the Swiss ordering rules: VAT on the subtotal,
// zone-based delivery fees with a free-shipping threshold, business-hour
// gating and the minimum order amount.
type BusinessValidator struct {
	cfg config.BusinessConfig
	loc *time.Location
}

// NewBusinessValidator creates a validator for the configured rules. An
// unknown timezone falls back to UTC with a warning rather than failing.
func NewBusinessValidator(cfg config.BusinessConfig) *BusinessValidator {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("WARNING: unknown timezone %q, using UTC: %v", cfg.Timezone, err)
		loc = time.UTC
	}
	return &BusinessValidator{cfg: cfg, loc: loc}
}

// WithinBusinessHours reports whether checkout is accepted at the given
// instant. The window is [OpenHour, CloseHour) in the configured timezone.
func (v *BusinessValidator) WithinBusinessHours(now time.Time) bool {
	hour := now.In(v.loc).Hour()
	if v.cfg.OpenHour <= v.cfg.CloseHour {
		return hour >= v.cfg.OpenHour && hour < v.cfg.CloseHour
	}
	// Overnight window, e.g. open 18 close 2.
	return hour >= v.cfg.OpenHour || hour < v.cfg.CloseHour
}

// DeliveryFee returns the fee for the given zone, waived at or above the
// free-shipping threshold.
func (v *BusinessValidator) DeliveryFee(zone string, subtotal float64) float64 {
	if subtotal >= v.cfg.FreeShippingCHF {
		return 0
	}
	if fee, ok := v.cfg.ZoneFeesCHF[zone]; ok {
		return fee
	}
	return v.cfg.DefaultFeeCHF
}

// Totals computes subtotal, VAT, delivery fee and total for a cart.
func (v *BusinessValidator) Totals(cart types.Cart, zone string) (subtotal, vat, delivery, total float64) {
	subtotal = cart.Subtotal()
	vat = subtotal * v.cfg.VATRate
	delivery = v.DeliveryFee(zone, subtotal)
	total = subtotal + vat + delivery
	return
}

// ValidateCheckout runs the checkout gates in order: non-empty cart,
// business hours, minimum order. It returns nil when checkout may proceed.
func (v *BusinessValidator) ValidateCheckout(cart types.Cart, now time.Time) *types.Result {
	if cart.Empty() {
		return types.Fail("checkout", types.ErrCartEmpty, "cart is empty")
	}
	if !v.WithinBusinessHours(now) {
		return types.Fail("checkout", types.ErrBusinessHours,
			fmt.Sprintf("orders are accepted between %02d:00 and %02d:00",
				v.cfg.OpenHour, v.cfg.CloseHour))
	}
	if subtotal := cart.Subtotal(); subtotal < v.cfg.MinimumOrderCHF {
		return types.Fail("checkout", types.ErrMinimumOrder,
			fmt.Sprintf("minimum order is CHF %.2f, cart subtotal is CHF %.2f",
				v.cfg.MinimumOrderCHF, subtotal))
	}
	return nil
}
