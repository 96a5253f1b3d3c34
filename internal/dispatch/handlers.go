package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/ordervox/ordervox/internal/interpreter"
	"github.com/ordervox/ordervox/pkg/types"
)

// productSimilarityFloor is the minimum similarity accepted when neither an
// exact nor a substring match resolves a spoken product name.
const productSimilarityFloor = 0.6

// handlerFunc executes one command against the domain context.
type handlerFunc func(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result

// resolveHandler picks the handler for a command: exact intent names first,
// then the intent's category. Unknown-category commands have no handler.
func (d *Dispatcher) resolveHandler(name types.IntentName) handlerFunc {
	switch name {
	case types.IntentOrder, types.IntentAddProduct:
		return d.handleAddProduct
	case types.IntentRemoveProduct:
		return d.handleRemoveProduct
	case types.IntentCheckout:
		return d.handleCheckout
	case types.IntentConfirmOrder:
		return d.handleConfirmOrder
	case types.IntentNavigate:
		return d.handleNavigate
	case types.IntentShowMenu:
		return d.handleShowMenu
	case types.IntentPriceInquiry:
		return d.handlePriceInquiry
	case types.IntentCartInquiry:
		return d.handleCartInquiry
	case types.IntentCancel, types.IntentStop:
		return d.handleCancel
	case types.IntentHelp:
		return d.handleHelp
	case types.IntentRepeat:
		return d.handleRepeat
	}

	switch types.CategoryOf(name) {
	case types.CategoryOrder:
		return d.handleAddProduct
	case types.CategoryCheckout:
		return d.handleCheckout
	case types.CategoryNavigation:
		return d.handleNavigate
	case types.CategoryInquiry:
		return d.handleShowMenu
	case types.CategoryControl:
		return d.handleHelp
	default:
		return nil
	}
}

// resolveProduct matches a spoken product name against the catalog: exact
// match first, then substring, then the best similarity above the floor.
func resolveProduct(name string, products []types.Product) *types.Product {
	lower := strings.ToLower(name)
	for i := range products {
		if strings.EqualFold(products[i].Name, name) {
			return &products[i]
		}
	}
	for i := range products {
		pn := strings.ToLower(products[i].Name)
		if strings.Contains(pn, lower) || strings.Contains(lower, pn) {
			return &products[i]
		}
	}

	var best *types.Product
	bestScore := productSimilarityFloor
	for i := range products {
		if s := interpreter.Similarity(lower, strings.ToLower(products[i].Name)); s >= bestScore {
			best = &products[i]
			bestScore = s
		}
	}
	return best
}

// resolveCartItem matches a spoken product name against the cart lines with
// the same exact/substring/similarity ladder used for the catalog.
func resolveCartItem(name string, cart types.Cart) *types.CartItem {
	lower := strings.ToLower(name)
	for i := range cart.Items {
		if strings.EqualFold(cart.Items[i].Name, name) {
			return &cart.Items[i]
		}
	}
	for i := range cart.Items {
		in := strings.ToLower(cart.Items[i].Name)
		if strings.Contains(in, lower) || strings.Contains(lower, in) {
			return &cart.Items[i]
		}
	}

	var best *types.CartItem
	bestScore := productSimilarityFloor
	for i := range cart.Items {
		if s := interpreter.Similarity(lower, strings.ToLower(cart.Items[i].Name)); s >= bestScore {
			best = &cart.Items[i]
			bestScore = s
		}
	}
	return best
}

// quantityOf reads the command's quantity entity, defaulting to fallback when
// absent or unparseable.
func quantityOf(cmd *types.Command, fallback int) int {
	ent := types.FindEntity(cmd.Entities, types.EntityQuantity)
	if ent == nil {
		return fallback
	}
	if n, ok := interpreter.ParseQuantity(ent.Normalized); ok {
		return n
	}
	return fallback
}

// menuSuggestions lists a few available product names for clarification
// prompts.
func menuSuggestions(products []types.Product) []string {
	var out []string
	for _, p := range products {
		if !p.Available {
			continue
		}
		out = append(out, p.Name)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func (d *Dispatcher) handleAddProduct(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "add_product"

	ent := types.FindEntity(cmd.Entities, types.EntityProduct)
	if ent == nil {
		res := types.Fail(action, types.ErrMissingProduct, "no product named in the command")
		res.Suggestions = menuSuggestions(dctx.Products)
		return res
	}

	product := resolveProduct(ent.Normalized, dctx.Products)
	if product == nil {
		res := types.Fail(action, types.ErrProductNotFound,
			fmt.Sprintf("product %q not found in the catalog", ent.Normalized))
		res.Suggestions = menuSuggestions(dctx.Products)
		return res
	}
	if !product.Available {
		return types.Fail(action, types.ErrProductUnavailable,
			fmt.Sprintf("%s is currently unavailable", product.Name))
	}

	item := types.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  quantityOf(cmd, 1),
		Price:     product.Price,
	}
	if err := d.runner.Invoke(ctx, cmd.Priority.Timeout(), func() error {
		if d.callbacks.OnProductAdd == nil {
			return nil
		}
		return d.callbacks.OnProductAdd(item)
	}); err != nil {
		return failureResult(action, err)
	}

	res := types.OK(action, fmt.Sprintf("added %d x %s to the cart", item.Quantity, item.Name))
	res.Data = map[string]interface{}{"item": item}
	return res
}

func (d *Dispatcher) handleRemoveProduct(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "remove_product"

	ent := types.FindEntity(cmd.Entities, types.EntityProduct)
	if ent == nil {
		return types.Fail(action, types.ErrMissingProduct, "no product named in the command")
	}

	item := resolveCartItem(ent.Normalized, dctx.Cart)
	if item == nil {
		return types.Fail(action, types.ErrProductNotInCart,
			fmt.Sprintf("%q is not in the cart", ent.Normalized))
	}

	// Without an explicit quantity the whole line is removed.
	qty := quantityOf(cmd, item.Quantity)
	if qty > item.Quantity {
		qty = item.Quantity
	}

	removed := *item
	if err := d.runner.Invoke(ctx, cmd.Priority.Timeout(), func() error {
		if d.callbacks.OnProductRemove == nil {
			return nil
		}
		return d.callbacks.OnProductRemove(removed, qty)
	}); err != nil {
		return failureResult(action, err)
	}

	res := types.OK(action, fmt.Sprintf("removed %d x %s from the cart", qty, item.Name))
	res.Data = map[string]interface{}{"item": removed, "quantity": qty}
	return res
}

func (d *Dispatcher) handleCheckout(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "checkout"
	now := dctx.Clock()

	if res := d.validator.ValidateCheckout(dctx.Cart, now); res != nil {
		return res
	}

	subtotal, vat, delivery, total := d.validator.Totals(dctx.Cart, dctx.Location.Zone)
	tx := d.txm.Begin(cmd.SessionID, dctx.Cart.Items, subtotal, vat, delivery, total, now)

	res := types.OK(action, fmt.Sprintf(
		"order total CHF %.2f (subtotal %.2f, VAT %.2f, delivery %.2f), say confirm to place it",
		total, subtotal, vat, delivery))
	res.Data = map[string]interface{}{"transaction": tx}
	return res
}

func (d *Dispatcher) handleConfirmOrder(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "confirm_order"

	tx := d.txm.Confirm(cmd.SessionID, dctx.Clock())
	if tx == nil {
		return types.Fail(action, types.ErrNoPendingOrder,
			"no pending order to confirm, checkout first")
	}

	if err := d.runner.Invoke(ctx, cmd.Priority.Timeout(), func() error {
		if d.callbacks.OnOrderComplete == nil {
			return nil
		}
		return d.callbacks.OnOrderComplete(tx)
	}); err != nil {
		return failureResult(action, err)
	}

	res := types.OK(action, fmt.Sprintf("order placed, total CHF %.2f", tx.Total))
	res.Data = map[string]interface{}{"transaction": tx}
	return res
}

// knownTargets is the closed set of navigation destinations.
var knownTargets = map[string]bool{
	"menu": true, "cart": true, "checkout": true,
	"home": true, "orders": true, "help": true,
}

func (d *Dispatcher) handleNavigate(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "navigate"

	ent := types.FindEntity(cmd.Entities, types.EntityNavTarget)
	if ent == nil {
		return types.Fail(action, types.ErrInvalidTarget, "no navigation target named")
	}
	target := strings.ToLower(ent.Normalized)
	if !knownTargets[target] {
		return types.Fail(action, types.ErrInvalidTarget,
			fmt.Sprintf("unknown navigation target %q", ent.Normalized))
	}

	if err := d.runner.Invoke(ctx, cmd.Priority.Timeout(), func() error {
		if d.callbacks.OnNavigate == nil {
			return nil
		}
		return d.callbacks.OnNavigate(target)
	}); err != nil {
		return failureResult(action, err)
	}

	res := types.OK(action, fmt.Sprintf("navigating to %s", target))
	res.Data = map[string]interface{}{"target": target}
	return res
}

func (d *Dispatcher) handleShowMenu(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "show_menu"

	var menu []types.Product
	for _, p := range dctx.Products {
		if p.Available {
			menu = append(menu, p)
		}
	}

	res := types.OK(action, fmt.Sprintf("%d products available", len(menu)))
	res.Data = map[string]interface{}{"menu": menu}
	return res
}

func (d *Dispatcher) handlePriceInquiry(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "price_inquiry"

	ent := types.FindEntity(cmd.Entities, types.EntityProduct)
	if ent == nil {
		res := types.Fail(action, types.ErrMissingProduct, "no product named in the inquiry")
		res.Suggestions = menuSuggestions(dctx.Products)
		return res
	}
	product := resolveProduct(ent.Normalized, dctx.Products)
	if product == nil {
		return types.Fail(action, types.ErrProductNotFound,
			fmt.Sprintf("product %q not found in the catalog", ent.Normalized))
	}

	res := types.OK(action, fmt.Sprintf("%s costs CHF %.2f", product.Name, product.Price))
	res.Data = map[string]interface{}{"product": product, "price": product.Price}
	return res
}

func (d *Dispatcher) handleCartInquiry(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	const action = "cart_inquiry"

	if dctx.Cart.Empty() {
		return types.OK(action, "the cart is empty")
	}

	subtotal, vat, delivery, total := d.validator.Totals(dctx.Cart, dctx.Location.Zone)
	res := types.OK(action, fmt.Sprintf("%d items in the cart, total CHF %.2f",
		len(dctx.Cart.Items), total))
	res.Data = map[string]interface{}{
		"items":        dctx.Cart.Items,
		"subtotal":     subtotal,
		"vat":          vat,
		"delivery_fee": delivery,
		"total":        total,
	}
	return res
}

// handleCancel serves both cancel and stop: it abandons the pending
// transaction, drops the session's queued commands and clears its batch
// entries.
func (d *Dispatcher) handleCancel(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	action := string(cmd.Intent.Name)

	abandoned := d.txm.Abandon(cmd.SessionID)
	dropped := d.queue.DropSession(cmd.SessionID)
	dropped += d.dropBatched(cmd.SessionID)

	msg := "nothing to cancel"
	if abandoned || dropped > 0 {
		msg = fmt.Sprintf("cancelled: %d pending commands dropped", dropped)
		if abandoned {
			msg += ", pending order abandoned"
		}
	}
	res := types.OK(action, msg)
	res.Data = map[string]interface{}{"dropped": dropped, "order_abandoned": abandoned}
	return res
}

func (d *Dispatcher) handleHelp(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	res := types.OK("help", "you can order products, ask for prices, check the cart or go to checkout")
	res.Suggestions = []string{
		"ich möchte zwei Pizza bestellen",
		"was kostet ein Burger",
		"zeig mir den Warenkorb",
		"zur Kasse",
	}
	return res
}

func (d *Dispatcher) handleRepeat(ctx context.Context, cmd *types.Command, dctx types.DomainContext) *types.Result {
	last := d.lastCommand(cmd.SessionID)
	if last == nil {
		return types.Fail("repeat", types.ErrNoPreviousCommand, "nothing to repeat")
	}

	// Re-run the previous command against the current domain context.
	rerun := *last
	rerun.ID = cmd.ID
	rerun.CreatedAt = cmd.CreatedAt
	handler := d.resolveHandler(rerun.Intent.Name)
	if handler == nil {
		return types.Fail("repeat", types.ErrExecution, "previous command has no handler")
	}
	return d.runWithRetry(ctx, handler, &rerun, dctx)
}
