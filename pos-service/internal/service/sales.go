package service

import (
	"context"
	"encoding/json"

	"github.com/fjod/go_pos/pos-service/internal/cart"
	"github.com/fjod/go_pos/pos-service/internal/dashboard"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/sale"
	"github.com/shopspring/decimal"
)

type CartView struct {
	StoreID   string                   `json:"store_id"`
	State     string                   `json:"state"`
	Items     []domain.CartItem        `json:"items"`
	Total     decimal.Decimal          `json:"total"`
	Available map[domain.ProductID]int `json:"available"`
}

// currentCart returns the cart for the session's store, starting one from the
// persisted ledger when there is none.
func (t *Terminal) currentCart(ctx context.Context) (*cart.Cart, error) {
	storeID, err := t.session.StoreID(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cart != nil && t.cart.StoreID() == storeID {
		return t.cart, nil
	}
	l, _, err := t.loadLedger(ctx, storeID)
	if err != nil {
		return nil, err
	}
	t.cart = cart.New(l)
	t.log.DebugContext(ctx, "cart started", "store_id", storeID)
	return t.cart, nil
}

func viewOf(c *cart.Cart) *CartView {
	return &CartView{
		StoreID:   c.StoreID(),
		State:     c.State().String(),
		Items:     c.Items(),
		Total:     c.Total(),
		Available: c.View(),
	}
}

func (t *Terminal) Cart(ctx context.Context) (*CartView, error) {
	c, err := t.currentCart(ctx)
	if err != nil {
		return nil, err
	}
	return viewOf(c), nil
}

// AddToCart reserves one unit of a catalog product.
func (t *Terminal) AddToCart(ctx context.Context, id domain.ProductID) (*CartView, error) {
	c, err := t.currentCart(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := t.catalog.Get(id)
	if !ok {
		return nil, ErrProductNotFound
	}
	if err := c.AddItem(p); err != nil {
		return nil, err
	}
	return viewOf(c), nil
}

func (t *Terminal) AdjustCartItem(ctx context.Context, id domain.ProductID, delta int) (*CartView, error) {
	return t.mutateCart(ctx, func(c *cart.Cart) error { return c.AdjustQuantity(id, delta) })
}

func (t *Terminal) RemoveCartItem(ctx context.Context, id domain.ProductID) (*CartView, error) {
	return t.mutateCart(ctx, func(c *cart.Cart) error { return c.RemoveItem(id) })
}

func (t *Terminal) ClearCart(ctx context.Context) (*CartView, error) {
	return t.mutateCart(ctx, func(c *cart.Cart) error { return c.Clear() })
}

func (t *Terminal) mutateCart(ctx context.Context, fn func(*cart.Cart) error) (*CartView, error) {
	c, err := t.currentCart(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	return viewOf(c), nil
}

// Checkout finalizes the cart as a sale by the logged-in employee.
func (t *Terminal) Checkout(ctx context.Context) (*sale.Result, error) {
	emp, err := t.session.Current(ctx)
	if err != nil {
		return nil, err
	}
	c, err := t.currentCart(ctx)
	if err != nil {
		return nil, err
	}

	res, err := t.finalizer.Finalize(ctx, c, *emp)
	if err != nil {
		return nil, err
	}

	// unsaved inventory edits were made against quantities that just changed
	t.mu.Lock()
	t.working = nil
	t.mu.Unlock()
	return res, nil
}

func (t *Terminal) DashboardYears() []string {
	return t.dashboard.Years()
}

func (t *Terminal) DashboardYear(year string) (json.RawMessage, *dashboard.Analysis, error) {
	raw, err := t.dashboard.Year(year)
	if err != nil {
		return nil, nil, err
	}
	analysis, err := t.dashboard.Analyze(year)
	if err != nil {
		t.log.Warn("dashboard analysis failed", "year", year, "error", err)
		return raw, nil, nil
	}
	return raw, analysis, nil
}

// Recommend asks for advice over the catalog and the store's saved quantities.
func (t *Terminal) Recommend(ctx context.Context, prompt string) (string, error) {
	storeID, err := t.session.StoreID(ctx)
	if err != nil {
		return "", err
	}
	l, products, err := t.loadLedger(ctx, storeID)
	if err != nil {
		return "", err
	}
	return t.recommender.Recommend(ctx, prompt, products, l)
}
