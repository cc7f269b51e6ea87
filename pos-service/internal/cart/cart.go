package cart

import (
	"errors"
	"sync"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
	"github.com/shopspring/decimal"
)

var (
	ErrOutOfStock   = errors.New("product out of stock")
	ErrInvalidDelta = errors.New("quantity delta must be +1 or -1")
	ErrItemNotFound = errors.New("item not in cart")
	ErrFinalizing   = errors.New("sale is being finalized")
	ErrEmpty        = errors.New("cart is empty")
	ErrNotEmpty     = errors.New("cart is not empty")
)

type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Cart reserves units from a snapshot of the store ledger while a sale is
// built. For every product, reserved + available equals the snapshot
// quantity. Nothing is persisted until the sale is committed.
type Cart struct {
	mu         sync.Mutex
	storeID    string
	snapshot   map[domain.ProductID]int
	view       map[domain.ProductID]int
	items      map[domain.ProductID]*domain.CartItem
	order      []domain.ProductID
	finalizing bool
}

// New starts an empty cart over a copy of snapshot.
func New(snapshot *ledger.Ledger) *Cart {
	c := &Cart{}
	c.reset(snapshot)
	return c
}

func (c *Cart) reset(snapshot *ledger.Ledger) {
	c.storeID = snapshot.StoreID
	c.snapshot = snapshot.Map()
	c.view = snapshot.Map()
	c.items = make(map[domain.ProductID]*domain.CartItem)
	c.order = nil
	c.finalizing = false
}

func (c *Cart) StoreID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storeID
}

func (c *Cart) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Cart) state() State {
	switch {
	case c.finalizing:
		return StateFinalizing
	case len(c.items) == 0:
		return StateEmpty
	default:
		return StateBuilding
	}
}

// AddItem reserves one unit of p. A product already in the cart gets its
// quantity raised by one, as long as stock remains.
func (c *Cart) AddItem(p domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalizing {
		return ErrFinalizing
	}
	if c.view[p.ID] <= 0 {
		return ErrOutOfStock
	}

	c.view[p.ID]--
	if item, ok := c.items[p.ID]; ok {
		item.Quantity++
		return nil
	}
	c.items[p.ID] = &domain.CartItem{
		ProductID: p.ID,
		ModelName: p.ModelName,
		Quantity:  1,
		UnitPrice: p.Price(),
	}
	c.order = append(c.order, p.ID)
	return nil
}

// AdjustQuantity moves an item's quantity by exactly one unit. Reaching zero
// removes the item.
func (c *Cart) AdjustQuantity(id domain.ProductID, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalizing {
		return ErrFinalizing
	}
	if delta != 1 && delta != -1 {
		return ErrInvalidDelta
	}
	item, ok := c.items[id]
	if !ok {
		return ErrItemNotFound
	}

	if delta == 1 {
		if c.view[id] <= 0 {
			return ErrOutOfStock
		}
		c.view[id]--
		item.Quantity++
		return nil
	}

	c.view[id]++
	item.Quantity--
	if item.Quantity == 0 {
		c.drop(id)
	}
	return nil
}

// RemoveItem releases the item's whole reservation.
func (c *Cart) RemoveItem(id domain.ProductID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalizing {
		return ErrFinalizing
	}
	item, ok := c.items[id]
	if !ok {
		return ErrItemNotFound
	}
	c.view[id] += item.Quantity
	c.drop(id)
	return nil
}

func (c *Cart) drop(id domain.ProductID) {
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear releases every reservation.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalizing {
		return ErrFinalizing
	}
	for id, item := range c.items {
		c.view[id] += item.Quantity
	}
	c.items = make(map[domain.ProductID]*domain.CartItem)
	c.order = nil
	return nil
}

// Rebase swaps the snapshot of an empty cart, e.g. after the ledger was
// edited and saved.
func (c *Cart) Rebase(snapshot *ledger.Ledger) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalizing {
		return ErrFinalizing
	}
	if len(c.items) > 0 {
		return ErrNotEmpty
	}
	c.reset(snapshot)
	return nil
}

// Available is the unreserved quantity of id in the snapshot.
func (c *Cart) Available(id domain.ProductID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view[id]
}

func (c *Cart) Reserved(id domain.ProductID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.items[id]; ok {
		return item.Quantity
	}
	return 0
}

// View returns the available quantity per product.
func (c *Cart) View() map[domain.ProductID]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[domain.ProductID]int, len(c.view))
	for id, q := range c.view {
		out[id] = q
	}
	return out
}

// Items returns the cart lines in the order they were added.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemsLocked()
}

func (c *Cart) itemsLocked() []domain.CartItem {
	out := make([]domain.CartItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// BeginFinalize freezes the cart and returns its lines. The caller must end
// with Commit or Abort.
func (c *Cart) BeginFinalize() ([]domain.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finalizing {
		return nil, ErrFinalizing
	}
	if len(c.items) == 0 {
		return nil, ErrEmpty
	}
	c.finalizing = true
	return c.itemsLocked(), nil
}

// Abort returns a finalizing cart to building with every reservation intact.
func (c *Cart) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalizing = false
}

// Commit empties the cart after a sale was persisted and starts over from the
// ledger that was saved.
func (c *Cart) Commit(persisted *ledger.Ledger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset(persisted)
}
