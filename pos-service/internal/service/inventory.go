package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/gateway"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
)

type InventoryRow struct {
	ProductID domain.ProductID `json:"product_id"`
	Product   *domain.Product  `json:"product,omitempty"`
	Quantity  int              `json:"quantity"`
}

type InventoryView struct {
	StoreID string         `json:"store_id"`
	Items   []InventoryRow `json:"items"`
	Dirty   bool           `json:"dirty"` // unsaved edits
}

// workingLedger returns the ledger being edited for the session's store,
// loading it on first use. The caller holds t.mu.
func (t *Terminal) workingLedger(ctx context.Context) (*ledger.Ledger, error) {
	storeID, err := t.session.StoreID(ctx)
	if err != nil {
		return nil, err
	}
	if t.working != nil && t.working.StoreID == storeID {
		return t.working, nil
	}
	l, _, err := t.loadLedger(ctx, storeID)
	if err != nil {
		return nil, err
	}
	t.working = l
	return l, nil
}

func (t *Terminal) Inventory(ctx context.Context) (*InventoryView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, err := t.workingLedger(ctx)
	if err != nil {
		return nil, err
	}
	return t.inventoryView(ctx, l)
}

func (t *Terminal) inventoryView(ctx context.Context, l *ledger.Ledger) (*InventoryView, error) {
	persisted, err := t.ledgers.Load(ctx, l.StoreID)
	if err != nil {
		return nil, err
	}

	view := &InventoryView{StoreID: l.StoreID, Items: make([]InventoryRow, 0, l.Len())}
	for _, id := range l.IDs() {
		row := InventoryRow{ProductID: id, Quantity: l.Get(id)}
		if p, ok := t.catalog.Get(id); ok {
			row.Product = &p
		}
		if persisted.Get(id) != row.Quantity {
			view.Dirty = true
		}
		view.Items = append(view.Items, row)
	}
	return view, nil
}

// SetQuantity edits the working ledger; nothing is stored until SaveInventory.
func (t *Terminal) SetQuantity(ctx context.Context, id domain.ProductID, q int) (int, error) {
	return t.editLedger(ctx, func(l *ledger.Ledger) int {
		l.Set(id, q)
		return l.Get(id)
	})
}

func (t *Terminal) IncrementQuantity(ctx context.Context, id domain.ProductID) (int, error) {
	return t.editLedger(ctx, func(l *ledger.Ledger) int { return l.Increment(id) })
}

func (t *Terminal) DecrementQuantity(ctx context.Context, id domain.ProductID) (int, error) {
	return t.editLedger(ctx, func(l *ledger.Ledger) int { return l.Decrement(id) })
}

func (t *Terminal) editLedger(ctx context.Context, edit func(*ledger.Ledger) int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, err := t.workingLedger(ctx)
	if err != nil {
		return 0, err
	}
	return edit(l), nil
}

// SaveInventory persists the working ledger. An empty cart is moved onto the
// saved quantities; a cart in progress keeps its snapshot.
func (t *Terminal) SaveInventory(ctx context.Context) (*InventoryView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, err := t.workingLedger(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.ledgers.Save(ctx, l); err != nil {
		return nil, err
	}
	t.log.InfoContext(ctx, "inventory saved", "store_id", l.StoreID, "entries", l.Len())

	if t.cart != nil && t.cart.StoreID() == l.StoreID {
		if err := t.cart.Rebase(l.Clone()); err != nil {
			t.log.DebugContext(ctx, "cart keeps its snapshot", "reason", err)
		}
	}
	return t.inventoryView(ctx, l)
}

// SyncInventory pushes the store's saved quantities to the backend.
func (t *Terminal) SyncInventory(ctx context.Context) (int, error) {
	storeID, err := t.session.StoreID(ctx)
	if err != nil {
		return 0, err
	}
	l, _, err := t.loadLedger(ctx, storeID)
	if err != nil {
		return 0, err
	}

	updates := make([]gateway.InventoryUpdate, 0, l.Len())
	for _, id := range l.IDs() {
		u := gateway.InventoryUpdate{ProductID: id, Inventory: l.Get(id)}
		if p, ok := t.catalog.Get(id); ok {
			if sku, ok := p.PrimarySKU(); ok {
				u.SKUID = sku.Barcode
			}
		}
		updates = append(updates, u)
	}

	if err := t.backend.UpdateInventory(ctx, updates); err != nil {
		return 0, fmt.Errorf("failed to sync inventory: %w", err)
	}
	t.log.InfoContext(ctx, "inventory synced", "store_id", storeID, "entries", len(updates))
	return len(updates), nil
}
