package ledger

import (
	"sort"

	"github.com/fjod/go_pos/pos-service/internal/domain"
)

// Ledger is one store's on-hand quantity per product. Quantities never go
// below zero.
type Ledger struct {
	StoreID    string
	quantities map[domain.ProductID]int
}

// New returns an empty ledger for the store.
func New(storeID string) *Ledger {
	return &Ledger{
		StoreID:    storeID,
		quantities: make(map[domain.ProductID]int),
	}
}

// Get returns the quantity for id; products without an entry have zero.
func (l *Ledger) Get(id domain.ProductID) int {
	return l.quantities[id]
}

// Has reports whether id has an explicit entry.
func (l *Ledger) Has(id domain.ProductID) bool {
	_, ok := l.quantities[id]
	return ok
}

// Set stores q, clamping negatives to zero.
func (l *Ledger) Set(id domain.ProductID, q int) {
	if q < 0 {
		q = 0
	}
	l.quantities[id] = q
}

func (l *Ledger) Increment(id domain.ProductID) int {
	l.quantities[id]++
	return l.quantities[id]
}

// Decrement lowers the quantity by one, stopping at zero.
func (l *Ledger) Decrement(id domain.ProductID) int {
	l.Set(id, l.quantities[id]-1)
	return l.quantities[id]
}

// Subtract removes n units, flooring at zero.
func (l *Ledger) Subtract(id domain.ProductID, n int) int {
	l.Set(id, l.quantities[id]-n)
	return l.quantities[id]
}

// Merge gives every catalog product an explicit entry, zero when the ledger
// has none. Existing entries are kept, including ones for products no longer
// in the catalog.
func (l *Ledger) Merge(products []domain.Product) {
	for _, p := range products {
		if _, ok := l.quantities[p.ID]; !ok {
			l.quantities[p.ID] = 0
		}
	}
}

// IDs returns the product ids with an entry, sorted.
func (l *Ledger) IDs() []domain.ProductID {
	ids := make([]domain.ProductID, 0, len(l.quantities))
	for id := range l.quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (l *Ledger) Len() int {
	return len(l.quantities)
}

// Map returns a copy of the quantities.
func (l *Ledger) Map() map[domain.ProductID]int {
	out := make(map[domain.ProductID]int, len(l.quantities))
	for id, q := range l.quantities {
		out[id] = q
	}
	return out
}

func (l *Ledger) Clone() *Ledger {
	return &Ledger{StoreID: l.StoreID, quantities: l.Map()}
}

// Equal reports whether both ledgers belong to the same store and hold the
// same entries.
func (l *Ledger) Equal(other *Ledger) bool {
	if l.StoreID != other.StoreID || len(l.quantities) != len(other.quantities) {
		return false
	}
	for id, q := range l.quantities {
		oq, ok := other.quantities[id]
		if !ok || oq != q {
			return false
		}
	}
	return true
}
