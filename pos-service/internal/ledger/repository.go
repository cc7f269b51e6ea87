package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/storage"
)

var ErrNoStore = errors.New("store id is required")

type Repository interface {
	// Load never fails on missing or unreadable data; it returns an empty
	// ledger instead. Storage failures are errors.
	Load(ctx context.Context, storeID string) (*Ledger, error)
	// Save replaces the store's persisted ledger in a single write.
	Save(ctx context.Context, l *Ledger) error
}

// KVRepository persists ledgers under "inventario_<storeId>" as a JSON object
// of product id to quantity.
type KVRepository struct {
	kv  storage.KV
	log *slog.Logger
}

func NewKVRepository(kv storage.KV, log *slog.Logger) *KVRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &KVRepository{kv: kv, log: log}
}

func Key(storeID string) string {
	return "inventario_" + storeID
}

func (r *KVRepository) Load(ctx context.Context, storeID string) (*Ledger, error) {
	if storeID == "" {
		return nil, ErrNoStore
	}

	data, err := r.kv.Get(ctx, Key(storeID))
	if errors.Is(err, storage.ErrNotFound) {
		return New(storeID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for store %s: %w", storeID, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		r.log.WarnContext(ctx, "discarding corrupt ledger", "store_id", storeID, "error", err)
		return New(storeID), nil
	}

	l := New(storeID)
	for id, v := range raw {
		q, ok := parseQuantity(v)
		if !ok {
			r.log.WarnContext(ctx, "skipping unreadable ledger entry", "store_id", storeID, "product_id", id, "value", string(v))
			continue
		}
		l.Set(domain.ProductID(id), q)
	}
	return l, nil
}

// parseQuantity accepts a JSON number, or a numeric string as older records
// stored, truncating fractions.
func parseQuantity(raw json.RawMessage) (int, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(s)
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	return int(f), true
}

func (r *KVRepository) Save(ctx context.Context, l *Ledger) error {
	if l.StoreID == "" {
		return ErrNoStore
	}

	data, err := json.Marshal(l.quantities)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := r.kv.Set(ctx, Key(l.StoreID), data); err != nil {
		return fmt.Errorf("failed to save ledger for store %s: %w", l.StoreID, err)
	}
	r.log.DebugContext(ctx, "ledger saved", "store_id", l.StoreID, "entries", l.Len())
	return nil
}
