package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

var ErrNotLoaded = errors.New("catalog not loaded")

type Source interface {
	GetProducts(ctx context.Context) ([]domain.Product, error)
}

// Catalog caches the backend product list. Every fetch is numbered; a result
// is applied only if no later-numbered fetch has been applied already.
type Catalog struct {
	source Source
	log    *slog.Logger
	sfg    singleflight.Group

	seq atomic.Uint64

	mu       sync.RWMutex
	products []domain.Product
	byID     map[domain.ProductID]domain.Product
	applied  uint64
}

func New(source Source, log *slog.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}
	return &Catalog{source: source, log: log}
}

// Products returns the cached list, fetching it on first use.
func (c *Catalog) Products(ctx context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	loaded := c.byID != nil
	products := c.products
	c.mu.RUnlock()
	if loaded {
		return products, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the catalog. Concurrent callers share one request, which
// outlives any single caller giving up on it.
func (c *Catalog) Refresh(ctx context.Context) ([]domain.Product, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan("products", func() (interface{}, error) {
		return c.fetch(shared, c.seq.Add(1))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Product), nil
	}
}

func (c *Catalog) fetch(ctx context.Context, seq uint64) ([]domain.Product, error) {
	products, err := c.source.GetProducts(ctx)
	if err != nil {
		c.log.ErrorContext(ctx, "catalog refresh failed", "seq", seq, "error", err)
		return nil, err
	}
	return c.apply(seq, products), nil
}

// apply installs products unless a newer fetch got there first, and returns
// whatever is current afterwards.
func (c *Catalog) apply(seq uint64, products []domain.Product) []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.applied {
		c.log.Warn("discarding stale catalog response", "seq", seq, "applied", c.applied)
		return c.products
	}

	byID := make(map[domain.ProductID]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	c.products = products
	c.byID = byID
	c.applied = seq
	c.log.Info("catalog refreshed", "seq", seq, "products", len(products))
	return products
}

// Get looks up a product in the cached catalog.
func (c *Catalog) Get(id domain.ProductID) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	return p, ok
}

// Loaded reports whether any fetch has been applied.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID != nil
}
