package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pos-service/internal/cart"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPersist means the receipt was built but the inventory change could
	// not be saved; the cart is left as it was.
	ErrPersist = errors.New("failed to persist sale")
)

// Result is a completed sale: the receipt and its rendered document.
type Result struct {
	Receipt     domain.Receipt
	Document    []byte
	ContentType string
}

type Finalizer struct {
	repo      ledger.Repository
	renderer  Renderer
	publisher Publisher
	currency  string
	now       func() time.Time
	log       *slog.Logger
}

type Option func(*Finalizer)

func WithRenderer(r Renderer) Option {
	return func(f *Finalizer) { f.renderer = r }
}

func WithPublisher(p Publisher) Option {
	return func(f *Finalizer) { f.publisher = p }
}

func WithCurrency(currency string) Option {
	return func(f *Finalizer) { f.currency = currency }
}

func WithClock(now func() time.Time) Option {
	return func(f *Finalizer) { f.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(f *Finalizer) { f.log = log }
}

func NewFinalizer(repo ledger.Repository, opts ...Option) *Finalizer {
	f := &Finalizer{
		repo:      repo,
		renderer:  PDFRenderer{},
		publisher: NopPublisher{},
		currency:  "MXN",
		now:       time.Now,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize turns the cart into a sale. The receipt is built and rendered
// first; only then is the persisted ledger reloaded, reduced by the sold
// quantities and saved. If anything fails the cart keeps its items and no
// inventory is changed.
func (f *Finalizer) Finalize(ctx context.Context, c *cart.Cart, emp domain.Employee) (*Result, error) {
	items, err := c.BeginFinalize()
	if errors.Is(err, cart.ErrEmpty) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			c.Abort()
		}
	}()

	receipt := f.buildReceipt(c.StoreID(), emp, items)
	doc, err := f.renderer.Render(receipt)
	if err != nil {
		f.log.ErrorContext(ctx, "receipt rendering failed", "receipt_id", receipt.ID, "error", err)
		return nil, err
	}

	persisted, err := f.repo.Load(ctx, receipt.StoreID)
	if err != nil {
		f.log.ErrorContext(ctx, "failed to reload ledger for sale", "receipt_id", receipt.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	for _, item := range items {
		persisted.Subtract(item.ProductID, item.Quantity)
	}
	if err := f.repo.Save(ctx, persisted); err != nil {
		f.log.ErrorContext(ctx, "failed to save ledger for sale", "receipt_id", receipt.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	c.Commit(persisted)
	committed = true

	f.log.InfoContext(ctx, "sale completed",
		"receipt_id", receipt.ID,
		"store_id", receipt.StoreID,
		"lines", len(receipt.Lines),
		"total", receipt.Total.StringFixed(2),
	)

	event := Event{
		ReceiptID:   receipt.ID,
		StoreID:     receipt.StoreID,
		Employee:    emp.Username,
		Items:       items,
		Total:       receipt.Total,
		Currency:    receipt.Currency,
		CompletedAt: receipt.IssuedAt,
	}
	if err := f.publisher.Publish(ctx, event); err != nil {
		// the sale already happened; the event is informational
		f.log.WarnContext(ctx, "failed to publish sale event", "receipt_id", receipt.ID, "error", err)
	}

	return &Result{Receipt: receipt, Document: doc, ContentType: f.renderer.ContentType()}, nil
}

func (f *Finalizer) buildReceipt(storeID string, emp domain.Employee, items []domain.CartItem) domain.Receipt {
	lines := make([]domain.ReceiptLine, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		sub := item.Subtotal()
		lines = append(lines, domain.ReceiptLine{
			ProductID: item.ProductID,
			ModelName: item.ModelName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  sub,
		})
		total = total.Add(sub)
	}

	return domain.Receipt{
		ID:       uuid.New().String(),
		StoreID:  storeID,
		Employee: emp,
		Lines:    lines,
		Total:    total,
		Currency: f.currency,
		IssuedAt: f.now(),
	}
}
