package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fjod/go_pos/pkg/logger"
	"github.com/fjod/go_pos/pos-service/internal/cart"
	"github.com/fjod/go_pos/pos-service/internal/catalog"
	"github.com/fjod/go_pos/pos-service/internal/dashboard"
	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/gateway"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
	"github.com/fjod/go_pos/pos-service/internal/sale"
	"github.com/fjod/go_pos/pos-service/internal/session"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Backend is the part of the gateway the terminal calls directly.
type Backend interface {
	GetStores(ctx context.Context) ([]domain.Store, error)
	CreateProduct(ctx context.Context, p gateway.NewProduct) (string, error)
	UpdateInventory(ctx context.Context, updates []gateway.InventoryUpdate) error
}

// Terminal is one store device: one session, the inventory being edited and
// at most one cart.
type Terminal struct {
	session     *session.Store
	catalog     *catalog.Catalog
	ledgers     ledger.Repository
	finalizer   *sale.Finalizer
	backend     Backend
	recommender *dashboard.Recommender
	dashboard   *dashboard.Data
	log         *slog.Logger

	mu      sync.Mutex
	working *ledger.Ledger
	cart    *cart.Cart
}

type Deps struct {
	Session     *session.Store
	Catalog     *catalog.Catalog
	Ledgers     ledger.Repository
	Finalizer   *sale.Finalizer
	Backend     Backend
	Recommender *dashboard.Recommender
	Dashboard   *dashboard.Data
	Logger      *slog.Logger
}

func NewTerminal(d Deps) *Terminal {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Terminal{
		session:     d.Session,
		catalog:     d.Catalog,
		ledgers:     d.Ledgers,
		finalizer:   d.Finalizer,
		backend:     d.Backend,
		recommender: d.Recommender,
		dashboard:   d.Dashboard,
		log:         log,
	}
}

func (t *Terminal) Stores(ctx context.Context) ([]domain.Store, error) {
	return t.backend.GetStores(ctx)
}

func (t *Terminal) Register(ctx context.Context, r session.Registration) (string, error) {
	return t.session.Register(ctx, r)
}

// Login starts a new session. Whatever the previous employee left behind is
// discarded.
func (t *Terminal) Login(ctx context.Context, username, password string) (*domain.Employee, error) {
	emp, err := t.session.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	t.discard()
	return emp, nil
}

func (t *Terminal) CurrentEmployee(ctx context.Context) (*domain.Employee, error) {
	return t.session.Current(ctx)
}

func (t *Terminal) Logout(ctx context.Context) error {
	t.discard()
	return t.session.Logout(ctx)
}

func (t *Terminal) discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cart = nil
	t.working = nil
}

func (t *Terminal) Products(ctx context.Context, refresh bool) ([]domain.Product, error) {
	if refresh {
		return t.catalog.Refresh(ctx)
	}
	return t.catalog.Products(ctx)
}

// ProductForm is the product registration form as typed by the operator.
type ProductForm struct {
	ModelName   string `json:"nombreModelo"`
	Description string `json:"descripcion"`
	Brand       string `json:"marca"`
	Category    string `json:"categoria"`
	Barcode     string `json:"codigoBarras"`
	Size        string `json:"talla"`
	Color       string `json:"color"`
	SalePrice   string `json:"precioVenta"`
}

// UnmarshalJSON accepts the price as a number or a string.
func (f *ProductForm) UnmarshalJSON(data []byte) error {
	type plain ProductForm
	var aux struct {
		plain
		SalePrice json.RawMessage `json:"precioVenta"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = ProductForm(aux.plain)
	var price domain.FlexString
	if len(aux.SalePrice) > 0 {
		if err := json.Unmarshal(aux.SalePrice, &price); err != nil {
			return fmt.Errorf("precioVenta: %w", err)
		}
	}
	f.SalePrice = string(price)
	return nil
}

func (f ProductForm) validate() (decimal.Decimal, error) {
	var v domain.Validator
	v.Required("nombreModelo", f.ModelName)
	v.Required("marca", f.Brand)
	v.Required("categoria", f.Category)
	v.Required("codigoBarras", f.Barcode)
	v.Required("talla", f.Size)
	v.Required("color", f.Color)

	price, err := decimal.NewFromString(strings.TrimSpace(f.SalePrice))
	switch {
	case strings.TrimSpace(f.SalePrice) == "":
		v.Required("precioVenta", f.SalePrice)
	case err != nil:
		v.Add("precioVenta", "debe ser un numero")
	case !price.IsPositive():
		v.Add("precioVenta", "debe ser mayor a 0")
	}
	return price, v.Err()
}

// CreateProduct registers a product and refreshes the catalog.
func (t *Terminal) CreateProduct(ctx context.Context, f ProductForm) (string, error) {
	price, err := f.validate()
	if err != nil {
		return "", err
	}

	p := gateway.NewProduct{
		ModelName: strings.TrimSpace(f.ModelName),
		Brand:     strings.TrimSpace(f.Brand),
		Category:  strings.TrimSpace(f.Category),
		Barcode:   strings.TrimSpace(f.Barcode),
		Size:      strings.TrimSpace(f.Size),
		Color:     strings.TrimSpace(f.Color),
		SalePrice: price,
	}
	if desc := strings.TrimSpace(f.Description); desc != "" {
		p.Description = &desc
	}

	msg, err := t.backend.CreateProduct(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}
	if _, err := t.catalog.Refresh(ctx); err != nil {
		t.log.WarnContext(ctx, "catalog refresh after product creation failed", "error", err)
	}
	return msg, nil
}

// loadLedger reads the store's persisted ledger and gives every catalog
// product an entry. Without a catalog the persisted entries are used as is.
func (t *Terminal) loadLedger(ctx context.Context, storeID string) (*ledger.Ledger, []domain.Product, error) {
	l, err := t.ledgers.Load(ctx, storeID)
	if err != nil {
		return nil, nil, err
	}
	products, err := t.catalog.Products(ctx)
	if err != nil {
		t.log.WarnContext(ctx, "catalog unavailable, using stored inventory only", "store_id", storeID, "error", err)
		return l, nil, nil
	}
	l.Merge(products)
	return l, products, nil
}
