package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/shopspring/decimal"
)

// InvalidProductError describes one catalog record that was not ingested.
type InvalidProductError struct {
	Index  int
	ID     string
	Reason string
}

func (e *InvalidProductError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("product %d (id %s): %s", e.Index, e.ID, e.Reason)
	}
	return fmt.Sprintf("product %d: %s", e.Index, e.Reason)
}

func (e *InvalidProductError) Is(target error) bool {
	return target == ErrInvalidProduct
}

type wireSKU struct {
	Barcode   domain.FlexString `json:"codigoBarras"`
	Size      domain.FlexString `json:"talla"`
	Color     string            `json:"color"`
	SalePrice *decimal.Decimal  `json:"precioVenta"`
}

type wireProduct struct {
	ID          domain.FlexString `json:"id"`
	ModelName   string            `json:"nombreModelo"`
	Description *string           `json:"descripcion"`
	Brand       string            `json:"marca"`
	Category    string            `json:"categoria"`
	SKUs        json.RawMessage   `json:"skus"`
}

type wireStore struct {
	ID     domain.FlexString `json:"id"`
	Nombre string            `json:"nombre"`
	Name   string            `json:"name"`
}

// envelopeKeys are the wrappers the backend has been seen to put around lists.
var envelopeKeys = []string{"data", "products", "productos", "tiendas", "stores"}

// unwrapList accepts a bare JSON array or an object wrapping one.
func unwrapList(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}

	switch body[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return list, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		for _, key := range envelopeKeys {
			if inner, ok := obj[key]; ok {
				return unwrapList(inner)
			}
		}
		return nil, fmt.Errorf("%w: object without a list", ErrInvalidResponse)
	case 'n':
		// null
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: expected a list", ErrInvalidResponse)
	}
}

// NormalizeProducts maps every accepted wire shape onto domain.Product.
// Records without an id or model name are returned in rejected and skipped.
// A repeated id fails the whole catalog: merging two products' inventories
// silently is worse than showing no catalog.
func NormalizeProducts(raws []json.RawMessage) ([]domain.Product, []*InvalidProductError, error) {
	products := make([]domain.Product, 0, len(raws))
	var rejected []*InvalidProductError
	seen := make(map[domain.ProductID]int, len(raws))

	for i, raw := range raws {
		var wp wireProduct
		if err := json.Unmarshal(raw, &wp); err != nil {
			rejected = append(rejected, &InvalidProductError{Index: i, Reason: "malformed record: " + err.Error()})
			continue
		}

		id := strings.TrimSpace(string(wp.ID))
		if id == "" {
			rejected = append(rejected, &InvalidProductError{Index: i, Reason: "missing id"})
			continue
		}
		name := strings.TrimSpace(wp.ModelName)
		if name == "" {
			rejected = append(rejected, &InvalidProductError{Index: i, ID: id, Reason: "missing nombreModelo"})
			continue
		}
		if first, dup := seen[domain.ProductID(id)]; dup {
			return nil, rejected, &InvalidProductError{
				Index:  i,
				ID:     id,
				Reason: fmt.Sprintf("duplicate id, first seen at record %d", first),
			}
		}

		skus, err := normalizeSKUs(wp.SKUs)
		if err != nil {
			rejected = append(rejected, &InvalidProductError{Index: i, ID: id, Reason: err.Error()})
			continue
		}

		p := domain.Product{
			ID:        domain.ProductID(id),
			ModelName: name,
			Brand:     strings.TrimSpace(wp.Brand),
			Category:  strings.TrimSpace(wp.Category),
			SKUs:      skus,
		}
		if wp.Description != nil {
			p.Description = *wp.Description
		}
		seen[p.ID] = i
		products = append(products, p)
	}
	return products, rejected, nil
}

// normalizeSKUs accepts null, a single object or a list.
func normalizeSKUs(raw json.RawMessage) ([]domain.SKU, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var wire []wireSKU
	switch raw[0] {
	case '{':
		var one wireSKU
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("malformed skus: %v", err)
		}
		wire = []wireSKU{one}
	case '[':
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("malformed skus: %v", err)
		}
	default:
		return nil, fmt.Errorf("malformed skus: expected object or list")
	}

	skus := make([]domain.SKU, 0, len(wire))
	for _, w := range wire {
		skus = append(skus, domain.SKU{
			Barcode:   string(w.Barcode),
			Size:      string(w.Size),
			Color:     w.Color,
			SalePrice: w.SalePrice,
		})
	}
	return skus, nil
}

func normalizeStores(raws []json.RawMessage) []domain.Store {
	stores := make([]domain.Store, 0, len(raws))
	for _, raw := range raws {
		var ws wireStore
		if err := json.Unmarshal(raw, &ws); err != nil || ws.ID == "" {
			continue
		}
		name := ws.Nombre
		if name == "" {
			name = ws.Name
		}
		stores = append(stores, domain.Store{ID: string(ws.ID), Name: name})
	}
	return stores
}
