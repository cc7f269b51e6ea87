package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/shopspring/decimal"
)

// NewProduct is the product registration payload.
type NewProduct struct {
	ModelName   string          `json:"nombreModelo"`
	Description *string         `json:"descripcion"`
	Brand       string          `json:"marca"`
	Category    string          `json:"categoria"`
	Barcode     string          `json:"codigoBarras"`
	Size        string          `json:"talla"`
	Color       string          `json:"color"`
	SalePrice   decimal.Decimal `json:"-"`
}

// MarshalJSON sends the price as a JSON number, the way the backend stores it.
func (p NewProduct) MarshalJSON() ([]byte, error) {
	type plain NewProduct
	return json.Marshal(struct {
		plain
		SalePrice json.Number `json:"precioVenta"`
	}{plain(p), json.Number(p.SalePrice.String())})
}

type InventoryUpdate struct {
	ProductID domain.ProductID `json:"productId"`
	SKUID     string           `json:"skuId,omitempty"`
	Inventory int              `json:"inventory"`
}

// PromptProduct is the catalog entry sent along with a recommendation prompt.
type PromptProduct struct {
	ID        domain.ProductID `json:"id"`
	ModelName string           `json:"nombreModelo"`
	Brand     string           `json:"marca"`
	Category  string           `json:"categoria"`
	Inventory int              `json:"inventario"`
	SalePrice *decimal.Decimal `json:"-"`
}

func (p PromptProduct) MarshalJSON() ([]byte, error) {
	type plain PromptProduct
	var price *json.Number
	if p.SalePrice != nil {
		n := json.Number(p.SalePrice.String())
		price = &n
	}
	return json.Marshal(struct {
		plain
		SalePrice *json.Number `json:"precioVenta"`
	}{plain(p), price})
}

type promptRequest struct {
	Prompt   string          `json:"prompt"`
	Products []PromptProduct `json:"products"`
}

// GetProducts fetches and normalizes the catalog. Rejected records are logged
// and dropped; a duplicate id fails the whole fetch.
func (c *Client) GetProducts(ctx context.Context) ([]domain.Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/producto", nil)
	if err != nil {
		return nil, err
	}
	raws, err := unwrapList(body)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}

	products, rejected, err := NormalizeProducts(raws)
	for _, r := range rejected {
		c.log.WarnContext(ctx, "skipping catalog record", "index", r.Index, "id", r.ID, "reason", r.Reason)
	}
	if err != nil {
		c.log.ErrorContext(ctx, "catalog rejected", "error", err)
		return nil, fmt.Errorf("products: %w", err)
	}
	return products, nil
}

func (c *Client) CreateProduct(ctx context.Context, p NewProduct) (string, error) {
	var out messageWire
	if err := c.doJSON(ctx, http.MethodPost, "/producto", p, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) UpdateInventory(ctx context.Context, updates []InventoryUpdate) error {
	if updates == nil {
		updates = []InventoryUpdate{}
	}
	_, err := c.do(ctx, http.MethodPut, "/producto/updateInventory", updates)
	return err
}

// promptKeys are the fields the recommendation text has been seen under.
var promptKeys = []string{"response", "respuesta", "recommendation", "text", "message", "data"}

// Prompt asks the backend for a recommendation and returns its free text.
func (c *Client) Prompt(ctx context.Context, prompt string, products []PromptProduct) (string, error) {
	if products == nil {
		products = []PromptProduct{}
	}
	body, err := c.do(ctx, http.MethodPost, "/producto/prompt", promptRequest{Prompt: prompt, Products: products})
	if err != nil {
		return "", err
	}
	return promptText(body), nil
}

func promptText(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range promptKeys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &s); err == nil {
				return s
			}
			return strings.TrimSpace(string(raw))
		}
	}
	return string(body)
}
