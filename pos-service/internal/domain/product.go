package domain

import (
	"github.com/shopspring/decimal"
)

// ProductID identifies a product in the ledger and the cart. The backend sends
// either numbers or strings; both normalize to the decimal string form.
type ProductID string

// SKU is one sellable variant of a product.
type SKU struct {
	Barcode   string           `json:"codigoBarras,omitempty"`
	Size      string           `json:"talla,omitempty"`
	Color     string           `json:"color,omitempty"`
	SalePrice *decimal.Decimal `json:"precioVenta,omitempty"`
}

type Product struct {
	ID          ProductID `json:"id"`
	ModelName   string    `json:"nombreModelo"`
	Description string    `json:"descripcion,omitempty"`
	Brand       string    `json:"marca"`
	Category    string    `json:"categoria"`
	SKUs        []SKU     `json:"skus"`
}

// PrimarySKU is the first SKU; listings and the cart price from it.
func (p Product) PrimarySKU() (SKU, bool) {
	if len(p.SKUs) == 0 {
		return SKU{}, false
	}
	return p.SKUs[0], true
}

// Price returns the primary SKU's sale price, if there is one.
func (p Product) Price() *decimal.Decimal {
	sku, ok := p.PrimarySKU()
	if !ok || sku.SalePrice == nil {
		return nil
	}
	price := *sku.SalePrice
	return &price
}

type Store struct {
	ID   string `json:"id"`
	Name string `json:"nombre"`
}
