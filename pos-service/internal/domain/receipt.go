package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID ProductID        `json:"product_id"`
	ModelName string           `json:"nombre_modelo"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Subtotal is zero for items without a price.
func (i CartItem) Subtotal() decimal.Decimal {
	if i.UnitPrice == nil {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type ReceiptLine struct {
	ProductID ProductID        `json:"product_id"`
	ModelName string           `json:"nombre_modelo"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
}

// Receipt is the export artifact of a finalized sale. It is never stored.
type Receipt struct {
	ID       string          `json:"id"`
	StoreID  string          `json:"store_id"`
	Employee Employee        `json:"employee"`
	Lines    []ReceiptLine   `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	IssuedAt time.Time       `json:"issued_at"`
}

// FileName mirrors the receipt download name used at the counter.
func (r Receipt) FileName() string {
	stamp := r.IssuedAt.Format("2006_01_02_15_04_05")
	return fmt.Sprintf("recibo_venta_%s.pdf", stamp)
}

// Text renders the receipt the way it is printed.
func (r Receipt) Text() string {
	var b strings.Builder
	for _, line := range r.TextLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// TextLines is the receipt body, one printed line per element.
func (r Receipt) TextLines() []string {
	storeName := r.Employee.StoreID()
	if storeName == "" {
		storeName = r.StoreID
	}
	lines := []string{
		"Recibo de venta",
		"Fecha: " + r.IssuedAt.Format("02/01/2006 15:04:05"),
		"Empleado: " + r.Employee.FullName(),
		"Tienda: " + storeName,
		"----------------------------------------",
		"Productos vendidos:",
	}
	for idx, l := range r.Lines {
		line := fmt.Sprintf("%d. %s | Cantidad: %d", idx+1, l.ModelName, l.Quantity)
		if l.UnitPrice != nil {
			line += " | $" + l.UnitPrice.String() + " c/u | $" + l.Subtotal.StringFixed(2)
		}
		lines = append(lines, line)
	}
	lines = append(lines,
		"----------------------------------------",
		"Total: $"+r.Total.StringFixed(2),
	)
	return lines
}
