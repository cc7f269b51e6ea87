package sale

import (
	"bytes"
	"fmt"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/go-pdf/fpdf"
)

// Renderer turns a receipt into a downloadable document.
type Renderer interface {
	Render(r domain.Receipt) ([]byte, error)
	ContentType() string
}

// PDFRenderer lays the receipt out on an A4 page.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string {
	return "application/pdf"
}

func (PDFRenderer) Render(r domain.Receipt) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Recibo de venta", true)
	pdf.SetCreator("go_pos", true)
	pdf.SetCreationDate(r.IssuedAt)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	lines := r.TextLines()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(lines[0]), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	last := len(lines) - 1
	for _, line := range lines[1:last] {
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(lines[last]), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}

// TextRenderer emits the plain-text receipt.
type TextRenderer struct{}

func (TextRenderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

func (TextRenderer) Render(r domain.Receipt) ([]byte, error) {
	return []byte(r.Text()), nil
}
