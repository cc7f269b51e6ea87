package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	ErrYearNotFound = errors.New("no dashboard data for year")
	ErrNoData       = errors.New("dashboard data not available")
)

// Store classifications for the sales/inventory scatter.
const (
	ClassOverstock = "overstock"
	ClassLostSale  = "lost_sale"
	ClassStar      = "star"
)

// Coverage statuses.
const (
	CoverageOverstock = "overstock"
	CoverageLostSale  = "lost_sale"
	CoverageOptimal   = "optimal"
)

const (
	overstockInventory = 6_000_000
	overstockSales     = 2_000_000
	lostSaleSales      = 3_000_000

	maxCoverageDays = 90
	minCoverageDays = 28
)

// ClassifyStore places a store by yearly sales and inventory value.
func ClassifyStore(sales, inventory float64) string {
	switch {
	case inventory > overstockInventory && sales < overstockSales:
		return ClassOverstock
	case sales > lostSaleSales && inventory < overstockInventory:
		return ClassLostSale
	default:
		return ClassStar
	}
}

// CoverageStatus rates how many days of sales the inventory covers.
func CoverageStatus(days float64) string {
	switch {
	case days > maxCoverageDays:
		return CoverageOverstock
	case days < minCoverageDays:
		return CoverageLostSale
	default:
		return CoverageOptimal
	}
}

// Data is the precomputed analytics file, keyed by year label.
// It is read-only once parsed.
type Data struct {
	years map[string]json.RawMessage
}

// Load reads the analytics file at path.
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard data: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Data, error) {
	var years map[string]json.RawMessage
	if err := json.Unmarshal(raw, &years); err != nil {
		return nil, fmt.Errorf("failed to parse dashboard data: %w", err)
	}
	return &Data{years: years}, nil
}

// Years lists the available year labels, newest first.
func (d *Data) Years() []string {
	if d == nil {
		return []string{}
	}
	out := make([]string, 0, len(d.years))
	for y := range d.years {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Year returns the payload for year exactly as stored.
func (d *Data) Year(year string) (json.RawMessage, error) {
	if d == nil {
		return nil, ErrNoData
	}
	raw, ok := d.years[year]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrYearNotFound, year)
	}
	return raw, nil
}

// StorePoint is one store on the sales/inventory scatter.
type StorePoint struct {
	Store     string  `json:"TIENDA"`
	Sales     float64 `json:"ventas"`
	Inventory float64 `json:"inventario"`
	Class     string  `json:"clase"`
}

// CoverageRow is a coverage table row, by store or by business unit.
type CoverageRow struct {
	Store        string  `json:"tienda,omitempty"`
	Category     string  `json:"categoria,omitempty"`
	Rotation     float64 `json:"rotacion"`
	CoverageDays float64 `json:"dias_cobertura"`
	Status       string  `json:"estado"`
}

type Benchmark struct {
	TotalStores     int `json:"totalTiendas"`
	OutOfRange      int `json:"tiendasFueraRango"`
	OverstockStores int `json:"tiendasSobreinventariadas"`
	LostSaleStores  int `json:"tiendasConVentaPerdida"`
}

// Analysis is what the dashboard derives from a year's payload.
type Analysis struct {
	Year             string         `json:"year"`
	Stores           []StorePoint   `json:"paradoja"`
	CoverageByStore  []CoverageRow  `json:"coberturaTienda"`
	CoverageByUnit   []CoverageRow  `json:"coberturaBU"`
	StoreBenchmark   Benchmark      `json:"benchmark"`
	ClassifiedTotals map[string]int `json:"clasificacion"`
}

// sectionKeys are the payload keys each derived section is read from.
var sectionKeys = struct {
	stores, byStore, byUnit []string
}{
	stores:  []string{"paradoja", "paradox", "ventasVsInventario"},
	byStore: []string{"coberturaTienda", "coberturaPorTienda", "coverageByStore"},
	byUnit:  []string{"coberturaBU", "coberturaPorBU", "coverageByBU"},
}

// Analyze classifies the stores and coverage rows found in a year's payload.
// Sections the payload lacks stay empty.
func (d *Data) Analyze(year string) (*Analysis, error) {
	raw, err := d.Year(year)
	if err != nil {
		return nil, err
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("dashboard year %s is not an object: %w", year, err)
	}

	a := &Analysis{
		Year:             year,
		Stores:           []StorePoint{},
		CoverageByStore:  []CoverageRow{},
		CoverageByUnit:   []CoverageRow{},
		ClassifiedTotals: map[string]int{ClassOverstock: 0, ClassLostSale: 0, ClassStar: 0},
	}

	if err := decodeSection(sections, sectionKeys.stores, &a.Stores); err != nil {
		return nil, err
	}
	for i := range a.Stores {
		a.Stores[i].Class = ClassifyStore(a.Stores[i].Sales, a.Stores[i].Inventory)
		a.ClassifiedTotals[a.Stores[i].Class]++
	}

	if err := decodeSection(sections, sectionKeys.byStore, &a.CoverageByStore); err != nil {
		return nil, err
	}
	if err := decodeSection(sections, sectionKeys.byUnit, &a.CoverageByUnit); err != nil {
		return nil, err
	}
	rateCoverage(a.CoverageByUnit)
	a.StoreBenchmark = rateCoverage(a.CoverageByStore)

	return a, nil
}

func rateCoverage(rows []CoverageRow) Benchmark {
	b := Benchmark{TotalStores: len(rows)}
	for i := range rows {
		rows[i].Status = CoverageStatus(rows[i].CoverageDays)
		switch rows[i].Status {
		case CoverageOverstock:
			b.OverstockStores++
			b.OutOfRange++
		case CoverageLostSale:
			b.LostSaleStores++
			b.OutOfRange++
		}
	}
	return b
}

func decodeSection[T any](sections map[string]json.RawMessage, keys []string, out *[]T) error {
	for _, key := range keys {
		raw, ok := sections[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode dashboard section %s: %w", key, err)
		}
		return nil
	}
	return nil
}
