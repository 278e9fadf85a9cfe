package ingest

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical metric field names after alias resolution.
const (
	FieldDate     = "date"
	FieldAmount   = "amount"
	FieldMargin   = "margin"
	FieldDiscount = "discount"
	FieldQuantity = "quantity"
)

// Canonical composite dimension names.
const (
	DimMarket   = "market"
	DimSegment  = "segment"
	DimCustomer = "customer"
	DimProduct  = "product"
)

// ErrEmptyFile is returned when the parsed table has no header row.
var ErrEmptyFile = errors.New("file has no header row")

// DimensionSpec names a composite dimension and the raw source columns that
// feed it, in priority order.
type DimensionSpec struct {
	Name       string
	Candidates []string
}

// Config is the immutable schema-mapping configuration of the normalizer.
type Config struct {
	// Aliases maps normalized raw headers to canonical metric fields.
	Aliases map[string]string
	// Dimensions lists the composite dimensions in canonical order.
	Dimensions []DimensionSpec
	// DateLayouts are tried in order for best-effort date parsing.
	DateLayouts []string
}

// DefaultConfig returns the alias and dimension tables for the sales exports
// this service ingests. Raw column names come from the ERP exports
// (Spanish headers) with plain-name fallbacks for hand-made CSVs.
func DefaultConfig() Config {
	return Config{
		Aliases: map[string]string{
			"t.añomes":   FieldDate,
			"fecha":      FieldDate,
			"venta":      FieldAmount,
			"ventas":     FieldAmount,
			"importe":    FieldAmount,
			"amount":     FieldAmount,
			"margen":     FieldMargin,
			"margin":     FieldMargin,
			"dto. medio": FieldDiscount,
			"dto medio":  FieldDiscount,
			"descuento":  FieldDiscount,
			"discount":   FieldDiscount,
			"cantidad":   FieldQuantity,
			"quantity":   FieldQuantity,
			"date":       FieldDate,
		},
		Dimensions: []DimensionSpec{
			{Name: DimMarket, Candidates: []string{"c.mercado", "c.sociedad", "c.pais", "c.area"}},
			{Name: DimSegment, Candidates: []string{"c.uen", "c.uen2", "c.segmento"}},
			{Name: DimCustomer, Candidates: []string{"c.representante", "c.cliente", "c.conb2b", "c.tramoactual", "cliente", "customer"}},
			{Name: DimProduct, Candidates: []string{"a.familia", "a.subfamilia", "a.articulotipo1", "a.descripcion", "a.tipo", "producto", "product"}},
		},
		DateLayouts: []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"02/01/2006",
			"2006/01/02",
			"02-01-2006",
			"2 Jan 2006",
			"2006-01",
			"200601",
		},
	}
}

// Record is one canonical, deduplicated sales row. A zero Date means the
// source date was missing or unparseable; empty dimension strings mean the
// dimension could not be derived for the row.
type Record struct {
	Date     time.Time
	Market   string
	Segment  string
	Customer string
	Product  string
	Amount   float64
	Margin   float64 // absolute currency units, never a raw percentage
	Discount float64 // fraction in [0,1]
	Quantity int64
}

// Table is the normalizer output: canonical records plus the resolved column
// list and any source headers that matched nothing.
type Table struct {
	Columns  []string
	Rows     []Record
	Unmapped []string
}

// MarginKind is the column-wide interpretation of a raw margin column.
type MarginKind int

const (
	MarginPercent MarginKind = iota
	MarginMoney
)

// ClassifyMarginColumn decides whether a raw margin column holds percentages
// or currency amounts by counting which interpretation parses more cells.
// The vote is column-wide; ties go to percent.
func ClassifyMarginColumn(cells []string) MarginKind {
	_, pctOK := PercentColumn(cells)
	_, eurOK := MoneyColumn(cells)
	pct, eur := 0, 0
	for i := range cells {
		if pctOK[i] {
			pct++
		}
		if eurOK[i] {
			eur++
		}
	}
	if pct >= eur {
		return MarginPercent
	}
	return MarginMoney
}

// Normalize turns a raw parsed table (header row + data rows) into the
// canonical sales table: aliases resolved, dimensions composed, metrics
// coerced, duplicates within the file summed with an amount-weighted
// discount. Malformed cells default to zero/missing and never abort the row.
func Normalize(records [][]string, cfg Config) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	headers := normalizeHeaders(records[0])
	dataRows := records[1:]

	// first occurrence wins for duplicated headers
	headerIdx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := headerIdx[h]; !seen && h != "" {
			headerIdx[h] = i
		}
	}

	// resolve canonical metric columns through the alias table
	metricIdx := make(map[string]int)
	consumed := make(map[string]bool)
	for h, i := range headerIdx {
		canon, ok := cfg.Aliases[h]
		if !ok {
			continue
		}
		consumed[h] = true
		if _, dup := metricIdx[canon]; !dup {
			metricIdx[canon] = i
		}
	}

	// dimensions present in this file
	type boundDim struct {
		name       string
		candidates []string
	}
	var dims []boundDim
	for _, spec := range cfg.Dimensions {
		var present []string
		for _, c := range spec.Candidates {
			if _, ok := headerIdx[c]; ok {
				present = append(present, c)
				consumed[c] = true
			}
		}
		if len(present) > 0 {
			dims = append(dims, boundDim{name: spec.Name, candidates: present})
		}
	}

	var unmapped []string
	for _, h := range headers {
		if h != "" && !consumed[h] {
			unmapped = append(unmapped, h)
		}
	}

	cell := func(row []string, idx int) string {
		if idx < len(row) {
			return row[idx]
		}
		return ""
	}

	// column-wide margin interpretation
	marginCol, hasMargin := metricIdx[FieldMargin]
	marginAsPercent := false
	if hasMargin {
		cells := make([]string, len(dataRows))
		for i, row := range dataRows {
			cells[i] = cell(row, marginCol)
		}
		marginAsPercent = ClassifyMarginColumn(cells) == MarginPercent
	}

	_, hasDate := metricIdx[FieldDate]
	_, hasDiscount := metricIdx[FieldDiscount]
	_, hasQuantity := metricIdx[FieldQuantity]

	recs := make([]Record, 0, len(dataRows))
	for _, row := range dataRows {
		var rec Record
		if hasDate {
			rec.Date = parseDate(cell(row, metricIdx[FieldDate]), cfg.DateLayouts)
		}
		rowByHeader := make(map[string]string, len(headerIdx))
		for h, i := range headerIdx {
			rowByHeader[h] = cell(row, i)
		}
		for _, d := range dims {
			if v, ok := ComposeDimension(rowByHeader, d.candidates); ok {
				rec.setDimension(d.name, v)
			}
		}
		if i, ok := metricIdx[FieldAmount]; ok {
			if v, ok := CoerceMoney(cell(row, i)); ok {
				rec.Amount = v
			}
		}
		if hasMargin {
			raw := cell(row, marginCol)
			if marginAsPercent {
				if frac, ok := CoercePercent(raw); ok {
					rec.Margin = rec.Amount * frac
				}
			} else if v, ok := CoerceMoney(raw); ok {
				rec.Margin = v
			}
		}
		if hasDiscount {
			if v, ok := CoercePercent(cell(row, metricIdx[FieldDiscount])); ok {
				rec.Discount = v
			}
		}
		if hasQuantity {
			if v, ok := CoerceMoney(cell(row, metricIdx[FieldQuantity])); ok && v > 0 {
				rec.Quantity = int64(v)
			}
		}
		recs = append(recs, rec)
	}

	dimNames := make([]string, len(dims))
	for i, d := range dims {
		dimNames[i] = d.name
	}
	recs = aggregate(recs, hasDate, dimNames)

	cols := make([]string, 0, 9)
	if hasDate {
		cols = append(cols, FieldDate)
	}
	cols = append(cols, dimNames...)
	cols = append(cols, FieldAmount, FieldMargin)
	if hasQuantity {
		cols = append(cols, FieldQuantity)
	}
	if hasDiscount {
		cols = append(cols, FieldDiscount)
	}

	return &Table{Columns: cols, Rows: recs, Unmapped: unmapped}, nil
}

func (r *Record) setDimension(name, value string) {
	switch name {
	case DimMarket:
		r.Market = value
	case DimSegment:
		r.Segment = value
	case DimCustomer:
		r.Customer = value
	case DimProduct:
		r.Product = value
	}
}

func (r *Record) dimension(name string) string {
	switch name {
	case DimMarket:
		return r.Market
	case DimSegment:
		return r.Segment
	case DimCustomer:
		return r.Customer
	case DimProduct:
		return r.Product
	}
	return ""
}

func normalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		h = strings.Trim(h, ", \t\n\r")
		h = strings.Trim(h, "'\"`")
		out[i] = strings.ToLower(h)
	}
	return out
}

func parseDate(raw string, layouts []string) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// aggregate sums amount, margin and quantity per unique group key and
// computes the amount-weighted discount within each group. Group order is
// the first-encounter order of keys.
func aggregate(recs []Record, useDate bool, dims []string) []Record {
	type acc struct {
		rec        Record
		amount     decimal.Decimal
		margin     decimal.Decimal
		discWeight decimal.Decimal
		quantity   int64
	}
	var order []string
	groups := make(map[string]*acc)

	for _, r := range recs {
		var key strings.Builder
		if useDate {
			if !r.Date.IsZero() {
				key.WriteString(r.Date.Format("2006-01-02"))
			}
			key.WriteByte(0x1f)
		}
		for _, d := range dims {
			key.WriteString(r.dimension(d))
			key.WriteByte(0x1f)
		}
		k := key.String()
		g, ok := groups[k]
		if !ok {
			g = &acc{rec: r}
			groups[k] = g
			order = append(order, k)
		}
		amt := decimal.NewFromFloat(r.Amount)
		g.amount = g.amount.Add(amt)
		g.margin = g.margin.Add(decimal.NewFromFloat(r.Margin))
		g.discWeight = g.discWeight.Add(decimal.NewFromFloat(r.Discount).Mul(amt))
		g.quantity += r.Quantity
	}

	out := make([]Record, 0, len(order))
	for _, k := range order {
		g := groups[k]
		rec := g.rec
		rec.Amount = g.amount.InexactFloat64()
		rec.Margin = g.margin.InexactFloat64()
		rec.Quantity = g.quantity
		if g.amount.IsZero() {
			rec.Discount = 0
		} else {
			rec.Discount = g.discWeight.Div(g.amount).InexactFloat64()
		}
		out = append(out, rec)
	}
	return out
}
