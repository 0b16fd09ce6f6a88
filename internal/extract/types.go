// Package extract turns raw invoice documents into line items. It hosts the
// strategy dispatcher, the table parser, the template-driven field extractor,
// and the fixed-format registry for suppliers with rigid layouts.
package extract

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DocumentKind is the extraction strategy selected for a document.
// It is derived per extraction call, never stored.
type DocumentKind string

const (
	TabularDigital DocumentKind = "tabular-digital"
	TextualDigital DocumentKind = "textual-digital"
	Scanned        DocumentKind = "scanned"
)

// RawLineItem is extractor output before classification and expansion.
// A row is usable once it carries a part number and at least one
// value-bearing field; anything else is kept only as raw text.
type RawLineItem struct {
	PartNumber string
	Quantity   *float64
	UnitPrice  *decimal.Decimal
	TotalValue *decimal.Decimal
	HTSCode    string
	QtyUnit    string
	RawText    string
}

// Usable reports whether the row can enter classification: part number plus
// at least one of quantity, unit price, or total value.
func (r RawLineItem) Usable() bool {
	if strings.TrimSpace(r.PartNumber) == "" {
		return false
	}
	return r.Quantity != nil || r.UnitPrice != nil || r.TotalValue != nil
}

// Value resolves the line value: the stated total when present, otherwise
// quantity times unit price. The bool is false when neither is derivable.
func (r RawLineItem) Value() (decimal.Decimal, bool) {
	if r.TotalValue != nil {
		return *r.TotalValue, true
	}
	if r.Quantity != nil && r.UnitPrice != nil {
		return r.UnitPrice.Mul(decimal.NewFromFloat(*r.Quantity)), true
	}
	return decimal.Zero, false
}

// Result is the dispatcher output for one document.
type Result struct {
	Rows       []RawLineItem
	Kind       DocumentKind
	Confidence float32
	Warnings   []string
}
