package extract

import (
	"regexp"
	"strings"
)

// FixedFormat describes a supplier whose invoice layout is rigid enough to
// extract with a single composite pattern instead of field pairing.
// Fingerprint decides applicability from the document text; Pattern captures
// part number, quantity, unit price, and total in one pass per line.
type FixedFormat struct {
	Name        string
	Fingerprint func(text string) bool
	Pattern     *regexp.Regexp
	QtyUnit     string
}

func (f FixedFormat) Extract(text string) Result {
	var res Result
	res.Kind = TextualDigital
	for _, m := range f.Pattern.FindAllStringSubmatch(text, -1) {
		item := RawLineItem{PartNumber: m[1], QtyUnit: f.QtyUnit, RawText: strings.TrimSpace(m[0])}
		if q, ok := parseCount(m[2]); ok {
			item.Quantity = &q
		}
		if u, ok := parseAmount(m[3]); ok {
			item.UnitPrice = &u
		}
		if t, ok := parseAmount(m[4]); ok {
			item.TotalValue = &t
		}
		res.Rows = append(res.Rows, item)
	}
	if len(res.Rows) > 0 {
		res.Confidence = 1.0
	}
	return res
}

// Registry holds the known fixed formats in match-priority order.
type Registry struct {
	formats []FixedFormat
}

func NewRegistry(formats ...FixedFormat) *Registry {
	return &Registry{formats: formats}
}

// Match returns the first format whose fingerprint accepts the text.
func (r *Registry) Match(text string) (FixedFormat, bool) {
	for _, f := range r.formats {
		if f.Fingerprint(text) {
			return f, true
		}
	}
	return FixedFormat{}, false
}

func (r *Registry) Register(f FixedFormat) {
	r.formats = append(r.formats, f)
}

// DefaultRegistry covers the fixed layouts seen in production. The SKU list
// format writes every line item as
//
//	SKU# <part> <qty> PCS USD <unit price> USD <total>
//
// with thousands separators in the quantity and total columns.
func DefaultRegistry() *Registry {
	skuList := FixedFormat{
		Name: "sku-list",
		Fingerprint: func(text string) bool {
			return strings.Contains(text, "SKU#")
		},
		Pattern: regexp.MustCompile(`SKU#\s*(\d+)\s+(\d+(?:,\d{3})*)\s+PCS\s+(?:USD\s+)?([\d.]+)\s+(?:USD\s+)?([\d,]+\.\d{2})`),
		QtyUnit: "PCS",
	}
	return NewRegistry(skuList)
}
