package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/haulcraft/invoicemill/internal/document"
)

// Header synonyms map supplier column labels onto canonical fields.
// Order matters for columns whose labels overlap ("unit price" vs "unit").
var headerSynonyms = []struct {
	field string
	re    *regexp.Regexp
}{
	{"hts", regexp.MustCompile(`(?i)\b(hts|hs\s*code|tariff)\b`)},
	{"unit_price", regexp.MustCompile(`(?i)(unit\s*price|u/p|price\s*/\s*unit)`)},
	{"total", regexp.MustCompile(`(?i)\b(amount|total|value|ext(ended)?\.?\s*price)\b`)},
	{"quantity", regexp.MustCompile(`(?i)\b(qty|quantity|pcs|pieces)\b`)},
	{"unit", regexp.MustCompile(`(?i)\b(unit|uom|u/m)\b`)},
	{"part", regexp.MustCompile(`(?i)\b(part|item|model|sku|material|product|art(icle)?|p/n)\b`)},
}

// MapHeader assigns each column index to a canonical field. The first
// matching synonym wins per column; the first matching column wins per field.
func MapHeader(header []string) map[string]int {
	cols := make(map[string]int)
	for i, label := range header {
		for _, syn := range headerSynonyms {
			if !syn.re.MatchString(label) {
				continue
			}
			if _, taken := cols[syn.field]; !taken {
				cols[syn.field] = i
			}
			break
		}
	}
	return cols
}

// ParseTable converts one materialized table into line items. Tables whose
// header lacks a part column and any value-bearing column are rejected with
// a warning. All-empty rows are dropped silently.
func ParseTable(t document.Table) ([]RawLineItem, []string) {
	cols := MapHeader(t.Header)
	var warnings []string

	partCol, hasPart := cols["part"]
	_, hasTotal := cols["total"]
	_, hasUnit := cols["unit_price"]
	if !hasPart || (!hasTotal && !hasUnit) {
		return nil, []string{fmt.Sprintf(
			"table on page %d: header %v has no usable part/value columns", t.Page, t.Header)}
	}

	var items []RawLineItem
	for n, row := range t.Rows {
		if allBlank(row) {
			continue
		}
		part := strings.TrimSpace(cell(row, partCol))
		if part == "" {
			warnings = append(warnings, fmt.Sprintf("table on page %d row %d: blank part number", t.Page, n+1))
			continue
		}
		item := RawLineItem{PartNumber: part, RawText: strings.Join(row, "\t")}
		if c, ok := cols["quantity"]; ok {
			if q, okc := parseCount(cell(row, c)); okc {
				item.Quantity = &q
			}
		}
		if c, ok := cols["unit_price"]; ok {
			if u, okp := parseAmount(cell(row, c)); okp {
				item.UnitPrice = &u
			}
		}
		if c, ok := cols["total"]; ok {
			if v, okp := parseAmount(cell(row, c)); okp {
				item.TotalValue = &v
			}
		}
		if c, ok := cols["hts"]; ok {
			item.HTSCode = strings.TrimSpace(cell(row, c))
		}
		if c, ok := cols["unit"]; ok {
			item.QtyUnit = strings.TrimSpace(cell(row, c))
		}
		items = append(items, item)
	}
	return items, warnings
}

// SelectTable picks the table with the most data rows. Ties keep the
// earliest table in document order, so repeated runs agree.
func SelectTable(tables []document.Table) (document.Table, bool) {
	if len(tables) == 0 {
		return document.Table{}, false
	}
	best := tables[0]
	for _, t := range tables[1:] {
		if t.RowCount() > best.RowCount() {
			best = t
		}
	}
	return best, true
}

var reColumnGap = regexp.MustCompile(`\s{2,}`)

// DetectTextTables finds column-aligned regions in layout-preserving page
// text. A run of consecutive lines that split into the same number of cells
// (three or more columns, two or more lines) is treated as a table with the
// first line as header.
func DetectTextTables(pages []document.Page) []document.Table {
	var tables []document.Table
	for _, p := range pages {
		lines := strings.Split(p.Text, "\n")
		var run [][]string
		width := 0
		flush := func() {
			if len(run) >= 2 && width >= 3 {
				tables = append(tables, document.Table{
					Page:   p.Number,
					Header: run[0],
					Rows:   run[1:],
				})
			}
			run = nil
			width = 0
		}
		for _, line := range lines {
			cells := splitColumns(line)
			if len(cells) < 3 {
				flush()
				continue
			}
			if len(cells) != width {
				flush()
				width = len(cells)
			}
			run = append(run, cells)
		}
		flush()
	}
	return tables
}

func splitColumns(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	return reColumnGap.Split(trimmed, -1)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func allBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
