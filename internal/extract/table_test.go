package extract

import (
	"testing"

	"github.com/haulcraft/invoicemill/internal/document"
)

func TestMapHeader(t *testing.T) {
	cols := MapHeader([]string{"Item No.", "Description", "Qty", "Unit", "Unit Price", "Amount", "HTS Code"})

	want := map[string]int{"part": 0, "quantity": 2, "unit": 3, "unit_price": 4, "total": 5, "hts": 6}
	for field, idx := range want {
		if got, ok := cols[field]; !ok || got != idx {
			t.Errorf("cols[%q] = %d (%v), want %d", field, got, ok, idx)
		}
	}
	if _, ok := cols["part"]; !ok {
		t.Error("part column not mapped")
	}
}

func TestParseTable(t *testing.T) {
	tbl := document.Table{
		Page:   1,
		Header: []string{"Part No", "Qty", "UOM", "Amount"},
		Rows: [][]string{
			{"ABC-1001", "500", "PCS", "1,250.00"},
			{"", "", "", ""},
			{"XYZ-2002", "200", "KG", "840.50"},
			{"", "10", "PCS", "55.00"},
		},
	}

	items, warnings := ParseTable(tbl)

	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].PartNumber != "ABC-1001" || items[1].PartNumber != "XYZ-2002" {
		t.Errorf("parts = %q, %q", items[0].PartNumber, items[1].PartNumber)
	}
	if items[0].Quantity == nil || *items[0].Quantity != 500 {
		t.Errorf("qty = %v, want 500", items[0].Quantity)
	}
	if items[1].TotalValue == nil || !items[1].TotalValue.Equal(dec("840.50")) {
		t.Errorf("total = %v, want 840.50", items[1].TotalValue)
	}
	if items[1].QtyUnit != "KG" {
		t.Errorf("unit = %q, want KG", items[1].QtyUnit)
	}
	// the all-blank row is dropped silently; the blank-part row warns
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", warnings)
	}
}

func TestParseTableRejectsUnusableHeader(t *testing.T) {
	tbl := document.Table{
		Page:   2,
		Header: []string{"Description", "Remarks"},
		Rows:   [][]string{{"steel bracket", "rush order"}},
	}

	items, warnings := ParseTable(tbl)
	if items != nil {
		t.Fatalf("items = %v, want nil for header without part/value columns", items)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one rejection warning", warnings)
	}
}

func TestSelectTablePrefersMostRowsFirstWins(t *testing.T) {
	a := document.Table{Page: 1, Rows: make([][]string, 3)}
	b := document.Table{Page: 2, Rows: make([][]string, 7)}
	c := document.Table{Page: 3, Rows: make([][]string, 7)}

	best, ok := SelectTable([]document.Table{a, b, c})
	if !ok {
		t.Fatal("SelectTable returned no table")
	}
	if best.Page != 2 {
		t.Errorf("selected page %d, want 2 (earliest of the largest)", best.Page)
	}

	if _, ok := SelectTable(nil); ok {
		t.Error("SelectTable(nil) = ok")
	}
}

func TestDetectTextTables(t *testing.T) {
	page := document.Page{Number: 1, Text: "COMMERCIAL INVOICE\n" +
		"Supplier: Hengyang Metals\n" +
		"\n" +
		"Part No        Qty      Amount\n" +
		"ABC-1001       500      1,250.00\n" +
		"XYZ-2002       200      840.50\n" +
		"\n" +
		"Thank you for your business\n"}

	tables := DetectTextTables([]document.Page{page})
	if len(tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(tables))
	}
	tbl := tables[0]
	if len(tbl.Header) != 3 || tbl.Header[0] != "Part No" {
		t.Errorf("header = %v", tbl.Header)
	}
	if tbl.RowCount() != 2 {
		t.Errorf("rows = %d, want 2", tbl.RowCount())
	}
	if tbl.Rows[0][0] != "ABC-1001" || tbl.Rows[1][2] != "840.50" {
		t.Errorf("rows = %v", tbl.Rows)
	}
}
