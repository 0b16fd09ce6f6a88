package extract

import "testing"

func TestSKUListFormat(t *testing.T) {
	reg := DefaultRegistry()
	text := "AROMA FRAGRANCE MFG CO\n" +
		"SKU# 1562485 76,080 PCS USD 0.6580 USD 50,060.64\n" +
		"SKU# 1562486 1,200 PCS USD 1.2500 USD 1,500.00\n"

	f, ok := reg.Match(text)
	if !ok {
		t.Fatal("fingerprint did not match SKU list text")
	}
	if f.Name != "sku-list" {
		t.Fatalf("matched format %q", f.Name)
	}

	res := f.Extract(text)
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	r := res.Rows[0]
	if r.PartNumber != "1562485" {
		t.Errorf("part = %q, want 1562485", r.PartNumber)
	}
	if r.Quantity == nil || *r.Quantity != 76080 {
		t.Errorf("quantity = %v, want 76080", r.Quantity)
	}
	if r.UnitPrice == nil || !r.UnitPrice.Equal(dec("0.658")) {
		t.Errorf("unit price = %v, want 0.658", r.UnitPrice)
	}
	if r.TotalValue == nil || !r.TotalValue.Equal(dec("50060.64")) {
		t.Errorf("total = %v, want 50060.64", r.TotalValue)
	}
	if r.QtyUnit != "PCS" {
		t.Errorf("qty unit = %q, want PCS", r.QtyUnit)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}
}

func TestRegistryNoMatch(t *testing.T) {
	reg := DefaultRegistry()
	if _, ok := reg.Match("ordinary invoice text without fingerprints"); ok {
		t.Error("Match = true for text without any known fingerprint")
	}
}

func TestRegistryRegisterOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(FixedFormat{Name: "first", Fingerprint: func(string) bool { return true }})
	reg.Register(FixedFormat{Name: "second", Fingerprint: func(string) bool { return true }})

	f, ok := reg.Match("anything")
	if !ok || f.Name != "first" {
		t.Errorf("Match = %q, %v; want first format to win", f.Name, ok)
	}
}
