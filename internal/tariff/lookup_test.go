package tariff

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/haulcraft/invoicemill/constants"
)

func testLookup() *Lookup {
	return NewLookup([]Record{
		{HTSCode: "7208.10.0000", Material: constants.Steel, DeclarationCode: "08"},
		{HTSCode: "7606.11.30", Material: constants.Aluminum, DeclarationCode: "07", SmeltFlag: true},
		{HTSCode: "7407.10.1500", Material: constants.Copper, DeclarationCode: "11", SmeltFlag: true},
	})
}

func TestNormalizeHTS(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"7208.10.0000", "7208100000"},
		{"7206.10.00", "72061000"},
		{" 7407-10-15 ", "74071015"},
		{"", ""},
		{"no digits", ""},
	}
	for _, tt := range tests {
		if got := NormalizeHTS(tt.input); got != tt.want {
			t.Errorf("NormalizeHTS(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	l := testLookup()

	tests := []struct {
		name     string
		code     string
		wantOK   bool
		material constants.Material
	}{
		{name: "exact 10-digit", code: "7208.10.0000", wantOK: true, material: constants.Steel},
		{name: "dotted vs bare", code: "7208100000", wantOK: true, material: constants.Steel},
		{name: "8-digit entry matched by 10-digit code", code: "7606.11.3060", wantOK: true, material: constants.Aluminum},
		{name: "8-digit code against 8-digit entry", code: "76061130", wantOK: true, material: constants.Aluminum},
		{name: "unknown code is non-qualifying, not an error", code: "7206.10.00", wantOK: false},
		{name: "empty code", code: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := l.Classify(tt.code)
			if ok != tt.wantOK {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.code, ok, tt.wantOK)
			}
			if ok && rec.Material != tt.material {
				t.Errorf("Classify(%q) material = %v, want %v", tt.code, rec.Material, tt.material)
			}
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	l := testLookup()
	first, ok1 := l.Classify("7407.10.1500")
	second, ok2 := l.Classify("7407.10.1500")
	if ok1 != ok2 || first != second {
		t.Errorf("repeated lookups disagree: (%v,%v) vs (%v,%v)", first, ok1, second, ok2)
	}
	if l.Len() != 3 {
		t.Errorf("lookup mutated by Classify: len = %d, want 3", l.Len())
	}
}

func TestParseDeclarationCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"08 - Steel derivative article", "08"},
		{"07", "07"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseDeclarationCode(tt.input); got != tt.want {
			t.Errorf("parseDeclarationCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func setupTariffDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		`CREATE TABLE tariff_232 (hts_code TEXT, material TEXT, declaration_required TEXT)`,
		`INSERT INTO tariff_232 VALUES ('7208.10.0000', 'Steel', '08 - Steel derivative')`,
		`INSERT INTO tariff_232 VALUES ('7606.11.30', 'Aluminum', '07')`,
		`INSERT INTO tariff_232 VALUES ('9999.99.99', 'Plastic', '')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return db
}

func TestLoadFromDB(t *testing.T) {
	db := setupTariffDB(t)

	l, err := LoadFromDB(db, "tariff_232", nil)
	if err != nil {
		t.Fatalf("LoadFromDB: %v", err)
	}
	// the Plastic row has no recognized material and is skipped
	if l.Len() != 2 {
		t.Fatalf("loaded %d codes, want 2", l.Len())
	}

	rec, ok := l.Classify("7208.10.0000")
	if !ok {
		t.Fatal("expected steel code to resolve")
	}
	if rec.DeclarationCode != "08" {
		t.Errorf("declaration code = %q, want %q", rec.DeclarationCode, "08")
	}
	if rec.SmeltFlag {
		t.Error("steel should not carry the smelt flag")
	}

	rec, ok = l.Classify("7606.11.3060")
	if !ok || !rec.SmeltFlag {
		t.Errorf("aluminum record = (%+v, %v), want smelt flag set", rec, ok)
	}
}
