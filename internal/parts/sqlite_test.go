package parts

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/haulcraft/invoicemill/constants"
)

func setupPartsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		`CREATE TABLE parts_master (
			part_number TEXT, hts_code TEXT, qty_unit TEXT,
			steel_ratio REAL, aluminum_ratio REAL, copper_ratio REAL,
			wood_ratio REAL, auto_ratio REAL, non_steel_ratio REAL,
			country_of_melt TEXT, country_of_cast TEXT, country_of_smelt TEXT
		)`,
		`INSERT INTO parts_master VALUES
			('AB-100', '7208.10.0000', 'KG', 60, 40, 0, 0, 0, 0, 'CN', 'CN', ''),
			('cd-200', '7606.11.30', 'NO/KG', 0, 100, 0, 0, 0, 0, '', '', 'DE'),
			('EF-300', '', 'NO', 0, 0, 0, 0, 0, 100, '', '', '')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}
	return db
}

func TestLookupProfile(t *testing.T) {
	db := setupPartsDB(t)
	repo, err := NewSQLiteRepository(db, "parts_master", nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	if repo.Len() != 3 {
		t.Fatalf("loaded %d parts, want 3", repo.Len())
	}

	p := repo.LookupProfile("AB-100")
	if !p.Found {
		t.Fatal("AB-100 should be found")
	}
	if p.Ratios[constants.Steel] != 60 || p.Ratios[constants.Aluminum] != 40 {
		t.Errorf("AB-100 ratios = %v, want Steel:60 Aluminum:40", p.Ratios)
	}
	if p.QtyUnit != "KG" || p.CountryOfMelt != "CN" {
		t.Errorf("AB-100 metadata = unit %q melt %q", p.QtyUnit, p.CountryOfMelt)
	}
	if got := p.RatioSum(); got != 100 {
		t.Errorf("RatioSum = %v, want 100", got)
	}

	// lookup is case-insensitive on part number
	if p := repo.LookupProfile("CD-200"); !p.Found || p.Ratios[constants.Aluminum] != 100 {
		t.Errorf("CD-200 = %+v, want found 100%% aluminum", p)
	}
}

func TestLookupProfileNotFound(t *testing.T) {
	db := setupPartsDB(t)
	repo, err := NewSQLiteRepository(db, "parts_master", nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}

	p := repo.LookupProfile("ZZ-999")
	if p.Found {
		t.Fatal("unknown part should not be marked found")
	}
	if p.Ratios[constants.NonQualifying] != 100 {
		t.Errorf("default profile ratios = %v, want 100%% non-qualifying", p.Ratios)
	}
	if p.PartNumber != "ZZ-999" {
		t.Errorf("default profile keeps the queried part number, got %q", p.PartNumber)
	}
}

func TestPut(t *testing.T) {
	db := setupPartsDB(t)
	repo, err := NewSQLiteRepository(db, "parts_master", nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}

	repo.Put(Profile{
		PartNumber: "gh-400",
		Ratios:     map[constants.Material]float64{constants.Wood: 100},
	})
	p := repo.LookupProfile("GH-400")
	if !p.Found || p.Ratios[constants.Wood] != 100 {
		t.Errorf("corrected profile not served: %+v", p)
	}
}
