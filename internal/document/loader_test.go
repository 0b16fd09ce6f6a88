package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/haulcraft/invoicemill/internal/common"
	"github.com/haulcraft/invoicemill/internal/ocr"
)

func testLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoader(ocr.NewExtractor(ocr.Config{}, nil), nil)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inv.csv")
	content := "Part No,Qty,Amount\nABC-1001,500,1250.00\nXYZ-2002,200,840.50\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := testLoader(t).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(doc.Tables))
	}
	tbl := doc.Tables[0]
	if len(tbl.Header) != 3 || tbl.Header[0] != "Part No" {
		t.Errorf("header = %v", tbl.Header)
	}
	if tbl.RowCount() != 2 || tbl.Rows[1][2] != "840.50" {
		t.Errorf("rows = %v", tbl.Rows)
	}
	if !doc.HasEmbeddedText() {
		t.Error("csv document should carry a text rendering")
	}
}

func TestLoadCSVRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	content := "Part No,Qty,Amount\nABC-1001,500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := testLoader(t).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Tables[0].RowCount() != 1 {
		t.Errorf("rows = %v", doc.Tables[0].Rows)
	}
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inv.xlsx")
	f := excelize.NewFile()
	for i, row := range [][]interface{}{
		{"Part No", "Qty", "Amount"},
		{"ABC-1001", 500, 1250.00},
	} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("build sheet: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.Close()

	doc, err := testLoader(t).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(doc.Tables))
	}
	if doc.Tables[0].Header[0] != "Part No" || doc.Tables[0].Rows[0][0] != "ABC-1001" {
		t.Errorf("table = %+v", doc.Tables[0])
	}
	if doc.Format != "XLSX" {
		t.Errorf("format = %q", doc.Format)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := testLoader(t).Load(context.Background(), "notes.txt")
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
