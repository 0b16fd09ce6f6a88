package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/haulcraft/invoicemill/constants"
	"github.com/haulcraft/invoicemill/internal/document"
	"github.com/haulcraft/invoicemill/internal/extract"
	"github.com/haulcraft/invoicemill/internal/ocr"
	"github.com/haulcraft/invoicemill/internal/parts"
	"github.com/haulcraft/invoicemill/internal/tariff"
	"github.com/haulcraft/invoicemill/internal/template"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func testProfiles() parts.Lookup {
	profiles := map[string]parts.Profile{
		"ABC-1001": {
			PartNumber: "ABC-1001",
			HTSCode:    "7326.90.86",
			QtyUnit:    "KG",
			Ratios: map[constants.Material]float64{
				constants.Steel:         60,
				constants.NonQualifying: 40,
			},
			Found: true,
		},
		"XYZ-2002": {
			PartNumber: "XYZ-2002",
			HTSCode:    "7616.99.51",
			QtyUnit:    "KG",
			Ratios: map[constants.Material]float64{
				constants.Aluminum: 100,
			},
			CountryOfSmelt: "CN",
			Found:          true,
		},
	}
	return parts.LookupFunc(func(partNumber string) parts.Profile {
		if p, ok := profiles[partNumber]; ok {
			return p
		}
		return parts.DefaultProfile(partNumber)
	})
}

func testClassify() tariff.ClassifyFunc {
	lookup := tariff.NewLookup([]tariff.Record{
		{HTSCode: "7326908600", Material: constants.Steel, DeclarationCode: "08"},
		{HTSCode: "7616995100", Material: constants.Aluminum, DeclarationCode: "07", SmeltFlag: true},
	})
	return lookup.Classify
}

func setupPipeline(t *testing.T) *Pipeline {
	t.Helper()
	loader := document.NewLoader(ocr.NewExtractor(ocr.Config{}, nil), nil)
	store, err := template.NewStore("", nil)
	if err != nil {
		t.Fatalf("template store: %v", err)
	}
	dispatcher := extract.NewDispatcher(store, extract.DefaultRegistry(), nil, nil)
	return New(loader, dispatcher, testProfiles(), testClassify(), nil)
}

func TestProcessDistributesWeightByValue(t *testing.T) {
	// two items worth 300 and 700 against 100 kg net weight
	csv := "Part No,Qty,Unit,Amount\n" +
		"ABC-1001,30,KG,300.00\n" +
		"XYZ-2002,70,KG,700.00\n"
	p := setupPipeline(t)

	res, err := p.Process(context.Background(), writeCSV(t, csv), Options{
		MID: "CNHEN123SHA", NetWeightKG: 100,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if res.OriginalRowCount != 2 {
		t.Fatalf("original rows = %d, want 2", res.OriginalRowCount)
	}
	// ABC-1001 splits 60/40, XYZ-2002 stays whole
	if res.ExpandedRowCount != 3 {
		t.Fatalf("expanded rows = %d, want 3 (warnings: %v)", res.ExpandedRowCount, res.Warnings)
	}

	var abcWeight, xyzWeight float64
	for _, r := range res.Rows {
		switch r.PartNumber {
		case "ABC-1001":
			abcWeight += r.WeightKG
		case "XYZ-2002":
			xyzWeight += r.WeightKG
		}
	}
	if math.Abs(abcWeight-30) > 1e-9 {
		t.Errorf("ABC-1001 weight = %v, want exactly 30", abcWeight)
	}
	if math.Abs(xyzWeight-70) > 1e-9 {
		t.Errorf("XYZ-2002 weight = %v, want exactly 70", xyzWeight)
	}
}

func TestProcessConservesTotals(t *testing.T) {
	csv := "Part No,Qty,Unit,Amount\n" +
		"ABC-1001,10,KG,123.45\n" +
		"XYZ-2002,20,KG,678.90\n" +
		"UNKNOWN-9,5,KG,50.00\n"
	p := setupPipeline(t)

	res, err := p.Process(context.Background(), writeCSV(t, csv), Options{
		MID: "CNHEN123SHA", NetWeightKG: 250,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !res.TotalValue.Equal(dec("852.35")) {
		t.Errorf("total value = %s, want 852.35", res.TotalValue)
	}
	if math.Abs(res.TotalWeightKG-250) > 1e-9 {
		t.Errorf("total weight = %v, want exactly 250", res.TotalWeightKG)
	}
	// UNKNOWN-9 missing from the parts master must be flagged
	found := false
	for _, w := range res.Warnings {
		if w == "part UNKNOWN-9 not in parts master, treated as non-qualifying" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want missing-part warning", res.Warnings)
	}
}

func TestProcessDiscardsUnusableRows(t *testing.T) {
	csv := "Part No,Qty,Unit,Amount\n" +
		"ABC-1001,10,KG,100.00\n" +
		",5,KG,\n"
	p := setupPipeline(t)

	res, err := p.Process(context.Background(), writeCSV(t, csv), Options{NetWeightKG: 10})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.OriginalRowCount != 1 {
		t.Errorf("original rows = %d, want 1", res.OriginalRowCount)
	}
	if len(res.Warnings) == 0 {
		t.Error("discarded row produced no warning")
	}
}

func TestProcessEmptyInvoice(t *testing.T) {
	p := setupPipeline(t)
	res, err := p.Process(context.Background(), writeCSV(t, "Part No,Qty,Unit,Amount\n"), Options{NetWeightKG: 10})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.ExpandedRowCount != 0 || len(res.Rows) != 0 {
		t.Errorf("rows = %d, want 0", res.ExpandedRowCount)
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
}

func TestBatchQueueProcessesAllJobs(t *testing.T) {
	p := setupPipeline(t)
	csv := "Part No,Qty,Unit,Amount\nABC-1001,10,KG,100.00\n"

	var mu sync.Mutex
	done := map[string]bool{}
	q := NewBatchQueue(p, func(job Job, result *ProcessingResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		done[job.Path] = err == nil && result != nil
	}, nil, WithWorkers(2), WithQueueSize(8), WithJobTimeout(30*time.Second))

	var paths []string
	for i := 0; i < 5; i++ {
		path := writeCSV(t, csv)
		paths = append(paths, path)
		if err := q.Enqueue(context.Background(), Job{Path: path, Options: Options{NetWeightKG: 10}}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	for _, path := range paths {
		if !done[path] {
			t.Errorf("job %s did not complete cleanly", path)
		}
	}
}

func TestBatchQueueEnqueueAfterShutdown(t *testing.T) {
	p := setupPipeline(t)
	q := NewBatchQueue(p, nil, nil, WithWorkers(1))
	q.Shutdown(context.Background())

	// must not panic on the closed channel
	if err := q.Enqueue(context.Background(), Job{Path: "late.csv"}); err != nil {
		t.Fatalf("enqueue after shutdown: %v", err)
	}
}
