package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/haulcraft/invoicemill/constants"
	"github.com/haulcraft/invoicemill/internal/common"
	"github.com/haulcraft/invoicemill/internal/document"
	"github.com/haulcraft/invoicemill/internal/export"
	"github.com/haulcraft/invoicemill/internal/extract"
	"github.com/haulcraft/invoicemill/internal/ocr"
	"github.com/haulcraft/invoicemill/internal/parts"
	"github.com/haulcraft/invoicemill/internal/pipeline"
	"github.com/haulcraft/invoicemill/internal/tariff"
	"github.com/haulcraft/invoicemill/internal/template"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir       = flag.String("dir", "", "directory of invoice files to process (required)")
		out       = flag.String("out", "", "output XLSX file path (defaults to <dir>/../entries.xlsx)")
		cfgPath   = flag.String("config", "", "YAML config file overlaying environment settings")
		netWeight = flag.Float64("net-weight", 0, "invoice net weight in kg to distribute across items")
		mid       = flag.String("mid", "", "manufacturer identification code")
		supplier  = flag.String("supplier", "", "supplier template name (defaults to the built-in template)")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "entries.xlsx")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *cfgPath != "" {
		loaded, err := common.LoadConfigFile(*cfgPath)
		if err != nil {
			logger.Error("failed to load config file", "path", *cfgPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Tariff and parts data share one SQLite database.
	var classify tariff.ClassifyFunc
	var partsLookup parts.Lookup
	if cfg.Tariff.DatabasePath != "" {
		db, err := tariff.OpenDB(cfg.Tariff.DatabasePath)
		if err != nil {
			logger.Error("failed to open tariff database", "path", cfg.Tariff.DatabasePath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		lookup, err := tariff.LoadFromDB(db, cfg.Tariff.TariffTable, logger)
		if err != nil {
			logger.Error("failed to load tariff table", "table", cfg.Tariff.TariffTable, "error", err)
			os.Exit(1)
		}
		classify = lookup.Classify
		logger.Info("tariff table loaded", "records", lookup.Len())

		repo, err := parts.NewSQLiteRepository(db, cfg.Tariff.PartsTable, logger)
		if err != nil {
			logger.Error("failed to load parts master", "table", cfg.Tariff.PartsTable, "error", err)
			os.Exit(1)
		}
		partsLookup = repo
		logger.Info("parts master loaded", "parts", repo.Len())
	} else {
		logger.Warn("no tariff database configured, all items will classify as non-qualifying")
		partsLookup = parts.LookupFunc(parts.DefaultProfile)
	}

	templates, err := template.NewStore(cfg.Templates.Dir, logger)
	if err != nil {
		logger.Error("failed to load templates", "dir", cfg.Templates.Dir, "error", err)
		os.Exit(1)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
	}, logger)

	loader := document.NewLoader(extractor, logger)
	dispatcher := extract.NewDispatcher(templates, extract.DefaultRegistry(), extractor, logger)
	pipe := pipeline.New(loader, dispatcher, partsLookup, classify, logger)

	paths, err := collectInvoices(*dir)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		printError("No invoice files found in %s\n", *dir)
		os.Exit(1)
	}
	logger.Info("starting batch", "dir", *dir, "files", len(paths), "workers", cfg.Batch.Workers)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("processing invoices"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var mu sync.Mutex
	results := make(map[string]*pipeline.ProcessingResult, len(paths))
	failures := 0
	queue := pipeline.NewBatchQueue(pipe, func(job pipeline.Job, result *pipeline.ProcessingResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures++
		} else {
			results[job.Path] = result
		}
		_ = bar.Add(1)
	}, logger, pipeline.WithWorkers(cfg.Batch.Workers))

	opts := pipeline.Options{MID: *mid, Supplier: *supplier, NetWeightKG: *netWeight}
	for _, path := range paths {
		if err := queue.Enqueue(ctx, pipeline.Job{Path: path, Options: opts}); err != nil {
			logger.Error("failed to enqueue", "path", path, "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	_ = bar.Finish()

	// workbook rows follow directory order, not completion order
	ordered := make([]*pipeline.ProcessingResult, 0, len(paths))
	warnings := 0
	for _, path := range paths {
		if res, ok := results[path]; ok {
			ordered = append(ordered, res)
			warnings += len(res.Warnings)
		}
	}

	if err := export.NewWriter(logger).Write(*out, ordered); err != nil {
		logger.Error("failed to write workbook", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"files", len(paths),
		"processed", len(ordered),
		"failures", failures,
		"warnings", warnings,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files processed: %d/%d\n", len(ordered), len(paths))
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Warnings: %d\n", warnings)
	fmt.Printf("- Output: %s\n", *out)
	if failures > 0 {
		os.Exit(1)
	}
}

// collectInvoices lists supported invoice files directly under dir.
func collectInvoices(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := constants.NormalizeExt(filepath.Ext(e.Name()))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			continue
		}
		if strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
