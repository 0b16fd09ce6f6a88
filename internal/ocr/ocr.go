// Package ocr converts invoice pages to plain text, either by reading
// embedded text (pdftotext) or by rasterizing a page and running optical
// character recognition (pdftoppm + tesseract). External binaries run behind
// the Runner interface so tests can stub them.
package ocr

import (
	"context"
	"log/slog"
	"time"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 150
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

type ExtractionResult struct {
	Text       string
	Pages      int
	Method     string // "pdf-text" | "pdf-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner. Intended for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// EmbeddedText reads the text layer of a PDF via pdftotext. Pages are
// separated by form feeds in the output.
func (e *Extractor) EmbeddedText(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	text, pages, warns, err := e.pdfToText(ctx, path)
	res := ExtractionResult{
		Text:     text,
		Pages:    pages,
		Method:   "pdf-text",
		Language: e.cfg.TesseractLang,
		Duration: time.Since(start),
		Warnings: warns,
	}
	if err != nil {
		return res, err
	}
	res.Confidence = 1.0
	return res, nil
}

// RecognizeFirstPage rasterizes the first page of a scanned PDF and runs OCR
// on it. Invoice line items live on the first page for the supported
// suppliers; later pages carry packing detail.
func (e *Extractor) RecognizeFirstPage(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	res, err := e.pdfToOCR(ctx, path, 1)
	res.Duration = time.Since(start)
	return res, err
}
