package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haulcraft/invoicemill/internal/common"
	"github.com/haulcraft/invoicemill/internal/document"
	"github.com/haulcraft/invoicemill/internal/ocr"
	"github.com/haulcraft/invoicemill/internal/template"
)

// Recognizer produces text for documents with no embedded text layer.
type Recognizer interface {
	RecognizeFirstPage(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// Dispatcher selects the extraction strategy for a document and runs it.
// Strategy selection is derived from document shape on every call: tables
// route to the table parser, embedded text to the text extractors, and
// text-free documents through OCR first. The same document always takes
// the same route.
type Dispatcher struct {
	templates  *template.Store
	registry   *Registry
	recognizer Recognizer
	logger     *slog.Logger
}

func NewDispatcher(templates *template.Store, registry *Registry, recognizer Recognizer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Dispatcher{templates: templates, registry: registry, recognizer: recognizer, logger: logger}
}

// Dispatch extracts line items from a loaded document. Supplier names the
// template to prefer for text extraction; blank means the default template.
// The only hard failures are an empty document and OCR failure on a scanned
// document. Everything else degrades to the line fallback so that no
// document with content produces zero rows.
func (d *Dispatcher) Dispatch(ctx context.Context, doc *document.RawDocument, supplier string) (Result, error) {
	if len(doc.Pages) == 0 && len(doc.Tables) == 0 {
		return Result{}, common.NewAppError("EMPTY_DOCUMENT",
			fmt.Sprintf("%s has no pages", doc.Path), common.ErrEmptyDocument)
	}

	tables := doc.Tables
	if len(tables) == 0 && doc.HasEmbeddedText() {
		tables = DetectTextTables(doc.Pages)
	}
	if len(tables) > 0 {
		if res, ok := d.fromTables(doc, tables); ok {
			return res, nil
		}
	}

	if doc.HasEmbeddedText() {
		res := d.fromText(doc.Text(), supplier)
		res.Kind = TextualDigital
		d.logger.Debug("extracted from text layer", "path", doc.Path, "rows", len(res.Rows))
		return res, nil
	}

	ocrRes, err := d.recognizer.RecognizeFirstPage(ctx, doc.Path)
	if err != nil {
		return Result{}, fmt.Errorf("ocr %s: %w", doc.Path, err)
	}
	res := d.fromText(ocrRes.Text, supplier)
	res.Kind = Scanned
	res.Confidence *= ocrRes.Confidence
	res.Warnings = append(res.Warnings, ocrRes.Warnings...)
	if ocrRes.Confidence < ocr.LowConfidenceThreshold {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("ocr confidence %.2f below %.2f, rows need review", ocrRes.Confidence, ocr.LowConfidenceThreshold))
	}
	d.logger.Info("extracted from scan", "path", doc.Path, "rows", len(res.Rows), "ocr_confidence", ocrRes.Confidence)
	return res, nil
}

func (d *Dispatcher) fromTables(doc *document.RawDocument, tables []document.Table) (Result, bool) {
	best, _ := SelectTable(tables)
	items, warnings := ParseTable(best)
	if len(items) == 0 {
		d.logger.Debug("table route rejected, falling back to text", "path", doc.Path)
		return Result{}, false
	}
	d.logger.Debug("extracted from table", "path", doc.Path, "page", best.Page, "rows", len(items))
	return Result{Rows: items, Kind: TabularDigital, Confidence: 1.0, Warnings: warnings}, true
}

// fromText routes embedded or recognized text: a fixed format when one
// fingerprints the document, the supplier template otherwise, and the raw
// line fallback when pattern extraction finds nothing.
func (d *Dispatcher) fromText(text, supplier string) Result {
	if f, ok := d.registry.Match(text); ok {
		if res := f.Extract(text); len(res.Rows) > 0 {
			return res
		}
	}
	tpl := d.templates.Get(supplier)
	res := NewFieldExtractor(tpl).Extract(text)
	if len(res.Rows) > 0 {
		return res
	}
	fallback := rawLines(text)
	fallback.Warnings = append(res.Warnings, fallback.Warnings...)
	return fallback
}

// rawLines is the extraction floor: one item per non-blank line, raw text
// only, zero confidence. Downstream stages decide what is salvageable.
func rawLines(text string) Result {
	var res Result
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		res.Rows = append(res.Rows, RawLineItem{RawText: line})
	}
	res.Warnings = append(res.Warnings,
		fmt.Sprintf("no fields recognized, emitted %d raw lines", len(res.Rows)))
	return res
}
