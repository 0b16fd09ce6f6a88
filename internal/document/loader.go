package document

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/xuri/excelize/v2"

	"github.com/haulcraft/invoicemill/constants"
	"github.com/haulcraft/invoicemill/internal/common"
	"github.com/haulcraft/invoicemill/internal/ocr"
)

// Loader builds RawDocuments from invoice files. PDFs are probed with pdfcpu
// for page structure and read with pdftotext for the embedded text layer;
// CSV and XLSX input is materialized into tables directly.
type Loader struct {
	ocr    *ocr.Extractor
	conf   *model.Configuration
	logger *slog.Logger
}

func NewLoader(textExtractor *ocr.Extractor, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{ocr: textExtractor, conf: model.NewDefaultConfiguration(), logger: logger}
}

// Load reads one invoice file into the RawDocument abstraction.
func (l *Loader) Load(ctx context.Context, path string) (*RawDocument, error) {
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.PDF:
		return l.loadPDF(ctx, path)
	case constants.CSV:
		return l.loadCSV(path)
	case constants.XLSX:
		return l.loadXLSX(path)
	default:
		return nil, common.NewAppError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("unsupported extension: %q", filepath.Ext(path)), common.ErrInvalidInput)
	}
}

func (l *Loader) loadPDF(ctx context.Context, path string) (*RawDocument, error) {
	pageCount := 0
	if f, err := os.Open(path); err == nil {
		pageCount, err = api.PageCount(f, l.conf)
		if err != nil {
			l.logger.Warn("pdfcpu page count failed, falling back to text layer", "path", path, "error", err)
			pageCount = 0
		}
		_ = f.Close()
	}

	doc := &RawDocument{Path: path, Format: constants.PDF}

	res, err := l.ocr.EmbeddedText(ctx, path)
	if err != nil {
		l.logger.Warn("embedded text read failed", "path", path, "error", err)
	}

	// pdftotext separates pages with form feeds
	pageTexts := strings.Split(res.Text, "\f")
	if pageCount == 0 {
		pageCount = len(pageTexts)
		if res.Text == "" {
			pageCount = 0
		}
	}
	for i := 0; i < pageCount; i++ {
		p := Page{Number: i + 1}
		if i < len(pageTexts) {
			p.Text = pageTexts[i]
		}
		doc.Pages = append(doc.Pages, p)
	}

	l.logger.Debug("pdf loaded", "path", path, "pages", len(doc.Pages), "embedded_text", doc.HasEmbeddedText())
	return doc, nil
}

func (l *Loader) loadCSV(path string) (*RawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	doc := &RawDocument{Path: path, Format: constants.CSV}
	if len(records) == 0 {
		return doc, nil
	}

	doc.Tables = []Table{{Page: 1, Header: records[0], Rows: records[1:]}}
	doc.Pages = []Page{{Number: 1, Text: joinRecords(records)}}
	return doc, nil
}

func (l *Loader) loadXLSX(path string) (*RawDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.logger.Warn("failed to close workbook", "path", path, "error", closeErr)
		}
	}()

	doc := &RawDocument{Path: path, Format: constants.XLSX}
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			l.logger.Warn("failed to read sheet", "sheet", sheet, "error", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		doc.Tables = append(doc.Tables, Table{Page: i + 1, Header: rows[0], Rows: rows[1:]})
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Text: joinRecords(rows)})
	}
	return doc, nil
}

func joinRecords(records [][]string) string {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, strings.Join(rec, "\t"))
	}
	return strings.Join(lines, "\n")
}
