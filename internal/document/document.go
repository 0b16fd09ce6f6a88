// Package document models the input abstraction consumed by extraction: an
// ordered sequence of pages with optional embedded text, plus any tables the
// source format carries natively (CSV records, spreadsheet sheets).
// A RawDocument is immutable once loaded and lives only for one extraction.
package document

import "strings"

// Page is one page of a raw document. Text is the embedded text layer and
// may be empty (scanned page).
type Page struct {
	Number int
	Text   string
}

// Table is a rectangular cell grid found in the document. For CSV and XLSX
// input the loader materializes tables directly; for PDFs the extractor
// detects them from the text layout.
type Table struct {
	Page   int
	Header []string
	Rows   [][]string
}

// RowCount returns the number of data rows (header excluded).
func (t Table) RowCount() int {
	return len(t.Rows)
}

// RawDocument is one invoice file, format-normalized.
type RawDocument struct {
	Path   string
	Format string // constants.PDF | constants.CSV | constants.XLSX
	Pages  []Page
	Tables []Table
}

// HasEmbeddedText reports whether any page carries a non-blank text layer.
func (d *RawDocument) HasEmbeddedText() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// Text returns the concatenated embedded text of all pages.
func (d *RawDocument) Text() string {
	var b strings.Builder
	for i, p := range d.Pages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
