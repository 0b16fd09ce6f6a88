// Package tariff provides the HTS code to material classification lookup.
//
// Lookups are read-only and side-effect-free. An HTS code that is not in the
// lookup source is a valid outcome (the goods are outside the tracked tariff
// program), never an error.
package tariff

import (
	"strings"

	"github.com/haulcraft/invoicemill/constants"
)

// Record is the classification for one HTS code.
type Record struct {
	HTSCode         string
	Material        constants.Material
	DeclarationCode string
	SmeltFlag       bool
}

// ClassifyFunc is the lookup contract consumed by row expansion. The bool is
// false when the code is outside the tracked program.
type ClassifyFunc func(htsCode string) (Record, bool)

// Lookup is an immutable in-memory classification table keyed by normalized
// HTS code. Safe for concurrent reads.
type Lookup struct {
	records map[string]Record
}

// NewLookup builds a Lookup from records keyed by raw HTS code strings.
func NewLookup(records []Record) *Lookup {
	l := &Lookup{records: make(map[string]Record, len(records))}
	for _, r := range records {
		code := NormalizeHTS(r.HTSCode)
		if code == "" {
			continue
		}
		r.HTSCode = code
		l.records[code] = r
	}
	return l
}

// NormalizeHTS strips everything but digits from an HTS code.
func NormalizeHTS(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Classify looks up the tariff record for an HTS code. The code is normalized
// to digits and matched at 10-digit width first, then 8-digit.
func (l *Lookup) Classify(htsCode string) (Record, bool) {
	clean := NormalizeHTS(htsCode)
	if clean == "" {
		return Record{}, false
	}
	if len(clean) > 10 {
		clean = clean[:10]
	}
	if r, ok := l.records[clean]; ok {
		return r, true
	}
	if len(clean) > 8 {
		if r, ok := l.records[clean[:8]]; ok {
			return r, true
		}
	}
	return Record{}, false
}

// Len returns the number of HTS codes in the lookup.
func (l *Lookup) Len() int {
	return len(l.records)
}

// parseDeclarationCode keeps only the code part of values stored as
// "08 - Steel derivative article".
func parseDeclarationCode(raw string) string {
	if i := strings.Index(raw, " - "); i >= 0 {
		return strings.TrimSpace(raw[:i])
	}
	return strings.TrimSpace(raw)
}
