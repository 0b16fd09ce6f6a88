package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/haulcraft/invoicemill/internal/template"
)

// Metadata lines carry invoice headers and addresses, not line items.
// Anything matching one of these is excluded from field pairing.
var metadataMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(invoice|inv)\s*(no|#|number|date)`),
	regexp.MustCompile(`(?i)^\s*(date|page|tel|fax|phone|email)\b`),
	regexp.MustCompile(`(?i)\b(bill\s*to|ship\s*to|sold\s*to|remit\s*to)\b`),
	regexp.MustCompile(`(?i)^\s*(subtotal|sub-total|total|amount\s+due|balance|freight|tax|vat)\b`),
	regexp.MustCompile(`(?i)\b(payment\s+terms|due\s+date|p\.?o\.?\s*(no|#|box))\b`),
}

var reDateLike = regexp.MustCompile(`^\d{4}[-/]\d{1,2}[-/]\d{1,2}$`)

func isMetadataLine(line string) bool {
	for _, re := range metadataMarkers {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// validPartNumber rejects tokens that match the part pattern but are
// obviously not part numbers: too short, pure alpha words, dates.
func validPartNumber(s string) bool {
	if len(s) < 4 || len(s) > 30 {
		return false
	}
	if reDateLike.MatchString(s) {
		return false
	}
	var hasLetter, hasDigit, hasSep bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '-' || r == '_' || r == '.' || r == '/':
			hasSep = true
		}
	}
	return hasLetter && (hasDigit || hasSep)
}

// FieldExtractor pairs part numbers with values line by line using a
// supplier template's patterns. A part candidate is paired with a value
// found on the same line or within the template's lookahead window.
// Ambiguous windows (more than one candidate for a field) are skipped
// and recorded as warnings rather than guessed at.
type FieldExtractor struct {
	tpl *template.Compiled
}

func NewFieldExtractor(tpl *template.Compiled) *FieldExtractor {
	return &FieldExtractor{tpl: tpl}
}

func (e *FieldExtractor) Extract(text string) Result {
	var res Result
	lines := strings.Split(text, "\n")

	partRe := e.tpl.Pattern(template.FieldPartNumber)
	valueRe := e.tpl.Pattern(template.FieldValue)
	qtyRe := e.tpl.Pattern(template.FieldQuantity)
	window, _ := e.tpl.Hint(template.FieldValue)

	full := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" || isMetadataLine(line) {
			continue
		}
		if partRe == nil {
			continue
		}
		parts := uniqueValid(partRe.FindAllStringSubmatch(line, -1), validPartNumber)
		if len(parts) == 0 {
			continue
		}
		if len(parts) > 1 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("line %d: ambiguous part number (%d candidates), skipped", i+1, len(parts)))
			continue
		}

		windowText := joinWindow(lines, i, window)
		var values []string
		if valueRe != nil {
			for _, m := range valueRe.FindAllStringSubmatch(windowText, -1) {
				raw := capture(m)
				if d, ok := parseAmount(raw); ok && plausiblePrice(raw, d) {
					values = append(values, raw)
				}
			}
		}
		switch {
		case len(values) == 0:
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("line %d: part %s has no value in window, skipped", i+1, parts[0]))
			continue
		case len(values) > 1:
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("line %d: ambiguous value (%d candidates), skipped", i+1, len(values)))
			continue
		}

		item := RawLineItem{PartNumber: parts[0], RawText: line}
		if v, ok := parseAmount(values[0]); ok {
			item.TotalValue = &v
		}
		if qtyRe != nil {
			qm := qtyRe.FindAllStringSubmatch(windowText, -1)
			if len(qm) == 1 {
				if q, ok := parseCount(capture(qm[0])); ok {
					item.Quantity = &q
					full++
				}
			}
		}
		res.Rows = append(res.Rows, item)
	}

	res.Kind = TextualDigital
	if len(res.Rows) > 0 {
		res.Confidence = float32(full) / float32(len(res.Rows))
	}
	return res
}

// capture returns the first non-empty capture group, or the whole match.
func capture(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return m[0]
}

func uniqueValid(matches [][]string, ok func(string) bool) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches {
		s := capture(m)
		if !ok(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func joinWindow(lines []string, start, window int) string {
	end := start + window
	if end >= len(lines) {
		end = len(lines) - 1
	}
	return strings.Join(lines[start:end+1], "\n")
}
