// Package template holds supplier pattern sets for field recognition.
// Templates are plain data (field name -> regex string) persisted as JSON;
// compiled patterns are cached per template and never mutated by extraction.
package template

import (
	"fmt"
	"regexp"

	"github.com/haulcraft/invoicemill/internal/common"
)

// Field names recognized by the pattern extractor. Each pattern carries one
// capturing group for the field value.
const (
	FieldPartNumber = "part_number"
	FieldValue      = "value"
	FieldQuantity   = "quantity"
)

// DefaultName is the built-in template used when no supplier-specific
// template matches.
const DefaultName = "default"

// Template is a named pattern set for one supplier's invoice layout.
// FieldHints carry approximate positions (line offsets relative to the part
// number line) for suppliers whose value column drifts off the item line.
type Template struct {
	Name       string            `json:"name"`
	Patterns   map[string]string `json:"patterns"`
	FieldHints map[string]int    `json:"field_hints,omitempty"`
}

// Compiled is a Template with its regular expressions compiled. Compilation
// happens once at load; extraction only reads.
type Compiled struct {
	Template
	regexps map[string]*regexp.Regexp
}

// Compile validates and compiles every pattern in the template. A pattern
// that fails to compile is a template-load error, not an extraction error.
func (t Template) Compile() (*Compiled, error) {
	c := &Compiled{Template: t, regexps: make(map[string]*regexp.Regexp, len(t.Patterns))}
	for field, pattern := range t.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, common.NewAppError("TEMPLATE_COMPILE",
				fmt.Sprintf("template %q field %q: %v", t.Name, field, err), common.ErrTemplateInvalid)
		}
		c.regexps[field] = re
	}
	return c, nil
}

// Pattern returns the compiled regex for a field, or nil when the template
// does not define one.
func (c *Compiled) Pattern(field string) *regexp.Regexp {
	return c.regexps[field]
}

// Hint returns the positional hint for a field and whether one is set.
func (c *Compiled) Hint(field string) (int, bool) {
	v, ok := c.FieldHints[field]
	return v, ok
}

// Default returns the built-in template. Its patterns are deliberately
// permissive; the extractor applies shape validation on top.
func Default() Template {
	return Template{
		Name: DefaultName,
		Patterns: map[string]string{
			FieldPartNumber: `([A-Za-z0-9][A-Za-z0-9\-_.]{2,24})`,
			FieldValue:      `\$?\s*(\d{1,10}(?:,\d{3})*\.\d{2})\b`,
			FieldQuantity:   `(?i)\b(\d[\d,]*)\s*(?:pcs|pc|no|ea|sets?|units?)\b`,
		},
	}
}
