// Package parts exposes the parts-master lookup consumed by row expansion.
package parts

import (
	"github.com/haulcraft/invoicemill/constants"
)

// Profile is the material-ratio breakdown for one part number, plus the
// customs metadata recorded alongside it in the parts master. Ratios are
// percentages 0-100; a complete profile sums to 100 within the expander's
// epsilon.
type Profile struct {
	PartNumber string
	HTSCode    string
	QtyUnit    string
	Ratios     map[constants.Material]float64

	// HTSByCategory overrides HTSCode for parts whose materials are filed
	// under different headings. Missing categories fall back to HTSCode.
	HTSByCategory map[constants.Material]string

	CountryOfMelt  string
	CountryOfCast  string
	CountryOfSmelt string
	Found          bool
}

// HTSForCategory resolves the HTS code used to classify one material share.
func (p Profile) HTSForCategory(m constants.Material) string {
	if code, ok := p.HTSByCategory[m]; ok && code != "" {
		return code
	}
	return p.HTSCode
}

// Lookup resolves a part number to its ratio profile. Implementations treat
// "not found" as a valid default, never an error.
type Lookup interface {
	LookupProfile(partNumber string) Profile
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(partNumber string) Profile

func (f LookupFunc) LookupProfile(partNumber string) Profile {
	return f(partNumber)
}

// DefaultProfile is the fallback for parts absent from the master:
// 100% non-qualifying, no customs metadata.
func DefaultProfile(partNumber string) Profile {
	return Profile{
		PartNumber: partNumber,
		Ratios:     map[constants.Material]float64{constants.NonQualifying: 100},
	}
}

// RatioSum returns the declared percentage total across all categories.
func (p Profile) RatioSum() float64 {
	var sum float64
	for _, pct := range p.Ratios {
		sum += pct
	}
	return sum
}
