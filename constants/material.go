package constants

import (
	"strings"
)

// Material is an import-tariff material category.
type Material string

const (
	Steel         Material = "Steel"
	Aluminum      Material = "Aluminum"
	Copper        Material = "Copper"
	Wood          Material = "Wood"
	Automotive    Material = "Automotive"
	NonQualifying Material = "NonQualifying"
)

// allMaterials is the emission order for expanded rows: tracked categories
// first, the non-qualifying remainder last.
var allMaterials = []Material{
	Steel,
	Aluminum,
	Copper,
	Wood,
	Automotive,
	NonQualifying,
}

func AllMaterials() []Material {
	out := make([]Material, len(allMaterials))
	copy(out, allMaterials)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allMaterials))
	for i, m := range allMaterials {
		result[i] = string(m)
	}
	return result
}

// DefaultDeclarationCode returns the customs declaration type code used when
// the tariff record carries none.
func DefaultDeclarationCode(m Material) string {
	switch m {
	case Steel:
		return "08"
	case Aluminum:
		return "07"
	case Copper:
		return "11"
	case Wood:
		return "10"
	default:
		return ""
	}
}

// ProgramFlag returns the tariff-program flag attached to an expanded row.
func ProgramFlag(m Material) string {
	switch m {
	case Steel:
		return "232_Steel"
	case Aluminum:
		return "232_Aluminum"
	case Copper:
		return "232_Copper"
	case Wood:
		return "232_Wood"
	case Automotive:
		return "232_Auto"
	default:
		return "Non_232"
	}
}

// SmeltDeclarationRequired reports whether the category needs a primary-smelt
// country-of-origin declaration.
func SmeltDeclarationRequired(m Material) bool {
	switch m {
	case Aluminum, Copper, Wood:
		return true
	}
	return false
}

// Canonicalize maps free-form material labels (parts master columns, tariff
// table values) onto the Material enum.
func Canonicalize(input string) (Material, bool) {
	if input == "" {
		return NonQualifying, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Material{
		"steel":          Steel,
		"iron":           Steel,
		"aluminum":       Aluminum,
		"aluminium":      Aluminum,
		"copper":         Copper,
		"wood":           Wood,
		"timber":         Wood,
		"auto":           Automotive,
		"automotive":     Automotive,
		"vehicle":        Automotive,
		"non_232":        NonQualifying,
		"non-232":        NonQualifying,
		"non_steel":      NonQualifying,
		"nonqualifying":  NonQualifying,
		"non-qualifying": NonQualifying,
	}

	if m, ok := synonyms[normalized]; ok {
		return m, true
	}

	for _, m := range allMaterials {
		if normalized == strings.ToLower(string(m)) {
			return m, true
		}
	}

	return NonQualifying, false
}
