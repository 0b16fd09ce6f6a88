package constants

import "strings"

// UnitKind determines how Qty1/Qty2 are computed for an expanded row.
type UnitKind int

const (
	UnitUnknown UnitKind = iota
	UnitWeight           // Qty1 = net weight, Qty2 empty
	UnitCount            // Qty1 = piece count, Qty2 empty
	UnitDual             // Qty1 = piece count, Qty2 = net weight
	UnitMeasure          // Qty1 = invoice quantity as-is, Qty2 empty
	UnitNone             // both quantities stay empty
)

// Unit categories from the HTS quantity-unit column. Dual units report a
// count plus a weight (e.g. "NO/KG"); no-quantity units are measurement-only
// per CBP filing rules and leave both quantity columns blank.
var (
	weightUnits = map[string]struct{}{
		"KG": {}, "G": {}, "T": {}, "T ADW": {}, "T DWB": {},
	}

	countUnits = map[string]struct{}{
		"NO": {}, "PCS": {}, "DOZ": {}, "DOZ. PRS": {}, "DZ PCS": {},
		"GROSS": {}, "HUNDREDS": {}, "THOUSANDS": {}, "PRS": {}, "PACK": {},
		"DOSES": {}, "CARAT": {},
	}

	dualUnits = map[string]struct{}{
		"NO. AND KG": {}, "NO/KG": {}, `NO\KG`: {},
		"CU KG": {}, "CY KG": {}, "NI KG": {}, "PB KG": {}, "ZN KG": {}, "KG AMC": {},
		"AG G": {}, "AU G": {}, "IR G": {}, "OS G": {}, "PD G": {}, "PT G": {}, "RH G": {}, "RU G": {},
	}

	measureUnits = map[string]struct{}{
		"LITERS": {}, "PF.LITERS": {}, "BBL": {}, "LIN. M": {}, "CM2": {},
		"SQUARE": {}, "FIBER M": {}, "GBQ": {}, "MWH": {}, "THOUSAND M": {}, "THOUSAND M3": {},
	}

	noQtyUnits = map[string]struct{}{
		"M": {}, "M2": {}, "M3": {},
	}
)

// ClassifyUnit maps a quantity-unit string onto its Qty1/Qty2 behavior.
// No-quantity units win over the measure set so "M2" stays blank.
func ClassifyUnit(unit string) UnitKind {
	u := strings.ToUpper(strings.TrimSpace(unit))
	if u == "" {
		return UnitUnknown
	}
	if _, ok := noQtyUnits[u]; ok {
		return UnitNone
	}
	if _, ok := weightUnits[u]; ok {
		return UnitWeight
	}
	if _, ok := countUnits[u]; ok {
		return UnitCount
	}
	if _, ok := dualUnits[u]; ok {
		return UnitDual
	}
	if _, ok := measureUnits[u]; ok {
		return UnitMeasure
	}
	return UnitUnknown
}
