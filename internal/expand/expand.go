// Package expand implements material composition expansion: one classified
// line item becomes one output row per material category in its ratio
// profile, with value and weight redistributed so the sub-rows sum back to
// the source totals exactly.
package expand

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/haulcraft/invoicemill/constants"
	"github.com/haulcraft/invoicemill/internal/extract"
	"github.com/haulcraft/invoicemill/internal/parts"
	"github.com/haulcraft/invoicemill/internal/tariff"
)

// DefaultEpsilon is the tolerance on a profile's ratio sum, in percent points.
const DefaultEpsilon = 0.5

// Row is one expanded output row: a single material share of a line item.
type Row struct {
	PartNumber      string
	Material        constants.Material
	ProgramFlag     string
	ValueUSD        decimal.Decimal
	WeightKG        float64
	Qty1            *float64
	Qty2            *float64
	HTSCode         string
	DeclarationCode string
	SmeltFlag       bool
	MID             string
	CountryOfMelt   string
	CountryOfCast   string
	CountryOfSmelt  string
}

// Expander splits line items across material categories. It holds no mutable
// state and is safe for concurrent use.
type Expander struct {
	classify tariff.ClassifyFunc
	mid      string
	epsilon  float64
	logger   *slog.Logger
}

func NewExpander(classify tariff.ClassifyFunc, mid string, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	if classify == nil {
		classify = func(string) (tariff.Record, bool) { return tariff.Record{}, false }
	}
	return &Expander{classify: classify, mid: mid, epsilon: DefaultEpsilon, logger: logger}
}

// Expand produces the per-material rows for one line item. netWeightShare is
// this item's slice of the invoice net weight (value-proportional, computed
// by the pipeline). Warnings cover ratio-sum violations and profile
// defaulting; they never abort the expansion.
func (e *Expander) Expand(item extract.RawLineItem, profile parts.Profile, netWeightShare float64) ([]Row, []string) {
	var warnings []string

	total, ok := item.Value()
	if !ok {
		warnings = append(warnings, fmt.Sprintf("part %s: no line value, expanding at zero", item.PartNumber))
		total = decimal.Zero
	}

	ratios, ratioWarnings := e.resolveRatios(item, profile)
	warnings = append(warnings, ratioWarnings...)

	// All shares are computed before any rounding; rounding happens at
	// emission and the residual lands on the largest share.
	type share struct {
		material constants.Material
		pct      float64
	}
	var shares []share
	for _, m := range constants.AllMaterials() {
		if pct := ratios[m]; pct > 0 {
			shares = append(shares, share{material: m, pct: pct})
		}
	}
	if len(shares) == 0 {
		return nil, warnings
	}

	largest := 0
	for i, s := range shares {
		if s.pct > shares[largest].pct {
			largest = i
		}
	}

	rows := make([]Row, 0, len(shares))
	valueEmitted := decimal.Zero
	weightEmitted := 0.0
	for i, s := range shares {
		pct := decimal.NewFromFloat(s.pct)
		value := total.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
		weight := netWeightShare * s.pct / 100

		row := e.buildRow(item, profile, s.material, s.pct, value, weight)
		rows = append(rows, row)

		if i != largest {
			valueEmitted = valueEmitted.Add(value)
			weightEmitted += weight
		}
	}

	// Conservation: the largest share absorbs whatever independent rounding
	// left over, so the rows sum back to the source totals exactly.
	rows[largest].ValueUSD = total.Round(2).Sub(valueEmitted)
	rows[largest].WeightKG = netWeightShare - weightEmitted
	e.setQuantities(&rows[largest], item, profile, shares[largest].pct)

	return rows, warnings
}

// resolveRatios validates and normalizes a profile's percentages. Missing or
// all-zero profiles fall back to HTS-derived material, then to 100%
// non-qualifying. Ratio sums off by more than epsilon are repaired rather
// than rejected: shortfalls become non-qualifying remainder, excesses are
// rescaled to 100.
func (e *Expander) resolveRatios(item extract.RawLineItem, profile parts.Profile) (map[constants.Material]float64, []string) {
	var warnings []string

	ratios := make(map[constants.Material]float64, len(profile.Ratios))
	for m, pct := range profile.Ratios {
		if pct > 0 {
			ratios[m] = pct
		}
	}

	if len(ratios) == 0 {
		hts := profile.HTSCode
		if hts == "" {
			hts = item.HTSCode
		}
		if rec, ok := e.classify(hts); ok {
			ratios[rec.Material] = 100
			warnings = append(warnings, fmt.Sprintf("part %s: no ratio profile, inferred 100%% %s from HTS %s", item.PartNumber, rec.Material, hts))
		} else {
			ratios[constants.NonQualifying] = 100
			if profile.Found {
				warnings = append(warnings, fmt.Sprintf("part %s: profile has no ratios, defaulting to 100%% non-qualifying", item.PartNumber))
			} else {
				warnings = append(warnings, fmt.Sprintf("part %s: not in parts master, defaulting to 100%% non-qualifying", item.PartNumber))
			}
		}
		return ratios, warnings
	}

	sum := 0.0
	for _, pct := range ratios {
		sum += pct
	}
	switch {
	case sum < 100-e.epsilon:
		ratios[constants.NonQualifying] += 100 - sum
		warnings = append(warnings, fmt.Sprintf("part %s: ratios sum to %.2f%%, remainder treated as non-qualifying", item.PartNumber, sum))
	case sum > 100+e.epsilon:
		for m := range ratios {
			ratios[m] = ratios[m] * 100 / sum
		}
		warnings = append(warnings, fmt.Sprintf("part %s: ratios sum to %.2f%%, rescaled to 100%%", item.PartNumber, sum))
	}
	return ratios, warnings
}

func (e *Expander) buildRow(item extract.RawLineItem, profile parts.Profile, m constants.Material, pct float64, value decimal.Decimal, weight float64) Row {
	hts := profile.HTSForCategory(m)
	if hts == "" {
		hts = item.HTSCode
	}
	rec, found := e.classify(hts)

	declCode := constants.DefaultDeclarationCode(m)
	if found && rec.DeclarationCode != "" {
		declCode = rec.DeclarationCode
	}
	smelt := constants.SmeltDeclarationRequired(m)
	if found {
		smelt = rec.SmeltFlag
	}

	// Country fallback: first two characters of the manufacturer ID.
	midDefault := ""
	if len(e.mid) >= 2 {
		midDefault = e.mid[:2]
	}

	row := Row{
		PartNumber:      item.PartNumber,
		Material:        m,
		ProgramFlag:     constants.ProgramFlag(m),
		ValueUSD:        value,
		WeightKG:        weight,
		HTSCode:         hts,
		DeclarationCode: declCode,
		SmeltFlag:       smelt,
		MID:             e.mid,
		CountryOfMelt:   fallback(profile.CountryOfMelt, midDefault),
		CountryOfCast:   fallback(profile.CountryOfCast, midDefault),
		CountryOfSmelt:  fallback(profile.CountryOfSmelt, midDefault),
	}
	e.setQuantities(&row, item, profile, pct)
	return row
}

// setQuantities fills Qty1/Qty2 from the unit kind. Weight units report net
// weight, count units report the proportional piece count, dual units report
// both, and measurement-only units stay blank.
func (e *Expander) setQuantities(row *Row, item extract.RawLineItem, profile parts.Profile, pct float64) {
	unit := profile.QtyUnit
	if unit == "" {
		unit = item.QtyUnit
	}

	var pieces *float64
	if item.Quantity != nil {
		v := math.Round(*item.Quantity * pct / 100)
		pieces = &v
	}
	weight := row.WeightKG

	row.Qty1, row.Qty2 = nil, nil
	switch constants.ClassifyUnit(unit) {
	case constants.UnitWeight:
		row.Qty1 = &weight
	case constants.UnitCount:
		row.Qty1 = pieces
	case constants.UnitDual:
		row.Qty1 = pieces
		row.Qty2 = &weight
	case constants.UnitMeasure:
		row.Qty1 = pieces
	case constants.UnitNone:
		// measurement-only, both blank
	default:
		row.Qty1 = pieces
	}
}

func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
