// Package pipeline orchestrates one invoice run: load, extract, classify,
// expand, and total. Stages communicate through plain values; everything
// recoverable lands in the warning list instead of aborting the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haulcraft/invoicemill/internal/document"
	"github.com/haulcraft/invoicemill/internal/expand"
	"github.com/haulcraft/invoicemill/internal/extract"
	"github.com/haulcraft/invoicemill/internal/parts"
	"github.com/haulcraft/invoicemill/internal/tariff"
)

// Options carry per-invoice inputs the document itself cannot supply.
type Options struct {
	// MID is the manufacturer identification code for the shipment.
	MID string
	// Supplier selects the extraction template. Blank uses the default.
	Supplier string
	// NetWeightKG is the invoice net weight to distribute across items.
	NetWeightKG float64
}

// ProcessingResult is the outcome of one invoice run.
type ProcessingResult struct {
	RunID            string
	Path             string
	Kind             extract.DocumentKind
	Rows             []expand.Row
	OriginalRowCount int
	ExpandedRowCount int
	TotalValue       decimal.Decimal
	TotalWeightKG    float64
	Confidence       float32
	Warnings         []string
	Duration         time.Duration
}

type Pipeline struct {
	loader     *document.Loader
	dispatcher *extract.Dispatcher
	parts      parts.Lookup
	classify   tariff.ClassifyFunc
	logger     *slog.Logger
}

func New(loader *document.Loader, dispatcher *extract.Dispatcher, partsLookup parts.Lookup, classify tariff.ClassifyFunc, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{loader: loader, dispatcher: dispatcher, parts: partsLookup, classify: classify, logger: logger}
}

// Process runs one invoice end to end. Unusable extracted rows are dropped
// with a warning, never silently. The invoice net weight is distributed
// across usable items in proportion to item value, with the largest item
// absorbing the rounding residue so the weights sum back to the input.
func (p *Pipeline) Process(ctx context.Context, path string, opts Options) (*ProcessingResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID, "path", path)

	doc, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	extracted, err := p.dispatcher.Dispatch(ctx, doc, opts.Supplier)
	if err != nil {
		return nil, err
	}

	result := &ProcessingResult{
		RunID:      runID,
		Path:       path,
		Kind:       extracted.Kind,
		Confidence: extracted.Confidence,
		Warnings:   append([]string(nil), extracted.Warnings...),
	}

	usable, values, totalValue := p.filterUsable(extracted.Rows, result)
	result.OriginalRowCount = len(usable)
	if len(usable) == 0 {
		result.Duration = time.Since(start)
		log.Warn("no usable rows extracted", "raw_rows", len(extracted.Rows))
		return result, nil
	}

	weights := distributeWeight(values, totalValue, opts.NetWeightKG)

	expander := expand.NewExpander(p.classify, opts.MID, p.logger)
	for i, item := range usable {
		profile := p.parts.LookupProfile(item.PartNumber)
		if !profile.Found {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("part %s not in parts master, treated as non-qualifying", item.PartNumber))
		}
		rows, warns := expander.Expand(item, profile, weights[i])
		result.Rows = append(result.Rows, rows...)
		result.Warnings = append(result.Warnings, warns...)
	}

	result.ExpandedRowCount = len(result.Rows)
	for _, r := range result.Rows {
		result.TotalValue = result.TotalValue.Add(r.ValueUSD)
		result.TotalWeightKG += r.WeightKG
	}
	result.Duration = time.Since(start)

	log.Info("invoice processed",
		"kind", result.Kind,
		"rows_in", result.OriginalRowCount,
		"rows_out", result.ExpandedRowCount,
		"total_value", result.TotalValue.StringFixed(2),
		"duration", result.Duration)
	return result, nil
}

// filterUsable keeps rows that carry a part number and a derivable value.
// Each discard is recorded on the result.
func (p *Pipeline) filterUsable(rows []extract.RawLineItem, result *ProcessingResult) ([]extract.RawLineItem, []decimal.Decimal, decimal.Decimal) {
	var usable []extract.RawLineItem
	var values []decimal.Decimal
	total := decimal.Zero
	for i, row := range rows {
		v, ok := row.Value()
		if !row.Usable() || !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d discarded, no part/value fields: %.60s", i+1, row.RawText))
			continue
		}
		usable = append(usable, row)
		values = append(values, v)
		total = total.Add(v)
	}
	return usable, values, total
}

// distributeWeight splits netWeight across items in proportion to value.
// The largest-value item takes the residue so the shares sum exactly to
// netWeight. A zero value total degrades to an even split.
func distributeWeight(values []decimal.Decimal, total decimal.Decimal, netWeight float64) []float64 {
	weights := make([]float64, len(values))
	if len(values) == 0 || netWeight == 0 {
		return weights
	}

	largest := 0
	if total.IsZero() {
		share := netWeight / float64(len(values))
		for i := range weights {
			weights[i] = share
		}
	} else {
		totalF, _ := total.Float64()
		for i, v := range values {
			vf, _ := v.Float64()
			weights[i] = vf / totalF * netWeight
			if values[i].GreaterThan(values[largest]) {
				largest = i
			}
		}
	}

	var sum float64
	for i, w := range weights {
		if i != largest {
			sum += w
		}
	}
	weights[largest] = netWeight - sum
	return weights
}
