package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// LowConfidenceThreshold flags OCR-derived extractions for manual review.
const LowConfidenceThreshold = 0.6

var (
	reBoxNoise = regexp.MustCompile(`(?m)^[|_\-=~\s]{4,}$`)

	reAmount = regexp.MustCompile(`\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
	reQty    = regexp.MustCompile(`(?i)\b\d[\d,]*\s*(pcs|pc|no|kg|sets?|ea|units?)\b`)
	rePart   = regexp.MustCompile(`(?i)\b(sku|part|item|p/n|art)\s*[#:.]?\s*[A-Z0-9\-]{3,}`)
)

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	// boost when common invoice artifacts are present
	// (amount-ish, quantity-ish, part-number-ish). Each adds a fixed step.
	score := float32(0.2) // base
	if reAmount.MatchString(txt) {
		score += 0.2
	}
	if reQty.MatchString(txt) {
		score += 0.15
	}
	if rePart.MatchString(txt) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	// TSV output
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract TSV: %w", err)
	}
	lines := strings.Split(string(out), "\n")
	// conf column is the last; header line includes "conf"
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[len(cols)-1]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil, nil
	}
	mean := sum / n // 0..100
	return float32(mean / 100.0), nil, nil
}
