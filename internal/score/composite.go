// Package score combines gate-adjusted indicator subscores into one bounded
// conviction score and classifies it into the discrete signal enum. Both
// operations are pure: identical inputs always yield identical outputs.
package score

import (
	"math"

	"github.com/tradeforge/conviction/internal/domain"
)

// Weighted names one indicator's contribution to the composite.
type Weighted struct {
	Name   string
	Weight float64
}

// Composite computes the weighted average of the OK indicator subscores,
// applies soft-gate deductions and clamps to [0,100]. FAILED indicators are
// excluded from numerator and denominator both, so missing data shifts
// weight to the surviving indicators instead of silently counting as zero.
// When any hard gate triggered the result is additionally clamped to
// capCeiling and marked capped; a hard gate can only ever lower the score.
func Composite(weights []Weighted, results map[string]domain.IndicatorResult, checks []domain.GateCheck, capCeiling float64) domain.CompositeScore {
	var num, den float64
	for _, w := range weights {
		if w.Weight <= 0 {
			continue
		}
		res, ok := results[w.Name]
		if !ok || !res.OK() {
			continue
		}
		num += w.Weight * res.Value
		den += w.Weight
	}

	raw := 0.0
	if den > 0 {
		raw = num / den
	}

	out := domain.CompositeScore{
		RawWeightedSum:  raw,
		GateAdjustments: make([]domain.GateAdjustment, 0, len(checks)),
	}

	final := raw
	for _, c := range checks {
		if c.Kind != domain.GateSoft || !c.Triggered {
			continue
		}
		final -= c.Penalty
		out.GateAdjustments = append(out.GateAdjustments, domain.GateAdjustment{
			Gate:   c.Name,
			Effect: -c.Penalty,
		})
	}
	final = clamp(final, 0, 100)

	for _, c := range checks {
		if c.Kind != domain.GateHard || !c.Triggered {
			continue
		}
		out.Capped = true
		capped := math.Min(final, capCeiling)
		out.GateAdjustments = append(out.GateAdjustments, domain.GateAdjustment{
			Gate:   c.Name,
			Effect: capped - final,
		})
		final = capped
	}

	out.FinalScore = clamp(final, 0, 100)
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
