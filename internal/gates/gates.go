// Package gates evaluates the methodology's hard and soft gates over a full
// indicator result set. Hard gates disqualify: a trigger caps the final
// signal at the configured ceiling regardless of score. Soft gates deduct
// points. Gates whose required indicator failed are recorded as skipped
// (neither triggered nor passed) so missing data never masquerades as a
// pass or a fail. Evaluation order is declared, hard gates first, making
// the trigger list deterministic for identical inputs.
package gates

import (
	"fmt"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/domain"
	"github.com/tradeforge/conviction/internal/indicators"
)

// SkipMissingData marks a gate that could not be evaluated because a
// required indicator result is FAILED.
const SkipMissingData = "missing_data"

// Inputs is everything a gate may condition on for one request.
type Inputs struct {
	Results   map[string]domain.IndicatorResult
	Patterns  []domain.Pattern
	Direction domain.Direction
	Reference domain.Trend
}

// Definition is one named gate: a predicate over indicator outputs with a
// declared kind and, for soft gates, a score deduction.
type Definition struct {
	Name    string
	Kind    domain.GateKind
	Penalty float64
	// Requires lists indicator names that must be OK for the gate to be
	// evaluable. An empty list means the gate is always evaluable.
	Requires []string
	Evaluate func(in Inputs) (triggered bool, reason string)
}

// Evaluator applies a fixed, ordered gate set.
type Evaluator struct {
	defs []Definition
}

// NewEvaluator builds the default methodology policy from configuration:
// confirmation and reference-contradiction are hard (a structural trigger
// and an agreeing reference market are prerequisites for action), calendar
// misalignment and oscillator overextension are soft.
func NewEvaluator(cfg *config.Config) *Evaluator {
	defs := []Definition{
		{
			Name: "confirmation",
			Kind: domain.GateHard,
			Evaluate: func(in Inputs) (bool, string) {
				for _, p := range in.Patterns {
					if in.Direction == domain.DirectionNone || p.Direction == in.Direction {
						return false, fmt.Sprintf("confirmed by %s at %.2f", p.Type, p.Confirmation)
					}
				}
				return true, "no qualifying structural pattern active"
			},
		},
		{
			Name:     "reference_contradiction",
			Kind:     domain.GateHard,
			Requires: []string{indicators.NameTrendFilter},
			Evaluate: func(in Inputs) (bool, string) {
				contradicts := (in.Direction == domain.DirectionLong && in.Reference == domain.TrendDown) ||
					(in.Direction == domain.DirectionShort && in.Reference == domain.TrendUp)
				if contradicts {
					return true, fmt.Sprintf("reference instrument trending %s against %s entry", in.Reference, in.Direction)
				}
				return false, fmt.Sprintf("reference trend %s compatible with %s entry", in.Reference, in.Direction)
			},
		},
		{
			Name:     "calendar_misalignment",
			Kind:     domain.GateSoft,
			Penalty:  cfg.Gates.CalendarPenalty,
			Requires: []string{indicators.NameCalendarBias, indicators.NameTrendFilter},
			Evaluate: func(in Inputs) (bool, string) {
				bias := indicators.BiasOf(in.Results[indicators.NameCalendarBias])
				if bias != domain.DirectionNone && in.Direction != domain.DirectionNone && bias != in.Direction {
					return true, fmt.Sprintf("calendar bias %s opposes %s entry", bias, in.Direction)
				}
				return false, "calendar bias aligned"
			},
		},
		{
			Name:     "overextension",
			Kind:     domain.GateSoft,
			Penalty:  cfg.Gates.OverextensionPenalty,
			Requires: []string{indicators.NameOscillator, indicators.NameTrendFilter},
			Evaluate: func(in Inputs) (bool, string) {
				rsi := in.Results[indicators.NameOscillator].Detail[indicators.DetailRSI]
				if in.Direction == domain.DirectionLong && rsi >= cfg.Gates.Overbought {
					return true, fmt.Sprintf("oscillator %.1f overbought (>= %.1f) for long entry", rsi, cfg.Gates.Overbought)
				}
				if in.Direction == domain.DirectionShort && rsi <= cfg.Gates.Oversold {
					return true, fmt.Sprintf("oscillator %.1f oversold (<= %.1f) for short entry", rsi, cfg.Gates.Oversold)
				}
				return false, fmt.Sprintf("oscillator %.1f within range", rsi)
			},
		},
	}
	return &Evaluator{defs: orderHardFirst(defs)}
}

// NewFromDefinitions builds an evaluator from an explicit gate set, hard
// gates ordered first. Used by methodologies with custom policies.
func NewFromDefinitions(defs []Definition) *Evaluator {
	return &Evaluator{defs: orderHardFirst(defs)}
}

func orderHardFirst(defs []Definition) []Definition {
	ordered := make([]Definition, 0, len(defs))
	for _, d := range defs {
		if d.Kind == domain.GateHard {
			ordered = append(ordered, d)
		}
	}
	for _, d := range defs {
		if d.Kind != domain.GateHard {
			ordered = append(ordered, d)
		}
	}
	return ordered
}

// Evaluate runs every gate in declared order and returns the full check
// list: triggered, passed and skipped gates alike.
func (e *Evaluator) Evaluate(in Inputs) []domain.GateCheck {
	checks := make([]domain.GateCheck, 0, len(e.defs))
	for _, def := range e.defs {
		check := domain.GateCheck{
			Name:    def.Name,
			Kind:    def.Kind,
			Penalty: def.Penalty,
		}
		if missing := e.missingInput(def, in); missing != "" {
			check.Skipped = true
			check.SkipReason = SkipMissingData
			check.Reason = fmt.Sprintf("skipped: %s unavailable", missing)
			checks = append(checks, check)
			continue
		}
		check.Triggered, check.Reason = def.Evaluate(in)
		checks = append(checks, check)
	}
	return checks
}

func (e *Evaluator) missingInput(def Definition, in Inputs) string {
	for _, name := range def.Requires {
		res, ok := in.Results[name]
		if !ok || !res.OK() {
			return name
		}
	}
	return ""
}

// AnyHardTriggered reports whether any hard gate in the check list fired.
func AnyHardTriggered(checks []domain.GateCheck) bool {
	for _, c := range checks {
		if c.Kind == domain.GateHard && c.Triggered {
			return true
		}
	}
	return false
}
