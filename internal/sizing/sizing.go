// Package sizing converts account risk parameters and a stop distance into
// a deterministic position plan. Validation here is hard: an out-of-bounds
// risk fraction or a degenerate stop is a sizing failure, never a guessed
// size, because silently oversizing is the one unsafe outcome.
package sizing

import (
	"fmt"
	"math"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/domain"
)

// Error is a sizing validation failure. The engine surfaces it as a nil
// position plan with the reason attached; it is never recovered into a
// synthetic size.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "sizing: " + e.Reason
}

func errf(format string, args ...interface{}) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Stop carries the per-request stop inputs. WorstLossPerUnit and
// StopDistance compete: the larger dollar loss per unit wins, keeping the
// size conservative.
type Stop struct {
	Entry            float64
	StopDistance     float64
	WorstLossPerUnit float64
	Direction        domain.Direction
}

// Engine sizes positions under a fixed risk ceiling.
type Engine struct {
	maxRisk  float64
	unitMult float64
}

// New creates a sizing engine from the methodology configuration.
func New(cfg config.SizingConfig) *Engine {
	return &Engine{maxRisk: cfg.MaxRiskFraction, unitMult: cfg.UnitMultiplier}
}

// Plan computes units = floor((equity * r) / max(worst_loss_per_unit,
// stop_distance * unit_multiplier)). Identical inputs always produce an
// identical plan.
func (e *Engine) Plan(acct domain.AccountConfig, stop Stop) (*domain.PositionPlan, error) {
	if acct.Equity <= 0 {
		return nil, errf("equity %.2f must be positive", acct.Equity)
	}
	if acct.RiskFraction <= 0 || acct.RiskFraction > e.maxRisk {
		return nil, errf("risk fraction %.4f outside (0, %.4f]", acct.RiskFraction, e.maxRisk)
	}

	riskPerUnit := math.Max(stop.WorstLossPerUnit, stop.StopDistance*e.unitMult)
	if riskPerUnit <= 0 {
		return nil, errf("degenerate stop: risk per unit %.4f", riskPerUnit)
	}

	budget := acct.Equity * acct.RiskFraction
	units := int64(math.Floor(budget / riskPerUnit))

	stopPrice := stop.Entry
	switch stop.Direction {
	case domain.DirectionShort:
		stopPrice = stop.Entry + stop.StopDistance
	default:
		stopPrice = stop.Entry - stop.StopDistance
	}

	return &domain.PositionPlan{
		Units:      units,
		DollarRisk: float64(units) * riskPerUnit,
		StopPrice:  stopPrice,
		EntryPrice: stop.Entry,
	}, nil
}
