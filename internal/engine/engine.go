// Package engine orchestrates one analysis request end to end: concurrent
// indicator fan-out against the fetch boundary under a global timeout, gate
// evaluation, composite scoring, signal classification and position sizing.
// The engine holds no state across requests; given identical inputs it
// produces byte-identical results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
	"github.com/tradeforge/conviction/internal/gates"
	"github.com/tradeforge/conviction/internal/indicators"
	"github.com/tradeforge/conviction/internal/metrics"
	"github.com/tradeforge/conviction/internal/score"
	"github.com/tradeforge/conviction/internal/sizing"
)

// Analyzer runs the composite signal-aggregation pipeline for one
// methodology. Construct once, share freely: it is stateless per request.
type Analyzer struct {
	cfg     *config.Config
	fetch   data.Fetcher
	modules []indicators.Module
	gates   *gates.Evaluator
	sizer   *sizing.Engine
	metrics *metrics.Registry
}

// New builds an Analyzer from an injected methodology configuration and
// fetch boundary. metrics may be nil.
func New(cfg *config.Config, fetch data.Fetcher, m *metrics.Registry) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		fetch:   fetch,
		modules: indicators.Registry(cfg),
		gates:   gates.NewEvaluator(cfg),
		sizer:   sizing.New(cfg.Sizing),
		metrics: m,
	}
}

// Analyze evaluates one symbol as of a date under the given account
// parameters. Data problems never surface as an error: failed indicators
// are listed in MissingComponents, inevaluable gates are skipped, and a
// sizing validation failure confines itself to a nil PositionPlan. The
// returned error covers only malformed requests.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, asOf time.Time, acct domain.AccountConfig) (*domain.AnalysisResult, error) {
	if symbol == "" {
		return nil, errors.New("analyze: empty symbol")
	}
	start := time.Now()
	req := indicators.Request{Symbol: symbol, AsOf: asOf}

	results := a.runModules(ctx, req)

	missing := make([]string, 0, len(a.modules))
	for _, m := range a.modules {
		if !results[m.Name].OK() {
			missing = append(missing, m.Name)
			a.metrics.RecordIndicatorFailure(m.Name)
		}
	}

	trendRes, trendOK := results[indicators.NameTrendFilter]
	direction := indicators.DirectionOf(trendRes, trendOK)

	active := make([]domain.Pattern, 0, 4)
	if ps := results[indicators.NamePatternScan]; ps.OK() {
		active = append(active, ps.Patterns...)
	}

	checks := a.gates.Evaluate(gates.Inputs{
		Results:   results,
		Patterns:  active,
		Direction: direction,
		Reference: acct.ReferenceTrend,
	})
	for _, c := range checks {
		if c.Triggered {
			a.metrics.RecordGateTrigger(c.Name, string(c.Kind))
		}
	}

	weights := make([]score.Weighted, 0, len(a.modules))
	for _, m := range a.modules {
		weights = append(weights, score.Weighted{Name: m.Name, Weight: m.Weight})
	}
	composite := score.Composite(weights, results, checks, a.cfg.Gates.CapCeiling)
	signal := score.Classify(composite.FinalScore, a.cfg.Bands)

	result := &domain.AnalysisResult{
		Symbol:            symbol,
		AsOf:              asOf,
		ConvictionScore:   composite.FinalScore,
		Signal:            signal,
		Score:             composite,
		MissingComponents: missing,
		ActivePatterns:    active,
		GateReport:        checks,
	}

	result.PositionPlan, result.PlanReason = a.plan(symbol, signal, direction, acct, results)

	a.metrics.ObserveAnalysis(string(signal), time.Since(start))
	log.Debug().
		Str("symbol", symbol).
		Float64("score", composite.FinalScore).
		Str("signal", string(signal)).
		Int("missing", len(missing)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	return result, nil
}

// runModules fans the registered computations out concurrently and fans
// them back in under the configured deadline. A failed or abandoned module
// becomes a FAILED result; the batch itself never aborts.
func (a *Analyzer) runModules(ctx context.Context, req indicators.Request) map[string]domain.IndicatorResult {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	type outcome struct {
		name string
		res  domain.IndicatorResult
		err  error
	}
	ch := make(chan outcome, len(a.modules))

	for _, m := range a.modules {
		m := m
		go func() {
			defer func() {
				if r := recover(); r != nil {
					ch <- outcome{name: m.Name, err: fmt.Errorf("computation panic: %v", r)}
				}
			}()
			res, err := m.Run(ctx, a.fetch, req)
			ch <- outcome{name: m.Name, res: res, err: err}
		}()
	}

	results := make(map[string]domain.IndicatorResult, len(a.modules))
	for range a.modules {
		select {
		case o := <-ch:
			if o.err != nil {
				results[o.name] = failedResult(o.name, o.err)
				continue
			}
			results[o.name] = o.res
		case <-ctx.Done():
			// Deadline passed: abandon the stragglers, keep what finished.
			for _, m := range a.modules {
				if _, ok := results[m.Name]; !ok {
					results[m.Name] = failedResult(m.Name, fmt.Errorf("timeout exceeded after %s", a.cfg.Timeout))
				}
			}
			return results
		}
	}
	return results
}

func failedResult(name string, err error) domain.IndicatorResult {
	return domain.IndicatorResult{
		Name:   name,
		Status: domain.StatusFailed,
		Err:    err.Error(),
	}
}

// plan derives the position plan, or the reason there is none. An AVOID
// signal and any sizing validation failure both yield a nil plan; a
// synthetic zero-size plan is never fabricated.
func (a *Analyzer) plan(symbol string, signal domain.Signal, direction domain.Direction, acct domain.AccountConfig, results map[string]domain.IndicatorResult) (*domain.PositionPlan, string) {
	if signal == domain.SignalAvoid {
		return nil, "signal AVOID"
	}

	atrRes := results[indicators.NameATRBreakout]
	stop := sizing.Stop{
		WorstLossPerUnit: acct.WorstLossPerUnit,
		Direction:        direction,
	}
	if atrRes.OK() {
		stop.Entry = atrRes.Detail[indicators.DetailEntry]
		stop.StopDistance = atrRes.Detail[indicators.DetailStopDistance]
	} else if acct.WorstLossPerUnit <= 0 {
		return nil, "stop distance unavailable: atr_breakout missing"
	}

	plan, err := a.sizer.Plan(acct, stop)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("position sizing rejected")
		return nil, err.Error()
	}
	return plan, ""
}
