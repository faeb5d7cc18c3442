// Package domain holds the core data model shared by the analysis engine:
// indicator results, gates, patterns, scores, signals and position plans.
// Everything here is created fresh per analysis request and never mutated
// after construction.
package domain

import (
	"time"
)

// Bar is a single OHLCV bar. Time is the bar open time.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Range returns high minus low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Up reports whether the bar closed above its open.
func (b Bar) Up() bool {
	return b.Close > b.Open
}

// TimeSeries is an immutable snapshot of bars for one series ID,
// ordered oldest to newest.
type TimeSeries struct {
	ID   string `json:"id"`
	Bars []Bar  `json:"bars"`
}

// Last returns the most recent bar. The second return is false when the
// series is empty.
func (ts TimeSeries) Last() (Bar, bool) {
	if len(ts.Bars) == 0 {
		return Bar{}, false
	}
	return ts.Bars[len(ts.Bars)-1], true
}

// Closes extracts the close column.
func (ts TimeSeries) Closes() []float64 {
	out := make([]float64, len(ts.Bars))
	for i, b := range ts.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (ts TimeSeries) Highs() []float64 {
	out := make([]float64, len(ts.Bars))
	for i, b := range ts.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (ts TimeSeries) Lows() []float64 {
	out := make([]float64, len(ts.Bars))
	for i, b := range ts.Bars {
		out[i] = b.Low
	}
	return out
}

// Status marks whether an indicator computation produced a usable value.
type Status string

const (
	StatusOK     Status = "OK"
	StatusFailed Status = "FAILED"
)

// IndicatorResult is the output of one indicator module. Value is the
// indicator's normalized 0-100 subscore where the indicator participates in
// weighting; Detail carries structured extras (stop distances, trend
// direction) keyed by stable names. Patterns is populated only by the
// pattern-scan computation.
type IndicatorResult struct {
	Name     string             `json:"name"`
	Value    float64            `json:"value"`
	Detail   map[string]float64 `json:"detail,omitempty"`
	Patterns []Pattern          `json:"patterns,omitempty"`
	Status   Status             `json:"status"`
	Err      string             `json:"error,omitempty"`
}

// OK reports whether the computation succeeded.
func (r IndicatorResult) OK() bool {
	return r.Status == StatusOK
}

// Direction of a proposed trade or detected pattern.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Opposite returns the opposing direction; NONE maps to NONE.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	}
	return DirectionNone
}

// Trend of the correlated reference instrument, supplied by the caller.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// Signal is the discrete trading signal derived from the conviction score.
// Order matters: STRONG_BUY > BUY > HOLD > AVOID.
type Signal string

const (
	SignalStrongBuy Signal = "STRONG_BUY"
	SignalBuy       Signal = "BUY"
	SignalHold      Signal = "HOLD"
	SignalAvoid     Signal = "AVOID"
)

var signalRank = map[Signal]int{
	SignalAvoid:     0,
	SignalHold:      1,
	SignalBuy:       2,
	SignalStrongBuy: 3,
}

// Rank returns the ordinal position of the signal, AVOID lowest.
func (s Signal) Rank() int {
	return signalRank[s]
}

// GateKind distinguishes disqualifying gates from penalizing ones.
type GateKind string

const (
	GateHard GateKind = "HARD"
	GateSoft GateKind = "SOFT"
)

// GateCheck records the outcome of one gate evaluation. A gate whose
// required indicator failed is Skipped (neither triggered nor passed).
type GateCheck struct {
	Name       string   `json:"name"`
	Kind       GateKind `json:"kind"`
	Triggered  bool     `json:"triggered"`
	Skipped    bool     `json:"skipped,omitempty"`
	SkipReason string   `json:"skip_reason,omitempty"`
	Penalty    float64  `json:"penalty,omitempty"`
	Reason     string   `json:"reason"`
}

// GateAdjustment is one entry in the ordered adjustment trail of a
// composite score: a soft-gate deduction or a hard-gate cap.
type GateAdjustment struct {
	Gate   string  `json:"gate"`
	Effect float64 `json:"effect"`
}

// CompositeScore is the bounded conviction score with its adjustment trail.
// FinalScore is always within [0,100]; Capped reports that a hard gate
// triggered and the cap ceiling applied.
type CompositeScore struct {
	RawWeightedSum  float64          `json:"raw_weighted_sum"`
	GateAdjustments []GateAdjustment `json:"gate_adjustments"`
	FinalScore      float64          `json:"final_score"`
	Capped          bool             `json:"capped"`
}

// PatternType enumerates the named structural patterns the detector knows.
type PatternType string

const (
	PatternEngulfReversal  PatternType = "ENGULF_REVERSAL"
	PatternBreakReclaim    PatternType = "BREAK_RECLAIM"
	PatternHiddenBreak     PatternType = "HIDDEN_BREAK"
	PatternBoxFakeBreakout PatternType = "BOX_FAKE_BREAKOUT_REVERSAL"
	PatternGapRecover      PatternType = "GAP_RECOVER"
)

// Pattern is a detected structural event within the scan window. BarIndex
// is the index of the signal bar inside the scanned window; Confirmation is
// the price level that validates the pattern.
type Pattern struct {
	Type         PatternType `json:"type"`
	BarIndex     int         `json:"bar_index"`
	Confirmation float64     `json:"confirmation_level"`
	Direction    Direction   `json:"direction"`
}

// PositionPlan is a deterministic, risk-bounded trade size. Degenerate stop
// inputs fail sizing with an explicit error instead of emitting a plan that
// could be misread as "no position".
type PositionPlan struct {
	Units      int64   `json:"contracts_or_shares"`
	DollarRisk float64 `json:"dollar_risk"`
	StopPrice  float64 `json:"stop_price"`
	EntryPrice float64 `json:"entry_price"`
}

// AccountConfig is the per-request account and risk input supplied by the
// calling harness.
type AccountConfig struct {
	Equity           float64 `json:"equity"`
	RiskFraction     float64 `json:"risk_fraction"`
	ReferenceTrend   Trend   `json:"reference_instrument_trend"`
	WorstLossPerUnit float64 `json:"worst_loss_per_unit,omitempty"`
}

// AnalysisResult is the structured response of one analyze call. It contains
// no wall-clock fields so that identical inputs reproduce identical bytes.
type AnalysisResult struct {
	Symbol            string         `json:"symbol"`
	AsOf              time.Time      `json:"as_of"`
	ConvictionScore   float64        `json:"conviction_score"`
	Signal            Signal         `json:"signal"`
	Score             CompositeScore `json:"score"`
	MissingComponents []string       `json:"missing_components"`
	ActivePatterns    []Pattern      `json:"active_patterns"`
	GateReport        []GateCheck    `json:"gate_report"`
	PositionPlan      *PositionPlan  `json:"position_plan"`
	PlanReason        string         `json:"plan_reason,omitempty"`
}
