// Package patterns implements the structural pattern detector: a family of
// small, independent recognizers that scan a bounded window of recent OHLC
// bars for named formations. Each recognizer emits at most one Pattern per
// scan; the detector's output is the union of all patterns still active
// (signal bar within the expiry horizon). The gate evaluator consumes this
// union as its confirmation input.
package patterns

import (
	"github.com/tradeforge/conviction/internal/domain"
)

// Config bounds the detector. Zero values pick the defaults.
type Config struct {
	// BoxBars is the number of bars that establish a consolidation box.
	BoxBars int
	// ExpiryBars is how many bars after the signal bar a pattern stays
	// active while awaiting confirmation.
	ExpiryBars int
	// QuartileFrac is the outer-quartile fraction for hidden-break close
	// placement (0.25 means the close must sit in the outer 25% of range).
	QuartileFrac float64
}

// DefaultConfig returns the production detector configuration.
func DefaultConfig() Config {
	return Config{
		BoxBars:      6,
		ExpiryBars:   3,
		QuartileFrac: 0.25,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BoxBars < 3 {
		c.BoxBars = d.BoxBars
	}
	if c.ExpiryBars <= 0 {
		c.ExpiryBars = d.ExpiryBars
	}
	if c.QuartileFrac <= 0 || c.QuartileFrac >= 0.5 {
		c.QuartileFrac = d.QuartileFrac
	}
	return c
}

// Detector runs every recognizer over a bar window. Detectors share no
// mutable state; a Detector is safe for concurrent use.
type Detector struct {
	cfg Config
}

// New creates a Detector with the given configuration.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

type recognizer func(cfg Config, bars []domain.Bar, from, last int) (domain.Pattern, bool)

// Recognizers run in a fixed order so the emitted union is deterministic.
var recognizers = []recognizer{
	detectEngulfReversal,
	detectBreakReclaim,
	detectHiddenBreak,
	detectBoxFakeBreakout,
	detectGapRecover,
}

// Scan evaluates every recognizer over the window and returns the union of
// active patterns. Bars must be ordered oldest to newest; windows too short
// for a given recognizer simply yield no pattern from it.
func (d *Detector) Scan(bars []domain.Bar) []domain.Pattern {
	last := len(bars) - 1
	if last < 1 {
		return nil
	}
	from := last - d.cfg.ExpiryBars
	if from < 1 {
		from = 1
	}
	var out []domain.Pattern
	for _, detect := range recognizers {
		if p, ok := detect(d.cfg, bars, from, last); ok {
			out = append(out, p)
		}
	}
	return out
}

// detectEngulfReversal finds a bar whose range engulfs the prior bar's range
// and which closes against the prior bar's direction. Confirmation is the
// next bar crossing the engulfing bar's extreme.
func detectEngulfReversal(_ Config, bars []domain.Bar, from, last int) (domain.Pattern, bool) {
	for i := last; i >= from; i-- {
		cur, prev := bars[i], bars[i-1]
		if cur.High <= prev.High || cur.Low >= prev.Low {
			continue
		}
		switch {
		case prev.Up() && cur.Close < cur.Open:
			return domain.Pattern{
				Type:         domain.PatternEngulfReversal,
				BarIndex:     i,
				Confirmation: cur.Low,
				Direction:    domain.DirectionShort,
			}, true
		case !prev.Up() && cur.Close > cur.Open:
			return domain.Pattern{
				Type:         domain.PatternEngulfReversal,
				BarIndex:     i,
				Confirmation: cur.High,
				Direction:    domain.DirectionLong,
			}, true
		}
	}
	return domain.Pattern{}, false
}

// detectBreakReclaim finds a close beyond the prior bar's extreme; the
// trigger level is the break bar's opposite extreme.
func detectBreakReclaim(_ Config, bars []domain.Bar, from, last int) (domain.Pattern, bool) {
	for i := last; i >= from; i-- {
		cur, prev := bars[i], bars[i-1]
		switch {
		case cur.Close < prev.Low:
			return domain.Pattern{
				Type:         domain.PatternBreakReclaim,
				BarIndex:     i,
				Confirmation: cur.High,
				Direction:    domain.DirectionLong,
			}, true
		case cur.Close > prev.High:
			return domain.Pattern{
				Type:         domain.PatternBreakReclaim,
				BarIndex:     i,
				Confirmation: cur.Low,
				Direction:    domain.DirectionShort,
			}, true
		}
	}
	return domain.Pattern{}, false
}

// detectHiddenBreak finds a bar whose close finishes in the outer quartile
// of its own range opposite to its net direction: an up-close bar closing in
// the bottom quartile hides selling, and vice versa. Trigger rule matches
// break-then-reclaim.
func detectHiddenBreak(cfg Config, bars []domain.Bar, from, last int) (domain.Pattern, bool) {
	for i := last; i >= from; i-- {
		cur := bars[i]
		rng := cur.Range()
		if rng <= 0 {
			continue
		}
		switch {
		case cur.Up() && cur.Close <= cur.Low+cfg.QuartileFrac*rng:
			return domain.Pattern{
				Type:         domain.PatternHiddenBreak,
				BarIndex:     i,
				Confirmation: cur.Low,
				Direction:    domain.DirectionShort,
			}, true
		case !cur.Up() && cur.Close != cur.Open && cur.Close >= cur.High-cfg.QuartileFrac*rng:
			return domain.Pattern{
				Type:         domain.PatternHiddenBreak,
				BarIndex:     i,
				Confirmation: cur.High,
				Direction:    domain.DirectionLong,
			}, true
		}
	}
	return domain.Pattern{}, false
}

// detectBoxFakeBreakout finds a multi-bar high/low box whose extreme is
// briefly exceeded with the close back inside. Trigger is the reversal
// through the opposite box boundary.
func detectBoxFakeBreakout(cfg Config, bars []domain.Bar, from, last int) (domain.Pattern, bool) {
	for i := last; i >= from; i-- {
		if i < cfg.BoxBars {
			continue
		}
		boxHigh, boxLow := boxBounds(bars[i-cfg.BoxBars : i])
		cur := bars[i]
		switch {
		case cur.High > boxHigh && cur.Close < boxHigh && cur.Close > boxLow:
			return domain.Pattern{
				Type:         domain.PatternBoxFakeBreakout,
				BarIndex:     i,
				Confirmation: boxLow,
				Direction:    domain.DirectionShort,
			}, true
		case cur.Low < boxLow && cur.Close > boxLow && cur.Close < boxHigh:
			return domain.Pattern{
				Type:         domain.PatternBoxFakeBreakout,
				BarIndex:     i,
				Confirmation: boxHigh,
				Direction:    domain.DirectionLong,
			}, true
		}
	}
	return domain.Pattern{}, false
}

// detectGapRecover finds an open gapping beyond the prior bar's range with
// the close back through the prior close.
func detectGapRecover(_ Config, bars []domain.Bar, from, last int) (domain.Pattern, bool) {
	for i := last; i >= from; i-- {
		cur, prev := bars[i], bars[i-1]
		switch {
		case cur.Open < prev.Low && cur.Close > prev.Close:
			return domain.Pattern{
				Type:         domain.PatternGapRecover,
				BarIndex:     i,
				Confirmation: cur.High,
				Direction:    domain.DirectionLong,
			}, true
		case cur.Open > prev.High && cur.Close < prev.Close:
			return domain.Pattern{
				Type:         domain.PatternGapRecover,
				BarIndex:     i,
				Confirmation: cur.Low,
				Direction:    domain.DirectionShort,
			}, true
		}
	}
	return domain.Pattern{}, false
}

func boxBounds(bars []domain.Bar) (high, low float64) {
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}
