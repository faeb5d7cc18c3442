package patterns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/conviction/internal/domain"
)

func bar(o, h, l, c float64) domain.Bar {
	return domain.Bar{Open: o, High: h, Low: l, Close: c}
}

// flatBars returns n quiet bars oscillating inside [99.5, 101].
func flatBars(n int) []domain.Bar {
	out := make([]domain.Bar, n)
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = bar(100, 101, 99.5, 100.5)
		out[i].Time = base.AddDate(0, 0, i)
	}
	return out
}

func types(ps []domain.Pattern) []domain.PatternType {
	out := make([]domain.PatternType, len(ps))
	for i, p := range ps {
		out[i] = p.Type
	}
	return out
}

func find(t *testing.T, ps []domain.Pattern, want domain.PatternType) domain.Pattern {
	t.Helper()
	for _, p := range ps {
		if p.Type == want {
			return p
		}
	}
	t.Fatalf("pattern %s not detected in %v", want, types(ps))
	return domain.Pattern{}
}

func TestScan_EmptyAndTinyWindows(t *testing.T) {
	d := New(DefaultConfig())
	assert.Nil(t, d.Scan(nil))
	assert.Nil(t, d.Scan(flatBars(1)))
	assert.Empty(t, d.Scan(flatBars(12)), "quiet bars must not produce patterns")
}

func TestScan_EngulfReversal(t *testing.T) {
	d := New(DefaultConfig())

	bars := flatBars(10)
	// Prior bar up, current bar engulfs both extremes and closes down.
	bars[8] = bar(100, 101, 99.8, 100.9)
	bars[9] = bar(100.9, 101.6, 99.2, 99.4)

	p := find(t, d.Scan(bars), domain.PatternEngulfReversal)
	assert.Equal(t, domain.DirectionShort, p.Direction)
	assert.Equal(t, 9, p.BarIndex)
	assert.Equal(t, 99.2, p.Confirmation, "confirmation is the engulfing bar's adverse extreme")
}

func TestScan_BreakReclaim(t *testing.T) {
	d := New(DefaultConfig())

	bars := flatBars(10)
	// Close breaks below the prior bar's low; the trigger is the break
	// bar's high.
	bars[9] = bar(100, 100.4, 98.6, 98.9)

	p := find(t, d.Scan(bars), domain.PatternBreakReclaim)
	assert.Equal(t, domain.DirectionLong, p.Direction)
	assert.Equal(t, 100.4, p.Confirmation)
}

func TestScan_HiddenBreak(t *testing.T) {
	d := New(DefaultConfig())

	bars := flatBars(10)
	// Up-close bar whose close sits in the bottom quartile of its range.
	bars[9] = bar(100, 104, 99.8, 100.2)

	p := find(t, d.Scan(bars), domain.PatternHiddenBreak)
	assert.Equal(t, domain.DirectionShort, p.Direction)
	assert.Equal(t, 99.8, p.Confirmation)
}

func TestScan_BoxFakeBreakoutReversal(t *testing.T) {
	d := New(Config{BoxBars: 6, ExpiryBars: 3, QuartileFrac: 0.25})

	bars := flatBars(12)
	// Box is [99.5, 101]; the last bar pokes above the box high and closes
	// back inside.
	bars[11] = bar(100.8, 101.9, 100.2, 100.4)

	p := find(t, d.Scan(bars), domain.PatternBoxFakeBreakout)
	assert.Equal(t, domain.DirectionShort, p.Direction)
	assert.Equal(t, 99.5, p.Confirmation, "trigger is the opposite box boundary")
}

func TestScan_GapRecover(t *testing.T) {
	d := New(DefaultConfig())

	bars := flatBars(10)
	// Gap below the prior low, then a close back above the prior close.
	bars[9] = bar(99.0, 101.2, 98.9, 100.9)

	p := find(t, d.Scan(bars), domain.PatternGapRecover)
	assert.Equal(t, domain.DirectionLong, p.Direction)
}

func TestScan_MultiplePatternsSimultaneously(t *testing.T) {
	d := New(Config{BoxBars: 6, ExpiryBars: 3, QuartileFrac: 0.25})

	bars := flatBars(12)
	// Bar 10: fake upside box breakout closing back inside the box.
	bars[10] = bar(100.8, 101.9, 100.2, 100.4)
	// Bar 11: gap above the prior high, closing back below the prior close.
	bars[11] = bar(102.3, 102.5, 99.9, 100.1)

	active := d.Scan(bars)
	got := types(active)
	assert.Contains(t, got, domain.PatternBoxFakeBreakout)
	assert.Contains(t, got, domain.PatternGapRecover)
	require.GreaterOrEqual(t, len(active), 2, "independent recognizers must both report")
}

func TestScan_PatternExpiry(t *testing.T) {
	d := New(Config{BoxBars: 6, ExpiryBars: 2, QuartileFrac: 0.25})

	bars := flatBars(9)
	bars[8] = bar(100.9, 101.6, 99.2, 99.4) // engulf signal bar
	require.NotEmpty(t, d.Scan(bars))

	// Three quiet bars later the signal bar is beyond the expiry horizon.
	expired := append(append([]domain.Bar{}, bars...), flatBars(3)...)
	for _, p := range d.Scan(expired) {
		assert.NotEqual(t, domain.PatternEngulfReversal, p.Type, "expired pattern must not stay active")
	}
}

func TestScan_AtMostOnePatternPerRecognizer(t *testing.T) {
	d := New(DefaultConfig())

	bars := flatBars(10)
	// Two consecutive engulf formations; only the most recent is reported.
	bars[7] = bar(100, 101, 99.8, 100.9)
	bars[8] = bar(100.9, 101.6, 99.2, 99.4)
	bars[9] = bar(99.4, 102.0, 99.0, 101.8)

	count := 0
	for _, p := range d.Scan(bars) {
		if p.Type == domain.PatternEngulfReversal {
			count++
			assert.Equal(t, 9, p.BarIndex)
		}
	}
	assert.Equal(t, 1, count)
}

func TestScan_Deterministic(t *testing.T) {
	d := New(DefaultConfig())
	bars := flatBars(12)
	bars[10] = bar(100.8, 101.9, 100.2, 100.4)
	bars[11] = bar(102.3, 102.5, 99.9, 100.1)

	first := d.Scan(bars)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Scan(bars))
	}
}
