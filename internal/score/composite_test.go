package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/domain"
)

func okResult(name string, value float64) domain.IndicatorResult {
	return domain.IndicatorResult{Name: name, Value: value, Status: domain.StatusOK}
}

func failedResult(name string) domain.IndicatorResult {
	return domain.IndicatorResult{Name: name, Status: domain.StatusFailed, Err: "fetch failed"}
}

func TestComposite_WeightedAverage(t *testing.T) {
	weights := []Weighted{{"a", 0.5}, {"b", 0.3}, {"c", 0.2}}
	results := map[string]domain.IndicatorResult{
		"a": okResult("a", 80),
		"b": okResult("b", 60),
		"c": okResult("c", 40),
	}

	out := Composite(weights, results, nil, 70)
	assert.InDelta(t, 66.0, out.RawWeightedSum, 1e-9)
	assert.Equal(t, out.RawWeightedSum, out.FinalScore)
	assert.False(t, out.Capped)
}

func TestComposite_FailedExcludedFromBothSides(t *testing.T) {
	// Excluding a FAILED indicator must be equivalent to setting its weight
	// to zero on a full run: missing data shifts weight, it never scores
	// as zero.
	weights := []Weighted{{"a", 0.5}, {"b", 0.3}, {"c", 0.2}}
	withFailure := map[string]domain.IndicatorResult{
		"a": okResult("a", 80),
		"b": okResult("b", 60),
		"c": failedResult("c"),
	}
	zeroWeight := []Weighted{{"a", 0.5}, {"b", 0.3}, {"c", 0}}
	allOK := map[string]domain.IndicatorResult{
		"a": okResult("a", 80),
		"b": okResult("b", 60),
		"c": okResult("c", 999),
	}

	got := Composite(weights, withFailure, nil, 70)
	want := Composite(zeroWeight, allOK, nil, 70)
	assert.Equal(t, want.RawWeightedSum, got.RawWeightedSum)
	assert.InDelta(t, 72.5, got.RawWeightedSum, 1e-9)
}

func TestComposite_OrderIndependent(t *testing.T) {
	results := map[string]domain.IndicatorResult{
		"a": okResult("a", 91),
		"b": okResult("b", 33),
		"c": okResult("c", 57),
		"d": okResult("d", 12),
	}
	weights := []Weighted{{"a", 0.4}, {"b", 0.3}, {"c", 0.2}, {"d", 0.1}}
	permuted := []Weighted{{"d", 0.1}, {"c", 0.2}, {"a", 0.4}, {"b", 0.3}}

	first := Composite(weights, results, nil, 70)
	second := Composite(permuted, results, nil, 70)
	assert.InDelta(t, first.RawWeightedSum, second.RawWeightedSum, 1e-9)
	assert.InDelta(t, first.FinalScore, second.FinalScore, 1e-9)
}

func TestComposite_SoftDeductionsAndClamp(t *testing.T) {
	weights := []Weighted{{"a", 1}}
	results := map[string]domain.IndicatorResult{"a": okResult("a", 20)}
	checks := []domain.GateCheck{
		{Name: "calendar_misalignment", Kind: domain.GateSoft, Triggered: true, Penalty: 15},
		{Name: "overextension", Kind: domain.GateSoft, Triggered: true, Penalty: 10},
	}

	out := Composite(weights, results, checks, 70)
	assert.Equal(t, 0.0, out.FinalScore, "deductions clamp at zero, never below")
	assert.False(t, out.Capped)
	require.Len(t, out.GateAdjustments, 2)
	assert.Equal(t, domain.GateAdjustment{Gate: "calendar_misalignment", Effect: -15}, out.GateAdjustments[0])
}

func TestComposite_HardGateCapsOnly(t *testing.T) {
	weights := []Weighted{{"a", 1}}
	checks := []domain.GateCheck{
		{Name: "confirmation", Kind: domain.GateHard, Triggered: true},
	}

	high := Composite(weights, map[string]domain.IndicatorResult{"a": okResult("a", 96)}, checks, 70)
	assert.True(t, high.Capped)
	assert.Equal(t, 70.0, high.FinalScore, "hard gate clamps a high score to the ceiling")

	low := Composite(weights, map[string]domain.IndicatorResult{"a": okResult("a", 30)}, checks, 70)
	assert.True(t, low.Capped)
	assert.Equal(t, 30.0, low.FinalScore, "hard gate never raises a low score")
}

func TestComposite_UntriggeredGatesNoEffect(t *testing.T) {
	weights := []Weighted{{"a", 1}}
	checks := []domain.GateCheck{
		{Name: "confirmation", Kind: domain.GateHard, Triggered: false},
		{Name: "calendar_misalignment", Kind: domain.GateSoft, Triggered: false, Penalty: 15},
		{Name: "overextension", Kind: domain.GateSoft, Skipped: true, Penalty: 10},
	}

	out := Composite(weights, map[string]domain.IndicatorResult{"a": okResult("a", 88)}, checks, 70)
	assert.Equal(t, 88.0, out.FinalScore)
	assert.False(t, out.Capped)
	assert.Empty(t, out.GateAdjustments)
}

func TestComposite_NoUsableIndicators(t *testing.T) {
	weights := []Weighted{{"a", 0.6}, {"b", 0.4}}
	results := map[string]domain.IndicatorResult{
		"a": failedResult("a"),
		"b": failedResult("b"),
	}

	out := Composite(weights, results, nil, 70)
	assert.Equal(t, 0.0, out.RawWeightedSum)
	assert.Equal(t, 0.0, out.FinalScore)
}

func TestComposite_BoundsProperty(t *testing.T) {
	weights := []Weighted{{"a", 0.7}, {"b", 0.3}}
	for _, a := range []float64{0, 25, 50, 75, 100} {
		for _, b := range []float64{0, 50, 100} {
			for _, penalty := range []float64{0, 40, 100} {
				checks := []domain.GateCheck{
					{Name: "soft", Kind: domain.GateSoft, Triggered: penalty > 0, Penalty: penalty},
					{Name: "hard", Kind: domain.GateHard, Triggered: a > 50},
				}
				results := map[string]domain.IndicatorResult{
					"a": okResult("a", a),
					"b": okResult("b", b),
				}
				out := Composite(weights, results, checks, 70)
				assert.GreaterOrEqual(t, out.FinalScore, 0.0)
				assert.LessOrEqual(t, out.FinalScore, 100.0)
				if a > 50 {
					assert.LessOrEqual(t, out.FinalScore, 70.0, "capped run must stay at or below the ceiling")
				}
			}
		}
	}
}

func TestClassify_BandsAndBoundaryTies(t *testing.T) {
	bands := config.Default().Bands

	cases := []struct {
		score float64
		want  domain.Signal
	}{
		{0, domain.SignalAvoid},
		{50, domain.SignalAvoid},
		{50.1, domain.SignalHold},
		{70, domain.SignalHold},
		{70.1, domain.SignalBuy},
		{85, domain.SignalBuy},
		{85.1, domain.SignalStrongBuy},
		{100, domain.SignalStrongBuy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.score, bands), "score %.1f", tc.score)
	}
}

func TestClassify_HardCapCeilingYieldsAtMostHold(t *testing.T) {
	bands := config.Default().Bands
	capCeiling := config.Default().Gates.CapCeiling

	got := Classify(capCeiling, bands)
	assert.LessOrEqual(t, got.Rank(), domain.SignalHold.Rank(),
		"a capped score must classify at or below HOLD")
}
