// Package config defines the methodology configuration: the named indicator
// weights, gate thresholds and penalties, signal bands and sizing limits
// that customize the analysis engine per methodology. The struct is built
// once and injected; nothing in here is global or mutated after load.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// IndicatorWeight names one registered indicator and its weight in the
// composite score. A zero weight keeps the indicator in the registry
// (its output may feed gates) without contributing to the weighted sum.
type IndicatorWeight struct {
	Name   string  `yaml:"name" validate:"required"`
	Weight float64 `yaml:"weight" validate:"gte=0"`
}

// GatesConfig holds gate thresholds and soft-gate penalties. Penalty values
// are methodology-specific data, not part of the engine contract.
type GatesConfig struct {
	// CapCeiling is the score a triggered hard gate clamps to. It defaults
	// to the HOLD band ceiling so a hard gate can never authorize action.
	CapCeiling float64 `yaml:"cap_ceiling" default:"70" validate:"gte=0,lte=100"`

	CalendarPenalty      float64 `yaml:"calendar_penalty" default:"15" validate:"gte=0,lte=100"`
	OverextensionPenalty float64 `yaml:"overextension_penalty" default:"10" validate:"gte=0,lte=100"`

	// Oscillator extreme zones for the overextension soft gate.
	Overbought float64 `yaml:"overbought" default:"80" validate:"gt=0,lte=100"`
	Oversold   float64 `yaml:"oversold" default:"20" validate:"gte=0,lt=100"`
}

// BandsConfig maps the conviction score to the ordered signal enum. A score
// exactly on a boundary classifies into the lower band.
type BandsConfig struct {
	StrongBuy float64 `yaml:"strong_buy" default:"85" validate:"gt=0,lte=100"`
	Buy       float64 `yaml:"buy" default:"70" validate:"gt=0,lte=100"`
	Hold      float64 `yaml:"hold" default:"50" validate:"gte=0,lte=100"`
}

// SizingConfig bounds the position sizing engine.
type SizingConfig struct {
	// MaxRiskFraction is the hard ceiling for the per-request risk fraction.
	MaxRiskFraction float64 `yaml:"max_risk_fraction" default:"0.04" validate:"gt=0,lte=0.04"`
	// UnitMultiplier converts a stop distance in price terms to dollars per
	// unit (contract point value; 1.0 for shares).
	UnitMultiplier float64 `yaml:"unit_multiplier" default:"1" validate:"gt=0"`
	// ATRStopMultiple sets the stop distance as a multiple of ATR.
	ATRStopMultiple float64 `yaml:"atr_stop_multiple" default:"2" validate:"gt=0"`
}

// PatternsConfig bounds the structural pattern detector.
type PatternsConfig struct {
	// Window is the number of most recent bars each detector scans.
	Window int `yaml:"window" default:"8" validate:"gte=5,lte=10"`
	// ExpiryBars is how many bars a detected pattern stays active while
	// awaiting confirmation.
	ExpiryBars int `yaml:"expiry_bars" default:"3" validate:"gte=1"`
	// Box quartile fraction for hidden-break close placement.
	QuartileFrac float64 `yaml:"quartile_frac" default:"0.25" validate:"gt=0,lt=0.5"`
}

// IndicatorsConfig holds per-indicator computation parameters.
type IndicatorsConfig struct {
	ATRPeriod    int `yaml:"atr_period" default:"14" validate:"gte=2"`
	RSIPeriod    int `yaml:"rsi_period" default:"14" validate:"gte=2"`
	ADXPeriod    int `yaml:"adx_period" default:"14" validate:"gte=2"`
	EMAFast      int `yaml:"ema_fast" default:"9" validate:"gte=2"`
	EMASlow      int `yaml:"ema_slow" default:"21" validate:"gte=3"`
	CalendarDays int `yaml:"calendar_days" default:"120" validate:"gte=30"`
}

// Config is the full methodology configuration injected into the engine.
type Config struct {
	Name      string `yaml:"name" default:"default" validate:"required"`
	Timeframe string `yaml:"timeframe" default:"1d" validate:"required"`
	// Lookback is the number of bars fetched for indicator computation.
	Lookback int `yaml:"lookback" default:"120" validate:"gte=30"`
	// Timeout is the orchestrator's global fan-out budget.
	Timeout time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`

	Weights    []IndicatorWeight `yaml:"weights" validate:"min=1,dive"`
	Gates      GatesConfig       `yaml:"gates"`
	Bands      BandsConfig       `yaml:"bands"`
	Sizing     SizingConfig      `yaml:"sizing"`
	Patterns   PatternsConfig    `yaml:"patterns"`
	Indicators IndicatorsConfig  `yaml:"indicators"`
}

// Default returns the built-in methodology configuration.
func Default() *Config {
	cfg := &Config{
		Weights: []IndicatorWeight{
			{Name: "atr_breakout", Weight: 0.25},
			{Name: "oscillator", Weight: 0.25},
			{Name: "trend_filter", Weight: 0.35},
			{Name: "calendar_bias", Weight: 0.15},
			{Name: "pattern_scan", Weight: 0},
		},
	}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads a methodology configuration from a YAML file, applies defaults
// for absent fields and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if len(cfg.Weights) == 0 {
		cfg.Weights = Default().Weights
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints plus the cross-field rules the
// tag language cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Bands.Hold >= c.Bands.Buy || c.Bands.Buy >= c.Bands.StrongBuy {
		return fmt.Errorf("invalid config: signal bands must be strictly ordered hold < buy < strong_buy")
	}
	if c.Gates.Oversold >= c.Gates.Overbought {
		return fmt.Errorf("invalid config: oversold %.1f must be below overbought %.1f",
			c.Gates.Oversold, c.Gates.Overbought)
	}
	if c.Indicators.EMAFast >= c.Indicators.EMASlow {
		return fmt.Errorf("invalid config: ema_fast %d must be below ema_slow %d",
			c.Indicators.EMAFast, c.Indicators.EMASlow)
	}
	total := 0.0
	for _, w := range c.Weights {
		total += w.Weight
	}
	if total <= 0 {
		return fmt.Errorf("invalid config: indicator weights sum to zero")
	}
	return nil
}

// Weight returns the configured weight for an indicator name, zero when the
// indicator is not weighted.
func (c *Config) Weight(name string) float64 {
	for _, w := range c.Weights {
		if w.Name == name {
			return w.Weight
		}
	}
	return 0
}
