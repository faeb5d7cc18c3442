package score

import (
	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/domain"
)

// Classify maps a final conviction score to the ordered signal enum using
// the configured non-overlapping bands. A score exactly on a boundary
// resolves to the lower, more conservative band.
func Classify(final float64, bands config.BandsConfig) domain.Signal {
	switch {
	case final > bands.StrongBuy:
		return domain.SignalStrongBuy
	case final > bands.Buy:
		return domain.SignalBuy
	case final > bands.Hold:
		return domain.SignalHold
	default:
		return domain.SignalAvoid
	}
}
