// Package data defines the fetch boundary the engine consumes time series
// through, plus the decorators that harden it: a Redis read-through cache,
// a circuit-breaker/rate-limit guard and a websocket stream feed. The engine
// itself only sees the Fetcher interface; any series may fail independently
// and the engine degrades instead of aborting.
package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradeforge/conviction/internal/domain"
)

// ErrSeriesNotFound indicates the source has no data for the requested ID.
var ErrSeriesNotFound = errors.New("series not found")

// Fetcher retrieves one time series by ID. Implementations must return a
// snapshot the caller owns; the engine treats it as read-only input.
type Fetcher interface {
	Fetch(ctx context.Context, seriesID string, window int) (domain.TimeSeries, error)
}

// SeriesID builds the canonical series key for a symbol and timeframe,
// e.g. "ohlc:1d:ES".
func SeriesID(symbol, timeframe string) string {
	return fmt.Sprintf("ohlc:%s:%s", timeframe, symbol)
}

// tail returns the trailing window of bars, or all bars when the series is
// shorter than the window.
func tail(ts domain.TimeSeries, window int) domain.TimeSeries {
	if window <= 0 || len(ts.Bars) <= window {
		return ts
	}
	out := domain.TimeSeries{ID: ts.ID}
	out.Bars = append(out.Bars, ts.Bars[len(ts.Bars)-window:]...)
	return out
}
