package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tradeforge/conviction/internal/domain"
)

// FixtureFetcher serves series from an in-memory map. It backs offline CLI
// analysis and tests.
type FixtureFetcher struct {
	series map[string]domain.TimeSeries
}

// NewFixtureFetcher wraps a prepared series map.
func NewFixtureFetcher(series map[string]domain.TimeSeries) *FixtureFetcher {
	return &FixtureFetcher{series: series}
}

// LoadFixture reads a JSON fixture file of the form
// {"series": [{"id": "...", "bars": [...]}, ...]}.
func LoadFixture(path string) (*FixtureFetcher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var doc struct {
		Series []domain.TimeSeries `json:"series"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	series := make(map[string]domain.TimeSeries, len(doc.Series))
	for _, ts := range doc.Series {
		series[ts.ID] = ts
	}
	return &FixtureFetcher{series: series}, nil
}

// Fetch returns the trailing window of the stored series.
func (f *FixtureFetcher) Fetch(_ context.Context, seriesID string, window int) (domain.TimeSeries, error) {
	ts, ok := f.series[seriesID]
	if !ok {
		return domain.TimeSeries{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, seriesID)
	}
	return tail(ts, window), nil
}
