package indicators

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
)

// calendarBias scores the seasonal edge of the request's weekday from
// historical daily returns. The subscore centers at 50 and shifts with the
// weekday's mean-return z-score against the full return distribution.
func calendarBias(cfg *config.Config) func(context.Context, data.Fetcher, Request) (domain.IndicatorResult, error) {
	days := cfg.Indicators.CalendarDays

	return func(ctx context.Context, fetch data.Fetcher, req Request) (domain.IndicatorResult, error) {
		ts, err := fetch.Fetch(ctx, data.SeriesID(req.Symbol, "1d"), days)
		if err != nil {
			return domain.IndicatorResult{}, err
		}
		if len(ts.Bars) < 20 {
			return domain.IndicatorResult{}, fmt.Errorf("calendar_bias: need 20 daily bars, have %d", len(ts.Bars))
		}

		all := make([]float64, 0, len(ts.Bars)-1)
		byDay := make(map[time.Weekday][]float64)
		for i := 1; i < len(ts.Bars); i++ {
			prev := ts.Bars[i-1].Close
			if prev == 0 {
				continue
			}
			r := ts.Bars[i].Close/prev - 1
			all = append(all, r)
			day := ts.Bars[i].Time.Weekday()
			byDay[day] = append(byDay[day], r)
		}

		weekday := req.AsOf.Weekday()
		dayReturns := byDay[weekday]
		if len(all) < 10 || len(dayReturns) < 2 {
			return domain.IndicatorResult{}, fmt.Errorf("calendar_bias: no return history for %s", weekday)
		}

		sd := stat.StdDev(all, nil)
		if sd == 0 {
			return domain.IndicatorResult{}, fmt.Errorf("calendar_bias: flat return distribution")
		}
		mean := stat.Mean(dayReturns, nil)
		z := mean / sd

		bias := 0.0
		switch {
		case z > 0:
			bias = 1
		case z < 0:
			bias = -1
		}

		return domain.IndicatorResult{
			Name:   NameCalendarBias,
			Value:  clamp(50+25*z, 0, 100),
			Status: domain.StatusOK,
			Detail: map[string]float64{
				DetailBias:   bias,
				DetailZScore: z,
			},
		}, nil
	}
}

// BiasOf maps a calendar_bias result to a directional lean.
func BiasOf(res domain.IndicatorResult) domain.Direction {
	switch {
	case res.Detail[DetailBias] > 0:
		return domain.DirectionLong
	case res.Detail[DetailBias] < 0:
		return domain.DirectionShort
	}
	return domain.DirectionNone
}
