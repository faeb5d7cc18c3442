package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tradeforge/conviction/internal/domain"
)

// barMessage is the wire format of one streamed bar update.
type barMessage struct {
	SeriesID string     `json:"series_id"`
	Bar      domain.Bar `json:"bar"`
}

// StreamFeed consumes a websocket feed of bar updates and keeps a bounded
// rolling window per series. It implements Fetcher over the accumulated
// windows, so live analysis reads the same boundary as offline analysis.
type StreamFeed struct {
	url     string
	maxBars int

	mu     sync.RWMutex
	series map[string][]domain.Bar

	done chan struct{}
}

// NewStreamFeed creates a feed for the given websocket URL. maxBars bounds
// the retained window per series.
func NewStreamFeed(url string, maxBars int) *StreamFeed {
	if maxBars <= 0 {
		maxBars = 500
	}
	return &StreamFeed{
		url:     url,
		maxBars: maxBars,
		series:  make(map[string][]domain.Bar),
		done:    make(chan struct{}),
	}
}

// Run connects and consumes until the context is cancelled, reconnecting
// with a fixed backoff on read or dial errors.
func (s *StreamFeed) Run(ctx context.Context) {
	defer close(s.done)
	backoff := time.Second
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Str("url", s.url).Msg("stream feed disconnected, retrying")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (s *StreamFeed) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()
	log.Info().Str("url", s.url).Msg("stream feed connected")

	// The watcher must not outlive this connection, or a flapping feed
	// accumulates one parked goroutine per reconnect.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-connDone:
		}
	}()

	for {
		var msg barMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read bar message: %w", err)
		}
		if msg.SeriesID == "" {
			continue
		}
		s.append(msg.SeriesID, msg.Bar)
	}
}

func (s *StreamFeed) append(seriesID string, bar domain.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bars := s.series[seriesID]
	// Replace an in-progress bar update for the same open time.
	if n := len(bars); n > 0 && bars[n-1].Time.Equal(bar.Time) {
		bars[n-1] = bar
	} else {
		bars = append(bars, bar)
	}
	if len(bars) > s.maxBars {
		bars = bars[len(bars)-s.maxBars:]
	}
	s.series[seriesID] = bars
}

// Fetch returns a copy of the trailing window of the accumulated series.
// The copy is taken under the read lock: append revises the last bar and
// extends the same backing array in place, so the snapshot must complete
// before the lock is released.
func (s *StreamFeed) Fetch(_ context.Context, seriesID string, window int) (domain.TimeSeries, error) {
	s.mu.RLock()
	bars, ok := s.series[seriesID]
	if !ok || len(bars) == 0 {
		s.mu.RUnlock()
		return domain.TimeSeries{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, seriesID)
	}
	snapshot := append([]domain.Bar(nil), bars...)
	s.mu.RUnlock()

	return tail(domain.TimeSeries{ID: seriesID, Bars: snapshot}, window), nil
}

// Done is closed once Run has exited.
func (s *StreamFeed) Done() <-chan struct{} {
	return s.done
}
