package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/conviction/internal/domain"
)

// wsClosingServer serves websocket connections that push the given messages
// and then close, so each dial sees a short-lived connection.
func wsClosingServer(t *testing.T, messages []barMessage) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}))
}

// wsServer serves one websocket connection that pushes the given messages
// and then holds the connection open.
func wsServer(t *testing.T, messages []barMessage) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range messages {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func waitForBars(t *testing.T, feed *StreamFeed, seriesID string, want int) domain.TimeSeries {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ts, err := feed.Fetch(context.Background(), seriesID, 0)
		if err == nil && len(ts.Bars) >= want {
			return ts
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("series %q never reached %d bars", seriesID, want)
	return domain.TimeSeries{}
}

func TestStreamFeed_AccumulatesBars(t *testing.T) {
	id := SeriesID("ES", "1d")
	bars := sampleBars(3)
	msgs := make([]barMessage, 0, len(bars)+1)
	for _, b := range bars {
		msgs = append(msgs, barMessage{SeriesID: id, Bar: b})
	}
	// Messages without a series ID are ignored.
	msgs = append(msgs, barMessage{Bar: bars[0]})

	srv := wsServer(t, msgs)
	defer srv.Close()

	feed := NewStreamFeed("ws"+strings.TrimPrefix(srv.URL, "http"), 100)
	ctx, cancel := context.WithCancel(context.Background())
	go feed.Run(ctx)
	defer func() {
		cancel()
		<-feed.Done()
	}()

	ts := waitForBars(t, feed, id, 3)
	require.Len(t, ts.Bars, 3)
	assert.Equal(t, bars[0].Close, ts.Bars[0].Close)
	assert.Equal(t, bars[2].Close, ts.Bars[2].Close)

	// An unknown series still reports not found.
	_, err := feed.Fetch(context.Background(), "ohlc:1d:NOPE", 0)
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestStreamFeed_ReplacesInProgressBar(t *testing.T) {
	id := SeriesID("ES", "1d")
	bars := sampleBars(2)
	update := bars[1]
	update.Close = update.Close + 3 // same open time, revised close

	srv := wsServer(t, []barMessage{
		{SeriesID: id, Bar: bars[0]},
		{SeriesID: id, Bar: bars[1]},
		{SeriesID: id, Bar: update},
	})
	defer srv.Close()

	feed := NewStreamFeed("ws"+strings.TrimPrefix(srv.URL, "http"), 100)
	ctx, cancel := context.WithCancel(context.Background())
	go feed.Run(ctx)
	defer func() {
		cancel()
		<-feed.Done()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ts, err := feed.Fetch(context.Background(), id, 0)
		if err == nil && len(ts.Bars) == 2 && ts.Bars[1].Close == update.Close {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("in-progress bar was never replaced")
}

func TestStreamFeed_WindowBound(t *testing.T) {
	id := SeriesID("ES", "1d")
	bars := sampleBars(10)
	msgs := make([]barMessage, len(bars))
	for i, b := range bars {
		msgs[i] = barMessage{SeriesID: id, Bar: b}
	}

	srv := wsServer(t, msgs)
	defer srv.Close()

	feed := NewStreamFeed("ws"+strings.TrimPrefix(srv.URL, "http"), 4)
	ctx, cancel := context.WithCancel(context.Background())
	go feed.Run(ctx)
	defer func() {
		cancel()
		<-feed.Done()
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ts, err := feed.Fetch(context.Background(), id, 0)
		if err == nil && len(ts.Bars) == 4 && ts.Bars[3].Close == bars[9].Close {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("retained window never converged to the newest 4 bars")
}

func TestStreamFeed_FetchSnapshotsUnderConcurrentUpdates(t *testing.T) {
	feed := NewStreamFeed("ws://unused", 10)
	id := SeriesID("ES", "1d")
	open := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Hammer the same in-progress bar with revisions while readers copy.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			v := float64(i)
			feed.append(id, domain.Bar{Time: open, Open: v, High: v, Low: v, Close: v, Volume: v})
		}
	}()

	for {
		ts, err := feed.Fetch(context.Background(), id, 0)
		if err == nil {
			for _, b := range ts.Bars {
				// Every revision writes one value to all fields; a torn
				// snapshot would mix two revisions in one bar.
				require.Equal(t, b.Open, b.Close)
				require.Equal(t, b.High, b.Low)
				require.Equal(t, b.Open, b.Volume)
			}
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestStreamFeed_ConsumeReleasesConnectionWatcher(t *testing.T) {
	id := SeriesID("ES", "1d")
	srv := wsClosingServer(t, []barMessage{{SeriesID: id, Bar: sampleBars(1)[0]}})
	defer srv.Close()

	feed := NewStreamFeed("ws"+strings.TrimPrefix(srv.URL, "http"), 10)

	// The context never cancels, so a watcher tied to it would park for
	// good; one leaked goroutine per reconnect adds up on a flapping feed.
	before := runtime.NumGoroutine()
	for i := 0; i < 5; i++ {
		err := feed.consume(context.Background())
		assert.Error(t, err, "the server closes every connection")
	}
	time.Sleep(50 * time.Millisecond)
	after := runtime.NumGoroutine()
	assert.LessOrEqual(t, after, before+1, "connection watchers must exit with their connection")
}
