package data

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/conviction/internal/domain"
)

type countingFetcher struct {
	inner Fetcher
	calls int
}

func (f *countingFetcher) Fetch(ctx context.Context, seriesID string, window int) (domain.TimeSeries, error) {
	f.calls++
	return f.inner.Fetch(ctx, seriesID, window)
}

func cacheFixture() (*countingFetcher, domain.TimeSeries, string) {
	id := SeriesID("ES", "1d")
	full := domain.TimeSeries{ID: id, Bars: sampleBars(20)}
	source := &countingFetcher{inner: NewFixtureFetcher(map[string]domain.TimeSeries{id: full})}
	return source, tail(full, 10), id
}

func TestCachedFetcher_MissThenStore(t *testing.T) {
	source, want, id := cacheFixture()
	client, mock := redismock.NewClientMock()
	cached := NewCachedFetcher(source, client, time.Minute, nil)

	key := fmt.Sprintf("conviction:series:%s:%d", id, 10)
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")

	ts, err := cached.Fetch(context.Background(), id, 10)
	require.NoError(t, err)
	assert.Equal(t, want, ts)
	assert.Equal(t, 1, source.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedFetcher_Hit(t *testing.T) {
	source, want, id := cacheFixture()
	client, mock := redismock.NewClientMock()
	cached := NewCachedFetcher(source, client, time.Minute, nil)

	key := fmt.Sprintf("conviction:series:%s:%d", id, 10)
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet(key).SetVal(string(payload))

	ts, err := cached.Fetch(context.Background(), id, 10)
	require.NoError(t, err)
	assert.Equal(t, want, ts)
	assert.Equal(t, 0, source.calls, "a hit never touches the source")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedFetcher_CorruptEntryFallsThrough(t *testing.T) {
	source, want, id := cacheFixture()
	client, mock := redismock.NewClientMock()
	cached := NewCachedFetcher(source, client, time.Minute, nil)

	key := fmt.Sprintf("conviction:series:%s:%d", id, 10)
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet(key).SetVal("{garbage")
	mock.ExpectDel(key).SetVal(1)
	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")

	ts, err := cached.Fetch(context.Background(), id, 10)
	require.NoError(t, err)
	assert.Equal(t, want, ts)
	assert.Equal(t, 1, source.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedFetcher_CacheDownDegradesToPassThrough(t *testing.T) {
	source, want, id := cacheFixture()
	client, mock := redismock.NewClientMock()
	cached := NewCachedFetcher(source, client, time.Minute, nil)

	key := fmt.Sprintf("conviction:series:%s:%d", id, 10)
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectGet(key).SetErr(fmt.Errorf("connection refused"))
	mock.ExpectSet(key, payload, time.Minute).SetErr(fmt.Errorf("connection refused"))

	ts, err := cached.Fetch(context.Background(), id, 10)
	require.NoError(t, err, "cache failures are non-fatal")
	assert.Equal(t, want, ts)
	assert.Equal(t, 1, source.calls)
}

func TestCachedFetcher_SourceErrorPropagates(t *testing.T) {
	source := &countingFetcher{inner: NewFixtureFetcher(nil)}
	client, mock := redismock.NewClientMock()
	cached := NewCachedFetcher(source, client, time.Minute, nil)

	mock.ExpectGet("conviction:series:ohlc:1d:NOPE:10").RedisNil()

	_, err := cached.Fetch(context.Background(), "ohlc:1d:NOPE", 10)
	assert.ErrorIs(t, err, ErrSeriesNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
