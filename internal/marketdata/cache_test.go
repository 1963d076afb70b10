package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockperf/internal/config"
)

// fakeProvider serves canned bars per ticker and counts calls
type fakeProvider struct {
	mu    sync.Mutex
	bars  map[string][]Bar
	errs  map[string]error
	calls map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		bars:  map[string][]Bar{},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) History(_ context.Context, ticker string, _, _ time.Time) ([]Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ticker]++
	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	return f.bars[ticker], nil
}

func (f *fakeProvider) callCount(ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ticker]
}

var (
	cacheStart = date(2015, 1, 1)
	cacheEnd   = date(2015, 1, 7)
	cacheKey   = "stockperf:bars:fake:AAPL:2015-01-01:2015-01-07"
	aaplBars   = []Bar{
		{Date: date(2015, 1, 2), Close: 27.33, AdjClose: 24.37},
		{Date: date(2015, 1, 5), Close: 26.56, AdjClose: 23.68},
	}
)

func TestNewCachingProvider_Defaults(t *testing.T) {
	c := NewCachingProvider(nil, 0, "", newFakeProvider(), nil, nil)
	assert.Equal(t, config.DefaultCacheTTL, c.ttl)
	assert.Equal(t, config.DefaultCacheNamespace, c.namespace)
	assert.Equal(t, "fake", c.Name())

	c = NewCachingProvider(nil, time.Minute, "custom", newFakeProvider(), nil, nil)
	assert.Equal(t, time.Minute, c.ttl)
	assert.Equal(t, "custom", c.namespace)
}

func TestCachingProvider_NilRedis(t *testing.T) {
	inner := newFakeProvider()
	inner.bars["AAPL"] = aaplBars

	c := NewCachingProvider(nil, time.Hour, "", inner, nil, nil)
	bars, err := c.History(context.Background(), "AAPL", cacheStart, cacheEnd)
	require.NoError(t, err)
	assert.Equal(t, aaplBars, bars)
	assert.Equal(t, 1, inner.callCount("AAPL"))
}

func TestCachingProvider_Hit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	cached, _ := json.Marshal(aaplBars)
	mock.ExpectGet(cacheKey).SetVal(string(cached))

	inner := newFakeProvider()
	c := NewCachingProvider(rdb, time.Hour, "", inner, nil, nil)

	bars, err := c.History(context.Background(), "AAPL", cacheStart, cacheEnd)
	require.NoError(t, err)
	assert.Equal(t, aaplBars, bars)
	assert.Zero(t, inner.callCount("AAPL"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingProvider_Miss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, _ := json.Marshal(aaplBars)
	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSet(cacheKey, payload, time.Hour).SetVal("OK")

	inner := newFakeProvider()
	inner.bars["AAPL"] = aaplBars
	c := NewCachingProvider(rdb, time.Hour, "", inner, nil, nil)

	bars, err := c.History(context.Background(), "AAPL", cacheStart, cacheEnd)
	require.NoError(t, err)
	assert.Equal(t, aaplBars, bars)
	assert.Equal(t, 1, inner.callCount("AAPL"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingProvider_CorruptEntry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, _ := json.Marshal(aaplBars)
	mock.ExpectGet(cacheKey).SetVal("not json")
	mock.ExpectDel(cacheKey).SetVal(1)
	mock.ExpectSet(cacheKey, payload, time.Hour).SetVal("OK")

	inner := newFakeProvider()
	inner.bars["AAPL"] = aaplBars
	c := NewCachingProvider(rdb, time.Hour, "", inner, nil, nil)

	bars, err := c.History(context.Background(), "AAPL", cacheStart, cacheEnd)
	require.NoError(t, err)
	assert.Equal(t, aaplBars, bars)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingProvider_RedisDown(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	payload, _ := json.Marshal(aaplBars)
	mock.ExpectGet(cacheKey).SetErr(errors.New("connection refused"))
	mock.ExpectSet(cacheKey, payload, time.Hour).SetErr(errors.New("connection refused"))

	inner := newFakeProvider()
	inner.bars["AAPL"] = aaplBars
	c := NewCachingProvider(rdb, time.Hour, "", inner, nil, nil)

	bars, err := c.History(context.Background(), "AAPL", cacheStart, cacheEnd)
	require.NoError(t, err)
	assert.Equal(t, aaplBars, bars)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachingProvider_InnerError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectGet(cacheKey).RedisNil()

	boom := errors.New("provider down")
	inner := newFakeProvider()
	inner.errs["AAPL"] = boom
	c := NewCachingProvider(rdb, time.Hour, "", inner, nil, nil)

	_, err := c.History(context.Background(), "AAPL", cacheStart, cacheEnd)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisClient_Disabled(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), config.CacheConfig{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestSafe(t *testing.T) {
	assert.Equal(t, "BRK_B_US", safe("BRK B:US"))
}
