package marketdata

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockperf/internal/config"
	apperrors "stockperf/internal/errors"
	"stockperf/internal/shared/testutil"
)

const chartAAPL = `{
  "chart": {
    "result": [{
      "meta": {"currency": "USD", "symbol": "AAPL", "exchangeTimezoneName": "America/New_York", "gmtoffset": -18000},
      "timestamp": [1420036200, 1420209000, 1420468200, 1420554600],
      "indicators": {
        "quote": [{"close": [27.59, 27.33, 26.56, null]}],
        "adjclose": [{"adjclose": [24.61, 24.37, null, null]}]
      }
    }],
    "error": null
  }
}`

func testProviderConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		RPS:       100,
		Burst:     10,
		Workers:   2,
		UserAgent: "stockperf-test",
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYahooClient_History(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1420070400", r.URL.Query().Get("period1"))
		assert.Equal(t, "1420588800", r.URL.Query().Get("period2"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "div,split", r.URL.Query().Get("events"))
		assert.Equal(t, "stockperf-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartAAPL))
	}))
	defer server.Close()

	logger, logs := testutil.NewTestLogger(t)
	client := NewYahooClient(testProviderConfig(server.URL), server.Client(), logger, nil)
	assert.Equal(t, "yahoo", client.Name())

	bars, err := client.History(context.Background(), "AAPL", date(2015, 1, 1), date(2015, 1, 7))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, date(2015, 1, 2), bars[0].Date)
	assert.Equal(t, 24.37, bars[0].AdjClose)
	assert.Equal(t, 27.33, bars[0].Close)

	// adjusted close missing falls back to close
	assert.Equal(t, date(2015, 1, 5), bars[1].Date)
	assert.Equal(t, 26.56, bars[1].AdjClose)

	testutil.AssertLogContains(t, logs, slog.LevelInfo, "Fetched history")
	assert.True(t, logs.ContainsAttr("component", "yahoo"))
}

func TestYahooClient_History_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		errType apperrors.ErrorType
	}{
		{
			name:    "unknown symbol",
			status:  http.StatusNotFound,
			body:    `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`,
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name:    "api error",
			status:  http.StatusBadRequest,
			body:    `{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid input"}}}`,
			errType: apperrors.ErrTypeNetwork,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			errType: apperrors.ErrTypeNetwork,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"chart":`,
			errType: apperrors.ErrTypeParsing,
		},
		{
			name:    "length mismatch",
			status:  http.StatusOK,
			body:    `{"chart":{"result":[{"meta":{},"timestamp":[1420209000],"indicators":{"quote":[{"close":[1,2]}]}}],"error":null}}`,
			errType: apperrors.ErrTypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewYahooClient(testProviderConfig(server.URL), server.Client(), nil, nil)
			_, err := client.History(context.Background(), "ZZZZ", date(2015, 1, 1), date(2015, 1, 7))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestYahooClient_History_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	client := NewYahooClient(testProviderConfig(server.URL), server.Client(), nil, nil)
	bars, err := client.History(context.Background(), "AAPL", date(2015, 1, 1), date(2015, 1, 7))
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestYahooClient_History_Cancelled(t *testing.T) {
	client := NewYahooClient(testProviderConfig("http://127.0.0.1:0"), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.History(ctx, "AAPL", date(2015, 1, 1), date(2015, 1, 7))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
}

func TestExchangeLocation_Fallback(t *testing.T) {
	loc := exchangeLocation("Not/AZone", -18000)
	_, offset := time.Date(2015, 1, 2, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -18000, offset)
}
