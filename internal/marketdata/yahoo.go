package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"stockperf/internal/config"
	apperrors "stockperf/internal/errors"
	"stockperf/internal/infrastructure"
)

const yahooProviderName = "yahoo"

// YahooClient fetches daily history from the Yahoo Finance chart API
type YahooClient struct {
	cfg     config.ProviderConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
}

var _ Provider = (*YahooClient)(nil)

// NewYahooClient creates a client. A nil http client gets one with the configured timeout.
func NewYahooClient(cfg config.ProviderConfig, client *http.Client, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *YahooClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &YahooClient{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		logger:  infrastructure.WithComponent(logger, "yahoo"),
		metrics: metrics,
	}
}

// Name implements Provider
func (y *YahooClient) Name() string {
	return yahooProviderName
}

// chartResponse mirrors the parts of /v8/finance/chart we read
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		Currency             string `json:"currency"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// History implements Provider. Bars are returned in date order; days without a
// close are skipped.
func (y *YahooClient) History(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewNetworkError("rate limiter wait", err)
	}

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,split")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.cfg.BaseURL, url.PathEscape(ticker), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("build request", err)
	}
	req.Header.Set("User-Agent", y.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	y.logger.DebugContext(ctx, "Requesting chart", slog.String("ticker", ticker), slog.String("url", u))

	res, err := y.client.Do(req)
	if err != nil {
		y.metrics.RecordProviderRequest(ctx, yahooProviderName, ticker, "error")
		return nil, apperrors.NewNetworkError("chart request for "+ticker, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			y.logger.Warn("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	var body chartResponse
	decodeErr := json.NewDecoder(res.Body).Decode(&body)

	if body.Chart.Error != nil {
		y.metrics.RecordProviderRequest(ctx, yahooProviderName, ticker, "error")
		if body.Chart.Error.Code == "Not Found" {
			return nil, apperrors.NewNotFoundError("ticker " + ticker).
				WithContext("description", body.Chart.Error.Description)
		}
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("yahoo %s: %s", body.Chart.Error.Code, body.Chart.Error.Description), nil).
			WithContext("ticker", ticker)
	}
	if res.StatusCode >= 400 {
		y.metrics.RecordProviderRequest(ctx, yahooProviderName, ticker, "error")
		return nil, apperrors.NewNetworkError(fmt.Sprintf("yahoo http %d", res.StatusCode), nil).
			WithContext("ticker", ticker)
	}
	if decodeErr != nil {
		y.metrics.RecordProviderRequest(ctx, yahooProviderName, ticker, "error")
		return nil, apperrors.NewParsingError("decode chart response for "+ticker, decodeErr)
	}
	if len(body.Chart.Result) == 0 {
		y.metrics.RecordProviderRequest(ctx, yahooProviderName, ticker, "empty")
		return nil, nil
	}

	bars, err := barsFromChart(body.Chart.Result[0], start, end)
	if err != nil {
		y.metrics.RecordProviderRequest(ctx, yahooProviderName, ticker, "error")
		return nil, apperrors.NewParsingError("chart result for "+ticker, err)
	}

	y.metrics.RecordProviderRequest(ctx, yahooProviderName, ticker, "ok")
	y.logger.InfoContext(ctx, "Fetched history",
		slog.String("ticker", ticker),
		slog.Int("bars", len(bars)))
	return bars, nil
}

// barsFromChart converts one chart result to bars within [start, end)
func barsFromChart(r chartResult, start, end time.Time) ([]Bar, error) {
	loc := exchangeLocation(r.Meta.ExchangeTimezoneName, r.Meta.GMTOffset)

	var closes, adjCloses []*float64
	if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}
	if len(r.Indicators.AdjClose) > 0 {
		adjCloses = r.Indicators.AdjClose[0].AdjClose
	}
	if closes != nil && len(closes) != len(r.Timestamp) {
		return nil, fmt.Errorf("%d timestamps but %d closes", len(r.Timestamp), len(closes))
	}
	if adjCloses != nil && len(adjCloses) != len(r.Timestamp) {
		return nil, fmt.Errorf("%d timestamps but %d adjusted closes", len(r.Timestamp), len(adjCloses))
	}

	bars := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		local := time.Unix(ts, 0).In(loc)
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		if date.Before(start) || !date.Before(end) {
			continue
		}

		var closePx, adjPx *float64
		if closes != nil {
			closePx = closes[i]
		}
		if adjCloses != nil {
			adjPx = adjCloses[i]
		}
		if adjPx == nil {
			adjPx = closePx
		}
		if adjPx == nil {
			continue
		}

		bar := Bar{Date: date, AdjClose: *adjPx, Close: *adjPx}
		if closePx != nil {
			bar.Close = *closePx
		}
		if n := len(bars); n > 0 && bars[n-1].Date.Equal(date) {
			bars[n-1] = bar
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}
