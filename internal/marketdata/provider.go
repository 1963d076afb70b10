// Package marketdata downloads daily price history from a market data provider.
package marketdata

import (
	"context"
	"time"

	"stockperf/internal/timeseries"
)

// Bar is one trading day of a ticker. Date is the exchange-local calendar day
// at midnight UTC.
type Bar struct {
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
}

// Provider returns daily bars for ticker in [start, end)
type Provider interface {
	Name() string
	History(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}

// AdjustedPoints converts bars to an adjusted close series
func AdjustedPoints(bars []Bar) []timeseries.Point {
	points := make([]timeseries.Point, len(bars))
	for i, b := range bars {
		points[i] = timeseries.Point{Date: b.Date, Value: b.AdjClose}
	}
	return points
}
