package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "stockperf/internal/errors"
	"stockperf/internal/infrastructure"
	"stockperf/internal/timeseries"
)

// DownloadOptions tunes Download
type DownloadOptions struct {
	Workers int
	Logger  *slog.Logger
	Metrics *infrastructure.PipelineMetrics
}

// Download fetches every ticker concurrently and joins their adjusted closes
// into one price frame. The first failing ticker cancels the rest.
func Download(ctx context.Context, provider Provider, tickers []string, start, end time.Time, opts DownloadOptions) (*timeseries.Frame, error) {
	if len(tickers) == 0 {
		return nil, apperrors.NewValidationError("no tickers to download")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		series = make(map[string][]timeseries.Point, len(tickers))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, ticker := range tickers {
		g.Go(func() error {
			bars, err := provider.History(gctx, ticker, start, end)
			if err != nil {
				return fmt.Errorf("download %s: %w", ticker, err)
			}
			if len(bars) == 0 {
				return apperrors.NewNotFoundError(fmt.Sprintf("price history for %s", ticker)).
					WithContext("provider", provider.Name())
			}
			metrics.RecordBars(gctx, ticker, len(bars))

			mu.Lock()
			series[ticker] = AdjustedPoints(bars)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	frame := timeseries.FromSeries(series)
	logger.InfoContext(ctx, "Download complete",
		slog.String("provider", provider.Name()),
		slog.Int("tickers", len(tickers)),
		slog.Int("rows", frame.Len()))
	return frame, nil
}
