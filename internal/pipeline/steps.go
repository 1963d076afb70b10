package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"stockperf/internal/analysis"
	"stockperf/internal/charts"
	apperrors "stockperf/internal/errors"
	"stockperf/internal/exporter"
	"stockperf/internal/infrastructure"
	"stockperf/internal/marketdata"
	"stockperf/internal/statistics"
)

// CollectStep downloads adjusted closes, prints a preview and writes the price CSV
type CollectStep struct {
	baseStep
	provider marketdata.Provider
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
}

// NewCollectStep creates the download step
func NewCollectStep(provider marketdata.Provider, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *CollectStep {
	return &CollectStep{
		baseStep: baseStep{id: StepIDCollect, name: "Collect prices"},
		provider: provider,
		metrics:  metrics,
		logger:   logger,
	}
}

// Execute implements Step
func (s *CollectStep) Execute(ctx context.Context, state *State) error {
	if s.provider == nil {
		return apperrors.NewConfigError("no market data provider configured", nil)
	}
	cfg := state.Config.Analysis

	prices, err := marketdata.Download(ctx, s.provider, cfg.Tickers, cfg.Start(), cfg.End(), marketdata.DownloadOptions{
		Workers: state.Config.Provider.Workers,
		Logger:  s.logger,
		Metrics: s.metrics,
	})
	if err != nil {
		return err
	}
	state.Prices = prices

	if cfg.PreviewRows > 0 {
		if _, err := fmt.Fprint(state.Stdout, prices.Head(cfg.PreviewRows).String()); err != nil {
			return apperrors.NewStorageError("print price preview", err)
		}
	}

	return exporter.NewCSVWriter(s.logger).WritePrices(prices, state.Paths.PricesCSV, state.Config.Output.CSVByteMarker)
}

// ReturnsStep derives daily percentage returns from the price frame
type ReturnsStep struct {
	baseStep
	logger *slog.Logger
}

// NewReturnsStep creates the returns step
func NewReturnsStep(logger *slog.Logger) *ReturnsStep {
	return &ReturnsStep{
		baseStep: baseStep{id: StepIDReturns, name: "Compute returns"},
		logger:   logger,
	}
}

// Execute implements Step
func (s *ReturnsStep) Execute(ctx context.Context, state *State) error {
	if state.Prices == nil {
		return apperrors.NewValidationError("price frame missing")
	}

	returns := state.Prices.PctChange().DropNA()
	if returns.Len() == 0 {
		return apperrors.Insufficient("complete return rows", 0, 1)
	}
	state.Returns = returns

	s.logger.InfoContext(ctx, "Returns computed",
		slog.Int("price_rows", state.Prices.Len()),
		slog.Int("return_rows", returns.Len()),
		slog.Int("dropped", state.Prices.Len()-returns.Len()))
	return nil
}

// AnalysisStep runs the hypothesis tests and prints their results
type AnalysisStep struct {
	baseStep
}

// NewAnalysisStep creates the analysis step
func NewAnalysisStep() *AnalysisStep {
	return &AnalysisStep{baseStep: baseStep{id: StepIDAnalysis, name: "Statistical tests"}}
}

// Execute implements Step
func (s *AnalysisStep) Execute(ctx context.Context, state *State) error {
	if state.Returns == nil {
		return apperrors.NewValidationError("return frame missing")
	}

	summary, err := analysis.Run(state.Returns, state.Config.Analysis)
	if err != nil {
		return err
	}
	summary.RunID = state.RunID
	state.Summary = summary

	if err := analysis.PrintResults(state.Stdout, summary); err != nil {
		return apperrors.NewStorageError("print results", err)
	}
	return nil
}

// ChartsStep renders the five session charts
type ChartsStep struct {
	baseStep
	logger *slog.Logger
}

// NewChartsStep creates the chart step
func NewChartsStep(logger *slog.Logger) *ChartsStep {
	return &ChartsStep{
		baseStep: baseStep{id: StepIDCharts, name: "Render charts"},
		logger:   logger,
	}
}

// SkipReason implements Skipper
func (s *ChartsStep) SkipReason(state *State) string {
	if !state.Config.Output.Charts {
		return "charts disabled"
	}
	return ""
}

// Execute implements Step
func (s *ChartsStep) Execute(ctx context.Context, state *State) error {
	if state.Returns == nil {
		return apperrors.NewValidationError("return frame missing")
	}
	cfg := state.Config.Analysis
	r := charts.NewRenderer(state.Paths.ChartsDir, state.Config.Output.ChartFormat, s.logger)

	var corr *statistics.Correlations
	if state.Summary != nil {
		corr = state.Summary.Correlation
	}
	if corr == nil {
		var err error
		if corr, err = statistics.CorrelationMatrix(state.Returns); err != nil {
			return apperrors.NewStatisticsError("correlation matrix", err)
		}
	}

	renders := []func() (string, error){
		func() (string, error) { return r.ReturnsLines(state.Returns, cfg.Tickers) },
		func() (string, error) { return r.CorrelationHeatmap(corr) },
		func() (string, error) { return r.VolatilityBoxPlot(state.Returns, cfg.PrimaryTicker, cfg.VarianceTicker) },
		func() (string, error) { return r.SquaredReturns(state.Returns, cfg.PrimaryTicker) },
		func() (string, error) { return r.RollingMean(state.Returns, cfg.PrimaryTicker, cfg.RollingWindow) },
	}
	for _, render := range renders {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := render()
		if err != nil {
			return err
		}
		state.Charts = append(state.Charts, path)
	}

	s.logger.InfoContext(ctx, "Charts rendered", slog.Int("count", len(state.Charts)))
	return nil
}

// ExportStep writes the optional workbook and JSON summary
type ExportStep struct {
	baseStep
	logger *slog.Logger
}

// NewExportStep creates the export step
func NewExportStep(logger *slog.Logger) *ExportStep {
	return &ExportStep{
		baseStep: baseStep{id: StepIDExport, name: "Export results"},
		logger:   logger,
	}
}

// SkipReason implements Skipper
func (s *ExportStep) SkipReason(state *State) string {
	if !state.Config.Output.Workbook && !state.Config.Output.SummaryJSON {
		return "no exports enabled"
	}
	return ""
}

// Execute implements Step
func (s *ExportStep) Execute(ctx context.Context, state *State) error {
	out := state.Config.Output

	if out.Workbook {
		if state.Prices == nil || state.Returns == nil {
			return apperrors.NewValidationError("workbook needs prices and returns")
		}
		if err := exporter.NewWorkbookWriter(s.logger).Write(state.Paths.Workbook, state.Prices, state.Returns, state.Summary); err != nil {
			return err
		}
	}

	if out.SummaryJSON {
		if state.Summary == nil {
			return apperrors.NewValidationError("summary missing")
		}
		if err := exporter.SaveSummaryJSON(state.Summary, state.Paths.SummaryJSON); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Summary written", slog.String("path", state.Paths.SummaryJSON))
	}
	return nil
}
