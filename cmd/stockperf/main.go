package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"stockperf/internal/config"
	"stockperf/internal/infrastructure"
	"stockperf/internal/marketdata"
	"stockperf/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "config file (defaults to stockperf.yaml or configs/stockperf.yaml when present)")
	outputDir := flag.String("out", "", "output directory for CSV, charts and reports")
	tickers := flag.String("tickers", "", "comma separated ticker list, e.g. AAPL,MSFT")
	start := flag.String("start", "", "first day of the analysis window (YYYY-MM-DD)")
	end := flag.String("end", "", "day after the analysis window (YYYY-MM-DD, exclusive)")
	noCharts := flag.Bool("no-charts", false, "skip chart rendering")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		slog.Warn("Failed to load configuration, using defaults", "error", err)
		cfg = config.Default()
	}

	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *tickers != "" {
		setTickers(&cfg.Analysis, splitTickers(*tickers))
	}
	if *start != "" {
		cfg.Analysis.StartDate = *start
	}
	if *end != "" {
		cfg.Analysis.EndDate = *end
	}
	if *noCharts {
		cfg.Output.Charts = false
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	paths, err := config.NewPaths(cfg.Output)
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		return 1
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create output directories", "error", err)
		return 1
	}

	// stdout carries the price preview and test results, logs go to stderr
	cfg.Logging.FilePath = paths.GetLogPath(cfg.Logging.FilePath)
	logger, err := infrastructure.InitializeLogger(cfg.Logging, os.Stderr)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	runID := infrastructure.NewRunID()
	ctx := infrastructure.WithRunID(context.Background(), runID)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Starting stock analysis",
		slog.String("version", config.AppVersion),
		slog.Any("tickers", cfg.Analysis.Tickers),
		slog.String("start", cfg.Analysis.StartDate),
		slog.String("end", cfg.Analysis.EndDate))
	paths.LogPathResolution(logger)

	var traceOut io.Writer
	if cfg.Telemetry.EnableTracing {
		traceFile, err := os.Create(paths.Trace)
		if err != nil {
			logger.WarnContext(ctx, "Failed to create trace file, tracing disabled", slog.String("error", err.Error()))
		} else {
			defer traceFile.Close()
			traceOut = traceFile
		}
	}

	telemetry, err := infrastructure.InitializeOTel(cfg.Telemetry, traceOut, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}

	metrics, err := infrastructure.NewPipelineMetrics(telemetry.Meter)
	if err != nil {
		logger.WarnContext(ctx, "Failed to create metrics, continuing without", slog.String("error", err.Error()))
		metrics = infrastructure.NoopMetrics()
	}

	var provider marketdata.Provider = marketdata.NewYahooClient(cfg.Provider, nil, logger, metrics)
	rdb, err := marketdata.NewRedisClient(ctx, cfg.Cache)
	if err != nil {
		logger.WarnContext(ctx, "Price cache unavailable, fetching directly", slog.String("error", err.Error()))
	}
	if rdb != nil {
		defer rdb.Close()
		provider = marketdata.NewCachingProvider(rdb, cfg.Cache.TTL, cfg.Cache.Namespace, provider, logger, metrics)
	}

	state := pipeline.NewState(runID, cfg, paths, os.Stdout)
	runner := pipeline.NewRunner(state, pipeline.Options{
		Provider: provider,
		Tracer:   telemetry.Tracer,
		Metrics:  metrics,
		Logger:   logger,
	})
	runErr := runner.Run(ctx)

	if err := telemetry.WriteMetrics(paths.Metrics); err != nil {
		logger.WarnContext(ctx, "Failed to write metrics", slog.String("error", err.Error()))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "Stock analysis failed", slog.String("error", runErr.Error()))
		return 1
	}

	logger.InfoContext(ctx, "Stock analysis completed",
		slog.String("output_dir", paths.OutputDir),
		slog.Int("charts", len(state.Charts)))
	return 0
}

// loadConfig reads an explicit config file, or searches the default locations
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func splitTickers(list string) []string {
	var out []string
	for _, t := range strings.Split(list, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// setTickers replaces the ticker list. When any test role names a ticker
// outside the new list, the roles are taken from the list by position:
// primary first, correlation second, variance third (or last).
func setTickers(a *config.AnalysisConfig, list []string) {
	a.Tickers = list
	if len(list) == 0 {
		return
	}
	if a.HasTicker(a.PrimaryTicker) && a.HasTicker(a.CorrelationTicker) && a.HasTicker(a.VarianceTicker) {
		return
	}
	at := func(i int) string { return list[min(i, len(list)-1)] }
	a.PrimaryTicker, a.CorrelationTicker, a.VarianceTicker = at(0), at(1), at(2)
}
