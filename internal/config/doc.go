// Package config provides configuration management for stockperf.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. stockperf.yaml or configs/stockperf.yaml
//	3. The hard-coded session defaults (lowest priority)
//
// Without any file or environment variable a session analyses AAPL, MSFT,
// GOOGL, AMZN and META between 2015-01-01 and 2024-01-01.
//
// # Environment Variables
//
// All environment variables follow the pattern STOCKPERF_<SECTION>_<FIELD>:
//
//	STOCKPERF_ANALYSIS_TICKERS=AAPL,MSFT,NVDA
//	STOCKPERF_ANALYSIS_START_DATE=2018-01-01
//	STOCKPERF_LOGGING_LEVEL=debug
//	STOCKPERF_CACHE_REDIS_ADDR=localhost:6379
//	STOCKPERF_OUTPUT_DIR=/tmp/stockperf
//
// # Path Management
//
// Paths resolves every artefact below the output directory:
//
//	paths, err := config.NewPaths(cfg.Output)
//	chart := paths.GetChartPath(config.ChartDailyReturns)
package config
