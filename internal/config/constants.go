package config

import "time"

// Application constants - the hard-coded analysis session defaults
const (
	AppName    = "stockperf"
	AppVersion = "1.0.0"

	// Analysis window
	DefaultStartDate = "2015-01-01"
	DefaultEndDate   = "2024-01-01" // exclusive
	DateLayout       = "2006-01-02"

	// Statistical settings
	DefaultReturnThreshold = 0.001 // 0.1% daily return
	DefaultRollingWindow   = 50
	DefaultARCHLags        = 10
	DefaultPreviewRows     = 5

	// Series used by the pairwise tests
	DefaultPrimaryTicker     = "AAPL"
	DefaultCorrelationTicker = "MSFT"
	DefaultVarianceTicker    = "AMZN"

	// Data provider
	DefaultProviderBaseURL = "https://query2.finance.yahoo.com"
	DefaultProviderTimeout = 30 * time.Second
	DefaultProviderRPS     = 2.0
	DefaultProviderBurst   = 1
	DefaultDownloadWorkers = 3
	DefaultUserAgent       = "Mozilla/5.0 (compatible; stockperf/1.0)"

	// Cache
	DefaultCacheTTL       = 24 * time.Hour
	DefaultCacheNamespace = "stockperf:bars"

	// Output files (relative to the output directory)
	DefaultOutputDir   = "output"
	PricesCSVFile      = "stock_data.csv"
	WorkbookFile       = "stock_analysis.xlsx"
	SummaryJSONFile    = "analysis_summary.json"
	MetricsTextfile    = "stockperf.prom"
	TraceFile          = "trace.json"
	LogFile            = "stockperf.log"
	ChartsSubdir       = "charts"
	DefaultChartFormat = "png"

	// Log settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "both"
)

// DefaultTickers is the fixed ticker list analysed by a session.
var DefaultTickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"}

// Chart file base names, without extension.
const (
	ChartDailyReturns      = "daily_returns"
	ChartCorrelationMatrix = "correlation_heatmap"
	ChartVolatilityBoxPlot = "volatility_boxplot"
	ChartSquaredReturns    = "squared_returns"
	ChartRollingMean       = "rolling_mean"
)
