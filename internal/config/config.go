package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "STOCKPERF"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Provider  ProviderConfig  `yaml:"provider" envconfig:"PROVIDER"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// AnalysisConfig holds the session inputs: what to download and how to test it
type AnalysisConfig struct {
	Tickers           []string `yaml:"tickers" envconfig:"TICKERS" validate:"min=2,dive,required,uppercase"`
	StartDate         string   `yaml:"start_date" envconfig:"START_DATE" validate:"required,datetime=2006-01-02"`
	EndDate           string   `yaml:"end_date" envconfig:"END_DATE" validate:"required,datetime=2006-01-02"`
	Threshold         float64  `yaml:"threshold" envconfig:"THRESHOLD"`
	RollingWindow     int      `yaml:"rolling_window" envconfig:"ROLLING_WINDOW" validate:"min=2"`
	ARCHLags          int      `yaml:"arch_lags" envconfig:"ARCH_LAGS" validate:"min=1"`
	PreviewRows       int      `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"min=0"`
	PrimaryTicker     string   `yaml:"primary_ticker" envconfig:"PRIMARY_TICKER" validate:"required"`
	CorrelationTicker string   `yaml:"correlation_ticker" envconfig:"CORRELATION_TICKER" validate:"required"`
	VarianceTicker    string   `yaml:"variance_ticker" envconfig:"VARIANCE_TICKER" validate:"required"`
}

// ProviderConfig contains market data provider configuration
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	RPS       float64       `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst     int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	Workers   int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	UserAgent string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// CacheConfig contains the optional redis price cache configuration.
// An empty RedisAddr disables caching.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" envconfig:"REDIS_DB" validate:"min=0"`
	TTL           time.Duration `yaml:"ttl" envconfig:"TTL" validate:"gte=0"`
	Namespace     string        `yaml:"namespace" envconfig:"NAMESPACE"`
}

// OutputConfig controls where artefacts are written
type OutputConfig struct {
	Dir           string `yaml:"dir" envconfig:"DIR" validate:"required"`
	ChartFormat   string `yaml:"chart_format" envconfig:"CHART_FORMAT" validate:"oneof=png svg pdf"`
	Charts        bool   `yaml:"charts" envconfig:"CHARTS"`
	Workbook      bool   `yaml:"workbook" envconfig:"WORKBOOK"`
	SummaryJSON   bool   `yaml:"summary_json" envconfig:"SUMMARY_JSON"`
	CSVByteMarker bool   `yaml:"csv_bom" envconfig:"CSV_BOM"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
}

// Load loads configuration from defaults, an optional YAML file and environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are actually set override the file values
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize tidies values that users commonly get slightly wrong
func (c *Config) normalize() {
	for i, t := range c.Analysis.Tickers {
		c.Analysis.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	c.Analysis.PrimaryTicker = strings.ToUpper(strings.TrimSpace(c.Analysis.PrimaryTicker))
	c.Analysis.CorrelationTicker = strings.ToUpper(strings.TrimSpace(c.Analysis.CorrelationTicker))
	c.Analysis.VarianceTicker = strings.ToUpper(strings.TrimSpace(c.Analysis.VarianceTicker))
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Output.ChartFormat = strings.ToLower(strings.TrimPrefix(c.Output.ChartFormat, "."))

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = LogFile
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = DefaultCacheNamespace
	}
	if c.Provider.UserAgent == "" {
		c.Provider.UserAgent = DefaultUserAgent
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	start, end := c.Analysis.Start(), c.Analysis.End()
	if !end.After(start) {
		return fmt.Errorf("end date %s must be after start date %s", c.Analysis.EndDate, c.Analysis.StartDate)
	}

	if math.IsNaN(c.Analysis.Threshold) || math.IsInf(c.Analysis.Threshold, 0) {
		return fmt.Errorf("threshold must be finite")
	}

	for _, role := range []struct{ name, ticker string }{
		{"primary", c.Analysis.PrimaryTicker},
		{"correlation", c.Analysis.CorrelationTicker},
		{"variance", c.Analysis.VarianceTicker},
	} {
		if !c.Analysis.HasTicker(role.ticker) {
			return fmt.Errorf("%s ticker %s is not in the ticker list", role.name, role.ticker)
		}
	}

	return nil
}

// Start returns the inclusive first calendar day of the analysis window
func (a AnalysisConfig) Start() time.Time {
	t, _ := time.ParseInLocation(DateLayout, a.StartDate, time.UTC)
	return t
}

// End returns the exclusive last calendar day of the analysis window
func (a AnalysisConfig) End() time.Time {
	t, _ := time.ParseInLocation(DateLayout, a.EndDate, time.UTC)
	return t
}

// HasTicker reports whether ticker is part of the session
func (a AnalysisConfig) HasTicker(ticker string) bool {
	for _, t := range a.Tickers {
		if t == ticker {
			return true
		}
	}
	return false
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"stockperf.yaml",
		"configs/stockperf.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns the hard-coded session configuration
func Default() *Config {
	tickers := make([]string, len(DefaultTickers))
	copy(tickers, DefaultTickers)

	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: LogFile,
		},
		Analysis: AnalysisConfig{
			Tickers:           tickers,
			StartDate:         DefaultStartDate,
			EndDate:           DefaultEndDate,
			Threshold:         DefaultReturnThreshold,
			RollingWindow:     DefaultRollingWindow,
			ARCHLags:          DefaultARCHLags,
			PreviewRows:       DefaultPreviewRows,
			PrimaryTicker:     DefaultPrimaryTicker,
			CorrelationTicker: DefaultCorrelationTicker,
			VarianceTicker:    DefaultVarianceTicker,
		},
		Provider: ProviderConfig{
			BaseURL:   DefaultProviderBaseURL,
			Timeout:   DefaultProviderTimeout,
			RPS:       DefaultProviderRPS,
			Burst:     DefaultProviderBurst,
			Workers:   DefaultDownloadWorkers,
			UserAgent: DefaultUserAgent,
		},
		Cache: CacheConfig{
			TTL:       DefaultCacheTTL,
			Namespace: DefaultCacheNamespace,
		},
		Output: OutputConfig{
			Dir:         DefaultOutputDir,
			ChartFormat: DefaultChartFormat,
			Charts:      true,
			Workbook:    true,
			SummaryJSON: true,
		},
		Telemetry: TelemetryConfig{
			EnableTracing: true,
			EnableMetrics: true,
			SampleRatio:   1.0,
			Environment:   "development",
		},
	}
}
