package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockperf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadFrom tests configuration loading with various sources
func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "hard-coded defaults with no file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"}, cfg.Analysis.Tickers)
				assert.Equal(t, "2015-01-01", cfg.Analysis.StartDate)
				assert.Equal(t, "2024-01-01", cfg.Analysis.EndDate)
				assert.Equal(t, 0.001, cfg.Analysis.Threshold)
				assert.Equal(t, 50, cfg.Analysis.RollingWindow)
				assert.Equal(t, 10, cfg.Analysis.ARCHLags)
				assert.Equal(t, 5, cfg.Analysis.PreviewRows)
				assert.Equal(t, "AAPL", cfg.Analysis.PrimaryTicker)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "both", cfg.Logging.Output)
				assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
				assert.Empty(t, cfg.Cache.RedisAddr)
				assert.True(t, cfg.Output.Charts)
			},
		},
		{
			name: "file overrides defaults",
			file: `
analysis:
  tickers: [aapl, msft]
  start_date: "2020-01-01"
  end_date: "2021-01-01"
  primary_ticker: aapl
  correlation_ticker: msft
  variance_ticker: msft
provider:
  timeout: 5s
cache:
  redis_addr: localhost:6379
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Analysis.Tickers)
				assert.Equal(t, "2020-01-01", cfg.Analysis.StartDate)
				assert.Equal(t, "MSFT", cfg.Analysis.VarianceTicker)
				assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
				assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
				// untouched sections keep their defaults
				assert.Equal(t, 50, cfg.Analysis.RollingWindow)
				assert.Equal(t, DefaultCacheNamespace, cfg.Cache.Namespace)
			},
		},
		{
			name: "env overrides file",
			file: `
logging:
  level: warn
analysis:
  rolling_window: 20
`,
			env: map[string]string{
				"STOCKPERF_LOGGING_LEVEL":          "DEBUG",
				"STOCKPERF_ANALYSIS_THRESHOLD":     "0.002",
				"STOCKPERF_OUTPUT_CHARTS":          "false",
				"STOCKPERF_PROVIDER_RPS":           "5",
				"STOCKPERF_TELEMETRY_SAMPLE_RATIO": "0.5",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 0.002, cfg.Analysis.Threshold)
				assert.Equal(t, 20, cfg.Analysis.RollingWindow)
				assert.False(t, cfg.Output.Charts)
				assert.Equal(t, 5.0, cfg.Provider.RPS)
				assert.Equal(t, 0.5, cfg.Telemetry.SampleRatio)
			},
		},
		{
			name: "env ticker list",
			env: map[string]string{
				"STOCKPERF_ANALYSIS_TICKERS": "AAPL,MSFT,AMZN",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"AAPL", "MSFT", "AMZN"}, cfg.Analysis.Tickers)
			},
		},
		{
			name:    "single ticker rejected",
			env:     map[string]string{"STOCKPERF_ANALYSIS_TICKERS": "AAPL"},
			wantErr: true,
		},
		{
			name: "end before start rejected",
			env: map[string]string{
				"STOCKPERF_ANALYSIS_START_DATE": "2024-01-01",
				"STOCKPERF_ANALYSIS_END_DATE":   "2015-01-01",
			},
			wantErr: true,
		},
		{
			name:    "malformed date rejected",
			env:     map[string]string{"STOCKPERF_ANALYSIS_START_DATE": "01/01/2015"},
			wantErr: true,
		},
		{
			name:    "primary ticker outside list rejected",
			env:     map[string]string{"STOCKPERF_ANALYSIS_PRIMARY_TICKER": "NVDA"},
			wantErr: true,
		},
		{
			name:    "rolling window too small rejected",
			env:     map[string]string{"STOCKPERF_ANALYSIS_ROLLING_WINDOW": "1"},
			wantErr: true,
		},
		{
			name:    "unknown chart format rejected",
			env:     map[string]string{"STOCKPERF_OUTPUT_CHART_FORMAT": "gif"},
			wantErr: true,
		},
		{
			name:    "invalid yaml rejected",
			file:    "analysis: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = writeConfigFile(t, tt.file)
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAnalysisConfig_Dates(t *testing.T) {
	cfg := Default()

	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Analysis.Start())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Analysis.End())
	assert.True(t, cfg.Analysis.HasTicker("META"))
	assert.False(t, cfg.Analysis.HasTicker("NVDA"))
}

func TestDefault_IsIndependentCopy(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Tickers[0] = "NVDA"

	assert.Equal(t, "AAPL", DefaultTickers[0])
	assert.NoError(t, Default().Validate())
}

func TestNewPaths(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewPaths(OutputConfig{Dir: dir, ChartFormat: "svg"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "stock_data.csv"), paths.PricesCSV)
	assert.Equal(t, filepath.Join(dir, "charts", "rolling_mean.svg"), paths.GetChartPath(ChartRollingMean))
	assert.Equal(t, filepath.Join(dir, "logs", "run.log"), paths.GetLogPath("run.log"))
	assert.Equal(t, "/var/log/x.log", paths.GetLogPath("/var/log/x.log"))

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.ChartsDir)
	assert.DirExists(t, paths.LogsDir)
	assert.True(t, FileExists(paths.OutputDir))
}
