package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockperf/internal/config"
)

func TestSplitTickers(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "BRK-B"}, splitTickers(" aapl, MSFT,,brk-b "))
	assert.Nil(t, splitTickers(" , "))
}

func TestSetTickers(t *testing.T) {
	cfg := config.Default()
	setTickers(&cfg.Analysis, []string{"TSLA", "NVDA", "IBM"})
	assert.Equal(t, []string{"TSLA", "NVDA", "IBM"}, cfg.Analysis.Tickers)
	assert.Equal(t, "TSLA", cfg.Analysis.PrimaryTicker)
	assert.Equal(t, "NVDA", cfg.Analysis.CorrelationTicker)
	assert.Equal(t, "IBM", cfg.Analysis.VarianceTicker)
	require.NoError(t, cfg.Validate())

	pair := config.Default()
	setTickers(&pair.Analysis, []string{"MSFT", "TSLA"})
	assert.Equal(t, "MSFT", pair.Analysis.PrimaryTicker)
	assert.Equal(t, "TSLA", pair.Analysis.CorrelationTicker)
	assert.Equal(t, "TSLA", pair.Analysis.VarianceTicker)
	require.NoError(t, pair.Validate())

	// roles already in the list are kept
	kept := config.Default()
	setTickers(&kept.Analysis, []string{"AMZN", "MSFT", "AAPL"})
	assert.Equal(t, "AAPL", kept.Analysis.PrimaryTicker)
	assert.Equal(t, "MSFT", kept.Analysis.CorrelationTicker)
	assert.Equal(t, "AMZN", kept.Analysis.VarianceTicker)
	require.NoError(t, kept.Validate())
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockperf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  dir: reports\n  chart_format: svg\n"), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.Output.Dir)
	assert.Equal(t, "svg", cfg.Output.ChartFormat)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META"}, cfg.Analysis.Tickers)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
