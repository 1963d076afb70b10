package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every artefact path written by a session.
// All files live below the configured output directory.
type Paths struct {
	OutputDir string
	ChartsDir string
	LogsDir   string

	PricesCSV   string
	Workbook    string
	SummaryJSON string
	Metrics     string
	Trace       string

	chartFormat string
}

// NewPaths resolves artefact paths for the given output configuration
func NewPaths(out OutputConfig) (*Paths, error) {
	dir, err := filepath.Abs(out.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory %s: %w", out.Dir, err)
	}

	format := out.ChartFormat
	if format == "" {
		format = DefaultChartFormat
	}

	return &Paths{
		OutputDir:   dir,
		ChartsDir:   filepath.Join(dir, ChartsSubdir),
		LogsDir:     filepath.Join(dir, "logs"),
		PricesCSV:   filepath.Join(dir, PricesCSVFile),
		Workbook:    filepath.Join(dir, WorkbookFile),
		SummaryJSON: filepath.Join(dir, SummaryJSONFile),
		Metrics:     filepath.Join(dir, MetricsTextfile),
		Trace:       filepath.Join(dir, TraceFile),
		chartFormat: format,
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.OutputDir,
		p.ChartsDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetChartPath returns the path for a chart file, e.g. charts/daily_returns.png
func (p *Paths) GetChartPath(name string) string {
	return filepath.Join(p.ChartsDir, name+"."+p.chartFormat)
}

// GetLogPath returns the path for a log file. Absolute names are returned unchanged.
func (p *Paths) GetLogPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved artefact locations
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("output", p.OutputDir),
			slog.String("charts", p.ChartsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("prices_csv", p.PricesCSV),
			slog.String("workbook", p.Workbook),
			slog.String("summary_json", p.SummaryJSON),
			slog.String("metrics", p.Metrics),
			slog.String("trace", p.Trace),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
