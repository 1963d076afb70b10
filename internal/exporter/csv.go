package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"stockperf/internal/config"
	apperrors "stockperf/internal/errors"
	"stockperf/internal/timeseries"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to filePath, replacing any existing file
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return apperrors.NewStorageError("create directory", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return apperrors.NewStorageError("create csv file", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return apperrors.NewStorageError("write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return apperrors.NewStorageError("write headers", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write record %d", i), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("flush csv", err)
	}
	return file.Close()
}

// WritePrices exports a price frame as Date,<ticker...> rows. Missing prices
// are written as empty cells.
func (w *CSVWriter) WritePrices(frame *timeseries.Frame, filePath string, bom bool) error {
	headers := append([]string{"Date"}, frame.Columns...)

	records := make([][]string, frame.Len())
	for r, d := range frame.Index {
		record := make([]string, 0, len(headers))
		record = append(record, d.Format(config.DateLayout))
		for c := range frame.Columns {
			record = append(record, formatFloat(frame.At(r, c)))
		}
		records[r] = record
	}

	return w.WriteCSV(filePath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: bom,
	})
}

// formatFloat writes the shortest round-tripping decimal; NaN becomes empty
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
