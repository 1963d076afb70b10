package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"

	"stockperf/internal/analysis"
	apperrors "stockperf/internal/errors"
)

// SaveSummaryJSON writes the run summary as indented JSON
func SaveSummaryJSON(summary *analysis.Summary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return apperrors.NewParsingError("encode summary", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError("write summary", err)
	}
	return nil
}
