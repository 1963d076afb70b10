package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"stockperf/internal/analysis"
	"stockperf/internal/config"
	apperrors "stockperf/internal/errors"
	"stockperf/internal/timeseries"
)

// Sheet names of the analysis workbook
const (
	SheetPrices      = "Prices"
	SheetReturns     = "Returns"
	SheetTests       = "Tests"
	SheetCorrelation = "Correlation"
)

// WorkbookWriter writes prices, returns and test results to one xlsx file
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger}
}

// Write creates the workbook at path. A nil summary skips the test sheets.
func (w *WorkbookWriter) Write(path string, prices, returns *timeseries.Frame, summary *analysis.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPrices); err != nil {
		return apperrors.NewStorageError("rename sheet", err)
	}
	if err := writeFrameSheet(f, SheetPrices, prices); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetReturns); err != nil {
		return apperrors.NewStorageError("create returns sheet", err)
	}
	if err := writeFrameSheet(f, SheetReturns, returns); err != nil {
		return err
	}

	if summary != nil {
		if _, err := f.NewSheet(SheetTests); err != nil {
			return apperrors.NewStorageError("create tests sheet", err)
		}
		if err := writeTestsSheet(f, summary); err != nil {
			return err
		}
		if summary.Correlation != nil {
			if _, err := f.NewSheet(SheetCorrelation); err != nil {
				return apperrors.NewStorageError("create correlation sheet", err)
			}
			if err := writeCorrelationSheet(f, summary); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create directory", err)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("save workbook", err)
	}

	w.logger.Info("Workbook written",
		slog.String("path", path),
		slog.Int("price_rows", prices.Len()),
		slog.Int("return_rows", returns.Len()))
	return nil
}

func writeFrameSheet(f *excelize.File, sheet string, frame *timeseries.Frame) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return apperrors.NewStorageError("open stream writer for "+sheet, err)
	}

	header := make([]interface{}, 0, len(frame.Columns)+1)
	header = append(header, "Date")
	for _, c := range frame.Columns {
		header = append(header, c)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return apperrors.NewStorageError("write header of "+sheet, err)
	}

	for r, d := range frame.Index {
		row := make([]interface{}, 0, len(frame.Columns)+1)
		row = append(row, d.Format(config.DateLayout))
		for c := range frame.Columns {
			row = append(row, cellValue(frame.At(r, c)))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return apperrors.NewStorageError("cell name", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write row %d of %s", r+2, sheet), err)
		}
	}

	if err := sw.Flush(); err != nil {
		return apperrors.NewStorageError("flush "+sheet, err)
	}
	return nil
}

func writeTestsSheet(f *excelize.File, s *analysis.Summary) error {
	rows := [][]interface{}{
		{"Test", "Series", "Statistic", "P-value"},
		{"One-sample t-test", fmt.Sprintf("%s vs %g", s.PrimaryTicker, s.Threshold), s.TTest.Statistic, s.TTest.PValue},
		{"Pearson correlation", s.PrimaryTicker + " / " + s.CorrelationTicker, s.Pearson.Statistic, s.Pearson.PValue},
		{"Levene (median)", s.PrimaryTicker + " / " + s.VarianceTicker, s.Levene.Statistic, s.Levene.PValue},
		{"One-way ANOVA", "all tickers", s.ANOVA.Statistic, s.ANOVA.PValue},
	}
	if s.ARCH != nil {
		rows = append(rows,
			[]interface{}{fmt.Sprintf("ARCH LM (%d lags)", s.ARCH.NLags), s.PrimaryTicker, s.ARCH.LM, s.ARCH.LMPValue},
			[]interface{}{fmt.Sprintf("ARCH F (%d lags)", s.ARCH.NLags), s.PrimaryTicker, s.ARCH.F, s.ARCH.FPValue},
		)
	}
	if s.ADF != nil {
		rows = append(rows,
			[]interface{}{fmt.Sprintf("ADF (lag %d, nobs %d)", s.ADF.UsedLag, s.ADF.NObs), s.PrimaryTicker, s.ADF.Statistic, s.ADF.PValue},
			[]interface{}{"ADF critical value 1%", s.PrimaryTicker, s.ADF.CriticalValues.OnePct, nil},
			[]interface{}{"ADF critical value 5%", s.PrimaryTicker, s.ADF.CriticalValues.FivePct, nil},
			[]interface{}{"ADF critical value 10%", s.PrimaryTicker, s.ADF.CriticalValues.TenPct, nil},
		)
	}

	for i, row := range rows {
		for j := range row {
			if v, ok := row[j].(float64); ok {
				row[j] = cellValue(v)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetTests, cell, &row); err != nil {
			return apperrors.NewStorageError("write tests sheet", err)
		}
	}
	return nil
}

func writeCorrelationSheet(f *excelize.File, s *analysis.Summary) error {
	labels := s.Correlation.Labels
	header := make([]interface{}, 0, len(labels)+1)
	header = append(header, "")
	for _, l := range labels {
		header = append(header, l)
	}
	if err := f.SetSheetRow(SheetCorrelation, "A1", &header); err != nil {
		return apperrors.NewStorageError("write correlation header", err)
	}

	for i, values := range s.Correlation.Rows() {
		row := make([]interface{}, 0, len(values)+1)
		row = append(row, labels[i])
		for _, v := range values {
			row = append(row, cellValue(v))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetCorrelation, cell, &row); err != nil {
			return apperrors.NewStorageError("write correlation row", err)
		}
	}
	return nil
}

// cellValue leaves NaN and infinite values blank
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
