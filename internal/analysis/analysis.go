// Package analysis runs the fixed battery of hypothesis tests over a return frame.
package analysis

import (
	"time"

	"stockperf/internal/config"
	apperrors "stockperf/internal/errors"
	"stockperf/internal/statistics"
	"stockperf/internal/timeseries"
)

// Summary collects every statistic produced by a session
type Summary struct {
	RunID        string    `json:"run_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	Tickers      []string  `json:"tickers"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	Observations int       `json:"observations"`

	PrimaryTicker     string  `json:"primary_ticker"`
	CorrelationTicker string  `json:"correlation_ticker"`
	VarianceTicker    string  `json:"variance_ticker"`
	Threshold         float64 `json:"threshold"`

	TTest       statistics.TestResult    `json:"t_test"`
	Pearson     statistics.TestResult    `json:"pearson"`
	Levene      statistics.TestResult    `json:"levene"`
	ANOVA       statistics.TestResult    `json:"anova"`
	ARCH        *statistics.ARCHResult   `json:"arch"`
	ADF         *statistics.ADFResult    `json:"adf"`
	Correlation *statistics.Correlations `json:"correlation"`
}

// Run applies the test battery to returns:
//   - one-sample t-test of the primary ticker against the threshold
//   - Pearson correlation of the primary and correlation tickers
//   - Levene (median) equal-variance test of the primary and variance tickers
//   - one-way ANOVA across every ticker
//   - ARCH LM test and augmented Dickey-Fuller test on the primary ticker
func Run(returns *timeseries.Frame, cfg config.AnalysisConfig) (*Summary, error) {
	columns := make(map[string][]float64, len(cfg.Tickers))
	for _, ticker := range cfg.Tickers {
		col, ok := returns.Column(ticker)
		if !ok {
			return nil, apperrors.NewNotFoundError("return series " + ticker)
		}
		columns[ticker] = col
	}
	for _, role := range []string{cfg.PrimaryTicker, cfg.CorrelationTicker, cfg.VarianceTicker} {
		if _, ok := columns[role]; !ok {
			return nil, apperrors.NewNotFoundError("return series " + role)
		}
	}
	primary := columns[cfg.PrimaryTicker]

	s := &Summary{
		Tickers:           append([]string(nil), cfg.Tickers...),
		Start:             cfg.StartDate,
		End:               cfg.EndDate,
		Observations:      returns.Len(),
		PrimaryTicker:     cfg.PrimaryTicker,
		CorrelationTicker: cfg.CorrelationTicker,
		VarianceTicker:    cfg.VarianceTicker,
		Threshold:         cfg.Threshold,
		GeneratedAt:       time.Now().UTC(),
	}

	var err error
	if s.TTest, err = statistics.TTest1Samp(primary, cfg.Threshold); err != nil {
		return nil, apperrors.NewStatisticsError("t-test", err)
	}
	if s.Pearson, err = statistics.PearsonR(primary, columns[cfg.CorrelationTicker]); err != nil {
		return nil, apperrors.NewStatisticsError("pearson correlation", err)
	}
	if s.Levene, err = statistics.Levene(statistics.CenterMedian, primary, columns[cfg.VarianceTicker]); err != nil {
		return nil, apperrors.NewStatisticsError("levene test", err)
	}

	groups := make([][]float64, len(cfg.Tickers))
	for i, ticker := range cfg.Tickers {
		groups[i] = columns[ticker]
	}
	if s.ANOVA, err = statistics.FOneWay(groups...); err != nil {
		return nil, apperrors.NewStatisticsError("anova", err)
	}

	if s.ARCH, err = statistics.HetARCH(primary, cfg.ARCHLags); err != nil {
		return nil, apperrors.NewStatisticsError("arch test", err)
	}
	if s.ADF, err = statistics.ADFuller(primary, statistics.DefaultADFOptions()); err != nil {
		return nil, apperrors.NewStatisticsError("adf test", err)
	}

	// frame column order, as the heatmap shows it
	if s.Correlation, err = statistics.CorrelationMatrix(returns); err != nil {
		return nil, apperrors.NewStatisticsError("correlation matrix", err)
	}

	return s, nil
}
