// Package charts renders the session's diagnostic charts to image files.
package charts

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"stockperf/internal/config"
	apperrors "stockperf/internal/errors"
	"stockperf/internal/timeseries"
)

// Figure sizes
var (
	wideWidth, wideHeight       = 14 * vg.Inch, 7 * vg.Inch
	heatmapWidth, heatmapHeight = 10 * vg.Inch, 6 * vg.Inch
	boxWidth, boxHeight         = 8 * vg.Inch, 6 * vg.Inch
)

var orange = color.RGBA{R: 255, G: 165, A: 255}

// Renderer writes charts below Dir in Format (png, svg or pdf)
type Renderer struct {
	Dir    string
	Format string
	logger *slog.Logger
}

// NewRenderer creates a renderer; an empty format means png
func NewRenderer(dir, format string, logger *slog.Logger) *Renderer {
	if format == "" {
		format = config.DefaultChartFormat
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{Dir: dir, Format: strings.ToLower(format), logger: logger}
}

// ReturnsLines plots one daily return line per ticker
func (r *Renderer) ReturnsLines(returns *timeseries.Frame, tickers []string) (string, error) {
	p := newTimePlot(fmt.Sprintf("Daily Returns of %s", strings.Join(tickers, ", ")), "Daily Return")

	for i, ticker := range tickers {
		ys, ok := returns.Column(ticker)
		if !ok {
			return "", apperrors.NewNotFoundError("return series " + ticker)
		}
		line, err := plotter.NewLine(timeXYs(returns.Index, ys))
		if err != nil {
			return "", fmt.Errorf("returns line %s: %w", ticker, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(0.7)
		p.Add(line)
		p.Legend.Add(ticker, line)
	}
	p.Legend.Top = true

	return r.save(p, config.ChartDailyReturns, wideWidth, wideHeight)
}

// SquaredReturns plots ticker's squared returns to show volatility clustering
func (r *Renderer) SquaredReturns(returns *timeseries.Frame, ticker string) (string, error) {
	ys, ok := returns.Column(ticker)
	if !ok {
		return "", apperrors.NewNotFoundError("return series " + ticker)
	}

	p := newTimePlot(fmt.Sprintf("Squared Returns of %s (Volatility Clustering)", ticker), "Squared Returns")
	line, err := plotter.NewLine(timeXYs(returns.Index, timeseries.Square(ys)))
	if err != nil {
		return "", fmt.Errorf("squared returns line: %w", err)
	}
	line.Color = plotutil.Color(0)
	p.Add(line)

	return r.save(p, config.ChartSquaredReturns, wideWidth, wideHeight)
}

// RollingMean plots ticker's returns with their trailing window-day mean
func (r *Renderer) RollingMean(returns *timeseries.Frame, ticker string, window int) (string, error) {
	ys, ok := returns.Column(ticker)
	if !ok {
		return "", apperrors.NewNotFoundError("return series " + ticker)
	}

	p := newTimePlot(fmt.Sprintf("%s Returns and Rolling Mean", ticker), "Returns")

	raw, err := plotter.NewLine(timeXYs(returns.Index, ys))
	if err != nil {
		return "", fmt.Errorf("returns line: %w", err)
	}
	raw.Color = plotutil.Color(0)
	p.Add(raw)
	p.Legend.Add(ticker+" Returns", raw)

	// the mean is undefined until the first window fills
	mean := timeXYs(returns.Index, timeseries.RollingMean(ys, window))
	if len(mean) > 0 {
		rolling, err := plotter.NewLine(mean)
		if err != nil {
			return "", fmt.Errorf("rolling mean line: %w", err)
		}
		rolling.Color = orange
		rolling.Width = vg.Points(1.5)
		p.Add(rolling)
		p.Legend.Add(fmt.Sprintf("%d-Day Rolling Mean", window), rolling)
	}
	p.Legend.Top = true

	return r.save(p, config.ChartRollingMean, wideWidth, wideHeight)
}

// VolatilityBoxPlot compares the spread of two return series
func (r *Renderer) VolatilityBoxPlot(returns *timeseries.Frame, a, b string) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Comparison of Volatility (Variance) Between %s and %s", a, b)
	p.Y.Label.Text = "Daily Returns"

	for i, ticker := range []string{a, b} {
		ys, ok := returns.Column(ticker)
		if !ok {
			return "", apperrors.NewNotFoundError("return series " + ticker)
		}
		box, err := plotter.NewBoxPlot(vg.Points(60), float64(i), plotter.Values(ys))
		if err != nil {
			return "", fmt.Errorf("box plot %s: %w", ticker, err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(a, b)

	return r.save(p, config.ChartVolatilityBoxPlot, boxWidth, boxHeight)
}

func (r *Renderer) save(p *plot.Plot, name string, w, h vg.Length) (string, error) {
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", apperrors.NewStorageError("create charts directory", err)
	}
	path := filepath.Join(r.Dir, name+"."+r.Format)
	if err := p.Save(w, h, path); err != nil {
		return "", apperrors.NewStorageError("save chart "+name, err)
	}
	r.logger.Info("Chart written", slog.String("chart", name), slog.String("path", path))
	return path, nil
}

func newTimePlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())
	return p
}

// timeXYs pairs dates with values, skipping NaN values
func timeXYs(dates []time.Time, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(ys))
	for i, y := range ys {
		if math.IsNaN(y) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(dates[i].Unix()), Y: y})
	}
	return pts
}
