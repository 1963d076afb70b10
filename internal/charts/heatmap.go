package charts

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg/draw"

	"stockperf/internal/config"
	"stockperf/internal/statistics"
)

// correlationGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// matrix is drawn at the top.
type correlationGrid struct {
	values [][]float64
}

func (g correlationGrid) Dims() (c, r int)   { return len(g.values), len(g.values) }
func (g correlationGrid) Z(c, r int) float64 { return g.values[len(g.values)-1-r][c] }
func (g correlationGrid) X(c int) float64    { return float64(c) }
func (g correlationGrid) Y(r int) float64    { return float64(r) }

// CorrelationHeatmap draws the annotated correlation matrix on a diverging
// palette fixed to [-1, 1].
func (r *Renderer) CorrelationHeatmap(corr *statistics.Correlations) (string, error) {
	grid := correlationGrid{values: corr.Rows()}
	n := len(corr.Labels)

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	heat := plotter.NewHeatMap(grid, cmap.Palette(255))
	heat.Min, heat.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Correlation Heatmap of Stock Returns"
	p.Add(heat)

	xys := make(plotter.XYs, 0, n*n)
	text := make([]string, 0, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			xys = append(xys, plotter.XY{X: float64(col), Y: float64(row)})
			text = append(text, fmt.Sprintf("%.2f", grid.Z(col, row)))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: text})
	if err != nil {
		return "", fmt.Errorf("heatmap labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
		labels.TextStyle[i].Color = color.Black
	}
	p.Add(labels)

	yNames := make([]string, n)
	for i, l := range corr.Labels {
		yNames[n-1-i] = l
	}
	p.NominalX(corr.Labels...)
	p.NominalY(yNames...)

	return r.save(p, config.ChartCorrelationMatrix, heatmapWidth, heatmapHeight)
}
