package statistics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "stockperf/internal/errors"
	"stockperf/internal/timeseries"
)

// Correlations is a labelled Pearson correlation matrix
type Correlations struct {
	Labels []string
	Values *mat.SymDense
}

// CorrelationMatrix computes pairwise Pearson correlations between the frame's columns
func CorrelationMatrix(frame *timeseries.Frame) (*Correlations, error) {
	rows, cols := frame.Len(), len(frame.Columns)
	if cols == 0 {
		return nil, apperrors.NewValidationError("correlation matrix: frame has no columns")
	}
	if rows < 2 {
		return nil, apperrors.Insufficient("correlation matrix", rows, 2)
	}

	data := mat.NewDense(rows, cols, nil)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			data.Set(r, c, frame.At(r, c))
		}
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, data, nil)

	return &Correlations{
		Labels: append([]string(nil), frame.Columns...),
		Values: &corr,
	}, nil
}

// Get returns the correlation between two labelled series
func (c *Correlations) Get(a, b string) (float64, error) {
	i, j := c.index(a), c.index(b)
	if i < 0 || j < 0 {
		return 0, fmt.Errorf("correlation between %s and %s: unknown series", a, b)
	}
	return c.Values.At(i, j), nil
}

// Rows returns the matrix as nested slices in label order
func (c *Correlations) Rows() [][]float64 {
	n := len(c.Labels)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = c.Values.At(i, j)
		}
	}
	return out
}

func (c *Correlations) index(label string) int {
	for i, l := range c.Labels {
		if l == label {
			return i
		}
	}
	return -1
}
