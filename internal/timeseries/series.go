package timeseries

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RollingMean returns the trailing mean over window values. The first
// window-1 entries are NaN, and so is any window containing a NaN.
func RollingMean(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window < 1 || window > len(xs) {
		return out
	}

	var sum float64
	nans := 0
	for i, x := range xs {
		if math.IsNaN(x) {
			nans++
		} else {
			sum += x
		}
		if i >= window {
			old := xs[i-window]
			if math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}
		if i >= window-1 && nans == 0 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// Square returns xs element-wise squared
func Square(xs []float64) []float64 {
	out := make([]float64, len(xs))
	floats.MulTo(out, xs, xs)
	return out
}

// Diff returns the first difference xs[i+1]-xs[i]; it is one shorter than xs
func Diff(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	floats.SubTo(out, xs[1:], xs[:len(xs)-1])
	return out
}
