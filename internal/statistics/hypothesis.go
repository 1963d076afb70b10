// Package statistics implements the hypothesis tests run over return series.
//
// Distributions come from gonum's stat/distuv and regressions are solved with
// gonum/mat. Every routine reports errors.ErrInsufficientData (wrapped) when
// given fewer observations than it needs.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "stockperf/internal/errors"
)

// TestResult is a test statistic and its p-value
type TestResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
}

// Center selects the location Levene's test measures spread around
type Center int

const (
	CenterMedian Center = iota
	CenterMean
	CenterTrimmed
)

// LeveneTrimProportion is cut from each end of a sample for CenterTrimmed
const LeveneTrimProportion = 0.05

func (c Center) String() string {
	switch c {
	case CenterMedian:
		return "median"
	case CenterMean:
		return "mean"
	case CenterTrimmed:
		return "trimmed"
	default:
		return fmt.Sprintf("Center(%d)", int(c))
	}
}

// TTest1Samp is the two-sided one-sample t-test of H0: mean(xs) == mu.
// The standard deviation uses n-1 degrees of freedom.
func TTest1Samp(xs []float64, mu float64) (TestResult, error) {
	n := len(xs)
	if n < 2 {
		return TestResult{}, apperrors.Insufficient("one-sample t-test", n, 2)
	}

	mean, sd := stat.MeanStdDev(xs, nil)
	t := (mean - mu) / (sd / math.Sqrt(float64(n)))

	return TestResult{Statistic: t, PValue: studentsTTwoSided(t, float64(n-1))}, nil
}

// PearsonR returns the Pearson correlation of x and y with the two-sided
// p-value of H0: no correlation, from a t distribution with n-2 degrees of freedom.
func PearsonR(x, y []float64) (TestResult, error) {
	if len(x) != len(y) {
		return TestResult{}, apperrors.NewValidationError(
			fmt.Sprintf("pearson: series lengths differ (%d vs %d)", len(x), len(y)))
	}
	n := len(x)
	if n < 3 {
		return TestResult{}, apperrors.Insufficient("pearson correlation", n, 3)
	}

	r := stat.Correlation(x, y, nil)
	r = math.Max(-1, math.Min(1, r))
	if math.Abs(r) == 1 {
		return TestResult{Statistic: r, PValue: 0}, nil
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	return TestResult{Statistic: r, PValue: studentsTTwoSided(t, df)}, nil
}

// Levene tests H0: all groups have equal variance. It is the Brown-Forsythe
// variant when center is CenterMedian.
func Levene(center Center, groups ...[]float64) (TestResult, error) {
	k := len(groups)
	if k < 2 {
		return TestResult{}, apperrors.NewValidationError("levene: need at least two groups")
	}

	total := 0
	z := make([][]float64, k)
	zbar := make([]float64, k)
	for i, g := range groups {
		if len(g) == 0 {
			return TestResult{}, apperrors.Insufficient(fmt.Sprintf("levene group %d", i), 0, 1)
		}
		total += len(g)

		c, err := location(center, g)
		if err != nil {
			return TestResult{}, err
		}
		dev := make([]float64, len(g))
		for j, v := range g {
			dev[j] = math.Abs(v - c)
		}
		z[i] = dev
		zbar[i] = stat.Mean(dev, nil)
	}
	if total <= k {
		return TestResult{}, apperrors.Insufficient("levene", total, k+1)
	}

	var grand float64
	for i := range z {
		grand += zbar[i] * float64(len(z[i]))
	}
	grand /= float64(total)

	var between, within float64
	for i := range z {
		d := zbar[i] - grand
		between += float64(len(z[i])) * d * d
		for _, v := range z[i] {
			e := v - zbar[i]
			within += e * e
		}
	}

	d1, d2 := float64(k-1), float64(total-k)
	w := (d2 * between) / (d1 * within)
	return TestResult{Statistic: w, PValue: fSurvival(w, d1, d2)}, nil
}

// FOneWay is the one-way ANOVA of H0: all groups share the same mean
func FOneWay(groups ...[]float64) (TestResult, error) {
	k := len(groups)
	if k < 2 {
		return TestResult{}, apperrors.NewValidationError("anova: need at least two groups")
	}

	total := 0
	var sum float64
	for i, g := range groups {
		if len(g) == 0 {
			return TestResult{}, apperrors.Insufficient(fmt.Sprintf("anova group %d", i), 0, 1)
		}
		total += len(g)
		for _, v := range g {
			sum += v
		}
	}
	if total <= k {
		return TestResult{}, apperrors.Insufficient("anova", total, k+1)
	}
	grand := sum / float64(total)

	var between, within float64
	for _, g := range groups {
		m := stat.Mean(g, nil)
		between += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			within += (v - m) * (v - m)
		}
	}

	d1, d2 := float64(k-1), float64(total-k)
	f := (between / d1) / (within / d2)
	return TestResult{Statistic: f, PValue: fSurvival(f, d1, d2)}, nil
}

func location(center Center, xs []float64) (float64, error) {
	switch center {
	case CenterMedian:
		return median(xs), nil
	case CenterMean:
		return stat.Mean(xs, nil), nil
	case CenterTrimmed:
		return trimmedMean(xs, LeveneTrimProportion), nil
	default:
		return 0, apperrors.NewValidationError(fmt.Sprintf("levene: unknown center %v", center))
	}
}

// median averages the two middle values of an even-length sample
func median(xs []float64) float64 {
	s := sortedCopy(xs)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// trimmedMean drops int(proportion*n) values from each end before averaging
func trimmedMean(xs []float64, proportion float64) float64 {
	s := sortedCopy(xs)
	cut := int(proportion * float64(len(s)))
	return stat.Mean(s[cut:len(s)-cut], nil)
}

func sortedCopy(xs []float64) []float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	return s
}

func studentsTTwoSided(t, df float64) float64 {
	if math.IsNaN(t) {
		return math.NaN()
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

func fSurvival(f, d1, d2 float64) float64 {
	if math.IsNaN(f) {
		return math.NaN()
	}
	return distuv.F{D1: d1, D2: d2}.Survival(f)
}
