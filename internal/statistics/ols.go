package statistics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "stockperf/internal/errors"
)

// OLSResult holds an ordinary least squares fit
type OLSResult struct {
	Params    []float64
	StdErrors []float64
	TValues   []float64
	Resid     []float64

	SSR      float64
	RSquared float64
	LogLike  float64
	AIC      float64
	BIC      float64
	FValue   float64
	FPValue  float64

	NObs    int
	DFModel int
	DFResid int
}

// OLS regresses y on the columns of x. x must contain an intercept column;
// R² and the F statistic are taken about the mean of y.
func OLS(y []float64, x *mat.Dense) (*OLSResult, error) {
	n, k := x.Dims()
	if n != len(y) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("ols: %d observations but design has %d rows", len(y), n))
	}
	if n <= k {
		return nil, apperrors.Insufficient("ols", n, k+1)
	}

	var qr mat.QR
	qr.Factorize(x)

	yv := mat.NewVecDense(n, y)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yv); err != nil && !isConditionOnly(err) {
		return nil, apperrors.NewStatisticsError("ols: solve normal equations", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	resid := make([]float64, n)
	var ssr, ybar float64
	for i := 0; i < n; i++ {
		resid[i] = y[i] - fitted.AtVec(i)
		ssr += resid[i] * resid[i]
		ybar += y[i]
	}
	ybar /= float64(n)

	var tss float64
	for _, v := range y {
		tss += (v - ybar) * (v - ybar)
	}

	var xtx, cov mat.Dense
	xtx.Mul(x.T(), x)
	if err := cov.Inverse(&xtx); err != nil && !isConditionOnly(err) {
		return nil, apperrors.NewStatisticsError("ols: invert X'X", err)
	}

	dfResid := n - k
	sigma2 := ssr / float64(dfResid)

	res := &OLSResult{
		Params:    make([]float64, k),
		StdErrors: make([]float64, k),
		TValues:   make([]float64, k),
		Resid:     resid,
		SSR:       ssr,
		NObs:      n,
		DFModel:   k - 1,
		DFResid:   dfResid,
	}
	for j := 0; j < k; j++ {
		res.Params[j] = beta.AtVec(j)
		res.StdErrors[j] = math.Sqrt(sigma2 * cov.At(j, j))
		res.TValues[j] = res.Params[j] / res.StdErrors[j]
	}

	nf := float64(n)
	res.RSquared = 1 - ssr/tss
	res.LogLike = -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	res.AIC = -2*res.LogLike + 2*float64(k)
	res.BIC = -2*res.LogLike + math.Log(nf)*float64(k)

	if res.DFModel > 0 {
		res.FValue = ((tss - ssr) / float64(res.DFModel)) / sigma2
		res.FPValue = fSurvival(res.FValue, float64(res.DFModel), float64(dfResid))
	} else {
		res.FValue, res.FPValue = math.NaN(), math.NaN()
	}

	return res, nil
}

// isConditionOnly reports whether err only warns about a poorly conditioned matrix
func isConditionOnly(err error) bool {
	var cond mat.Condition
	return errors.As(err, &cond) && !math.IsInf(float64(cond), 1)
}
