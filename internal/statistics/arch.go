package statistics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "stockperf/internal/errors"
)

// ARCHResult is Engle's test for autoregressive conditional heteroskedasticity
type ARCHResult struct {
	LM       float64 `json:"lm"`
	LMPValue float64 `json:"lm_p_value"`
	F        float64 `json:"f"`
	FPValue  float64 `json:"f_p_value"`
	NLags    int     `json:"nlags"`
	NObs     int     `json:"nobs"`
}

// HetARCH regresses resid² on a constant and nlags of its own lags.
// LM = nobs·R² is χ²(nlags) under H0: no ARCH effects.
func HetARCH(resid []float64, nlags int) (*ARCHResult, error) {
	if nlags < 1 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("arch: nlags must be positive, got %d", nlags))
	}

	sq := make([]float64, len(resid))
	for i, r := range resid {
		sq[i] = r * r
	}

	nobs := len(sq) - nlags
	if nobs <= nlags+1 {
		return nil, apperrors.Insufficient("arch test", len(resid), 2*nlags+2)
	}

	x := mat.NewDense(nobs, nlags+1, nil)
	y := make([]float64, nobs)
	for r := 0; r < nobs; r++ {
		t := r + nlags
		y[r] = sq[t]
		x.Set(r, 0, 1)
		for j := 1; j <= nlags; j++ {
			x.Set(r, j, sq[t-j])
		}
	}

	fit, err := OLS(y, x)
	if err != nil {
		return nil, fmt.Errorf("arch auxiliary regression: %w", err)
	}

	lm := float64(nobs) * fit.RSquared
	return &ARCHResult{
		LM:       lm,
		LMPValue: distuv.ChiSquared{K: float64(nlags)}.Survival(lm),
		F:        fit.FValue,
		FPValue:  fit.FPValue,
		NLags:    nlags,
		NObs:     nobs,
	}, nil
}
