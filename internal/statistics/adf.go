package statistics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "stockperf/internal/errors"
	"stockperf/internal/timeseries"
)

// Autolag chooses how ADFuller picks the number of lagged differences
type Autolag string

const (
	AutolagAIC  Autolag = "aic"
	AutolagBIC  Autolag = "bic"
	AutolagNone Autolag = "none"
)

// ADFOptions configures ADFuller. A negative MaxLag selects
// ceil(12·(n/100)^¼), capped at n/2-2.
type ADFOptions struct {
	MaxLag  int
	Autolag Autolag
}

// DefaultADFOptions searches the default lag schedule by AIC
func DefaultADFOptions() ADFOptions {
	return ADFOptions{MaxLag: -1, Autolag: AutolagAIC}
}

// CriticalValues are the test statistic quantiles at 1, 5 and 10 percent
type CriticalValues struct {
	OnePct  float64 `json:"1%"`
	FivePct float64 `json:"5%"`
	TenPct  float64 `json:"10%"`
}

// ADFResult is the augmented Dickey-Fuller unit root test with a constant
type ADFResult struct {
	Statistic      float64        `json:"statistic"`
	PValue         float64        `json:"p_value"`
	UsedLag        int            `json:"used_lag"`
	NObs           int            `json:"nobs"`
	CriticalValues CriticalValues `json:"critical_values"`
	ICBest         float64        `json:"ic_best"`
}

// ADFuller tests H0: x has a unit root, regressing Δx_t on a constant,
// x_{t-1} and the lagged differences Δx_{t-1..t-p}.
func ADFuller(x []float64, opts ADFOptions) (*ADFResult, error) {
	n := len(x)
	maxlag := opts.MaxLag
	if maxlag < 0 {
		maxlag = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
		if limit := n/2 - 2; limit < maxlag {
			maxlag = limit
		}
		if maxlag < 0 {
			return nil, apperrors.Insufficient("adf", n, 4)
		}
	}

	dx := timeseries.Diff(x)
	if len(dx)-maxlag <= maxlag+2 {
		return nil, apperrors.Insufficient("adf", n, 2*maxlag+4)
	}

	usedLag := maxlag
	icBest := math.NaN()

	switch opts.Autolag {
	case AutolagAIC, AutolagBIC:
		// every candidate is fitted on the same maxlag-trimmed sample
		for lag := 0; lag <= maxlag; lag++ {
			y, design := adfDesign(x, dx, lag, maxlag)
			fit, err := OLS(y, design)
			if err != nil {
				return nil, fmt.Errorf("adf lag %d: %w", lag, err)
			}
			ic := fit.AIC
			if opts.Autolag == AutolagBIC {
				ic = fit.BIC
			}
			if lag == 0 || ic < icBest {
				icBest, usedLag = ic, lag
			}
		}
	case AutolagNone, "":
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("adf: unknown autolag %q", opts.Autolag))
	}

	y, design := adfDesign(x, dx, usedLag, usedLag)
	fit, err := OLS(y, design)
	if err != nil {
		return nil, fmt.Errorf("adf regression: %w", err)
	}

	stat := fit.TValues[1]
	return &ADFResult{
		Statistic:      stat,
		PValue:         MacKinnonP(stat),
		UsedLag:        usedLag,
		NObs:           fit.NObs,
		CriticalValues: MacKinnonCrit(fit.NObs),
		ICBest:         icBest,
	}, nil
}

// adfDesign builds the regression of dx[t] on [1, x[t], dx[t-1], ..., dx[t-lags]]
// for t from trim to the end of dx.
func adfDesign(x, dx []float64, lags, trim int) ([]float64, *mat.Dense) {
	rows := len(dx) - trim
	design := mat.NewDense(rows, lags+2, nil)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := r + trim
		y[r] = dx[t]
		design.Set(r, 0, 1)
		design.Set(r, 1, x[t])
		for j := 1; j <= lags; j++ {
			design.Set(r, j+1, dx[t-j])
		}
	}
	return y, design
}

// MacKinnon (1994) response surface for the constant-only, single series case
const (
	tauMaxC  = 2.74
	tauMinC  = -18.83
	tauStarC = -1.61
)

var (
	tauSmallPC = []float64{2.1659, 1.4412, 0.038269}
	tauLargePC = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// MacKinnonP returns the approximate p-value of an ADF statistic from a
// regression with a constant.
func MacKinnonP(stat float64) float64 {
	switch {
	case math.IsNaN(stat):
		return math.NaN()
	case stat > tauMaxC:
		return 1
	case stat < tauMinC:
		return 0
	}

	coef := tauLargePC
	if stat <= tauStarC {
		coef = tauSmallPC
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

// MacKinnon (2010) critical value coefficients for the constant, single series case
var tauC2010 = [3][]float64{
	{-3.43035, -6.5393, -16.786, -79.433},
	{-2.86154, -2.8903, -4.234, -40.040},
	{-2.56677, -1.5384, -2.809, 0},
}

// MacKinnonCrit returns the 1, 5 and 10 percent critical values for nobs
// observations. Non-positive nobs gives the asymptotic values.
func MacKinnonCrit(nobs int) CriticalValues {
	if nobs <= 0 {
		return CriticalValues{tauC2010[0][0], tauC2010[1][0], tauC2010[2][0]}
	}
	inv := 1 / float64(nobs)
	return CriticalValues{
		OnePct:  polyval(tauC2010[0], inv),
		FivePct: polyval(tauC2010[1], inv),
		TenPct:  polyval(tauC2010[2], inv),
	}
}

// polyval evaluates c[0] + c[1]x + c[2]x² + ...
func polyval(c []float64, x float64) float64 {
	var v float64
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
