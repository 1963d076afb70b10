package statistics

import (
	"encoding/json"
	"math"
)

// finite returns nil for NaN and ±Inf so they encode as JSON null
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON implements json.Marshaler
func (r TestResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Statistic *float64 `json:"statistic"`
		PValue    *float64 `json:"p_value"`
	}{finite(r.Statistic), finite(r.PValue)})
}

// MarshalJSON implements json.Marshaler
func (r ARCHResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		LM       *float64 `json:"lm"`
		LMPValue *float64 `json:"lm_p_value"`
		F        *float64 `json:"f"`
		FPValue  *float64 `json:"f_p_value"`
		NLags    int      `json:"nlags"`
		NObs     int      `json:"nobs"`
	}{finite(r.LM), finite(r.LMPValue), finite(r.F), finite(r.FPValue), r.NLags, r.NObs})
}

// MarshalJSON implements json.Marshaler. ICBest is null when no lag search ran.
func (r ADFResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Statistic      *float64       `json:"statistic"`
		PValue         *float64       `json:"p_value"`
		UsedLag        int            `json:"used_lag"`
		NObs           int            `json:"nobs"`
		CriticalValues CriticalValues `json:"critical_values"`
		ICBest         *float64       `json:"ic_best"`
	}{finite(r.Statistic), finite(r.PValue), r.UsedLag, r.NObs, r.CriticalValues, finite(r.ICBest)})
}

type correlationsJSON struct {
	Labels []string     `json:"labels"`
	Values [][]*float64 `json:"values"`
}

// MarshalJSON encodes the matrix as labels plus nested rows
func (c *Correlations) MarshalJSON() ([]byte, error) {
	rows := c.Rows()
	values := make([][]*float64, len(rows))
	for i, row := range rows {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			values[i][j] = finite(v)
		}
	}
	return json.Marshal(correlationsJSON{Labels: c.Labels, Values: values})
}
