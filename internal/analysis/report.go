package analysis

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// PrintResults writes one labelled line per test
func PrintResults(w io.Writer, s *Summary) error {
	lines := []string{
		fmt.Sprintf("T-statistic: %s, P-value: %s", FormatFloat(s.TTest.Statistic), FormatFloat(s.TTest.PValue)),
		fmt.Sprintf("Pearson Correlation: %s, P-value: %s", FormatFloat(s.Pearson.Statistic), FormatFloat(s.Pearson.PValue)),
		fmt.Sprintf("F-statistic: %s, P-value: %s", FormatFloat(s.Levene.Statistic), FormatFloat(s.Levene.PValue)),
		fmt.Sprintf("ANOVA F-statistic: %s, P-value: %s", FormatFloat(s.ANOVA.Statistic), FormatFloat(s.ANOVA.PValue)),
	}
	if s.ARCH != nil {
		lines = append(lines, fmt.Sprintf("ARCH Test Statistic: %s, P-value: %s", FormatFloat(s.ARCH.LM), FormatFloat(s.ARCH.LMPValue)))
	}
	if s.ADF != nil {
		lines = append(lines, fmt.Sprintf("ADF Statistic: %s, P-value: %s", FormatFloat(s.ADF.Statistic), FormatFloat(s.ADF.PValue)))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatFloat prints the shortest representation that round-trips, switching
// to exponent form below 1e-4 and from 1e16. Whole numbers keep a ".0".
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
