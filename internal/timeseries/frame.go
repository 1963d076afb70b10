// Package timeseries provides the date-indexed price and return tables used by a session.
package timeseries

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Point is one observation of a single series
type Point struct {
	Date  time.Time
	Value float64
}

// Frame is a date-indexed table of float columns. Missing values are NaN.
// Data is stored column-major: data[col][row].
type Frame struct {
	Index   []time.Time
	Columns []string
	data    [][]float64
}

// NewFrame builds a frame from column-major data. Every column must have one
// value per index entry.
func NewFrame(index []time.Time, columns []string, data [][]float64) (*Frame, error) {
	if len(columns) != len(data) {
		return nil, fmt.Errorf("frame has %d columns but %d data columns", len(columns), len(data))
	}
	seen := make(map[string]struct{}, len(columns))
	for i, name := range columns {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		if len(data[i]) != len(index) {
			return nil, fmt.Errorf("column %q has %d values, index has %d", name, len(data[i]), len(index))
		}
	}

	f := &Frame{
		Index:   append([]time.Time(nil), index...),
		Columns: append([]string(nil), columns...),
		data:    make([][]float64, len(data)),
	}
	for i := range data {
		f.data[i] = append([]float64(nil), data[i]...)
	}
	return f, nil
}

// FromSeries outer-joins named series on their dates. Rows are sorted by date
// and columns alphabetically; a date missing from a series is NaN.
func FromSeries(series map[string][]Point) *Frame {
	columns := make([]string, 0, len(series))
	dates := make(map[time.Time]struct{})
	for name, points := range series {
		columns = append(columns, name)
		for _, p := range points {
			dates[p.Date] = struct{}{}
		}
	}
	sort.Strings(columns)

	index := make([]time.Time, 0, len(dates))
	for d := range dates {
		index = append(index, d)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	rowOf := make(map[time.Time]int, len(index))
	for i, d := range index {
		rowOf[d] = i
	}

	data := make([][]float64, len(columns))
	for c, name := range columns {
		col := nanSlice(len(index))
		for _, p := range series[name] {
			col[rowOf[p.Date]] = p.Value
		}
		data[c] = col
	}

	return &Frame{Index: index, Columns: columns, data: data}
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.Index)
}

// Column returns a copy of the named column
func (f *Frame) Column(name string) ([]float64, bool) {
	i := f.columnIndex(name)
	if i < 0 {
		return nil, false
	}
	return append([]float64(nil), f.data[i]...), true
}

// At returns the value at row, col
func (f *Frame) At(row, col int) float64 {
	return f.data[col][row]
}

// Row returns a copy of one row in column order
func (f *Frame) Row(row int) []float64 {
	out := make([]float64, len(f.data))
	for c := range f.data {
		out[c] = f.data[c][row]
	}
	return out
}

// Head returns the first n rows
func (f *Frame) Head(n int) *Frame {
	if n > f.Len() {
		n = f.Len()
	}
	if n < 0 {
		n = 0
	}
	return f.slice(0, n)
}

// PctChange returns the fractional change of each column against the previous row.
// Missing prices are first carried forward from the last valid one, so a gap day
// has a zero return. The first row and any row before a column's first price are NaN.
func (f *Frame) PctChange() *Frame {
	data := make([][]float64, len(f.data))
	for c, col := range f.data {
		out := nanSlice(len(col))
		last := math.NaN()
		for i, cur := range col {
			if math.IsNaN(cur) {
				cur = last
			}
			if i > 0 && !math.IsNaN(last) && !math.IsNaN(cur) {
				out[i] = cur/last - 1
			}
			last = cur
		}
		data[c] = out
	}
	return &Frame{
		Index:   append([]time.Time(nil), f.Index...),
		Columns: append([]string(nil), f.Columns...),
		data:    data,
	}
}

// DropNA removes every row that holds at least one NaN
func (f *Frame) DropNA() *Frame {
	keep := make([]int, 0, f.Len())
	for r := range f.Index {
		complete := true
		for c := range f.data {
			if math.IsNaN(f.data[c][r]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}

	out := &Frame{
		Index:   make([]time.Time, len(keep)),
		Columns: append([]string(nil), f.Columns...),
		data:    make([][]float64, len(f.data)),
	}
	for i, r := range keep {
		out.Index[i] = f.Index[r]
	}
	for c, col := range f.data {
		vals := make([]float64, len(keep))
		for i, r := range keep {
			vals[i] = col[r]
		}
		out.data[c] = vals
	}
	return out
}

// String renders the frame as an aligned text table
func (f *Frame) String() string {
	const dateHeader = "Date"

	cells := make([][]string, len(f.Columns))
	widths := make([]int, len(f.Columns))
	for c, name := range f.Columns {
		widths[c] = len(name)
		cells[c] = make([]string, f.Len())
		for r := range f.Index {
			s := "NaN"
			if v := f.data[c][r]; !math.IsNaN(v) {
				s = fmt.Sprintf("%.6f", v)
			}
			cells[c][r] = s
			if len(s) > widths[c] {
				widths[c] = len(s)
			}
		}
	}

	dateWidth := len(dateHeader)
	if f.Len() > 0 {
		dateWidth = len("2006-01-02")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", dateWidth, dateHeader)
	for c, name := range f.Columns {
		fmt.Fprintf(&b, "  %*s", widths[c], name)
	}
	b.WriteByte('\n')
	for r, d := range f.Index {
		fmt.Fprintf(&b, "%-*s", dateWidth, d.Format("2006-01-02"))
		for c := range f.Columns {
			fmt.Fprintf(&b, "  %*s", widths[c], cells[c][r])
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\n[%d rows x %d columns]\n", f.Len(), len(f.Columns))
	return b.String()
}

func (f *Frame) slice(from, to int) *Frame {
	out := &Frame{
		Index:   append([]time.Time(nil), f.Index[from:to]...),
		Columns: append([]string(nil), f.Columns...),
		data:    make([][]float64, len(f.data)),
	}
	for c, col := range f.data {
		out.data[c] = append([]float64(nil), col[from:to]...)
	}
	return out
}

func (f *Frame) columnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
