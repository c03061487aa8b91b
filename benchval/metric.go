// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchval provides the statistical containers used to merge
// per-run benchmark measurements into flat aggregates.
//
// A Metric accumulates the values observed for one measurement across
// runs. A MetricsMerger flattens hierarchical measurement records
// into a path-keyed collection of Metrics. A CSVFormatter renders a
// merged collection as a rectangular, tab-delimited table.
package benchval

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aclements/go-moremath/stats"
	json "github.com/goccy/go-json"
)

// IsNumber reports whether v is an int or float value. Bools and
// strings are not numbers.
func IsNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	}
	panic(fmt.Sprintf("benchval: not a number: %T", v))
}

// A Metric is an ordered sequence of observed values for a single
// measurement. Statistical accessors are only defined while every
// appended value is numeric; callers must gate on IsNumeric and a
// non-empty sequence before using them.
type Metric struct {
	values  []any
	numeric bool
}

// New returns a Metric holding the given values.
func New(values ...any) *Metric {
	m := &Metric{numeric: true}
	for _, v := range values {
		m.Append(v)
	}
	return m
}

// FromJSONRecord reconstructs a Metric from a serialized
// {"values": [...]} record, the leaf form produced by
// MetricsMerger.ToJSON.
func FromJSONRecord(record any) (*Metric, error) {
	obj, ok := record.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("benchval: metric record is %T, want object", record)
	}
	raw, ok := obj["values"]
	if !ok {
		return nil, fmt.Errorf("benchval: metric record has no values field")
	}
	values, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("benchval: metric values field is %T, want array", raw)
	}
	return New(values...), nil
}

// Append adds a value to the sequence. The numeric flag only ever
// transitions to false; once a non-numeric value has been observed
// the Metric stops being numeric for good.
func (m *Metric) Append(v any) {
	m.values = append(m.values, v)
	m.numeric = m.numeric && IsNumber(v)
}

// Len returns the number of values observed so far.
func (m *Metric) Len() int {
	return len(m.values)
}

// IsNumeric reports whether every value observed so far is a number.
// An empty Metric is numeric.
func (m *Metric) IsNumeric() bool {
	return m.numeric
}

// Values returns the observed values in encounter order. The caller
// must not modify the returned slice.
func (m *Metric) Values() []any {
	return m.values
}

func (m *Metric) floats() []float64 {
	if !m.numeric {
		panic("benchval: statistics on non-numeric Metric")
	}
	if len(m.values) == 0 {
		panic("benchval: statistics on empty Metric")
	}
	xs := make([]float64, len(m.values))
	for i, v := range m.values {
		xs[i] = toFloat(v)
	}
	return xs
}

// Min returns the smallest observed value.
func (m *Metric) Min() float64 {
	min, _ := stats.Bounds(m.floats())
	return min
}

// Max returns the largest observed value.
func (m *Metric) Max() float64 {
	_, max := stats.Bounds(m.floats())
	return max
}

// Sum returns the sum of the observed values.
func (m *Metric) Sum() float64 {
	var sum float64
	for _, x := range m.floats() {
		sum += x
	}
	return sum
}

// Average returns the arithmetic mean of the observed values.
func (m *Metric) Average() float64 {
	return stats.Mean(m.floats())
}

// Geomean returns the geometric mean of the observed values, computed
// as the n-th root of the product of all values. The result is NaN
// when the root is undefined for the product (for example a negative
// product with an even root).
func (m *Metric) Geomean() float64 {
	return Geomean(m.floats())
}

// Stddev returns the population standard deviation of the observed
// values (variance divided by n, not n-1). The observed repetitions
// are the whole population, not a sample of a larger one.
func (m *Metric) Stddev() float64 {
	xs := m.floats()
	mean := stats.Mean(xs)
	var variance float64
	for _, x := range xs {
		variance += (mean - x) * (mean - x)
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

// StddevPercent returns the population standard deviation as a
// percentage of the average, or 0 when the average is 0.
func (m *Metric) StddevPercent() float64 {
	average := m.Average()
	if average == 0 {
		return 0
	}
	return m.Stddev() / average * 100
}

// Geomean returns the n-th root of the product of values. Unlike a
// log-space geometric mean it is defined for a zero product (the
// result is 0) and propagates NaN when the root is undefined.
func Geomean(values []float64) float64 {
	product := 1.0
	for _, v := range values {
		product *= v
	}
	return math.Pow(product, 1/float64(len(values)))
}

// GeomeanValue extracts the geometric mean of a Metric. It is the
// usual value transform for CSV exports.
func GeomeanValue(m *Metric) any {
	return m.Geomean()
}

// A MetricStats holds the derived statistics of a numeric Metric in
// their serialized field order.
type MetricStats struct {
	Min           float64 `json:"min"`
	Average       float64 `json:"average"`
	Geomean       float64 `json:"geomean"`
	Max           float64 `json:"max"`
	Sum           float64 `json:"sum"`
	Stddev        float64 `json:"stddev"`
	StddevPercent float64 `json:"stddevPercent"`
}

// A MetricJSON is the serialized form of a Metric. The wire format is
// polymorphic: a statistics record for numeric data, a bare scalar
// for repeated identical non-numeric data, and a plain values record
// otherwise. MetricJSON keeps those cases in one static type and
// resolves the polymorphism in MarshalJSON.
type MetricJSON struct {
	// Values are the raw observed values.
	Values []any

	// Scalar is the collapsed value when IsScalar is set.
	Scalar any

	// IsScalar indicates that the Metric held repeated identical
	// non-numeric values and serializes as the bare value.
	IsScalar bool

	// Stats holds the derived statistics, or nil for non-numeric
	// or empty data.
	Stats *MetricStats
}

// MarshalJSON implements json.Marshaler.
func (j MetricJSON) MarshalJSON() ([]byte, error) {
	if j.IsScalar {
		return json.Marshal(j.Scalar)
	}
	values := j.Values
	if values == nil {
		values = []any{}
	}
	if j.Stats == nil {
		return json.Marshal(struct {
			Values []any `json:"values"`
		}{values})
	}
	return json.Marshal(struct {
		Values []any `json:"values"`
		MetricStats
	}{values, *j.Stats})
}

// JSON returns the serialized form of m.
//
// Empty and mixed non-numeric data keep the {"values": [...]} record.
// Numeric non-empty data additionally carries the derived statistics.
// Repeated identical non-numeric scalar values collapse to the bare
// value, a deliberately lossy simplification for constant categorical
// data such as a build ID repeated once per run.
func (m *Metric) JSON() MetricJSON {
	out := MetricJSON{Values: m.values}
	if len(m.values) == 0 {
		return out
	}
	if m.numeric {
		out.Stats = &MetricStats{
			Min:           m.Min(),
			Average:       m.Average(),
			Geomean:       m.Geomean(),
			Max:           m.Max(),
			Sum:           m.Sum(),
			Stddev:        m.Stddev(),
			StddevPercent: m.StddevPercent(),
		}
		return out
	}
	if scalar, ok := collapseScalar(m.values); ok {
		out.Scalar = scalar
		out.IsScalar = true
	}
	return out
}

// collapseScalar returns the single repeated value if every value in
// the sequence is the same comparable scalar.
func collapseScalar(values []any) (any, bool) {
	first := values[0]
	switch first.(type) {
	case string, bool, nil:
	default:
		return nil, false
	}
	for _, v := range values[1:] {
		if v != first {
			return nil, false
		}
	}
	return first, true
}

// FormatValue renders a value and its standard deviation as
// "value ± percent%", showing the first significant digit plus one
// for both the value and the percentage independently:
//
//	100 ± 10%
//	100.1 ± 1.2%
//	100.12 ± 0.12%
//	100.123 ± 0.012%
//
// A zero stddev renders the bare value.
func FormatValue(value, stddev float64) string {
	if stddev == 0 {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	valueDigit := int(math.Floor(math.Log10(math.Abs(stddev))))
	valueWidth := 1 - valueDigit
	if valueWidth < 0 {
		valueWidth = 0
	}
	percent := stddev / value * 100
	percentDigit := int(math.Floor(math.Log10(math.Abs(percent))))
	percentWidth := 1 - percentDigit
	if percentWidth < 0 {
		percentWidth = 0
	}
	return fmt.Sprintf("%.*f ± %.*f%%", valueWidth, value, percentWidth, percent)
}
