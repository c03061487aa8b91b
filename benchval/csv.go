// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchval

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// A CSVFormatter renders a MetricsMerger snapshot as a rectangular
// table. Header rows carry verbatim label/value pairs, padded so
// their value columns start after the path-part columns. Each data
// row holds the full path, optionally the individual path segments
// padded to the deepest path, and the exported value last.
//
// Headers: [["label_1", "value_1"], ["label_2", "value_2"]]
// Input:   {"A_1/B_1/Async": 1, "A_1/Total": 3, "Total": 3}
// Table:
//
//	["label_1",       "",      "",      "",      "value_1"]
//	["label_2",       "",      "",      "",      "value_2"]
//	["A_1/B_1/Async", "A_1",   "B_1",   "Async", 1]
//	["A_1/Total",     "A_1",   "Total", "",      3]
//	["Total",         "Total", "",      "",      3]
type CSVFormatter struct {
	table [][]any
}

// NewCSVFormatter builds the table for the given merger. valueFn
// transforms each Metric into its exported cell (nil exports the
// serialized form; GeomeanValue is the common choice). includeParts
// decomposes each path into per-segment columns in addition to the
// full path. sorted orders data rows alphabetically by full path.
func NewCSVFormatter(merger *MetricsMerger, valueFn ValueFn, headers [][]any, includeParts, sorted bool) *CSVFormatter {
	f := &CSVFormatter{}
	items := merger.Items(valueFn, sorted)
	maxPathDepth := extractMaxDepth(items, includeParts)
	f.appendHeaders(headers, maxPathDepth)
	f.appendBody(items, includeParts, maxPathDepth)
	return f
}

// extractMaxDepth returns the number of path-part columns: the
// maximum separator count across all paths, plus one.
func extractMaxDepth(items []MergedItem, includeParts bool) int {
	maxPathDepth := 0
	if includeParts {
		for _, item := range items {
			if n := strings.Count(item.Key, PathSeparator); n > maxPathDepth {
				maxPathDepth = n
			}
		}
	}
	return maxPathDepth + 1
}

func (f *CSVFormatter) appendHeaders(headers [][]any, maxPathDepth int) {
	for _, header := range headers {
		if len(header) == 0 {
			continue
		}
		row := make([]any, 0, len(header)+maxPathDepth)
		row = append(row, header[0])
		for i := 0; i < maxPathDepth; i++ {
			row = append(row, "")
		}
		row = append(row, header[1:]...)
		f.table = append(f.table, row)
	}
}

func (f *CSVFormatter) appendBody(items []MergedItem, includeParts bool, maxPathDepth int) {
	for _, item := range items {
		if !includeParts {
			f.table = append(f.table, []any{item.Key, item.Value})
			continue
		}
		parts := strings.Split(item.Key, PathSeparator)
		row := make([]any, 0, maxPathDepth+2)
		row = append(row, item.Key)
		for _, part := range parts {
			row = append(row, part)
		}
		for i := len(parts); i < maxPathDepth; i++ {
			row = append(row, "")
		}
		row = append(row, item.Value)
		f.table = append(f.table, row)
	}
}

// Table returns the formatted rows. The caller must not modify the
// returned slices.
func (f *CSVFormatter) Table() [][]any {
	return f.table
}

// WriteTab writes the table to w as UTF-8, tab-delimited rows.
func (f *CSVFormatter) WriteTab(w io.Writer) error {
	return WriteTabRows(w, f.table)
}

// WriteTabRows writes rows to w as UTF-8, tab-delimited records.
func WriteTabRows(w io.Writer, rows [][]any) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	record := []string{}
	for _, row := range rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, cellString(cell))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellString(cell any) string {
	switch x := cell.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case MetricJSON:
		raw, err := x.MarshalJSON()
		if err != nil {
			return fmt.Sprint(cell)
		}
		return string(raw)
	default:
		return fmt.Sprint(cell)
	}
}
