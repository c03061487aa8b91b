// Copyright 2024 The Browser Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchprobe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// MergeCSVRows merges tables side by side, aligning rows on their
// first cell (the row header: a metric path or an info label). Row
// order follows first encounter across tables in table order. A table
// that lacks a row contributes empty cells for its columns, so every
// table's columns stay vertically aligned in the output.
func MergeCSVRows(tables [][][]string) [][]string {
	type rowKey struct {
		header     string
		occurrence int
	}

	widths := make([]int, len(tables))
	for i, table := range tables {
		for _, row := range table {
			if len(row)-1 > widths[i] {
				widths[i] = len(row) - 1
			}
		}
	}

	var order []rowKey
	payloads := make(map[rowKey][][]string)
	for i, table := range tables {
		seen := make(map[string]int)
		for _, row := range table {
			if len(row) == 0 {
				continue
			}
			key := rowKey{row[0], seen[row[0]]}
			seen[row[0]]++
			cells, ok := payloads[key]
			if !ok {
				cells = make([][]string, len(tables))
				payloads[key] = cells
				order = append(order, key)
			}
			cells[i] = row[1:]
		}
	}

	merged := make([][]string, 0, len(order))
	for _, key := range order {
		row := []string{key.header}
		for i, cells := range payloads[key] {
			row = append(row, cells...)
			for pad := len(cells); pad < widths[i]; pad++ {
				row = append(row, "")
			}
		}
		merged = append(merged, row)
	}
	return merged
}

// readTabFile reads a tab-delimited CSV file into rows of cells.
// Rows may have differing widths.
func readTabFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("benchprobe: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("benchprobe: %s: %w", path, err)
	}
	return rows, nil
}

func writeTabStrings(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("benchprobe: %w", err)
	}
	return nil
}
