// Copyright (C) 2024 mflvn.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// loadHistory reads the bootstrap CSV into the history map. Each data
// row starts with the MRN and interleaves (date, value) pairs from
// column 2 onward; empty cells mark missing values.
func (m *Manager) loadHistory(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening history CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows carry a varying number of result pairs

	// Skip the header row.
	if _, err := r.Read(); err != nil && err != io.EOF {
		return fmt.Errorf("reading history CSV header: %w", err)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading history CSV: %w", err)
		}
		if len(row) == 0 {
			continue
		}

		mrn := row[0]
		results := []float64{}
		for col := 2; col < len(row); col += 2 {
			if row[col] == "" {
				continue
			}
			v, err := strconv.ParseFloat(row[col], 64)
			if err != nil {
				return fmt.Errorf("history CSV value for MRN %s: %w", mrn, err)
			}
			results = append(results, v)
		}
		m.history[mrn] = results
	}
}
