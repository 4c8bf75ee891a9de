// Package sheetstest provides an in-memory spreadsheet range store for tests.
package sheetstest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"auction_watch/internal/sheets"
)

// Update records a single UpdateRange call.
type Update struct {
	Range string
	Value interface{}
	Mode  sheets.InputMode
}

// Batch records a single BatchUpdate call.
type Batch struct {
	Instructions []sheets.Instruction
	Mode         sheets.InputMode
}

// Store holds column values keyed by column letter. Reads honour A1 ranges
// of the form Sheet!C2:C or Sheet!C2:C10.
type Store struct {
	mu      sync.Mutex
	Columns map[string][]string

	ReadErr   error
	UpdateErr error
	BatchErr  error

	Reads   []string
	Updates []Update
	Batches []Batch
}

func NewStore() *Store {
	return &Store{Columns: make(map[string][]string)}
}

// Set stores value at column/row, growing the column as needed. Row is the
// 1-based sheet row, so row 2 is the first data row.
func (s *Store) Set(column string, row int, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.Columns[column]
	for len(col) < row-1 {
		col = append(col, "")
	}
	col[row-2] = value
	s.Columns[column] = col
}

var columnRange = regexp.MustCompile(`!([A-Z]+)(\d+):[A-Z]+(\d*)$`)

func (s *Store) read(range_ string) ([][]interface{}, error) {
	m := columnRange.FindStringSubmatch(range_)
	if m == nil {
		return nil, fmt.Errorf("sheetstest: unsupported range %q", range_)
	}
	col := s.Columns[m[1]]
	start, _ := strconv.Atoi(m[2])
	end := len(col) + 1
	if m[3] != "" {
		end, _ = strconv.Atoi(m[3])
	}

	var out [][]interface{}
	for row := start; row <= end && row-2 < len(col); row++ {
		out = append(out, []interface{}{col[row-2]})
	}
	// The API drops trailing empty rows.
	for len(out) > 0 && out[len(out)-1][0] == "" {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (s *Store) ReadSheet(ctx context.Context, spreadsheetID, range_ string) ([][]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads = append(s.Reads, range_)
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.read(range_)
}

func (s *Store) ReadRanges(ctx context.Context, spreadsheetID string, ranges []string) ([][][]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads = append(s.Reads, ranges...)
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	out := make([][][]interface{}, 0, len(ranges))
	for _, r := range ranges {
		m, err := s.read(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) UpdateRange(ctx context.Context, spreadsheetID, range_ string, values [][]interface{}, mode sheets.InputMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	var v interface{}
	if len(values) > 0 && len(values[0]) > 0 {
		v = values[0][0]
	}
	s.Updates = append(s.Updates, Update{Range: range_, Value: v, Mode: mode})
	return nil
}

func (s *Store) BatchUpdate(ctx context.Context, spreadsheetID string, instructions []sheets.Instruction, mode sheets.InputMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BatchErr != nil {
		return s.BatchErr
	}
	cp := make([]sheets.Instruction, len(instructions))
	copy(cp, instructions)
	s.Batches = append(s.Batches, Batch{Instructions: cp, Mode: mode})
	return nil
}
