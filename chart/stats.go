// Package chart renders the lines-of-code-by-author time series as a
// transparent PNG: one polyline per author over a shared time axis,
// with a fixed legend mapping each data column to its author.
package chart

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Common errors for stats parsing
var (
	ErrNoData    = errors.New("stats file has no data rows")
	ErrRaggedRow = errors.New("stats row has wrong column count")
	ErrBadColumn = errors.New("stats column is not numeric")
	ErrNoSeries  = errors.New("stats file has no series columns")
)

// Stats is a parsed lines-of-code table: one timestamp per row plus
// one line-count series per author column.
type Stats struct {
	Times  []time.Time
	Series [][]float64
}

// Rows returns the number of data rows.
func (s *Stats) Rows() int { return len(s.Times) }

// Columns returns the number of author series.
func (s *Stats) Columns() int { return len(s.Series) }

// ParseStats reads a whitespace-separated stats table: a unix
// timestamp column followed by one line-count column per author.
// Blank lines and lines starting with '#' are skipped.
func ParseStats(r io.Reader) (*Stats, error) {
	stats := &Stats{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d has %d columns", ErrNoSeries, lineNo, len(fields))
		}
		if stats.Series == nil {
			stats.Series = make([][]float64, len(fields)-1)
		}
		if len(fields)-1 != len(stats.Series) {
			return nil, fmt.Errorf("%w: line %d has %d columns, want %d",
				ErrRaggedRow, lineNo, len(fields), len(stats.Series)+1)
		}

		ts, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d timestamp %q", ErrBadColumn, lineNo, fields[0])
		}
		stats.Times = append(stats.Times, time.Unix(ts, 0).UTC())

		for i, field := range fields[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d %q", ErrBadColumn, lineNo, i+2, field)
			}
			stats.Series[i] = append(stats.Series[i], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	if stats.Rows() == 0 {
		return nil, ErrNoData
	}
	return stats, nil
}
