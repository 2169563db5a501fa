// Package dataset reads the delimited data tables bundled with example
// models.
package dataset

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gwenn/yacr"
)

// Table is a parsed delimited file: a header row naming the columns and
// string records.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
	lines  []int
}

// ColumnError is returned when a table has no column of the given name.
type ColumnError struct {
	Name string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("no column %q", e.Name)
}

// ParseError reports a malformed record or cell.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %q: value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read parses a table whose fields are separated by sep. Values may be
// quoted and surrounding spaces are trimmed. Blank lines are skipped.
func Read(r io.Reader, sep byte) (*Table, error) {
	yr := yacr.NewReader(r, sep, true, false)
	yr.Trim = true

	t := &Table{index: make(map[string]int)}
	var rec []string
	for yr.Scan() {
		rec = append(rec, yr.Text())
		if !yr.EndOfRecord() {
			continue
		}
		line := yr.LineNumber()
		if len(rec) == 1 && rec[0] == "" {
			rec = nil
			continue
		}
		if t.header == nil {
			for i, name := range rec {
				if _, dup := t.index[name]; dup {
					return nil, &ParseError{Line: line, Err: fmt.Errorf("duplicate column %q", name)}
				}
				t.index[name] = i
			}
			t.header = rec
		} else {
			if len(rec) != len(t.header) {
				return nil, &ParseError{Line: line, Err: fmt.Errorf("record has %d fields, header has %d", len(rec), len(t.header))}
			}
			t.rows = append(t.rows, rec)
			t.lines = append(t.lines, line)
		}
		rec = nil
	}
	if err := yr.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if t.header == nil {
		return nil, fmt.Errorf("read table: no header row")
	}
	return t, nil
}

// Len is the number of records.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the header in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.header...)
}

// Column returns the raw values of a column.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, &ColumnError{Name: name}
	}
	out := make([]string, len(t.rows))
	for j, row := range t.rows {
		out[j] = row[i]
	}
	return out, nil
}

// Float parses a column as float64 values.
func (t *Table) Float(name string) ([]float64, error) {
	raw, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for j, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &ParseError{Line: t.lines[j], Column: name, Value: s, Err: err}
		}
		out[j] = v
	}
	return out, nil
}

// Int parses a column as integers.
func (t *Table) Int(name string) ([]int, error) {
	raw, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(raw))
	for j, s := range raw {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, &ParseError{Line: t.lines[j], Column: name, Value: s, Err: err}
		}
		out[j] = v
	}
	return out, nil
}

// Row is one record of a table.
type Row struct {
	t   *Table
	rec []string
}

// Get returns the value of the named column, or "" when the table has no
// such column.
func (r Row) Get(name string) string {
	i, ok := r.t.index[name]
	if !ok {
		return ""
	}
	return r.rec[i]
}

// Filter returns a table holding the records for which keep is true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{header: t.header, index: t.index}
	for j, rec := range t.rows {
		if keep(Row{t: t, rec: rec}) {
			out.rows = append(out.rows, rec)
			out.lines = append(out.lines, t.lines[j])
		}
	}
	return out
}

// Equals is a Filter predicate matching rows whose column equals value,
// ignoring surrounding spaces.
func Equals(column, value string) func(Row) bool {
	return func(r Row) bool {
		return strings.TrimSpace(r.Get(column)) == value
	}
}
