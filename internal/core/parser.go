package core

// parser.go reads an exchange file into header-keyed rows.
//
// The file is read completely: it is attached to the exchange afterwards, and
// a batch is all-or-nothing anyway. Any structural problem (invalid UTF-8,
// inconsistent column counts, bad quoting) fails the whole parse; no partial
// result is returned.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrInvalidEncoding is returned when the file is not valid UTF-8.
var ErrInvalidEncoding = errors.New("encoding error: file is not valid UTF-8")

// ParsedRow is one data row keyed by column key. It is read-only once parsed.
type ParsedRow struct {
	Line  int // 1-based line number in the source file
	cells map[string]string
}

// Get returns the cell for key, or "" when the row has no such column.
func (r ParsedRow) Get(key string) string {
	return r.cells[key]
}

// Len returns the number of distinct column keys of the row.
func (r ParsedRow) Len() int {
	return len(r.cells)
}

// NewParsedRow builds a row from key/value pairs. Intended for tests and tools.
func NewParsedRow(line int, cells map[string]string) ParsedRow {
	c := make(map[string]string, len(cells))
	for k, v := range cells {
		c[k] = v
	}
	return ParsedRow{Line: line, cells: c}
}

// ParsedTable is the result of parsing: the header keys in file order and
// the data rows in file order.
type ParsedTable struct {
	Headers []string
	Rows    []ParsedRow
}

// HeaderSet returns the distinct header keys.
func (t *ParsedTable) HeaderSet() map[string]struct{} {
	set := make(map[string]struct{}, len(t.Headers))
	for _, h := range t.Headers {
		set[h] = struct{}{}
	}
	return set
}

// Parser turns raw exchange file bytes into a ParsedTable.
type Parser struct {
	Comma rune // Field delimiter, ',' when zero
}

// Parse reads all of r. Header cells are converted with ColumnKey.
func (p Parser) Parse(r io.Reader) (*ParsedTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes parses an in-memory exchange file.
func (p Parser) ParseBytes(data []byte) (*ParsedTable, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(bytes.NewReader(data))
	if p.Comma != 0 {
		reader.Comma = p.Comma
	}
	reader.FieldsPerRecord = 0 // every record must match the header width

	table := &ParsedTable{}

	header, err := reader.Read()
	if err == io.EOF {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	table.Headers = make([]string, len(header))
	for i, h := range header {
		table.Headers[i] = ColumnKey(h)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		cells := make(map[string]string, len(record))
		for i, value := range record {
			key := table.Headers[i]
			if _, dup := cells[key]; dup {
				continue // first column with a given key wins
			}
			cells[key] = cleanCell(value)
		}
		table.Rows = append(table.Rows, ParsedRow{Line: line, cells: cells})
	}

	return table, nil
}

// cleanCell trims whitespace and the Excel formula wrapper (="...").
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}
