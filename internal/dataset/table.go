// Package dataset reads and writes the tabular files the CLI works on:
// CSV (any of UTF-8, UTF-8 with BOM, CP1254) and xlsx spreadsheets.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/address-matcher/app/models"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrEncoding means no supported codec could decode the input.
	ErrEncoding = errors.New("dataset: undecodable text")
	// ErrNoColumns means the input has no header row.
	ErrNoColumns = errors.New("dataset: no columns")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Candidate names of the address text column, in priority order.
var textColumnNames = []string{"address", "adres", "full_address", "text"}

// Table is a header row plus data rows. Every row has len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns the index of header name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// Row returns row i keyed by header.
func (t *Table) Row(i int) map[string]string {
	out := make(map[string]string, len(t.Headers))
	for j, h := range t.Headers {
		out[h] = t.Rows[i][j]
	}
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

type codec struct {
	name   string
	decode func([]byte) (string, bool)
}

var codecs = []codec{
	{"utf-8-sig", func(b []byte) (string, bool) {
		if !bytes.HasPrefix(b, utf8BOM) || !utf8.Valid(b[len(utf8BOM):]) {
			return "", false
		}
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), b)
		return string(out), err == nil
	}},
	{"utf-8", func(b []byte) (string, bool) {
		return string(b), utf8.Valid(b)
	}},
	{"cp1254", func(b []byte) (string, bool) {
		out, err := charmap.Windows1254.NewDecoder().Bytes(b)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}},
}

// DecodeText tries UTF-8 with BOM, then UTF-8, then CP1254 and reports the
// codec that succeeded.
func DecodeText(b []byte) (text, codecName string, err error) {
	for _, c := range codecs {
		if s, ok := c.decode(b); ok {
			return s, c.name, nil
		}
	}
	return "", "", ErrEncoding
}

// ReadTable loads path as a spreadsheet (.xlsx, .xlsm) or CSV (anything
// else).
func ReadTable(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := ParseTable(filepath.Base(path), b)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes file contents; name only selects the format.
func ParseTable(name string, b []byte) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return parseSpreadsheet(bytes.NewReader(b))
	}
	text, _, err := DecodeText(b)
	if err != nil {
		return nil, err
	}
	return parseCSV(text)
}

func parseCSV(text string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return newTable(records)
}

func parseSpreadsheet(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoColumns
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return newTable(rows)
}

func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrNoColumns
	}
	t := &Table{Headers: make([]string, len(records[0]))}
	for i, h := range records[0] {
		t.Headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for _, rec := range records[1:] {
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		row := make([]string, len(t.Headers))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// DetectTextColumn picks the address column: address, adres, full_address
// or text (case-insensitive), else the first column.
func DetectTextColumn(headers []string) string {
	for _, want := range textColumnNames {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return h
			}
		}
	}
	if len(headers) == 0 {
		return ""
	}
	return headers[0]
}

// DetectIDColumn returns the "id" column, or "" to use row positions.
func DetectIDColumn(headers []string) string {
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), "id") {
			return h
		}
	}
	return ""
}

// Records turns t into match records. Empty column names are detected;
// rows without an id column are numbered from 0.
func (t *Table) Records(textColumn, idColumn string) ([]models.Record, error) {
	if textColumn == "" {
		textColumn = DetectTextColumn(t.Headers)
	}
	if idColumn == "" {
		idColumn = DetectIDColumn(t.Headers)
	}
	ti := t.Column(textColumn)
	if ti < 0 {
		return nil, fmt.Errorf("text column %q not found in %v", textColumn, t.Headers)
	}
	ii := -1
	if idColumn != "" {
		if ii = t.Column(idColumn); ii < 0 {
			return nil, fmt.Errorf("id column %q not found in %v", idColumn, t.Headers)
		}
	}

	out := make([]models.Record, len(t.Rows))
	for i, row := range t.Rows {
		id := strconv.Itoa(i)
		if ii >= 0 {
			id = row[ii]
		}
		out[i] = models.Record{ID: id, Text: row[ti], Fields: t.Row(i)}
	}
	return out, nil
}
