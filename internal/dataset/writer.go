package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/address-matcher/app/models"
	"github.com/xuri/excelize/v2"
)

// Submission modes
const (
	SubmitPartsString = "parts_string"
	SubmitPartsJSON   = "parts_json"
	SubmitNormalized  = "normalized"
)

// Columns appended to parsed rows
const (
	ColumnNormalized   = "address_norm"
	ColumnCharLen      = "char_len"
	ColumnWordLen      = "word_len"
	ColumnDigitCount   = "digit_count"
	ColumnPunctCount   = "punct_count"
	ColumnIsSuspicious = "is_suspicious"
)

const sheetName = "Sheet1"

// WriteTable writes t as xlsx when path ends in .xlsx, otherwise as UTF-8
// CSV. Parent directories are created.
func WriteTable(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeSpreadsheet(path, t)
	}
	return writeCSV(path, t)
}

func writeCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Headers); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeSpreadsheet(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// FormatScore renders a score without trailing zeros.
func FormatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// MatchesTable renders left_id,right_id,score rows.
func MatchesTable(pairs []models.MatchPair) *Table {
	t := &Table{Headers: []string{"left_id", "right_id", "score"}}
	for _, p := range pairs {
		t.Rows = append(t.Rows, []string{p.LeftID, p.RightID, FormatScore(p.Score)})
	}
	return t
}

// RecordsTable renders recs with the given columns, as read.
func RecordsTable(headers []string, recs []models.Record) *Table {
	t := &Table{Headers: append([]string(nil), headers...)}
	for _, r := range recs {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = r.Get(h)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ParsedTable appends the normalized text, one column per field, the
// confidence and the quality metrics to the rows of src. results[i]
// belongs to src.Rows[i].
func ParsedTable(src *Table, results []*models.AddressResult) *Table {
	headers := append([]string(nil), src.Headers...)
	headers = append(headers, ColumnNormalized)
	headers = append(headers, models.AllFields...)
	headers = append(headers, models.ConfidenceColumn,
		ColumnCharLen, ColumnWordLen, ColumnDigitCount, ColumnPunctCount, ColumnIsSuspicious)

	t := &Table{Headers: headers}
	for i, row := range src.Rows {
		res := results[i]
		out := append([]string(nil), row...)
		out = append(out, res.Normalized)
		for _, f := range models.AllFields {
			out = append(out, res.Parts[f])
		}
		out = append(out,
			FormatScore(res.Confidence),
			strconv.Itoa(res.Quality.CharLen),
			strconv.Itoa(res.Quality.WordLen),
			strconv.Itoa(res.Quality.DigitCount),
			strconv.Itoa(res.Quality.PunctCount),
			strconv.FormatBool(res.Quality.IsSuspicious),
		)
		t.Rows = append(t.Rows, out)
	}
	return t
}

// SubmissionTable renders id,address rows in the given mode.
func SubmissionTable(ids []string, results []*models.AddressResult, mode string) (*Table, error) {
	t := &Table{Headers: []string{"id", "address"}}
	for i, res := range results {
		var v string
		switch mode {
		case SubmitPartsString, "":
			v = res.Parts.String()
		case SubmitPartsJSON:
			b, err := json.Marshal(res.Parts.Public())
			if err != nil {
				return nil, fmt.Errorf("encode parts of %s: %w", ids[i], err)
			}
			v = string(b)
		case SubmitNormalized:
			v = res.Normalized
		default:
			return nil, fmt.Errorf("unknown submission mode %q", mode)
		}
		t.Rows = append(t.Rows, []string{ids[i], v})
	}
	return t, nil
}

// PreviewTable joins match pairs with both sides' texts.
func PreviewTable(pairs []models.MatchPair, left, right []models.Record) *Table {
	lt := make(map[string]string, len(left))
	for _, r := range left {
		lt[r.ID] = r.Text
	}
	rt := make(map[string]string, len(right))
	for _, r := range right {
		rt[r.ID] = r.Text
	}
	t := &Table{Headers: []string{"left_id", "left_text", "right_id", "right_text", "score"}}
	for _, p := range pairs {
		t.Rows = append(t.Rows, []string{p.LeftID, lt[p.LeftID], p.RightID, rt[p.RightID], FormatScore(p.Score)})
	}
	return t
}
