package dataset

import (
	"path/filepath"
	"testing"

	"github.com/address-matcher/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	testCases := []struct {
		name  string
		in    []byte
		text  string
		codec string
	}{
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "adres"...), "adres", "utf-8-sig"},
		{"utf8", []byte("Kadıköy"), "Kadıköy", "utf-8"},
		{"cp1254", []byte{'K', 'a', 'd', 0xFD, 'k', 0xF6, 'y'}, "Kadıköy", "cp1254"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, codec, err := DecodeText(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.text, text)
			assert.Equal(t, tc.codec, codec)
		})
	}

	_, _, err := DecodeText([]byte{0x81})
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestParseTable_CSV(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, "id, Adres \n7,\"Lale Sk. No:5, Bornova\"\n9\n\n"...)
	tbl, err := ParseTable("left.csv", in)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "Adres"}, tbl.Headers)
	assert.Equal(t, [][]string{{"7", "Lale Sk. No:5, Bornova"}, {"9", ""}}, tbl.Rows)
	assert.Equal(t, "Adres", DetectTextColumn(tbl.Headers))
	assert.Equal(t, "id", DetectIDColumn(tbl.Headers))

	recs, err := tbl.Records("", "")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "7", recs[0].ID)
	assert.Equal(t, "Lale Sk. No:5, Bornova", recs[0].Text)
	assert.Equal(t, "9", recs[1].Get("id"))

	_, err = tbl.Records("missing", "")
	assert.Error(t, err)

	_, err = ParseTable("empty.csv", nil)
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestDetectColumns_Fallbacks(t *testing.T) {
	assert.Equal(t, "raw", DetectTextColumn([]string{"raw", "city"}))
	assert.Equal(t, "FULL_ADDRESS", DetectTextColumn([]string{"x", "FULL_ADDRESS"}))
	assert.Equal(t, "", DetectTextColumn(nil))
	assert.Equal(t, "", DetectIDColumn([]string{"raw"}))

	tbl := &Table{Headers: []string{"raw"}, Rows: [][]string{{"a"}, {"b"}}}
	recs, err := tbl.Records("", "")
	require.NoError(t, err)
	assert.Equal(t, "0", recs[0].ID)
	assert.Equal(t, "1", recs[1].ID)
}

func TestWriteTable_Spreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.xlsx")
	src := MatchesTable([]models.MatchPair{{LeftID: "1", RightID: "4", Score: 92.5}})
	require.NoError(t, WriteTable(path, src))

	got, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestWriteTable_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.csv")
	src := &Table{Headers: []string{"id", "address"}, Rows: [][]string{{"1", "il:izmir | no:5"}}}
	require.NoError(t, WriteTable(path, src))

	got, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestSubmissionTable(t *testing.T) {
	results := []*models.AddressResult{{
		Normalized: "lale sokak no 5 izmir",
		Parts:      models.AddressParts{"sokak": "lale", "no": "5", "il": "izmir", "_confidence": "0.5"},
	}}
	ids := []string{"42"}

	tbl, err := SubmissionTable(ids, results, SubmitPartsString)
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "il:izmir | sokak:lale | no:5"}, tbl.Rows[0])

	tbl, err = SubmissionTable(ids, results, SubmitPartsJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sokak":"lale","no":"5","il":"izmir"}`, tbl.Rows[0][1])

	tbl, err = SubmissionTable(ids, results, SubmitNormalized)
	require.NoError(t, err)
	assert.Equal(t, "lale sokak no 5 izmir", tbl.Rows[0][1])

	_, err = SubmissionTable(ids, results, "xml")
	assert.Error(t, err)
}

func TestParsedAndPreviewTables(t *testing.T) {
	src := &Table{Headers: []string{"id", "address"}, Rows: [][]string{{"1", "Lale Sk No 5"}}}
	res := &models.AddressResult{
		Normalized: "lale sokak no 5",
		Parts:      models.AddressParts{"sokak": "lale", "no": "5"},
		Confidence: 0.44,
		Quality:    models.QualityInfo{CharLen: 12, WordLen: 4, DigitCount: 1},
	}
	tbl := ParsedTable(src, []*models.AddressResult{res})
	row := tbl.Rows[0]
	assert.Equal(t, "lale sokak no 5", row[tbl.Column(ColumnNormalized)])
	assert.Equal(t, "lale", row[tbl.Column(models.FieldSokak)])
	assert.Equal(t, "", row[tbl.Column(models.FieldIl)])
	assert.Equal(t, "0.44", row[tbl.Column(models.ConfidenceColumn)])
	assert.Equal(t, "false", row[tbl.Column(ColumnIsSuspicious)])

	prev := PreviewTable(
		[]models.MatchPair{{LeftID: "a", RightID: "b", Score: 1}},
		[]models.Record{{ID: "a", Text: "left text"}},
		[]models.Record{{ID: "b", Text: "right text"}},
	)
	assert.Equal(t, []string{"a", "left text", "b", "right text", "1"}, prev.Rows[0])
}
