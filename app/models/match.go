package models

import "strconv"

// Record is one input row: an identifier, its address text and the
// remaining columns (used by blocking strategies and geo scoring).
type Record struct {
	ID     string            `json:"id"`
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Get returns column col, or "" when absent.
func (r Record) Get(col string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[col]
}

// Float parses column col.
func (r Record) Float(col string) (float64, bool) {
	v := r.Get(col)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// MatchPair is one emitted candidate. Score is on the 0-100 scale, except in
// index mode where it is a fixed 1.0.
type MatchPair struct {
	LeftID  string  `json:"left_id"`
	RightID string  `json:"right_id"`
	Score   float64 `json:"score"`
}
