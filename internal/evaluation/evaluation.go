// Package evaluation scores predicted match pairs against ground truth.
package evaluation

import (
	"fmt"
	"math"
	"strings"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/dataset"
)

// Pair is a (left_id, right_id) link.
type Pair struct {
	LeftID  string
	RightID string
}

// PairSet is a set of links.
type PairSet map[Pair]struct{}

// Add inserts a link with trimmed ids.
func (s PairSet) Add(left, right string) {
	s[Pair{LeftID: strings.TrimSpace(left), RightID: strings.TrimSpace(right)}] = struct{}{}
}

// FromMatches collects the pairs of a match result.
func FromMatches(pairs []models.MatchPair) PairSet {
	out := make(PairSet, len(pairs))
	for _, p := range pairs {
		out.Add(p.LeftID, p.RightID)
	}
	return out
}

// FromTable reads left_id/right_id columns.
func FromTable(t *dataset.Table) (PairSet, error) {
	li, ri := t.Column("left_id"), t.Column("right_id")
	if li < 0 || ri < 0 {
		return nil, fmt.Errorf("left_id/right_id columns required, got %v", t.Headers)
	}
	out := make(PairSet, len(t.Rows))
	for _, row := range t.Rows {
		out.Add(row[li], row[ri])
	}
	return out, nil
}

// LoadPairs reads a pair file (CSV or xlsx).
func LoadPairs(path string) (PairSet, error) {
	t, err := dataset.ReadTable(path)
	if err != nil {
		return nil, err
	}
	s, err := FromTable(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Metrics of one evaluation.
type Metrics struct {
	GT        int     `json:"gt"`
	Pred      int     `json:"pred"`
	TP        int     `json:"tp"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

func (m Metrics) String() string {
	return fmt.Sprintf("gt=%d pred=%d tp=%d precision=%.3f recall=%.3f f1=%.3f",
		m.GT, m.Pred, m.TP, m.Precision, m.Recall, m.F1)
}

// Evaluate computes precision = tp/max(pred,1), recall = tp/max(gt,1) and
// their harmonic mean (0 when both are 0).
func Evaluate(gt, pred PairSet) Metrics {
	m := Metrics{GT: len(gt), Pred: len(pred)}
	for p := range pred {
		if _, ok := gt[p]; ok {
			m.TP++
		}
	}
	m.Precision = float64(m.TP) / math.Max(float64(m.Pred), 1)
	m.Recall = float64(m.TP) / math.Max(float64(m.GT), 1)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
