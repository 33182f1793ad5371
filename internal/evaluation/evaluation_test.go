package evaluation

import (
	"testing"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	gt := PairSet{}
	gt.Add("1", "a")
	gt.Add("2", "b")
	gt.Add("3", "c")
	gt.Add("4", "d")

	pred := FromMatches([]models.MatchPair{
		{LeftID: "1", RightID: "a"},
		{LeftID: " 2 ", RightID: "b"},
		{LeftID: "3", RightID: "x"},
	})

	m := Evaluate(gt, pred)
	assert.Equal(t, 4, m.GT)
	assert.Equal(t, 3, m.Pred)
	assert.Equal(t, 2, m.TP)
	assert.InDelta(t, 2.0/3.0, m.Precision, 1e-9)
	assert.InDelta(t, 0.5, m.Recall, 1e-9)
	assert.InDelta(t, 4.0/7.0, m.F1, 1e-9)
	assert.Contains(t, m.String(), "tp=2")
}

func TestEvaluate_Empty(t *testing.T) {
	m := Evaluate(PairSet{}, PairSet{})
	assert.Equal(t, Metrics{}, m)

	gt := PairSet{}
	gt.Add("1", "a")
	m = Evaluate(gt, PairSet{})
	assert.Equal(t, 0.0, m.F1)
	assert.Equal(t, 0.0, m.Recall)
}

func TestFromTable(t *testing.T) {
	s, err := FromTable(&dataset.Table{
		Headers: []string{"left_id", "right_id", "score"},
		Rows:    [][]string{{"1", "a", "99"}, {"1", "a", "98"}},
	})
	require.NoError(t, err)
	assert.Len(t, s, 1)

	_, err = FromTable(&dataset.Table{Headers: []string{"id"}})
	assert.Error(t, err)
}
