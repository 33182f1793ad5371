package parser

import (
	"strings"
	"unicode"

	"github.com/address-matcher/app/models"
)

// Text quality thresholds
const (
	minChars            = 10
	maxChars            = 180
	minWords            = 2
	lowConfidenceCutoff = 0.5
)

// AssessQuality computes cheap statistics of text and the flags derived from
// them. LOW_CONFIDENCE is added when confidence is below 0.5.
func AssessQuality(text string, confidence float64) models.QualityInfo {
	q := models.QualityInfo{
		CharLen: len([]rune(text)),
		WordLen: len(strings.Fields(text)),
		Flags:   []string{},
	}
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			q.DigitCount++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			q.PunctCount++
		}
	}

	if q.CharLen < minChars {
		q.Flags = append(q.Flags, models.FlagTooShort)
	}
	if q.WordLen < minWords {
		q.Flags = append(q.Flags, models.FlagTooFewWords)
	}
	if q.CharLen > maxChars {
		q.Flags = append(q.Flags, models.FlagTooLong)
	}
	if q.DigitCount == 0 {
		q.Flags = append(q.Flags, models.FlagNoDigits)
	}
	q.IsSuspicious = len(q.Flags) > 0

	if confidence < lowConfidenceCutoff {
		q.Flags = append(q.Flags, models.FlagLowConfidence)
	}
	return q
}
