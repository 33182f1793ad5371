// Package scoring combines text similarity, shared digits and geographic
// distance into one 0-100 match score.
package scoring

import (
	"math"
	"regexp"

	"github.com/address-matcher/app/config"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0088

var digitRunPattern = regexp.MustCompile(`\d+`)

// ExtractNumbers returns the set of digit runs in s.
func ExtractNumbers(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range digitRunPattern.FindAllString(s, -1) {
		out[m] = struct{}{}
	}
	return out
}

// DigitsScore is 100 when left and right share a digit run, else 0. It is 0
// when either side has no digits.
func DigitsScore(left, right string) float64 {
	l, r := ExtractNumbers(left), ExtractNumbers(right)
	if len(l) == 0 || len(r) == 0 {
		return 0
	}
	for n := range l {
		if _, ok := r[n]; ok {
			return 100
		}
	}
	return 0
}

// HaversineKm is the great-circle distance between two points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := lat1*math.Pi/180, lat2*math.Pi/180
	dPhi := phi2 - phi1
	dLambda := (lon2 - lon1) * math.Pi / 180
	a := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// GeoScoreKm decays linearly from 100 at 0 km to 0 at maxKm. A nil
// distance scores 0.
func GeoScoreKm(distanceKm *float64, maxKm float64) float64 {
	if distanceKm == nil || maxKm <= 0 {
		return 0
	}
	d := math.Max(0, math.Min(*distanceKm, maxKm))
	return 100 * (1 - d/maxKm)
}

// CombineScores is the weighted mean of the signals present. Weights of the
// present signals are renormalized to sum to 1; the result is rounded to two
// decimals.
func CombineScores(text float64, digits, geo *float64, w config.Weights) float64 {
	sum := text * w.Text
	total := w.Text
	if digits != nil {
		sum += *digits * w.Digits
		total += w.Digits
	}
	if geo != nil {
		sum += *geo * w.Geo
		total += w.Geo
	}
	if total == 0 {
		return Round2(text)
	}
	return Round2(sum / total)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
