// Package external wraps the libpostal statistical parser as a fallback
// for fields the rule-based extractor misses.
package external

import (
	"math"
	"strings"

	"github.com/address-matcher/app/models"
	"go.uber.org/zap"
)

// LP holds the libpostal components we map onto address fields.
type LP struct {
	House, Road, Unit, Level, Suburb string
	CityDistrict, City, State        string
	Coverage                         float64 // share of tokens labeled
}

// Component is one labeled span of a libpostal parse.
type Component struct {
	Label, Value string
}

var labelSetters = map[string]func(*LP, string){
	"house_number":  func(lp *LP, v string) { lp.House = v },
	"road":          func(lp *LP, v string) { lp.Road = v },
	"unit":          func(lp *LP, v string) { lp.Unit = v },
	"level":         func(lp *LP, v string) { lp.Level = v },
	"suburb":        func(lp *LP, v string) { lp.Suburb = v },
	"city_district": func(lp *LP, v string) { lp.CityDistrict = v },
	"city":          func(lp *LP, v string) { lp.City = v },
	"state":         func(lp *LP, v string) { lp.State = v },
}

// FromComponents collects the labels we use from a parse of text.
// Coverage counts every labeled token, used or not.
func FromComponents(text string, comps []Component) LP {
	lp := LP{}
	covered := 0
	for _, c := range comps {
		if set, ok := labelSetters[c.Label]; ok {
			set(&lp, c.Value)
		}
		covered += len(strings.Fields(c.Value))
	}
	if total := len(strings.Fields(text)); total > 0 {
		lp.Coverage = math.Min(1, float64(covered)/float64(total))
	}
	return lp
}

// Fields maps libpostal labels onto address fields. A state makes the city
// the district; without one the city is taken as the province.
func (lp LP) Fields() map[string]string {
	out := map[string]string{
		models.FieldNo:      lp.House,
		models.FieldDaire:   lp.Unit,
		models.FieldKat:     lp.Level,
		models.FieldMahalle: lp.Suburb,
		models.FieldIl:      lp.State,
		models.FieldIlce:    lp.CityDistrict,
	}
	if lp.State == "" {
		out[models.FieldIl] = lp.City
	} else if lp.CityDistrict == "" {
		out[models.FieldIlce] = lp.City
	}
	for k, v := range out {
		if v = strings.TrimSpace(v); v == "" {
			delete(out, k)
		} else {
			out[k] = v
		}
	}
	return out
}

// LibpostalParser implements parser.FallbackParser.
type LibpostalParser struct {
	languages   []string
	minCoverage float64
	logger      *zap.Logger
}

// NewLibpostalParser returns nil when libpostal is not compiled in.
func NewLibpostalParser(minCoverage float64, logger *zap.Logger) *LibpostalParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !Available {
		logger.Info("libpostal not available, fallback disabled")
		return nil
	}
	return &LibpostalParser{languages: []string{"tr"}, minCoverage: minCoverage, logger: logger}
}

// ParseFields returns the fields libpostal found, or nothing when it
// labeled less than minCoverage of the tokens.
func (p *LibpostalParser) ParseFields(raw string) map[string]string {
	lp := ExtractWithLibpostal(raw, p.languages)
	if lp.Coverage < p.minCoverage {
		p.logger.Debug("libpostal coverage too low", zap.Float64("coverage", lp.Coverage))
		return nil
	}
	return lp.Fields()
}
