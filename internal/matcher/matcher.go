// Package matcher pairs records of two address lists by fuzzy similarity
// inside blocking buckets.
package matcher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/address-matcher/app/config"
	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/blocking"
	"github.com/address-matcher/internal/normalizer"
	"github.com/address-matcher/internal/scoring"
	"go.uber.org/zap"
)

// fixed score of positional pairs
const indexScore = 1.0

var spacePattern = regexp.MustCompile(`\s+`)

// Result of one Match run.
type Result struct {
	Pairs          []models.MatchPair `json:"pairs"`
	UnmatchedLeft  []models.Record    `json:"unmatched_left,omitempty"`
	UnmatchedRight []models.Record    `json:"unmatched_right,omitempty"`
	Compared       int                `json:"compared"` // pairs scored
	Blocks         int                `json:"blocks"`   // left-side buckets
}

type Option func(*Matcher)

// WithNormalizer prepares texts with the full normalization pipeline
// instead of a Turkish-safe lowercase.
func WithNormalizer(tn *normalizer.TextNormalizer) Option {
	return func(m *Matcher) { m.normalizer = tn }
}

// Matcher compares left records against right records.
type Matcher struct {
	method     string
	scorer     scoring.Scorer
	scorerName string
	strategy   blocking.Strategy
	threshold  float64
	topK       int
	weights    config.Weights
	geoMaxKm   float64
	latColumn  string
	lonColumn  string
	stopwords  map[string]struct{}
	normalizer *normalizer.TextNormalizer
	logger     *zap.Logger
}

// New validates cfg. An unknown method is an error; an unknown scorer or
// blocking strategy falls back (token_set_ratio, no blocking) with a
// warning.
func New(cfg *config.PipelineCfg, logger *zap.Logger, opts ...Option) (*Matcher, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	method := strings.ToLower(strings.TrimSpace(cfg.Method))
	if method != config.MethodIndex && method != config.MethodFuzzy {
		return nil, fmt.Errorf("unknown match method %q (want %s or %s)", cfg.Method, config.MethodIndex, config.MethodFuzzy)
	}

	scorer, ok := scoring.ScorerByName(cfg.Scorer)
	scorerName := strings.ToLower(strings.TrimSpace(cfg.Scorer))
	if !ok {
		logger.Warn("Unknown scorer, using token_set_ratio", zap.String("scorer", cfg.Scorer))
		scorerName = scoring.ScorerTokenSetRatio
	}

	strategy, ok := blocking.ParseStrategy(cfg.BlockBy)
	if !ok {
		logger.Warn("Unknown blocking strategy, blocking disabled", zap.String("block_by", cfg.BlockBy))
	}

	m := &Matcher{
		method:     method,
		scorer:     scorer,
		scorerName: scorerName,
		strategy:   strategy,
		threshold:  cfg.ThresholdPercent(),
		topK:       cfg.TopK,
		weights:    cfg.Weights,
		geoMaxKm:   cfg.GeoMaxKm,
		latColumn:  cfg.LatColumn,
		lonColumn:  cfg.LonColumn,
		stopwords:  make(map[string]struct{}),
		logger:     logger,
	}
	for _, w := range cfg.SemanticStopwords {
		if w = normalizer.TurkishLower(strings.TrimSpace(w)); w != "" {
			m.stopwords[w] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Method returns the configured method.
func (m *Matcher) Method() string { return m.method }

// ScorerName is the scorer in effect after fallback.
func (m *Matcher) ScorerName() string { return m.scorerName }

// Match pairs left with right. Output is deterministic for identical input.
func (m *Matcher) Match(ctx context.Context, left, right []models.Record) (*Result, error) {
	start := time.Now()
	var (
		res *Result
		err error
	)
	if m.method == config.MethodIndex {
		res = m.matchIndex(left, right)
	} else {
		res, err = m.matchFuzzy(ctx, left, right)
		if err != nil {
			return nil, err
		}
	}

	m.logger.Info("Matching finished",
		zap.String("method", m.method),
		zap.String("scorer", m.scorerName),
		zap.String("block_by", m.strategy.String()),
		zap.Int("left", len(left)),
		zap.Int("right", len(right)),
		zap.Int("pairs", len(res.Pairs)),
		zap.Int("compared", res.Compared),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// matchIndex pairs records by position and ignores their text.
func (m *Matcher) matchIndex(left, right []models.Record) *Result {
	n := min(len(left), len(right))
	res := &Result{Pairs: make([]models.MatchPair, 0, n)}
	for i := 0; i < n; i++ {
		res.Pairs = append(res.Pairs, models.MatchPair{LeftID: left[i].ID, RightID: right[i].ID, Score: indexScore})
	}
	res.UnmatchedLeft = append(res.UnmatchedLeft, left[n:]...)
	res.UnmatchedRight = append(res.UnmatchedRight, right[n:]...)
	return res
}

type prepared struct {
	rec    models.Record
	text   string
	tokens map[string]struct{} // without semantic stopwords
	lat    float64
	lon    float64
	hasGeo bool
	digits bool // text has at least one digit run
}

func (m *Matcher) prepare(recs []models.Record) []prepared {
	out := make([]prepared, len(recs))
	for i, r := range recs {
		p := prepared{rec: r, text: m.PrepareText(r.Text)}
		p.digits = len(scoring.ExtractNumbers(p.text)) > 0
		if len(m.stopwords) > 0 {
			p.tokens = make(map[string]struct{})
			for _, t := range strings.Fields(p.text) {
				if _, stop := m.stopwords[t]; !stop {
					p.tokens[t] = struct{}{}
				}
			}
		}
		lat, okLat := r.Float(m.latColumn)
		lon, okLon := r.Float(m.lonColumn)
		if okLat && okLon {
			p.lat, p.lon, p.hasGeo = lat, lon, true
		}
		out[i] = p
	}
	return out
}

// PrepareText is the text the scorers see.
func (m *Matcher) PrepareText(s string) string {
	if m.normalizer != nil {
		return m.normalizer.Normalize(s)
	}
	return strings.TrimSpace(spacePattern.ReplaceAllString(normalizer.TurkishLower(s), " "))
}

func (m *Matcher) matchFuzzy(ctx context.Context, left, right []models.Record) (*Result, error) {
	lp, rp := m.prepare(left), m.prepare(right)

	rightBlocks := make(map[string][]int)
	for j, r := range rp {
		k := m.strategy.Key(r.rec.Fields, r.text)
		rightBlocks[k] = append(rightBlocks[k], j)
	}

	res := &Result{}
	leftBlocks := make(map[string]struct{})
	rightMatched := make([]bool, len(rp))

	for i, l := range lp {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("match interrupted at left record %d: %w", i, err)
		}
		key := m.strategy.Key(l.rec.Fields, l.text)
		leftBlocks[key] = struct{}{}

		var cands []models.MatchPair
		var candIdx []int
		for _, j := range rightBlocks[key] {
			score, ok := m.scorePrepared(l, rp[j])
			res.Compared++
			if !ok || score < m.threshold {
				continue
			}
			cands = append(cands, models.MatchPair{LeftID: l.rec.ID, RightID: rp[j].rec.ID, Score: score})
			candIdx = append(candIdx, j)
		}
		if len(cands) == 0 {
			res.UnmatchedLeft = append(res.UnmatchedLeft, l.rec)
			continue
		}

		order := make([]int, len(cands))
		for k := range order {
			order[k] = k
		}
		sort.SliceStable(order, func(a, b int) bool {
			ca, cb := cands[order[a]], cands[order[b]]
			if ca.Score != cb.Score {
				return ca.Score > cb.Score
			}
			return lessID(ca.RightID, cb.RightID)
		})
		if m.topK > 0 && len(order) > m.topK {
			order = order[:m.topK]
		}
		for _, k := range order {
			res.Pairs = append(res.Pairs, cands[k])
			rightMatched[candIdx[k]] = true
		}
	}

	for j, ok := range rightMatched {
		if !ok {
			res.UnmatchedRight = append(res.UnmatchedRight, rp[j].rec)
		}
	}
	res.Blocks = len(leftBlocks)
	return res, nil
}

// Score rates one pair with the configured scorer and signals, ignoring
// blocking and the threshold. ok is false when the stopword gate rejects the
// pair.
func (m *Matcher) Score(left, right models.Record) (score float64, ok bool) {
	p := m.prepare([]models.Record{left, right})
	return m.scorePrepared(p[0], p[1])
}

func (m *Matcher) scorePrepared(l, r prepared) (float64, bool) {
	if len(m.stopwords) > 0 && !sharesToken(l.tokens, r.tokens) {
		return 0, false
	}
	text := m.scorer(l.text, r.text)

	// digits and geo are absent signals unless both sides carry them
	var digits, geo *float64
	if m.weights.Digits > 0 && l.digits && r.digits {
		d := scoring.DigitsScore(l.text, r.text)
		digits = &d
	}
	if m.weights.Geo > 0 && l.hasGeo && r.hasGeo {
		dist := scoring.HaversineKm(l.lat, l.lon, r.lat, r.lon)
		g := scoring.GeoScoreKm(&dist, m.geoMaxKm)
		geo = &g
	}
	return scoring.CombineScores(text, digits, geo, m.weights), true
}

func sharesToken(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	for t := range a {
		if _, ok := b[t]; ok {
			return true
		}
	}
	return false
}

// lessID orders numerically when both ids are integers.
func lessID(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
