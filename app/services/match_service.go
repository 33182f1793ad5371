package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/address-matcher/app/config"
	"github.com/address-matcher/app/models"
	"github.com/address-matcher/app/requests"
	"github.com/address-matcher/app/responses"
	"github.com/address-matcher/internal/matcher"
	"github.com/address-matcher/internal/normalizer"
	"go.uber.org/zap"
)

// ErrInvalidMatchRequest wraps request settings the matcher rejects.
var ErrInvalidMatchRequest = errors.New("invalid match request")

// MatchService runs record matching with per-request overrides of the
// base pipeline configuration.
type MatchService struct {
	cfg        *config.PipelineCfg
	normalizer *normalizer.TextNormalizer
	logger     *zap.Logger
}

func NewMatchService(cfg *config.PipelineCfg, tn *normalizer.TextNormalizer, logger *zap.Logger) *MatchService {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tn == nil {
		tn = normalizer.NewTextNormalizer(cfg, logger)
	}
	return &MatchService{cfg: cfg, normalizer: tn, logger: logger}
}

// matcherFor builds a matcher from a copy of the base config with req's
// overrides applied.
func (ms *MatchService) matcherFor(req *requests.MatchRequest) (*matcher.Matcher, error) {
	cfg := ms.cfg.Clone()
	if req.Method != "" {
		cfg.Method = req.Method
	}
	if req.Threshold != nil {
		cfg.Threshold = *req.Threshold
	}
	if req.Scorer != "" {
		cfg.Scorer = req.Scorer
	}
	if req.BlockBy != nil {
		cfg.BlockBy = *req.BlockBy
	}
	if req.TopK != nil {
		if *req.TopK < 0 {
			return nil, fmt.Errorf("%w: topk must be >= 0, got %d", ErrInvalidMatchRequest, *req.TopK)
		}
		cfg.TopK = *req.TopK
	}

	var opts []matcher.Option
	if req.Normalize {
		opts = append(opts, matcher.WithNormalizer(ms.normalizer))
	}
	m, err := matcher.New(cfg, ms.logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatchRequest, err)
	}
	return m, nil
}

// Match runs one match request.
func (ms *MatchService) Match(ctx context.Context, req *requests.MatchRequest) (*responses.MatchResponse, error) {
	start := time.Now()
	m, err := ms.matcherFor(req)
	if err != nil {
		return nil, err
	}
	res, err := m.Match(ctx, req.Left, req.Right)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	pairs := res.Pairs
	if pairs == nil {
		pairs = []models.MatchPair{}
	}
	return &responses.MatchResponse{
		Method:           m.Method(),
		Pairs:            pairs,
		UnmatchedLeft:    recordIDs(res.UnmatchedLeft),
		UnmatchedRight:   recordIDs(res.UnmatchedRight),
		Compared:         res.Compared,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// Score rates one pair with the base configuration and an optional scorer.
func (ms *MatchService) Score(req *requests.ScoreRequest) (*responses.ScoreResponse, error) {
	cfg := ms.cfg.Clone()
	cfg.Method = config.MethodFuzzy
	if req.Scorer != "" {
		cfg.Scorer = req.Scorer
	}
	m, err := matcher.New(cfg, ms.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatchRequest, err)
	}
	score, ok := m.Score(req.Left, req.Right)
	return &responses.ScoreResponse{Score: score, Gated: !ok, Scorer: m.ScorerName()}, nil
}

func recordIDs(recs []models.Record) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
