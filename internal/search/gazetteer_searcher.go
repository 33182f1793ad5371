// Package search backs province/district resolution with a Meilisearch
// index of the gazetteer, so misspelled place names still resolve.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	seedBatchSize  = 1000
	resolveWindow  = 6 // tail tokens tried by ResolveProvince
	minQueryLength = 4
	taskPollEvery  = 500 * time.Millisecond
)

// Address keywords never sent to the index.
var skipTokens = map[string]struct{}{
	"mahalle": {}, "cadde": {}, "sokak": {}, "bulvar": {}, "no": {}, "daire": {},
	"kat": {}, "mevkii": {}, "apartman": {}, "site": {}, "sitesi": {}, "blok": {},
	"ilçe": {}, "merkez": {},
}

// GazetteerSearcher searches the admin unit index.
type GazetteerSearcher struct {
	client    meilisearch.ServiceManager
	logger    *zap.Logger
	indexName string
	timeout   time.Duration
	memo      *lru.Cache[string, *models.AdminUnit]
}

// SearchConfig for Meilisearch
type SearchConfig struct {
	Host      string
	APIKey    string
	IndexName string
	Timeout   time.Duration
	MemoSize  int // resolved-token cache entries
}

// NewGazetteerSearcher connects and checks server health.
func NewGazetteerSearcher(config SearchConfig, logger *zap.Logger) (*GazetteerSearcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.IndexName == "" {
		config.IndexName = "admin_units"
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	if config.MemoSize <= 0 {
		config.MemoSize = 4096
	}

	client := meilisearch.New(config.Host, meilisearch.WithAPIKey(config.APIKey))
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("connect meilisearch %s: %w", config.Host, err)
	}

	memo, err := lru.New[string, *models.AdminUnit](config.MemoSize)
	if err != nil {
		return nil, fmt.Errorf("create resolver memo: %w", err)
	}
	return &GazetteerSearcher{
		client:    client,
		logger:    logger,
		indexName: config.IndexName,
		timeout:   config.Timeout,
		memo:      memo,
	}, nil
}

// BuildIndexes applies the index settings.
func (gs *GazetteerSearcher) BuildIndexes() error {
	index := gs.client.Index(gs.indexName)

	task, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"name", "name_folded", "aliases"},
		FilterableAttributes: []string{"level", "province", "admin_subtype"},
		SortableAttributes:   []string{"level", "name"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		StopWords:            []string{"ili", "ilçesi", "merkez"},
		Synonyms: map[string][]string{
			"antep": {"gaziantep"},
			"urfa":  {"şanlıurfa"},
			"maraş": {"kahramanmaraş"},
			"içel":  {"mersin"},
		},
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  4,
				TwoTypos: 8,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("update index settings: %w", err)
	}
	gs.logger.Info("Index settings submitted", zap.String("index", gs.indexName), zap.Int64("task_uid", task.TaskUID))
	return gs.waitForTask(task.TaskUID)
}

// SeedData adds admin units in batches.
func (gs *GazetteerSearcher) SeedData(units []models.AdminUnit) error {
	if len(units) == 0 {
		return errors.New("no admin units to seed")
	}
	index := gs.client.Index(gs.indexName)

	for i := 0; i < len(units); i += seedBatchSize {
		end := min(i+seedBatchSize, len(units))
		task, err := index.AddDocuments(units[i:end], "id")
		if err != nil {
			return fmt.Errorf("add documents %d-%d: %w", i, end, err)
		}
		gs.logger.Info("Seeded batch", zap.Int("from", i), zap.Int("to", end), zap.Int64("task_uid", task.TaskUID))
		if err := gs.waitForTask(task.TaskUID); err != nil {
			return err
		}
	}
	gs.memo.Purge()
	gs.logger.Info("Seed finished", zap.Int("total_documents", len(units)))
	return nil
}

// SeedGazetteer configures the index and loads every unit of g.
func (gs *GazetteerSearcher) SeedGazetteer(g *gazetteer.Gazetteer) (int, error) {
	if err := gs.BuildIndexes(); err != nil {
		return 0, err
	}
	units := AdminUnitsFromGazetteer(g)
	if err := gs.SeedData(units); err != nil {
		return 0, err
	}
	return len(units), nil
}

func (gs *GazetteerSearcher) waitForTask(uid int64) error {
	deadline := time.Now().Add(30 * gs.timeout)
	for time.Now().Before(deadline) {
		task, err := gs.client.GetTask(uid)
		if err != nil {
			return fmt.Errorf("task %d status: %w", uid, err)
		}
		switch task.Status {
		case "succeeded":
			return nil
		case "failed", "canceled":
			return fmt.Errorf("task %d %s: %v", uid, task.Status, task.Error)
		}
		time.Sleep(taskPollEvery)
	}
	return fmt.Errorf("task %d: timed out", uid)
}

// SearchByLevel returns units of one level matching query.
func (gs *GazetteerSearcher) SearchByLevel(ctx context.Context, query string, level int, limit int64) ([]models.AdminUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := gs.client.Index(gs.indexName).Search(query, &meilisearch.SearchRequest{
		Limit:  limit,
		Filter: FilterLevel(level),
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return parseHits(res), nil
}

// ResolveProvince implements parser.ProvinceResolver. Tail tokens are tried
// from the end: a district hit yields its province too, a province hit
// yields the province alone.
func (gs *GazetteerSearcher) ResolveProvince(ctx context.Context, tokens []string) (il, ilce string, err error) {
	ctx, cancel := context.WithTimeout(ctx, gs.timeout)
	defer cancel()

	for _, tok := range tailQueries(tokens) {
		unit, err := gs.lookup(ctx, tok)
		if err != nil {
			return "", "", err
		}
		if unit == nil {
			continue
		}
		if unit.Level == models.AdminLevelDistrict {
			return unit.Province, unit.Name, nil
		}
		return unit.Name, "", nil
	}
	return "", "", nil
}

// lookup checks provinces before districts. Misses are memoized as nil.
func (gs *GazetteerSearcher) lookup(ctx context.Context, tok string) (*models.AdminUnit, error) {
	if u, ok := gs.memo.Get(tok); ok {
		return u, nil
	}
	var found *models.AdminUnit
	for _, level := range []int{models.AdminLevelProvince, models.AdminLevelDistrict} {
		units, err := gs.SearchByLevel(ctx, tok, level, 1)
		if err != nil {
			return nil, err
		}
		if len(units) > 0 {
			found = &units[0]
			break
		}
	}
	gs.memo.Add(tok, found)
	gs.logger.Debug("Gazetteer lookup", zap.String("token", tok), zap.Bool("found", found != nil))
	return found, nil
}

// tailQueries picks the search candidates among the last tokens, last
// first.
func tailQueries(tokens []string) []string {
	start := max(0, len(tokens)-resolveWindow)
	var out []string
	for k := len(tokens) - 1; k >= start; k-- {
		for _, piece := range strings.Split(tokens[k], "/") {
			if utf8.RuneCountInString(piece) < minQueryLength || !isLetters(piece) {
				continue
			}
			if _, skip := skipTokens[piece]; skip {
				continue
			}
			out = append(out, piece)
		}
	}
	return out
}

func isLetters(s string) bool {
	for _, r := range s {
		if r != '-' && !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// parseHits reads admin units out of raw hits.
func parseHits(result *meilisearch.SearchResponse) []models.AdminUnit {
	var units []models.AdminUnit
	for _, hit := range result.Hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		unit := models.AdminUnit{}
		if v, ok := hitMap["id"].(string); ok {
			unit.ID = v
		}
		if v, ok := hitMap["name"].(string); ok {
			unit.Name = v
		}
		if v, ok := hitMap["name_folded"].(string); ok {
			unit.NameFolded = v
		}
		if v, ok := hitMap["admin_subtype"].(string); ok {
			unit.AdminSubtype = v
		}
		if v, ok := hitMap["province"].(string); ok {
			unit.Province = v
		}
		if v, ok := hitMap["level"].(float64); ok {
			unit.Level = int(v)
		}
		if raw, ok := hitMap["aliases"].([]interface{}); ok {
			for _, a := range raw {
				if s, ok := a.(string); ok {
					unit.Aliases = append(unit.Aliases, s)
				}
			}
		}
		units = append(units, unit)
	}
	return units
}
