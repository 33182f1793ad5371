package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/app/services"
	"github.com/address-matcher/internal/dataset"
	"github.com/address-matcher/internal/evaluation"
	"github.com/address-matcher/internal/matcher"
	"github.com/address-matcher/internal/synth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newNormalizeCmd(a *app) *cobra.Command {
	var in, out, textCol string
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Add a normalized address column",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := dataset.ReadTable(in)
			if err != nil {
				return err
			}
			recs, err := t.Records(firstNonEmpty(textCol, a.cfg.TextColumn), "")
			if err != nil {
				return err
			}
			p := a.parser()
			res := &dataset.Table{Headers: append(append([]string(nil), t.Headers...), dataset.ColumnNormalized)}
			for i, r := range recs {
				res.Rows = append(res.Rows, append(append([]string(nil), t.Rows[i]...), p.Normalize(r.Text)))
			}
			if err := dataset.WriteTable(out, res); err != nil {
				return err
			}
			a.logger.Info("Normalized", zap.Int("rows", len(recs)), zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "input CSV or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output CSV or xlsx")
	cmd.Flags().StringVar(&textCol, "text-col", "", "address column (detected when empty)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// parseFile parses every row of the text column, reusing batch cache
// entries keyed by the file bytes, the pipeline version and the column.
func parseFile(cmd *cobra.Command, a *app, in, textCol, idCol string, useCache bool) (*dataset.Table, []models.Record, []*models.AddressResult, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read %s: %w", in, err)
	}
	t, err := dataset.ParseTable(in, raw)
	if err != nil {
		return nil, nil, nil, err
	}
	textCol = resolveColumn(firstNonEmpty(textCol, a.cfg.TextColumn), t.Headers, dataset.DetectTextColumn)
	recs, err := t.Records(textCol, firstNonEmpty(idCol, a.cfg.IDColumn))
	if err != nil {
		return nil, nil, nil, err
	}

	p := a.parser()
	key := models.NewCacheKey(raw, p.VersionTag()+"/"+textCol)
	ctx := cmd.Context()

	var bc *services.BatchCacheService
	if useCache {
		bc = a.batchCache()
	}
	if bc != nil {
		defer bc.Close()
		if cached, found, err := bc.GetResults(ctx, key); err != nil {
			a.logger.Warn("Batch cache read failed", zap.Error(err))
		} else if found && len(cached) == len(recs) {
			a.logger.Info("Batch cache hit", zap.String("key", key.Fingerprint()))
			return t, recs, cached, nil
		}
	}

	texts := make([]string, len(recs))
	for i, r := range recs {
		texts[i] = r.Text
	}
	svc := services.NewAddressService(p, nil, a.cfg.Workers, a.logger)
	results, err := svc.ParseBatch(ctx, texts, false, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	if bc != nil {
		if err := bc.PutResults(ctx, key, results); err != nil {
			a.logger.Warn("Batch cache write failed", zap.Error(err))
		}
	}
	return t, recs, results, nil
}

func newParseCmd(a *app) *cobra.Command {
	var in, out, textCol string
	var noCache bool
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract address fields, confidence and quality columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, results, err := parseFile(cmd, a, in, textCol, "", !noCache)
			if err != nil {
				return err
			}
			if err := dataset.WriteTable(out, dataset.ParsedTable(t, results)); err != nil {
				return err
			}
			a.logger.Info("Parsed", zap.Int("rows", len(results)), zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "input CSV or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output CSV or xlsx")
	cmd.Flags().StringVar(&textCol, "text-col", "", "address column (detected when empty)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the batch cache")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var in, out, textCol, idCol, mode string
	var noCache bool
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Write an id,address submission file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, recs, results, err := parseFile(cmd, a, in, textCol, idCol, !noCache)
			if err != nil {
				return err
			}
			ids := make([]string, len(recs))
			for i, r := range recs {
				ids[i] = r.ID
			}
			t, err := dataset.SubmissionTable(ids, results, mode)
			if err != nil {
				return err
			}
			if err := dataset.WriteTable(out, t); err != nil {
				return err
			}
			a.logger.Info("Submission written", zap.Int("rows", len(ids)), zap.String("mode", mode), zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "input CSV or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output CSV")
	cmd.Flags().StringVar(&textCol, "text-col", "", "address column (detected when empty)")
	cmd.Flags().StringVar(&idCol, "id-col", "", "id column (detected when empty)")
	cmd.Flags().StringVar(&mode, "mode", dataset.SubmitPartsString, "parts_string, parts_json or normalized")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the batch cache")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

type sideFlags struct {
	path, textCol, idCol string
}

// side is one loaded input of a match run.
type side struct {
	table   *dataset.Table
	records []models.Record
	raw     []byte
	columns string // resolved "text,id"
}

func (s sideFlags) load(a *app) (*side, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	t, err := dataset.ParseTable(s.path, raw)
	if err != nil {
		return nil, err
	}
	textCol := resolveColumn(firstNonEmpty(s.textCol, a.cfg.TextColumn), t.Headers, dataset.DetectTextColumn)
	idCol := resolveColumn(firstNonEmpty(s.idCol, a.cfg.IDColumn), t.Headers, dataset.DetectIDColumn)
	recs, err := t.Records(textCol, idCol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return &side{table: t, records: recs, raw: raw, columns: textCol + "," + idCol}, nil
}

// matchCacheKey covers both files, the columns read from them and every
// setting that changes the run.
func matchCacheKey(l, r *side, versionTag string, normalize bool) models.CacheKey {
	content := make([]byte, 0, len(l.raw)+len(r.raw)+1)
	content = append(content, l.raw...)
	content = append(content, 0)
	content = append(content, r.raw...)
	tag := strings.Join([]string{versionTag, l.columns, r.columns, "normalize=" + strconv.FormatBool(normalize)}, "/")
	return models.NewCacheKey(content, tag)
}

func newMatchCmd(a *app) *cobra.Command {
	var left, right sideFlags
	var out string
	var normalize, noCache bool
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match two address tables and write left_id,right_id,score",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := left.load(a)
			if err != nil {
				return err
			}
			r, err := right.load(a)
			if err != nil {
				return err
			}

			cfg := a.cfg.Clone()
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				cfg.Threshold, _ = flags.GetFloat64("threshold")
			}
			if flags.Changed("topk") {
				cfg.TopK, _ = flags.GetInt("topk")
			}
			if flags.Changed("method") {
				cfg.Method, _ = flags.GetString("method")
			}

			var opts []matcher.Option
			if normalize {
				opts = append(opts, matcher.WithNormalizer(a.parser().Normalizer()))
			}
			m, err := matcher.New(cfg, a.logger, opts...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			key := matchCacheKey(l, r, cfg.VersionTag(), normalize)
			var bc *services.BatchCacheService
			if !noCache {
				bc = a.batchCache()
			}
			var res *matcher.Result
			if bc != nil {
				defer bc.Close()
				cached, found, err := bc.GetMatch(ctx, key)
				if err != nil {
					a.logger.Warn("Batch cache read failed", zap.Error(err))
				} else if found {
					a.logger.Info("Batch cache hit", zap.String("key", key.Fingerprint()))
					res = cached
				}
			}
			if res == nil {
				if res, err = m.Match(ctx, l.records, r.records); err != nil {
					return err
				}
				if bc != nil {
					if err := bc.PutMatch(ctx, key, res); err != nil {
						a.logger.Warn("Batch cache write failed", zap.Error(err))
					}
				}
			}

			if err := dataset.WriteTable(out, dataset.MatchesTable(res.Pairs)); err != nil {
				return err
			}
			if cfg.WriteUnmatched {
				dir := filepath.Dir(out)
				if err := dataset.WriteTable(filepath.Join(dir, "unmatched_left.csv"), dataset.RecordsTable(l.table.Headers, res.UnmatchedLeft)); err != nil {
					return err
				}
				if err := dataset.WriteTable(filepath.Join(dir, "unmatched_right.csv"), dataset.RecordsTable(r.table.Headers, res.UnmatchedRight)); err != nil {
					return err
				}
			}
			a.logger.Info("Matches written", zap.Int("pairs", len(res.Pairs)), zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&left.path, "left", "", "left table")
	cmd.Flags().StringVar(&right.path, "right", "", "right table")
	cmd.Flags().StringVar(&left.textCol, "left-text-col", "", "left address column")
	cmd.Flags().StringVar(&right.textCol, "right-text-col", "", "right address column")
	cmd.Flags().StringVar(&left.idCol, "left-id-col", "", "left id column")
	cmd.Flags().StringVar(&right.idCol, "right-id-col", "", "right id column")
	cmd.Flags().StringVar(&out, "out", "", "matches CSV")
	cmd.Flags().Float64("threshold", 0, "override threshold (0-1 or 0-100)")
	cmd.Flags().Int("topk", 0, "override topk (0 keeps all)")
	cmd.Flags().String("method", "", "override method: index or fuzzy")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "score on fully normalized text")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip the batch cache")
	_ = cmd.MarkFlagRequired("left")
	_ = cmd.MarkFlagRequired("right")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newEvalCmd(a *app) *cobra.Command {
	var gtPath, predPath string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Precision, recall and F1 of predicted pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			gt, err := evaluation.LoadPairs(gtPath)
			if err != nil {
				return err
			}
			pred, err := evaluation.LoadPairs(predPath)
			if err != nil {
				return err
			}
			m := evaluation.Evaluate(gt, pred)
			fmt.Fprintln(cmd.OutOrStdout(), m.String())
			a.logger.Debug("Evaluated", zap.Any("metrics", m))
			return nil
		},
	}
	cmd.Flags().StringVar(&gtPath, "gt", "", "ground truth pairs")
	cmd.Flags().StringVar(&predPath, "pred", "", "predicted pairs")
	_ = cmd.MarkFlagRequired("gt")
	_ = cmd.MarkFlagRequired("pred")
	return cmd
}

func newPreviewCmd(a *app) *cobra.Command {
	var left, right sideFlags
	var matchesPath, out string
	var limit int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Join matches with both sides' texts",
		RunE: func(cmd *cobra.Command, args []string) error {
			mt, err := dataset.ReadTable(matchesPath)
			if err != nil {
				return err
			}
			pairs, err := pairsFromTable(mt)
			if err != nil {
				return fmt.Errorf("%s: %w", matchesPath, err)
			}
			if limit > 0 && len(pairs) > limit {
				pairs = pairs[:limit]
			}
			l, err := left.load(a)
			if err != nil {
				return err
			}
			r, err := right.load(a)
			if err != nil {
				return err
			}
			return dataset.WriteTable(out, dataset.PreviewTable(pairs, l.records, r.records))
		},
	}
	cmd.Flags().StringVar(&matchesPath, "matches", "", "left_id,right_id,score file")
	cmd.Flags().StringVar(&left.path, "left", "", "left table")
	cmd.Flags().StringVar(&right.path, "right", "", "right table")
	cmd.Flags().StringVar(&left.textCol, "left-text-col", "", "left address column")
	cmd.Flags().StringVar(&right.textCol, "right-text-col", "", "right address column")
	cmd.Flags().StringVar(&left.idCol, "left-id-col", "", "left id column")
	cmd.Flags().StringVar(&right.idCol, "right-id-col", "", "right id column")
	cmd.Flags().StringVar(&out, "out", "", "preview CSV or xlsx")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep the first n pairs (0 keeps all)")
	for _, f := range []string{"matches", "left", "right", "out"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newSynthCmd(a *app) *cobra.Command {
	var n int
	var seed int64
	var outDir string
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate left/right tables with ground truth",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("--n must be positive, got %d", n)
			}
			ds := synth.Generate(n, seed)
			for name, t := range map[string]*dataset.Table{
				"left.csv":  ds.Left,
				"right.csv": ds.Right,
				"gt.csv":    ds.GroundTruth,
			} {
				if err := dataset.WriteTable(filepath.Join(outDir, name), t); err != nil {
					return err
				}
			}
			a.logger.Info("Synthetic data written", zap.Int("left", ds.Left.Len()), zap.Int("right", ds.Right.Len()), zap.String("dir", outDir))
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 100, "left rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&outDir, "out-dir", "data/synth", "output directory")
	return cmd
}

func pairsFromTable(t *dataset.Table) ([]models.MatchPair, error) {
	li, ri, si := t.Column("left_id"), t.Column("right_id"), t.Column("score")
	if li < 0 || ri < 0 {
		return nil, fmt.Errorf("left_id/right_id columns required, got %v", t.Headers)
	}
	pairs := make([]models.MatchPair, 0, len(t.Rows))
	for _, row := range t.Rows {
		p := models.MatchPair{LeftID: row[li], RightID: row[ri]}
		if si >= 0 {
			p.Score, _ = strconv.ParseFloat(row[si], 64)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// resolveColumn returns name, or the detected column when name is empty.
func resolveColumn(name string, headers []string, detect func([]string) string) string {
	if name != "" {
		return name
	}
	return detect(headers)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
