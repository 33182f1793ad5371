package config

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AlgorithmVersion is mixed into every cache version tag. Bump it whenever
// normalization, extraction or post-processing logic changes.
const AlgorithmVersion = "tr-addr-3"

//go:embed default.yaml
var defaultYAML []byte

// Fold modes for diacritic handling.
const (
	FoldNone    = "none"
	FoldTurkish = "tr"
	FoldASCII   = "ascii"
)

// Matching methods.
const (
	MethodIndex = "index"
	MethodFuzzy = "fuzzy"
)

type RegexRule struct {
	Pattern     string `yaml:"pattern" json:"pattern"`
	Repl        string `yaml:"repl,omitempty" json:"repl,omitempty"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
}

// Replace returns the replacement template, accepting either key.
func (r RegexRule) Replace() string {
	if r.Replacement != "" {
		return r.Replacement
	}
	return r.Repl
}

type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// OrderedMap keeps the document order of a YAML mapping.
type OrderedMap []Pair

func (m *OrderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*m = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make(OrderedMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			continue
		}
		val := ""
		if v.Kind == yaml.ScalarNode && v.Tag != "!!null" {
			val = v.Value
		}
		out = append(out, Pair{Key: k.Value, Value: val})
	}
	*m = out
	return nil
}

func (m OrderedMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		)
	}
	return node, nil
}

type Weights struct {
	Text   float64 `yaml:"text" json:"text"`
	Digits float64 `yaml:"digits" json:"digits"`
	Geo    float64 `yaml:"geo" json:"geo"`
}

// PipelineCfg is the normalization + matching document.
type PipelineCfg struct {
	FixMojibake      bool              `yaml:"fix_mojibake" json:"fix_mojibake"`
	Lowercase        bool              `yaml:"lowercase" json:"lowercase"`
	FoldDiacritics   bool              `yaml:"fold_diacritics" json:"fold_diacritics"`
	FoldChars        string            `yaml:"fold_chars" json:"fold_chars"`
	StripPunctuation bool              `yaml:"strip_punctuation" json:"strip_punctuation"`
	Regex            []RegexRule       `yaml:"regex" json:"regex"`
	Replace          OrderedMap        `yaml:"replace" json:"replace"`
	Abbreviations    OrderedMap        `yaml:"abbreviations" json:"abbreviations"`
	Stopwords        []string          `yaml:"stopwords" json:"stopwords"`
	StripExtraSpaces bool              `yaml:"strip_extra_spaces" json:"strip_extra_spaces"`
	Parts            map[string]string `yaml:"parts" json:"parts"`

	Method            string   `yaml:"method" json:"method"`
	Threshold         float64  `yaml:"threshold" json:"threshold"`
	Scorer            string   `yaml:"scorer" json:"scorer"`
	BlockBy           string   `yaml:"block_by" json:"block_by"`
	TopK              int      `yaml:"topk" json:"topk"`
	Weights           Weights  `yaml:"weights" json:"weights"`
	GeoMaxKm          float64  `yaml:"geo_max_km" json:"geo_max_km"`
	SemanticStopwords []string `yaml:"semantic_stopwords" json:"semantic_stopwords"`
	WriteUnmatched    bool     `yaml:"write_unmatched" json:"write_unmatched"`

	TextColumn string `yaml:"text_column" json:"text_column"`
	IDColumn   string `yaml:"id_column" json:"id_column"`
	LatColumn  string `yaml:"lat_column" json:"lat_column"`
	LonColumn  string `yaml:"lon_column" json:"lon_column"`
	Workers    int    `yaml:"workers" json:"workers"`
}

// Default returns a fresh copy of the embedded defaults.
func Default() *PipelineCfg {
	cfg := &PipelineCfg{}
	if err := yaml.Unmarshal(defaultYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default.yaml: %v", err))
	}
	cfg.sanitize()
	return cfg
}

// Load reads a pipeline document on top of the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*PipelineCfg, error) {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// Parse decodes a YAML document on top of the defaults. ENV overrides are
// not applied.
func Parse(b []byte) (*PipelineCfg, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	cfg.sanitize()
	return cfg, nil
}

// ENV overrides
func (c *PipelineCfg) applyEnv() {
	if v := os.Getenv("MATCH_METHOD"); v != "" {
		c.Method = v
	}
	if v := os.Getenv("MATCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Threshold = f
		}
	}
	if v := os.Getenv("MATCH_TOPK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TopK = n
		}
	}
	if v := os.Getenv("MATCH_SCORER"); v != "" {
		c.Scorer = v
	}
	if v, ok := os.LookupEnv("BLOCK_BY"); ok {
		c.BlockBy = v
	}
	switch os.Getenv("FOLD_DIACRITICS") {
	case "0":
		c.FoldDiacritics = false
	case "1":
		c.FoldDiacritics = true
	}
	c.sanitize()
}

// sanitize substitutes defaults for values that cannot be used as given.
func (c *PipelineCfg) sanitize() {
	c.Method = strings.ToLower(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = MethodFuzzy
	}
	if c.Scorer == "" {
		c.Scorer = "token_set_ratio"
	}
	if c.TopK < 0 {
		c.TopK = 0
	}
	if c.GeoMaxKm <= 0 {
		c.GeoMaxKm = 1.5
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.LatColumn == "" {
		c.LatColumn = "lat"
	}
	if c.LonColumn == "" {
		c.LonColumn = "lon"
	}
}

// FoldMode resolves fold_chars / fold_diacritics into one mode.
func (c *PipelineCfg) FoldMode() string {
	switch strings.ToLower(strings.TrimSpace(c.FoldChars)) {
	case "ascii":
		return FoldASCII
	case "tr", "turkish", "true", "yes":
		return FoldTurkish
	case "none", "false", "no":
		return FoldNone
	}
	if c.FoldDiacritics {
		return FoldTurkish
	}
	return FoldNone
}

// ThresholdPercent returns the threshold on the 0-100 scale.
func (c *PipelineCfg) ThresholdPercent() float64 {
	if c.Threshold <= 1.0 {
		return c.Threshold * 100
	}
	return c.Threshold
}

// VersionTag identifies the algorithm version plus this exact configuration.
func (c *PipelineCfg) VersionTag() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		b = []byte(fmt.Sprintf("%+v", *c))
	}
	h := sha256.New()
	h.Write([]byte(AlgorithmVersion))
	h.Write([]byte{0})
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// Clone returns a deep copy.
func (c *PipelineCfg) Clone() *PipelineCfg {
	out := *c
	out.Regex = append([]RegexRule(nil), c.Regex...)
	out.Replace = append(OrderedMap(nil), c.Replace...)
	out.Abbreviations = append(OrderedMap(nil), c.Abbreviations...)
	out.Stopwords = append([]string(nil), c.Stopwords...)
	out.SemanticStopwords = append([]string(nil), c.SemanticStopwords...)
	if c.Parts != nil {
		out.Parts = make(map[string]string, len(c.Parts))
		for k, v := range c.Parts {
			out.Parts[k] = v
		}
	}
	return &out
}
