// Package gazetteer holds the static province/district lookup used by the
// field extractor and the post-processor.
package gazetteer

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/address-matcher/internal/normalizer"
	"gopkg.in/yaml.v3"
)

//go:embed turkiye.yaml
var turkiyeYAML []byte

// Data is the document shape of a gazetteer file.
type Data struct {
	Provinces []string            `yaml:"provinces"`
	Aliases   map[string]string   `yaml:"aliases"`
	Districts map[string][]string `yaml:"districts"`
}

// MentionKind labels a token found by Scan.
type MentionKind string

const (
	KindProvince MentionKind = "province"
	KindDistrict MentionKind = "district"
)

// Mention is one gazetteer hit in a token stream.
type Mention struct {
	Index    int         `json:"index"`
	Token    string      `json:"token"`
	Kind     MentionKind `json:"kind"`
	Province string      `json:"province,omitempty"`
}

// Gazetteer answers province/district membership for normalized tokens.
// It is immutable after construction and safe for concurrent use.
type Gazetteer struct {
	provinces map[string]string   // token -> canonical province
	districts map[string][]string // token -> canonical provinces
	canonical []string
	districtN int
}

// New builds a gazetteer from data. Every name is registered both as
// written (Turkish-lowercased) and with Turkish diacritics folded.
func New(data Data) *Gazetteer {
	g := &Gazetteer{
		provinces: make(map[string]string),
		districts: make(map[string][]string),
	}

	for _, p := range data.Provinces {
		p = normalizer.TurkishLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g.canonical = append(g.canonical, p)
		g.addProvince(p, p)
	}
	for alias, p := range data.Aliases {
		p = normalizer.TurkishLower(strings.TrimSpace(p))
		if _, ok := g.provinces[p]; !ok {
			continue
		}
		g.addProvince(normalizer.TurkishLower(strings.TrimSpace(alias)), p)
	}

	provinceKeys := make([]string, 0, len(data.Districts))
	for p := range data.Districts {
		provinceKeys = append(provinceKeys, p)
	}
	sort.Strings(provinceKeys)
	for _, p := range provinceKeys {
		canon := normalizer.TurkishLower(strings.TrimSpace(p))
		for _, d := range data.Districts[p] {
			d = normalizer.TurkishLower(strings.TrimSpace(d))
			if d == "" {
				continue
			}
			g.addDistrict(d, canon)
			g.districtN++
		}
	}
	sort.Strings(g.canonical)
	return g
}

// Load decodes a YAML gazetteer document.
func Load(b []byte) (*Gazetteer, error) {
	var data Data
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode gazetteer: %w", err)
	}
	if len(data.Provinces) == 0 {
		return nil, fmt.Errorf("decode gazetteer: no provinces")
	}
	return New(data), nil
}

// Default returns a new gazetteer built from the embedded Turkish data.
func Default() *Gazetteer {
	g, err := Load(turkiyeYAML)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Gazetteer) addProvince(tok, canon string) {
	if tok == "" {
		return
	}
	g.provinces[tok] = canon
	if folded := normalizer.FoldTurkish(tok); folded != tok {
		if _, taken := g.provinces[folded]; !taken {
			g.provinces[folded] = canon
		}
	}
}

func (g *Gazetteer) addDistrict(tok, province string) {
	for _, key := range []string{tok, normalizer.FoldTurkish(tok)} {
		if _, isProvince := g.provinces[key]; isProvince {
			continue
		}
		if !contains(g.districts[key], province) {
			g.districts[key] = append(g.districts[key], province)
		}
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// IsProvince reports whether tok names a province (or a known alias).
func (g *Gazetteer) IsProvince(tok string) bool {
	_, ok := g.provinces[tok]
	return ok
}

// Province returns the canonical province for tok.
func (g *Gazetteer) Province(tok string) (string, bool) {
	p, ok := g.provinces[tok]
	return p, ok
}

func (g *Gazetteer) IsDistrict(tok string) bool {
	_, ok := g.districts[tok]
	return ok
}

// ProvinceOfDistrict returns the province of district tok. Names shared by
// districts of several provinces are ambiguous and return false.
func (g *Gazetteer) ProvinceOfDistrict(tok string) (string, bool) {
	ps := g.districts[tok]
	if len(ps) != 1 {
		return "", false
	}
	return ps[0], true
}

// Scan labels every province and district mention in tokens.
func (g *Gazetteer) Scan(tokens []string) []Mention {
	var out []Mention
	for i, t := range tokens {
		if p, ok := g.provinces[t]; ok {
			out = append(out, Mention{Index: i, Token: t, Kind: KindProvince, Province: p})
			continue
		}
		if g.IsDistrict(t) {
			p, _ := g.ProvinceOfDistrict(t)
			out = append(out, Mention{Index: i, Token: t, Kind: KindDistrict, Province: p})
		}
	}
	return out
}

// Provinces lists the canonical province names, sorted.
func (g *Gazetteer) Provinces() []string {
	out := make([]string, len(g.canonical))
	copy(out, g.canonical)
	return out
}

// ProvinceTokens lists every registered province spelling (canonical,
// folded and aliases), sorted.
func (g *Gazetteer) ProvinceTokens() []string {
	out := make([]string, 0, len(g.provinces))
	for tok := range g.provinces {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Districts lists every registered district token with its provinces.
func (g *Gazetteer) Districts() map[string][]string {
	out := make(map[string][]string, len(g.districts))
	for k, v := range g.districts {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Stats returns province and district counts.
func (g *Gazetteer) Stats() (provinces, districts int) {
	return len(g.canonical), g.districtN
}
