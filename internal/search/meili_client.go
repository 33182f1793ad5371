package search

import (
	"fmt"
	"sort"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/normalizer"
)

// FilterLevel restricts a search to one admin level.
func FilterLevel(level int) string {
	return fmt.Sprintf("level = %d", level)
}

// FilterLevelProvince restricts a search to districts of one province.
func FilterLevelProvince(level int, province string) string {
	if province == "" {
		return FilterLevel(level)
	}
	return fmt.Sprintf("level = %d AND province = %q", level, province)
}

// AdminUnitsFromGazetteer turns the static gazetteer into index documents:
// one per province (with its aliases) and one per (district, province).
// Folded spellings are not emitted as separate documents.
func AdminUnitsFromGazetteer(g *gazetteer.Gazetteer) []models.AdminUnit {
	provinces := g.Provinces()
	aliases := make(map[string][]string)
	for p, canon := range provinceTokens(g) {
		if p != canon && p != normalizer.FoldTurkish(canon) {
			aliases[canon] = append(aliases[canon], p)
		}
	}

	var units []models.AdminUnit
	for _, p := range provinces {
		a := aliases[p]
		sort.Strings(a)
		units = append(units, models.AdminUnit{
			ID:           "p-" + normalizer.FoldASCII(p),
			Name:         p,
			NameFolded:   normalizer.FoldASCII(p),
			Level:        models.AdminLevelProvince,
			AdminSubtype: "province",
			Aliases:      a,
		})
	}

	districts := g.Districts()
	variants := make(map[string]bool)
	for d := range districts {
		if f := normalizer.FoldTurkish(d); f != d {
			variants[f] = true
		}
	}
	names := make([]string, 0, len(districts))
	for d := range districts {
		if !variants[d] {
			names = append(names, d)
		}
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	for _, d := range names {
		for _, p := range districts[d] {
			id := "d-" + normalizer.FoldASCII(p) + "-" + normalizer.FoldASCII(d)
			if seen[id] {
				continue
			}
			seen[id] = true
			units = append(units, models.AdminUnit{
				ID:           id,
				Name:         d,
				NameFolded:   normalizer.FoldASCII(d),
				Level:        models.AdminLevelDistrict,
				AdminSubtype: "district",
				Province:     p,
			})
		}
	}
	return units
}

// provinceTokens maps every registered province spelling to its canonical
// name.
func provinceTokens(g *gazetteer.Gazetteer) map[string]string {
	out := make(map[string]string)
	for _, tok := range g.ProvinceTokens() {
		if canon, ok := g.Province(tok); ok {
			out[tok] = canon
		}
	}
	return out
}
