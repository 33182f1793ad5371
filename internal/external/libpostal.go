//go:build libpostal

package external

import (
	"github.com/openvenues/gopostal/expand"
	"github.com/openvenues/gopostal/parser"
)

// Available reports whether the libpostal bindings are compiled in.
const Available = true

// ExtractWithLibpostal parses the first expansion of raw.
func ExtractWithLibpostal(raw string, languages []string) LP {
	opts := expand.GetDefaultExpansionOptions()
	opts.Languages = languages

	text := raw
	if exps := expand.ExpandAddressOptions(raw, opts); len(exps) > 0 {
		text = exps[0]
	}

	parsed := parser.ParseAddress(text)
	comps := make([]Component, len(parsed))
	for i, c := range parsed {
		comps[i] = Component{Label: c.Label, Value: c.Value}
	}
	return FromComponents(text, comps)
}
