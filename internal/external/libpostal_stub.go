//go:build !libpostal

package external

// Available reports whether the libpostal bindings are compiled in.
const Available = false

// ExtractWithLibpostal returns nothing unless built with -tags libpostal.
func ExtractWithLibpostal(raw string, languages []string) LP {
	return LP{}
}
