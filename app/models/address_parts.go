package models

import (
	"sort"
	"strings"
)

// Field names of AddressParts
const (
	FieldMahalle = "mahalle"  // neighborhood
	FieldCadde   = "cadde"    // avenue
	FieldSokak   = "sokak"    // street
	FieldBulvar  = "bulvar"   // boulevard
	FieldNo      = "no"       // building number
	FieldDaire   = "daire"    // apartment
	FieldKat     = "kat"      // floor
	FieldBinaAdi = "bina_adi" // building / complex name
	FieldMevkii  = "mevkii"   // locality
	FieldIl      = "il"       // province
	FieldIlce    = "ilce"     // district
)

// ConfidenceColumn is the output column carrying the extraction confidence.
const ConfidenceColumn = "_confidence"

// AllFields lists every recognized field in output column order.
var AllFields = []string{
	FieldMahalle, FieldCadde, FieldSokak, FieldBulvar,
	FieldNo, FieldDaire, FieldKat,
	FieldBinaAdi, FieldMevkii, FieldIl, FieldIlce,
}

// SubmissionOrder is the field order of the "k:v | k:v" rendering.
var SubmissionOrder = []string{
	FieldIl, FieldIlce, FieldMahalle, FieldCadde, FieldSokak,
	FieldBinaAdi, FieldMevkii, FieldNo, FieldKat, FieldDaire,
}

// AddressParts maps field name to extracted value. An absent key means the
// field was not found; present values are never empty.
type AddressParts map[string]string

// Set stores v under k, or removes k when v is blank.
func (p AddressParts) Set(k, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		delete(p, k)
		return
	}
	p[k] = v
}

func (p AddressParts) Get(k string) string {
	return p[k]
}

func (p AddressParts) Has(k string) bool {
	_, ok := p[k]
	return ok
}

func (p AddressParts) Clone() AddressParts {
	out := make(AddressParts, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the present field names, sorted.
func (p AddressParts) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Public drops internal keys (leading underscore).
func (p AddressParts) Public() AddressParts {
	out := make(AddressParts, len(p))
	for k, v := range p {
		if strings.HasPrefix(k, "_") || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// String renders the parts as "il:izmir | ilce:bornova | ..." in
// SubmissionOrder. Fields outside that order are not rendered.
func (p AddressParts) String() string {
	chunks := make([]string, 0, len(SubmissionOrder))
	for _, k := range SubmissionOrder {
		if v := p[k]; v != "" {
			chunks = append(chunks, k+":"+v)
		}
	}
	return strings.Join(chunks, " | ")
}
