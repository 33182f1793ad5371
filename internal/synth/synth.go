// Package synth generates paired address tables with known links, for
// exercising match and eval end to end.
package synth

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/address-matcher/internal/dataset"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/brianvoe/gofakeit/v6"
)

var (
	neighborhoods = []string{
		"atatürk", "cumhuriyet", "yeşilyurt", "kızılay", "bahçelievler", "fatih",
		"gazi", "hürriyet", "istiklal", "mimar sinan", "yunus emre", "barbaros",
		"çamlık", "güzelyalı", "karşıyaka", "zafer", "inönü", "mevlana",
	}
	streets = []string{
		"lale", "gül", "menekşe", "papatya", "çınar", "ihlamur", "akasya",
		"manolya", "kardelen", "nergis", "zambak", "söğüt", "kavak", "ardıç",
	}
	avenues = []string{
		"cumhuriyet", "atatürk", "istiklal", "gazi", "inönü", "millet", "fevzi çakmak",
	}
	buildings = []string{"güneş", "deniz", "yıldız", "park", "bahar", "huzur", "ece"}

	// canonical word -> written variants
	abbreviations = [][2]string{
		{" mahalle ", " mah. "}, {" mahalle ", " mh "}, {" mahalle ", " mahallesi "},
		{" cadde ", " cad. "}, {" cadde ", " cd "}, {" cadde ", " caddesi "},
		{" sokak ", " sk. "}, {" sokak ", " sok "}, {" sokak ", " sokağı "},
		{" apartman ", " apt. "},
	}
	numberForms = []string{"no %s", "no:%s", "no.%s", "no: %s", "kapı no %s"}
	punctuation = []string{", ", " - ", " / ", " "}

	noPattern = regexp.MustCompile(`no (\d+)`)
)

// Dataset holds the generated tables. GroundTruth has left_id,right_id.
type Dataset struct {
	Left        *dataset.Table
	Right       *dataset.Table
	GroundTruth *dataset.Table
}

// Generate builds n left addresses, one perturbed copy of each on the right
// (shuffled) plus n/5 distractors. The same seed yields the same tables.
func Generate(n int, seed int64) *Dataset {
	f := gofakeit.New(seed)
	places := placeList(gazetteer.Default())

	ds := &Dataset{
		Left:        &dataset.Table{Headers: []string{"id", "address"}},
		Right:       &dataset.Table{Headers: []string{"id", "address"}},
		GroundTruth: &dataset.Table{Headers: []string{"left_id", "right_id"}},
	}

	type rightRow struct {
		address string
		leftID  string
	}
	var right []rightRow
	for i := 0; i < n; i++ {
		addr := canonical(f, places)
		id := strconv.Itoa(i)
		ds.Left.Rows = append(ds.Left.Rows, []string{id, addr})
		right = append(right, rightRow{address: perturb(f, addr), leftID: id})
	}
	for i := 0; i < n/5; i++ {
		src := ds.Left.Rows[f.Number(0, n-1)][1]
		right = append(right, rightRow{address: distractor(f, src)})
	}

	f.Rand.Shuffle(len(right), func(a, b int) { right[a], right[b] = right[b], right[a] })
	for j, r := range right {
		id := strconv.Itoa(j)
		ds.Right.Rows = append(ds.Right.Rows, []string{id, r.address})
		if r.leftID != "" {
			ds.GroundTruth.Rows = append(ds.GroundTruth.Rows, []string{r.leftID, id})
		}
	}
	sort.SliceStable(ds.GroundTruth.Rows, func(a, b int) bool {
		x, _ := strconv.Atoi(ds.GroundTruth.Rows[a][0])
		y, _ := strconv.Atoi(ds.GroundTruth.Rows[b][0])
		return x < y
	})
	return ds
}

type place struct{ district, province string }

// placeList returns district/province pairs with a unique province, sorted
// for determinism.
func placeList(g *gazetteer.Gazetteer) []place {
	var out []place
	for d, provs := range g.Districts() {
		if len(provs) == 1 {
			out = append(out, place{district: d, province: provs[0]})
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].province != out[b].province {
			return out[a].province < out[b].province
		}
		return out[a].district < out[b].district
	})
	return out
}

func canonical(f *gofakeit.Faker, places []place) string {
	var b strings.Builder
	b.WriteString(f.RandomString(neighborhoods) + " mahalle ")
	if f.Bool() {
		b.WriteString(f.RandomString(avenues) + " cadde ")
	}
	if f.Number(0, 3) == 0 {
		b.WriteString(strconv.Itoa(f.Number(1000, 3999)) + " sokak ")
	} else {
		b.WriteString(f.RandomString(streets) + " sokak ")
	}
	if f.Number(0, 3) == 0 {
		b.WriteString(f.RandomString(buildings) + " apartman ")
	}
	fmt.Fprintf(&b, "no %d", f.Number(1, 250))
	if f.Bool() {
		fmt.Fprintf(&b, " daire %d", f.Number(1, 40))
	}
	if len(places) > 0 {
		p := places[f.Number(0, len(places)-1)]
		fmt.Fprintf(&b, " %s %s", p.district, p.province)
	}
	return b.String()
}

// perturb applies abbreviation, number-form, punctuation and case noise.
func perturb(f *gofakeit.Faker, addr string) string {
	a := " " + addr + " "
	if f.Number(0, 9) < 7 {
		ab := abbreviations[f.Number(0, len(abbreviations)-1)]
		a = strings.Replace(a, ab[0], ab[1], 1)
	}
	if f.Bool() {
		form := f.RandomString(numberForms)
		a = noPattern.ReplaceAllStringFunc(a, func(m string) string {
			return fmt.Sprintf(form, noPattern.FindStringSubmatch(m)[1])
		})
	}
	a = strings.TrimSpace(a)
	if f.Number(0, 9) < 3 {
		toks := strings.Fields(a)
		a = strings.Join(toks[:len(toks)-1], " ") + f.RandomString(punctuation) + toks[len(toks)-1]
	}
	switch f.Number(0, 3) {
	case 0:
		a = strings.ToUpperSpecial(unicode.TurkishCase, a)
	case 1:
		a = titleCase(a)
	}
	return a
}

// distractor changes the building number and street type of addr.
func distractor(f *gofakeit.Faker, addr string) string {
	a := noPattern.ReplaceAllStringFunc(addr, func(m string) string {
		n, _ := strconv.Atoi(noPattern.FindStringSubmatch(m)[1])
		return "no " + strconv.Itoa(n+f.Number(5, 50))
	})
	return strings.Replace(a, " sokak ", " yolu ", 1)
}

func titleCase(s string) string {
	toks := strings.Fields(s)
	for i, t := range toks {
		r := []rune(t)
		r[0] = unicode.TurkishCase.ToUpper(r[0])
		toks[i] = string(r)
	}
	return strings.Join(toks, " ")
}
