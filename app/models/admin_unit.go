package models

// Admin levels of the gazetteer index
const (
	AdminLevelProvince = 1
	AdminLevelDistrict = 2
)

// AdminUnit is one gazetteer document in the search index.
type AdminUnit struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`          // canonical lowercase name
	NameFolded   string   `json:"name_folded"`   // diacritics folded
	Level        int      `json:"level"`         // 1 province, 2 district
	AdminSubtype string   `json:"admin_subtype"` // province / district
	Province     string   `json:"province"`      // parent province, for districts
	Aliases      []string `json:"aliases,omitempty"`
}
