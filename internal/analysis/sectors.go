package analysis

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sectorMap folds lowercased sector spellings onto canonical names.
var sectorMap = map[string]string{
	"energy":             "Energy",
	"oil":                "Energy",
	"oil & gas":          "Energy",
	"oil and gas":        "Energy",
	"power":              "Energy",
	"solar":              "Energy",
	"wind energy":        "Energy",
	"renewable":          "Energy",
	"renewables":         "Energy",
	"mining":             "Mining",
	"mines":              "Mining",
	"infrastructure":     "Infrastructure",
	"infra":              "Infrastructure",
	"construction":       "Infrastructure",
	"real estate":        "Real Estate",
	"realty":             "Real Estate",
	"agriculture":        "Agriculture",
	"agri":               "Agriculture",
	"telecom":            "Telecom",
	"telecommunications": "Telecom",
	"government":         "Government",
	"govt":               "Government",
	"defence":            "Defence",
	"defense":            "Defence",
	"survey":             "Survey",
	"surveying":          "Survey",
	"mapping":            "Survey",
	"logistics":          "Logistics",
	"transport":          "Logistics",
	"transportation":     "Logistics",
}

// NormalizeSector maps a sector spelling to its canonical name. Unknown
// values are title-cased; blank input is returned unchanged.
func NormalizeSector(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return s
	}
	if canon, ok := sectorMap[strings.ToLower(v)]; ok {
		return canon
	}
	return cases.Title(language.Und).String(v)
}
