package rank

import "strings"

// displayToID maps commodity display names to provider identifiers that
// cannot be derived by folding the display name. Regular names ("Gold",
// "Consumer Technology") fold cleanly and do not need entries here.
var displayToID = map[string]string{
	"Void Opals":                    "opal",
	"Atmospheric Processors":        "atmosphericextractors",
	"Energy Grid Assembly":          "powergridassembly",
	"Hardware Diagnostic Sensor":    "diagnosticsensor",
	"Land Enrichment Systems":       "terrainenrichmentsystems",
	"Marine Equipment":              "marinesupplies",
	"Micro-weave Cooling Hoses":     "coolinghoses",
	"Muon Imager":                   "mutomimager",
	"Occupied Escape Pod":           "occupiedcryopod",
	"Skimmer Components":            "skimercomponents",
	"Agri-Medicines":                "agriculturalmedicines",
	"Atmospheric Extractors":        "atmosphericextractors",
	"Narcotics":                     "basicnarcotics",
	"H.E. Suits":                    "hazardousenvironmentsuits",
	"Methanol Monohydrate Crystals": "methanolmonohydratecrystals",
}

// fold derives a provider identifier from a display name by lowercasing
// and dropping everything but letters and digits.
func fold(display string) string {
	var b strings.Builder
	b.Grow(len(display))
	for _, r := range strings.ToLower(display) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// canonicalID resolves a display name to its provider identifier.
// Unknown names fold through unchanged; ok reports whether the name was
// in the irregular table or folds to itself trivially.
func canonicalID(display string) (string, bool) {
	if id, ok := displayToID[display]; ok {
		return id, true
	}
	folded := fold(display)
	return folded, folded != ""
}
