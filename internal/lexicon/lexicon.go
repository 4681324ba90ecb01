// Package lexicon holds the static ingredient-risk table shared by the
// product scorer and the aggregate health assessment. Keeping a single
// table is what keeps the two paths classifying ingredients identically.
package lexicon

import (
	"strings"

	"github.com/franckalain/nutriledger/internal/models"
)

// Entry pairs an ingredient name fragment with its penalty points and
// severity class. Points are in [20,50]. Matching is case-insensitive
// substring containment, and multiple matches accumulate: each matched
// fragment is a separate risk signal, even when fragments overlap in
// the source text.
type Entry struct {
	Fragment string
	Points   int
	Severity models.Severity
	Reason   string
}

var entries = []Entry{
	{"sucralose", 50, models.SeverityAvoid, "Artificial sweetener that disrupts the gut microbiome"},
	{"aspartame", 50, models.SeverityAvoid, "Artificial sweetener linked to metabolic disruption"},
	{"acesulfame", 45, models.SeverityAvoid, "Artificial sweetener with limited long-term safety data"},
	{"acesulfame-k", 45, models.SeverityAvoid, "Artificial sweetener with limited long-term safety data"},
	{"red 40", 50, models.SeverityAvoid, "Petroleum-based artificial food dye"},
	{"red dye 40", 50, models.SeverityAvoid, "Petroleum-based artificial food dye"},
	{"yellow 5", 45, models.SeverityAvoid, "Artificial dye linked to hyperactivity"},
	{"yellow 6", 45, models.SeverityAvoid, "Artificial dye linked to hyperactivity"},
	{"blue 1", 40, models.SeverityAvoid, "Synthetic dye with potential allergenic effects"},
	{"blue 2", 40, models.SeverityAvoid, "Synthetic dye with potential allergenic effects"},
	{"caramel color", 35, models.SeverityConcerning, "May contain 4-MEI, a possible carcinogen"},
	{"tartrazine", 45, models.SeverityAvoid, "Artificial dye linked to hyperactivity"},
	{"sunset yellow", 45, models.SeverityAvoid, "Artificial dye linked to hyperactivity"},
	{"tbhq", 48, models.SeverityAvoid, "Synthetic preservative toxic at high doses"},
	{"bha", 48, models.SeverityAvoid, "Preservative classified as a possible carcinogen"},
	{"bht", 48, models.SeverityAvoid, "Preservative classified as a possible carcinogen"},
	{"high fructose corn syrup", 25, models.SeverityConcerning, "Highly processed sweetener tied to metabolic disease"},
	{"corn syrup", 20, models.SeverityModerate, "Refined sweetener with empty calories"},
	{"partially hydrogenated", 50, models.SeverityAvoid, "Source of artificial trans fat"},
	{"trans fat", 50, models.SeverityAvoid, "Raises LDL cholesterol and heart disease risk"},
	{"monosodium glutamate", 30, models.SeverityConcerning, "Flavor enhancer that can trigger sensitivity reactions"},
	{"msg", 30, models.SeverityConcerning, "Flavor enhancer that can trigger sensitivity reactions"},
	{"sodium benzoate", 25, models.SeverityModerate, "Preservative that can form benzene with vitamin C"},
	{"potassium bromate", 50, models.SeverityAvoid, "Dough conditioner banned in many countries"},
	{"propyl gallate", 35, models.SeverityConcerning, "Preservative with suspected endocrine effects"},
	{"sodium nitrite", 40, models.SeverityConcerning, "Curing agent that can form nitrosamines"},
	{"sodium nitrate", 38, models.SeverityConcerning, "Curing agent that can form nitrosamines"},
	{"artificial flavor", 30, models.SeverityConcerning, "Undisclosed synthetic flavor compounds"},
	{"artificial flavoring", 30, models.SeverityConcerning, "Undisclosed synthetic flavor compounds"},
	{"carrageenan", 28, models.SeverityConcerning, "Thickener associated with gut inflammation"},
	{"polysorbate", 32, models.SeverityConcerning, "Emulsifier that may disturb gut bacteria"},
}

// Entries returns the full table in its fixed order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Match returns every entry whose fragment occurs in the ingredient
// statement, in table order. An empty statement matches nothing.
func Match(statement string) []Entry {
	if statement == "" {
		return nil
	}
	lowered := strings.ToLower(statement)
	var matched []Entry
	for _, e := range entries {
		if strings.Contains(lowered, e.Fragment) {
			matched = append(matched, e)
		}
	}
	return matched
}

// Penalty sums the points of every matched fragment.
func Penalty(statement string) int {
	total := 0
	for _, e := range Match(statement) {
		total += e.Points
	}
	return total
}
