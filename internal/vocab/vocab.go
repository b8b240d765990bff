// Package vocab holds the closed vocabularies used on IceWars screens and
// the synonym tables that fold alternate spellings onto one canonical label.
package vocab

import (
	"sort"
	"strings"
)

// Table maps every accepted spelling of a label to its canonical form.
type Table struct {
	Name      string
	Canonical map[string]string
}

// Lookup returns the canonical label for raw. Matching ignores case and
// surrounding whitespace.
func (t Table) Lookup(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	v, ok := t.Canonical[key]
	return v, ok
}

// Labels returns the sorted set of canonical labels.
func (t Table) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range t.Canonical {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// newTable builds a Table from canonical -> aliases. The canonical label
// is always accepted for itself.
func newTable(name string, entries map[string][]string) Table {
	t := Table{Name: name, Canonical: make(map[string]string)}
	for canonical, aliases := range entries {
		t.Canonical[strings.ToLower(canonical)] = canonical
		for _, a := range aliases {
			t.Canonical[strings.ToLower(a)] = canonical
		}
	}
	return t
}

// Resource names.
const (
	Eisen            = "Eisen"
	Stahl            = "Stahl"
	VV4A             = "VV4A"
	ChemElemente     = "chem. Elemente"
	Eis              = "Eis"
	Wasser           = "Wasser"
	Energie          = "Energie"
	Forschungspunkte = "Forschungspunkte"
	Bevoelkerung     = "Bevölkerung"
	Credits          = "Credits"
)

// Resources accepts every resource label the game prints.
var Resources = newTable("resource", map[string][]string{
	Eisen:            nil,
	Stahl:            nil,
	VV4A:             nil,
	ChemElemente:     {"chem.Elemente", "Chemie"},
	Eis:              nil,
	Wasser:           nil,
	Energie:          nil,
	Forschungspunkte: {"FP"},
	Bevoelkerung:     {"Bevoelkerung"},
	Credits:          nil,
})

// Areas are the research and ship areas. Singular ship class names seen in
// research brackets fold onto the plural area.
var Areas = newTable("area", map[string][]string{
	"Beobachtung":             nil,
	"Bevölkerung":             nil,
	"blubbernde Gallertmasse": nil,
	"Brause":                  nil,
	"Bomber":                  nil,
	"Chemie":                  nil,
	"Dreadnoughts":            {"Dreadnought"},
	"Ethik":                   nil,
	"Evolution":               nil,
	"Forschung":               nil,
	"Freizeit":                nil,
	"Förderungsanlagen":       nil,
	"Imperiale Hilfsgüter":    nil,
	"Industrie":               nil,
	"Informatik":              nil,
	"Jäger":                   nil,
	"Kolonisation":            nil,
	"Korvetten":               {"Korvette"},
	"Kreuzer":                 nil,
	"Lager & Bunker":          nil,
	"Militär":                 nil,
	"orbitale Verteidigung":   {"orbitale Def"},
	"planetare Verteidigung":  {"planetare Def"},
	"Physik":                  nil,
	"Prototypen":              nil,
	"Raumfahrt":               nil,
	"Schlachtschiffe":         {"Schlachtschiff"},
	"Sondenverteidigung":      nil,
	"Sonden":                  nil,
	"Spezielle Aktionen":      nil,
	"Spezielle Schiffe":       nil,
	"Unbekannt":               nil,
	"Unifragen":               nil,
	"Verteidigung":            nil,
	"Wirtschaft & Verwaltung": nil,
	"Wirtschaft":              nil,
	"Zerstörer":               nil,
	"Zivile Schiffe":          nil,
})

// Object types a coordinate can carry.
const (
	NoObject      = ""
	Kolonie       = "Kolonie"
	Raumstation   = "Raumstation"
	Artefaktbasis = "Artefaktbasis"
	Kampfbasis    = "Kampfbasis"
	Sammelbasis   = "Sammelbasis"
)

// ObjectTypes folds the short forms used in table headers onto the long
// object type names.
var ObjectTypes = newTable("object type", map[string][]string{
	NoObject:      {"---"},
	Kolonie:       nil,
	Raumstation:   nil,
	Artefaktbasis: {"AB", "Artefaktsammelbasis"},
	Kampfbasis:    {"KB"},
	Sammelbasis:   {"SB", "RB"},
})

// Ranks are alliance roles. The member administration role is printed
// differently on the member list and the alliance overview.
var Ranks = newTable("rank", map[string][]string{
	"Gründer":         {"Hasenpriester"},
	"HC":              nil,
	"interner HC":     nil,
	"Memberverwalter": {"Mitgliederverwalter"},
	"Member":          {"Mitglieder", "Mitglied"},
})

// WeaponClasses lists the weapon classes of the ship info screen.
var WeaponClasses = newTable("weapon class", map[string][]string{
	"keine":         nil,
	"elektrisch":    nil,
	"gravimetrisch": nil,
	"kinetisch":     nil,
	"unbekannt":     nil,
})
