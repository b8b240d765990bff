// Package patterns provides the fragment library and the grok-style
// pattern compiler used by the screen parsers.
//
// Fragments are written for github.com/dlclark/regexp2: the screen
// grammars rely on lookbehind and lookahead to keep numbers from matching
// inside larger tokens, which RE2 cannot express.
package patterns

import (
	"strings"
	"time"

	"iw_parser/internal/locale"
)

// DefaultMatchTimeout bounds a single regex evaluation.
const DefaultMatchTimeout = 2 * time.Second

// Library builds regex fragments for one locale. It is immutable and safe
// for concurrent use.
type Library struct {
	loc     *locale.Locale
	timeout time.Duration

	thousand string
	base     map[string]string
}

// Option configures a Library.
type Option func(*Library)

// WithMatchTimeout sets the budget for one regex evaluation. Zero or
// negative keeps the default.
func WithMatchTimeout(d time.Duration) Option {
	return func(l *Library) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// NewLibrary builds the fragments for loc.
func NewLibrary(loc *locale.Locale, opts ...Option) *Library {
	if loc == nil {
		loc = locale.Default()
	}
	l := &Library{loc: loc, timeout: DefaultMatchTimeout}
	for _, o := range opts {
		o(l)
	}
	l.thousand = buildThousandClass(loc.ThousandSeparators())
	l.base = l.buildBase()
	return l
}

// Locale returns the locale the fragments were built for.
func (l *Library) Locale() *locale.Locale { return l.loc }

// MatchTimeout returns the per evaluation budget.
func (l *Library) MatchTimeout() time.Duration { return l.timeout }

// Base returns a copy of the placeholder map used by the compiler.
func (l *Library) Base() map[string]string {
	out := make(map[string]string, len(l.base))
	for k, v := range l.base {
		out[k] = v
	}
	return out
}

func (l *Library) buildBase() map[string]string {
	return map[string]string{
		"THOUSAND_SEP":      l.ThousandSeparator(),
		"DECIMAL_SEP":       l.DecimalSeparator(),
		"DECIMAL":           l.DecimalNumber(),
		"FLOAT":             l.FloatingDouble(),
		"UFLOAT":            l.UnsignedDouble(),
		"POINTS_PER_DAY":    l.PointsPerDay(),
		"BRACKET":           l.BracketString(),
		"USERNAME":          l.UserName(),
		"USERNAME_LOW":      l.LowUserName(),
		"USERTITLE":         l.UserTitle(),
		"USERRANK":          l.UserRank(),
		"TEXT":              l.Text(),
		"LINE":              l.SingleLineText(),
		"LINE3":             l.SingleLineText3(),
		"STAATSFORM":        l.Staatsform(),
		"KOLO_TYPE":         l.KoloTypes(),
		"OBJECT_TYPE":       l.ObjectTypes(),
		"PLANET_TYPE":       l.PlanetTypes(),
		"COORDS":            l.KoloCoords(),
		"DATE":              l.Date(),
		"DATETIME":          l.DateTime(),
		"DURATION":          l.MixedDuration(),
		"MIXEDTIME":         l.MixedTime(),
		"SHIP_ACTION":       l.ShipActions(),
		"SHIP_TEXT":         l.ShipTexts(),
		"AREA":              l.Areas(),
		"DEFENCE":           l.Defence(),
		"RESOURCE":          l.Resource(),
		"SHIP":              l.Ships(),
		"BUILDING":          l.Buildings(),
		"PLANETARY_PROBLEM": l.PlanetaryProblems(),
		"SHIP_CAPABILITY":   l.ShipCapabilities(),
		"YARD":              l.Yards(),
	}
}

// alt joins regex alternatives into one non-capturing group. Longer
// phrases must come before their prefixes.
func alt(items ...string) string {
	return "(?:" + strings.Join(items, "|") + ")"
}

const (
	startBoundary = `(?:(?<=\s)|(?<=^))`
	endBoundary   = `(?=\s|$)`
)

// buildThousandClass renders the accepted separators as a character class.
// An empty set yields a class that never matches.
func buildThousandClass(seps []rune) string {
	if len(seps) == 0 {
		return `[^\s\S]`
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range seps {
		switch r {
		case ' ':
			// space and no-break space, never tab: tab separates table cells
			b.WriteString(`\x20\u00A0`)
		case '.', '\'', '"', '\\', '[', ']', '^', '-':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(']')
	return b.String()
}

// ThousandSeparator matches one accepted thousand separator.
func (l *Library) ThousandSeparator() string { return l.thousand }

// DecimalSeparator matches the separator before a two digit fraction.
func (l *Library) DecimalSeparator() string { return "[.,´`]" }

func (l *Library) integerPart() string {
	return `(?:\d{1,3}(?:` + l.thousand + `\d{3})*|\d+)`
}

// DecimalNumber matches a signed integer with optional thousand
// separators. It only starts after whitespace, line start or "(" and only
// ends before whitespace, line end, ")" or "%".
func (l *Library) DecimalNumber() string {
	return `(?:(?:(?<=\s)|(?<=^)|(?<=\())-?` + l.integerPart() + `(?=\s|$|\)|%))`
}

// FloatingDouble is DecimalNumber with an optional "+" sign and an optional
// two digit fraction; it may also end before "*".
func (l *Library) FloatingDouble() string {
	return `(?:(?:(?<=\s)|(?<=^)|(?<=\())[-+]?` + l.integerPart() +
		`(?:` + l.DecimalSeparator() + `\d{2})?(?=\s|$|\)|\*|%))`
}

// UnsignedDouble matches an unsigned float that may directly follow "+"
// and may be followed by "+".
func (l *Library) UnsignedDouble() string {
	return `(?:(?:(?<=\s)|(?<=^)|(?<=\()|(?<=\+))` + l.integerPart() +
		`(?:` + l.DecimalSeparator() + `\d{2})?(?=\s|$|\)|\+))`
}

// PointsPerDay matches a points figure with an optional two digit fraction.
func (l *Library) PointsPerDay() string {
	return `(?:(?:(?<=\s)|(?<=^)|(?<=\())` + l.integerPart() +
		`(?:` + l.DecimalSeparator() + `\d{2})?(?=\s|$|\)|%))`
}

// BracketString matches "(name (sub))" groups separated by single spaces.
func (l *Library) BracketString() string {
	group := `\((?:[^\n()]+(?:\([^\n()]*\)[^\n()]*)*)\)`
	return `(?:` + group + `(?:\s` + group + `)*)`
}

const userNameChar = `[a-zA-Z0-9.\-_+*()={}]`

func userNameBody() string {
	return userNameChar + `(?:(?:` + userNameChar + `|\x20(?!\x20)){0,28}` + userNameChar + `)?`
}

// UserName matches a player name of at most 30 characters without leading,
// trailing or doubled spaces.
func (l *Library) UserName() string {
	return `(?:(?:(?<=\s)|(?<=^)|(?<=>))(?!\s)` + userNameBody() + `(?=\s|$|\.|<))`
}

// LowUserName is UserName without the surrounding boundary checks.
func (l *Library) LowUserName() string {
	return `(?:` + userNameBody() + `)`
}

// UserTitle matches a free form title of at most 30 characters.
func (l *Library) UserTitle() string {
	return `(?:` + startBoundary + `[^\s](?:(?:[^\n\x20]|\x20(?!\x20)){0,28}[^\s])?` + endBoundary + `)`
}

// UserRank matches an alliance rank in either of its spellings.
func (l *Library) UserRank() string {
	return alt(`Hasenpriester`, `Gründer`, `interner\sHC`, `HC`,
		`Mitgliederverwalter`, `Memberverwalter`, `Mitglieder`, `Member`)
}

func (l *Library) Text() string            { return `(?:.*)` }
func (l *Library) SingleLineText() string  { return `(?:[^\n]*)` }
func (l *Library) SingleLineText3() string { return `(?:[^\n\t]{3,})` }

func (l *Library) Staatsform() string {
	return alt(`Monarchie`, `Diktatur`, `Kommunismus`, `Demokratie`, `Barbarismus`, `unzivilisierte\sBarbarei`)
}

// KoloTypes matches the object types a player can own.
func (l *Library) KoloTypes() string {
	return alt(`Kolonie`, `Kampfbasis`, `Artefaktsammelbasis`, `Artefaktbasis`, `Sammelbasis`,
		`KB`, `RB`, `AB`, `SB`)
}

// ObjectTypes adds the empty object and space stations to KoloTypes.
func (l *Library) ObjectTypes() string {
	return alt(`Kolonie`, `---`, `Kampfbasis`, `Artefaktsammelbasis`, `Artefaktbasis`, `Sammelbasis`,
		`Raumstation`, `KB`, `RB`, `AB`, `SB`)
}

func (l *Library) PlanetTypes() string {
	return alt(`Steinklumpen`, `Nichts`, `Eisplanet`, `Gasgigant`, `Asteroid`, `Elektrosturm`,
		`Ionensturm`, `Raumverzerrung`, `grav\.\sAnomalie`, `S`, `N`, `E`, `G`, `A`)
}

// KoloCoords matches "gal:sol:pla".
func (l *Library) KoloCoords() string { return `(?:\d{1,2}:\d{1,3}:\d{1,2})` }

// Date matches DD.MM.YYYY between whitespace.
func (l *Library) Date() string {
	return `(?:` + startBoundary + `\d{2}\.\d{2}\.\d{4}` + endBoundary + `)`
}

// DateTime matches the three date-time renderings the game offers.
func (l *Library) DateTime() string {
	dayMonthYear := `\d{1,2}\D{0,2}[\s.](?:\d{1,2}|\D+)[\s.]\d{4}\s\d{1,2}:\d{1,2}(?::\d{1,2})?`
	iso := `\d{4}[-.]\d{1,2}[-.]\d{1,2}\s\d{1,2}:\d{1,2}(?::\d{1,2})?`
	verbose := `\D+\s\d{1,2}\D{0,2},?\s\d{4},?\s\d{1,2}:\d{1,2}(?::\d{1,2})?(?:\s(?:am|pm))?`
	return `(?:\b` + alt(dayMonthYear, iso, verbose) + `\b)`
}

func durationBody() string {
	return `(?:\d+\s(?:Tage|Tag|days|day)\s+)?\d{1,2}:\d{1,2}(?::\d{1,2})?`
}

// MixedDuration matches "[N Tag(e)] H:MM[:SS]".
func (l *Library) MixedDuration() string {
	return `(?:` + startBoundary + durationBody() + endBoundary + `)`
}

// MixedTime is MixedDuration with an optional am/pm suffix.
func (l *Library) MixedTime() string {
	return `(?:` + startBoundary + durationBody() + `(?:\s(?:am|pm))?` + endBoundary + `)`
}

func (l *Library) ShipActions() string {
	return alt(
		`Übergabe\s\(tr\sSchiffe\)`, `Übergabe`, `Transport`,
		`Stationieren\s&\sVerteidigen`, `Stationieren`,
		`Ressourcenhandel`, `Ressourcen\sabholen`, `Angriff`,
		`Sondierung\s\(Geologie\)\s\(Scout\)`, `Sondierung\s\(Geologie\)`,
		`Sondierung\s\(Gebäude\)\s\(Scout\)`, `Sondierung\s\(Gebäude/Ress\)`,
		`Sondierung\s\(Schiff\)\s\(Scout\)`, `Sondierung\s\(Schiffe/Def/Ress\)`,
		`Kolonisation`, `Saveflug`,
		`Basisaufbau\s\((?:Kampf|Ressourcen|Artefakte)\)`,
		`Massdriverpaket`, `Rückkehr`,
	)
}

// ShipTexts matches the random status lines of arriving fleets.
func (l *Library) ShipTexts() string {
	return alt(
		`Lädt\sRess\sein\sund\saus`,
		`Surft\sim\sBordnetz`,
		`Schaut\sder\sfeschen\sPilotin\shinterher`,
		`Hört\sMusik`,
		`Erforscht\sgrade\sseine\sNase`,
		`Faselt\swas\svon\sWurzelzwergen`,
		`Im\sLandeanflug`,
		`Sabbert\sdie\sInstrumente\svoll`,
		`Versucht\sdie\srichtigen\sKnöpfe\sfür\sdie\sLandung\szu\sfinden`,
		`Faselt\swirres\sZeug\sins\sInterkom`,
		`Pfeift\sder\sfeschen\sPilotin\shinterher\sund\smacht\skomische\sAndeutungen`,
		`Wartet\sauf\sWeihnachten`,
		`Erklaert\sdie\sInfinitesimalrechnung`,
		`Quatscht\smit\sder\sBodenkontrolle`,
		`Wurzelzwergen,\süberall\sWurzelzwergen`,
		`Liegt\sbesoffen\sin\sder\sEcke`,
	)
}

// Areas matches research and ship areas.
func (l *Library) Areas() string {
	return alt(
		`Beobachtung`, `Bevölkerung`, `blubbernde\sGallertmasse`, `Brause`, `Bomber`,
		`Chemie`, `Dreadnoughts`, `Ethik`, `Evolution`, `Forschung`, `Freizeit`,
		`Förderungsanlagen`, `Imperiale\sHilfsgüter`, `Industrie`, `Informatik`, `Jäger`,
		`Kolonisation`, `Korvetten`, `Kreuzer`, `Lager\s&\sBunker`, `Militär`,
		`orbitale\sVerteidigung`, `orbitale\sDef`, `planetare\sVerteidigung`, `planetare\sDef`,
		`Physik`, `Prototypen`, `Raumfahrt`, `Schlachtschiffe`, `Sondenverteidigung`, `Sonden`,
		`Spezielle\sAktionen`, `Spezielle\sSchiffe`, `Unbekannt`, `Unifragen`, `Verteidigung`,
		`Wirtschaft\s&\sVerwaltung`, `Wirtschaft`, `Zerstörer`, `Zivile\sSchiffe`,
	)
}

// Defence matches planetary defence installations.
func (l *Library) Defence() string {
	return alt(
		`SDI\sRaketensystem`, `SDI\sAtomraketen`, `SDI\sPlasmalaser`, `SDI\sGravitonbeam`,
		`Stopfentenwerfer`, `Raketensatellit`, `Gausskanonensatellit`, `LaserSat`,
		`PulslaserSat`, `SD01\sGatling`, `SD02\sPulslaser`, `SDI\sStellarkonverter`,
		`Fusiontorpedowerfer\s\(Sat\)`, `MassdriverSat`,
	)
}

// Resource matches a resource label followed by ":", ",", whitespace or
// line end.
func (l *Library) Resource() string {
	return `(?:` + startBoundary +
		alt(`Eisen`, `Eis`, `Wasser`, `Stahl`, `Energie`, `VV4A`, `FP`, `Forschungspunkte`,
			`chem\.\sElemente`, `Bevölkerung`, `Credits`) +
		`(?=:|,|\s|$))`
}

func nameBody() string {
	return `\w+[\w\-\x20\t(]+[\x20\t\w]+[)\w]*`
}

// Ships matches a ship name of at least two words or parts.
func (l *Library) Ships() string {
	return `(?:` + startBoundary + nameBody() + endBoundary + `)`
}

// Buildings matches a building name.
func (l *Library) Buildings() string {
	return `(?:` + startBoundary + nameBody() + endBoundary + `)`
}

// PlanetaryProblems matches the warnings shown on the planet overview.
func (l *Library) PlanetaryProblems() string {
	return alt(
		`Bev.{1,3}lkerungsmangel`,
		`Scannerabschaltung\swegen\sChemiemangel`,
		`Werften\ssind\sruntergefallen\s\*n.{1,3}l\*`,
		`Werften\ssind\swieder\soben\sin\s`+l.MixedDuration(),
		`Forschungsausfall\sdurch\sEnergiemangel`,
		`Energiemangel`,
		`Wassermangel`,
	)
}

// ShipCapabilities matches the action list of a ship.
func (l *Library) ShipCapabilities() string {
	return alt(
		`.{1,3}bergebbar\san\seigene\sPlaneten`,
		`.{1,3}bergebbar`,
		`Stationierbar`,
		`Transport`,
		`Angreifen\s/\sVerteidigen`,
		`Pl.{1,3}ndern`,
		`Sondieren`,
		`Kolonisieren`,
		`Kampfbasis\saufbauen`,
		`Ressbasis\saufbauen`,
		`Artefaktbasis\saufbauen`,
		`Bombardieren`,
		`Tarnbar`,
		`Terraformer`,
	)
}

// Yards matches a shipyard name.
func (l *Library) Yards() string {
	return `(?:(?:kleine|mittlere|gro.{1,3}e|Dreadnought)\s(?:(?:orbitale|planetare)\s)?Werft)`
}
