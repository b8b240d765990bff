// Package milschiff provides grok-style pattern definitions for the
// military ship overview.
package milschiff

import (
	"github.com/dlclark/regexp2"

	"iw_parser/internal/patterns"
)

const (
	formatTable  = "table"
	formatHeader = "header"
)

// Formats defines the overview table and the pass over its header block.
var Formats = []patterns.Format{
	// One table: a header block naming a column per colony, then one row
	// per ship type.
	// Example:
	//	1:2:3
	// (Kolonie)	1:2:4
	// (Kampfbasis)	Im Flug	Stat	Gesamt
	// Systrans	10	5	0	3	18
	{
		Name: formatTable,
		Pattern: `^\s(?<header>{COORDS}(?:[\n\r]+\({KOLO_TYPE}\)\s{COORDS})*[\n\r]+\({KOLO_TYPE}\)\sIm\sFlug\sStat\sGesamt)` +
			`(?<rows>(?:[\n\r]+[^\t\n]+(?:\s(?:{DECIMAL})?)+)*)$`,
		Options: regexp2.Multiline,
		Fields:  []string{"header", "rows"},
	},

	// One header column: coordinates over the object type in brackets.
	{
		Name:    formatHeader,
		Pattern: `(?<coords>(?<gal>\d{1,2}):(?<sol>\d{1,3}):(?<pla>\d{1,2}))[\n\r]+\((?<kolo_type>{KOLO_TYPE})\)`,
		Options: regexp2.Multiline,
		Fields:  []string{"coords", "gal", "sol", "pla", "kolo_type"},
	},
}
