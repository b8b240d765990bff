// Package indexgeb provides grok-style pattern definitions for the building
// queue block of the main page.
package indexgeb

import (
	"github.com/dlclark/regexp2"

	"iw_parser/internal/patterns"
)

// Formats defines the building queue layout.
var Formats = []patterns.Format{
	// One planet line of the queue, either a running construction or the
	// idle marker.
	// Example: Erde (1:2:3)	Forschungslabor bis 24.12.2010 13:45:00 - 1 Tag 02:03:04
	// Example: Mars (1:2:4)	nüscht
	{
		Name: "queue_line",
		Pattern: `(?<planet>{LINE})\s` +
			`\((?<gal>\d+):(?<sol>\d+):(?<pla>\d+)\)\s+` +
			`(?:` +
			`(?:(?<building>{LINE})\s+bis\s(?<until>{DATETIME})(?:\s(?:-\s)?(?<remaining>{MIXEDTIME}))?)` +
			`|(?:n.{1,5}scht)` +
			`)`,
		Options: regexp2.Multiline | regexp2.Singleline,
		Fields:  []string{"planet", "gal", "sol", "pla", "building", "until", "remaining"},
	},
}
