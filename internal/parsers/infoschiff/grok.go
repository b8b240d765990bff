// Package infoschiff provides grok-style pattern definitions for the ship
// info screen.
package infoschiff

import (
	"github.com/dlclark/regexp2"

	"iw_parser/internal/patterns"
)

// Format names.
const (
	formatShip          = "ship"
	formatCost          = "cost"
	formatEffectiveness = "effectiveness"
	formatYard          = "yard"
)

const weaponClass = `(?:keine|elektrisch|gravimetrisch|kinetisch|unbekannt)`

// carrierBlock is the optional ship transport capacity of one class,
// followed by the ships that fit.
func carrierBlock(class string) string {
	return `(?:Schifftransportkapazit.t\sKlasse\s` + class + `\s+?(?<ship_capacity` + class + `>{DECIMAL})\s*?\n+` +
		`^kann\sfolgende\sSchiffe\stransportieren\s*?(?<carriable` + class + `>(?:{LINE3}\n)+))?`
}

// Formats defines the ship info layout and the passes over its sub-captures.
var Formats = []patterns.Format{
	// The whole screen, section by section in the order the game prints it.
	{
		Name: formatShip,
		Pattern: `(?:Schiffinfo:\s*)?(?<name>{LINE3})\s*?\n+` +
			`[\s\S]*?` +
			`Kosten\s+?(?<costs>(?:\s?{RESOURCE}:\s{DECIMAL})*|.*?)\n+` +
			`Dauer\s+?(?<duration>{MIXEDTIME})\s*?\n+` +
			`Voraussetzungen\sForschungen\s+?(?<researches>{BRACKET})?\s*\n+` +
			`(?:aufr.{1,3}stbar\szu\s+?(?<upgrade>{LINE3})\n+)?` +
			`ben.{1,3}tigt\sWerften\s+?(?<yards>(?:{YARD}\s*)*)\n+` +
			`m.{1,3}gliche\sAktionen\s+?(?<actions>(?:{SHIP_CAPABILITY}\s*)+)\n+` +

			`Daten\n+` +
			`Geschwindigkeit\sSol\s+?(?<speed_sol>{DECIMAL})\s*?\n+` +
			`Geschwindigkeit\sGal\s+?(?<speed_gal>{DECIMAL})\s*?\n+` +
			`(?:\s*?Schiff\skann\sdie\s(?<leave_galaxy>Galaxie\sverlassen)\s*?\n+)?` +
			`Verbrauch\schem\.\sElemente\s+?(?<consumption_chem>{DECIMAL})\s*?\n+` +
			`Verbrauch\sEnergie\s+?(?<consumption_energy>{DECIMAL})\s*?\n+` +

			`Zivile\sDaten\n+` +
			`(?:^kann\svon\sfolgende\sSchiffen\s(?<transportable>transportiert\swerden)\s*?(?:(?<carried_by>(?:{LINE3}\n)+)|\n+)` +
			`^belegt\sbei\seinem\sTransport\s+?(?<parking_lot>{DECIMAL})\sEinheit\(en\)\sPlatz\n+)?` +
			`(?:Ladekapazit.t\sKlasse\s1\s+?(?<capacity1>{DECIMAL})\s*?\n+)?` +
			`(?:Ladekapazit.t\sKlasse\s2\s+?(?<capacity2>{DECIMAL})\s*?\n+)?` +
			`(?:Ladekapazit.t\sBev.lkerung\s+?(?<capacity_population>{DECIMAL})\s*?\n+)?` +
			carrierBlock("1") + carrierBlock("2") + carrierBlock("3") +

			`Kampfdaten\n+` +
			`Angriff\s+?(?<attack>{DECIMAL})\s*?\n+` +
			`Waffenklasse\s+?(?<weapon_class>` + weaponClass + `)\s*?\n+` +
			`Verteidigung\s+?(?<defence>{DECIMAL})\s*?\n+` +
			`Panzerung\s\(kinetisch\)\s+?(?<armour_kinetic>{DECIMAL})\s*?\n+` +
			`Panzerung\s\(elektrisch\)\s+?(?<armour_electric>{DECIMAL})\s*?\n+` +
			`Panzerung\s\(gravimetrisch\)\s+?(?<armour_gravimetric>{DECIMAL})\s*?\n+` +
			`Schilde\s+?(?<shields>{DECIMAL})\s*?\n+` +
			`Wendigkeit\s+?(?<mobility>{DECIMAL})\s*?\n+` +
			`Zielgenauigkeit\s+?(?<accuracy>{DECIMAL})\s*?\n+` +
			`Effektivit.{1,3}t\sgegen\s*\n(?<effective>(?:^{LINE3}\s*\d+%\n)+)` +

			`(?:Geleitschutz\n+` +
			`Ben.{1,3}tigte\sJ.{1,3}geranzahl\sf.{1,3}r\sBonus\s+?(?<escort_fighters>{DECIMAL})\s*?\n+` +
			`Geleitschutzbonus\sAngriff\s*?(?<bonus_attack>{FLOAT})\n+` +
			`Geleitschutzbonus\sVerteidigung\s+?(?<bonus_defence>{FLOAT})\s*?\n+)?` +
			`(?:(?<espionage>Spionagef.{1,3}higkeiten)\n+)?` +
			`(?:Bombenschaden\s+?(?<bomb_damage>{DECIMAL})\s*?\n+)?`,
		Options: regexp2.Multiline,
		Fields: []string{
			"name", "costs", "duration", "researches", "upgrade", "yards", "actions",
			"speed_sol", "speed_gal", "leave_galaxy", "consumption_chem", "consumption_energy",
			"transportable", "carried_by", "parking_lot", "capacity1", "capacity2", "capacity_population",
			"ship_capacity1", "carriable1", "ship_capacity2", "carriable2", "ship_capacity3", "carriable3",
			"attack", "weapon_class", "defence", "armour_kinetic", "armour_electric", "armour_gravimetric",
			"shields", "mobility", "accuracy", "effective",
			"escort_fighters", "bonus_attack", "bonus_defence", "espionage", "bomb_damage",
		},
	},

	// Example: Eisen: 2.500 Stahl: 800
	{
		Name:    formatCost,
		Pattern: `(?<resource>{RESOURCE}):\s(?<amount>{DECIMAL})`,
		Options: regexp2.Multiline,
		Fields:  []string{"resource", "amount"},
	},

	// Example: Korvetten	80%
	{
		Name:    formatEffectiveness,
		Pattern: `(?<area>{AREA})\s+(?<percent>\d+)%`,
		Options: regexp2.Multiline,
		Fields:  []string{"area", "percent"},
	},

	// Example: kleine orbitale Werft
	{
		Name:    formatYard,
		Pattern: `(?<yard_type>kleine|mittlere|gro.{1,3}e|Dreadnought)\s(?:(?:orbitale|planetare)\s)?Werft`,
		Options: regexp2.Multiline,
		Fields:  []string{"yard_type"},
	},
}
