// Package infoschiff parses the ship info screen.
package infoschiff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"iw_parser/internal/assemble"
	"iw_parser/internal/locale"
	"iw_parser/internal/patterns"
	"iw_parser/internal/registry"
	"iw_parser/internal/screen"
	"iw_parser/internal/vocab"
)

// ID identifies the layout.
const ID = "de_info_schiff"

const noMatchReason = "Unable to match the de_info_schiff pattern."

// Cost is one resource needed to build the ship.
type Cost struct {
	Resource string `json:"resource"`
	Amount   int64  `json:"amount"`
}

// Effectiveness is the combat effectiveness against one area.
type Effectiveness struct {
	Area    string `json:"area"`
	Percent int64  `json:"percent"`
}

// Result describes one ship type. Optional figures are nil when the screen
// does not show them.
type Result struct {
	Name           string   `json:"name"`
	ProductionTime int64    `json:"production_time"`
	Researches     []string `json:"researches,omitempty"`
	AreaNames      []string `json:"area_names,omitempty"`
	Upgrade        string   `json:"upgrade,omitempty"`
	YardTypes      []string `json:"yard_types,omitempty"`
	Actions        []string `json:"actions,omitempty"`
	Costs          []Cost   `json:"costs,omitempty"`

	SpeedSol          int64 `json:"speed_sol"`
	SpeedGal          int64 `json:"speed_gal"`
	CanLeaveGalaxy    bool  `json:"can_leave_galaxy"`
	ConsumptionChem   int64 `json:"consumption_chem"`
	ConsumptionEnergy int64 `json:"consumption_energy"`

	CanBeTransported   bool     `json:"can_be_transported"`
	CarriedBy          []string `json:"carried_by,omitempty"`
	ParkingLot         *int64   `json:"parking_lot,omitempty"`
	IsTransporter      bool     `json:"is_transporter"`
	Capacity1          *int64   `json:"capacity1,omitempty"`
	Capacity2          *int64   `json:"capacity2,omitempty"`
	CapacityPopulation *int64   `json:"capacity_population,omitempty"`
	IsCarrier          bool     `json:"is_carrier"`
	ShipCapacity1      *int64   `json:"ship_capacity1,omitempty"`
	ShipCapacity2      *int64   `json:"ship_capacity2,omitempty"`
	ShipCapacity3      *int64   `json:"ship_capacity3,omitempty"`
	Carriable1         []string `json:"carriable1,omitempty"`
	Carriable2         []string `json:"carriable2,omitempty"`
	Carriable3         []string `json:"carriable3,omitempty"`

	Attack            int64  `json:"attack"`
	WeaponClass       string `json:"weapon_class"`
	Defence           int64  `json:"defence"`
	ArmourKinetic     int64  `json:"armour_kinetic"`
	ArmourElectric    int64  `json:"armour_electric"`
	ArmourGravimetric int64  `json:"armour_gravimetric"`
	Shields           int64  `json:"shields"`
	Mobility          int64  `json:"mobility"`
	Accuracy          int64  `json:"accuracy"`

	Effectiveness []Effectiveness `json:"effectiveness,omitempty"`

	EscortFighters *int64   `json:"escort_fighters,omitempty"`
	BonusAttack    *float64 `json:"bonus_attack,omitempty"`
	BonusDefence   *float64 `json:"bonus_defence,omitempty"`
	HasEspionage   bool     `json:"has_espionage"`
	BombDamage     *int64   `json:"bomb_damage,omitempty"`
}

func (r *Result) Type() string { return ID }

// Parser parses the ship info screen.
type Parser struct {
	desc     *screen.Descriptor
	compiler *patterns.Compiler
	loc      *locale.Locale
}

func init() {
	registry.Register(ID, func(lib *patterns.Library) (registry.Parser, error) {
		return New(lib)
	})
}

// New compiles the parser for lib.
func New(lib *patterns.Library) (*Parser, error) {
	desc, err := screen.NewDescriptor(screen.DescriptorConfig{
		ID:              ID,
		CanParse:        `Schiffinfo\s+Schiffinfo|Schiffinfo.+Daten.+Kampfdaten.+Besonderheiten`,
		CanParseOptions: regexp2.Singleline,
		Begin:           `Schiffinfo:`,
		End:             `Besonderheiten`,
		Priority:        20,
	}, lib.MatchTimeout())
	if err != nil {
		return nil, err
	}
	c := patterns.NewCompiler(lib, Formats, nil)
	if err := c.Compile(); err != nil {
		return nil, fmt.Errorf("%s: %w", ID, err)
	}
	return &Parser{desc: desc, compiler: c, loc: lib.Locale()}, nil
}

func (p *Parser) Descriptor() *screen.Descriptor { return p.desc }

func (p *Parser) Parse(text string) *screen.Outcome {
	text = p.loc.Normalize(text)
	stripped, err := p.desc.Strip(text)
	if err != nil {
		return screen.Failed(ID, err, text)
	}

	m, err := p.compiler.ParseFormat(formatShip, stripped)
	if err != nil {
		return screen.Failed(ID, err, stripped)
	}
	if m == nil {
		return screen.NoMatch(ID, noMatchReason, stripped)
	}

	res, diags, err := p.assemble(m.Captures)
	if err != nil {
		return screen.Failed(ID, err, stripped)
	}
	return screen.Succeeded(ID, res, diags)
}

// ParseWithTrace traces the screen pattern. The secondary formats run on
// sub-captures only and are left out.
func (p *Parser) ParseWithTrace(text string) *registry.TraceResult {
	tr := registry.TraceFormats(p.desc, p.compiler, p.loc.Normalize(text))
	if len(tr.Formats) > 0 {
		tr.Formats = tr.Formats[:1]
		tr.Matched = tr.Formats[0].Matched
	}
	return tr
}

// fields converts captures, remembering the first fatal error and any
// field-local diagnostics.
type fields struct {
	loc   *locale.Locale
	c     patterns.Captures
	err   error
	diags []error
}

func (f *fields) required(name string) int64 {
	if f.err != nil {
		return 0
	}
	v, err := f.loc.ToInteger(f.c.Get(name))
	if err != nil {
		f.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (f *fields) optional(name string) *int64 {
	if !f.c.Present(name) {
		return nil
	}
	v, err := f.loc.ToInteger(f.c.Get(name))
	if err != nil {
		f.diags = append(f.diags, fmt.Errorf("%s: %w", name, err))
		return nil
	}
	return &v
}

func (f *fields) optionalFloat(name string) *float64 {
	if !f.c.Present(name) {
		return nil
	}
	v, err := f.loc.ToFloat(f.c.Get(name))
	if err != nil {
		f.diags = append(f.diags, fmt.Errorf("%s: %w", name, err))
		return nil
	}
	return &v
}

func (f *fields) lines(name string) []string {
	var out []string
	for _, l := range strings.Split(f.c.Get(name), "\n") {
		if s := f.loc.ToString(l); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var errNoCosts = errors.New("no resource amount recognised")

func (p *Parser) assemble(c patterns.Captures) (*Result, []error, error) {
	f := &fields{loc: p.loc, c: c}
	res := &Result{
		Name:    p.loc.ToString(c.Get("name")),
		Upgrade: p.loc.ToString(c.Get("upgrade")),
	}

	secs, err := p.loc.ToDurationSeconds(c.Get("duration"))
	if err != nil {
		return nil, nil, fmt.Errorf("duration: %w", err)
	}
	res.ProductionTime = secs

	res.Researches = p.loc.ToBracketList(c.Get("researches"))
	if len(res.Researches) > 0 {
		for _, area := range p.loc.ToBracketList(res.Researches[0]) {
			if canonical, ok := vocab.Areas.Lookup(area); ok {
				area = canonical
			}
			res.AreaNames = append(res.AreaNames, area)
		}
	}

	if actions := strings.TrimSpace(c.Get("actions")); actions != "" {
		for _, a := range strings.FieldsFunc(actions, func(r rune) bool { return r == '\n' }) {
			res.Actions = append(res.Actions, p.loc.ToString(a))
		}
	}

	res.SpeedSol = f.required("speed_sol")
	res.SpeedGal = f.required("speed_gal")
	res.CanLeaveGalaxy = c.Present("leave_galaxy")
	res.ConsumptionChem = f.required("consumption_chem")
	res.ConsumptionEnergy = f.required("consumption_energy")

	res.CanBeTransported = c.Present("transportable")
	res.CarriedBy = f.lines("carried_by")
	res.ParkingLot = f.optional("parking_lot")

	res.Capacity1 = f.optional("capacity1")
	res.Capacity2 = f.optional("capacity2")
	res.CapacityPopulation = f.optional("capacity_population")
	res.IsTransporter = res.Capacity1 != nil || res.Capacity2 != nil || res.CapacityPopulation != nil

	res.ShipCapacity1 = f.optional("ship_capacity1")
	res.ShipCapacity2 = f.optional("ship_capacity2")
	res.ShipCapacity3 = f.optional("ship_capacity3")
	res.Carriable1 = f.lines("carriable1")
	res.Carriable2 = f.lines("carriable2")
	res.Carriable3 = f.lines("carriable3")
	res.IsCarrier = res.ShipCapacity1 != nil || res.ShipCapacity2 != nil || res.ShipCapacity3 != nil

	res.Attack = f.required("attack")
	res.Defence = f.required("defence")
	res.ArmourKinetic = f.required("armour_kinetic")
	res.ArmourElectric = f.required("armour_electric")
	res.ArmourGravimetric = f.required("armour_gravimetric")
	res.Shields = f.required("shields")
	res.Mobility = f.required("mobility")
	res.Accuracy = f.required("accuracy")
	if f.err != nil {
		return nil, nil, f.err
	}

	wc, err := p.loc.ToEnum(c.Get("weapon_class"), vocab.WeaponClasses)
	if err != nil {
		return nil, nil, fmt.Errorf("weapon_class: %w", err)
	}
	res.WeaponClass = wc

	res.EscortFighters = f.optional("escort_fighters")
	res.BonusAttack = f.optionalFloat("bonus_attack")
	res.BonusDefence = f.optionalFloat("bonus_defence")
	res.HasEspionage = c.Present("espionage")
	res.BombDamage = f.optional("bomb_damage")

	diags := f.diags
	passes := []struct {
		format  string
		capture string
		step    func(patterns.Captures) error
	}{
		{formatCost, "costs", func(c patterns.Captures) error {
			name, err := p.loc.ToEnum(c.Get("resource"), vocab.Resources)
			if err != nil {
				return err
			}
			n, err := p.loc.ToInteger(c.Get("amount"))
			if err != nil {
				return err
			}
			res.Costs = append(res.Costs, Cost{Resource: name, Amount: n})
			return nil
		}},
		{formatEffectiveness, "effective", func(c patterns.Captures) error {
			n, err := p.loc.ToInteger(c.Get("percent"))
			if err != nil {
				return err
			}
			res.Effectiveness = append(res.Effectiveness, Effectiveness{Area: p.loc.ToString(c.Get("area")), Percent: n})
			return nil
		}},
		{formatYard, "yards", func(c patterns.Captures) error {
			res.YardTypes = append(res.YardTypes, p.loc.ToString(c.Get("yard_type")))
			return nil
		}},
	}
	for _, pass := range passes {
		sets, err := p.compiler.FindAllMatches(c.Get(pass.capture), pass.format)
		if err != nil {
			return nil, diags, err
		}
		if pass.capture == "costs" && len(sets) == 0 {
			if raw := strings.TrimSpace(c.Get("costs")); raw != "" {
				diags = append(diags, &locale.NormalizationError{Kind: "costs", Raw: raw, Err: errNoCosts})
			}
		}
		d, err := assemble.Fold(sets, func(_ int, c patterns.Captures) error { return pass.step(c) })
		diags = append(diags, d...)
		if err != nil {
			return nil, diags, err
		}
	}

	return res, diags, nil
}
