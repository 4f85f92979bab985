// Package catalog loads the static content tables (equipment, skills and
// pals) and turns loadouts into combat profiles.
package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/rpg-arena/internal/engine/stats"
	"github.com/KirkDiggler/rpg-arena/internal/entities/arena"
	"github.com/KirkDiggler/rpg-arena/internal/entities/combat"
	"github.com/KirkDiggler/rpg-arena/internal/errors"
)

//go:embed default.yaml
var defaultContent []byte

// MaxSkills is the number of skills a loadout may carry
const MaxSkills = 4

// Pal is a companion that fights next to its owner
type Pal struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Base     combat.Attributes `yaml:"base"`
	SkillIDs []string          `yaml:"skills"`
}

// Limit bounds one base attribute of a loadout
type Limit struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultBaseLimits applies when the content file declares no base_limits.
// Attributes missing from the table cannot be set on a loadout.
func DefaultBaseLimits() map[combat.Attribute]Limit {
	return map[combat.Attribute]Limit{
		combat.AttrHP:           {Min: 1, Max: 600},
		combat.AttrAttack:       {Min: 0, Max: 60},
		combat.AttrDefense:      {Min: 0, Max: 40},
		combat.AttrSpeed:        {Min: 0, Max: 10},
		combat.AttrCritRate:     {Min: 0, Max: 0.25},
		combat.AttrCritDamage:   {Min: 0, Max: 0.5},
		combat.AttrAccuracy:     {Min: 0, Max: 0.1},
		combat.AttrEvasion:      {Min: 0, Max: 0.1},
		combat.AttrCooldownRate: {Min: 0, Max: 0.2},
	}
}

type document struct {
	BaseLimits map[combat.Attribute]Limit `yaml:"base_limits"`
	Equipment  []combat.Equipment         `yaml:"equipment"`
	Skills     []combat.Skill             `yaml:"skills"`
	Pals       []Pal                      `yaml:"pals"`
}

// Catalog is immutable after load and safe for concurrent reads
type Catalog struct {
	limits    map[combat.Attribute]Limit
	equipment map[string]combat.Equipment
	skills    map[string]combat.Skill
	pals      map[string]Pal
}

// Fighter is a loadout expanded into a profile and its usable skills
type Fighter struct {
	Profile *stats.Profile
	Skills  []combat.Skill
}

// Parse builds a catalog from YAML
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse catalog")
	}

	c := &Catalog{
		limits:    doc.BaseLimits,
		equipment: make(map[string]combat.Equipment, len(doc.Equipment)),
		skills:    make(map[string]combat.Skill, len(doc.Skills)),
		pals:      make(map[string]Pal, len(doc.Pals)),
	}

	vb := errors.NewValidationBuilder()
	if len(c.limits) == 0 {
		c.limits = DefaultBaseLimits()
	}
	for attr, lim := range c.limits {
		field := fmt.Sprintf("base_limits.%s", attr)
		switch {
		case math.IsNaN(lim.Min) || math.IsInf(lim.Min, 0) || math.IsNaN(lim.Max) || math.IsInf(lim.Max, 0):
			vb.InvalidField(field, "bounds must be finite")
		case lim.Min > lim.Max:
			vb.InvalidField(field, "min is above max")
		}
	}
	if lim, ok := c.limits[combat.AttrHP]; !ok || lim.Max <= 0 {
		vb.Field("base_limits.hp", "must allow positive hp")
	}
	for i, eq := range doc.Equipment {
		field := fmt.Sprintf("equipment[%d]", i)
		switch {
		case eq.ID == "":
			vb.RequiredField(field + ".id")
		case eq.Slot == "":
			vb.RequiredField(field + ".slot")
		case !eq.Bonuses.Finite():
			vb.InvalidField(field+".bonuses", "values must be finite")
		case hasKey(c.equipment, eq.ID):
			vb.Fieldf(field+".id", "duplicate id %s", eq.ID)
		default:
			c.equipment[eq.ID] = eq
		}
	}
	for i, sk := range doc.Skills {
		field := fmt.Sprintf("skills[%d]", i)
		switch {
		case sk.ID == "":
			vb.RequiredField(field + ".id")
		case sk.Kind != combat.SkillDamage && sk.Kind != combat.SkillHeal && sk.Kind != combat.SkillBuff:
			vb.InvalidField(field+".kind", string(sk.Kind))
		case sk.CooldownSeconds < 0 || sk.Range < 0 || sk.Power < 0:
			vb.InvalidField(field, "power, range and cooldown must not be negative")
		case hasKey(c.skills, sk.ID):
			vb.Fieldf(field+".id", "duplicate id %s", sk.ID)
		default:
			c.skills[sk.ID] = sk
		}
	}
	for i, pal := range doc.Pals {
		field := fmt.Sprintf("pals[%d]", i)
		switch {
		case pal.ID == "":
			vb.RequiredField(field + ".id")
		case hasKey(c.pals, pal.ID):
			vb.Fieldf(field+".id", "duplicate id %s", pal.ID)
		default:
			c.pals[pal.ID] = pal
		}
	}
	for _, pal := range c.pals {
		for _, id := range pal.SkillIDs {
			if !hasKey(c.skills, id) {
				vb.Fieldf("pals."+pal.ID, "unknown skill %s", id)
			}
		}
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	return c, nil
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}

// Load reads a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}
	return Parse(data)
}

// Default returns the built-in content tables
func Default() *Catalog {
	c, err := Parse(defaultContent)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded content is invalid: %v", err))
	}
	return c
}

// Equipment looks up an item by id
func (c *Catalog) Equipment(id string) (combat.Equipment, bool) {
	eq, ok := c.equipment[id]
	return eq, ok
}

// Skill looks up a skill by id
func (c *Catalog) Skill(id string) (combat.Skill, bool) {
	sk, ok := c.skills[id]
	return sk, ok
}

// Pal looks up a pal by id
func (c *Catalog) Pal(id string) (Pal, bool) {
	p, ok := c.pals[id]
	return p, ok
}

// SkillIDs lists every skill id in sorted order
func (c *Catalog) SkillIDs() []string {
	ids := make([]string, 0, len(c.skills))
	for id := range c.skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BaseLimit returns the allowed range for a base attribute
func (c *Catalog) BaseLimit(attr combat.Attribute) (Limit, bool) {
	lim, ok := c.limits[attr]
	return lim, ok
}

// ValidateLoadout checks that base attributes are within the catalog's
// limits, every id exists, slots are not doubled and the skill count is
// within MaxSkills.
func (c *Catalog) ValidateLoadout(l arena.Loadout) error {
	vb := errors.NewValidationBuilder()

	if !l.Base.Finite() {
		vb.InvalidField("base", "values must be finite")
	}
	if l.Base[combat.AttrHP] <= 0 {
		vb.Field("base.hp", "must be positive")
	}
	for _, attr := range l.Base.Keys() {
		field := "base." + string(attr)
		lim, ok := c.limits[attr]
		if !ok {
			vb.Field(field, "cannot be set on a loadout")
			continue
		}
		if v := l.Base[attr]; v < lim.Min || v > lim.Max {
			vb.Fieldf(field, "must be between %g and %g", lim.Min, lim.Max)
		}
	}

	slots := make(map[combat.Slot]string)
	for _, id := range l.EquipmentIDs {
		eq, ok := c.equipment[id]
		if !ok {
			vb.Fieldf("equipment_ids", "unknown equipment %s", id)
			continue
		}
		if other, taken := slots[eq.Slot]; taken {
			vb.Fieldf("equipment_ids", "%s and %s both use slot %s", other, id, eq.Slot)
			continue
		}
		slots[eq.Slot] = id
	}

	if len(l.SkillIDs) > MaxSkills {
		vb.Fieldf("skill_ids", "at most %d skills allowed", MaxSkills)
	}
	seen := make(map[string]bool)
	for _, id := range l.SkillIDs {
		if !hasKey(c.skills, id) {
			vb.Fieldf("skill_ids", "unknown skill %s", id)
		}
		if seen[id] {
			vb.Fieldf("skill_ids", "duplicate skill %s", id)
		}
		seen[id] = true
	}

	if l.PalID != "" && !hasKey(c.pals, l.PalID) {
		vb.Fieldf("pal_id", "unknown pal %s", l.PalID)
	}

	return vb.Build()
}

// Fighter expands a loadout into a fresh profile. The loadout must already
// be valid.
func (c *Catalog) Fighter(entityID string, l arena.Loadout) (*Fighter, error) {
	if err := c.ValidateLoadout(l); err != nil {
		return nil, err
	}

	p := stats.NewProfile(entityID, l.Base)
	for _, id := range l.EquipmentIDs {
		p.Equip(c.equipment[id])
	}

	skills := make([]combat.Skill, 0, len(l.SkillIDs))
	for _, id := range l.SkillIDs {
		skills = append(skills, c.skills[id])
	}
	return &Fighter{Profile: p, Skills: skills}, nil
}

// PalFighter builds the companion fighter for palID
func (c *Catalog) PalFighter(entityID, palID string) (*Fighter, error) {
	pal, ok := c.pals[palID]
	if !ok {
		return nil, errors.InvalidArgumentf("unknown pal %s", palID)
	}

	skills := make([]combat.Skill, 0, len(pal.SkillIDs))
	for _, id := range pal.SkillIDs {
		skills = append(skills, c.skills[id])
	}
	return &Fighter{Profile: stats.NewProfile(entityID, pal.Base), Skills: skills}, nil
}
