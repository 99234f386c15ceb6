package actor

import "strings"

// Stats holds the six core ability scores plus armor class.
// BaseStats on a Character are the unmodified scores; Stats are always
// derived via ComputeStats and never edited by hand.
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
	ArmorClass   int `json:"armor_class"`
}

// ToAttributes converts Stats to a map for d20.Actor compatibility
func (s *Stats) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// Attribute returns the ability score by name. Names are matched
// case-insensitively; unknown names report false.
func (s *Stats) Attribute(name string) (int, bool) {
	if p := s.field(name); p != nil {
		return *p, true
	}
	return 0, false
}

// addBonus adds n to the named ability score. Unknown names are ignored.
func (s *Stats) addBonus(name string, n int) {
	if p := s.field(name); p != nil {
		*p += n
	}
}

func (s *Stats) field(name string) *int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "strength":
		return &s.Strength
	case "dexterity":
		return &s.Dexterity
	case "constitution":
		return &s.Constitution
	case "intelligence":
		return &s.Intelligence
	case "wisdom":
		return &s.Wisdom
	case "charisma":
		return &s.Charisma
	}
	return nil
}

// BaseArmorClass is the armor class of an unarmored creature with a
// dexterity modifier of zero.
const BaseArmorClass = 10

// ComputeStats derives effective stats from base stats and equipped items.
//
// Accessories add their StatBonuses to the matching ability scores, then armor
// class is computed from the resulting dexterity and every equipped Armor adds
// its fixed ArmorClass. The result depends only on the inputs; callers replace
// any previously derived stats with it after each equipment change.
func ComputeStats(base Stats, equipment Equipment) Stats {
	out := base

	for _, item := range equipment {
		if item == nil || item.Kind != KindAccessory {
			continue
		}
		for name, bonus := range item.StatBonuses {
			out.addBonus(name, bonus)
		}
	}

	out.ArmorClass = BaseArmorClass + AbilityModifier(out.Dexterity)
	for _, item := range equipment {
		if item == nil || item.Kind != KindArmor {
			continue
		}
		out.ArmorClass += item.ArmorClass
	}

	return out
}

// AbilityModifier returns floor((score - 10) / 2).
func AbilityModifier(score int) int {
	return floorDiv(score-10, 2)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
