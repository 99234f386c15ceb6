package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func baseStats() Stats {
	return Stats{
		Strength:     14,
		Dexterity:    13,
		Constitution: 12,
		Intelligence: 10,
		Wisdom:       8,
		Charisma:     15,
	}
}

func TestStats_ToAttributes(t *testing.T) {
	stats := baseStats()
	attrs := stats.ToAttributes()

	tests := []struct {
		key      string
		expected int
	}{
		{"strength", 14},
		{"dexterity", 13},
		{"constitution", 12},
		{"intelligence", 10},
		{"wisdom", 8},
		{"charisma", 15},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := attrs[tt.key]; got != tt.expected {
				t.Errorf("ToAttributes()[%q] = %d, want %d", tt.key, got, tt.expected)
			}
		})
	}
}

func TestAbilityModifier(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{10, 0},
		{11, 0},
		{12, 1},
		{13, 1},
		{9, -1},
		{8, -1},
		{7, -2},
		{1, -5},
		{20, 5},
	}
	for _, tt := range tests {
		if got := AbilityModifier(tt.score); got != tt.want {
			t.Errorf("AbilityModifier(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestComputeStats(t *testing.T) {
	ring := &Item{ID: "ring", Name: "Ring of Might", Kind: KindAccessory, Slot: SlotAccessory, StatBonuses: map[string]int{"strength": 2}}
	mail := &Item{ID: "mail", Name: "Chain Mail", Kind: KindArmor, Slot: SlotArmor, ArmorClass: 4}

	tests := []struct {
		name      string
		equipment Equipment
		check     func(t *testing.T, got Stats)
	}{
		{
			name:      "no equipment",
			equipment: nil,
			check: func(t *testing.T, got Stats) {
				want := baseStats()
				want.ArmorClass = 11
				assert.Equal(t, want, got)
			},
		},
		{
			name:      "accessory bonus touches only its attribute",
			equipment: Equipment{SlotAccessory: ring},
			check: func(t *testing.T, got Stats) {
				want := baseStats()
				want.Strength += 2
				want.ArmorClass = 11
				assert.Equal(t, want, got)
			},
		},
		{
			name:      "armor adds fixed armor class",
			equipment: Equipment{SlotArmor: mail},
			check: func(t *testing.T, got Stats) {
				assert.Equal(t, 15, got.ArmorClass)
				assert.Equal(t, 14, got.Strength)
			},
		},
		{
			name: "unknown bonus names are skipped",
			equipment: Equipment{SlotAccessory: {
				ID: "charm", Kind: KindAccessory, Slot: SlotAccessory,
				StatBonuses: map[string]int{"luck": 5, "Wisdom": 1},
			}},
			check: func(t *testing.T, got Stats) {
				want := baseStats()
				want.Wisdom++
				want.ArmorClass = 11
				assert.Equal(t, want, got)
			},
		},
		{
			name: "dexterity bonus feeds armor class",
			equipment: Equipment{
				SlotAccessory: {ID: "gloves", Kind: KindAccessory, Slot: SlotAccessory, StatBonuses: map[string]int{"dexterity": 3}},
				SlotArmor:     mail,
			},
			check: func(t *testing.T, got Stats) {
				assert.Equal(t, 16, got.Dexterity)
				assert.Equal(t, 10+3+4, got.ArmorClass)
			},
		},
		{
			name:      "armor stat bonuses are ignored",
			equipment: Equipment{SlotArmor: {ID: "odd", Kind: KindArmor, Slot: SlotArmor, ArmorClass: 1, StatBonuses: map[string]int{"strength": 9}}},
			check: func(t *testing.T, got Stats) {
				assert.Equal(t, 14, got.Strength)
				assert.Equal(t, 12, got.ArmorClass)
			},
		},
		{
			name:      "nil slot entries contribute nothing",
			equipment: Equipment{SlotWeapon: nil},
			check: func(t *testing.T, got Stats) {
				assert.Equal(t, 11, got.ArmorClass)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ComputeStats(baseStats(), tt.equipment))
		})
	}
}

func TestComputeStats_Deterministic(t *testing.T) {
	eq := Equipment{
		SlotAccessory: {ID: "a", Kind: KindAccessory, Slot: SlotAccessory, StatBonuses: map[string]int{"strength": 2, "charisma": -1}},
		SlotArmor:     {ID: "b", Kind: KindArmor, Slot: SlotArmor, ArmorClass: 2},
	}
	first := ComputeStats(baseStats(), eq)
	second := ComputeStats(baseStats(), eq)
	assert.Equal(t, first, second)
}

func TestComputeStats_LowDexterity(t *testing.T) {
	base := baseStats()
	base.Dexterity = 7
	got := ComputeStats(base, nil)
	if got.ArmorClass != 8 {
		t.Errorf("ArmorClass = %d, want 8", got.ArmorClass)
	}
}
