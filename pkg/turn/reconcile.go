package turn

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// reconcile merges a validated response into w, the latest committed world
// with this character's staged record in place. It runs inside a library
// update and never fails: every step only appends or replaces.
func (s *Session) reconcile(w *world.World, resp *narrator.SceneResponse) *Outcome {
	sc := w.Character(s.characterID)
	turn := sc.TurnCount
	out := &Outcome{
		Narrative:  resp.Narrative,
		SkillCheck: resp.SkillCheck,
		TurnCount:  turn,
	}

	// the optimistic action entry is part of this turn's entries
	if n := len(sc.StoryHistory); n > 0 {
		out.Entries = append(out.Entries, sc.StoryHistory[n-1])
	}

	// 1-2. dice roll then narrative
	if resp.SkillCheck != nil {
		e := s.entry(world.EntryDiceRoll, describeSkillCheck(&sc.Character, resp.SkillCheck), turn)
		sc.StoryHistory = append(sc.StoryHistory, e)
		out.Entries = append(out.Entries, e)
	}
	e := s.entry(world.EntryNarrative, resp.Narrative, turn)
	sc.StoryHistory = append(sc.StoryHistory, e)
	out.Entries = append(out.Entries, e)

	// 3. the acting character
	sc.Character = s.reidentify(sc.Character, *resp.UpdatedCharacter, true)

	// 4. party, matched by exact name; absent companions have left. Each
	// previous member is claimed at most once.
	var party []actor.Character
	claimed := make(map[string]bool, len(sc.Party))
	for _, companion := range resp.UpdatedParty {
		prev, found := findByName(sc.Party, companion.Name, claimed)
		if found {
			claimed[prev.ID] = true
		} else {
			prev = actor.Character{ID: s.opts.IDs.NewID()}
		}
		party = append(party, s.reidentify(prev, companion, found))
	}
	sc.Party = party

	// 5. memory is append-only
	if resp.MemorySummary != "" {
		w.LongTermMemory = append(w.LongTermMemory, resp.MemorySummary)
	}

	// 6. quests, matched by case-folded title
	for _, qu := range resp.QuestUpdates {
		if n, ok := s.mergeQuest(w, qu); ok {
			out.Notifications = append(out.Notifications, n)
		}
	}

	// 7. events are always new
	for _, ev := range resp.WorldEventUpdates {
		w.WorldEvents = append(w.WorldEvents, world.WorldEvent{
			ID:          s.opts.IDs.NewID(),
			Turn:        turn,
			Title:       ev.Title,
			Description: ev.Description,
			Type:        ev.Type,
		})
	}

	// 8. scene is replaced verbatim
	sc.Scene = *resp.UpdatedScene

	if resp.MarketplaceUpdate != nil {
		s.mergeMarketplace(w, resp.MarketplaceUpdate)
	}

	// the pending log was delivered with this turn's request
	sc.TransactionLog = nil
	sc.LastPlayed = s.opts.Clock()

	// 10. death
	if sc.Character.IsDead() {
		out.Died = true
		out.Notifications = append(out.Notifications, s.notification(KindCharacterDied,
			fmt.Sprintf("%s has died", sc.Character.Name), map[string]any{"turn": turn}))
	}
	return out
}

// reidentify builds the stored version of a character from a response
// payload. The previous id is kept and item ids are re-derived by name.
// When keepFlavor is set, race, class and backstory fixed at creation win
// over whatever the narrator returned.
func (s *Session) reidentify(prev, next actor.Character, keepFlavor bool) actor.Character {
	c := next.Clone()
	c.ID = prev.ID
	if keepFlavor {
		c.Race = firstNonEmpty(prev.Race, c.Race)
		c.Class = firstNonEmpty(prev.Class, c.Class)
		c.Backstory = firstNonEmpty(prev.Backstory, c.Backstory)
		c.Pronouns = firstNonEmpty(prev.Pronouns, c.Pronouns)
	}
	if c.BaseStats == (actor.Stats{}) {
		c.BaseStats = prev.BaseStats
	}

	known := knownItems(prev)
	for i := range c.Inventory {
		c.Inventory[i].ID = s.itemID(known, c.Inventory[i].Name)
	}
	// two names that fold alike now share an id
	c.Inventory = actor.MergeStacks(c.Inventory)
	for _, it := range c.Equipment {
		it.ID = s.itemID(known, it.Name)
	}
	for i := range c.Residences {
		c.Residences[i].ID = residenceID(prev.Residences, c.Residences[i].Name)
		if c.Residences[i].ID == "" {
			c.Residences[i].ID = s.opts.IDs.NewID()
		}
	}
	c.Recompute()
	return c
}

func (s *Session) itemID(known map[string]string, name string) string {
	if id, ok := known[world.FoldName(name)]; ok {
		return id
	}
	id := s.opts.IDs.NewID()
	known[world.FoldName(name)] = id
	return id
}

// knownItems maps folded item names to the ids the character already uses
func knownItems(c actor.Character) map[string]string {
	known := make(map[string]string)
	for _, st := range c.Inventory {
		if st.ID != "" {
			known[world.FoldName(st.Name)] = st.ID
		}
	}
	for _, it := range c.Equipment {
		if it != nil && it.ID != "" {
			known[world.FoldName(it.Name)] = it.ID
		}
	}
	return known
}

func residenceID(prev []actor.Residence, name string) string {
	for _, r := range prev {
		if world.SameName(r.Name, name) {
			return r.ID
		}
	}
	return ""
}

func findByName(party []actor.Character, name string, claimed map[string]bool) (actor.Character, bool) {
	for _, p := range party {
		if p.Name == name && !claimed[p.ID] {
			return p, true
		}
	}
	return actor.Character{}, false
}

// mergeQuest applies one quest update and returns the notification it
// produced, if any
func (s *Session) mergeQuest(w *world.World, qu narrator.QuestUpdate) (Notification, bool) {
	i := w.QuestIndex(qu.Title)
	if i < 0 {
		q := world.Quest{
			ID:          s.opts.IDs.NewID(),
			Title:       qu.Title,
			Description: qu.Description,
			Status:      qu.Status,
		}
		w.Quests = append(w.Quests, q)
		return s.notification(KindQuestNew, "New quest: "+q.Title, map[string]any{"quest_id": q.ID}), true
	}

	q := &w.Quests[i]
	if qu.Description != "" {
		q.Description = qu.Description
	}
	prev := q.Status
	q.Status = qu.Status
	data := map[string]any{"quest_id": q.ID, "from": string(prev), "to": string(q.Status)}
	switch {
	case prev == q.Status:
		return Notification{}, false
	case prev == world.QuestActive && q.Status == world.QuestCompleted:
		return s.notification(KindQuestCompleted, "Quest completed: "+q.Title, data), true
	default:
		return s.notification(KindQuestUpdated, "Quest updated: "+q.Title, data), true
	}
}

// mergeMarketplace matches shops and their stock by name so existing ids
// survive; unmatched shops and items get fresh ids.
func (s *Session) mergeMarketplace(w *world.World, update *world.Marketplace) {
	for _, incoming := range update.Shops {
		var existing *world.Shop
		for i := range w.Marketplace.Shops {
			if world.SameName(w.Marketplace.Shops[i].Name, incoming.Name) {
				existing = &w.Marketplace.Shops[i]
				break
			}
		}
		if existing == nil {
			shop := world.Shop{ID: s.opts.IDs.NewID(), Name: incoming.Name, Description: incoming.Description}
			shop.Inventory = s.stampStock(nil, incoming.Inventory)
			w.Marketplace.Shops = append(w.Marketplace.Shops, shop)
			continue
		}
		if incoming.Description != "" {
			existing.Description = incoming.Description
		}
		existing.Inventory = s.stampStock(existing.Inventory, incoming.Inventory)
	}
}

func (s *Session) stampStock(prev, next []actor.InventoryItem) []actor.InventoryItem {
	known := make(map[string]string, len(prev))
	for _, st := range prev {
		known[world.FoldName(st.Name)] = st.ID
	}
	out := make([]actor.InventoryItem, 0, len(next))
	for _, st := range next {
		st.Item = st.Item.Clone()
		st.ID = s.itemID(known, st.Name)
		out = append(out, st)
	}
	return actor.MergeStacks(out)
}

// describeSkillCheck renders a roll for the story log, annotated with the
// ability modifier the character's derived stats give.
func describeSkillCheck(c *actor.Character, sk *narrator.SkillCheck) string {
	var sb strings.Builder
	name := firstNonEmpty(sk.Skill, sk.Attribute, "Skill")
	sb.WriteString(name + " check")

	if attr := strings.ToLower(strings.TrimSpace(sk.Attribute)); attr != "" {
		if a, err := c.D20(); err == nil {
			if score, ok := a.Attribute(attr); ok {
				sb.WriteString(fmt.Sprintf(" (%s %+d)", attr, actor.AbilityModifier(score)))
			}
		}
	}
	sb.WriteString(fmt.Sprintf(": rolled %d", sk.Roll))
	if sk.Difficulty > 0 {
		sb.WriteString(fmt.Sprintf(" vs DC %d", sk.Difficulty))
	}
	if sk.Success {
		sb.WriteString(", success")
	} else {
		sb.WriteString(", failure")
	}
	return sb.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
