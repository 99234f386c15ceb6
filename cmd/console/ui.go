package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/saga-engine/internal/events"
	"github.com/jwebster45206/saga-engine/internal/handlers"
	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/turn"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do? (ooc: to ask the narrator, /help for commands)"
	maxNotices      = 6
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	client       *apiClient
	view         *turn.View
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// notices collects notifications and command feedback, newest last
	notices []string
	// lastNarrative is what /copy puts on the clipboard
	lastNarrative string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type turnResultMsg struct {
	outcome *turn.Outcome
	err     error
}

type ledgerResultMsg struct {
	resp *handlers.LedgerResponse
	err  error
}

type viewMsg struct {
	view *turn.View
	err  error
}

type worldEventMsg struct {
	event events.Event
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	diceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")). // gold
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(client *apiClient, view *turn.View) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	m := ConsoleUI{
		client:       client,
		view:         view,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}
	m.lastNarrative = lastNarrative(view)
	return m
}

func lastNarrative(v *turn.View) string {
	if v == nil {
		return ""
	}
	history := v.Character.StoryHistory
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Type == world.EntryNarrative {
			return history[i].Content
		}
	}
	return ""
}

// renderEntry formats one story entry for the chat panel
func renderEntry(e world.StoryEntry, width int) string {
	switch e.Type {
	case world.EntryAction:
		return userStyle.Render("You: ") + wordwrap.String(e.Content, width-5)
	case world.EntryOOCQuery:
		return userStyle.Render("You (ooc): ") + wordwrap.String(e.Content, width-11)
	case world.EntryDiceRoll:
		return diceStyle.Render(wordwrap.String("🎲 "+e.Content, width))
	case world.EntryOOCResponse:
		return promptStyle.Render(wordwrap.String(AgentName+" (ooc): "+e.Content, width))
	case world.EntrySystem:
		return promptStyle.Render(wordwrap.String(e.Content, width))
	default:
		return formatNarratorResponse(e.Content, width)
	}
}

func writeMetadata(v *turn.View, notices []string) string {
	var content strings.Builder
	c := v.Character.Character

	content.WriteString(titleStyle.Render(strings.ToUpper(c.Name)) + "\n")
	content.WriteString(strings.TrimSpace(fmt.Sprintf("Level %d %s %s", c.Level, c.Race, c.Class)) + "\n\n")
	content.WriteString(fmt.Sprintf("HP:   %d/%d\n", c.Health, c.MaxHealth))
	content.WriteString(fmt.Sprintf("AC:   %d\n", c.Stats.ArmorClass))
	content.WriteString(fmt.Sprintf("Gold: %d\n", c.Gold))
	content.WriteString(fmt.Sprintf("Turn: %d\n\n", v.Character.TurnCount))

	if loc := v.Character.Scene.Location; loc != "" {
		content.WriteString("Location:\n" + loc + "\n\n")
	}

	content.WriteString("Equipped:\n")
	for _, slot := range []actor.ItemSlot{actor.SlotWeapon, actor.SlotArmor, actor.SlotAccessory} {
		name := "-"
		if it := c.Equipment[slot]; it != nil {
			name = it.Name
		}
		content.WriteString(fmt.Sprintf("• %s: %s\n", slot, name))
	}

	content.WriteString("\nInventory:\n")
	if len(c.Inventory) == 0 {
		content.WriteString("Empty\n")
	}
	for _, stack := range c.Inventory {
		content.WriteString(fmt.Sprintf("• %s x%d\n", stack.Name, stack.Quantity))
	}

	var active []string
	for _, q := range v.Quests {
		if q.Status != world.QuestCompleted {
			active = append(active, q.Title)
		}
	}
	if len(active) > 0 {
		content.WriteString("\nQuests:\n")
		for _, title := range active {
			content.WriteString("• " + title + "\n")
		}
	}

	if len(notices) > 0 {
		content.WriteString("\nRecent:\n")
		for _, n := range notices {
			content.WriteString("• " + n + "\n")
		}
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Act\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /shops: Shops\n")

	return content.String()
}

// writeChatContent builds the chat content from the view for the current viewport width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("SAGA ENGINE") + "\n\n")
	content.WriteString("Type what your character does. Start with ooc: to ask the narrator a question.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	if m.view != nil {
		for _, e := range m.view.Character.StoryHistory {
			content.WriteString(renderEntry(e, chatWidth) + "\n\n")
		}
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), chatWidth)) + "\n\n")
	}

	// If currently loading, add the progress bar
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) refreshPanels() {
	m.writeChatContent()
	if m.view != nil {
		m.metaViewport.SetContent(writeMetadata(m.view, m.notices))
	}
}

func (m *ConsoleUI) notice(s string) {
	m.notices = append(m.notices, s)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.7) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)

		m.ready = true
		m.refreshPanels()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.err = nil

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.loading = true
			m.progressTick = 0

			entryType := world.EntryAction
			if q, ok := turn.OOCQuestion(input); ok {
				entryType = world.EntryOOCQuery
				input = q
			}
			// shown until the refreshed view replaces it
			m.view.Character.StoryHistory = append(m.view.Character.StoryHistory, world.StoryEntry{
				Type:    entryType,
				Content: input,
			})
			m.writeChatContent()

			raw := input
			if entryType == world.EntryOOCQuery {
				raw = "ooc: " + input
			}
			return m, tea.Batch(m.sendAction(raw), progressTick())
		}

	case turnResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			if msg.outcome.Narrative != "" {
				m.lastNarrative = msg.outcome.Narrative
			}
			if msg.outcome.Warning != "" {
				m.notice("⚠ " + msg.outcome.Warning)
			}
			if msg.outcome.Died {
				m.notice("Your character has died.")
			}
		}
		m.writeChatContent()
		return m, m.refreshView()

	case ledgerResultMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.writeChatContent()
			return m, nil
		}
		if msg.resp.Message != "" {
			m.notice(msg.resp.Message)
		}
		if msg.resp.Warning != "" {
			m.notice("⚠ " + msg.resp.Warning)
		}
		view := msg.resp.View
		m.view = &view
		m.refreshPanels()
		return m, nil

	case viewMsg:
		if msg.err != nil {
			m.err = msg.err
		} else if msg.view != nil {
			m.view = msg.view
		}
		m.refreshPanels()

	case worldEventMsg:
		// events for other characters in the same world
		if msg.event.CharacterID != m.view.Character.ID() {
			m.notice(msg.event.Message)
			m.refreshPanels()
			return m, m.refreshView()
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	// Update components for non-mouse events
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func formatNarratorResponse(response string, width int) string {
	narratorPrefix := AgentName + ": "
	wrapped := wordwrap.String(response, width-len(narratorPrefix))
	lines := strings.Split(wrapped, "\n")
	var formattedLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			formattedLines = append(formattedLines, "")
			continue
		}
		// NPC dialogue lines look like "Bram: ..."
		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			rest := trimmed[idx+1:]
			if len(strings.Fields(speaker)) <= 2 {
				formattedLines = append(formattedLines, speakerStyle.Render(speaker+":")+rest)
				continue
			}
		}
		formattedLines = append(formattedLines, line)
	}

	return narratorStyle.Render(narratorPrefix) + strings.Join(formattedLines, "\n")
}

const helpText = `
Commands:
• /help - Show this help
• /shops - List shops and their wares
• /buy <item> - Buy an item from the shop that stocks it
• /sell <item> - Sell an item to a shop that trades in it
• /equip <item> - Equip an item from your inventory
• /unequip <weapon|armor|accessory> - Unequip a slot
• /copy - Copy the last narration to the clipboard
• Ctrl+C - Quit game

How to play:
• Type your actions and press Enter
• Start with ooc: to ask the narrator something out of character
`

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	worldID, characterID := m.view.WorldID, m.view.Character.ID()

	switch strings.ToLower(name) {
	case "/help":
		m.appendSystem(titleStyle.Render("Help:") + helpText)

	case "/shops":
		m.appendSystem(renderShops(m.view.Shops))

	case "/copy":
		if m.lastNarrative == "" {
			m.notice("Nothing to copy yet.")
		} else if err := clipboard.WriteAll(m.lastNarrative); err != nil {
			m.err = fmt.Errorf("copy failed: %w", err)
		} else {
			m.notice("Copied the last narration.")
		}
		m.refreshPanels()

	case "/buy":
		shop, item, ok := findInShops(m.view.Shops, arg)
		if !ok {
			return m.commandError(fmt.Errorf("no shop sells %q", arg))
		}
		return m.runLedger(func() (*handlers.LedgerResponse, error) {
			return m.client.buy(worldID, characterID, shop.ID, item.ID)
		})

	case "/sell":
		item, ok := findStack(m.view.Character.Character.Inventory, arg)
		if !ok {
			return m.commandError(fmt.Errorf("you carry no %q", arg))
		}
		// prefer a shop that already trades in the item
		shop, _, stocked := findInShops(m.view.Shops, item.Name)
		if !stocked {
			shop = firstShop(m.view.Shops)
		}
		if shop == nil {
			return m.commandError(fmt.Errorf("there is no shop in this world"))
		}
		return m.runLedger(func() (*handlers.LedgerResponse, error) {
			return m.client.sell(worldID, characterID, shop.ID, item.ID)
		})

	case "/equip":
		item, ok := findStack(m.view.Character.Character.Inventory, arg)
		if !ok {
			return m.commandError(fmt.Errorf("you carry no %q", arg))
		}
		return m.runLedger(func() (*handlers.LedgerResponse, error) {
			return m.client.equip(worldID, characterID, item.ID)
		})

	case "/unequip":
		slot := actor.ItemSlot(strings.ToLower(arg))
		if !slot.IsValid() {
			return m.commandError(fmt.Errorf("unknown slot %q", arg))
		}
		return m.runLedger(func() (*handlers.LedgerResponse, error) {
			return m.client.unequip(worldID, characterID, slot)
		})

	default:
		return m.commandError(fmt.Errorf("unknown command %s, try /help", name))
	}

	return m, nil
}

func (m *ConsoleUI) appendSystem(text string) {
	m.chatViewport.SetContent(m.chatViewport.View() + "\n" + text + "\n")
	m.chatViewport.GotoBottom()
}

func (m ConsoleUI) commandError(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.writeChatContent()
	return m, nil
}

func (m ConsoleUI) runLedger(op func() (*handlers.LedgerResponse, error)) (tea.Model, tea.Cmd) {
	m.loading = true
	return m, func() tea.Msg {
		resp, err := op()
		return ledgerResultMsg{resp: resp, err: err}
	}
}

func renderShops(shops []world.Shop) string {
	if len(shops) == 0 {
		return promptStyle.Render("There are no shops in this world.")
	}
	var b strings.Builder
	for _, s := range shops {
		b.WriteString(titleStyle.Render(s.Name) + "\n")
		if len(s.Inventory) == 0 {
			b.WriteString("  sold out\n")
		}
		for _, st := range s.Inventory {
			b.WriteString(fmt.Sprintf("  • %s - %d gold (x%d)\n", st.Name, st.Value, st.Quantity))
		}
	}
	return b.String()
}

func findInShops(shops []world.Shop, name string) (*world.Shop, *actor.InventoryItem, bool) {
	for i := range shops {
		if j := shops[i].StockIndexByName(name); j >= 0 {
			return &shops[i], &shops[i].Inventory[j], true
		}
	}
	return nil, nil, false
}

func findStack(inv []actor.InventoryItem, name string) (*actor.InventoryItem, bool) {
	for i := range inv {
		if world.SameName(inv[i].Name, name) {
			return &inv[i], true
		}
	}
	return nil, false
}

func firstShop(shops []world.Shop) *world.Shop {
	if len(shops) == 0 {
		return nil
	}
	return &shops[0]
}

func (m ConsoleUI) sendAction(action string) tea.Cmd {
	worldID, characterID := m.view.WorldID, m.view.Character.ID()
	return func() tea.Msg {
		out, err := m.client.act(worldID, characterID, action)
		return turnResultMsg{outcome: out, err: err}
	}
}

func (m ConsoleUI) refreshView() tea.Cmd {
	worldID, characterID := m.view.WorldID, m.view.Character.ID()
	return func() tea.Msg {
		v, err := m.client.view(worldID, characterID)
		return viewMsg{view: v, err: err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved after every turn.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	status := ""
	if m.loading {
		status = loadingStyle.Render("The narrator is thinking...")
	}

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			status,
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
