package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/ids"
	"github.com/jwebster45206/saga-engine/pkg/ledger"
	"github.com/jwebster45206/saga-engine/pkg/library"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// DefaultTimeout bounds a single narrator call
const DefaultTimeout = 90 * time.Second

// Options are the collaborators shared by every session
type Options struct {
	Narrator narrator.Narrator
	IDs      ids.Allocator
	Library  *library.Library
	Notifier Notifier
	Logger   *slog.Logger
	Timeout  time.Duration
	Clock    func() time.Time
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = ids.UUID{}
	}
	if o.Notifier == nil {
		o.Notifier = NopNotifier{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Session is the single writer for one saved character. Writes to the
// shared world go through Library.Update, so they are applied to its latest
// version.
//
// The committed snapshot is only ever replaced, never edited. A turn works on
// a staged deep copy which is merged on success and dropped on failure.
type Session struct {
	worldID     string
	characterID string
	opts        Options
	logger      *slog.Logger

	mu        sync.Mutex
	committed *world.World
	staged    *world.World // non-nil while a request is in flight
	state     State
	busy      bool
	last      world.SavedCharacter // final snapshot once the character died
}

// NewSession opens a session on a character of the given world
func NewSession(w *world.World, characterID string, opts Options) (*Session, error) {
	if opts.Narrator == nil {
		return nil, fmt.Errorf("narrator is required")
	}
	if opts.Library == nil {
		return nil, fmt.Errorf("library is required")
	}
	cp, err := w.DeepCopy()
	if err != nil {
		return nil, err
	}
	if cp.Character(characterID) == nil {
		return nil, fmt.Errorf("%w: %s", ledger.ErrCharacterNotFound, characterID)
	}
	opts = opts.withDefaults()
	return &Session{
		worldID:     cp.ID,
		characterID: characterID,
		opts:        opts,
		logger:      opts.Logger.With("world_id", cp.ID, "character_id", characterID),
		committed:   cp,
		state:       StateIdle,
	}, nil
}

// State returns the current state machine position
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns a snapshot of the session, staged while a turn is in flight
func (s *Session) View() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.committed
	if s.staged != nil {
		src = s.staged
	}
	w, err := src.DeepCopy()
	if err != nil {
		return View{}, err
	}
	v := View{
		WorldID: w.ID,
		State:   s.state,
		Busy:    s.busy,
		Quests:  w.Quests,
		Events:  w.WorldEvents,
		Memory:  w.LongTermMemory,
		Shops:   w.Marketplace.Shops,
	}
	if sc := w.Character(s.characterID); sc != nil {
		v.Character = *sc
	} else {
		v.Character = s.last
	}
	return v, nil
}

// Submit resolves one player action. Actions carrying the out-of-character
// prefix are routed to Ask.
func (s *Session) Submit(ctx context.Context, action string) (*Outcome, error) {
	if q, ok := OOCQuestion(action); ok {
		return s.Ask(ctx, q)
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, fmt.Errorf("action cannot be empty")
	}

	req, err := s.beginTurn(action)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Turn dispatched", "turn", req.TurnCount)

	resp, err := s.callScene(ctx, req)
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}
	return s.finishTurn(ctx, resp)
}

// beginTurn stages the optimistic action entry and builds the narrator request
func (s *Session) beginTurn(action string) (narrator.SceneRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return narrator.SceneRequest{}, err
	}
	staged, err := s.committed.DeepCopy()
	if err != nil {
		return narrator.SceneRequest{}, err
	}
	sc := staged.Character(s.characterID)

	history := slices.Clone(sc.StoryHistory)
	sc.TurnCount++
	sc.StoryHistory = append(sc.StoryHistory, s.entry(world.EntryAction, action, sc.TurnCount))

	s.staged = staged
	s.busy = true
	s.state = StateAwaitingNarrator

	req := narrator.SceneRequest{
		Character:           sc.Character.Clone(),
		Scene:               sc.Scene,
		History:             history,
		LongTermMemory:      slices.Clone(staged.LongTermMemory),
		Notes:               sc.Notes,
		Quests:              slices.Clone(staged.Quests),
		WorldEvents:         slices.Clone(staged.WorldEvents),
		TurnCount:           sc.TurnCount,
		Action:              action,
		PendingTransactions: slices.Clone(sc.TransactionLog),
	}
	for _, p := range sc.Party {
		req.Party = append(req.Party, p.Clone())
	}
	return req, nil
}

func (s *Session) callScene(ctx context.Context, req narrator.SceneRequest) (*narrator.SceneResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.opts.Narrator.GenerateNextScene(cctx, req)
	if err != nil {
		return nil, narratorFailure(err)
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	resp.Normalize()
	return resp, nil
}

// finishTurn reconciles the response into the latest committed world and
// persists it. Only this character's record and the turn's world deltas are
// written; whatever other writers committed meanwhile stays.
func (s *Session) finishTurn(ctx context.Context, resp *narrator.SceneResponse) (*Outcome, error) {
	s.mu.Lock()
	s.state = StateReconciling
	mine, err := s.stagedCharacter()
	s.mu.Unlock()
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	// busy stays set until the write lands so no local operation interleaves
	var (
		out  *Outcome
		last world.SavedCharacter
	)
	committed, err := s.opts.Library.Update(ctx, s.worldID, func(w *world.World) error {
		sc := w.Character(s.characterID)
		if sc == nil {
			return fmt.Errorf("%w: %s", ledger.ErrCharacterNotFound, s.characterID)
		}
		*sc = mine
		out = s.reconcile(w, resp)
		if out.Died {
			last = *w.Character(s.characterID)
			w.RemoveCharacter(s.characterID)
		}
		return nil
	})
	if committed == nil {
		s.fail(ctx, err)
		return nil, err
	}
	if err != nil {
		out.Warning = s.persistWarning(err)
		out.Notifications = append(out.Notifications, s.notification(KindPersistenceWarning, out.Warning, nil))
	}

	s.mu.Lock()
	s.committed = committed
	s.staged = nil
	s.busy = false
	if out.Died {
		s.last = last
		s.state = StateDead
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()

	if out.Died {
		s.logger.Warn("Character died", "turn", out.TurnCount)
	} else {
		s.logger.Info("Turn completed", "turn", out.TurnCount, "entries", len(out.Entries))
	}
	s.publish(ctx, out.Notifications)
	return out, nil
}

// stagedCharacter returns a private copy of this character's staged record.
// Callers hold s.mu.
func (s *Session) stagedCharacter() (world.SavedCharacter, error) {
	cp, err := s.staged.DeepCopy()
	if err != nil {
		return world.SavedCharacter{}, err
	}
	return *cp.Character(s.characterID), nil
}

// putCharacter swaps sc into the latest world, failing when the character
// was deleted while the request was in flight
func (s *Session) putCharacter(sc world.SavedCharacter) func(w *world.World) error {
	return func(w *world.World) error {
		cur := w.Character(s.characterID)
		if cur == nil {
			return fmt.Errorf("%w: %s", ledger.ErrCharacterNotFound, s.characterID)
		}
		*cur = sc
		return nil
	}
}

// fail discards the staged snapshot so the committed one stands untouched
func (s *Session) fail(ctx context.Context, err error) {
	s.mu.Lock()
	s.staged = nil
	s.state = StateFailed
	s.logger.Warn("Turn failed, rolled back", "state", s.state, "error", err)
	s.state = StateIdle
	s.busy = false
	s.mu.Unlock()

	s.publish(ctx, []Notification{s.notification(KindError, err.Error(), nil)})
}

// Ask answers an out-of-character question. It never touches turn count,
// quests, events or inventory; on failure the history is left exactly as it was.
func (s *Session) Ask(ctx context.Context, question string) (*Outcome, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	staged, err := s.committed.DeepCopy()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sc := staged.Character(s.characterID)
	req := narrator.OOCRequest{
		History:        slices.Clone(sc.StoryHistory),
		LongTermMemory: slices.Clone(staged.LongTermMemory),
		Question:       question,
	}
	query := s.entry(world.EntryOOCQuery, question, sc.TurnCount)
	sc.StoryHistory = append(sc.StoryHistory, query)
	s.staged = staged
	s.busy = true
	s.state = StateAwaitingNarrator
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	answer, err := s.opts.Narrator.AskOOCQuestion(cctx, req)
	cancel()
	if err != nil {
		err = narratorFailure(err)
	} else if strings.TrimSpace(answer) == "" {
		err = fmt.Errorf("%w: empty answer", narrator.ErrMalformedResponse)
	}
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	s.mu.Lock()
	sc = s.staged.Character(s.characterID)
	reply := s.entry(world.EntryOOCResponse, strings.TrimSpace(answer), sc.TurnCount)
	sc.StoryHistory = append(sc.StoryHistory, reply)
	sc.LastPlayed = s.opts.Clock()
	out := &Outcome{
		OOC:       true,
		Answer:    reply.Content,
		Entries:   []world.StoryEntry{query, reply},
		TurnCount: sc.TurnCount,
	}
	mine, err := s.stagedCharacter()
	s.mu.Unlock()
	if err != nil {
		s.fail(ctx, err)
		return nil, err
	}

	committed, err := s.opts.Library.Update(ctx, s.worldID, s.putCharacter(mine))
	if committed == nil {
		s.fail(ctx, err)
		return nil, err
	}
	if err != nil {
		out.Warning = s.persistWarning(err)
		out.Notifications = append(out.Notifications, s.notification(KindPersistenceWarning, out.Warning, nil))
	}

	s.mu.Lock()
	s.committed = committed
	s.staged = nil
	s.busy = false
	s.state = StateIdle
	s.mu.Unlock()

	s.publish(ctx, out.Notifications)
	return out, nil
}

// Equip moves one unit of an inventory item into its slot
func (s *Session) Equip(ctx context.Context, itemID string) (LedgerOutcome, error) {
	return s.local(ctx, KindEquip, func(w *world.World) (ledger.Result, error) {
		return ledger.Equip(w, s.characterID, itemID)
	})
}

// Unequip moves the item in slot back to the inventory
func (s *Session) Unequip(ctx context.Context, slot actor.ItemSlot) (LedgerOutcome, error) {
	return s.local(ctx, KindUnequip, func(w *world.World) (ledger.Result, error) {
		return ledger.Unequip(w, s.characterID, slot)
	})
}

// Buy purchases one unit of a shop item
func (s *Session) Buy(ctx context.Context, shopID, itemID string) (LedgerOutcome, error) {
	return s.local(ctx, KindBuy, func(w *world.World) (ledger.Result, error) {
		return ledger.Buy(w, s.characterID, shopID, itemID)
	})
}

// Sell sells one unit of an inventory item to a shop
func (s *Session) Sell(ctx context.Context, shopID, itemID string) (LedgerOutcome, error) {
	return s.local(ctx, KindSell, func(w *world.World) (ledger.Result, error) {
		return ledger.Sell(w, s.opts.IDs, s.characterID, shopID, itemID)
	})
}

// errUnchanged aborts a library update for a ledger no-op
var errUnchanged = errors.New("unchanged")

// local runs a ledger operation against the latest world under the
// single-writer lock and commits it
func (s *Session) local(ctx context.Context, kind string, op func(w *world.World) (ledger.Result, error)) (LedgerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return LedgerOutcome{}, err
	}
	var res ledger.Result
	committed, err := s.opts.Library.Update(ctx, s.worldID, func(w *world.World) error {
		r, err := op(w)
		if err != nil {
			return err
		}
		res = r
		if !r.Changed {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return LedgerOutcome{Message: res.Message}, nil
	}
	if committed == nil {
		s.logger.Debug("Ledger operation refused", "op", kind, "error", err)
		return LedgerOutcome{}, err
	}
	s.committed = committed

	out := LedgerOutcome{Changed: true, Message: res.Message}
	notes := []Notification{s.notification(kind, res.Message, nil)}
	if err != nil {
		out.Warning = s.persistWarning(err)
		notes = append(notes, s.notification(KindPersistenceWarning, out.Warning, nil))
	}
	s.logger.Info("Ledger operation applied", "op", kind, "message", res.Message)
	s.publish(ctx, notes)
	return out, nil
}

// ready refreshes the committed snapshot and checks the session can act.
// Callers hold s.mu.
func (s *Session) ready() error {
	if s.state == StateDead {
		return ErrCharacterDead
	}
	if s.busy {
		return ErrBusy
	}
	// pick up changes other sessions committed to the same world
	latest, err := s.opts.Library.World(s.worldID)
	if err != nil {
		if errors.Is(err, library.ErrWorldNotFound) {
			return err
		}
		return fmt.Errorf("failed to refresh world: %w", err)
	}
	if latest.Character(s.characterID) == nil {
		return fmt.Errorf("%w: %s", ledger.ErrCharacterNotFound, s.characterID)
	}
	s.committed = latest
	return nil
}

func (s *Session) entry(kind world.StoryEntryType, content string, turn int) world.StoryEntry {
	return world.StoryEntry{
		ID:        s.opts.IDs.NewID(),
		Type:      kind,
		Content:   content,
		Turn:      turn,
		Timestamp: s.opts.Clock(),
	}
}

func (s *Session) notification(kind, message string, data map[string]any) Notification {
	return Notification{
		Kind:        kind,
		WorldID:     s.worldID,
		CharacterID: s.characterID,
		Message:     message,
		Data:        data,
	}
}

func (s *Session) publish(ctx context.Context, notes []Notification) {
	for _, n := range notes {
		s.opts.Notifier.Notify(ctx, n)
	}
}

func (s *Session) persistWarning(err error) string {
	s.logger.Error("Failed to persist world", "error", err)
	return "progress may not be saved: " + err.Error()
}

// narratorFailure maps a backend error onto the narrator error taxonomy
func narratorFailure(err error) error {
	switch {
	case errors.Is(err, narrator.ErrMalformedResponse), errors.Is(err, narrator.ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: narrator timed out", narrator.ErrUnavailable)
	default:
		return fmt.Errorf("%w: %v", narrator.ErrUnavailable, err)
	}
}
