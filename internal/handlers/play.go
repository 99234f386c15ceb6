package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/saga-engine/internal/logger"
	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/turn"
)

type EquipRequest struct {
	ItemID string `json:"item_id"`
}

type UnequipRequest struct {
	Slot actor.ItemSlot `json:"slot"`
}

type TradeRequest struct {
	ShopID string `json:"shop_id"`
	ItemID string `json:"item_id"`
}

// LedgerResponse is returned by inventory and marketplace routes
type LedgerResponse struct {
	turn.LedgerOutcome
	View turn.View `json:"view"`
}

// PlayHandler serves the in-game routes of a character
type PlayHandler struct {
	manager *turn.Manager
	logger  *slog.Logger
}

func NewPlayHandler(manager *turn.Manager, logger *slog.Logger) *PlayHandler {
	return &PlayHandler{
		manager: manager,
		logger:  logger,
	}
}

func (h *PlayHandler) session(r *http.Request) (*turn.Session, *slog.Logger, error) {
	worldID, characterID := chi.URLParam(r, "worldID"), chi.URLParam(r, "characterID")
	log := logger.WithWorld(h.logger, worldID, characterID)
	s, err := h.manager.Session(worldID, characterID)
	return s, log, err
}

// Action handles POST .../actions
func (h *PlayHandler) Action(w http.ResponseWriter, r *http.Request) {
	sess, log, err := h.session(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req chat.ActionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, log, badRequest(err))
		return
	}

	out, err := sess.Submit(r.Context(), req.Action)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, out)
}

// Equip handles POST .../equip
func (h *PlayHandler) Equip(w http.ResponseWriter, r *http.Request) {
	var req EquipRequest
	h.ledger(w, r, &req, func(ctx context.Context, s *turn.Session) (turn.LedgerOutcome, error) {
		if strings.TrimSpace(req.ItemID) == "" {
			return turn.LedgerOutcome{}, badRequest(errors.New("item_id is required"))
		}
		return s.Equip(ctx, req.ItemID)
	})
}

// Unequip handles POST .../unequip
func (h *PlayHandler) Unequip(w http.ResponseWriter, r *http.Request) {
	var req UnequipRequest
	h.ledger(w, r, &req, func(ctx context.Context, s *turn.Session) (turn.LedgerOutcome, error) {
		if !req.Slot.IsValid() {
			return turn.LedgerOutcome{}, badRequest(fmt.Errorf("unknown slot %q", req.Slot))
		}
		return s.Unequip(ctx, req.Slot)
	})
}

// Buy handles POST .../buy
func (h *PlayHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	h.ledger(w, r, &req, func(ctx context.Context, s *turn.Session) (turn.LedgerOutcome, error) {
		if err := req.validate(); err != nil {
			return turn.LedgerOutcome{}, err
		}
		return s.Buy(ctx, req.ShopID, req.ItemID)
	})
}

// Sell handles POST .../sell
func (h *PlayHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	h.ledger(w, r, &req, func(ctx context.Context, s *turn.Session) (turn.LedgerOutcome, error) {
		if err := req.validate(); err != nil {
			return turn.LedgerOutcome{}, err
		}
		return s.Sell(ctx, req.ShopID, req.ItemID)
	})
}

func (t TradeRequest) validate() error {
	if strings.TrimSpace(t.ShopID) == "" || strings.TrimSpace(t.ItemID) == "" {
		return badRequest(errors.New("shop_id and item_id are required"))
	}
	return nil
}

// ledger decodes body, runs op and responds with the outcome and a fresh view
func (h *PlayHandler) ledger(w http.ResponseWriter, r *http.Request, body any, op func(context.Context, *turn.Session) (turn.LedgerOutcome, error)) {
	sess, log, err := h.session(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := decode(r, body); err != nil {
		writeError(w, log, err)
		return
	}
	out, err := op(r.Context(), sess)
	if err != nil {
		writeError(w, log, err)
		return
	}
	view, err := sess.View()
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, LedgerResponse{LedgerOutcome: out, View: view})
}
