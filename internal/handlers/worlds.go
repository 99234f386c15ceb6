package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/turn"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// WorldSummary is the list view of a world
type WorldSummary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Places      []string           `json:"places,omitempty"`
	Characters  []CharacterSummary `json:"characters"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type CharacterSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Class      string    `json:"class,omitempty"`
	Level      int       `json:"level,omitempty"`
	TurnCount  int       `json:"turn_count"`
	LastPlayed time.Time `json:"last_played"`
}

func summarize(w world.World) WorldSummary {
	s := WorldSummary{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Places:      w.Places,
		Characters:  make([]CharacterSummary, 0, len(w.Characters)),
		UpdatedAt:   w.UpdatedAt,
	}
	for _, sc := range w.Characters {
		s.Characters = append(s.Characters, CharacterSummary{
			ID:         sc.Character.ID,
			Name:       sc.Character.Name,
			Class:      sc.Character.Class,
			Level:      sc.Character.Level,
			TurnCount:  sc.TurnCount,
			LastPlayed: sc.LastPlayed,
		})
	}
	return s
}

// WorldsHandler serves world and character lifecycle routes
type WorldsHandler struct {
	manager *turn.Manager
	logger  *slog.Logger
}

func NewWorldsHandler(manager *turn.Manager, logger *slog.Logger) *WorldsHandler {
	return &WorldsHandler{
		manager: manager,
		logger:  logger,
	}
}

// List handles GET /v1/worlds
func (h *WorldsHandler) List(w http.ResponseWriter, r *http.Request) {
	worlds, err := h.manager.Library().Worlds()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]WorldSummary, 0, len(worlds))
	for _, wd := range worlds {
		out = append(out, summarize(wd))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

// Create handles POST /v1/worlds
func (h *WorldsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req narrator.WorldRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Concept) == "" {
		writeError(w, h.logger, badRequest(errors.New("concept is required")))
		return
	}

	h.logger.Info("Creating world", "concept_length", len(req.Concept))
	created, err := h.manager.CreateWorld(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

// Get handles GET /v1/worlds/{worldID}
func (h *WorldsHandler) Get(w http.ResponseWriter, r *http.Request) {
	wd, err := h.manager.Library().World(chi.URLParam(r, "worldID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, wd)
}

// Delete handles DELETE /v1/worlds/{worldID}
func (h *WorldsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	worldID := chi.URLParam(r, "worldID")
	if err := h.manager.DeleteWorld(r.Context(), worldID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("World deleted", "world_id", worldID)
	w.WriteHeader(http.StatusNoContent)
}

// CreateCharacter handles POST /v1/worlds/{worldID}/characters
func (h *WorldsHandler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req narrator.CharacterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Concept) == "" {
		writeError(w, h.logger, badRequest(errors.New("concept is required")))
		return
	}

	sc, err := h.manager.CreateCharacter(r.Context(), chi.URLParam(r, "worldID"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, sc)
}

// GetCharacter handles GET /v1/worlds/{worldID}/characters/{characterID}
func (h *WorldsHandler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Session(chi.URLParam(r, "worldID"), chi.URLParam(r, "characterID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	view, err := sess.View()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

// DeleteCharacter handles DELETE /v1/worlds/{worldID}/characters/{characterID}
func (h *WorldsHandler) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	worldID, characterID := chi.URLParam(r, "worldID"), chi.URLParam(r, "characterID")
	if err := h.manager.DeleteCharacter(r.Context(), worldID, characterID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("Character deleted", "world_id", worldID, "character_id", characterID)
	w.WriteHeader(http.StatusNoContent)
}
