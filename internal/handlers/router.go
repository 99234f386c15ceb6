package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jwebster45206/saga-engine/pkg/turn"
)

// NewRouter wires every route. subscriber may be nil, in which case the
// event stream route is not mounted.
func NewRouter(manager *turn.Manager, subscriber Subscriber, logger *slog.Logger) http.Handler {
	worlds := NewWorldsHandler(manager, logger)
	play := NewPlayHandler(manager, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/health", NewHealthHandler(manager.Library(), logger))

	r.Route("/v1/worlds", func(r chi.Router) {
		r.Get("/", worlds.List)
		r.Post("/", worlds.Create)

		r.Route("/{worldID}", func(r chi.Router) {
			r.Get("/", worlds.Get)
			r.Delete("/", worlds.Delete)
			if subscriber != nil {
				r.Method(http.MethodGet, "/events", NewEventsHandler(subscriber, logger))
			}

			r.Post("/characters", worlds.CreateCharacter)
			r.Route("/characters/{characterID}", func(r chi.Router) {
				r.Get("/", worlds.GetCharacter)
				r.Delete("/", worlds.DeleteCharacter)
				r.Post("/actions", play.Action)
				r.Post("/equip", play.Equip)
				r.Post("/unequip", play.Unequip)
				r.Post("/buy", play.Buy)
				r.Post("/sell", play.Sell)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusNotFound, ErrorResponse{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})
	return r
}
