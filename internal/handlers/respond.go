package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/saga-engine/pkg/ledger"
	"github.com/jwebster45206/saga-engine/pkg/library"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/turn"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// errBadRequest marks request validation failures
var errBadRequest = errors.New("bad request")

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientGold):
		return http.StatusPaymentRequired
	case errors.Is(err, library.ErrWorldNotFound),
		errors.Is(err, ledger.ErrCharacterNotFound),
		errors.Is(err, ledger.ErrShopNotFound),
		errors.Is(err, ledger.ErrOutOfStock):
		return http.StatusNotFound
	case errors.Is(err, turn.ErrBusy), errors.Is(err, turn.ErrCharacterDead):
		return http.StatusConflict
	case errors.Is(err, narrator.ErrUnavailable), errors.Is(err, narrator.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "error", err)
	} else {
		logger.Debug("Request rejected", "status", status, "error", err)
	}
	writeJSON(w, logger, status, ErrorResponse{Error: err.Error()})
}

// decode reads a JSON body into v
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest(errors.New("invalid JSON in request body"))
	}
	return nil
}

// badRequestError wraps a validation failure so statusFor reports 400
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }
func (e badRequestError) Is(target error) bool {
	return target == errBadRequest
}

func badRequest(err error) error {
	return badRequestError{err: err}
}
