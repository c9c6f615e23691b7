package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/blink"
	"github.com/brojonat/blinks/service/db"
	"github.com/brojonat/blinks/service/events"
	"github.com/brojonat/blinks/service/metrics"
	"github.com/go-chi/chi/v5"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB

	msgSessionNotFound = "Session not found"
	msgLoginRequired   = "You need to be logged in"
	msgDatabaseError   = "Database operation error"
)

// errorResponse is the body of every non-Action error.
type errorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// handleCreateBlink returns a handler that creates a blink owned by the caller.
// POST /api/blinks
func handleCreateBlink(store BlinkStore, validator *blink.Validator, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil {
			writeError(w, msgSessionNotFound, http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			writeAppError(w, logger, apperr.Validation("request body too large"))
			return
		}

		form, err := blink.Decode(body)
		if err != nil {
			writeAppError(w, logger, err)
			return
		}
		if err := validator.Validate(form); err != nil {
			logger.Debug("blink form rejected", "user_id", session.UserID, "error", err)
			writeAppError(w, logger, err)
			return
		}

		created, err := store.CreateBlink(r.Context(), form.Params(session.UserID))
		if err != nil {
			writeAppError(w, logger, apperr.Storage(msgDatabaseError, err))
			return
		}

		if err := publisher.PublishBlinkCreated(r.Context(), events.FromDBBlink(created)); err != nil {
			logger.Warn("failed to publish blink created event", "blink_id", created.ID, "error", err)
		}
		if m != nil {
			m.RecordBlinkCreated(created.IsCustomInput, len(created.Amounts))
		}

		logger.Info("blink created", "blink_id", created.ID, "user_id", session.UserID, "amounts", len(created.Amounts))
		writeJSON(w, created, http.StatusOK)
	})
}

// handleListBlinks returns a handler that lists the caller's blinks, newest first.
// GET /api/blinks
func handleListBlinks(store BlinkStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil {
			writeError(w, msgLoginRequired, http.StatusUnauthorized)
			return
		}

		blinks, err := store.ListBlinksByUser(r.Context(), session.UserID)
		if err != nil {
			writeAppError(w, logger, apperr.Storage(msgDatabaseError, err))
			return
		}

		writeJSON(w, blinks, http.StatusOK)
	})
}

// handleGetBlink returns a handler that reads one blink.
// GET /api/blinks/{blinkId}
func handleGetBlink(store BlinkStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := lookupBlink(r, store)
		if err != nil {
			writeAppError(w, logger, err)
			return
		}
		writeJSON(w, b, http.StatusOK)
	})
}

// lookupBlink loads the blink named by the blinkId route parameter, with its owner.
func lookupBlink(r *http.Request, store BlinkStore) (*db.Blink, error) {
	id := chi.URLParam(r, "blinkId")
	b, err := store.GetBlink(r.Context(), id)
	if errors.Is(err, db.ErrBlinkNotFound) {
		return nil, apperr.NotFound("Blink", id)
	}
	if err != nil {
		return nil, apperr.Storage(msgDatabaseError, err)
	}
	if b.User == nil {
		return nil, apperr.NotFound("Owner of blink", id)
	}
	return b, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, errorResponse{Error: message}, statusCode)
}

// writeAppError converts err into a status code and error body.
func writeAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Unknown(err)
	}

	status := apperr.StatusCode(e.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", e.Code, "error", err)
	}

	switch e.Kind {
	case apperr.KindValidation:
		writeJSON(w, errorResponse{Error: e.Message, Details: e.Fields}, status)
	case apperr.KindStorage:
		resp := errorResponse{Error: msgDatabaseError}
		if e.Cause != nil {
			resp.Message = e.Cause.Error()
		}
		writeJSON(w, resp, status)
	default:
		writeError(w, e.Message, status)
	}
}
