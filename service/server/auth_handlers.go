package server

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/auth"
)

// sessionResponse is returned by sign-in and session lookups.
type sessionResponse struct {
	User    *auth.Session `json:"user"`
	Token   string        `json:"token,omitempty"`
	Expires time.Time     `json:"expires"`
}

// handleSignIn returns a handler that verifies a signed challenge and starts a session.
// POST /api/auth/signin with {message, signature} as JSON or a form.
func handleSignIn(authn SessionAuthenticator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		creds, err := decodeCredentials(r)
		if err != nil {
			writeAppError(w, logger, apperr.Validation("invalid request body"))
			return
		}

		session, token, err := authn.SignIn(r.Context(), creds)
		if err != nil {
			logger.Debug("sign-in rejected", "request_id", requestIDFrom(r.Context()), "code", apperr.CodeOf(err))
			writeAppError(w, logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Path:     "/",
			Expires:  session.ExpiresAt,
			MaxAge:   int(authn.TTL().Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, sessionResponse{User: session, Token: token, Expires: session.ExpiresAt}, http.StatusOK)
	})
}

func decodeCredentials(r *http.Request) (auth.Credentials, error) {
	var creds auth.Credentials
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return creds, err
		}
		creds.Message = r.PostForm.Get("message")
		creds.Signature = r.PostForm.Get("signature")
		return creds, nil
	default:
		err := json.NewDecoder(r.Body).Decode(&creds)
		return creds, err
	}
}

// handleSignOut returns a handler that clears the session cookie.
// POST /api/auth/signout
func handleSignOut(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := sessionFrom(r.Context()); s != nil {
			logger.Info("user signed out", "user_id", s.UserID)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		writeJSON(w, map[string]string{}, http.StatusOK)
	})
}

// handleGetSession returns the caller's session, or {} when anonymous.
// GET /api/auth/session
func handleGetSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r.Context())
		if session == nil {
			writeJSON(w, map[string]string{}, http.StatusOK)
			return
		}
		writeJSON(w, sessionResponse{User: session, Expires: session.ExpiresAt}, http.StatusOK)
	})
}
