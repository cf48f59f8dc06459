// Package handlers provides the HTTP and WebSocket handlers for the
// TurtleMessenger API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/varb24/TurtleMessenger/internal/contacts"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

type contextKey string

// userContextKey carries the authenticated *types.User through a request.
const userContextKey contextKey = "turtle.user"

// CurrentUser returns the authenticated user for a request, or nil when
// the request is anonymous.
func CurrentUser(r *http.Request) *types.User {
	u, _ := r.Context().Value(userContextKey).(*types.User)
	return u
}

// withUser returns a request context carrying the authenticated user.
func withUser(ctx context.Context, u *types.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// errorResponse is the JSON error envelope: {"error": "..."}.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logrus.WithError(err).Error("failed to encode response")
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps the contact engine's error kinds to status codes.
// Anything unrecognized is a storage failure and becomes a 500.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, contacts.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, contacts.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contacts.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contacts.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		logrus.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
