package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/varb24/TurtleMessenger/internal/auth"
	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

// AuthHandler serves registration, login, and token refresh.
type AuthHandler struct {
	service *auth.Service
	access  *auth.TokenIssuer
	refresh *auth.TokenIssuer
	users   storage.UserStore
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(service *auth.Service, access, refresh *auth.TokenIssuer, users storage.UserStore) *AuthHandler {
	return &AuthHandler{service: service, access: access, refresh: refresh, users: users}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Username     string `json:"username"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUsernameTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			logrus.WithError(err).Error("registration failed")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

// Login handles POST /api/auth/login. A successful login returns a short
// access token and a long refresh token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		logrus.WithError(err).Error("login failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	accessToken, err := h.access.Issue(user.Username)
	if err != nil {
		logrus.WithError(err).Error("failed to issue access token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	refreshToken, err := h.refresh.Issue(user.Username)
	if err != nil {
		logrus.WithError(err).Error("failed to issue refresh token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Username:     user.Username,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/auth/refresh. The refresh token may arrive
// as a Bearer header or in the JSON body; whichever verifies is used. A
// new access token is issued, the refresh token stays as it is.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var candidates []string
	if t := bearerToken(r); t != "" {
		candidates = append(candidates, t)
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		candidates = append(candidates, req.RefreshToken)
	}
	if len(candidates) == 0 {
		writeError(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	var user *types.User
	for _, token := range candidates {
		if u, err := resolveUser(r.Context(), h.refresh, h.users, token); err == nil {
			user = u
			break
		}
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	accessToken, err := h.access.Issue(user.Username)
	if err != nil {
		logrus.WithError(err).Error("failed to issue access token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: accessToken,
		Username:    user.Username,
	})
}

// Me handles GET /api/auth/me and returns the authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}
