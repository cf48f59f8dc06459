package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/varb24/TurtleMessenger/internal/contacts"
	"github.com/varb24/TurtleMessenger/internal/notify"
)

// ContactsHandler serves the contact relationship endpoints.
type ContactsHandler struct {
	engine   *contacts.Engine
	notifier *notify.Notifier
}

// NewContactsHandler creates the contacts handler.
func NewContactsHandler(engine *contacts.Engine, notifier *notify.Notifier) *ContactsHandler {
	return &ContactsHandler{engine: engine, notifier: notifier}
}

// parseUserRef interprets a user reference from a request: a string of
// digits is a numeric ID, anything else is a handle.
func parseUserRef(s string) contacts.UserRef {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return contacts.ByID(id)
	}
	return contacts.ByHandle(s)
}

type contactRequest struct {
	User string `json:"user"`
}

// readUserRef pulls the target user out of a request. POST and DELETE
// accept a JSON body {"user": "..."}; the ?user= query parameter works
// for every method.
func readUserRef(r *http.Request) (contacts.UserRef, bool) {
	if q := r.URL.Query().Get("user"); q != "" {
		return parseUserRef(q), true
	}
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && strings.TrimSpace(req.User) != "" {
		return parseUserRef(req.User), true
	}
	return contacts.UserRef{}, false
}

// List handles GET /api/contacts.
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.engine.ListContacts(r.Context(), CurrentUser(r))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Requests handles GET /api/contacts/requests.
func (h *ContactsHandler) Requests(w http.ResponseWriter, r *http.Request) {
	views, err := h.engine.IncomingRequests(r.Context(), CurrentUser(r))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Add handles POST /api/contacts.
func (h *ContactsHandler) Add(w http.ResponseWriter, r *http.Request) {
	ref, ok := readUserRef(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing user reference")
		return
	}

	me := CurrentUser(r)
	view, err := h.engine.Add(r.Context(), me, ref)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	h.notifier.Emit(notify.EventContactRequest, map[string]interface{}{
		"from":   me.Username,
		"to":     view.Username,
		"status": view.Status,
	})
	writeJSON(w, http.StatusOK, view)
}

// Accept handles POST /api/contacts/accept.
func (h *ContactsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ref, ok := readUserRef(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing user reference")
		return
	}

	me := CurrentUser(r)
	view, err := h.engine.Accept(r.Context(), me, ref)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	h.notifier.Emit(notify.EventContactAccepted, map[string]interface{}{
		"by":   me.Username,
		"with": view.Username,
	})
	writeJSON(w, http.StatusOK, view)
}

// Remove handles DELETE /api/contacts.
func (h *ContactsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ref, ok := readUserRef(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing user reference")
		return
	}

	if err := h.engine.Remove(r.Context(), CurrentUser(r), ref); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
