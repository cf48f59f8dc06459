package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/varb24/TurtleMessenger/internal/chat"
	"github.com/varb24/TurtleMessenger/internal/notify"
)

// ChatHandler serves message history and the REST append endpoint.
type ChatHandler struct {
	service  *chat.Service
	notifier *notify.Notifier
}

// NewChatHandler creates the chat handler.
func NewChatHandler(service *chat.Service, notifier *notify.Notifier) *ChatHandler {
	return &ChatHandler{service: service, notifier: notifier}
}

// roomIDFromPath extracts the numeric room ID from paths shaped like
// /api/rooms/{roomID}/messages.
func roomIDFromPath(path string) (int64, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "rooms" && i+1 < len(parts) {
			id, err := strconv.ParseInt(parts[i+1], 10, 64)
			if err != nil {
				return 0, false
			}
			return id, true
		}
	}
	return 0, false
}

// History handles GET /api/rooms/{roomID}/messages. Query parameters:
// size (page size, capped) and before (millisecond cursor, exclusive).
// Results are ascending by creation time.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	before, _ := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)

	views, err := h.service.History(r.Context(), roomID, size, before)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type appendRequest struct {
	Content  string `json:"content"`
	SenderID string `json:"senderId"`
	Ts       int64  `json:"ts"`
}

// Append handles POST /api/rooms/{roomID}/messages: the REST fallback
// for clients without a socket. The message is persisted and accepted;
// fan-out to live sockets happens via the room hub when one exists.
func (h *ChatHandler) Append(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "empty message content")
		return
	}

	sender := CurrentUser(r)
	senderName := strings.TrimSpace(req.SenderID)
	if senderName == "" {
		senderName = "anonymous"
	}

	msg, err := h.service.SaveMessage(r.Context(), roomID, sender, senderName, req.Content, req.Ts)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	h.notifier.Emit(notify.EventMessageCreated, msg.View())
	writeJSON(w, http.StatusAccepted, msg.View())
}
