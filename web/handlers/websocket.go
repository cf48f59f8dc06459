package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/varb24/TurtleMessenger/internal/chat"
	"github.com/varb24/TurtleMessenger/internal/notify"
	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/pkg/types"
)

// RoomHub fans messages out to every socket joined to one room.
type RoomHub struct {
	roomID     int64
	clients    map[clientInterface]bool
	broadcast  chan interface{}
	register   chan clientInterface
	unregister chan clientInterface
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// clientInterface allows for both real clients and mock clients.
type clientInterface interface {
	getSendChannel() chan []byte
	close()
}

// Client is one WebSocket connection joined to a room.
type Client struct {
	id   string
	hub  *RoomHub
	conn *websocket.Conn //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	user *types.User     // nil for anonymous connections
	send chan []byte
}

func (c *Client) getSendChannel() chan []byte {
	return c.send
}

func (c *Client) close() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}
}

// NewRoomHub creates a hub for one room.
func NewRoomHub(roomID int64) *RoomHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &RoomHub{
		roomID:     roomID,
		clients:    make(map[clientInterface]bool),
		broadcast:  make(chan interface{}, 256),
		register:   make(chan clientInterface),
		unregister: make(chan clientInterface),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's fan-out loop.
func (h *RoomHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"room_id": h.roomID,
				"clients": count,
			}).Debug("socket joined room")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.getSendChannel())
			}
			count := len(h.clients)
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"room_id": h.roomID,
				"clients": count,
			}).Debug("socket left room")

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				logrus.WithError(err).Error("failed to marshal broadcast message")
				continue
			}

			// Full lock: a slow client gets dropped from the map here.
			h.mu.Lock()
			for client := range h.clients {
				sendChan := client.getSendChannel()
				select {
				case sendChan <- data:
				default:
					close(sendChan)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop shuts the hub down and disconnects every client.
func (h *RoomHub) Stop() {
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.getSendChannel())
		client.close()
	}
	h.clients = make(map[clientInterface]bool)
	h.mu.Unlock()
}

// Broadcast queues a message for every client in the room.
func (h *RoomHub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		logrus.WithField("room_id", h.roomID).Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *RoomHub) Register(client clientInterface) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *RoomHub) Unregister(client clientInterface) {
	h.unregister <- client
}

// WebSocketGateway upgrades connections on /ws/rooms/{roomID} and routes
// each one into its room's hub. Authentication is optional: a valid
// ?token= query parameter attaches the account, anything else connects
// anonymously.
type WebSocketGateway struct {
	chat     *chat.Service
	verifier TokenVerifier
	users    storage.UserStore
	notifier *notify.Notifier

	mu   sync.Mutex
	hubs map[int64]*RoomHub
}

// NewWebSocketGateway creates the gateway.
func NewWebSocketGateway(chatSvc *chat.Service, verifier TokenVerifier, users storage.UserStore, notifier *notify.Notifier) *WebSocketGateway {
	return &WebSocketGateway{
		chat:     chatSvc,
		verifier: verifier,
		users:    users,
		notifier: notifier,
		hubs:     make(map[int64]*RoomHub),
	}
}

// Hub returns the hub for a room, starting one on first use.
func (g *WebSocketGateway) Hub(roomID int64) *RoomHub {
	g.mu.Lock()
	defer g.mu.Unlock()
	hub, ok := g.hubs[roomID]
	if !ok {
		hub = NewRoomHub(roomID)
		g.hubs[roomID] = hub
		go hub.Run()
	}
	return hub
}

// Stop shuts down every room hub.
func (g *WebSocketGateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, hub := range g.hubs {
		hub.Stop()
	}
	g.hubs = make(map[int64]*RoomHub)
}

// ServeHTTP handles WebSocket upgrade requests.
func (g *WebSocketGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID, ok := roomIDFromPath(r.URL.Path)
	if !ok {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	// Token is optional: sockets without one join anonymously.
	var user *types.User
	if token := r.URL.Query().Get("token"); token != "" {
		u, err := resolveUser(r.Context(), g.verifier, g.users, token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user = u
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		InsecureSkipVerify: true,
	})
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}

	hub := g.Hub(roomID)
	client := &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		user: user,
		send: make(chan []byte, 256),
	}

	hub.Register(client)

	go client.writePump()
	go g.readPump(client)
}

// writePump drains the send channel to the socket.
func (c *Client) writePump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		cancel()

		if err != nil {
			return
		}
	}
}

// inboundMessage is what clients send over the socket.
type inboundMessage struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
	Ts       int64  `json:"ts"`
}

// readPump reads client messages, persists them, and fans them back out
// to the room. Malformed or empty frames are dropped without closing the
// connection.
func (g *WebSocketGateway) readPump(c *Client) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}()

	for {
		_, data, err := c.conn.Read(context.Background()) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		if err != nil {
			return
		}

		var in inboundMessage
		if err := json.Unmarshal(data, &in); err != nil {
			logrus.WithFields(logrus.Fields{
				"room_id": c.hub.roomID,
				"client":  c.id,
			}).Debug("dropping malformed socket frame")
			continue
		}
		if strings.TrimSpace(in.Content) == "" {
			continue
		}

		senderName := strings.TrimSpace(in.SenderID)
		if senderName == "" {
			senderName = "anonymous"
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		msg, err := g.chat.SaveMessage(ctx, c.hub.roomID, c.user, senderName, in.Content, in.Ts)
		cancel()
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"room_id": c.hub.roomID,
				"client":  c.id,
			}).WithError(err).Error("failed to persist socket message")
			continue
		}

		view := msg.View()
		c.hub.Broadcast(view)
		g.notifier.Emit(notify.EventMessageCreated, view)
	}
}

// MockClient is a mock client for testing.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) getSendChannel() chan []byte {
	return m.SendChan
}

func (m *MockClient) close() {
	// No-op for mock client
}
