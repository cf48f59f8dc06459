// Package server provides HTTP server initialization and lifecycle
// management for the TurtleMessenger backend.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/varb24/TurtleMessenger/internal/auth"
	"github.com/varb24/TurtleMessenger/internal/chat"
	"github.com/varb24/TurtleMessenger/internal/config"
	"github.com/varb24/TurtleMessenger/internal/contacts"
	"github.com/varb24/TurtleMessenger/internal/notify"
	"github.com/varb24/TurtleMessenger/internal/storage"
	"github.com/varb24/TurtleMessenger/web/handlers"
)

// Start wires the services over the store, builds the route tree, and
// starts the HTTP server. It returns the actual address being listened
// on (useful for testing with port 0); the server shuts down when ctx is
// cancelled.
func Start(ctx context.Context, cfg *config.Config, store storage.Store) (string, error) {
	authSvc := auth.NewService(store)
	access := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	refresh := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.RefreshTTL)
	engine := contacts.NewEngine(store, store)
	chatSvc := chat.NewService(store, store)
	notifier := notify.NewNotifier(cfg.Notify.WebhookURL)

	authHandler := handlers.NewAuthHandler(authSvc, access, refresh, store)
	contactsHandler := handlers.NewContactsHandler(engine, notifier)
	chatHandler := handlers.NewChatHandler(chatSvc, notifier)
	gateway := handlers.NewWebSocketGateway(chatSvc, access, store, notifier)

	rateLimiter := handlers.NewRateLimiter(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)

	// Routes that require a valid access token.
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		authHandler.Me(w, r)
	})
	apiMux.HandleFunc("/api/contacts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			contactsHandler.List(w, r)
		case http.MethodPost:
			contactsHandler.Add(w, r)
		case http.MethodDelete:
			contactsHandler.Remove(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	apiMux.HandleFunc("/api/contacts/requests", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		contactsHandler.Requests(w, r)
	})
	apiMux.HandleFunc("/api/contacts/accept", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		contactsHandler.Accept(w, r)
	})
	apiMux.HandleFunc("/api/rooms/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			chatHandler.History(w, r)
		case http.MethodPost:
			chatHandler.Append(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux := http.NewServeMux()

	// Credential endpoints stay outside the auth wall.
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		authHandler.Register(w, r)
	})
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		authHandler.Login(w, r)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		authHandler.Refresh(w, r)
	})

	// Health endpoint — no auth required, used by monitoring.
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Everything else under /api/ requires a token.
	mux.Handle("/api/", handlers.RequireAuth(apiMux, access, store))

	// WebSocket rooms — token optional, anonymous sockets allowed.
	mux.Handle("/ws/rooms/", gateway)

	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = handlers.SecurityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("server shutdown error")
		}
		gateway.Stop()
	}()

	logrus.WithField("addr", actualAddr).Info("server listening")
	return actualAddr, nil
}
