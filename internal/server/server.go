// Package server wires the voice engine behind the HTTP analytics and voice
// API surface and manages the listener lifecycle.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/internal/engine"
	"github.com/ordervox/ordervox/web/handlers"
)

// Start builds the route table, wires the websocket hub to the engine and
// starts serving. It returns the actual listen address (useful with port 0 in
// tests) and the hub. The server shuts down when ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, eng *engine.VoiceEngine) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	hub := handlers.NewWebSocketHub(handlers.OriginsFor(cfg.Server.Host, cfg.Server.Port))
	eng.OnResult(hub.HubListener())

	voice := handlers.NewVoiceHandlers(eng)
	stats := handlers.NewStatsHandlers(eng)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/interpret", voice.Interpret)
	apiMux.HandleFunc("POST /api/execute", voice.Execute)
	apiMux.HandleFunc("POST /api/feedback", voice.Feedback)
	apiMux.HandleFunc("GET /api/stats", stats.GetStats)
	apiMux.HandleFunc("/api/rules", stats.Rules)
	apiMux.HandleFunc("GET /api/sessions", stats.ListSessions)
	apiMux.HandleFunc("DELETE /api/sessions/{id}", stats.EndSession)
	apiMux.HandleFunc("GET /api/sessions/{id}/context", stats.SessionContext)
	apiMux.HandleFunc("GET /api/sessions/{id}/predictions", stats.SessionPredictions)
	apiMux.HandleFunc("GET /api/sessions/{id}/profile", stats.Profile)

	// Health stays outside the auth wrapper for monitoring probes.
	mux.HandleFunc("/api/health", handlers.Health)
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))
	mux.Handle("/ws", hub)

	rateLimiter := handlers.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateBurst)
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = handlers.SecurityHeaders(handler)

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
		return "", nil, fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("ERROR: server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("WARNING: server shutdown error: %v", err)
		}
		hub.Stop()
	}()

	log.Printf("ordervox API listening on %s", actualAddr)
	return actualAddr, hub, nil
}
