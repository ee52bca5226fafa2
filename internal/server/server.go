// Package server wires the web handlers into an http.Server with auth,
// rate limiting, and lifecycle management for the iq-web API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/internal/config"
	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/web/handlers"
)

// securityHeaders are attached to every response.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-XSS-Protection":       "1; mode=block",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range securityHeaders {
			w.Header().Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigins lists the Host headers the WebSocket hub accepts,
// derived from the configured bind address.
func allowedOrigins(cfg *config.Config) []string {
	origins := []string{
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	}
	switch cfg.Server.Host {
	case "", "localhost", "127.0.0.1":
	default:
		origins = append(origins, fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}
	return origins
}

// handleHealth serves the unauthenticated liveness probe.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","version":"1.0.0"}`))
}

// newRouter assembles the route tree: token-gated API routes, the open
// health endpoint, and the WebSocket upgrade path, all behind rate
// limiting and security headers.
func newRouter(cfg *config.Config, manager *graph.Manager, wsHub *handlers.WebSocketHub) http.Handler {
	graphHandler := handlers.NewGraphHandler(manager)
	searchHandler := handlers.NewSearchHandler(manager)
	statsHandler := handlers.NewStatsHandler(manager)
	importHandler := handlers.NewImportHandlers(manager)

	api := http.NewServeMux()
	api.HandleFunc("/api/graph", graphHandler.GetGraph)
	api.HandleFunc("/api/entities/{name}", graphHandler.GetEntity)
	api.HandleFunc("/api/search", searchHandler.Search)
	api.HandleFunc("/api/stats", statsHandler.GetStats)
	api.HandleFunc("/api/import/markdown", importHandler.PostMarkdownImport)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", handleHealth)
	mux.Handle("/api/", handlers.RequireAuth(api, cfg))
	// Origin validation stands in for auth on the socket path
	mux.Handle("/ws", wsHub)

	limited := handlers.RateLimitMiddleware(mux, handlers.NewRateLimiter(10.0, 20))
	return withSecurityHeaders(limited)
}

// Start launches the HTTP server and returns the bound address (which
// matters when the configured port is 0) plus the WebSocket hub so the
// caller can broadcast graph changes. The server drains and stops when
// ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, manager *graph.Manager) (string, *handlers.WebSocketHub, error) {
	wsHub := handlers.NewWebSocketHub(allowedOrigins(cfg)...)
	go wsHub.Run()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(cfg, manager, wsHub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		wsHub.Stop()
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return listener.Addr().String(), wsHub, nil
}
