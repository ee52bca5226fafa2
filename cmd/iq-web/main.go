// Command iq-web serves the read-only HTTP/WebSocket API that
// visualization frontends build on. It reads the same snapshot file the
// MCP server writes and pushes a websocket notification whenever the
// file changes, so a dashboard stays live without polling.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/internal/config"
	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/internal/notify"
	"github.com/study-flamingo/iq-mcp-sub000/internal/server"
	"github.com/study-flamingo/iq-mcp-sub000/internal/storage/jsonl"
	"github.com/study-flamingo/iq-mcp-sub000/web/handlers"
)

func main() {
	port := flag.Int("port", 0, "Override the configured listen port")
	host := flag.String("host", "", "Override the configured listen host")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	storePath := cfg.Storage.StorePath()
	store := jsonl.New(storePath)
	manager := graph.NewManager(store)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, wsHub, err := server.Start(ctx, cfg, manager)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("iq web API running at http://%s", addr)

	// Broadcast a graph update whenever the snapshot changes, including
	// writes made by a separate iq-mcp process.
	watcher := notify.NewStoreWatcher(storePath, func() {
		g, err := manager.ReadGraph(context.Background())
		if err != nil {
			log.Printf("Failed to read graph for broadcast: %v", err)
			return
		}
		wsHub.Broadcast(handlers.NewGraphUpdate(len(g.Entities), len(g.Relations)))
	})
	if err := watcher.Start(); err != nil {
		log.Printf("Warning: live updates disabled, store watcher failed: %v", err)
	} else {
		defer watcher.Stop()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(500 * time.Millisecond) // Give time for connections to close
}
