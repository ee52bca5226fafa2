// Command iq-mcp is the entry point for the iq MCP (Model Context
// Protocol) server.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Ensure the data directory and open the JSONL snapshot store.
//  3. Wire the optional mirror replica and backup service.
//  4. Create the MCP server around the graph manager.
//  5. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr. Any bytes written to stdout
// that are not valid JSON-RPC 2.0 response frames will corrupt the
// protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/internal/api/mcp"
	"github.com/study-flamingo/iq-mcp-sub000/internal/backup"
	"github.com/study-flamingo/iq-mcp-sub000/internal/config"
	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/internal/mirror"
	"github.com/study-flamingo/iq-mcp-sub000/internal/storage/jsonl"
)

func main() {
	// Redirect the default logger to stderr so that any incidental log
	// calls from imported packages never pollute the stdout JSON-RPC
	// stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("iq-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
	}

	storePath := cfg.Storage.StorePath()
	store := jsonl.New(storePath)

	// Root context cancelled on SIGINT / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	// Optional one-way mirror replica. The syncer subscribes to graph
	// change notifications; a broken mirror never blocks graph writes,
	// so startup failures only cost the replica.
	var syncer *mirror.Syncer
	var replica mirror.Mirror
	managerOpts := []graph.Option{}
	if cfg.Mirror.Enabled() {
		replica, err = mirror.FromConfig(ctx, cfg.Mirror)
		if err != nil {
			log.Printf("warning: mirror disabled: %v", err)
		} else {
			syncer = mirror.NewSyncer(replica)
			managerOpts = append(managerOpts, graph.WithChangeListener(syncer.Notify))
			log.Printf("mirroring graph to %s replica", cfg.Mirror.Engine)
		}
	}

	manager := graph.NewManager(store, managerOpts...)

	if syncer != nil {
		syncer.Start(ctx)
	}

	// Optional scheduled backups of the snapshot file.
	if cfg.Backup.BackupEnabled {
		interval, err := time.ParseDuration(cfg.Backup.BackupInterval)
		if err != nil {
			log.Printf("invalid IQ_BACKUP_INTERVAL %q, using 24h", cfg.Backup.BackupInterval)
			interval = 24 * time.Hour
		}
		svc, err := backup.NewBackupService(backup.BackupConfig{
			StorePath: storePath,
			BackupDir: cfg.Backup.BackupPath,
			Interval:  interval,
			Retention: backup.RetentionPolicy{
				Hourly:  cfg.Backup.BackupRetentionHourly,
				Daily:   cfg.Backup.BackupRetentionDaily,
				Weekly:  cfg.Backup.BackupRetentionWeekly,
				Monthly: cfg.Backup.BackupRetentionMonthly,
			},
			VerifyBackups: cfg.Backup.BackupVerify,
		})
		if err != nil {
			log.Printf("warning: backups disabled: %v", err)
		} else {
			go func() {
				if err := svc.Start(ctx); err != nil && ctx.Err() == nil {
					log.Printf("backup service stopped: %v", err)
				}
			}()
			log.Printf("scheduled backups every %s to %s", interval, cfg.Backup.BackupPath)
		}
	}

	srv := mcp.NewServer(manager)
	transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)

	log.Println("ready — serving JSON-RPC 2.0 on stdin/stdout")

	if err := transport.Serve(ctx); err != nil {
		// Normal on context cancellation; otherwise a fatal stdio problem.
		log.Printf("transport stopped: %v", err)
	}

	// Stop the syncer before closing its replica connection.
	cancel()
	if syncer != nil {
		syncer.Wait()
		if err := replica.Close(); err != nil {
			log.Printf("mirror close error: %v", err)
		}
	}
}
