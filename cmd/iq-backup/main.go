// Command iq-backup manages snapshots of the knowledge-graph store. By
// default it runs the scheduled backup daemon; the -oneshot, -restore,
// -health, and -list flags select one-off modes instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/internal/backup"
	"github.com/study-flamingo/iq-mcp-sub000/internal/config"
)

var (
	storePath = flag.String("store", "", "Path to the snapshot file (overrides config)")
	backupDir = flag.String("backup-dir", "", "Backup directory path (overrides config)")
	interval  = flag.Duration("interval", 0, "Backup interval (overrides config)")
	verify    = flag.Bool("verify", true, "Verify backups after creation")
	oneshot   = flag.Bool("oneshot", false, "Perform a single backup and exit")
	restore   = flag.String("restore", "", "Restore store from backup file and exit")
	healthCmd = flag.Bool("health", false, "Check backup service health and exit")
	listCmd   = flag.Bool("list", false, "List all available backups and exit")
)

func main() {
	flag.Parse()
	log.SetPrefix("iq-backup: ")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	service, err := backup.NewBackupService(serviceConfig(cfg))
	if err != nil {
		log.Fatalf("create backup service: %v", err)
	}

	if err := run(context.Background(), service); err != nil {
		log.Fatal(err)
	}
}

// serviceConfig merges the environment configuration with flag overrides.
// Flags win over the environment, which wins over the built-in defaults.
func serviceConfig(cfg *config.Config) backup.BackupConfig {
	bc := backup.BackupConfig{
		StorePath: cfg.Storage.StorePath(),
		BackupDir: cfg.Backup.BackupPath,
		Interval:  time.Hour,
		Retention: backup.RetentionPolicy{
			Hourly:  cfg.Backup.BackupRetentionHourly,
			Daily:   cfg.Backup.BackupRetentionDaily,
			Weekly:  cfg.Backup.BackupRetentionWeekly,
			Monthly: cfg.Backup.BackupRetentionMonthly,
		},
		VerifyBackups: *verify,
	}
	if d, err := time.ParseDuration(cfg.Backup.BackupInterval); err == nil {
		bc.Interval = d
	}

	if *storePath != "" {
		bc.StorePath = *storePath
	}
	if *backupDir != "" {
		bc.BackupDir = *backupDir
	}
	if *interval > 0 {
		bc.Interval = *interval
	}
	return bc
}

// run executes the mode selected by flags.
func run(ctx context.Context, service *backup.BackupService) error {
	switch {
	case *restore != "":
		return runRestore(ctx, service, *restore)
	case *healthCmd:
		return runHealth(service)
	case *listCmd:
		return runList(service)
	case *oneshot:
		return runOneshot(ctx, service)
	default:
		return runDaemon(ctx, service)
	}
}

func runRestore(ctx context.Context, service *backup.BackupService, path string) error {
	log.Printf("restoring store from %s", path)
	if err := service.RestoreBackup(ctx, path); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	log.Println("store restored")
	return nil
}

// runHealth prints the health report and fails unless the service is
// healthy, so scripts can rely on the exit code.
func runHealth(service *backup.BackupService) error {
	health, err := service.HealthCheck()
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	fmt.Printf("Status: %s\n", health.Status)
	if health.Message != "" {
		fmt.Printf("Message: %s\n", health.Message)
	}
	fmt.Printf("Total Backups: %d\n", health.TotalBackups)
	fmt.Printf("Disk Space Used: %s\n", formatMB(health.DiskSpaceUsed))
	fmt.Printf("Backup Directory: %s\n", health.BackupDir)

	if health.LastBackup.IsZero() {
		fmt.Println("Last Backup: Never")
	} else {
		fmt.Printf("Last Backup: %s (%s ago)\n",
			health.LastBackup.Format(time.RFC3339),
			time.Since(health.LastBackup).Round(time.Minute))
	}
	if !health.NextBackup.IsZero() {
		fmt.Printf("Next Backup: %s (in %s)\n",
			health.NextBackup.Format(time.RFC3339),
			time.Until(health.NextBackup).Round(time.Minute))
	}

	if health.Status != "healthy" {
		return fmt.Errorf("backup service is %s", health.Status)
	}
	return nil
}

func runList(service *backup.BackupService) error {
	backups, err := service.ListBackups()
	if err != nil {
		return fmt.Errorf("list backups: %w", err)
	}
	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	fmt.Printf("Found %d backup(s):\n\n", len(backups))
	for i, b := range backups {
		fmt.Printf("%d. %s\n   Size: %s\n   Created: %s (%s ago)\n\n",
			i+1, b.Path, formatMB(b.Size),
			b.Timestamp.Format(time.RFC3339),
			time.Since(b.Timestamp).Round(time.Minute))
	}
	return nil
}

func runOneshot(ctx context.Context, service *backup.BackupService) error {
	result, err := service.BackupNow(ctx)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	log.Printf("backup completed: path=%s size=%s duration=%v verified=%v",
		result.Path, formatMB(result.Size), result.Duration, result.Verified)
	return nil
}

// runDaemon blocks on the scheduled backup loop until SIGINT or SIGTERM.
func runDaemon(ctx context.Context, service *backup.BackupService) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("backup service running, Ctrl+C to stop")
	if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("backup service: %w", err)
	}
	log.Println("backup service stopped")
	return nil
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}
