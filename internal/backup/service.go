package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const defaultInterval = 1 * time.Hour

// defaultRetention fills in, field by field, whatever the configured policy
// leaves at zero.
var defaultRetention = RetentionPolicy{Hourly: 24, Daily: 7, Weekly: 4, Monthly: 12}

// BackupService takes periodic snapshots of the store file, verifies them,
// and prunes old ones according to the retention policy.
type BackupService struct {
	storePath     string
	backupDir     string
	interval      time.Duration
	retention     RetentionPolicy
	verifyBackups bool
	logger        *log.Logger

	mu             sync.Mutex
	running        bool
	stopCh         chan struct{}
	lastBackupTime time.Time
	nextBackupTime time.Time
}

// ServiceOption configures a BackupService.
type ServiceOption func(*BackupService)

// WithServiceLogger overrides the default stderr logger.
func WithServiceLogger(logger *log.Logger) ServiceOption {
	return func(s *BackupService) { s.logger = logger }
}

// NewBackupService validates the configuration, fills in defaults, and
// ensures the backup directory exists.
func NewBackupService(config BackupConfig, opts ...ServiceOption) (*BackupService, error) {
	if config.StorePath == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if config.BackupDir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(config.BackupDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	s := &BackupService{
		storePath:     config.StorePath,
		backupDir:     config.BackupDir,
		interval:      config.Interval,
		retention:     config.Retention,
		verifyBackups: config.VerifyBackups,
		logger:        log.New(os.Stderr, "backup: ", log.LstdFlags),
		stopCh:        make(chan struct{}),
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.retention.Hourly == 0 {
		s.retention.Hourly = defaultRetention.Hourly
	}
	if s.retention.Daily == 0 {
		s.retention.Daily = defaultRetention.Daily
	}
	if s.retention.Weekly == 0 {
		s.retention.Weekly = defaultRetention.Weekly
	}
	if s.retention.Monthly == 0 {
		s.retention.Monthly = defaultRetention.Monthly
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start runs the scheduled backup loop until the context is cancelled or
// Stop is called. A service can only run once at a time.
func (s *BackupService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup service is already running")
	}
	s.running = true
	s.nextBackupTime = time.Now().Add(s.interval)
	s.mu.Unlock()

	s.logger.Printf("service started: interval=%v, backup_dir=%s", s.interval, s.backupDir)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("service stopping (context cancelled)")
			return ctx.Err()
		case <-s.stopCh:
			s.logger.Println("service stopping (stop requested)")
			return nil
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

// runScheduled performs one tick of the backup loop.
func (s *BackupService) runScheduled(ctx context.Context) {
	result, err := s.BackupNow(ctx)
	if err != nil {
		s.logger.Printf("scheduled backup failed: %v", err)
	} else {
		s.logger.Printf("scheduled backup completed: path=%s, size=%d bytes, duration=%v, verified=%v",
			result.Path, result.Size, result.Duration, result.Verified)
	}

	s.mu.Lock()
	s.nextBackupTime = time.Now().Add(s.interval)
	s.mu.Unlock()
}

// Stop ends the backup loop. It returns an error if the service is not
// running.
func (s *BackupService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return fmt.Errorf("backup service is not running")
	}
	close(s.stopCh)
	s.running = false
	return nil
}

// BackupNow snapshots the store into a timestamped file in the backup
// directory. When verification is enabled the copy must re-parse cleanly
// before it counts. Retention runs afterwards on a best-effort basis.
func (s *BackupService) BackupNow(ctx context.Context) (*BackupResult, error) {
	started := time.Now()

	if _, err := os.Stat(s.storePath); err != nil {
		return nil, fmt.Errorf("store not found: %w", err)
	}

	// Microsecond stamp keeps rapid backups from colliding
	name := "iq-backup-" + started.Format("20060102-150405.000000") + ".jsonl"
	result := &BackupResult{Path: filepath.Join(s.backupDir, name)}

	fail := func(err error) (*BackupResult, error) {
		result.Duration = time.Since(started)
		result.Error = err
		return result, err
	}

	if err := copySnapshot(s.storePath, result.Path); err != nil {
		return fail(err)
	}
	info, err := os.Stat(result.Path)
	if err != nil {
		return fail(fmt.Errorf("failed to stat backup: %w", err))
	}
	result.Size = info.Size()

	if s.verifyBackups {
		if err := verifySnapshot(result.Path); err != nil {
			return fail(err)
		}
		result.Verified = true
	}
	result.Duration = time.Since(started)

	s.mu.Lock()
	s.lastBackupTime = time.Now()
	s.mu.Unlock()

	if err := applyRetention(s.backupDir, s.retention); err != nil {
		// A failed prune must not fail the backup itself
		s.logger.Printf("warning: failed to apply retention policy: %v", err)
	}
	return result, nil
}

// ListBackups lists all available backups, newest first.
func (s *BackupService) ListBackups() ([]BackupInfo, error) {
	return listBackups(s.backupDir)
}

// RestoreBackup replaces the store with the given backup. The service must
// be stopped first. The current store is copied aside and put back if the
// incoming snapshot fails verification.
func (s *BackupService) RestoreBackup(ctx context.Context, backupPath string) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		return fmt.Errorf("cannot restore while backup service is running")
	}

	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup not found: %w", err)
	}

	rollback := s.storePath + ".pre-restore"
	if _, err := os.Stat(s.storePath); err == nil {
		if err := copySnapshot(s.storePath, rollback); err != nil {
			return fmt.Errorf("failed to create pre-restore backup: %w", err)
		}
		defer func() { _ = os.Remove(rollback) }()
	}

	if err := restoreSnapshot(backupPath, s.storePath); err != nil {
		if _, statErr := os.Stat(rollback); statErr == nil {
			if rbErr := restoreSnapshot(rollback, s.storePath); rbErr != nil {
				return fmt.Errorf("restore failed and rollback failed: %v (restore error: %w)", rbErr, err)
			}
			return fmt.Errorf("restore failed, rolled back to previous state: %w", err)
		}
		return err
	}

	s.logger.Printf("store restored from backup: %s", backupPath)
	return nil
}

// HealthCheck reports backup counts, disk usage, and whether the schedule
// has fallen behind.
func (s *BackupService) HealthCheck() (*HealthStatus, error) {
	s.mu.Lock()
	lastBackup := s.lastBackupTime
	nextBackup := s.nextBackupTime
	s.mu.Unlock()

	backups, err := s.ListBackups()
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	diskUsage, err := calculateDiskUsage(s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate disk usage: %w", err)
	}

	health := &HealthStatus{
		Status:        "healthy",
		LastBackup:    lastBackup,
		NextBackup:    nextBackup,
		TotalBackups:  len(backups),
		BackupDir:     s.backupDir,
		DiskSpaceUsed: diskUsage,
	}

	switch {
	case lastBackup.IsZero():
		health.Message = "No backups yet"
	case time.Since(lastBackup) > 2*s.interval:
		health.Status = "warning"
		health.Message = fmt.Sprintf("Backup overdue by %v", time.Since(lastBackup)-s.interval)
	default:
		health.Message = fmt.Sprintf("Last backup: %v ago", time.Since(lastBackup).Round(time.Minute))
	}
	return health, nil
}
