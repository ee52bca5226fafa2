// Package backup provides automated snapshot backups of the knowledge-graph
// store with tiered retention policies and integrity verification.
package backup

import (
	"time"
)

// BackupConfig holds backup service configuration.
type BackupConfig struct {
	// StorePath is the JSONL snapshot file to back up.
	StorePath string

	// BackupDir is where backups are written.
	BackupDir string

	// Interval between automated backups. Zero means one hour.
	Interval time.Duration

	// Retention controls how many backups survive in each age tier.
	Retention RetentionPolicy

	// VerifyBackups re-parses each backup after writing it.
	VerifyBackups bool
}

// RetentionPolicy caps the number of backups kept per age tier: hourly
// covers the last day, daily the last week, weekly the last month, and
// monthly the last year. Anything older than a year is always removed.
type RetentionPolicy struct {
	Hourly  int // under 24h old (default 24)
	Daily   int // 1-7 days old (default 7)
	Weekly  int // 7-30 days old (default 4)
	Monthly int // 30-365 days old (default 12)
}

// BackupInfo describes one backup file on disk.
type BackupInfo struct {
	Path      string    // full path to the backup file
	Timestamp time.Time // when the backup was taken
	Size      int64     // file size in bytes
}

// BackupResult reports the outcome of a single backup run.
type BackupResult struct {
	Path     string        // where the backup was written
	Duration time.Duration // how long the run took
	Size     int64         // backup size in bytes
	Verified bool          // whether the backup re-parsed cleanly
	Error    error         // what went wrong, if anything
}

// HealthStatus summarizes the state of the backup service.
type HealthStatus struct {
	// Status is "healthy", "warning", or "error".
	Status string

	// Message explains the status in one line.
	Message string

	LastBackup    time.Time // completion time of the last backup
	NextBackup    time.Time // when the next scheduled backup is due
	TotalBackups  int       // backups currently on disk
	BackupDir     string    // backup storage directory
	DiskSpaceUsed int64     // total bytes used by all backups
}
