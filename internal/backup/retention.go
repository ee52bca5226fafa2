package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ageTier pairs an age ceiling with the number of snapshots the policy
// keeps below it. Tiers are ordered youngest to oldest and a backup lands
// in the first tier whose ceiling it is under.
type ageTier struct {
	maxAge time.Duration
	keep   int
}

func retentionTiers(policy RetentionPolicy) []ageTier {
	return []ageTier{
		{maxAge: 24 * time.Hour, keep: policy.Hourly},
		{maxAge: 7 * 24 * time.Hour, keep: policy.Daily},
		{maxAge: 30 * 24 * time.Hour, keep: policy.Weekly},
		{maxAge: 365 * 24 * time.Hour, keep: policy.Monthly},
	}
}

// listBackups returns every snapshot in the backup directory, newest first.
func listBackups(backupDir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and stat
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(backupDir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// applyRetention prunes the backup directory down to the policy limits.
// Each snapshot is assigned to an age tier and each tier keeps only its
// newest N entries. Snapshots older than a year are removed unconditionally.
func applyRetention(backupDir string, policy RetentionPolicy) error {
	backups, err := listBackups(backupDir)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return nil
	}

	tiers := retentionTiers(policy)
	kept := make([]int, len(tiers))
	now := time.Now()

	// listBackups sorts newest first, so the first policy.N snapshots seen
	// in a tier are the ones to keep.
	var doomed []string
	for _, b := range backups {
		age := now.Sub(b.Timestamp)
		tier := -1
		for i, t := range tiers {
			if age < t.maxAge {
				tier = i
				break
			}
		}
		switch {
		case tier < 0:
			// Past the oldest tier
			doomed = append(doomed, b.Path)
		case kept[tier] < tiers[tier].keep:
			kept[tier]++
		default:
			doomed = append(doomed, b.Path)
		}
	}

	var lastErr error
	for _, path := range doomed {
		if err := os.Remove(path); err != nil {
			// Keep pruning the rest
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete some backups: %w", lastErr)
	}
	return nil
}

// calculateDiskUsage sums the size of every snapshot in the backup directory.
func calculateDiskUsage(backupDir string) (int64, error) {
	backups, err := listBackups(backupDir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, b := range backups {
		total += b.Size
	}
	return total, nil
}
