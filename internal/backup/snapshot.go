package backup

import (
	"fmt"
	"io"
	"os"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage/jsonl"
)

// copySnapshot copies the store file to destPath. The store is rewritten
// atomically via rename, so an already-open source descriptor always reads
// a complete snapshot even while the server keeps saving.
func copySnapshot(sourcePath, destPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy store: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("failed to sync backup file: %w", err)
	}
	return nil
}

// verifySnapshot checks the integrity of a backup by re-parsing it with the
// store codec in strict mode.
func verifySnapshot(backupPath string) error {
	if err := jsonl.Verify(backupPath); err != nil {
		return fmt.Errorf("backup verification failed: %w", err)
	}
	return nil
}

// restoreSnapshot restores the store from a backup. The target store must
// not be in use when calling this function.
func restoreSnapshot(backupPath, targetPath string) error {
	if err := verifySnapshot(backupPath); err != nil {
		return err
	}
	if err := copySnapshot(backupPath, targetPath); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	if err := jsonl.Verify(targetPath); err != nil {
		return fmt.Errorf("restored store verification failed: %w", err)
	}
	return nil
}
