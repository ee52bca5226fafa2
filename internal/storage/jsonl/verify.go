package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// Verify strictly re-parses the snapshot file at path. Unlike Load, which
// skips damaged records to keep the server running, Verify fails on the
// first record it cannot parse, so backups can be checked for integrity.
// Every snapshot written by Save starts with a user_info record; a file
// without one fails verification.
func Verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	userSeen := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return fmt.Errorf("line %d: malformed record: %w", lineNo, err)
		}

		switch rec.Type {
		case recordEntity:
			var e types.Entity
			if err := json.Unmarshal(rec.Data, &e); err != nil {
				return fmt.Errorf("line %d: malformed entity: %w", lineNo, err)
			}
			if e.Name == "" {
				return fmt.Errorf("line %d: entity with empty name", lineNo)
			}

		case recordRelation:
			var r types.Relation
			if err := json.Unmarshal(rec.Data, &r); err != nil {
				return fmt.Errorf("line %d: malformed relation: %w", lineNo, err)
			}
			if !r.Complete() {
				return fmt.Errorf("line %d: incomplete relation triple", lineNo)
			}

		case recordUserInfo:
			var u types.UserIdentifier
			if err := json.Unmarshal(rec.Data, &u); err != nil {
				return fmt.Errorf("line %d: malformed user_info: %w", lineNo, err)
			}
			userSeen = true

		default:
			return fmt.Errorf("line %d: unknown record type %q", lineNo, rec.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if !userSeen {
		return fmt.Errorf("snapshot has no user_info record")
	}
	return nil
}
