// Package jsonl implements the primary knowledge-graph store: one JSON
// record per line, the whole file rewritten atomically on every save.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/study-flamingo/iq-mcp-sub000/internal/storage"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// Record types used in the store file.
const (
	recordEntity   = "entity"
	recordRelation = "relation"
	recordUserInfo = "user_info"
)

// maxLineSize bounds a single record line (4 MB), matching the MCP
// transport's message limit.
const maxLineSize = 4 * 1024 * 1024

// record is the envelope for one line of the store file.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Store reads and writes knowledge-graph snapshots as JSONL.
type Store struct {
	path   string
	logger *log.Logger
}

// New creates a store backed by the file at path. The file does not
// need to exist yet; a missing file loads as an empty graph.
func New(path string) *Store {
	return &Store{
		path:   path,
		logger: log.New(os.Stderr, "store: ", log.LstdFlags),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load implements storage.GraphStore. Lines that are not valid JSON,
// carry an unknown type, or fail shape validation are logged and
// skipped so one corrupt record cannot take the whole graph down.
func (s *Store) Load(ctx context.Context) (*types.KnowledgeGraph, bool, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return types.NewKnowledgeGraph(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: open %s: %v", storage.ErrPersistence, s.path, err)
	}
	defer f.Close()

	graph := types.NewKnowledgeGraph()
	userSeen := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			s.logger.Printf("skipping malformed line %d: %v", lineNo, err)
			continue
		}

		switch rec.Type {
		case recordEntity:
			var e types.Entity
			if err := json.Unmarshal(rec.Data, &e); err != nil {
				s.logger.Printf("skipping entity on line %d: %v", lineNo, err)
				continue
			}
			if e.Name == "" {
				s.logger.Printf("skipping entity on line %d: empty name", lineNo)
				continue
			}
			for i := range e.Observations {
				e.Observations[i].Durability = types.NormalizeDurability(e.Observations[i].Durability)
			}
			graph.Entities = append(graph.Entities, &e)

		case recordRelation:
			var r types.Relation
			if err := json.Unmarshal(rec.Data, &r); err != nil {
				s.logger.Printf("skipping relation on line %d: %v", lineNo, err)
				continue
			}
			if !r.Complete() {
				s.logger.Printf("skipping relation on line %d: incomplete triple", lineNo)
				continue
			}
			graph.Relations = append(graph.Relations, r)

		case recordUserInfo:
			var u types.UserIdentifier
			if err := json.Unmarshal(rec.Data, &u); err != nil {
				s.logger.Printf("skipping user_info on line %d: %v", lineNo, err)
				continue
			}
			if userSeen {
				s.logger.Printf("duplicate user_info on line %d, keeping the later record", lineNo)
			}
			graph.UserInfo = &u
			userSeen = true

		default:
			s.logger.Printf("skipping unknown record type %q on line %d", rec.Type, lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: read %s: %v", storage.ErrPersistence, s.path, err)
	}

	// A placeholder identity (fresh install, or the sentinel written by
	// older builds) counts as missing and is normalized to the current
	// default so callers can prompt for a real name.
	missing := graph.UserInfo.IsDefault()
	if missing {
		graph.UserInfo = types.DefaultUserIdentifier()
	}
	return graph, missing, nil
}

// Save implements storage.GraphStore. The snapshot is written to a temp
// file in the same directory and renamed over the target, so concurrent
// readers never observe a partial file. Record order is user_info,
// entities, relations.
func (s *Store) Save(ctx context.Context, graph *types.KnowledgeGraph) error {
	if graph == nil {
		return fmt.Errorf("%w: nil graph", storage.ErrInvalidInput)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", storage.ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", storage.ErrPersistence, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed into place
	}()

	w := bufio.NewWriter(tmp)
	userInfo := graph.UserInfo
	if userInfo == nil {
		userInfo = types.DefaultUserIdentifier()
	}
	if err := writeRecord(w, recordUserInfo, userInfo); err != nil {
		return err
	}
	for _, e := range graph.Entities {
		if err := writeRecord(w, recordEntity, e); err != nil {
			return err
		}
	}
	for _, r := range graph.Relations {
		if err := writeRecord(w, recordRelation, r); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", storage.ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", storage.ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", storage.ErrPersistence, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename into place: %v", storage.ErrPersistence, err)
	}
	return nil
}

// Close implements storage.GraphStore. The file is opened per call, so
// there is nothing to release.
func (s *Store) Close() error {
	return nil
}

func writeRecord(w *bufio.Writer, recType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", storage.ErrPersistence, recType, err)
	}
	line, err := json.Marshal(record{Type: recType, Data: payload})
	if err != nil {
		return fmt.Errorf("%w: marshal record envelope: %v", storage.ErrPersistence, err)
	}
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("%w: write record: %v", storage.ErrPersistence, err)
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("%w: write record: %v", storage.ErrPersistence, err)
	}
	return nil
}
