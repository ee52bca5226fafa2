package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/internal/graph"
	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// linkRelationType is the relation type given to wiki-link edges.
const linkRelationType = "references"

// ImportResult is the summary produced by a completed import.
type ImportResult struct {
	FilesFound        int           `json:"files_found"`
	FilesProcessed    int           `json:"files_processed"`
	FilesSkipped      int           `json:"files_skipped"`
	FilesFailed       int           `json:"files_failed"`
	EntitiesCreated   int           `json:"entities_created"`
	ObservationsAdded int           `json:"observations_added"`
	RelationsCreated  int           `json:"relations_created"`
	Errors            []string      `json:"errors,omitempty"`
	Duration          time.Duration `json:"duration"`
}

// Importer routes parsed Markdown notes through the graph manager.
type Importer struct {
	manager *graph.Manager
	logger  *log.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger overrides the default stderr logger.
func WithLogger(logger *log.Logger) Option {
	return func(imp *Importer) {
		imp.logger = logger
	}
}

// New creates an importer that writes through the given manager.
func New(manager *graph.Manager, opts ...Option) *Importer {
	imp := &Importer{
		manager: manager,
		logger:  log.New(os.Stderr, "importer: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// ImportDirectory walks dirPath for Markdown notes and imports them.
// Unreadable or unparsable files are counted and reported without
// stopping the rest of the import.
func (imp *Importer) ImportDirectory(ctx context.Context, dirPath string) (*ImportResult, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %q: %w", dirPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dirPath)
	}

	start := time.Now()
	files, err := collectMarkdownFiles(dirPath)
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dirPath, err)
	}

	result := &ImportResult{FilesFound: len(files)}
	var notes []*ParsedNote
	for _, absPath := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		rel, _ := filepath.Rel(dirPath, absPath)

		data, err := os.ReadFile(absPath)
		if err != nil {
			imp.logger.Printf("skip %s: read error: %v", rel, err)
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read error: %v", rel, err))
			continue
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			result.FilesSkipped++
			continue
		}

		parsed, err := ParseNote(data, absPath, rel)
		if err != nil {
			imp.logger.Printf("skip %s: parse error: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: parse error: %v", rel, err))
			continue
		}
		notes = append(notes, parsed)
		result.FilesProcessed++
	}

	if err := imp.apply(ctx, notes, result); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// Import stores already-parsed notes. The web upload endpoint parses
// request bodies itself and feeds them through here.
func (imp *Importer) Import(ctx context.Context, notes []*ParsedNote) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{
		FilesFound:     len(notes),
		FilesProcessed: len(notes),
	}
	if err := imp.apply(ctx, notes, result); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// apply turns notes into entity/observation/relation batches. New notes
// become entities with their bullets attached; notes whose name already
// exists contribute their bullets as fresh observations instead.
func (imp *Importer) apply(ctx context.Context, notes []*ParsedNote, result *ImportResult) error {
	if len(notes) == 0 {
		return nil
	}

	entities := make([]types.Entity, 0, len(notes))
	for _, n := range notes {
		e := types.Entity{
			Name:       n.Name,
			EntityType: n.EntityType,
			Aliases:    n.Aliases,
			Icon:       n.Icon,
		}
		for _, obs := range n.Observations {
			e.Observations = append(e.Observations, types.Observation{
				Content:    obs,
				Durability: n.Durability,
			})
		}
		entities = append(entities, e)
	}

	created, err := imp.manager.CreateEntities(ctx, entities)
	if err != nil {
		return err
	}
	result.EntitiesCreated = len(created)
	for _, e := range created {
		result.ObservationsAdded += len(e.Observations)
	}

	createdNames := make(map[string]bool, len(created))
	for _, e := range created {
		createdNames[strings.ToLower(e.Name)] = true
	}

	// Bullets from notes that collided with an existing entity (or with an
	// earlier note of the same name) still land as observations.
	consumed := make(map[string]bool, len(created))
	var requests []graph.ObservationRequest
	for _, n := range notes {
		key := strings.ToLower(n.Name)
		if createdNames[key] && !consumed[key] {
			consumed[key] = true
			continue
		}
		if len(n.Observations) == 0 {
			continue
		}
		obs := make([]graph.ObservationInput, 0, len(n.Observations))
		for _, o := range n.Observations {
			obs = append(obs, graph.ObservationInput{Content: o, Durability: n.Durability})
		}
		requests = append(requests, graph.ObservationRequest{
			EntityName:   n.Name,
			Observations: obs,
		})
	}
	if len(requests) > 0 {
		applied, err := imp.manager.ApplyObservations(ctx, requests)
		if err != nil {
			return err
		}
		for _, r := range applied.Results {
			result.ObservationsAdded += len(r.Added)
		}
		for _, f := range applied.Failures {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", f.EntityName, f.Reason))
		}
	}

	var relations []types.Relation
	for _, n := range notes {
		for _, target := range n.Links {
			relations = append(relations, types.Relation{
				FromEntity:   n.Name,
				ToEntity:     target,
				RelationType: linkRelationType,
			})
		}
	}
	if len(relations) > 0 {
		createdRels, err := imp.manager.CreateRelations(ctx, relations)
		if err != nil {
			return err
		}
		result.RelationsCreated = len(createdRels)
	}
	return nil
}

// collectMarkdownFiles walks dirPath and returns all .md / .markdown files
// found. Hidden directories (e.g. .obsidian, .git) are skipped.
func collectMarkdownFiles(dirPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".md" || ext == ".markdown" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
