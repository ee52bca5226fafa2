// Package importer loads Markdown notes into the knowledge graph. A note's
// YAML front matter describes the entity (name, type, aliases, icon,
// durability), its bullet lines become observations, and [[wiki-links]]
// become relations between notes.
package importer

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/study-flamingo/iq-mcp-sub000/pkg/types"
)

// ParsedNote is one Markdown file translated into graph terms.
type ParsedNote struct {
	// Path is the absolute filesystem path to the file.
	Path string

	// RelativePath is the path relative to the import root directory.
	RelativePath string

	// Name is the entity name: front matter "name", then "title", then the
	// first H1 heading, then the filename.
	Name string

	// EntityType comes from front matter "type" and defaults to "note".
	EntityType string

	// Aliases holds alternative names from front matter.
	Aliases []string

	// Icon is an optional emoji or short marker from front matter.
	Icon string

	// Durability applies to every observation in this note.
	Durability types.Durability

	// Observations are the note's bullet lines, wiki links flattened.
	Observations []string

	// Links are the [[wiki-link]] targets referenced anywhere in the body.
	Links []string
}

// ParseNote parses a single Markdown file's content.
func ParseNote(content []byte, absolutePath, relativePath string) (*ParsedNote, error) {
	fm, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("front matter error in %s: %w", relativePath, err)
	}

	name := extractString(fm, "name", "")
	if name == "" {
		name = extractString(fm, "title", "")
	}
	if name == "" {
		name = extractH1(body)
	}
	if name == "" {
		name = nameFromPath(relativePath)
	}

	entityType := extractString(fm, "type", "note")
	durability := types.NormalizeDurability(types.Durability(extractString(fm, "durability", "")))

	return &ParsedNote{
		Path:         absolutePath,
		RelativePath: relativePath,
		Name:         name,
		EntityType:   entityType,
		Aliases:      extractList(fm, "aliases"),
		Icon:         extractString(fm, "icon", ""),
		Durability:   durability,
		Observations: extractBullets(body),
		Links:        extractWikiLinks(body),
	}, nil
}

// splitFrontmatter separates YAML front matter (between --- delimiters) from
// the Markdown body. Returns an empty map and the full text when no front
// matter is found.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 {
		return map[string]interface{}{}, text, nil
	}

	// Front matter must start with "---" on the first line.
	if strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	// Find closing "---".
	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}

	if closeIdx == -1 {
		// No closing delimiter - treat entire file as body.
		return map[string]interface{}{}, text, nil
	}

	fmText := strings.Join(lines[1:closeIdx], "\n")
	fm := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return map[string]interface{}{}, text, fmt.Errorf("invalid YAML: %w", err)
	}

	body := strings.Join(lines[closeIdx+1:], "\n")
	return fm, body, nil
}

// nameFromPath derives a human-readable name from the file name (no extension).
func nameFromPath(rel string) string {
	base := filepath.Base(rel)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// extractH1 returns the text of the first ATX heading (# ...) found in the body.
func extractH1(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// extractString pulls a string value from front matter by key with a default.
func extractString(fm map[string]interface{}, key, defaultVal string) string {
	v, ok := fm[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return defaultVal
}

// extractList reads a front matter field that may be a YAML list or a
// comma-separated string.
func extractList(fm map[string]interface{}, key string) []string {
	raw, ok := fm[key]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		var items []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					items = append(items, s)
				}
			}
		}
		return items
	case string:
		if v == "" {
			return nil
		}
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return nil
}

// extractBullets collects the text of every bullet line ("- " or "* " at
// any indent level), deduplicated case-insensitively in order of first
// appearance. Wiki links inside a bullet are flattened to plain text.
func extractBullets(body string) []string {
	seen := make(map[string]bool)
	var bullets []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		var item string
		switch {
		case strings.HasPrefix(trimmed, "- "):
			item = trimmed[2:]
		case strings.HasPrefix(trimmed, "* "):
			item = trimmed[2:]
		default:
			continue
		}

		item = strings.TrimSpace(stripWikiLinks(item))
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		bullets = append(bullets, item)
	}
	return bullets
}

// wikilinkRe matches [[target]] and [[target|label]] patterns.
var wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]+?))?\]\]`)

// extractWikiLinks finds all [[wiki-link]] targets in the content,
// deduplicated case-insensitively in order of first appearance.
func extractWikiLinks(content string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(content, -1)

	seen := make(map[string]bool)
	var targets []string
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		key := strings.ToLower(target)
		if target == "" || seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, target)
	}
	return targets
}

// stripWikiLinks replaces [[wiki-links]] with plain text: the label when
// [[target|label]] syntax is used, otherwise the target name.
func stripWikiLinks(content string) string {
	return wikilinkRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := wikilinkRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if len(parts) >= 3 && strings.TrimSpace(parts[2]) != "" {
			return strings.TrimSpace(parts[2])
		}
		return strings.TrimSpace(parts[1])
	})
}
