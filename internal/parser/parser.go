// Package parser turns Markdown documents with YAML frontmatter into note
// descriptions for the importer.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// frontmatter is the recognised header of an imported note. Keys it does
// not name are kept in Extra.
type frontmatter struct {
	ID         string         `yaml:"id"`
	Title      string         `yaml:"title"`
	Category   string         `yaml:"category"`
	Gist       string         `yaml:"gist"`
	Tags       []string       `yaml:"tags"`
	Aliases    []string       `yaml:"aliases"`
	AuthorNote bool           `yaml:"author_note"`
	Parent     string         `yaml:"parent"`
	Extra      map[string]any `yaml:",inline"`
}

// Document holds the output of parsing one Markdown note.
type Document struct {
	ID         string
	Title      string
	Category   string
	Gist       string
	Body       string
	Tags       []string
	Aliases    []string
	AuthorNote bool
	// Parent names the containing note by title, alias or id.
	Parent string
	// Links are the deduplicated [[wikilink]] targets in body order.
	Links []string
	Extra map[string]any
}

// Parse extracts frontmatter, body, wikilinks, and tags from raw Markdown bytes.
func Parse(data []byte) (*Document, error) {
	fm, body := splitFrontmatter(data)

	doc := &Document{
		ID:         strings.TrimSpace(fm.ID),
		Title:      deriveTitle(fm.Title, body),
		Category:   strings.TrimSpace(fm.Category),
		Gist:       strings.TrimSpace(fm.Gist),
		Body:       body,
		Tags:       extractTags(body, fm.Tags),
		Aliases:    cleanList(fm.Aliases),
		AuthorNote: fm.AuthorNote,
		Parent:     strings.TrimSpace(fm.Parent),
		Links:      extractLinks(body),
	}
	if len(fm.Extra) > 0 {
		doc.Extra = fm.Extra
	}
	return doc, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return frontmatter{}, string(data)
	}

	// Find end delimiter.
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return frontmatter{}, string(data)
	}

	yamlBlock := rest[:idx]
	// Body starts after closing delimiter line.
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm frontmatter
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole document as body.
		return frontmatter{}, string(data)
	}
	return fm, body
}

// extractLinks returns deduplicated wikilink targets, normalising aliases.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		raw := m[1]
		// Handle aliases: [[Target|Alias]] → Target.
		target := raw
		if i := strings.Index(raw, "|"); i >= 0 {
			target = raw[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractTags merges frontmatter tags with inline #tags from body.
func extractTags(body string, declared []string) []string {
	out := cleanList(declared)
	seen := make(map[string]struct{}, len(out))
	for _, t := range out {
		seen[t] = struct{}{}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func cleanList(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(declared, body string) string {
	if s := strings.TrimSpace(declared); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
