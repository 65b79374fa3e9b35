package graphservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/mutation"
	"github.com/starford/lorekeep/internal/parser"
	"github.com/starford/lorekeep/internal/registry"
)

// VerbMentions labels links created from [[wikilinks]].
const VerbMentions = "mentions"

// ImportReport summarizes a Markdown import.
type ImportReport struct {
	Created    []string          `json:"created"`
	Updated    []string          `json:"updated"`
	Links      int               `json:"links"`
	Unresolved []string          `json:"unresolved,omitempty"`
	Skipped    map[string]string `json:"skipped,omitempty"`
}

// ImportMarkdown merges parsed documents into the registry as one undoable
// step. A document whose id, title or alias names an existing node
// updates it; otherwise a note is created. Parents and wikilinks are
// resolved against the merged registry by id, title or alias.
func (s *Service) ImportMarkdown(ctx context.Context, docs []*parser.Document) (ImportReport, Result, error) {
	var report ImportReport
	res, err := s.apply(ctx, "import_markdown", func(r *registry.Registry) (*registry.Registry, string, error) {
		report = ImportReport{}
		return s.importDocs(r, docs, &report)
	})
	return report, res, err
}

// ImportMarkdownDir parses every .md file below dir and imports them.
func (s *Service) ImportMarkdownDir(ctx context.Context, dir string) (ImportReport, Result, error) {
	files, err := s.store.List(dir, ".md")
	if err != nil {
		return ImportReport{}, Result{}, err
	}
	docs := make([]*parser.Document, 0, len(files))
	for _, f := range files {
		data, err := s.store.Read(f.Path)
		if err != nil {
			s.logger.Warn("import: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		doc, err := parser.Parse(data)
		if err != nil {
			s.logger.Warn("import: parse failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if doc.Title == "" {
			doc.Title = strings.TrimSuffix(f.Path[strings.LastIndex(f.Path, "/")+1:], ".md")
		}
		docs = append(docs, doc)
	}
	return s.ImportMarkdown(ctx, docs)
}

func (s *Service) importDocs(r *registry.Registry, docs []*parser.Document, report *ImportReport) (*registry.Registry, string, error) {
	names := newResolver(r)
	ids := make([]string, len(docs))
	created := make(map[string]bool)

	for i, doc := range docs {
		label := docLabel(doc, i)
		category := models.Category(doc.Category)
		if category != "" {
			if _, err := models.ParseCategory(doc.Category); err != nil {
				report.skip(label, err.Error())
				continue
			}
		}
		extra, err := encodeExtra(doc.Extra)
		if err != nil {
			report.skip(label, err.Error())
			continue
		}

		id := doc.ID
		if id == "" {
			id = names.resolve(doc.Title)
		}
		if existing, ok := r.Get(id); ok && classify.IsNode(existing) {
			patch := mutation.NotePatch{Body: &doc.Body}
			if doc.Title != "" {
				patch.Title = &doc.Title
			}
			if doc.Gist != "" {
				patch.Gist = &doc.Gist
			}
			if category != "" {
				patch.Category = &category
			}
			if doc.Tags != nil {
				patch.Tags = &doc.Tags
			}
			if doc.Aliases != nil {
				patch.Aliases = &doc.Aliases
			}
			if doc.AuthorNote {
				patch.AuthorNote = &doc.AuthorNote
			}
			next, err := s.mut.UpdateNote(r, id, patch)
			if err != nil {
				report.skip(label, err.Error())
				continue
			}
			if next != r {
				report.Updated = append(report.Updated, id)
			}
			r = next
		} else {
			next, newID, err := s.mut.CreateNote(r, mutation.NoteSpec{
				ID:         doc.ID,
				Title:      doc.Title,
				Category:   category,
				Gist:       doc.Gist,
				Body:       doc.Body,
				Tags:       doc.Tags,
				Aliases:    doc.Aliases,
				AuthorNote: doc.AuthorNote,
				Extra:      extra,
			})
			if err != nil {
				report.skip(label, err.Error())
				continue
			}
			r, id = next, newID
			created[id] = true
			report.Created = append(report.Created, id)
		}
		ids[i] = id
		names.add(id, doc.Title, doc.Aliases)
	}

	for i, doc := range docs {
		id := ids[i]
		if id == "" {
			continue
		}
		if doc.Parent != "" {
			parent := names.resolve(doc.Parent)
			if parent == "" {
				report.Unresolved = append(report.Unresolved, doc.Parent)
			} else {
				oldParent, isRef := models.RootID, !created[id]
				next, err := s.mut.Reparent(r, id, parent, oldParent, isRef)
				switch {
				case errors.Is(err, apperr.ErrCycleDetected):
					report.skip(docLabel(doc, i), err.Error())
				case err != nil:
					return r, "", err
				default:
					r = next
				}
			}
		}
		for _, target := range doc.Links {
			tid := names.resolve(target)
			if tid == "" {
				report.Unresolved = append(report.Unresolved, target)
				continue
			}
			if tid == id || linked(r, id, tid) {
				continue
			}
			next := s.mut.EstablishLink(r, id, tid, VerbMentions)
			if next != r {
				report.Links++
			}
			r = next
		}
	}
	return r, "", nil
}

func (rep *ImportReport) skip(label, reason string) {
	if rep.Skipped == nil {
		rep.Skipped = make(map[string]string)
	}
	rep.Skipped[label] = reason
}

func docLabel(doc *parser.Document, i int) string {
	switch {
	case doc.ID != "":
		return doc.ID
	case doc.Title != "":
		return doc.Title
	}
	return fmt.Sprintf("#%d", i)
}

func encodeExtra(extra map[string]any) (map[string]json.RawMessage, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("frontmatter %q: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

// linked reports whether any link already joins a and b in either direction.
func linked(r *registry.Registry, a, b string) bool {
	for _, l := range r.Filter(classify.IsLink) {
		if (l.Source == a && l.Target == b) || (l.Source == b && l.Target == a) {
			return true
		}
	}
	return false
}

// resolver maps ids, titles and aliases to node ids. Lookups by name are
// case-insensitive; the first node to claim a name keeps it.
type resolver struct {
	ids   map[string]struct{}
	names map[string]string
}

func newResolver(r *registry.Registry) *resolver {
	res := &resolver{ids: make(map[string]struct{}), names: make(map[string]string)}
	for _, e := range r.Filter(classify.IsNode) {
		res.add(e.ID, e.Title, e.Aliases)
	}
	return res
}

func (res *resolver) add(id, title string, aliases []string) {
	res.ids[id] = struct{}{}
	for _, name := range append([]string{title}, aliases...) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, taken := res.names[key]; !taken {
			res.names[key] = id
		}
	}
}

func (res *resolver) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if _, ok := res.ids[ref]; ok {
		return ref
	}
	return res.names[strings.ToLower(ref)]
}
