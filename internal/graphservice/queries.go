package graphservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/drilldown"
	"github.com/starford/lorekeep/internal/index"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/metrics"
	"github.com/starford/lorekeep/internal/models"
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Kind     models.Kind
	Category models.Category
	Tag      string
	Limit    int
	Offset   int
}

// Get returns one entity.
func (s *Service) Get(_ context.Context, id string) (*models.Entity, error) {
	e, ok := s.Registry().Get(id)
	if !ok {
		return nil, fmt.Errorf("graphservice: entity %s: %w", id, apperr.ErrNotFound)
	}
	return e, nil
}

// List returns the entities matching f in id order and the total number of
// matches before paging.
func (s *Service) List(_ context.Context, f Filter) ([]*models.Entity, int) {
	all := s.Registry().Filter(func(e *models.Entity) bool {
		if f.Kind != "" && e.Kind != f.Kind {
			return false
		}
		if f.Category != "" && e.Category != f.Category {
			return false
		}
		return f.Tag == "" || e.HasTag(f.Tag)
	})
	total := len(all)
	if f.Offset > 0 {
		all = all[min(f.Offset, len(all)):]
	}
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, total
}

// DrilldownQuery is a caller's drilldown request. Zero budgets and a nil
// AuthorNotes fall back to the configured defaults.
type DrilldownQuery struct {
	FocusID     string
	NodeBudget  int
	MaxDepth    int
	AuthorNotes *bool
}

// Drilldown materializes a view.
func (s *Service) Drilldown(_ context.Context, q DrilldownQuery) (drilldown.View, []drilldown.Edge) {
	opts := s.opts.Drilldown
	opts.FocusID = q.FocusID
	if q.NodeBudget != 0 {
		opts.NodeBudget = q.NodeBudget
	}
	if q.MaxDepth != 0 {
		opts.MaxDepth = q.MaxDepth
	}
	if q.AuthorNotes != nil {
		opts.ShowAuthorNotes = *q.AuthorNotes
	}
	r := s.Registry()
	view := drilldown.Materialize(r, opts)
	metrics.ObserveDrilldown(len(view))
	return view, drilldown.Edges(view, r)
}

// HierarchyMap returns every id's structural parents.
func (s *Service) HierarchyMap(_ context.Context) map[string][]string {
	return integrity.HierarchyMap(s.Registry())
}

// IntegrityReport runs the bulk analysis. With flaggedOnly only rejected
// links are returned.
func (s *Service) IntegrityReport(_ context.Context, flaggedOnly bool) map[string]integrity.Report {
	all := integrity.IntegrityMap(s.Registry())
	flagged := integrity.Flagged(all)
	metrics.SetIntegrityFlagged(len(flagged))
	if flaggedOnly {
		return flagged
	}
	return all
}

// Analyze classifies a prospective link.
func (s *Service) Analyze(_ context.Context, source, target string, kind integrity.LinkKind) integrity.Report {
	return integrity.AnalyzeLinkIntegrity(source, target, s.Registry(), kind)
}

// Cycles lists hierarchy loops already present in the registry.
func (s *Service) Cycles(_ context.Context) [][]string {
	return integrity.FindHierarchyCycles(s.Registry())
}

// Dangling lists unresolved references per entity.
func (s *Service) Dangling(_ context.Context) map[string][]string {
	return integrity.DanglingReferences(s.Registry())
}

// Search runs a full-text query through the index, or a title scan when
// no index is configured.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db != nil {
		return s.db.Search(query, limit)
	}
	if limit <= 0 {
		limit = 20
	}
	var out []index.SearchResult
	for _, e := range s.Registry().Entities() {
		if len(out) == limit {
			break
		}
		if containsFold(e.DisplayName(), query) || containsFold(e.Gist, query) || containsFold(e.Body, query) {
			out = append(out, index.SearchResult{ID: e.ID, Title: e.DisplayName(), Snippet: e.Gist})
		}
	}
	return out, nil
}

// Backlinks returns the links pointing at id.
func (s *Service) Backlinks(_ context.Context, id string) ([]index.LinkRow, error) {
	if s.db != nil {
		return s.db.Backlinks(id)
	}
	var out []index.LinkRow
	for _, l := range s.Registry().Filter(classify.IsLink) {
		if l.Target == id {
			out = append(out, index.LinkRow{
				ID: l.ID, Source: l.Source, Target: l.Target, Verb: l.Verb,
				Hierarchical: l.Hierarchical, Reified: classify.IsReified(l),
			})
		}
	}
	return out, nil
}

// Ancestors lists id's ancestors nearest first.
func (s *Service) Ancestors(_ context.Context, id string) []string {
	return integrity.Ancestors(s.Registry(), id)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
