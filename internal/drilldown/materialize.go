// Package drilldown computes bounded, deterministic views of a registry
// around a focus entity.
package drilldown

import (
	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

const (
	DefaultNodeBudget = 40
	DefaultMaxDepth   = 2
)

// Options controls a materialization. Zero budgets fall back to the
// defaults; a negative MaxDepth keeps only the seeds.
type Options struct {
	FocusID         string
	ShowAuthorNotes bool
	NodeBudget      int
	MaxDepth        int
}

func (o Options) withDefaults() Options {
	if o.NodeBudget <= 0 {
		o.NodeBudget = DefaultNodeBudget
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxDepth < 0 {
		o.MaxDepth = 0
	}
	return o
}

// AnnotatedEntity is a selected entity stamped with where it was found.
type AnnotatedEntity struct {
	Entity       *models.Entity `json:"entity"`
	Depth        int            `json:"depth"`
	PathType     PathType       `json:"path_type"`
	IsParentPath bool           `json:"is_parent_path"`
}

// View is the result of a materialization keyed by entity id.
type View map[string]AnnotatedEntity

type step struct {
	id    string
	depth int
	path  PathType
}

// Materialize walks r breadth first from the focus, or from every root
// when no focus is given, and returns at most opts.NodeBudget entities no
// deeper than opts.MaxDepth. The first visit of an id wins. An unknown
// focus yields an empty view.
func Materialize(r *registry.Registry, opts Options) View {
	opts = opts.withDefaults()
	view := make(View)

	var queue []step
	if opts.FocusID != "" {
		if !r.Has(opts.FocusID) {
			return view
		}
		queue = append(queue, step{id: opts.FocusID, path: PathFocus})
	} else {
		for _, id := range Roots(r) {
			queue = append(queue, step{id: id, path: PathFocus})
		}
	}

	links := r.Filter(classify.IsLink)
	visited := make(map[string]struct{})

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(view) >= opts.NodeBudget {
			break
		}
		if cur.depth > opts.MaxDepth {
			continue
		}
		if _, seen := visited[cur.id]; seen {
			continue
		}
		visited[cur.id] = struct{}{}

		e, ok := r.Get(cur.id)
		if !ok || !selectable(r, e, opts.ShowAuthorNotes) {
			continue
		}
		view[cur.id] = AnnotatedEntity{
			Entity:       e,
			Depth:        cur.depth,
			PathType:     cur.path,
			IsParentPath: cur.path == PathAncestor,
		}

		next := cur.depth + 1
		push := func(id string, dir Direction) {
			queue = append(queue, step{id: id, depth: next, path: Propagate(cur.path, dir)})
		}

		if classify.IsContainer(e) {
			for _, child := range e.Children {
				push(child, Down)
			}
		}
		if classify.IsReified(e) {
			push(e.Source, Up)
			push(e.Target, Down)
		}
		for _, l := range links {
			switch {
			case l.Source == cur.id:
				push(l.Target, Down)
				if classify.IsReified(l) {
					push(l.ID, Down)
				}
			case l.Target == cur.id:
				push(l.Source, Up)
				if classify.IsReified(l) {
					push(l.ID, Up)
				}
			}
		}
	}
	return view
}

func selectable(r *registry.Registry, e *models.Entity, showAuthorNotes bool) bool {
	if !classify.IsNode(e) || classify.IsStory(e) {
		return false
	}
	if classify.IsReified(e) && (isStory(r, e.Source) || isStory(r, e.Target)) {
		return false
	}
	if classify.IsAuthorNote(e) && !showAuthorNotes {
		return false
	}
	return true
}

func isStory(r *registry.Registry, id string) bool {
	e, ok := r.Get(id)
	return ok && classify.IsStory(e)
}

// Roots lists the ids of every node that no container claims as a child,
// sorted.
func Roots(r *registry.Registry) []string {
	claimed := make(map[string]struct{})
	for _, e := range r.Entities() {
		if classify.IsContainer(e) {
			for _, child := range e.Children {
				claimed[child] = struct{}{}
			}
		}
	}
	var roots []string
	for _, e := range r.Entities() {
		if !classify.IsNode(e) {
			continue
		}
		if _, ok := claimed[e.ID]; !ok {
			roots = append(roots, e.ID)
		}
	}
	return roots
}
