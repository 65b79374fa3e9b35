// Package classify categorizes graph objects by structural role.
//
// Every predicate looks at a single entity only and never consults a
// registry, so callers can reason about one entity without a graph-wide
// lookup. A nil entity satisfies no predicate.
package classify

import "github.com/starford/lorekeep/internal/models"

// IsLink reports whether e connects two endpoints. Reified links count.
func IsLink(e *models.Entity) bool {
	return e != nil && (e.Kind == models.KindLink || e.Kind == models.KindReifiedLink)
}

// IsContainer reports whether e can hold children. Reified links count.
func IsContainer(e *models.Entity) bool {
	return e != nil && (e.Kind == models.KindContainer || e.Kind == models.KindReifiedLink)
}

// IsReified reports whether e is a link promoted to a node.
func IsReified(e *models.Entity) bool {
	return e != nil && e.Kind == models.KindReifiedLink
}

// IsPlainLink reports whether e is a link that is not reified.
func IsPlainLink(e *models.Entity) bool {
	return e != nil && e.Kind == models.KindLink
}

// IsPlainNote reports whether e is a note with no children and no endpoints.
func IsPlainNote(e *models.Entity) bool {
	return e != nil && e.Kind == models.KindNote
}

// IsStrictHierarchy reports whether e is a link with parent/child
// semantics, i.e. one that takes part in cycle checks.
func IsStrictHierarchy(e *models.Entity) bool {
	return IsLink(e) && e.Hierarchical
}

// IsNode reports whether e is something a view can show: anything that is
// not a link, or a reified link.
func IsNode(e *models.Entity) bool {
	return e != nil && (!IsLink(e) || IsReified(e))
}

// IsStory reports whether e belongs to the narrative structure.
func IsStory(e *models.Entity) bool {
	return e != nil && e.Category == models.CategoryStory
}

// IsAuthorNote reports whether e is meta-commentary by the author.
func IsAuthorNote(e *models.Entity) bool {
	return e != nil && e.AuthorNote
}

// IsSnapshot reports whether e records a past state.
func IsSnapshot(e *models.Entity) bool {
	return e != nil && e.Snapshot
}
