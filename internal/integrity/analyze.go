package integrity

import (
	"fmt"

	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// Status is the verdict on a link.
type Status string

const (
	StatusApproved  Status = "APPROVED"
	StatusRedundant Status = "REDUNDANT"
	// StatusImplied is reserved for path-based redundancy detection, which
	// is switched off: semantic links are always approved.
	StatusImplied Status = "IMPLIED"
)

// LinkKind is the kind of link being proposed or audited.
type LinkKind string

const (
	LinkHierarchical LinkKind = "hierarchical"
	LinkSemantic     LinkKind = "semantic"
	LinkReified      LinkKind = "reified"
)

// ParseLinkKind maps a wire value to a LinkKind. Empty means semantic.
func ParseLinkKind(s string) (LinkKind, error) {
	switch LinkKind(s) {
	case "", LinkSemantic:
		return LinkSemantic, nil
	case LinkHierarchical, LinkReified:
		return LinkKind(s), nil
	}
	return "", fmt.Errorf("integrity: unknown link kind %q", s)
}

// KindOf classifies an existing link.
func KindOf(e *models.Entity) LinkKind {
	switch {
	case classify.IsReified(e):
		return LinkReified
	case classify.IsStrictHierarchy(e):
		return LinkHierarchical
	default:
		return LinkSemantic
	}
}

// Report is the outcome of analyzing one link.
type Report struct {
	Status     Status `json:"status"`
	IsCycle    bool   `json:"is_cycle,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Rejected reports whether a write carrying this verdict must not be applied.
func (r Report) Rejected() bool {
	return r.IsCycle
}

// DetectCycle reports whether adding a hierarchical edge that makes source
// the parent of target would close a loop: either they are the same node,
// or target already sits above source.
func DetectCycle(source, target string, r *registry.Registry) bool {
	return detectCycle(buildIndex(r).lookup, source, target)
}

func detectCycle(parents func(string) []string, source, target string) bool {
	if source == target {
		return true
	}
	return reachesAncestor(parents, source, target)
}

// AnalyzeLinkIntegrity classifies a candidate link from source to target.
// Only hierarchical links can be rejected, and only for closing a cycle.
func AnalyzeLinkIntegrity(source, target string, r *registry.Registry, kind LinkKind) Report {
	if kind != LinkHierarchical {
		return approved()
	}
	return analyzeHierarchical(buildIndex(r).lookup, source, target)
}

func analyzeHierarchical(parents func(string) []string, source, target string) Report {
	if !detectCycle(parents, source, target) {
		return approved()
	}
	reason := fmt.Sprintf("structural loop: %s is already above %s", target, source)
	if source == target {
		reason = fmt.Sprintf("structural loop: %s cannot contain itself", source)
	}
	return Report{
		Status:     StatusRedundant,
		IsCycle:    true,
		Reason:     reason,
		Suggestion: "connect them with a semantic link instead",
	}
}

func approved() Report {
	return Report{Status: StatusApproved}
}

// IntegrityMap audits every link in r. Each strict-hierarchy link is judged
// as if it were absent, together with the matching child-list entry of its
// source container, so it cannot vouch for itself. Links touching a
// snapshot are left out entirely.
func IntegrityMap(r *registry.Registry) map[string]Report {
	idx := buildIndex(r)
	out := make(map[string]Report)
	for _, e := range r.Entities() {
		if !classify.IsLink(e) {
			continue
		}
		if touchesSnapshot(r, e) {
			continue
		}
		kind := KindOf(e)
		if kind != LinkHierarchical {
			out[e.ID] = approved()
			continue
		}
		masked := 1
		if src, ok := r.Get(e.Source); ok && classify.IsContainer(src) && src.HasChild(e.Target) {
			masked++
		}
		parents := idx.without(edge{child: e.Target, parent: e.Source}, masked)
		out[e.ID] = analyzeHierarchical(parents, e.Source, e.Target)
	}
	return out
}

// Flagged returns only the reports that are not approved.
func Flagged(reports map[string]Report) map[string]Report {
	out := make(map[string]Report)
	for id, rep := range reports {
		if rep.Status != StatusApproved {
			out[id] = rep
		}
	}
	return out
}

func touchesSnapshot(r *registry.Registry, link *models.Entity) bool {
	src, _ := r.Get(link.Source)
	tgt, _ := r.Get(link.Target)
	return classify.IsSnapshot(src) || classify.IsSnapshot(tgt)
}
