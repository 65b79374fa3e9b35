package drilldown

import (
	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/registry"
)

// Edge is a renderable connection between two entities of a view.
type Edge struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Label        string `json:"label,omitempty"`
	Hierarchical bool   `json:"hierarchical"`
	Containment  bool   `json:"containment,omitempty"`
}

// Edges returns the links and child-list edges of r whose endpoints are
// both in view, ordered by source then by registry order.
func Edges(view View, r *registry.Registry) []Edge {
	var out []Edge
	for _, id := range r.IDs() {
		a, ok := view[id]
		if !ok {
			continue
		}
		e := a.Entity
		if classify.IsContainer(e) {
			for _, child := range e.Children {
				if _, in := view[child]; in {
					out = append(out, Edge{Source: id, Target: child, Hierarchical: true, Containment: true})
				}
			}
		}
	}
	for _, l := range r.Filter(classify.IsLink) {
		_, src := view[l.Source]
		_, tgt := view[l.Target]
		if !src || !tgt {
			continue
		}
		out = append(out, Edge{
			ID:           l.ID,
			Source:       l.Source,
			Target:       l.Target,
			Label:        l.Verb,
			Hierarchical: classify.IsStrictHierarchy(l),
		})
	}
	return out
}
