package integrity

import (
	"slices"

	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/registry"
)

// PurgeDanglingLinks removes every link whose source or target does not
// resolve. Removing a reified link can strand links that pointed at it, so
// the sweep repeats until nothing changes. When nothing dangles, r itself is
// returned.
func PurgeDanglingLinks(r *registry.Registry) *registry.Registry {
	cur := r
	for {
		ed := cur.Edit()
		for _, e := range cur.Entities() {
			if classify.IsLink(e) && (!cur.Has(e.Source) || !cur.Has(e.Target)) {
				ed.Remove(e.ID)
			}
		}
		next := ed.Commit()
		if next == cur {
			return cur
		}
		cur = next
	}
}

// PruneDanglingChildren drops child ids that do not resolve from every
// container. When nothing dangles, r itself is returned.
func PruneDanglingChildren(r *registry.Registry) *registry.Registry {
	ed := r.Edit()
	for _, e := range r.Entities() {
		if !classify.IsContainer(e) {
			continue
		}
		if !slices.ContainsFunc(e.Children, func(id string) bool { return !r.Has(id) }) {
			continue
		}
		c := e.Clone()
		c.Children = slices.DeleteFunc(c.Children, func(id string) bool { return !r.Has(id) })
		ed.Put(c)
	}
	return ed.Commit()
}

// DanglingReferences lists, per entity id, the referenced ids that do not
// resolve.
func DanglingReferences(r *registry.Registry) map[string][]string {
	out := make(map[string][]string)
	for _, e := range r.Entities() {
		var missing []string
		if classify.IsLink(e) {
			for _, id := range []string{e.Source, e.Target} {
				if !r.Has(id) {
					missing = append(missing, id)
				}
			}
		}
		if classify.IsContainer(e) {
			for _, id := range e.Children {
				if !r.Has(id) {
					missing = append(missing, id)
				}
			}
		}
		if len(missing) > 0 {
			out[e.ID] = missing
		}
	}
	return out
}
