package mutation

import (
	"slices"

	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/registry"
)

// Delete removes id together with every link that has it as an endpoint,
// then strips all removed ids from every container's child list. Links
// that pointed at a removed link are removed as well.
func (m *Mutator) Delete(r *registry.Registry, id string) *registry.Registry {
	if !r.Has(id) {
		return r
	}

	ed := r.Edit()
	removed := make(map[string]struct{})
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !ed.Remove(cur) {
			continue
		}
		removed[cur] = struct{}{}
		for _, e := range r.Entities() {
			if _, gone := removed[e.ID]; gone {
				continue
			}
			if classify.IsLink(e) && (e.Source == cur || e.Target == cur) {
				queue = append(queue, e.ID)
			}
		}
	}

	isRemoved := func(child string) bool {
		_, gone := removed[child]
		return gone
	}
	now := m.now()
	for _, e := range r.Entities() {
		if isRemoved(e.ID) || !classify.IsContainer(e) || !slices.ContainsFunc(e.Children, isRemoved) {
			continue
		}
		c := e.Clone()
		c.Children = slices.DeleteFunc(c.Children, isRemoved)
		c.UpdatedAt = now
		ed.Put(c)
	}
	return ed.Commit()
}
