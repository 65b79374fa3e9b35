package registry

// Changes lists the ids that differ between two snapshots.
type Changes struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Diff compares two snapshots. Entities are compared by pointer identity,
// which is exact for snapshots derived from one another through a Builder.
func Diff(before, after *Registry) Changes {
	var c Changes
	if before == after {
		return c
	}
	for _, id := range after.IDs() {
		prev, ok := before.Get(id)
		switch {
		case !ok:
			c.Added = append(c.Added, id)
		case prev != after.entities[id]:
			c.Updated = append(c.Updated, id)
		}
	}
	for _, id := range before.IDs() {
		if !after.Has(id) {
			c.Removed = append(c.Removed, id)
		}
	}
	return c
}
