// Package registry holds the authoritative id → entity store.
//
// A Registry is immutable once built. Every change goes through a Builder,
// which copies the index and shares untouched entities with the previous
// snapshot, so a reader holding an older *Registry never observes a later
// mutation.
package registry

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/starford/lorekeep/internal/models"
)

// Registry maps identifiers to entities.
type Registry struct {
	entities map[string]*models.Entity

	idsOnce sync.Once
	ids     []string
}

// New builds a registry from the given entities. Later duplicates win.
func New(entities ...*models.Entity) *Registry {
	m := make(map[string]*models.Entity, len(entities))
	for _, e := range entities {
		if e == nil || e.ID == "" {
			continue
		}
		m[e.ID] = e
	}
	return &Registry{entities: m}
}

// Empty returns a registry with no entities.
func Empty() *Registry {
	return &Registry{entities: map[string]*models.Entity{}}
}

// Len returns the number of entities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entities)
}

// Get returns the entity stored at id. The result must not be modified.
func (r *Registry) Get(id string) (*models.Entity, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entities[id]
	return e, ok
}

// Has reports whether id resolves.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// IDs returns every identifier in ascending order. The slice is shared
// and must not be modified.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	r.idsOnce.Do(func() {
		ids := make([]string, 0, len(r.entities))
		for id := range r.entities {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		r.ids = ids
	})
	return r.ids
}

// Entities returns every entity ordered by id.
func (r *Registry) Entities() []*models.Entity {
	ids := r.IDs()
	out := make([]*models.Entity, len(ids))
	for i, id := range ids {
		out[i] = r.entities[id]
	}
	return out
}

// Filter returns the entities, ordered by id, for which keep returns true.
func (r *Registry) Filter(keep func(*models.Entity) bool) []*models.Entity {
	var out []*models.Entity
	for _, id := range r.IDs() {
		if e := r.entities[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Edit starts a batch of changes against r.
func (r *Registry) Edit() *Builder {
	return &Builder{base: r}
}

// MarshalJSON encodes the registry as an object keyed by id.
func (r *Registry) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.entities)
}

// Decode parses the serialized registry shape. The map key is authoritative
// for an entity's id; null entries are dropped.
func Decode(data []byte) (*Registry, error) {
	var raw map[string]*models.Entity
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registry: decode: %w", err)
	}
	m := make(map[string]*models.Entity, len(raw))
	for id, e := range raw {
		if e == nil || id == "" {
			continue
		}
		e.ID = id
		m[id] = e
	}
	return &Registry{entities: m}, nil
}

// Builder accumulates changes and produces a new Registry on Commit.
// The index is copied on the first write; entities are never copied.
type Builder struct {
	base     *Registry
	entities map[string]*models.Entity
}

func (b *Builder) ensure() {
	if b.entities != nil {
		return
	}
	b.entities = make(map[string]*models.Entity, b.base.Len()+1)
	if b.base != nil {
		for id, e := range b.base.entities {
			b.entities[id] = e
		}
	}
}

// Get looks id up in the pending state.
func (b *Builder) Get(id string) (*models.Entity, bool) {
	if b.entities == nil {
		return b.base.Get(id)
	}
	e, ok := b.entities[id]
	return e, ok
}

// Put stores e at its id, replacing whatever was there.
func (b *Builder) Put(e *models.Entity) {
	b.ensure()
	b.entities[e.ID] = e
}

// Remove deletes id and reports whether it was present.
func (b *Builder) Remove(id string) bool {
	if _, ok := b.Get(id); !ok {
		return false
	}
	b.ensure()
	delete(b.entities, id)
	return true
}

// Changed reports whether any write happened.
func (b *Builder) Changed() bool {
	return b.entities != nil
}

// Commit returns the resulting registry, or the base itself when nothing
// was written.
func (b *Builder) Commit() *Registry {
	if b.entities == nil {
		return b.base
	}
	return &Registry{entities: b.entities}
}
