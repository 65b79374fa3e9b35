package graphservice

import (
	"context"
	"fmt"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/mutation"
	"github.com/starford/lorekeep/internal/registry"
)

// CreateNote adds a note.
func (s *Service) CreateNote(ctx context.Context, spec mutation.NoteSpec) (Result, error) {
	return s.apply(ctx, "create_note", func(r *registry.Registry) (*registry.Registry, string, error) {
		return s.mut.CreateNote(r, spec)
	})
}

// UpdateNote patches a node.
func (s *Service) UpdateNote(ctx context.Context, id string, patch mutation.NotePatch) (Result, error) {
	return s.apply(ctx, "update_note", func(r *registry.Registry) (*registry.Registry, string, error) {
		if !r.Has(id) {
			return r, id, fmt.Errorf("graphservice: update %s: %w", id, apperr.ErrNotFound)
		}
		next, err := s.mut.UpdateNote(r, id, patch)
		return next, id, err
	})
}

// Delete removes an entity with its cascade.
func (s *Service) Delete(ctx context.Context, id string) (Result, error) {
	return s.apply(ctx, "delete", func(r *registry.Registry) (*registry.Registry, string, error) {
		if !r.Has(id) {
			return r, id, fmt.Errorf("graphservice: delete %s: %w", id, apperr.ErrNotFound)
		}
		return s.mut.Delete(r, id), id, nil
	})
}

// EstablishLink creates a semantic link.
func (s *Service) EstablishLink(ctx context.Context, source, target, verb string) (Result, error) {
	return s.Connect(ctx, mutation.LinkSpec{Source: source, Target: target, Verb: verb})
}

// Connect creates a link of any kind.
func (s *Service) Connect(ctx context.Context, spec mutation.LinkSpec) (Result, error) {
	return s.apply(ctx, "connect", func(r *registry.Registry) (*registry.Registry, string, error) {
		return s.mut.Connect(r, spec)
	})
}

// Reparent moves source under target.
func (s *Service) Reparent(ctx context.Context, source, target, oldParent string, isReference bool) (Result, error) {
	return s.apply(ctx, "reparent", func(r *registry.Registry) (*registry.Registry, string, error) {
		next, err := s.mut.Reparent(r, source, target, oldParent, isReference)
		return next, source, err
	})
}

// ReifyLink promotes a link into a reified link.
func (s *Service) ReifyLink(ctx context.Context, id string) (Result, error) {
	return s.apply(ctx, "reify_link", func(r *registry.Registry) (*registry.Registry, string, error) {
		return s.mut.ReifyLink(r, id), id, nil
	})
}

// ReifyNode promotes a note into a container.
func (s *Service) ReifyNode(ctx context.Context, id string) (Result, error) {
	return s.apply(ctx, "reify_node", func(r *registry.Registry) (*registry.Registry, string, error) {
		return s.mut.ReifyNode(r, id), id, nil
	})
}

// ReifyNodeToLink turns a node into a reified link between two others.
func (s *Service) ReifyNodeToLink(ctx context.Context, id, source, target string) (Result, error) {
	return s.apply(ctx, "reify_node_to_link", func(r *registry.Registry) (*registry.Registry, string, error) {
		return s.mut.ReifyNodeToLink(r, id, source, target), id, nil
	})
}

// Purge removes dangling links and then strips unresolved child ids.
func (s *Service) Purge(ctx context.Context) (Result, error) {
	return s.apply(ctx, "purge", func(r *registry.Registry) (*registry.Registry, string, error) {
		return integrity.PruneDanglingChildren(integrity.PurgeDanglingLinks(r)), "", nil
	})
}
