package mutation

import (
	"fmt"
	"slices"
	"time"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// Reparent moves sourceID under targetID.
//
// targetID may be models.RootID, which marks the source as top level with
// the root tag. oldParentID names where the source is being moved from;
// models.RootID or "" mean it was top level. With isReference the source
// keeps its old parent and is only added to the new one.
//
// A target that is not yet a container is promoted to one. Besides the
// child-list entry, every successful move records the new edge as a shadow
// hierarchical link so link scans see the structure too.
//
// Moving a node under one of its own descendants leaves r unchanged and
// returns apperr.ErrCycleDetected.
func (m *Mutator) Reparent(r *registry.Registry, sourceID, targetID, oldParentID string, isReference bool) (*registry.Registry, error) {
	if sourceID == targetID {
		return r, nil
	}
	source, ok := r.Get(sourceID)
	if !ok {
		return r, nil
	}

	toRoot := targetID == models.RootID
	var target *models.Entity
	if !toRoot {
		target, ok = r.Get(targetID)
		if !ok || classify.IsPlainLink(target) {
			return r, nil
		}
		if classify.IsContainer(target) && target.HasChild(sourceID) {
			return r, nil
		}
		if integrity.IsAncestor(r, sourceID, targetID) {
			return r, fmt.Errorf("mutation: reparent %s under %s: %w", sourceID, targetID, apperr.ErrCycleDetected)
		}
	}

	now := m.now()
	ed := r.Edit()
	moved := source.Clone()

	if !isReference {
		switch oldParentID {
		case "", models.RootID:
			if !toRoot {
				moved.RemoveTag(models.TagRoot)
			}
		default:
			detach(r, ed, sourceID, oldParentID, now)
		}
	}

	if toRoot {
		if source.HasTag(models.TagRoot) {
			if !ed.Changed() {
				return r, nil
			}
			return ed.Commit(), nil
		}
		moved.AddTag(models.TagRoot)
		moved.UpdatedAt = now
		ed.Put(moved)
		return ed.Commit(), nil
	}
	if !slices.Equal(moved.Tags, source.Tags) {
		moved.UpdatedAt = now
		ed.Put(moved)
	}

	// The detach step may have rewritten the target already.
	if cur, ok := ed.Get(targetID); ok {
		target = cur
	}
	parent := target.Clone()
	if !classify.IsContainer(parent) {
		parent.Kind = models.KindContainer
	}
	if !parent.HasChild(sourceID) {
		parent.Children = append(parent.Children, sourceID)
	}
	parent.UpdatedAt = now
	ed.Put(parent)

	ed.Put(m.shadowLink(targetID, sourceID))
	return ed.Commit(), nil
}

// detach removes the parent → child edge from the old parent's child list
// and deletes the plain hierarchical links that encode it.
func detach(r *registry.Registry, ed *registry.Builder, childID, parentID string, now time.Time) {
	if parent, ok := r.Get(parentID); ok && classify.IsContainer(parent) && parent.HasChild(childID) {
		p := parent.Clone()
		p.Children = slices.DeleteFunc(p.Children, func(id string) bool { return id == childID })
		p.UpdatedAt = now
		ed.Put(p)
	}
	for _, e := range r.Entities() {
		if classify.IsPlainLink(e) && e.Hierarchical && e.Source == parentID && e.Target == childID {
			ed.Remove(e.ID)
		}
	}
}
