package mutation

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// NoteSpec describes a note to create. ID is optional.
type NoteSpec struct {
	ID         string
	Title      string
	Category   models.Category
	Gist       string
	Body       string
	Tags       []string
	Aliases    []string
	AuthorNote bool
	ParentID   string
	Extra      map[string]json.RawMessage
}

// CreateNote adds a plain note and returns its id. Without a parent the
// note is tagged as top level; with one it is attached through Reparent.
func (m *Mutator) CreateNote(r *registry.Registry, spec NoteSpec) (*registry.Registry, string, error) {
	category := spec.Category
	if category == "" {
		category = models.CategoryConcept
	}
	if _, err := models.ParseCategory(string(category)); err != nil {
		return r, "", fmt.Errorf("mutation: create note: %w: %w", apperr.ErrInvalidInput, err)
	}
	id := spec.ID
	if id == "" {
		id = m.newID()
	}
	if id == models.RootID {
		return r, "", fmt.Errorf("mutation: create note: reserved id %q: %w", id, apperr.ErrInvalidInput)
	}
	if r.Has(id) {
		return r, "", fmt.Errorf("mutation: create note %s: %w", id, apperr.ErrAlreadyExists)
	}
	if spec.ParentID != "" && spec.ParentID != models.RootID && !r.Has(spec.ParentID) {
		return r, "", fmt.Errorf("mutation: create note: parent %s: %w", spec.ParentID, apperr.ErrNotFound)
	}

	now := m.now()
	e := &models.Entity{
		ID:         id,
		Kind:       models.KindNote,
		Title:      spec.Title,
		CreatedAt:  now,
		UpdatedAt:  now,
		Tags:       slices.Clone(spec.Tags),
		Aliases:    slices.Clone(spec.Aliases),
		Category:   category,
		Gist:       spec.Gist,
		Body:       spec.Body,
		AuthorNote: spec.AuthorNote,
		Extra:      spec.Extra,
	}
	e.AddTag(models.TagRoot)

	ed := r.Edit()
	ed.Put(e)
	next := ed.Commit()

	if spec.ParentID == "" || spec.ParentID == models.RootID {
		return next, id, nil
	}
	next, err := m.Reparent(next, id, spec.ParentID, models.RootID, false)
	if err != nil {
		return r, "", err
	}
	return next, id, nil
}

// NotePatch lists the fields to overwrite. Nil fields are left alone.
// A Tags patch replaces the author tags only; structural markers are kept
// as they are and cannot be added through a patch.
type NotePatch struct {
	Title      *string
	Category   *models.Category
	Gist       *string
	Body       *string
	AuthorNote *bool
	Tags       *[]string
	Aliases    *[]string
}

// UpdateNote applies patch to a node. Links that are not reified cannot
// be patched. When the patch changes nothing, r is returned.
func (m *Mutator) UpdateNote(r *registry.Registry, id string, patch NotePatch) (*registry.Registry, error) {
	cur, ok := r.Get(id)
	if !ok || !classify.IsNode(cur) {
		return r, nil
	}
	if patch.Category != nil {
		if _, err := models.ParseCategory(string(*patch.Category)); err != nil {
			return r, fmt.Errorf("mutation: update note %s: %w: %w", id, apperr.ErrInvalidInput, err)
		}
	}

	e := cur.Clone()
	changed := false
	setString := func(dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = true
		}
	}
	setString(&e.Title, patch.Title)
	setString(&e.Gist, patch.Gist)
	setString(&e.Body, patch.Body)
	if patch.Category != nil && e.Category != *patch.Category {
		e.Category = *patch.Category
		changed = true
	}
	if patch.AuthorNote != nil && e.AuthorNote != *patch.AuthorNote {
		e.AuthorNote = *patch.AuthorNote
		changed = true
	}
	if patch.Tags != nil {
		if tags := patchTags(e.Tags, *patch.Tags); !slices.Equal(e.Tags, tags) {
			e.Tags = tags
			changed = true
		}
	}
	if patch.Aliases != nil && !slices.Equal(e.Aliases, *patch.Aliases) {
		e.Aliases = slices.Clone(*patch.Aliases)
		changed = true
	}
	if !changed {
		return r, nil
	}
	e.UpdatedAt = m.now()

	ed := r.Edit()
	ed.Put(e)
	return ed.Commit(), nil
}

func patchTags(cur, patch []string) []string {
	tags := slices.DeleteFunc(slices.Clone(patch), models.IsStructuralTag)
	for _, t := range cur {
		if models.IsStructuralTag(t) && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags
}
