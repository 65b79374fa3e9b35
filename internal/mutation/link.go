package mutation

import (
	"fmt"

	"github.com/starford/lorekeep/internal/apperr"
	"github.com/starford/lorekeep/internal/integrity"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// LinkSpec describes a link to create.
type LinkSpec struct {
	Source       string
	Target       string
	Verb         string
	InverseVerb  string
	Hierarchical bool
	Tags         []string
}

// EstablishLink connects two existing nodes with a semantic link. It is a
// no-op when either endpoint is missing.
func (m *Mutator) EstablishLink(r *registry.Registry, sourceID, targetID, verb string) *registry.Registry {
	next, _, _ := m.Connect(r, LinkSpec{Source: sourceID, Target: targetID, Verb: verb})
	return next
}

// Connect creates a link and returns the new registry with the link's id.
// Hierarchical links are checked by the integrity analyzer first and
// refused with apperr.ErrCycleDetected when they would close a loop.
// Missing endpoints make it a no-op with an empty id.
func (m *Mutator) Connect(r *registry.Registry, spec LinkSpec) (*registry.Registry, string, error) {
	if !r.Has(spec.Source) || !r.Has(spec.Target) {
		return r, "", nil
	}
	if spec.Hierarchical {
		rep := integrity.AnalyzeLinkIntegrity(spec.Source, spec.Target, r, integrity.LinkHierarchical)
		if rep.Rejected() {
			return r, "", fmt.Errorf("mutation: connect %s -> %s: %s: %w", spec.Source, spec.Target, rep.Reason, apperr.ErrCycleDetected)
		}
	}

	verb, inverse := spec.Verb, spec.InverseVerb
	switch {
	case verb == "" && spec.Hierarchical:
		verb, inverse = VerbContains, VerbPartOf
	case verb == "":
		verb, inverse = VerbRelates, VerbRelatedTo
	}

	now := m.now()
	link := &models.Entity{
		ID:           m.newID(),
		Kind:         models.KindLink,
		CreatedAt:    now,
		UpdatedAt:    now,
		Tags:         append([]string(nil), spec.Tags...),
		Source:       spec.Source,
		Target:       spec.Target,
		Verb:         verb,
		InverseVerb:  inverse,
		Hierarchical: spec.Hierarchical,
	}
	ed := r.Edit()
	ed.Put(link)
	return ed.Commit(), link.ID, nil
}

// shadowLink records parent → child as an explicit hierarchical link.
func (m *Mutator) shadowLink(parentID, childID string) *models.Entity {
	now := m.now()
	return &models.Entity{
		ID:           m.newID(),
		Kind:         models.KindLink,
		CreatedAt:    now,
		UpdatedAt:    now,
		Tags:         []string{models.TagShadow},
		Source:       parentID,
		Target:       childID,
		Verb:         VerbContains,
		InverseVerb:  VerbPartOf,
		Hierarchical: true,
	}
}
