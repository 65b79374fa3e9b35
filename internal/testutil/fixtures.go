package testutil

import (
	"strconv"

	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// Note returns a plain Concept note titled after its id.
func Note(id string) *models.Entity {
	return &models.Entity{ID: id, Kind: models.KindNote, Title: id, Category: models.CategoryConcept}
}

// Categorized returns a plain note of the given category.
func Categorized(id string, c models.Category) *models.Entity {
	e := Note(id)
	e.Category = c
	return e
}

// Container returns a container note listing children in order.
func Container(id string, children ...string) *models.Entity {
	e := Note(id)
	e.Kind = models.KindContainer
	e.Children = children
	return e
}

// Link returns a semantic link from source to target.
func Link(id, source, target string) *models.Entity {
	return &models.Entity{
		ID: id, Kind: models.KindLink,
		Source: source, Target: target,
		Verb: "relates", InverseVerb: "related to",
	}
}

// Hierarchy returns a strict-hierarchy link in which source contains target.
func Hierarchy(id, source, target string) *models.Entity {
	e := Link(id, source, target)
	e.Verb, e.InverseVerb = "contains", "part of"
	e.Hierarchical = true
	return e
}

// Reified returns a reified link between source and target with children.
func Reified(id, source, target string, children ...string) *models.Entity {
	e := Link(id, source, target)
	e.Kind = models.KindReifiedLink
	e.Title = id
	e.Category = models.CategoryConcept
	e.Children = children
	e.Tags = []string{models.TagReified}
	return e
}

// Registry builds a registry from entities.
func Registry(entities ...*models.Entity) *registry.Registry {
	return registry.New(entities...)
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
