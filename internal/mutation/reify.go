package mutation

import (
	"fmt"

	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/models"
	"github.com/starford/lorekeep/internal/registry"
)

// ReifyLink promotes a plain link into a reified link: a node that keeps
// its endpoints and verbs but gains a title, a gist and an empty child list.
func (m *Mutator) ReifyLink(r *registry.Registry, linkID string) *registry.Registry {
	link, ok := r.Get(linkID)
	if !ok || !classify.IsPlainLink(link) {
		return r
	}

	src := endpointName(r, link.Source)
	tgt := endpointName(r, link.Target)
	verb := link.Verb
	if verb == "" {
		verb = VerbRelates
	}

	e := link.Clone()
	e.Kind = models.KindReifiedLink
	e.Title = fmt.Sprintf("%s ↔ %s", src, tgt)
	e.Gist = verb
	e.Body = fmt.Sprintf("%s %s %s", src, verb, tgt)
	if e.Category == "" {
		e.Category = models.CategoryConcept
	}
	e.Children = []string{}
	e.AddTag(models.TagReified)
	e.UpdatedAt = m.now()

	ed := r.Edit()
	ed.Put(e)
	return ed.Commit()
}

// ReifyNode turns a plain note into a container with no children. The
// note keeps its category and content.
func (m *Mutator) ReifyNode(r *registry.Registry, nodeID string) *registry.Registry {
	node, ok := r.Get(nodeID)
	if !ok || classify.IsContainer(node) || classify.IsLink(node) {
		return r
	}

	e := node.Clone()
	e.Kind = models.KindContainer
	e.Children = []string{}
	e.UpdatedAt = m.now()

	ed := r.Edit()
	ed.Put(e)
	return ed.Commit()
}

// ReifyNodeToLink rewrites a note or container into a reified link between
// sourceID and targetID. Plain links that directly connect the node with
// either endpoint, in either direction, are deleted first so the pair is
// not connected twice. Existing children are kept.
func (m *Mutator) ReifyNodeToLink(r *registry.Registry, nodeID, sourceID, targetID string) *registry.Registry {
	node, ok := r.Get(nodeID)
	if !ok || classify.IsLink(node) {
		return r
	}
	if !r.Has(sourceID) || !r.Has(targetID) || nodeID == sourceID || nodeID == targetID {
		return r
	}

	ed := r.Edit()
	for _, e := range r.Entities() {
		if !classify.IsPlainLink(e) {
			continue
		}
		if connects(e, nodeID, sourceID) || connects(e, nodeID, targetID) {
			ed.Remove(e.ID)
		}
	}

	e := node.Clone()
	e.Kind = models.KindReifiedLink
	e.Source = sourceID
	e.Target = targetID
	e.Verb = VerbRelates
	e.InverseVerb = VerbRelatedTo
	e.Hierarchical = false
	if e.Children == nil {
		e.Children = []string{}
	}
	e.AddTag(models.TagReified)
	e.UpdatedAt = m.now()
	ed.Put(e)
	return ed.Commit()
}

// connects reports whether link joins a and b in either direction.
func connects(link *models.Entity, a, b string) bool {
	return (link.Source == a && link.Target == b) || (link.Source == b && link.Target == a)
}

func endpointName(r *registry.Registry, id string) string {
	if e, ok := r.Get(id); ok {
		return e.DisplayName()
	}
	return id
}
