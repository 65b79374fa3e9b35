// Package integrity analyzes the structural health of a registry: it
// derives the hierarchy, detects cycles, classifies links and cleans up
// dangling references.
package integrity

import (
	"slices"

	"github.com/starford/lorekeep/internal/classify"
	"github.com/starford/lorekeep/internal/registry"
)

// HierarchyMap maps every id to its immediate structural parents. It is
// rebuilt from container child lists and strict-hierarchy links on every
// call; nothing about it is persisted. Parents are listed in the order the
// registry (sorted by id) yields them, without duplicates.
func HierarchyMap(r *registry.Registry) map[string][]string {
	return buildIndex(r).parents
}

type edge struct {
	child, parent string
}

// hierarchyIndex is the parent map plus how many structural facts back
// each edge, so a single fact can be masked out without a registry copy.
type hierarchyIndex struct {
	parents map[string][]string
	support map[edge]int
}

func buildIndex(r *registry.Registry) *hierarchyIndex {
	idx := &hierarchyIndex{
		parents: make(map[string][]string),
		support: make(map[edge]int),
	}
	for _, e := range r.Entities() {
		if classify.IsContainer(e) {
			seen := make(map[string]struct{}, len(e.Children))
			for _, child := range e.Children {
				if _, dup := seen[child]; dup {
					continue
				}
				seen[child] = struct{}{}
				idx.add(child, e.ID)
			}
		}
		if classify.IsStrictHierarchy(e) {
			idx.add(e.Target, e.Source)
		}
	}
	return idx
}

func (idx *hierarchyIndex) add(child, parent string) {
	k := edge{child: child, parent: parent}
	if idx.support[k] == 0 {
		idx.parents[child] = append(idx.parents[child], parent)
	}
	idx.support[k]++
}

func (idx *hierarchyIndex) lookup(id string) []string {
	return idx.parents[id]
}

// without returns a parent lookup in which the given edge has lost n of
// its supporting facts.
func (idx *hierarchyIndex) without(k edge, n int) func(string) []string {
	if idx.support[k]-n > 0 {
		return idx.lookup
	}
	return func(id string) []string {
		ps := idx.parents[id]
		if id != k.child {
			return ps
		}
		return slices.DeleteFunc(slices.Clone(ps), func(p string) bool { return p == k.parent })
	}
}

// reachesAncestor walks up from start and reports whether want is found.
// The visited set guarantees termination on a map that already loops.
func reachesAncestor(parents func(string) []string, start, want string) bool {
	visited := map[string]struct{}{start: {}}
	stack := []string{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range parents(cur) {
			if p == want {
				return true
			}
			if _, ok := visited[p]; ok {
				continue
			}
			visited[p] = struct{}{}
			stack = append(stack, p)
		}
	}
	return false
}

// IsAncestor reports whether ancestor sits somewhere above id in the
// current hierarchy.
func IsAncestor(r *registry.Registry, ancestor, id string) bool {
	return reachesAncestor(buildIndex(r).lookup, id, ancestor)
}

// Ancestors returns every id above id, nearest first.
func Ancestors(r *registry.Registry, id string) []string {
	idx := buildIndex(r)
	visited := map[string]struct{}{id: {}}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range idx.lookup(cur) {
			if _, ok := visited[p]; ok {
				continue
			}
			visited[p] = struct{}{}
			out = append(out, p)
			queue = append(queue, p)
		}
	}
	return out
}

// HasParent reports whether id has at least one structural parent.
func HasParent(r *registry.Registry, id string) bool {
	return len(buildIndex(r).lookup(id)) > 0
}
