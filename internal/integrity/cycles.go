package integrity

import (
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/starford/lorekeep/internal/registry"
)

// FindHierarchyCycles lists every loop already present in the hierarchy,
// e.g. after importing data that bypassed the mutation layer. Each loop is
// a strongly connected component of the parent graph, members sorted; a
// node that is its own parent forms a loop of one.
func FindHierarchyCycles(r *registry.Registry) [][]string {
	parents := HierarchyMap(r)

	ids := make([]string, 0, len(parents))
	seen := make(map[string]struct{})
	addID := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for child, ps := range parents {
		addID(child)
		for _, p := range ps {
			addID(p)
		}
	}
	slices.Sort(ids)

	g := simple.NewDirectedGraph()
	nodeIDs := make(map[string]int64, len(ids))
	names := make(map[int64]string, len(ids))
	for i, id := range ids {
		n := int64(i)
		nodeIDs[id] = n
		names[n] = id
		g.AddNode(simple.Node(n))
	}

	var loops [][]string
	for _, child := range ids {
		for _, p := range parents[child] {
			if p == child {
				loops = append(loops, []string{child})
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(nodeIDs[child]), g.Node(nodeIDs[p])))
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		members := make([]string, len(scc))
		for i, n := range scc {
			members[i] = names[n.ID()]
		}
		slices.Sort(members)
		loops = append(loops, members)
	}
	slices.SortFunc(loops, func(a, b []string) int {
		return slices.Compare(a, b)
	})
	return loops
}
