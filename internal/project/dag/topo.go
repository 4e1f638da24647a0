package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []LibraryID   // dependencies first, present libraries only
	Batches [][]LibraryID // waves of mutually independent libraries
	Cyclic  bool
	Cycles  []LibraryID // libraries left with unresolved dependencies
}

// ToposortKahn orders the present libraries of g. Within a batch ids are
// sorted, so the order is deterministic.
func ToposortKahn(g Graph) *Topo {
	nodeCount := len(g.Edges)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]LibraryID, 0, nodeCount),
		Batches: make([][]LibraryID, 0),
	}

	active := 0
	for i := range nodeCount {
		if g.Present[i] {
			active++
		}
	}

	current := make([]LibraryID, 0, nodeCount)
	for i := range nodeCount {
		if !g.Present[i] {
			continue
		}
		if indeg[i] == 0 {
			mID, err := safecast.Conv[LibraryID](i)
			if err != nil {
				panic(fmt.Errorf("library id overflow: %w", err))
			}
			current = append(current, mID)
		}
	}
	slices.Sort(current)

	visited := 0
	for len(current) > 0 {
		batch := make([]LibraryID, len(current))
		copy(batch, current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]LibraryID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range g.Edges[int(id)] {
				if !g.Present[int(to)] {
					continue
				}
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		for i := range nodeCount {
			if !g.Present[i] {
				continue
			}
			if indeg[i] > 0 {
				mID, err := safecast.Conv[LibraryID](i)
				if err != nil {
					panic(fmt.Errorf("library id overflow: %w", err))
				}
				topo.Cycles = append(topo.Cycles, mID)
			}
		}
		slices.Sort(topo.Cycles)
	}

	return topo
}

// Order returns the names of nodes, dependencies first.
func Order(nodes []Node) ([]string, error) {
	idx := BuildIndex(nodes)
	g, err := BuildGraph(idx, nodes)
	if err != nil {
		return nil, err
	}
	topo := ToposortKahn(g)
	if err := CycleError(idx, topo); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(topo.Order))
	for _, id := range topo.Order {
		out = append(out, idx.IDToName[int(id)])
	}
	return out, nil
}
