// Package dag orders libraries by their manifest dependencies so that every
// library is loaded after the libraries it depends on.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrDuplicateLibrary reports two nodes with the same name.
	ErrDuplicateLibrary = errors.New("duplicate library")
	// ErrUnknownDependency reports a dependency on a library that is not loaded.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrSelfDependency reports a library depending on itself.
	ErrSelfDependency = errors.New("library depends on itself")
	// ErrDependencyCycle reports libraries that depend on each other.
	ErrDependencyCycle = errors.New("dependency cycle")
)

type Graph struct {
	Edges   [][]LibraryID // Edges[dep] = libraries depending on dep
	Indeg   []int         // unresolved dependencies of each present library
	Present []bool        // the library is loaded, not only named as a dependency
}

// BuildGraph wires the dependency edges of nodes. Problems are collected
// and returned together; the graph stays usable for the remaining edges.
func BuildGraph(idx LibraryIndex, nodes []Node) (Graph, error) {
	count := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]LibraryID, count),
		Indeg:   make([]int, count),
		Present: make([]bool, count),
	}
	deps := make([][]string, count)
	for _, node := range nodes {
		id, ok := idx.NameToID[node.Name]
		if !ok {
			continue
		}
		if g.Present[id] {
			return g, fmt.Errorf("%w %q", ErrDuplicateLibrary, node.Name)
		}
		g.Present[id] = true
		deps[id] = node.Deps
	}

	var errs []error
	for from := range deps {
		if !g.Present[from] {
			continue
		}
		name := idx.IDToName[from]
		seen := make(map[LibraryID]struct{}, len(deps[from]))
		for _, dep := range deps[from] {
			if dep == "" {
				continue
			}
			to := idx.NameToID[dep]
			switch {
			case int(to) == from:
				errs = append(errs, fmt.Errorf("library %q: %w", name, ErrSelfDependency))
				continue
			case !g.Present[to]:
				errs = append(errs, fmt.Errorf("library %q depends on %q: %w", name, dep, ErrUnknownDependency))
				continue
			}
			if _, dup := seen[to]; dup {
				continue
			}
			seen[to] = struct{}{}
			g.Edges[to] = append(g.Edges[to], LibraryID(from))
			g.Indeg[from]++
		}
	}
	for i := range g.Edges {
		if len(g.Edges[i]) > 1 {
			slices.Sort(g.Edges[i])
		}
	}
	return g, errors.Join(errs...)
}

// CycleError describes the libraries left in a cycle, nil for an acyclic
// order.
func CycleError(idx LibraryIndex, topo *Topo) error {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return nil
	}
	names := make([]string, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		names = append(names, idx.IDToName[int(id)])
	}
	return fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(names, " -> "))
}
