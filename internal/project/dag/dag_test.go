package dag

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func idsToNames(idx LibraryIndex, ids []LibraryID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

func batchesToNames(idx LibraryIndex, batches [][]LibraryID) [][]string {
	out := make([][]string, len(batches))
	for i, batch := range batches {
		out[i] = idsToNames(idx, batch)
	}
	return out
}

func TestBuildIndexIncludesDependencies(t *testing.T) {
	nodes := []Node{
		{Name: "app", Deps: []string{"math", "util"}},
		{Name: "util"},
	}

	idx := BuildIndex(nodes)

	wantNames := []string{"app", "math", "util"}
	if diff := cmp.Diff(wantNames, idx.IDToName); diff != "" {
		t.Fatalf("IDToName mismatch (-want +got):\n%s", diff)
	}
	for i, want := range wantNames {
		if id, ok := idx.NameToID[want]; !ok || int(id) != i {
			t.Fatalf("idx.NameToID[%q] = %v, want %d", want, id, i)
		}
	}
}

func TestBuildGraphReportsUnknownDependencies(t *testing.T) {
	nodes := []Node{
		{Name: "app", Deps: []string{"core", "util"}},
		{Name: "core", Deps: []string{"util", "core"}},
	}
	idx := BuildIndex(nodes)
	graph, err := BuildGraph(idx, nodes)
	if !errors.Is(err, ErrUnknownDependency) || !errors.Is(err, ErrSelfDependency) {
		t.Fatalf("BuildGraph err = %v, want unknown and self dependency", err)
	}

	appID := idx.NameToID["app"]
	coreID := idx.NameToID["core"]
	utilID := idx.NameToID["util"]

	if got := graph.Edges[int(coreID)]; len(got) != 1 || got[0] != appID {
		t.Fatalf("dependents of core = %v, want [%v]", got, appID)
	}
	if got := graph.Edges[int(utilID)]; len(got) != 0 {
		t.Fatalf("dependents of missing util = %v", got)
	}
	if !graph.Present[int(appID)] || !graph.Present[int(coreID)] || graph.Present[int(utilID)] {
		t.Fatalf("unexpected Present flags: %v", graph.Present)
	}
}

func TestBuildGraphDuplicateLibraries(t *testing.T) {
	nodes := []Node{{Name: "dup"}, {Name: "dup", Deps: []string{"x"}}}
	if _, err := BuildGraph(BuildIndex(nodes), nodes); !errors.Is(err, ErrDuplicateLibrary) {
		t.Fatalf("BuildGraph err = %v, want ErrDuplicateLibrary", err)
	}
}

func TestToposortKahnBatches(t *testing.T) {
	nodes := []Node{
		{Name: "b", Deps: []string{"c"}},
		{Name: "a"},
		{Name: "c"},
	}

	idx := BuildIndex(nodes)
	graph, err := BuildGraph(idx, nodes)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	topo := ToposortKahn(graph)
	if topo.Cyclic {
		t.Fatalf("expected acyclic graph")
	}
	if diff := cmp.Diff([]string{"a", "c", "b"}, idsToNames(idx, topo.Order)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	wantBatches := [][]string{{"a", "c"}, {"b"}}
	if diff := cmp.Diff(wantBatches, batchesToNames(idx, topo.Batches)); diff != "" {
		t.Fatalf("batches mismatch (-want +got):\n%s", diff)
	}
}

func TestCycles(t *testing.T) {
	nodes := []Node{
		{Name: "a", Deps: []string{"b"}},
		{Name: "b", Deps: []string{"a"}},
		{Name: "c"},
	}
	idx := BuildIndex(nodes)
	graph, err := BuildGraph(idx, nodes)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	topo := ToposortKahn(graph)
	if !topo.Cyclic || len(topo.Cycles) != 2 {
		t.Fatalf("expected cycle with two libraries, got %+v", topo)
	}
	if err := CycleError(idx, topo); !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("CycleError = %v, want ErrDependencyCycle", err)
	}
	if _, err := Order(nodes); !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("Order err = %v, want ErrDependencyCycle", err)
	}
}

func TestOrderDependenciesFirst(t *testing.T) {
	got, err := Order([]Node{
		{Name: "app", Deps: []string{"core", "native"}},
		{Name: "core"},
		{Name: "native", Deps: []string{"core"}},
	})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if diff := cmp.Diff([]string{"core", "native", "app"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}
