package dag

import (
	"sort"
)

type LibraryID uint32

// Node is one library and the libraries it depends on.
type Node struct {
	Name string
	Deps []string
}

type LibraryIndex struct {
	NameToID map[string]LibraryID
	IDToName []string
}

// BuildIndex collects every library and dependency name, sorts them and
// hands out ids in order.
func BuildIndex(nodes []Node) LibraryIndex {
	uniq := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		if node.Name != "" {
			uniq[node.Name] = struct{}{}
		}
		for _, dep := range node.Deps {
			if dep == "" {
				continue
			}
			uniq[dep] = struct{}{}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]LibraryID, len(names))
	for i, name := range names {
		nameToID[name] = LibraryID(i)
	}

	return LibraryIndex{
		NameToID: nameToID,
		IDToName: names,
	}
}
