// scenlint validates prefab and scenario YAML files before a run.
//
// Checks:
//   - prefab names are unique and non-empty
//   - prefab trees are non-empty and every node carries a label
//   - lifetimes are non-negative
//   - scenario cycle budget is positive
//   - scenario roots reference prefabs that exist
//
// Usage:
//
//	go run ./cmd/scenlint -prefabs data/prefabs.yaml data/scenarios/*.yaml
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/keelsim/keel/internal/data"
)

func main() {
	prefabPath := flag.String("prefabs", "data/prefabs.yaml", "prefab table to validate against")
	flag.Parse()

	failed := false

	prefabs, errs := lintPrefabs(*prefabPath)
	report(*prefabPath, errs)
	if len(errs) > 0 {
		failed = true
	}

	for _, path := range flag.Args() {
		errs := lintScenario(path, prefabs)
		report(path, errs)
		if len(errs) > 0 {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

func report(path string, errs []string) {
	if len(errs) == 0 {
		fmt.Printf("ok    %s\n", path)
		return
	}
	fmt.Printf("FAIL  %s\n", path)
	for _, e := range errs {
		fmt.Printf("      %s\n", e)
	}
}

func lintPrefabs(path string) (*data.PrefabTable, []string) {
	table, err := data.LoadPrefabTable(path)
	if err != nil {
		return nil, []string{err.Error()}
	}
	var errs []string
	table.Each(func(name string, root *data.PrefabNode) {
		if name == "" {
			errs = append(errs, "prefab with empty name")
		}
		walkPrefab(name, root, &errs)
	})
	return table, errs
}

func walkPrefab(prefab string, n *data.PrefabNode, errs *[]string) {
	if n.Label == "" {
		*errs = append(*errs, fmt.Sprintf("prefab %q: node with empty label", prefab))
	}
	if n.Lifetime < 0 {
		*errs = append(*errs, fmt.Sprintf("prefab %q: node %q has negative lifetime %d", prefab, n.Label, n.Lifetime))
	}
	for i := range n.Children {
		walkPrefab(prefab, &n.Children[i], errs)
	}
}

func lintScenario(path string, prefabs *data.PrefabTable) []string {
	scen, err := data.LoadScenario(path)
	if err != nil {
		return []string{err.Error()}
	}
	var errs []string
	if scen.Name == "" {
		errs = append(errs, "scenario has no name")
	}
	if scen.Cycles <= 0 {
		errs = append(errs, fmt.Sprintf("cycle budget must be positive, got %d", scen.Cycles))
	}
	if len(scen.Roots) == 0 {
		errs = append(errs, "scenario spawns no roots")
	}
	for _, root := range scen.Roots {
		if prefabs == nil {
			break
		}
		if prefabs.Get(root.Prefab) == nil {
			errs = append(errs, fmt.Sprintf("root references unknown prefab %q", root.Prefab))
		}
		if root.Count < 0 {
			errs = append(errs, fmt.Sprintf("root %q has negative count %d", root.Prefab, root.Count))
		}
	}
	return errs
}
