package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PrefabNode is one node of a prefab tree: a label, an optional lifetime
// in cycles (0 = permanent), and nested children spawned in order.
type PrefabNode struct {
	Label    string       `yaml:"label"`
	Lifetime int          `yaml:"lifetime"`
	Children []PrefabNode `yaml:"children"`
}

// Size returns the number of nodes in the tree rooted here.
func (n *PrefabNode) Size() int {
	total := 1
	for i := range n.Children {
		total += n.Children[i].Size()
	}
	return total
}

// PrefabEntry names a reusable tree template.
type PrefabEntry struct {
	Name string     `yaml:"name"`
	Root PrefabNode `yaml:"root"`
}

type prefabFile struct {
	Prefabs []PrefabEntry `yaml:"prefabs"`
}

// PrefabTable provides prefab lookup by name.
type PrefabTable struct {
	prefabs map[string]*PrefabNode
}

// LoadPrefabTable loads a prefab file. Duplicate names are an error, not
// a last-one-wins overwrite.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefab table: %w", err)
	}
	var file prefabFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse prefab table: %w", err)
	}
	t := &PrefabTable{
		prefabs: make(map[string]*PrefabNode, len(file.Prefabs)),
	}
	for i := range file.Prefabs {
		e := &file.Prefabs[i]
		if _, exists := t.prefabs[e.Name]; exists {
			return nil, fmt.Errorf("duplicate prefab name %q", e.Name)
		}
		t.prefabs[e.Name] = &e.Root
	}
	return t, nil
}

// Get returns the prefab with the given name, or nil if none.
func (t *PrefabTable) Get(name string) *PrefabNode {
	return t.prefabs[name]
}

// Count returns the number of prefabs loaded.
func (t *PrefabTable) Count() int {
	return len(t.prefabs)
}

// Each visits every prefab in name-sorted order.
func (t *PrefabTable) Each(fn func(name string, root *PrefabNode)) {
	names := make([]string, 0, len(t.prefabs))
	for name := range t.prefabs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn(name, t.prefabs[name])
	}
}
