package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPrefabTable(t *testing.T) {
	path := writeFile(t, "prefabs.yaml", `
prefabs:
  - name: squad
    root:
      label: squad
      children:
        - label: leader
        - label: support
          lifetime: 10
          children:
            - label: medkit
`)
	table, err := LoadPrefabTable(path)
	require.NoError(t, err)
	require.Equal(t, 1, table.Count())

	squad := table.Get("squad")
	require.NotNil(t, squad)
	require.Equal(t, "squad", squad.Label)
	require.Equal(t, 4, squad.Size())
	require.Len(t, squad.Children, 2)
	require.Equal(t, 10, squad.Children[1].Lifetime)

	require.Nil(t, table.Get("missing"))
}

func TestLoadPrefabTableDuplicateName(t *testing.T) {
	path := writeFile(t, "prefabs.yaml", `
prefabs:
  - name: squad
    root: {label: a}
  - name: squad
    root: {label: b}
`)
	_, err := LoadPrefabTable(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate prefab name")
}

func TestPrefabTableEachSorted(t *testing.T) {
	path := writeFile(t, "prefabs.yaml", `
prefabs:
  - name: zeta
    root: {label: z}
  - name: alpha
    root: {label: a}
`)
	table, err := LoadPrefabTable(path)
	require.NoError(t, err)

	var names []string
	table.Each(func(name string, _ *PrefabNode) { names = append(names, name) })
	require.Equal(t, []string{"alpha", "zeta"}, names)
}

func TestLoadScenario(t *testing.T) {
	path := writeFile(t, "scenario.yaml", `
name: churn
cycles: 500
script: churn.lua
seed: 42
roots:
  - prefab: squad
    count: 3
  - prefab: depot
`)
	scen, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, "churn", scen.Name)
	require.Equal(t, 500, scen.Cycles)
	require.Equal(t, int64(42), scen.Seed)
	require.Len(t, scen.Roots, 2)
	require.Equal(t, 3, scen.Roots[0].Count)
	require.Equal(t, 1, scen.Roots[1].Count, "count defaults to 1")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
