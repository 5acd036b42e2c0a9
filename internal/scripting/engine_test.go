package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keelsim/keel/internal/core/hierarchy"
)

func newTestDirector(t *testing.T, script string) *Director {
	t.Helper()
	dir := t.TempDir()
	d, err := NewDirector(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(d.Close)

	if script != "" {
		path := filepath.Join(dir, "scenario.lua")
		require.NoError(t, os.WriteFile(path, []byte(script), 0o644))
		require.NoError(t, d.LoadScript(path))
	}
	return d
}

func TestOnCycleParsesOps(t *testing.T) {
	d := newTestDirector(t, `
function on_cycle(view)
    return {
        { op = "spawn", prefab = "squad", parent = 3 },
        { op = "insert_children", parent = 1, index = 2, children = {4, 5} },
        { op = "destroy", target = 9 },
    }
end
`)
	ops := d.OnCycle(CycleView{Cycle: 10})
	require.Len(t, ops, 3)

	require.Equal(t, "spawn", ops[0].Op)
	require.Equal(t, "squad", ops[0].Prefab)
	require.Equal(t, hierarchy.ID(3), ops[0].Parent)

	require.Equal(t, "insert_children", ops[1].Op)
	require.Equal(t, 2, ops[1].Index)
	require.Equal(t, []hierarchy.ID{4, 5}, ops[1].Children)

	require.Equal(t, "destroy", ops[2].Op)
	require.Equal(t, hierarchy.ID(9), ops[2].Target)
}

func TestOnCycleSeesView(t *testing.T) {
	d := newTestDirector(t, `
function on_cycle(view)
    local out = {}
    for _, n in ipairs(view.nodes) do
        if n.label == "squad" and #n.children == 2 then
            out[#out + 1] = { op = "clear_children", parent = n.id }
        end
    end
    return out
end
`)
	view := CycleView{
		Cycle: 1,
		Nodes: []NodeView{
			{ID: 1, Label: "squad", Children: []hierarchy.ID{2, 3}},
			{ID: 4, Label: "depot"},
		},
	}
	ops := d.OnCycle(view)
	require.Len(t, ops, 1)
	require.Equal(t, "clear_children", ops[0].Op)
	require.Equal(t, hierarchy.ID(1), ops[0].Parent)
}

func TestOnCycleWithoutHandler(t *testing.T) {
	d := newTestDirector(t, "")
	require.Nil(t, d.OnCycle(CycleView{Cycle: 1}))
}

func TestOnCycleNonTableReturn(t *testing.T) {
	d := newTestDirector(t, `function on_cycle(view) return 42 end`)
	require.Nil(t, d.OnCycle(CycleView{Cycle: 1}))
}

func TestOnCycleRuntimeErrorIsContained(t *testing.T) {
	d := newTestDirector(t, `function on_cycle(view) error("boom") end`)
	require.Nil(t, d.OnCycle(CycleView{Cycle: 1}))
}

func TestLoadsLibScripts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "util.lua"),
		[]byte(`function double(n) return n * 2 end`), 0o644))

	d, err := NewDirector(dir, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	path := filepath.Join(dir, "scenario.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
function on_cycle(view)
    return { { op = "destroy", target = double(view.cycle) } }
end
`), 0o644))
	require.NoError(t, d.LoadScript(path))

	ops := d.OnCycle(CycleView{Cycle: 3})
	require.Len(t, ops, 1)
	require.Equal(t, hierarchy.ID(6), ops[0].Target)
}
