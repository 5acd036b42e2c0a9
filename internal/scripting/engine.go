package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/keelsim/keel/internal/core/hierarchy"
)

// Director wraps a single gopher-lua VM running the scenario script.
// Single-goroutine access only (cycle loop). Each cycle the Go side packs
// a world view table, calls the script's on_cycle function, and gets back
// an ordered list of hierarchy operations addressed by stable id.
type Director struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewDirector creates the Lua VM and loads shared library scripts from
// the lib/ subdirectory of scriptsDir, if present.
func NewDirector(scriptsDir string, log *zap.Logger) (*Director, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	d := &Director{vm: vm, log: log}
	if err := d.loadDir(filepath.Join(scriptsDir, "lib")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load lib scripts: %w", err)
	}
	return d, nil
}

// Seed seeds the VM's math.random so scripted churn is reproducible.
func (d *Director) Seed(seed int64) {
	d.vm.DoString(fmt.Sprintf("math.randomseed(%d)", seed))
}

// LoadScript runs one scenario script file, defining on_cycle.
func (d *Director) LoadScript(path string) error {
	if err := d.vm.DoFile(path); err != nil {
		return fmt.Errorf("load script %s: %w", path, err)
	}
	d.log.Debug("loaded scenario script", zap.String("file", path))
	return nil
}

// loadDir loads all .lua files in a directory.
func (d *Director) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := d.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		d.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// NodeView is one hierarchy node as exposed to the script.
type NodeView struct {
	ID       hierarchy.ID
	Label    string
	Parent   hierarchy.ID
	Children []hierarchy.ID
}

// CycleView is the world view handed to on_cycle.
type CycleView struct {
	Cycle uint64
	Nodes []NodeView
}

// Op is one hierarchy operation requested by the script. Targets are
// stable ids; Index is zero-based. Unresolvable targets are skipped by
// the director system, not errors.
type Op struct {
	Op       string // spawn, add_child, insert_children, push_children, remove_children, clear_children, replace_children, remove_parent, destroy
	Prefab   string
	Label    string
	Lifetime int
	Parent   hierarchy.ID
	Child    hierarchy.ID
	Target   hierarchy.ID
	Index    int
	Children []hierarchy.ID
}

// OnCycle calls the Lua on_cycle(view) function and parses the returned
// op list. Returns nil when the script defines no on_cycle or errors.
func (d *Director) OnCycle(view CycleView) []Op {
	fn := d.vm.GetGlobal("on_cycle")
	if fn == lua.LNil {
		return nil
	}

	t := d.vm.NewTable()
	t.RawSetString("cycle", lua.LNumber(view.Cycle))
	nodes := d.vm.NewTable()
	for i, n := range view.Nodes {
		row := d.vm.NewTable()
		row.RawSetString("id", lua.LNumber(n.ID))
		row.RawSetString("label", lua.LString(n.Label))
		row.RawSetString("parent", lua.LNumber(n.Parent))
		children := d.vm.NewTable()
		for j, c := range n.Children {
			children.RawSetInt(j+1, lua.LNumber(c))
		}
		row.RawSetString("children", children)
		nodes.RawSetInt(i+1, row)
	}
	t.RawSetString("nodes", nodes)

	if err := d.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		d.log.Error("lua on_cycle error", zap.Error(err), zap.Uint64("cycle", view.Cycle))
		return nil
	}

	result := d.vm.Get(-1)
	d.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		if result != lua.LNil {
			d.log.Error("lua on_cycle returned non-table")
		}
		return nil
	}

	var ops []Op
	rt.ForEach(func(_, v lua.LValue) {
		row, ok := v.(*lua.LTable)
		if !ok {
			return
		}
		op := Op{
			Op:       lStr(row, "op"),
			Prefab:   lStr(row, "prefab"),
			Label:    lStr(row, "label"),
			Lifetime: lInt(row, "lifetime"),
			Parent:   hierarchy.ID(lInt(row, "parent")),
			Child:    hierarchy.ID(lInt(row, "child")),
			Target:   hierarchy.ID(lInt(row, "target")),
			Index:    lInt(row, "index"),
		}
		if childTbl, ok := row.RawGetString("children").(*lua.LTable); ok {
			childTbl.ForEach(func(_, cv lua.LValue) {
				op.Children = append(op.Children, hierarchy.ID(lua.LVAsNumber(cv)))
			})
		}
		ops = append(ops, op)
	})
	return ops
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (d *Director) Close() {
	d.vm.Close()
}
