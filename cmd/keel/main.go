package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/keelsim/keel/internal/config"
	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/data"
	"github.com/keelsim/keel/internal/persist"
	"github.com/keelsim/keel/internal/scripting"
	"github.com/keelsim/keel/internal/system"
	"github.com/keelsim/keel/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(scenario string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              keel  v0.1.0                 \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      hierarchy simulation kernel          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mscenario:\033[0m %s\n\n", scenario)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulation logic ──────────────────────────────────────────

func run() error {
	cfgPath := "config/keel.toml"
	if p := os.Getenv("KEEL_CONFIG"); p != "" {
		cfgPath = p
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "config file path")
	verify := flag.Bool("verify", false, "run the scenario twice and compare final digests")
	resume := flag.Bool("resume", false, "restore the latest snapshot before running")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Sim.ScenarioPath)

	// Data loading
	printSection("data")

	prefabs, err := data.LoadPrefabTable(cfg.Sim.PrefabPath)
	if err != nil {
		return fmt.Errorf("load prefabs: %w", err)
	}
	printStat("prefab templates", prefabs.Count())

	scen, err := data.LoadScenario(cfg.Sim.ScenarioPath)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	printStat("scenario cycles", scen.Cycles)
	printStat("scenario roots", len(scen.Roots))
	fmt.Println()

	if *verify {
		return runVerify(cfg, prefabs, scen, log)
	}

	// Database (optional: empty DSN runs without persistence)
	var db *persist.DB
	if cfg.Database.DSN != "" {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err = persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		fmt.Println()
	}

	sim, err := newSimulation(cfg, prefabs, scen, db, log)
	if err != nil {
		return err
	}
	defer sim.dir.Close()

	if *resume {
		if db == nil {
			return fmt.Errorf("resume requires a database dsn")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		snap, err := persist.NewSnapshotRepo(db).LoadLatest(ctx, cfg.Snapshot.RunLabel)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if snap == nil {
			return fmt.Errorf("no snapshot for run label %q", cfg.Snapshot.RunLabel)
		}
		sim.state.Restore(system.NodesFromSnapshot(snap))
		sim.state.Cycle = snap.Cycle
		printOK(fmt.Sprintf("restored snapshot at cycle %d (%d nodes)", snap.Cycle, len(snap.Nodes)))
		if sim.state.DigestHex() != snap.Digest {
			log.Warn("restored digest mismatch",
				zap.String("expected", snap.Digest),
				zap.String("got", sim.state.DigestHex()))
		}
	} else {
		sim.spawnRoots()
	}

	// Cycle loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.CycleRate)
	defer ticker.Stop()

	printSection("simulation ready")
	printReady(fmt.Sprintf("cycle loop started (rate: %s)", cfg.Sim.CycleRate))
	fmt.Println()

	target := sim.state.Cycle + uint64(scen.Cycles)
	for sim.state.Cycle < target {
		select {
		case <-ticker.C:
			sim.runner.Tick(cfg.Sim.CycleRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			log.Info("final digest",
				zap.Uint64("cycle", sim.state.Cycle),
				zap.String("digest", sim.state.DigestHex()))
			return nil
		}
	}

	log.Info("scenario complete",
		zap.Uint64("cycles", sim.state.Cycle),
		zap.Int("nodes", len(sim.state.Nodes())),
		zap.String("digest", sim.state.DigestHex()))
	return nil
}

// runVerify runs the scenario twice from scratch, as fast as the loop
// allows, and compares final digests. Equal digests mean the run is
// reproducible regardless of slot reuse order.
func runVerify(cfg *config.Config, prefabs *data.PrefabTable, scen *data.Scenario, log *zap.Logger) error {
	printSection("determinism drill")

	digests := make([]string, 2)
	for i := range digests {
		sim, err := newSimulation(cfg, prefabs, scen, nil, log)
		if err != nil {
			return err
		}
		sim.spawnRoots()
		for c := 0; c < scen.Cycles; c++ {
			sim.runner.Tick(cfg.Sim.CycleRate)
		}
		digests[i] = sim.state.DigestHex()
		sim.dir.Close()
		printStat(fmt.Sprintf("run %d nodes", i+1), len(sim.state.Nodes()))
	}

	if digests[0] != digests[1] {
		return fmt.Errorf("digest mismatch: run 1 %s, run 2 %s", digests[0], digests[1])
	}
	printOK(fmt.Sprintf("digests match: %s", digests[0]))
	return nil
}

// simulation bundles one state with its systems and Lua director.
type simulation struct {
	state  *world.State
	runner *coresys.Runner
	dir    *scripting.Director
	scen   *data.Scenario
	pref   *data.PrefabTable
	log    *zap.Logger
}

func newSimulation(cfg *config.Config, prefabs *data.PrefabTable, scen *data.Scenario, db *persist.DB, log *zap.Logger) (*simulation, error) {
	st := world.NewState()

	dir, err := scripting.NewDirector(cfg.Sim.ScriptsDir, log)
	if err != nil {
		return nil, fmt.Errorf("lua director: %w", err)
	}
	if scen.Seed != 0 {
		dir.Seed(scen.Seed)
	}
	if scen.Script != "" {
		if err := dir.LoadScript(filepath.Join(cfg.Sim.ScriptsDir, scen.Script)); err != nil {
			dir.Close()
			return nil, err
		}
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewRefreshSystem(st))
	runner.Register(system.NewDirectorSystem(st, dir, prefabs, log))
	runner.Register(system.NewCommandFlushSystem(st))
	runner.Register(system.NewLifetimeSystem(st))
	runner.Register(system.NewChecksumSystem(st, log))
	if db != nil {
		runner.Register(system.NewMutationLogSystem(st, persist.NewMutationLogRepo(db), cfg.Snapshot.RunLabel, log))
		runner.Register(system.NewSnapshotSystem(st, persist.NewSnapshotRepo(db), cfg.Snapshot.IntervalCycles, cfg.Snapshot.RunLabel, log))
	}
	runner.Register(system.NewCleanupSystem(st.World))

	return &simulation{state: st, runner: runner, dir: dir, scen: scen, pref: prefabs, log: log}, nil
}

// spawnRoots instantiates the scenario's root prefabs at cycle 0.
func (s *simulation) spawnRoots() {
	total := 0
	for _, root := range s.scen.Roots {
		tmpl := s.pref.Get(root.Prefab)
		if tmpl == nil {
			s.log.Warn("scenario: unknown prefab", zap.String("prefab", root.Prefab))
			continue
		}
		for i := 0; i < root.Count; i++ {
			s.state.SpawnPrefab(tmpl)
			total += tmpl.Size()
		}
	}
	printStat("root nodes spawned", total)
	fmt.Println()
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
