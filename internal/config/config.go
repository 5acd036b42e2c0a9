package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Sim      SimConfig      `toml:"sim"`
	Database DatabaseConfig `toml:"database"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Logging  LoggingConfig  `toml:"logging"`
}

type SimConfig struct {
	CycleRate    time.Duration `toml:"cycle_rate"`    // wall-clock interval between cycles
	ScenarioPath string        `toml:"scenario_path"` // scenario YAML
	PrefabPath   string        `toml:"prefab_path"`   // prefab tree YAML
	ScriptsDir   string        `toml:"scripts_dir"`   // Lua director scripts
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables persistence
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type SnapshotConfig struct {
	IntervalCycles int    `toml:"interval_cycles"` // 0 disables periodic snapshots
	RunLabel       string `toml:"run_label"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Sim: SimConfig{
			CycleRate:    50 * time.Millisecond,
			ScenarioPath: "data/scenarios/churn.yaml",
			PrefabPath:   "data/prefabs.yaml",
			ScriptsDir:   "scripts",
		},
		Database: DatabaseConfig{
			DSN:             "", // persistence off unless configured
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Snapshot: SnapshotConfig{
			IntervalCycles: 100,
			RunLabel:       "dev",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
