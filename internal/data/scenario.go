package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioRoot asks for Count instances of a prefab spawned at cycle 0.
type ScenarioRoot struct {
	Prefab string `yaml:"prefab"`
	Count  int    `yaml:"count"`
}

// Scenario drives one simulation run: the cycle budget, the root trees
// spawned up front, and the Lua director script invoked each cycle.
type Scenario struct {
	Name   string         `yaml:"name"`
	Cycles int            `yaml:"cycles"`
	Script string         `yaml:"script"`
	Seed   int64          `yaml:"seed"`
	Roots  []ScenarioRoot `yaml:"roots"`
}

// LoadScenario loads a scenario file. A root with Count 0 defaults to 1.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i := range s.Roots {
		if s.Roots[i].Count == 0 {
			s.Roots[i].Count = 1
		}
	}
	return &s, nil
}
