package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one conformance run: a seeded configuration plus assertions
// on the outcome.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Seed and Ticks define the run.
	Seed  uint32 `yaml:"seed"`
	Ticks int    `yaml:"ticks"`

	// Domains to activate; DomainConfigs tunes them per name.
	Domains       []string                      `yaml:"domains"`
	DomainConfigs map[string]map[string]float64 `yaml:"domain_configs,omitempty"`

	// FailureProbabilities enables fault injection per domain.
	FailureProbabilities map[string]float64 `yaml:"failure_probabilities,omitempty"`

	// Proposals enables the proposal pipeline during the run.
	Proposals bool `yaml:"proposals,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping assertions.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Ticks < 1 {
		return fmt.Errorf("ticks must be >= 1")
	}
	if len(s.Domains) == 0 {
		return fmt.Errorf("domains list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}
