package seeder

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioFile is the YAML document accepted by the seed command.
type ScenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// DefaultScenario is used when no scenario file is given.
func DefaultScenario() Scenario {
	return Scenario{
		Name:          "default",
		LogGroup:      "aws-waf-logs-main",
		OwnerAccount:  "123456789012",
		Records:       25,
		BlockRatio:    0.3,
		AttackRatio:   0.2,
		MalformedRate: 0,
	}
}

// LoadScenarios reads and validates a scenario file.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var file ScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file defines no scenarios")
	}

	for i, sc := range file.Scenarios {
		if sc.LogGroup == "" {
			return nil, fmt.Errorf("scenario %d (%s): log_group is required", i, sc.Name)
		}
		if sc.Records <= 0 {
			return nil, fmt.Errorf("scenario %d (%s): records must be positive", i, sc.Name)
		}
	}

	return file.Scenarios, nil
}
