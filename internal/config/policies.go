package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/commerce-messaging/internal/engine"
)

type policyFile struct {
	Activities map[string]engine.RetryPolicy `yaml:"activities"`
}

// LoadActivityPolicies reads per-activity retry overrides from a YAML file:
//
//	activities:
//	  SendMessage:
//	    maxAttempts: 5
//	    initialInterval: 2s
//	    startToCloseTimeout: 90s
func LoadActivityPolicies(path string) (map[string]engine.RetryPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read activity policy file: %w", err)
	}
	return ParseActivityPolicies(data)
}

func ParseActivityPolicies(data []byte) (map[string]engine.RetryPolicy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse activity policy file: %w", err)
	}
	for name, p := range f.Activities {
		if p.MaxAttempts < 0 || p.InitialInterval < 0 || p.MaximumInterval < 0 || p.StartToCloseTimeout < 0 {
			return nil, fmt.Errorf("activity policy %s: negative values are not allowed", name)
		}
		if p.BackoffCoefficient != 0 && p.BackoffCoefficient < 1 {
			return nil, fmt.Errorf("activity policy %s: backoffCoefficient must be >= 1", name)
		}
	}
	return f.Activities, nil
}
