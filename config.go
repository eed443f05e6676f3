package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadConfigFile reads a YAML config over cfg; fields absent from the file keep their value
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}
