package ai

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// BaseConfig provides common configuration functionality for generator
// backends.
type BaseConfig struct {
	ConfigPath string
}

// LoadConfig loads configuration from a file, falling back to a default
// file in the config directory and then to environment variables.
func (c *BaseConfig) LoadConfig(configPath string, envPrefix string, config interface{}) error {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			if err := json.Unmarshal(data, config); err == nil {
				log.Printf("Loaded configuration from file: %s", configPath)
				return nil
			}
		}
	}

	defaultPath := filepath.Join("config", fmt.Sprintf("%s.json", envPrefix))
	if data, err := os.ReadFile(defaultPath); err == nil {
		if err := json.Unmarshal(data, config); err == nil {
			log.Printf("Loaded configuration from default file: %s", defaultPath)
			return nil
		}
	}

	log.Printf("Using environment variables for %s configuration", envPrefix)
	return nil
}
