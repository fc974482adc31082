package config

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults
var defaultsFS embed.FS

const (
	configDefaultsFile = "defaults/config.defaults.json"
	dockerDefaultsFile = "defaults/docker.defaults.json"
	sampleFile         = "defaults/config.json.sample"
)

// Defaults returns the built-in configuration default tree.
func Defaults() (map[string]any, error) {
	data, err := defaultsFS.ReadFile(configDefaultsFile)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configDefaultsFile, err)
	}
	return tree, nil
}

// DockerDefaults returns the built-in container run defaults as a Docker API
// create body.
func DockerDefaults() ([]byte, error) {
	return defaultsFS.ReadFile(dockerDefaultsFile)
}

// Sample returns the configuration file written on first run.
func Sample() ([]byte, error) {
	return defaultsFS.ReadFile(sampleFile)
}
