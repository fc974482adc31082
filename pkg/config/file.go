package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the user configuration file kept in the managed root.
type File struct {
	Config   map[string]any `yaml:"config"`
	Services ServiceEntries `yaml:"services"`
}

// ServiceConfig holds the user overrides for one service.
type ServiceConfig struct {
	Omit   bool                 `yaml:"omit"`
	Tag    string               `yaml:"tag"`
	Config map[string]any       `yaml:"config"`
	Env    map[string]any       `yaml:"env"`
	Ports  map[string]PortValue `yaml:"ports"`
}

// ServiceEntry is a named ServiceConfig.
type ServiceEntry struct {
	Name   string
	Config ServiceConfig
}

// ServiceEntries keeps services in the order they appear in the file.
type ServiceEntries []ServiceEntry

// UnmarshalYAML decodes a mapping of service name to ServiceConfig.
func (e *ServiceEntries) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: services must be a mapping", node.Line)
	}
	entries := make(ServiceEntries, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var cfg ServiceConfig
		if err := node.Content[i+1].Decode(&cfg); err != nil {
			return fmt.Errorf("service %s: %w", node.Content[i].Value, err)
		}
		entries = append(entries, ServiceEntry{Name: node.Content[i].Value, Config: cfg})
	}
	*e = entries
	return nil
}

// Lookup returns the entry for name.
func (e ServiceEntries) Lookup(name string) (ServiceConfig, bool) {
	for _, entry := range e {
		if entry.Name == name {
			return entry.Config, true
		}
	}
	return ServiceConfig{}, false
}

// PortValue is a port number written either as a number or a string.
type PortValue string

// UnmarshalYAML accepts any scalar.
func (p *PortValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: port must be a scalar", node.Line)
	}
	*p = PortValue(node.Value)
	return nil
}

func (p PortValue) String() string {
	return string(p)
}

// Load reads a configuration file. JSON files are read as YAML flow documents.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a configuration document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &f, nil
}
