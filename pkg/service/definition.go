package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mcm-app/mcm/pkg/config"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultWeight is assigned to definitions that do not declare one.
const DefaultWeight = 100

// Definition is the static description of a service, read from the
// service registry.
type Definition struct {
	Image   string          `yaml:"image"`
	Tag     string          `yaml:"tag"`
	Weight  *int            `yaml:"weight"`
	Ports   map[string]Port `yaml:"ports"`
	Env     map[string]any  `yaml:"env"`
	Config  map[string]any  `yaml:"config"`
	Folders []string        `yaml:"folders"`
	Files   []File          `yaml:"files"`
	Run     map[string]any  `yaml:"run"`
	Proxy   *ProxyRule      `yaml:"proxy"`
}

// Port is a declared container port.
type Port struct {
	Container config.PortValue `yaml:"container"`
	Host      config.PortValue `yaml:"host"`
	Protocol  string           `yaml:"protocol"`
	Env       string           `yaml:"env"`
}

// Binding returns the engine port key, e.g. "8000/tcp".
func (p Port) Binding() string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	return p.Container.String() + "/" + proto
}

// File is a packaged file copied into the data directory. Location is
// relative to the assets directory, Destination to the containers
// directory.
type File struct {
	Location    string `yaml:"location"`
	Destination string `yaml:"destination"`
	Preserve    *bool  `yaml:"preserve"`
}

// Overwrite reports whether the file is recopied even when present.
func (f File) Overwrite() bool {
	return f.Preserve != nil && !*f.Preserve
}

// ProxyRule routes requests from the proxy service to this service.
type ProxyRule struct {
	Port    string     `yaml:"port"`
	Path    ProxyPaths `yaml:"path"`
	ACL     StringList `yaml:"acl"`
	Backend []string   `yaml:"backend"`
}

// ProxyMatch is one criterion and the values it matches.
type ProxyMatch struct {
	Criterion string
	Values    []string
}

// ProxyPaths is written as a single path, a list of paths, or a mapping of
// criterion (path_beg, path_end, ...) to one or more paths. Mappings keep
// file order.
type ProxyPaths []ProxyMatch

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *ProxyPaths) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode, yaml.SequenceNode:
		var values StringList
		if err := node.Decode(&values); err != nil {
			return err
		}
		*p = ProxyPaths{{Criterion: "path_beg", Values: values}}
		return nil
	case yaml.MappingNode:
		out := make(ProxyPaths, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var values StringList
			if err := node.Content[i+1].Decode(&values); err != nil {
				return err
			}
			out = append(out, ProxyMatch{Criterion: node.Content[i].Value, Values: values})
		}
		*p = out
		return nil
	default:
		return fmt.Errorf("line %d: unsupported proxy path", node.Line)
	}
}

// StringList accepts a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = StringList{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// ParseDefinition decodes a single service definition document.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadDefinitions reads every *.json definition in mainDir, then in
// localDir, keyed by file name without extension. Local definitions replace
// global ones of the same name. A definition that cannot be read is logged
// and skipped; a missing localDir is ignored. Weights default to
// DefaultWeight.
func LoadDefinitions(mainDir, localDir string, logger *zap.Logger) (map[string]Definition, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	files := map[string]string{}
	mainFiles, err := definitionFiles(mainDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read service definitions: %w", err)
	}
	for name, path := range mainFiles {
		files[name] = path
	}
	if localDir != "" {
		localFiles, err := definitionFiles(localDir)
		if err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to read local service definitions", zap.String("dir", localDir), zap.Error(err))
		}
		for name, path := range localFiles {
			files[name] = path
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make(map[string]Definition, len(files))
	for _, name := range names {
		data, err := os.ReadFile(files[name])
		if err != nil {
			logger.Error("failed to read service definition", zap.String("service", name), zap.Error(err))
			continue
		}
		def, err := ParseDefinition(data)
		if err != nil {
			logger.Error("failed to parse service definition", zap.String("service", name), zap.String("path", files[name]), zap.Error(err))
			continue
		}
		if def.Weight == nil {
			w := DefaultWeight
			def.Weight = &w
		}
		if *def.Weight < 0 {
			logger.Error("invalid service definition: weight must not be negative",
				zap.String("service", name), zap.Int("weight", *def.Weight))
			continue
		}
		defs[name] = def
	}
	return defs, nil
}

var definitionExts = map[string]bool{".json": true, ".yaml": true, ".yml": true}

func definitionFiles(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !definitionExts[ext] {
			continue
		}
		out[strings.TrimSuffix(e.Name(), ext)] = filepath.Join(dir, e.Name())
	}
	return out, nil
}
