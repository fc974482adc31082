// Package service turns a service definition and its user overrides into a
// runnable container and drives its start and stop lifecycle.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"go.uber.org/zap"

	"github.com/mcm-app/mcm/pkg/config"
	"github.com/mcm-app/mcm/pkg/docker"
)

// Engine is the container engine capability a Service drives.
type Engine interface {
	PullImage(ctx context.Context, image string) error
	GetImage(ctx context.Context, ref string) (*types.ImageSummary, error)
	GetAllContainers(ctx context.Context, baseImage string) ([]docker.Container, error)
	DestroyContainer(ctx context.Context, ctr docker.Container, name string) error
	Run(ctx context.Context, image, name string, cfg *docker.RunConfig) (docker.Container, error)
}

var _ Engine = (*docker.Client)(nil)

// Hooks are optional callbacks run at fixed points of a service's
// lifecycle. Nil hooks are skipped.
type Hooks struct {
	// PostInit runs once the run configuration is resolved.
	PostInit func(s *Service, opts Options) error
	// PreStart runs before provisioning with every service of the run, in
	// start order.
	PreStart func(s *Service, update bool, services []*Service) error
	// PostFileSystem receives the destination of every provisioned file.
	PostFileSystem func(s *Service, files []string) error
}

// Options are the inputs used to build a Service.
type Options struct {
	Name       string
	Engine     Engine
	Config     config.ServiceConfig
	Definition Definition
	// RunDefaults are the engine create defaults, as a JSON-shaped tree.
	RunDefaults map[string]any
	// ConfigDefaults are the flattened configuration defaults.
	ConfigDefaults map[string]any
	// ContainersDir roots provisioned folders, files and bind sources.
	ContainersDir string
	// AssetsDir roots packaged file locations.
	AssetsDir string
	Hooks     Hooks
	Logger    *zap.Logger
}

// Service is a resolved runnable unit.
type Service struct {
	Name        string
	BaseImage   string
	Tag         string
	Image       string
	Weight      int
	Omit        bool
	Proxy       *ProxyRule
	RunConfig   *docker.RunConfig
	PublicPorts map[string]string

	definition    Definition
	engine        Engine
	hooks         Hooks
	containersDir string
	assetsDir     string
	logger        *zap.Logger
}

// New resolves the run configuration of a service and fires its PostInit
// hook.
func New(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	def := opts.Definition

	tag := opts.Config.Tag
	if tag == "" {
		tag = def.Tag
	}
	if tag == "" {
		tag = "latest"
	}

	s := &Service{
		Name:          opts.Name,
		BaseImage:     def.Image,
		Tag:           tag,
		Image:         def.Image + ":" + tag,
		Omit:          opts.Config.Omit,
		Proxy:         def.Proxy,
		PublicPorts:   map[string]string{},
		definition:    def,
		engine:        opts.Engine,
		hooks:         opts.Hooks,
		containersDir: opts.ContainersDir,
		assetsDir:     opts.AssetsDir,
		logger:        logger.With(zap.String("service", opts.Name)),
	}
	if def.Weight != nil {
		s.Weight = *def.Weight
	}

	if err := s.resolveRunConfig(opts); err != nil {
		return nil, fmt.Errorf("service %s: %w", opts.Name, err)
	}

	if s.hooks.PostInit != nil {
		if err := s.hooks.PostInit(s, opts); err != nil {
			return nil, fmt.Errorf("service %s: postInit hook: %w", opts.Name, err)
		}
	}
	return s, nil
}

func (s *Service) resolveRunConfig(opts Options) error {
	def := opts.Definition

	merged, err := config.Merge(opts.RunDefaults, def.Run)
	if err != nil {
		return err
	}
	rc, err := decodeRunConfig(merged)
	if err != nil {
		return err
	}
	s.RunConfig = rc

	combinedConfig, err := config.Merge(def.Config, opts.Config.Config)
	if err != nil {
		return err
	}
	combinedEnv, err := config.Merge(def.Env, opts.Config.Env)
	if err != nil {
		return err
	}

	for _, name := range sortedPortNames(def.Ports) {
		p := def.Ports[name]
		if p.Env != "" {
			combinedConfig[p.Env] = p.Container.String()
		}

		publicPort := opts.Config.Ports[name].String()
		if publicPort == "" {
			publicPort = p.Host.String()
		}

		key := nat.Port(p.Binding())
		rc.HostConfig.PortBindings[key] = []nat.PortBinding{{HostPort: publicPort}}
		rc.ExposedPorts[key] = struct{}{}
		s.PublicPorts[name] = publicPort
	}

	vars, err := config.Merge(map[string]any{
		"SERVICE_NAME": s.Name,
		"ENVIRONMENT":  "dev",
	}, opts.ConfigDefaults)
	if err != nil {
		return err
	}

	flat := config.Flatten(combinedConfig, "_")
	for _, key := range config.SortedKeys(flat) {
		value := flat[key]
		if str, ok := value.(string); ok {
			rendered, err := config.Render(str, vars)
			if err != nil {
				return fmt.Errorf("config %s: %w", key, err)
			}
			value = rendered
		}
		rc.Env = append(rc.Env, config.EnvKey(key)+"="+config.FormatValue(value))
	}
	for _, key := range config.SortedKeys(combinedEnv) {
		rc.Env = append(rc.Env, key+"="+config.FormatValue(combinedEnv[key]))
	}

	for i, bind := range rc.HostConfig.Binds {
		src, dest, ok := strings.Cut(bind, ":")
		rewritten := filepath.Join(s.containersDir, src)
		if ok {
			rewritten += ":" + dest
		}
		rc.HostConfig.Binds[i] = rewritten
	}
	return nil
}

// decodeRunConfig converts a JSON-shaped tree into the engine's create
// types, making sure the maps written during resolution exist.
func decodeRunConfig(tree map[string]any) (*docker.RunConfig, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}
	rc := &docker.RunConfig{}
	if err := json.Unmarshal(data, rc); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	if rc.Config == nil {
		rc.Config = &container.Config{}
	}
	if rc.HostConfig == nil {
		rc.HostConfig = &container.HostConfig{}
	}
	if rc.ExposedPorts == nil {
		rc.ExposedPorts = nat.PortSet{}
	}
	if rc.HostConfig.PortBindings == nil {
		rc.HostConfig.PortBindings = nat.PortMap{}
	}
	return rc, nil
}

func sortedPortNames(ports map[string]Port) []string {
	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the definition the service was built from.
func (s *Service) Definition() Definition {
	return s.definition
}

// ContainersDir returns the directory provisioned data lives under.
func (s *Service) ContainersDir() string {
	return s.containersDir
}
