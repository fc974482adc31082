package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mcm-app/mcm/pkg/config"
	"github.com/mcm-app/mcm/pkg/credentials"
	"github.com/mcm-app/mcm/pkg/docker"
	"github.com/mcm-app/mcm/pkg/hooks/haproxy"
	"github.com/mcm-app/mcm/pkg/network"
	"github.com/mcm-app/mcm/pkg/orchestrator"
	"github.com/mcm-app/mcm/pkg/service"
	"github.com/mcm-app/mcm/pkg/setup"
	"github.com/mcm-app/mcm/pkg/workspace"
)

const (
	defaultAssetsDir = "/usr/local/share/mcm"
	rootEnv          = "MCM_DIRECTORY"
	assetsEnv        = "MCM_ASSETS"
)

// resolveRoot determines the managed root:
//  1. the --root flag,
//  2. $MCM_DIRECTORY,
//  3. ~/.mcm.
func resolveRoot(flag string) (string, error) {
	dir := flag
	if dir == "" {
		dir = os.Getenv(rootEnv)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to find home directory: %w", err)
		}
		return filepath.Join(home, ".mcm"), nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir, nil
	}
	return abs, nil
}

// resolveAssets determines the packaged assets directory from the --assets
// flag, then $MCM_ASSETS, then the install location.
func resolveAssets(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(assetsEnv); env != "" {
		return env
	}
	return defaultAssetsDir
}

// runDefaults decodes the embedded engine create defaults.
func runDefaults() (map[string]any, error) {
	data, err := config.DockerDefaults()
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse docker defaults: %w", err)
	}
	return tree, nil
}

// project is the managed environment a command operates on.
type project struct {
	ws           *workspace.Workspace
	assets       string
	engine       docker.Engine
	orchestrator *orchestrator.Orchestrator
}

// openProject loads configuration and service definitions and wires an
// orchestrator against the local Docker engine. With create the managed
// root and sample configuration are created when missing; otherwise the
// root must already be set up.
func openProject(create bool) (*project, error) {
	root, err := resolveRoot(rootDir)
	if err != nil {
		return nil, err
	}
	var ws *workspace.Workspace
	if create {
		ws, err = setup.Verify(root)
	} else {
		ws, err = setup.Open(root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", root, err)
	}
	assets := resolveAssets(assetsDir)

	userConfig, err := config.Load(ws.ConfigFile())
	if err != nil {
		return nil, err
	}
	configDefaults, err := config.Defaults()
	if err != nil {
		return nil, err
	}
	run, err := runDefaults()
	if err != nil {
		return nil, err
	}
	definitions, err := service.LoadDefinitions(filepath.Join(assets, "services"), ws.ServicesDir, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded service definitions",
		zap.String("root", ws.Root),
		zap.String("assets", assets),
		zap.Int("definitions", len(definitions)))

	engine, err := docker.NewEngine()
	if err != nil {
		return nil, err
	}
	display := docker.NewTerminalDisplay(os.Stderr)

	orch := orchestrator.New(orchestrator.Options{
		Definitions:    definitions,
		UserConfig:     userConfig,
		ConfigDefaults: configDefaults,
		RunDefaults:    run,
		Setup: &setup.Runner{
			Root:        ws.Root,
			Credentials: credentials.NewBroker(logger),
			Network:     network.NewDiscovery(),
			Logger:      logger,
		},
		NewEngine: func(auth string) service.Engine {
			return docker.New(engine, auth, logger, docker.WithDisplay(display))
		},
		Hooks: map[string]func() service.Hooks{
			haproxy.ServiceName: haproxy.NewHooks,
		},
		ContainersDir: ws.ContainersDir,
		AssetsDir:     assets,
		Logger:        logger,
		Exit: func(code int) {
			syncLogger()
			os.Exit(code)
		},
	})

	return &project{ws: ws, assets: assets, engine: engine, orchestrator: orch}, nil
}

// client returns an unauthenticated adapter for read-only commands.
func (p *project) client() *docker.Client {
	return docker.New(p.engine, "", logger)
}

func (p *project) Close() error {
	return p.engine.Close()
}
