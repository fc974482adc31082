// Package orchestrator builds the configured services and starts or stops
// them one at a time in weight order.
package orchestrator

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/mcm-app/mcm/pkg/config"
	"github.com/mcm-app/mcm/pkg/service"
	"github.com/mcm-app/mcm/pkg/setup"
	"github.com/mcm-app/mcm/pkg/state"
)

// ExitMessage is logged before a fatal exit.
const ExitMessage = "MCM Exiting..."

// SetupRunner runs the setup phase.
type SetupRunner interface {
	Run(opts setup.Options) (*setup.Context, error)
}

// Options wire an Orchestrator.
type Options struct {
	Definitions    map[string]service.Definition
	UserConfig     *config.File
	ConfigDefaults map[string]any
	RunDefaults    map[string]any
	Setup          SetupRunner
	// NewEngine returns the engine used by every service, authenticated
	// with the token from the setup phase.
	NewEngine func(auth string) service.Engine
	// Hooks maps a service name to a constructor of its lifecycle hooks.
	Hooks         map[string]func() service.Hooks
	ContainersDir string
	AssetsDir     string
	Logger        *zap.Logger
	// Exit terminates the process after a fatal error.
	Exit func(code int)
}

// Orchestrator sequences service lifecycles.
type Orchestrator struct {
	opts   Options
	logger *zap.Logger
	exit   func(int)
}

// New returns an Orchestrator. A nil Exit leaves fatal errors to the
// caller.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	exit := opts.Exit
	if exit == nil {
		exit = func(int) {}
	}
	if opts.UserConfig == nil {
		opts.UserConfig = &config.File{}
	}
	return &Orchestrator{opts: opts, logger: logger, exit: exit}
}

// Result is the outcome of Startup.
type Result struct {
	Setup    *setup.Context
	Services []*service.Service
}

// Startup runs the setup phase and builds a Service for every service in
// the user configuration that has a definition. Services without one are
// logged and skipped.
func (o *Orchestrator) Startup() (*Result, error) {
	if o.opts.Setup == nil || o.opts.NewEngine == nil {
		return nil, errors.New("orchestrator is missing its setup runner or engine factory")
	}
	sc, err := o.opts.Setup.Run(setup.Options{
		ConfigDefaults: o.opts.ConfigDefaults,
		UserConfig:     o.opts.UserConfig.Config,
		RunDefaults:    o.opts.RunDefaults,
	})
	if err != nil {
		return nil, err
	}
	engine := o.opts.NewEngine(sc.Auth)

	services := make([]*service.Service, 0, len(o.opts.UserConfig.Services))
	for _, entry := range o.opts.UserConfig.Services {
		def, ok := o.opts.Definitions[entry.Name]
		if !ok {
			o.logger.Error("No service file found. Please remove entry from MCM configuration.", zap.String("service", entry.Name))
			continue
		}

		var hooks service.Hooks
		if factory, ok := o.opts.Hooks[entry.Name]; ok {
			hooks = factory()
		}

		s, err := service.New(service.Options{
			Name:           entry.Name,
			Engine:         engine,
			Config:         entry.Config,
			Definition:     def,
			RunDefaults:    sc.RunDefaults,
			ConfigDefaults: sc.ConfigDefaultValues,
			ContainersDir:  o.opts.ContainersDir,
			AssetsDir:      o.opts.AssetsDir,
			Hooks:          hooks,
			Logger:         o.logger,
		})
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return &Result{Setup: sc, Services: services}, nil
}

// RunOptions select what RunServices does.
type RunOptions struct {
	// Include limits the run to these services; empty means all.
	Include []string
	// Omit stops these services instead of starting them.
	Omit []string
	// Update pulls images even when they exist locally.
	Update bool
}

// RunServices starts every selected service in ascending weight order.
// Omitted services are stopped in their place. The first failure aborts
// the run and is fatal.
func (o *Orchestrator) RunServices(ctx context.Context, opts RunOptions) error {
	res, err := o.Startup()
	if err != nil {
		return o.fatal(err)
	}
	services := byWeight(res.Services, false)

	for _, s := range services {
		if len(opts.Include) > 0 && !contains(opts.Include, s.Name) {
			continue
		}
		if s.Omit || contains(opts.Omit, s.Name) {
			o.logger.Info("stopping omitted service", zap.String("service", s.Name))
			err = s.Stop(ctx)
		} else {
			o.logger.Info("starting service", zap.String("service", s.Name), zap.Int("weight", s.Weight))
			err = s.Start(ctx, opts.Update, services)
		}
		if err != nil {
			return o.fatal(err)
		}
	}
	return nil
}

// StopOptions select what StopServices does.
type StopOptions struct {
	// Include limits the stop to these services; empty means all.
	Include []string
}

// StopServices stops every selected service in descending weight order.
// The first failure aborts and is fatal.
func (o *Orchestrator) StopServices(ctx context.Context, opts StopOptions) error {
	res, err := o.Startup()
	if err != nil {
		return o.fatal(err)
	}
	for _, s := range byWeight(res.Services, true) {
		if len(opts.Include) > 0 && !contains(opts.Include, s.Name) {
			continue
		}
		o.logger.Info("stopping service", zap.String("service", s.Name), zap.Int("weight", s.Weight))
		if err := s.Stop(ctx); err != nil {
			return o.fatal(err)
		}
	}
	return nil
}

// Targets returns the configured services that have a definition, in
// ascending weight order, without running the setup phase.
func (o *Orchestrator) Targets() []state.Target {
	var targets []state.Target
	for _, entry := range o.opts.UserConfig.Services {
		def, ok := o.opts.Definitions[entry.Name]
		if !ok {
			continue
		}
		tag := entry.Config.Tag
		if tag == "" {
			tag = def.Tag
		}
		if tag == "" {
			tag = "latest"
		}
		weight := service.DefaultWeight
		if def.Weight != nil {
			weight = *def.Weight
		}
		targets = append(targets, state.Target{
			Name:      entry.Name,
			BaseImage: def.Image,
			Image:     def.Image + ":" + tag,
			Weight:    weight,
			Omit:      entry.Config.Omit,
		})
	}
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Weight < targets[j].Weight })
	return targets
}

// Status reports the live state of every configured service.
func (o *Orchestrator) Status(ctx context.Context, lister state.ContainerLister) ([]state.ServiceInfo, error) {
	return state.Discover(ctx, lister, o.Targets())
}

func (o *Orchestrator) fatal(err error) error {
	o.logger.Error(err.Error())
	o.logger.Error(ExitMessage)
	o.exit(1)
	return err
}

// byWeight returns a copy of services sorted by weight. Equal weights keep
// configuration order.
func byWeight(services []*service.Service, descending bool) []*service.Service {
	out := append([]*service.Service(nil), services...)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Weight < out[j].Weight
	})
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
