package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mcm-app/mcm/pkg/config"
	"github.com/mcm-app/mcm/pkg/docker"
	"github.com/mcm-app/mcm/pkg/service"
	"github.com/mcm-app/mcm/pkg/setup"
)

var errEngine = errors.New("engine exploded")

// fakeEngine reports one existing container per image and records every
// run and destroy by service name.
type fakeEngine struct {
	mu      sync.Mutex
	events  []string
	runErrs map[string]error
}

func (f *fakeEngine) add(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeEngine) PullImage(context.Context, string) error { return nil }

func (f *fakeEngine) GetImage(context.Context, string) (*types.ImageSummary, error) {
	return &types.ImageSummary{}, nil
}

func (f *fakeEngine) GetAllContainers(_ context.Context, baseImage string) ([]docker.Container, error) {
	return []docker.Container{{ID: baseImage + "-1", Image: baseImage}}, nil
}

func (f *fakeEngine) DestroyContainer(_ context.Context, _ docker.Container, name string) error {
	f.add("destroy " + name)
	return nil
}

func (f *fakeEngine) Run(_ context.Context, _, name string, _ *docker.RunConfig) (docker.Container, error) {
	f.add("run " + name)
	return docker.Container{Name: name}, f.runErrs[name]
}

func (f *fakeEngine) runs() []string {
	var out []string
	for _, e := range f.events {
		if strings.HasPrefix(e, "run ") {
			out = append(out, strings.TrimPrefix(e, "run "))
		}
	}
	return out
}

type fakeSetup struct {
	err  error
	seen setup.Options
}

func (f *fakeSetup) Run(opts setup.Options) (*setup.Context, error) {
	f.seen = opts
	if f.err != nil {
		return nil, f.err
	}
	return &setup.Context{
		Auth:                "token",
		ConfigDefaultValues: map[string]any{"KANBAN_HOST": "kanban"},
		RunDefaults:         map[string]any{},
	}, nil
}

func weighted(w int) *int { return &w }

type harness struct {
	orch   *Orchestrator
	engine *fakeEngine
	setup  *fakeSetup
	logs   *observer.ObservedLogs
	exits  []int
	auth   string
}

func newHarness(t *testing.T, entries config.ServiceEntries) *harness {
	t.Helper()
	h := &harness{engine: &fakeEngine{runErrs: map[string]error{}}, setup: &fakeSetup{}}
	core, logs := observer.New(zap.InfoLevel)
	h.logs = logs
	h.orch = New(Options{
		Definitions: map[string]service.Definition{
			"a": {Image: "img/a", Weight: weighted(500)},
			"b": {Image: "img/b", Weight: weighted(200)},
			"c": {Image: "img/c", Weight: weighted(800)},
		},
		UserConfig: &config.File{
			Config:   map[string]any{"proxy": map[string]any{"host": "1.2.3.4"}},
			Services: entries,
		},
		Setup: h.setup,
		NewEngine: func(auth string) service.Engine {
			h.auth = auth
			return h.engine
		},
		Logger: zap.New(core),
		Exit:   func(code int) { h.exits = append(h.exits, code) },
	})
	return h
}

func entries(names ...string) config.ServiceEntries {
	out := make(config.ServiceEntries, 0, len(names))
	for _, n := range names {
		out = append(out, config.ServiceEntry{Name: n})
	}
	return out
}

func TestRunServicesAscendingWeight(t *testing.T) {
	h := newHarness(t, entries("a", "b", "c"))

	require.NoError(t, h.orch.RunServices(context.Background(), RunOptions{}))
	assert.Equal(t, []string{"b", "a", "c"}, h.engine.runs())
	assert.Equal(t, "token", h.auth)
	assert.Equal(t, map[string]any{"proxy": map[string]any{"host": "1.2.3.4"}}, h.setup.seen.UserConfig)
	assert.Empty(t, h.exits)
}

func TestStopServicesDescendingWeight(t *testing.T) {
	h := newHarness(t, entries("a", "b", "c"))

	require.NoError(t, h.orch.StopServices(context.Background(), StopOptions{}))
	assert.Equal(t, []string{"destroy c", "destroy a", "destroy b"}, h.engine.events)

	h.engine.events = nil
	require.NoError(t, h.orch.StopServices(context.Background(), StopOptions{Include: []string{"b", "c"}}))
	assert.Equal(t, []string{"destroy c", "destroy b"}, h.engine.events)
}

func TestRunServicesIncludeAndOmit(t *testing.T) {
	es := entries("a", "b", "c")
	es[1].Config.Omit = true
	h := newHarness(t, es)

	require.NoError(t, h.orch.RunServices(context.Background(), RunOptions{Omit: []string{"c"}}))
	assert.Equal(t, []string{"destroy b", "destroy a", "run a", "destroy c"}, h.engine.events)

	h.engine.events = nil
	require.NoError(t, h.orch.RunServices(context.Background(), RunOptions{Include: []string{"c"}}))
	assert.Equal(t, []string{"destroy c", "run c"}, h.engine.events)
}

func TestRunServicesFatal(t *testing.T) {
	h := newHarness(t, entries("a", "b", "c"))
	h.engine.runErrs["a"] = errEngine

	err := h.orch.RunServices(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, errEngine)
	assert.Equal(t, []string{"b", "a"}, h.engine.runs())
	assert.Equal(t, []int{1}, h.exits)

	msgs := h.logs.FilterLevelExact(zap.ErrorLevel).All()
	require.Len(t, msgs, 2)
	assert.Equal(t, errEngine.Error(), msgs[0].Message)
	assert.Equal(t, ExitMessage, msgs[1].Message)
}

func TestStartupSetupFailureIsFatal(t *testing.T) {
	h := newHarness(t, entries("a"))
	h.setup.err = errors.New("no credentials")

	assert.Error(t, h.orch.StopServices(context.Background(), StopOptions{}))
	assert.Equal(t, []int{1}, h.exits)
	assert.Empty(t, h.engine.events)
}

func TestStartupSkipsMissingDefinitions(t *testing.T) {
	h := newHarness(t, entries("a", "ghost", "b"))

	res, err := h.orch.Startup()
	require.NoError(t, err)
	require.Len(t, res.Services, 2)
	assert.Equal(t, "a", res.Services[0].Name)
	assert.Equal(t, "b", res.Services[1].Name)

	missing := h.logs.FilterField(zap.String("service", "ghost")).All()
	require.Len(t, missing, 1)
	assert.Equal(t, "No service file found. Please remove entry from MCM configuration.", missing[0].Message)
}

func TestStartupAttachesHooks(t *testing.T) {
	h := newHarness(t, entries("a", "b"))
	var initialized []string
	h.orch.opts.Hooks = map[string]func() service.Hooks{
		"b": func() service.Hooks {
			return service.Hooks{PostInit: func(s *service.Service, opts service.Options) error {
				initialized = append(initialized, s.Name+" "+opts.ConfigDefaults["KANBAN_HOST"].(string))
				return nil
			}}
		},
	}

	_, err := h.orch.Startup()
	require.NoError(t, err)
	assert.Equal(t, []string{"b kanban"}, initialized)
}

func TestTargets(t *testing.T) {
	es := entries("a", "b", "ghost")
	es[0].Config.Tag = "v1"
	es[1].Config.Omit = true
	h := newHarness(t, es)

	targets := h.orch.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, "b", targets[0].Name)
	assert.True(t, targets[0].Omit)
	assert.Equal(t, "img/b:latest", targets[0].Image)
	assert.Equal(t, "a", targets[1].Name)
	assert.Equal(t, "img/a:v1", targets[1].Image)
}
