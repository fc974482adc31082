package docker

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

var errEngine = errors.New("engine exploded")

// fakeEngine records calls and returns canned errors, keyed by operation.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string

	errs map[string][]error

	pullBody   string
	images     []types.ImageSummary
	containers []types.Container
	inspect    types.ContainerJSON
	logs       string

	created *container.Config
	pulled  types.ImagePullOptions
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{errs: map[string][]error{}}
}

// fail queues errors for op, consumed one per call.
func (f *fakeEngine) fail(op string, errs ...error) {
	f.errs[op] = append(f.errs[op], errs...)
}

func (f *fakeEngine) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	queue := f.errs[op]
	if len(queue) == 0 {
		return nil
	}
	f.errs[op] = queue[1:]
	return queue[0]
}

func (f *fakeEngine) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeEngine) ImagePull(_ context.Context, _ string, options types.ImagePullOptions) (io.ReadCloser, error) {
	f.pulled = options
	if err := f.record("pull"); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(f.pullBody)), nil
}

func (f *fakeEngine) ImageList(context.Context, types.ImageListOptions) ([]types.ImageSummary, error) {
	if err := f.record("images"); err != nil {
		return nil, err
	}
	return f.images, nil
}

func (f *fakeEngine) ContainerList(context.Context, types.ContainerListOptions) ([]types.Container, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	return f.containers, nil
}

func (f *fakeEngine) ContainerCreate(_ context.Context, cfg *container.Config, _ *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.created = cfg
	if err := f.record("create"); err != nil {
		return container.CreateResponse{}, err
	}
	return container.CreateResponse{ID: "new-id"}, nil
}

func (f *fakeEngine) ContainerStart(context.Context, string, types.ContainerStartOptions) error {
	return f.record("start")
}

func (f *fakeEngine) ContainerStop(context.Context, string, container.StopOptions) error {
	return f.record("stop")
}

func (f *fakeEngine) ContainerKill(context.Context, string, string) error {
	return f.record("kill")
}

func (f *fakeEngine) ContainerRemove(context.Context, string, types.ContainerRemoveOptions) error {
	return f.record("remove")
}

func (f *fakeEngine) ContainerRename(context.Context, string, string) error {
	return f.record("rename")
}

func (f *fakeEngine) ContainerInspect(context.Context, string) (types.ContainerJSON, error) {
	if err := f.record("inspect"); err != nil {
		return types.ContainerJSON{}, err
	}
	return f.inspect, nil
}

func (f *fakeEngine) ContainerLogs(context.Context, string, types.ContainerLogsOptions) (io.ReadCloser, error) {
	if err := f.record("logs"); err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(f.logs)), nil
}

func (f *fakeEngine) Close() error { return nil }

// recordingDisplay keeps every rendered block.
type recordingDisplay struct {
	updates []string
	done    int
}

func (d *recordingDisplay) Update(text string) { d.updates = append(d.updates, text) }
func (d *recordingDisplay) Done()              { d.done++ }
