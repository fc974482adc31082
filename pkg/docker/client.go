package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
)

const (
	// MaxRetries is the number of destroy attempts before giving up.
	MaxRetries = 3
	// RetryInterval is the delay between destroy attempts.
	RetryInterval = 500 * time.Millisecond
)

// Container is a handle to an engine container.
type Container struct {
	ID     string
	Name   string
	Image  string
	State  string
	Status string
	Ports  []types.Port
}

// RunConfig is the create request sent to the engine. It marshals to the
// same shape as the engine's own create payload so run defaults and service
// overrides can be written as plain JSON.
type RunConfig struct {
	*container.Config
	HostConfig *container.HostConfig `json:"HostConfig,omitempty"`
}

// Client wraps an Engine with idempotent container operations and the
// destroy escalation used to clear out old service containers.
type Client struct {
	engine     Engine
	auth       string
	logger     *zap.Logger
	display    Display
	retries    int
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithRetryDelay overrides the delay between destroy attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithDisplay sets where pull progress is rendered.
func WithDisplay(d Display) Option {
	return func(c *Client) { c.display = d }
}

// New returns a Client. auth is the base64 encoded registry auth sent with
// every pull.
func New(engine Engine, auth string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		engine:     engine,
		auth:       auth,
		logger:     logger,
		display:    discardDisplay{},
		retries:    MaxRetries,
		retryDelay: RetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close closes the underlying engine client
func (c *Client) Close() error {
	return c.engine.Close()
}

// StopContainer stops a container. Idempotent - a missing or already
// stopped container is not an error.
func (c *Client) StopContainer(ctx context.Context, ctr Container, name string) (Container, error) {
	err := c.engine.ContainerStop(ctx, ctr.ID, container.StopOptions{})
	if err != nil {
		if errdefs.IsNotModified(err) {
			c.logger.Info("Container already stopped", zap.String("service", name))
			return ctr, nil
		}
		if errdefs.IsNotFound(err) {
			c.logger.Info("Container not found", zap.String("service", name))
			return ctr, nil
		}
		return ctr, fmt.Errorf("failed to stop container %s: %w", ctr.ID, err)
	}
	return ctr, nil
}

// KillContainer sends SIGKILL. Idempotent - returns the handle if the
// container doesn't exist.
func (c *Client) KillContainer(ctx context.Context, ctr Container, name string) (Container, error) {
	c.logger.Info("Killing container", zap.String("service", name))
	err := c.engine.ContainerKill(ctx, ctr.ID, "SIGKILL")
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.logger.Info("Container not found", zap.String("service", name))
			return ctr, nil
		}
		return ctr, fmt.Errorf("failed to kill container %s: %w", ctr.ID, err)
	}
	return ctr, nil
}

// RemoveContainer removes a container. Idempotent - returns the handle if
// the container doesn't exist.
func (c *Client) RemoveContainer(ctx context.Context, ctr Container, name string) (Container, error) {
	c.logger.Info("Removing existing container", zap.String("service", name))
	err := c.engine.ContainerRemove(ctx, ctr.ID, types.ContainerRemoveOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			c.logger.Info("Container not found", zap.String("service", name))
			return ctr, nil
		}
		return ctr, fmt.Errorf("failed to remove container %s: %w", ctr.ID, err)
	}
	return ctr, nil
}

// StartContainer starts an existing container. An already running
// container is not an error.
func (c *Client) StartContainer(ctx context.Context, ctr Container, name string) (Container, error) {
	c.logger.Info("Starting container", zap.String("service", name))
	err := c.engine.ContainerStart(ctx, ctr.ID, types.ContainerStartOptions{})
	if err != nil {
		if errdefs.IsNotModified(err) {
			c.logger.Info("Container already started", zap.String("service", name))
			return ctr, nil
		}
		return ctr, fmt.Errorf("failed to start container %s: %w", ctr.ID, err)
	}
	return ctr, nil
}

// CreateContainer creates a container from image without starting it. The
// image reference is written into cfg.
func (c *Client) CreateContainer(ctx context.Context, image string, cfg *RunConfig) (Container, error) {
	c.logger.Info("Creating container", zap.String("image", image))
	if cfg.Config == nil {
		cfg.Config = &container.Config{}
	}
	cfg.Image = image
	resp, err := c.engine.ContainerCreate(ctx, cfg.Config, cfg.HostConfig, nil, nil, "")
	if err != nil {
		return Container{}, fmt.Errorf("failed to create container from %s: %w", image, err)
	}
	for _, w := range resp.Warnings {
		c.logger.Warn(w, zap.String("image", image))
	}
	return Container{ID: resp.ID, Image: image}, nil
}

// RenameContainer gives ctr its service name.
func (c *Client) RenameContainer(ctx context.Context, name string, ctr Container) (Container, error) {
	c.logger.Info("Setting container name", zap.String("service", name))
	if err := c.engine.ContainerRename(ctx, ctr.ID, name); err != nil {
		return ctr, fmt.Errorf("failed to rename container %s to %s: %w", ctr.ID, name, err)
	}
	ctr.Name = name
	return ctr, nil
}

// Run creates, starts and names a container (like docker run -d --name).
// A failing stage aborts the rest; nothing is rolled back.
func (c *Client) Run(ctx context.Context, image, name string, cfg *RunConfig) (Container, error) {
	ctr, err := c.CreateContainer(ctx, image, cfg)
	if err != nil {
		return ctr, err
	}
	if ctr, err = c.StartContainer(ctx, ctr, name); err != nil {
		return ctr, err
	}
	return c.RenameContainer(ctx, name, ctr)
}

// GetAllContainers returns every container, running or not, created from
// baseImage under any tag.
func (c *Client) GetAllContainers(ctx context.Context, baseImage string) ([]Container, error) {
	list, err := c.engine.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	out := []Container{}
	for _, ctr := range list {
		if imageName(ctr.Image) != baseImage {
			continue
		}
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		out = append(out, Container{
			ID:     ctr.ID,
			Name:   name,
			Image:  ctr.Image,
			State:  ctr.State,
			Status: ctr.Status,
			Ports:  ctr.Ports,
		})
	}
	return out, nil
}

// imageName strips the tag from an image reference.
func imageName(ref string) string {
	name, _, _ := strings.Cut(ref, ":")
	return name
}

// destroyOnce runs stop then remove, escalating to kill then remove, and
// finally a bare remove.
func (c *Client) destroyOnce(ctx context.Context, ctr Container, name string) error {
	_, err := c.StopContainer(ctx, ctr, name)
	if err == nil {
		if _, err = c.RemoveContainer(ctx, ctr, name); err == nil {
			return nil
		}
	}

	c.logger.Info("Attempting to kill container", zap.String("service", name), zap.Error(err))
	_, err = c.KillContainer(ctx, ctr, name)
	if err == nil {
		if _, err = c.RemoveContainer(ctx, ctr, name); err == nil {
			return nil
		}
	}

	c.logger.Info("Error killing container. Removing anyway.", zap.String("service", name), zap.Error(err))
	_, err = c.RemoveContainer(ctx, ctr, name)
	return err
}

// DestroyContainer removes ctr, retrying the whole escalation up to
// MaxRetries times. The last error is returned when every attempt fails.
func (c *Client) DestroyContainer(ctx context.Context, ctr Container, name string) error {
	for attempt := 1; ; attempt++ {
		err := c.destroyOnce(ctx, ctr, name)
		if err == nil {
			return nil
		}
		if attempt >= c.retries {
			c.logger.Error("Container removal retry limit reached.", zap.String("service", name), zap.Error(err))
			return err
		}
		c.logger.Info("Error removing container. Retrying...", zap.String("service", name), zap.Int("attempt", attempt))

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// LogOptions selects which container output Logs streams.
type LogOptions struct {
	Follow bool
	Tail   string
}

// Logs copies a container's output to stdout and stderr. Output of TTY
// containers is not multiplexed and goes to stdout as is.
func (c *Client) Logs(ctx context.Context, containerID string, opts LogOptions, stdout, stderr io.Writer) error {
	info, err := c.engine.ContainerInspect(ctx, containerID)
	if err != nil {
		return fmt.Errorf("failed to inspect container %s: %w", containerID, err)
	}
	tty := info.Config != nil && info.Config.Tty

	reader, err := c.engine.ContainerLogs(ctx, containerID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
	})
	if err != nil {
		return fmt.Errorf("failed to get logs for container %s: %w", containerID, err)
	}
	defer func() { _ = reader.Close() }()

	if tty {
		_, err = io.Copy(stdout, reader)
	} else {
		_, err = stdcopy.StdCopy(stdout, stderr, reader)
	}
	if err != nil {
		return fmt.Errorf("failed to read logs for container %s: %w", containerID, err)
	}
	return nil
}
