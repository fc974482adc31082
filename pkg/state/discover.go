package state

import (
	"context"
	"fmt"

	"github.com/mcm-app/mcm/pkg/docker"
)

// ContainerLister finds the containers created from a base image.
type ContainerLister interface {
	GetAllContainers(ctx context.Context, baseImage string) ([]docker.Container, error)
}

// Discover looks up the live state of every target, in target order. Names
// are never derived from conventions; containers are matched by image.
func Discover(ctx context.Context, lister ContainerLister, targets []Target) ([]ServiceInfo, error) {
	result := make([]ServiceInfo, 0, len(targets))
	for _, t := range targets {
		containers, err := lister.GetAllContainers(ctx, t.BaseImage)
		if err != nil {
			return nil, fmt.Errorf("failed to discover containers for %s: %w", t.Name, err)
		}
		result = append(result, Merge(t, containers))
	}
	return result, nil
}
