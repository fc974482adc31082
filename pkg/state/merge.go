package state

import (
	"sort"

	"github.com/mcm-app/mcm/pkg/docker"
)

// Merge combines a configured service with the containers found for it.
// A service with no containers is "missing", or "omitted" when the user
// configuration omits it. Otherwise it is "running" if any container runs.
func Merge(target Target, containers []docker.Container) ServiceInfo {
	info := ServiceInfo{
		Name:       target.Name,
		Image:      target.Image,
		Weight:     target.Weight,
		Containers: []ContainerInfo{},
	}

	running := false
	for _, c := range containers {
		info.Containers = append(info.Containers, ContainerInfo{
			ID:     shortID(c.ID),
			Name:   c.Name,
			Image:  c.Image,
			State:  c.State,
			Status: c.Status,
		})
		if c.State == StatusRunning {
			running = true
		}
		for _, p := range c.Ports {
			if p.PublicPort == 0 {
				continue
			}
			info.Ports = append(info.Ports, PortInfo{
				Host:      int(p.PublicPort),
				Container: int(p.PrivatePort),
				Protocol:  p.Type,
			})
		}
	}
	sort.Slice(info.Ports, func(i, j int) bool {
		if info.Ports[i].Host != info.Ports[j].Host {
			return info.Ports[i].Host < info.Ports[j].Host
		}
		return info.Ports[i].Protocol < info.Ports[j].Protocol
	})

	switch {
	case running:
		info.Status = StatusRunning
	case len(containers) > 0:
		info.Status = StatusStopped
	case target.Omit:
		info.Status = StatusOmitted
	default:
		info.Status = StatusMissing
	}
	return info
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
