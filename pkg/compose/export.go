package compose

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/types"
	"github.com/docker/go-connections/nat"

	"github.com/mcm-app/mcm/pkg/service"
)

// Export converts resolved services into a compose project that runs the
// same containers without mcm.
func Export(projectName string, services []*service.Service) (*types.Project, error) {
	project := &types.Project{
		Name:     projectName,
		Services: types.Services{},
	}
	for _, s := range services {
		svc, err := exportService(s)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", s.Name, err)
		}
		project.Services[s.Name] = svc
	}
	return project, nil
}

func exportService(s *service.Service) (types.ServiceConfig, error) {
	svc := types.ServiceConfig{
		Name:          s.Name,
		Image:         s.Image,
		ContainerName: s.Name,
		Environment:   types.MappingWithEquals{},
	}
	rc := s.RunConfig
	if rc == nil || rc.Config == nil {
		return svc, nil
	}
	svc.Tty = rc.Tty

	for _, kv := range rc.Env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			svc.Environment[key] = nil
			continue
		}
		v := escapeInterpolation(value)
		svc.Environment[key] = &v
	}

	if rc.HostConfig == nil {
		return svc, nil
	}
	if name := string(rc.HostConfig.RestartPolicy.Name); name != "" {
		svc.Restart = name
	}

	keys := make([]string, 0, len(rc.HostConfig.PortBindings))
	for port := range rc.HostConfig.PortBindings {
		keys = append(keys, string(port))
	}
	sort.Strings(keys)
	for _, key := range keys {
		port := nat.Port(key)
		target, err := strconv.ParseUint(port.Port(), 10, 32)
		if err != nil {
			return svc, fmt.Errorf("invalid container port %s: %w", key, err)
		}
		for _, binding := range rc.HostConfig.PortBindings[port] {
			svc.Ports = append(svc.Ports, types.ServicePortConfig{
				Mode:      "ingress",
				HostIP:    binding.HostIP,
				Target:    uint32(target),
				Published: binding.HostPort,
				Protocol:  port.Proto(),
			})
		}
	}

	for _, bind := range rc.HostConfig.Binds {
		parts := strings.Split(bind, ":")
		if len(parts) < 2 {
			continue
		}
		vol := types.ServiceVolumeConfig{
			Type:   types.VolumeTypeBind,
			Source: parts[0],
			Target: parts[1],
		}
		if len(parts) > 2 {
			for _, opt := range strings.Split(parts[2], ",") {
				if opt == "ro" {
					vol.ReadOnly = true
				}
			}
		}
		svc.Volumes = append(svc.Volumes, vol)
	}
	return svc, nil
}

// Write marshals project as compose YAML to path.
func Write(project *types.Project, path string) error {
	data, err := project.MarshalYAML()
	if err != nil {
		return fmt.Errorf("failed to marshal compose project: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// escapeInterpolation keeps "$" literal when compose interpolates the file.
func escapeInterpolation(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
