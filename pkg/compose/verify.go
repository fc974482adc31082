package compose

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"
)

// Load parses a compose file the way docker compose would. The process
// environment and .env files are not consulted.
func Load(ctx context.Context, path string, projectName string) (*types.Project, error) {
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}

	options, err := cli.NewProjectOptions([]string{path},
		cli.WithWorkingDirectory(dir),
		cli.WithName(projectName),
	)
	if err != nil {
		return nil, err
	}
	return options.LoadProject(ctx)
}

// Verify reloads the compose file at path and checks that it defines
// exactly the services of want. It returns the loaded service names.
func Verify(ctx context.Context, path string, want *types.Project) ([]string, error) {
	loaded, err := Load(ctx, path, want.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to reload %s: %w", path, err)
	}

	got := ServiceNames(loaded)
	var missing []string
	for _, name := range ServiceNames(want) {
		if _, ok := loaded.Services[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 || len(got) != len(want.Services) {
		return got, fmt.Errorf("%s defines services [%s], missing [%s]", path, strings.Join(got, " "), strings.Join(missing, " "))
	}
	return got, nil
}

// ServiceNames returns the service names of project, sorted.
func ServiceNames(project *types.Project) []string {
	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
