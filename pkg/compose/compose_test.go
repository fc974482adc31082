package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcm-app/mcm/pkg/config"
	"github.com/mcm-app/mcm/pkg/service"
)

func testService(t *testing.T) *service.Service {
	t.Helper()
	weight := 10
	s, err := service.New(service.Options{
		Name: "api",
		Definition: service.Definition{
			Image:  "my/api",
			Weight: &weight,
			Config: map[string]any{"host": "db"},
			Env:    map[string]any{"NODE_ENV": "development", "PRICE": "$5"},
			Ports: map[string]service.Port{
				"http": {Container: "8000", Host: "8001"},
				"dns":  {Container: "53", Host: "1053", Protocol: "udp"},
			},
			Run: map[string]any{
				"HostConfig": map[string]any{
					"Binds":         []any{"api/data:/data", "api/conf:/etc/api:ro"},
					"RestartPolicy": map[string]any{"Name": "no"},
				},
			},
		},
		Config:        config.ServiceConfig{Tag: "v2", Ports: map[string]config.PortValue{"http": "1000"}},
		RunDefaults:   map[string]any{"Tty": true},
		ContainersDir: "/mcm/containers",
	})
	require.NoError(t, err)
	return s
}

func TestExport(t *testing.T) {
	project, err := Export("mcm", []*service.Service{testService(t)})
	require.NoError(t, err)

	svc, ok := project.Services["api"]
	require.True(t, ok)
	assert.Equal(t, "my/api:v2", svc.Image)
	assert.Equal(t, "api", svc.ContainerName)
	assert.True(t, svc.Tty)
	assert.Equal(t, "no", svc.Restart)
	require.NotNil(t, svc.Environment["LK_HOST"])
	assert.Equal(t, "db", *svc.Environment["LK_HOST"])
	assert.Equal(t, "development", *svc.Environment["NODE_ENV"])
	assert.Equal(t, "$$5", *svc.Environment["PRICE"])

	require.Len(t, svc.Ports, 2)
	assert.Equal(t, uint32(53), svc.Ports[0].Target)
	assert.Equal(t, "1053", svc.Ports[0].Published)
	assert.Equal(t, "udp", svc.Ports[0].Protocol)
	assert.Equal(t, uint32(8000), svc.Ports[1].Target)
	assert.Equal(t, "1000", svc.Ports[1].Published)

	require.Len(t, svc.Volumes, 2)
	assert.Equal(t, "/mcm/containers/api/data", svc.Volumes[0].Source)
	assert.Equal(t, "/data", svc.Volumes[0].Target)
	assert.False(t, svc.Volumes[0].ReadOnly)
	assert.True(t, svc.Volumes[1].ReadOnly)
}

func TestWriteVerify(t *testing.T) {
	project, err := Export("mcm", []*service.Service{testService(t)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "docker-compose.yaml")
	require.NoError(t, Write(project, path))

	names, err := Verify(context.Background(), path, project)
	require.NoError(t, err)
	assert.Equal(t, []string{"api"}, names)

	loaded, err := Load(context.Background(), path, "mcm")
	require.NoError(t, err)
	api := loaded.Services["api"]
	assert.Equal(t, "my/api:v2", api.Image)
	assert.Equal(t, "development", *api.Environment["NODE_ENV"])
	assert.Equal(t, "$5", *api.Environment["PRICE"])
}

func TestVerifyMissingService(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docker-compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  api:\n    image: my/api\n"), 0644))

	want, err := Export("mcm", []*service.Service{testService(t), {Name: "db", Image: "postgres:latest"}})
	require.NoError(t, err)

	names, err := Verify(context.Background(), path, want)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing [db]")
	assert.Equal(t, []string{"api"}, names)
}

func TestServiceNamesSorted(t *testing.T) {
	project, err := Export("mcm", []*service.Service{{Name: "web", Image: "w"}, {Name: "api", Image: "a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web"}, ServiceNames(project))
}
