package config

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsServiceOrder(t *testing.T) {
	f, err := Parse([]byte(`{
	"config": {"sql": {"host": "db"}},
	"services": {
		"zeta": {"tag": "v1", "ports": {"http": 1000}},
		"alpha": {"omit": true, "config": {"host": 2000}},
		"mid": {}
	}
}`))
	require.NoError(t, err)

	names := make([]string, 0, len(f.Services))
	for _, s := range f.Services {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)

	zeta, ok := f.Services.Lookup("zeta")
	require.True(t, ok)
	assert.Equal(t, "v1", zeta.Tag)
	assert.Equal(t, PortValue("1000"), zeta.Ports["http"])

	alpha, _ := f.Services.Lookup("alpha")
	assert.True(t, alpha.Omit)
	assert.Equal(t, 2000, alpha.Config["host"])

	assert.Equal(t, map[string]any{"sql": map[string]any{"host": "db"}}, f.Config)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEmbeddedDefaults(t *testing.T) {
	tree, err := Defaults()
	require.NoError(t, err)
	values, err := ParseConfig(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, "172.17.0.1", values["NETWORK_DOCKER_IP"])
	assert.Equal(t, "en0", values["NETWORK_PUBLIC_INTERFACE"])

	sample, err := Sample()
	require.NoError(t, err)
	f, err := Parse(sample)
	require.NoError(t, err)
	_, ok := f.Services.Lookup("haproxy")
	assert.True(t, ok)
}
