package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mcm-app/mcm/pkg/state"
)

var sampleStatuses = []state.ServiceInfo{
	{
		Name:   "api",
		Image:  "acme/api:1.2",
		Weight: 10,
		Status: state.StatusRunning,
		Containers: []state.ContainerInfo{
			{ID: "abc123", Name: "api", Image: "acme/api:1.2", State: "running", Status: "Up 2 minutes"},
		},
		Ports: []state.PortInfo{
			{Host: 8000, Container: 80, Protocol: "tcp"},
			{Host: 8443, Container: 443, Protocol: "tcp"},
		},
	},
	{Name: "db", Image: "postgres:latest", Weight: 100, Status: state.StatusMissing},
}

func TestFormatPorts(t *testing.T) {
	tests := []struct {
		name  string
		ports []state.PortInfo
		want  string
	}{
		{"none", nil, ""},
		{"one", []state.PortInfo{{Host: 1, Container: 2, Protocol: "udp"}}, "1:2/udp"},
		{"many", sampleStatuses[0].Ports, "8000:80/tcp, 8443:443/tcp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPorts(tt.ports); got != tt.want {
				t.Errorf("formatPorts() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteStatusTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, "table", sampleStatuses))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "IMAGE", "STATUS", "PORTS"}, strings.Fields(lines[0]))
	assert.Contains(t, lines[1], "api")
	assert.Contains(t, lines[1], "8000:80/tcp, 8443:443/tcp")
	assert.Equal(t, []string{"db", "postgres:latest", "missing"}, strings.Fields(lines[2]))
}

func TestWriteStatusJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, "json", sampleStatuses))

	var got []state.ServiceInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "running", got[0].Status)
	assert.Equal(t, "abc123", got[0].Containers[0].ID)
	assert.Contains(t, buf.String(), `"name": "db"`)
}

func TestWriteStatusYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeStatus(&buf, "yaml", sampleStatuses))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "api", got[0]["name"])
	assert.Equal(t, "missing", got[1]["status"])
}

func TestWriteStatusUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeStatus(&buf, "xml", sampleStatuses)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"xml"`)
	assert.Empty(t, buf.String())
}
