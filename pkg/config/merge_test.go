package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("merges and flattens", func(t *testing.T) {
		user := map[string]any{
			"sql": map[string]any{
				"database": "myDb",
				"host":     "localhost",
			},
			"redis": map[string]any{
				"host": "localhost",
			},
		}
		defaults := map[string]any{
			"sql": map[string]any{
				"database": "defaultDb",
				"host":     "defaultHost",
				"user":     "someUser",
			},
			"rabbitmq": map[string]any{
				"host": "wabbit",
			},
		}

		got, err := ParseConfig(defaults, user)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"SQL_DATABASE":  "myDb",
			"SQL_HOST":      "localhost",
			"SQL_USER":      "someUser",
			"REDIS_HOST":    "localhost",
			"RABBITMQ_HOST": "wabbit",
		}, got)
	})

	t.Run("user mapping replaces default scalar", func(t *testing.T) {
		got, err := ParseConfig(
			map[string]any{"proxy": "off", "sql": map[string]any{"host": "db"}},
			map[string]any{"proxy": map[string]any{"host": "1.2.3.4"}},
		)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"PROXY_HOST": "1.2.3.4",
			"SQL_HOST":   "db",
		}, got)
	})

	t.Run("user scalar replaces default mapping", func(t *testing.T) {
		got, err := ParseConfig(
			map[string]any{"cache": map[string]any{"host": "redis", "port": 6379}},
			map[string]any{"cache": false},
		)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"CACHE": false}, got)
	})

	t.Run("no configurations", func(t *testing.T) {
		got, err := ParseConfig(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("does not mutate inputs", func(t *testing.T) {
		defaults := map[string]any{"sql": map[string]any{"host": "a"}}
		user := map[string]any{"sql": map[string]any{"user": "b"}}

		_, err := ParseConfig(defaults, user)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"sql": map[string]any{"host": "a"}}, defaults)
		assert.Equal(t, map[string]any{"sql": map[string]any{"user": "b"}}, user)
	})

	t.Run("user false wins over default true", func(t *testing.T) {
		got, err := ParseConfig(map[string]any{"debug": true}, map[string]any{"debug": false})
		require.NoError(t, err)
		assert.Equal(t, false, got["DEBUG"])
	})
}

func TestFlatten(t *testing.T) {
	got := Flatten(map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"list": []any{"one", "two"},
		"top":  true,
	}, "_")

	assert.Equal(t, map[string]any{
		"a_b":    1,
		"a_c_d":  "x",
		"list_0": "one",
		"list_1": "two",
		"top":    true,
	}, got)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"text", "text"},
		{2000, "2000"},
		{float64(8000), "8000"},
		{1.5, "1.5"},
		{true, "true"},
		{false, "false"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
