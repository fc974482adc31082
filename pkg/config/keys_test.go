package config

import "testing"

func TestEnvKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"host", "LK_HOST"},
		{"logging", "LK_LOGGING"},
		{"envName", "LK__ENV_NAME"},
		{"dbHost", "LK__DB_HOST"},
		{"lk_test", "LK_TEST"},
		{"LK_ALREADY", "LK_ALREADY"},
		{"HOST_PORT", "LK_HOST_PORT"},
		{"sql_host", "LK_SQL_HOST"},
		{"azure_notificationHubs_connectionString", "LK__AZURE__NOTIFICATION_HUBS__CONNECTION_STRING"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := EnvKey(tt.input)
			if got != tt.want {
				t.Errorf("EnvKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvKeyStable(t *testing.T) {
	for _, key := range []string{"envName", "host", "a_bC_d"} {
		if EnvKey(key) != EnvKey(key) {
			t.Errorf("EnvKey(%q) is not deterministic", key)
		}
	}
}
