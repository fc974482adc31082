package config

import (
	"regexp"
	"strings"
)

// EnvPrefix namespaces every generated configuration variable.
const EnvPrefix = "lk_"

var (
	prefixPattern = regexp.MustCompile(`(?i)^lk_`)
	lowerPattern  = regexp.MustCompile(`lk_[a-z]`)
)

// EnvKey converts a flattened configuration key into the environment variable
// name the services read their configuration from:
//
//	host                  => LK_HOST
//	envName               => LK__ENV_NAME
//	azure_notificationHub => LK__AZURE__NOTIFICATION_HUB
//
// Keys already carrying the lk_ prefix are not prefixed twice.
func EnvKey(key string) string {
	if !prefixPattern.MatchString(key) {
		key = EnvPrefix + key
	}
	if lowerPattern.MatchString(key) {
		key = splitCamelKey(key)
	}
	return strings.ToUpper(key)
}

// splitCamelKey re-segments every underscore separated part on its upper-case
// letters. When any part was split, parts are joined with a double underscore
// so the segment boundaries survive upper-casing.
func splitCamelKey(key string) string {
	segments := strings.Split(key, "_")
	parts := make([]string, len(segments))
	hasCamels := false
	for i, seg := range segments {
		parts[i] = strings.Join(splitCamels(seg), "_")
		if strings.Contains(parts[i], "_") {
			hasCamels = true
		}
	}
	delimiter := "_"
	if hasCamels {
		delimiter = "__"
	}
	return strings.Join(parts, delimiter)
}

func splitCamels(s string) []string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.Split(b.String(), " ")
}
