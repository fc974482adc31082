package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/imdario/mergo"
)

// Merge returns a deep copy of base with overlay merged on top of it. Leaf
// values from overlay win; nested mappings are merged key by key. Neither
// argument is modified.
func Merge(base, overlay map[string]any) (map[string]any, error) {
	dst := Clone(base)
	if dst == nil {
		dst = map[string]any{}
	}
	if len(overlay) == 0 {
		return dst, nil
	}
	replaceMismatched(dst, overlay)
	if err := mergo.Merge(&dst, Clone(overlay), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}
	return dst, nil
}

// replaceMismatched copies overlay values into dst wherever exactly one side
// is a mapping. mergo keeps dst on such a mismatch.
func replaceMismatched(dst, overlay map[string]any) {
	for k, v := range overlay {
		cur, ok := dst[k]
		if !ok {
			continue
		}
		curMap, curIsMap := cur.(map[string]any)
		vMap, vIsMap := v.(map[string]any)
		switch {
		case curIsMap && vIsMap:
			replaceMismatched(curMap, vMap)
		case curIsMap != vIsMap:
			dst[k] = cloneValue(v)
		}
	}
}

// Clone deep-copies a configuration tree.
func Clone(tree map[string]any) map[string]any {
	if tree == nil {
		return nil
	}
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Flatten collapses a nested tree into a single level, joining the path of
// every leaf with delimiter. Sequence elements are addressed by index.
// Empty nested mappings and sequences produce no keys.
func Flatten(tree map[string]any, delimiter string) map[string]any {
	out := map[string]any{}
	for k, v := range tree {
		flattenInto(out, k, v, delimiter)
	}
	return out
}

func flattenInto(out map[string]any, prefix string, v any, delimiter string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flattenInto(out, prefix+delimiter+k, child, delimiter)
		}
	case []any:
		for i, child := range t {
			flattenInto(out, prefix+delimiter+strconv.Itoa(i), child, delimiter)
		}
	default:
		out[prefix] = v
	}
}

// ParseConfig merges user over defaults and flattens the result into
// upper-cased PARENT_CHILD keys. Missing arguments behave as empty trees.
func ParseConfig(defaults, user map[string]any) (map[string]any, error) {
	merged, err := Merge(defaults, user)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for k, v := range Flatten(merged, "_") {
		out[strings.ToUpper(k)] = v
	}
	return out, nil
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatValue renders a scalar configuration value the way it appears in an
// environment variable.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

// Lookup returns the formatted value of key, or "" when it is absent or empty.
func Lookup(values map[string]any, key string) string {
	v, ok := values[key]
	if !ok {
		return ""
	}
	return FormatValue(v)
}
