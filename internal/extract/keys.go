package extract

import (
	"fmt"
	"strings"
)

// ExtractPrimaryKey returns the primary key columns of an SST meta block.
// Both list and comma-separated string forms are accepted.
func ExtractPrimaryKey(meta map[string]any) []string {
	return keyList(meta["primary_key"])
}

// ExtractUniqueKeys returns the unique key columns of an SST meta block.
// Both list and comma-separated string forms are accepted.
func ExtractUniqueKeys(meta map[string]any) []string {
	return keyList(meta["unique_keys"])
}

func keyList(v any) []string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return []string{}
		}
		parts := strings.Split(x, ",")
		keys := make([]string, 0, len(parts))
		for _, p := range parts {
			keys = append(keys, strings.TrimSpace(p))
		}
		return keys
	case []any:
		keys := make([]string, 0, len(x))
		for _, k := range x {
			keys = append(keys, strings.TrimSpace(fmt.Sprint(k)))
		}
		return keys
	case []string:
		keys := make([]string, 0, len(x))
		for _, k := range x {
			keys = append(keys, strings.TrimSpace(k))
		}
		return keys
	default:
		return []string{}
	}
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
