package executor

import (
	"fmt"
	"sort"
	"strings"
)

// formatValueForLogs renders resolved inputs compactly for debug logs. Long
// collections are summarized.
func formatValueForLogs(v any) string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + formatValueForLogs(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		if len(t) > 8 {
			return fmt.Sprintf("[%d items]", len(t))
		}
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValueForLogs(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf("%v", v)
}
