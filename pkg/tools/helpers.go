package tools

import (
	"fmt"
	"strings"
)

// stringInput reads a string field, trimmed, defaulting to def.
func stringInput(input map[string]any, key, def string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return def
}

// floatInput reads a numeric field, tolerating a string encoding the same
// way the trade-contract normalizer does.
func floatInput(input map[string]any, key string, def float64) float64 {
	switch v := input[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return def
}

// intInput reads an integer field with a default.
func intInput(input map[string]any, key string, def int) int {
	return int(floatInput(input, key, float64(def)))
}
