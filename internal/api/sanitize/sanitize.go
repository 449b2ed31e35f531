// Package sanitize strips markup from user-supplied record values before they
// reach the engine.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func Text(input string) string {
	return strings.TrimSpace(getStrictPolicy().Sanitize(input))
}

// Body walks a decoded request body and sanitizes every string in it,
// including strings nested in maps and slices.
func Body(body map[string]interface{}) map[string]interface{} {
	if body == nil {
		return nil
	}
	out := make(map[string]interface{}, len(body))
	for key, value := range body {
		out[key] = foldValue(value)
	}
	return out
}

func foldValue(value interface{}) interface{} {
	switch typed := value.(type) {
	case string:
		return Text(typed)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = foldValue(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			out = append(out, foldValue(item))
		}
		return out
	default:
		return typed
	}
}

func getStrictPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}
