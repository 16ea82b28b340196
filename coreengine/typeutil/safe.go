// Package typeutil provides comma-ok conversions for the untyped payloads
// exchanged with capability agents.
package typeutil

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// AsMap converts an agent payload to map[string]any.
//
// Maps with string keys are returned as-is (named map types are converted).
// Structs and pointers to structs are converted through their JSON encoding.
// Anything else, including nil, reports false.
func AsMap(value any) (map[string]any, bool) {
	if value == nil {
		return nil, false
	}
	if m, ok := value.(map[string]any); ok {
		return m, true
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		if rv.IsNil() {
			return nil, false
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		if _, isTime := rv.Interface().(time.Time); isTime {
			return nil, false
		}
		data, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, false
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// String asserts value to string.
func String(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// StringDefault returns value as a string, or defaultVal.
func StringDefault(value any, defaultVal string) string {
	if s, ok := String(value); ok {
		return s
	}
	return defaultVal
}

// Int converts the numeric kinds that JSON and YAML decoders produce to int.
func Int(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	default:
		return 0, false
	}
}

// StringSlice converts []string or []any of strings to []string.
func StringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// TimeLayouts are the string timestamp formats accepted by Time.
var TimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Time converts time.Time, *time.Time or a timestamp string to time.Time.
// Strings without a zone are read as UTC. The second result is false when
// value is absent or not a time; the error is set when a string could not be parsed.
func Time(value any) (time.Time, bool, error) {
	switch v := value.(type) {
	case time.Time:
		return v, true, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, false, nil
		}
		return *v, true, nil
	case string:
		s := strings.TrimSpace(v)
		var lastErr error
		for _, layout := range TimeLayouts {
			t, err := time.Parse(layout, s)
			if err == nil {
				return t, true, nil
			}
			lastErr = err
		}
		return time.Time{}, false, lastErr
	default:
		return time.Time{}, false, nil
	}
}

// GetNested reads a dot-separated path from nested maps.
func GetNested(data map[string]any, path string) (any, bool) {
	if data == nil || path == "" {
		return nil, false
	}

	current := any(data)
	for _, key := range strings.Split(path, ".") {
		m, ok := AsMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
