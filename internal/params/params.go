// Package params provides typed accessors over an untyped parameter bag
// rather than per-operator parameter structs: every operator receives an
// untyped map[string]any and pulls out what it
// needs through these helpers, which apply defaults, coerce string values
// (as a form posted over HTTP would supply them), and report the offending
// key on failure.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"microtrader/internal/microerr"
)

// Float64 returns params[key] coerced to float64, or def if key is absent.
func Float64(p map[string]any, key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, microerr.Paramf("params", "invalid value for %q (%v)", key, v)
		}
		return f, nil
	default:
		return 0, microerr.Paramf("params", "invalid value for %q (%v)", key, v)
	}
}

// Int returns params[key] coerced to int, or def if key is absent.
func Int(p map[string]any, key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, microerr.Paramf("params", "invalid value for %q (%v)", key, v)
		}
		return i, nil
	default:
		return 0, microerr.Paramf("params", "invalid value for %q (%v)", key, v)
	}
}

// Bool returns params[key] coerced to bool, or def if key is absent. String
// values must be "true" or "false" (case-insensitive), matching the
// original's lib/casts.py toBool.
func Bool(p map[string]any, key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, microerr.Paramf("params", "can't convert %q to boolean for %q", b, key)
		}
	default:
		return false, microerr.Paramf("params", "invalid value for %q (%v)", key, v)
	}
}

// String returns params[key] as a string, or def if key is absent.
func String(p map[string]any, key string, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Map re-keys src by keyMap (targetKey -> sourceKey), skipping source keys
// that aren't present — the Go analogue of lib/utils.py's mapDict, used to
// translate a CompoundOperator's param/stream name space into each child
// operator's own.
func Map[V any](src map[string]V, keyMap map[string]string) map[string]V {
	out := make(map[string]V, len(keyMap))
	for targetKey, sourceKey := range keyMap {
		if v, ok := src[sourceKey]; ok {
			out[targetKey] = v
		}
	}
	return out
}

// Merge overlays overrides onto base without mutating either, used to apply
// constantParams on top of caller-supplied params in Processor construction.
func Merge(base, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// WithDefaults fills every key present in defaults but absent from source,
// leaving source's own values (including keys defaults doesn't know about)
// untouched. This is the Go analogue of lib/utils.py's mergeDefaults, minus
// its eager type-casting: every operator parameter is coerced to its
// concrete type lazily, on read, by Int/Float64/Bool/String above, so
// there's nothing to cast at merge time.
func WithDefaults(source, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(source)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range source {
		out[k] = v
	}
	return out
}
