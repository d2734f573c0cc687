package actions

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Params holds the decoded parameters of one routine step. Values come from
// YAML, yaegi maps or CLI overrides, so numbers may arrive as int, float64 or
// string.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Float returns key as a float64, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("param %s: %q is not a number", key, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("param %s: unsupported type %T", key, raw)
	}
}

// String returns key as a trimmed, lower-cased string, or def when absent.
func (p Params) String(key, def string) (string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("param %s: expected string, got %T", key, raw)
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

// Bool returns key as a bool, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("param %s: %q is not a bool", key, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("param %s: unsupported type %T", key, raw)
	}
}

// Duration reads key as seconds.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return def, nil
	}
	if s, isString := raw.(string); isString {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, nil
		}
	}
	secs, err := p.Float(key, 0)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
