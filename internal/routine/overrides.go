package routine

import (
	"fmt"
	"strings"
)

// ApplyOverrides returns a copy of def with leaf params replaced. Keys take
// the form "target.param", where target matches a leaf's step name or its
// action id. Every key must hit at least one leaf.
func ApplyOverrides(def Definition, overrides map[string]any) (Definition, error) {
	out := def.Normalized()
	for key, value := range overrides {
		target, param, ok := splitOverrideKey(key)
		if !ok {
			return Definition{}, fmt.Errorf("routine: override %q must look like target.param", key)
		}
		if applyOverride(&out.Root, target, param, value) == 0 {
			return Definition{}, fmt.Errorf("routine %s: override %q matches no step", out.ID, key)
		}
	}
	return out, nil
}

func splitOverrideKey(key string) (string, string, bool) {
	trimmed := strings.TrimSpace(key)
	idx := strings.LastIndex(trimmed, ".")
	if idx <= 0 || idx == len(trimmed)-1 {
		return "", "", false
	}
	return strings.ToLower(trimmed[:idx]), trimmed[idx+1:], true
}

func applyOverride(step *Step, target, param string, value any) int {
	hits := 0
	if step.IsLeaf() && (strings.ToLower(step.Name) == target || step.Action == target) {
		if step.Params == nil {
			step.Params = map[string]any{}
		}
		step.Params[param] = value
		hits++
	}
	for i := range step.Sequential {
		hits += applyOverride(&step.Sequential[i], target, param, value)
	}
	for i := range step.Parallel {
		hits += applyOverride(&step.Parallel[i], target, param, value)
	}
	return hits
}
