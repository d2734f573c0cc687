package routine

import (
	"testing"
)

func TestApplyOverridesByActionAndName(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(sampleRoutine))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := ApplyOverrides(def, map[string]any{
		"drive-distance.speed": 0.3,
		"turn.degrees":         "45",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Root.Sequential[0].Params["speed"] != 0.3 {
		t.Fatalf("speed override missing: %v", out.Root.Sequential[0].Params)
	}
	if out.Root.Sequential[1].Parallel[1].Params["degrees"] != "45" {
		t.Fatalf("degrees override missing")
	}
	if _, ok := def.Root.Sequential[0].Params["speed"]; ok {
		t.Fatalf("overrides must not mutate the input definition")
	}
}

func TestApplyOverridesRejectsUnknownTargets(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(sampleRoutine))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ApplyOverrides(def, map[string]any{"grabber.state": "open"}); err == nil {
		t.Fatalf("expected no-match error")
	}
	if _, err := ApplyOverrides(def, map[string]any{"speed": 1}); err == nil {
		t.Fatalf("expected malformed key error")
	}
	// Group names are not override targets.
	if _, err := ApplyOverrides(def, map[string]any{"both.degrees": 10}); err == nil {
		t.Fatalf("expected group target to be rejected")
	}
}
