package routine

import (
	"fmt"
	"strings"

	"github.com/kingrea/fieldbot/internal/actions"
)

// Definition describes an autonomous routine as authored for one side of the
// field. The schema matches .fieldbot/routines/*.yaml.
type Definition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Side        Side              `json:"side" yaml:"side"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Root        Step              `json:"root" yaml:"root"`
}

// Step is one node of the routine tree. Leaves set Action and Params; groups
// set Sequential and/or Parallel.
type Step struct {
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Action     string         `json:"action,omitempty" yaml:"action,omitempty"`
	Params     actions.Params `json:"params,omitempty" yaml:"params,omitempty"`
	Sequential []Step         `json:"sequential,omitempty" yaml:"sequential,omitempty"`
	Parallel   []Step         `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

// IsLeaf reports whether the step wraps an action.
func (s Step) IsLeaf() bool {
	return strings.TrimSpace(s.Action) != ""
}

// DisplayName returns the step name, falling back to the action id.
func (s Step) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	if s.IsLeaf() {
		return strings.ToLower(strings.TrimSpace(s.Action))
	}
	return "group"
}

// Normalized returns a trimmed, deep copy of the definition. The root step is
// named after the routine when it has no name of its own.
func (def Definition) Normalized() Definition {
	clone := Definition{
		ID:          strings.TrimSpace(def.ID),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Side:        Side(strings.ToLower(strings.TrimSpace(string(def.Side)))),
		Root:        def.Root.normalized(),
	}
	if clone.Name == "" {
		clone.Name = clone.ID
	}
	if strings.TrimSpace(def.Root.Name) == "" {
		clone.Root.Name = clone.ID
	}
	if len(def.Metadata) > 0 {
		clone.Metadata = make(map[string]string, len(def.Metadata))
		for key, value := range def.Metadata {
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				continue
			}
			clone.Metadata[trimmed] = strings.TrimSpace(value)
		}
	}
	return clone
}

// Clone returns a deep copy without normalizing.
func (def Definition) Clone() Definition {
	clone := def
	clone.Root = def.Root.clone()
	if def.Metadata != nil {
		clone.Metadata = make(map[string]string, len(def.Metadata))
		for key, value := range def.Metadata {
			clone.Metadata[key] = value
		}
	}
	return clone
}

// Validate ensures the definition is well formed. Action ids are checked
// against a registry at build time, not here.
func (def Definition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("routine: id is required")
	}
	if _, err := ParseSide(string(normalized.Side)); err != nil {
		return fmt.Errorf("routine %s: %w", normalized.ID, err)
	}
	if err := normalized.Root.validate("root"); err != nil {
		return fmt.Errorf("routine %s: %w", normalized.ID, err)
	}
	return nil
}

func (s Step) normalized() Step {
	clone := Step{
		Name:   strings.TrimSpace(s.Name),
		Action: strings.ToLower(strings.TrimSpace(s.Action)),
	}
	if clone.Name == "" {
		clone.Name = s.DisplayName()
	}
	if len(s.Params) > 0 {
		clone.Params = make(actions.Params, len(s.Params))
		for key, value := range s.Params {
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				continue
			}
			clone.Params[trimmed] = value
		}
	}
	clone.Sequential = normalizeSteps(s.Sequential)
	clone.Parallel = normalizeSteps(s.Parallel)
	return clone
}

func normalizeSteps(steps []Step) []Step {
	if len(steps) == 0 {
		return nil
	}
	out := make([]Step, len(steps))
	for i, step := range steps {
		out[i] = step.normalized()
	}
	return out
}

func (s Step) clone() Step {
	clone := s
	clone.Params = s.Params.Clone()
	clone.Sequential = cloneSteps(s.Sequential)
	clone.Parallel = cloneSteps(s.Parallel)
	return clone
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, step := range steps {
		out[i] = step.clone()
	}
	return out
}

func (s Step) validate(path string) error {
	hasChildren := len(s.Sequential) > 0 || len(s.Parallel) > 0
	if s.IsLeaf() {
		if hasChildren {
			return fmt.Errorf("%s: step %s sets both action and children", path, s.Name)
		}
		return nil
	}
	if len(s.Params) > 0 {
		return fmt.Errorf("%s: group %s cannot carry params", path, s.Name)
	}
	if !hasChildren {
		return fmt.Errorf("%s: step %s needs an action or children", path, s.Name)
	}
	for i, child := range s.Sequential {
		if err := child.validate(fmt.Sprintf("%s.sequential[%d]", path, i)); err != nil {
			return err
		}
	}
	for i, child := range s.Parallel {
		if err := child.validate(fmt.Sprintf("%s.parallel[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every step depth first, sequential children before parallel
// ones, with its dotted path.
func (s Step) Walk(visit func(path string, step Step)) {
	s.walk("root", visit)
}

func (s Step) walk(path string, visit func(string, Step)) {
	visit(path, s)
	for i, child := range s.Sequential {
		child.walk(fmt.Sprintf("%s.sequential[%d]", path, i), visit)
	}
	for i, child := range s.Parallel {
		child.walk(fmt.Sprintf("%s.parallel[%d]", path, i), visit)
	}
}
