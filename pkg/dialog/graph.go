package dialog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Synthetic triggers fired by structural conditions rather than user words.
const (
	TriggerAllDetailsCollected          = "all_details_collected"
	TriggerModificationDetailsCollected = "modification_details_collected"
	TriggerCancellation                 = "cancellation"
)

//go:embed default_dialog.yaml
var defaultDialogYAML []byte

// Definition is the YAML form of a conversation graph.
type Definition struct {
	Name    string            `yaml:"name"    json:"name"`
	Version string            `yaml:"version" json:"version"`
	States  []StateDefinition `yaml:"states"  json:"states"`
}

// StateDefinition declares one state's prompt and its ordered transitions.
type StateDefinition struct {
	Name        string                 `yaml:"name"        json:"name"`
	Prompt      string                 `yaml:"prompt"      json:"prompt"`
	Transitions []TransitionDefinition `yaml:"transitions" json:"transitions"`
}

// TransitionDefinition maps a target state to the words that trigger it.
type TransitionDefinition struct {
	Target   string   `yaml:"target"   json:"target"`
	Triggers []string `yaml:"triggers" json:"triggers"`
}

// Rule is a validated transition. Rules are evaluated in declaration order.
type Rule struct {
	Target   State
	Triggers []string
}

type node struct {
	prompt string
	tmpl   *template.Template
	rules  []Rule
}

// Graph is a validated, immutable conversation graph.
type Graph struct {
	name    string
	version string
	nodes   [stateCount]node
}

// ParseDefinition decodes a YAML graph definition.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse YAML: %w", err)
	}
	return def, nil
}

// DefaultGraph returns the built-in Barbeque Nation graph.
func DefaultGraph() *Graph {
	def, err := ParseDefinition(defaultDialogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded dialog: %v", err))
	}
	g, err := NewGraph(def)
	if err != nil {
		panic(fmt.Sprintf("embedded dialog: %v", err))
	}
	return g
}

// NewGraph validates a definition and builds a graph from it.
//
// Every state must be declared exactly once with a prompt, every transition
// target must be a declared state and every prompt must parse as a template.
func NewGraph(def Definition) (*Graph, error) {
	g := &Graph{name: def.Name, version: def.Version}
	var declared [stateCount]bool

	for _, sd := range def.States {
		s, ok := ParseState(sd.Name)
		if !ok {
			return nil, fmt.Errorf("dialog %q: unknown state %q", def.Name, sd.Name)
		}
		if declared[s] {
			return nil, fmt.Errorf("dialog %q: state %q declared twice", def.Name, sd.Name)
		}
		declared[s] = true

		if sd.Prompt == "" {
			return nil, fmt.Errorf("dialog %q state %q: prompt is required", def.Name, sd.Name)
		}
		tmpl, err := parsePrompt(sd.Name, sd.Prompt)
		if err != nil {
			return nil, fmt.Errorf("dialog %q state %q: %w", def.Name, sd.Name, err)
		}

		rules := make([]Rule, 0, len(sd.Transitions))
		for i, td := range sd.Transitions {
			if td.Target == "" {
				return nil, fmt.Errorf("dialog %q state %q transition %d: target is required",
					def.Name, sd.Name, i)
			}
			target, ok := ParseState(td.Target)
			if !ok {
				return nil, fmt.Errorf("dialog %q state %q transition %d: target %q not found",
					def.Name, sd.Name, i, td.Target)
			}
			if len(td.Triggers) == 0 {
				return nil, fmt.Errorf("dialog %q state %q transition %d: at least one trigger is required",
					def.Name, sd.Name, i)
			}
			rules = append(rules, Rule{Target: target, Triggers: slices.Clone(td.Triggers)})
		}

		g.nodes[s] = node{prompt: sd.Prompt, tmpl: tmpl, rules: rules}
	}

	var missing []error
	for s := State(0); s < stateCount; s++ {
		if !declared[s] {
			missing = append(missing, fmt.Errorf("state %q is not declared", s))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dialog %q: %w", def.Name, errors.Join(missing...))
	}

	return g, nil
}

// Name returns the definition name.
func (g *Graph) Name() string { return g.name }

// Version returns the definition version.
func (g *Graph) Version() string { return g.version }

// Prompt returns the raw prompt template of a state.
func (g *Graph) Prompt(s State) string {
	if !s.Valid() {
		return g.nodes[Greeting].prompt
	}
	return g.nodes[s].prompt
}

// Rules returns a copy of the state's transition rules in declaration order.
func (g *Graph) Rules(s State) []Rule {
	if !s.Valid() {
		return nil
	}
	out := make([]Rule, len(g.nodes[s].rules))
	for i, r := range g.nodes[s].rules {
		out[i] = Rule{Target: r.Target, Triggers: slices.Clone(r.Triggers)}
	}
	return out
}

// targetFor returns the first target whose trigger list names trigger exactly.
func (g *Graph) targetFor(s State, trigger string) (State, bool) {
	for _, r := range g.nodes[s].rules {
		if slices.Contains(r.Triggers, trigger) {
			return r.Target, true
		}
	}
	return s, false
}
