package config

import (
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the pakefile looked up when no path is given.
const DefaultFilename = "pakefile.yaml"

// Pakefile represents the structure of the pakefile.yaml configuration file.
type Pakefile struct {
	Version   string              `yaml:"version"`
	Variables map[string]string   `yaml:"variables"`
	Commands  map[string][]string `yaml:"commands"`
	// Targets is kept as a node so declaration order survives decoding.
	Targets yaml.Node `yaml:"targets"`
	Rules   []RuleDTO `yaml:"rules"`
}

// TargetDTO represents a target definition in the configuration.
type TargetDTO struct {
	Kind    string      `yaml:"kind"`
	Deps    []string    `yaml:"deps"`
	Actions []ActionDTO `yaml:"actions"`
	Clean   *bool       `yaml:"clean"`
}

// RuleDTO represents a pattern rule. The synthesized target takes the matched name.
type RuleDTO struct {
	Pattern   string `yaml:"pattern"`
	TargetDTO `yaml:",inline"`
}

// CopyDTO is the argument of a copy step.
type CopyDTO struct {
	Sources     []string `yaml:"sources"`
	Destination string   `yaml:"destination"`
}

// ActionDTO is a single action step. Exactly one of the step keys must be set.
type ActionDTO struct {
	Output   []string `yaml:"output"`
	Run      []string `yaml:"run"`
	Touch    bool     `yaml:"touch"`
	Copy     *CopyDTO `yaml:"copy"`
	MakeDirs *string  `yaml:"makedirs"`
	Write    *string  `yaml:"write"`
	Info     *string  `yaml:"info"`
	Timeout  string   `yaml:"timeout"`
}

// UnmarshalYAML accepts the bare scalar "touch" as shorthand for {touch: true}.
func (a *ActionDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Value == "touch" {
		*a = ActionDTO{Touch: true}
		return nil
	}
	type plain ActionDTO
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*a = ActionDTO(p)
	return nil
}

// stepCount returns how many step keys are set.
func (a *ActionDTO) stepCount() int {
	n := 0
	for _, set := range []bool{
		a.Output != nil,
		a.Run != nil,
		a.Touch,
		a.Copy != nil,
		a.MakeDirs != nil,
		a.Write != nil,
		a.Info != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
