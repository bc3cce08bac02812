package config

import (
	"errors"
	"time"

	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/zerr"
)

// buildAction converts action steps into a domain action. No steps yields a nil
// action and a single step is returned unwrapped.
func buildAction(steps []ActionDTO, vars domain.Variables, scope map[string]string) (domain.Action, error) {
	if len(steps) == 0 {
		return nil, nil
	}

	actions := make(domain.Steps, 0, len(steps))
	for i := range steps {
		a, err := buildStep(&steps[i], vars, scope)
		if err != nil {
			return nil, zerr.With(err, "step", i)
		}
		actions = append(actions, a)
	}
	if len(actions) == 1 {
		return actions[0], nil
	}
	return actions, nil
}

func buildStep(step *ActionDTO, vars domain.Variables, scope map[string]string) (domain.Action, error) {
	if n := step.stepCount(); n != 1 {
		return nil, zerr.With(
			zerr.Wrap(domain.ErrConfigParseFailed, "action step must set exactly one of output, run, touch, copy, makedirs, write, info"),
			"keys", n)
	}

	var timeout time.Duration
	if step.Timeout != "" {
		d, err := time.ParseDuration(step.Timeout)
		if err != nil || d < 0 {
			return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, zerr.New("invalid timeout")), "timeout", step.Timeout)
		}
		timeout = d
	}

	expand := func(s string) (string, error) {
		return vars.Expand(s, scope)
	}

	switch {
	case step.Output != nil:
		argv, err := vars.ExpandAll(step.Output, scope)
		if err != nil {
			return nil, err
		}
		return domain.OutputAction{Argv: argv, Timeout: timeout}, nil
	case step.Run != nil:
		argv, err := vars.ExpandAll(step.Run, scope)
		if err != nil {
			return nil, err
		}
		return domain.RunAction{Argv: argv, Timeout: timeout}, nil
	case step.Touch:
		return domain.TouchAction{}, nil
	case step.Copy != nil:
		sources, err := vars.ExpandAll(step.Copy.Sources, scope)
		if err != nil {
			return nil, err
		}
		dst, err := expand(step.Copy.Destination)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 || dst == "" {
			return nil, zerr.Wrap(domain.ErrConfigParseFailed, "copy needs sources and a destination")
		}
		return domain.CopyAction{Sources: sources, Destination: dst}, nil
	case step.MakeDirs != nil:
		path, err := expand(*step.MakeDirs)
		if err != nil {
			return nil, err
		}
		return domain.MakeDirsAction{Path: path}, nil
	case step.Write != nil:
		content, err := expand(*step.Write)
		if err != nil {
			return nil, err
		}
		return domain.WriteAction{Content: content}, nil
	default:
		msg, err := expand(*step.Info)
		if err != nil {
			return nil, err
		}
		return domain.InfoAction{Message: msg}, nil
	}
}
