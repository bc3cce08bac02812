package domain

import (
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Variables is an immutable name to value table used for template expansion.
// The zero value is an empty table.
type Variables struct {
	values map[string]string
}

// NewVariables returns a frozen copy of values.
func NewVariables(values map[string]string) Variables {
	return Variables{values: maps.Clone(values)}
}

// Get returns the value bound to name.
func (v Variables) Get(name string) (string, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Len returns the number of bindings.
func (v Variables) Len() int {
	return len(v.values)
}

// Names returns the bound names in sorted order.
func (v Variables) Names() []string {
	return slices.Sorted(maps.Keys(v.values))
}

// With returns a new table where overrides replace existing bindings.
func (v Variables) With(overrides map[string]string) Variables {
	merged := make(map[string]string, len(v.values)+len(overrides))
	maps.Copy(merged, v.values)
	maps.Copy(merged, overrides)
	return Variables{values: merged}
}

// Expand substitutes ${NAME} references in template. Bindings in scope shadow the
// table. "$$" produces a literal dollar sign; a dollar not followed by "{" or "$"
// is copied as is.
func (v Variables) Expand(template string, scope map[string]string) (string, error) {
	if !strings.Contains(template, "$") {
		return template, nil
	}

	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			continue
		}
		switch template[i+1] {
		case '$':
			b.WriteByte('$')
			i++
		case '{':
			end := strings.IndexByte(template[i+2:], '}')
			if end < 0 {
				return "", zerr.With(zerr.Wrap(ErrUnknownVariable, "unterminated variable reference"), "template", template)
			}
			name := template[i+2 : i+2+end]
			val, ok := scope[name]
			if !ok {
				val, ok = v.values[name]
			}
			if !ok {
				return "", zerr.With(zerr.With(zerr.Wrap(ErrUnknownVariable, "undefined variable"), "variable", name), "template", template)
			}
			b.WriteString(val)
			i += end + 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// ExpandAll expands every template in order.
func (v Variables) ExpandAll(templates []string, scope map[string]string) ([]string, error) {
	out := make([]string, len(templates))
	for i, t := range templates {
		expanded, err := v.Expand(t, scope)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}
