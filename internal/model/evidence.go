package model

import (
	"fmt"
	"sort"
	"strings"
)

// Evidence is one complete categorical observation.
// The zero value holds no variables and fails validation.
type Evidence struct {
	schema Schema
	values map[Variable]State
}

// NewEvidence validates values against schema and returns an immutable Evidence.
// Every schema variable must be present with an in-domain state; extra
// variables are rejected. Nothing is defaulted.
func NewEvidence(schema Schema, values map[Variable]State) (Evidence, error) {
	for v, st := range values {
		if err := schema.Check(v, st); err != nil {
			return Evidence{}, err
		}
	}
	for _, d := range schema {
		if _, ok := values[d.Variable]; !ok {
			return Evidence{}, &DomainError{Variable: d.Variable, Reason: ErrMissing}
		}
	}

	copied := make(map[Variable]State, len(values))
	for v, st := range values {
		copied[v] = st
	}
	return Evidence{schema: schema, values: copied}, nil
}

// MustEvidence is NewEvidence for literals known to be valid. Panics otherwise.
func MustEvidence(schema Schema, values map[Variable]State) Evidence {
	ev, err := NewEvidence(schema, values)
	if err != nil {
		panic(err)
	}
	return ev
}

// ParseEvidence normalizes raw name/value strings (case-insensitive) and validates.
// Two names that resolve to the same variable are rejected with ErrDuplicate.
func ParseEvidence(schema Schema, raw map[string]string) (Evidence, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[Variable]State, len(raw))
	for _, name := range names {
		v, err := schema.ResolveVariable(name)
		if err != nil {
			return Evidence{}, err
		}
		if _, dup := values[v]; dup {
			return Evidence{}, &DomainError{Variable: v, Reason: ErrDuplicate}
		}
		st, err := schema.Normalize(v, raw[name])
		if err != nil {
			return Evidence{}, err
		}
		values[v] = st
	}
	return NewEvidence(schema, values)
}

// Get returns the state recorded for v.
func (e Evidence) Get(v Variable) (State, bool) {
	st, ok := e.values[v]
	return st, ok
}

// Len returns the number of recorded variables.
func (e Evidence) Len() int {
	return len(e.values)
}

// Values returns a copy of the underlying mapping.
func (e Evidence) Values() map[Variable]State {
	out := make(map[Variable]State, len(e.values))
	for v, st := range e.values {
		out[v] = st
	}
	return out
}

// ToMap converts evidence to plain strings for serialization.
func (e Evidence) ToMap() map[string]string {
	out := make(map[string]string, len(e.values))
	for v, st := range e.values {
		out[string(v)] = string(st)
	}
	return out
}

// Equal reports whether both observations hold the same states.
func (e Evidence) Equal(other Evidence) bool {
	if len(e.values) != len(other.values) {
		return false
	}
	for v, st := range e.values {
		if other.values[v] != st {
			return false
		}
	}
	return true
}

// String renders "Var=State" pairs in schema order.
func (e Evidence) String() string {
	parts := make([]string, 0, len(e.values))
	for _, d := range e.schema {
		if st, ok := e.values[d.Variable]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", d.Variable, st))
		}
	}
	return strings.Join(parts, " ")
}
