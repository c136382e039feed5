package model

import "strings"

// Variable names one categorical observation.
type Variable string

const (
	Activity    Variable = "Activity"
	Proximity   Variable = "Proximity"
	Environment Variable = "Environment"
	Age         Variable = "Age"
	Weather     Variable = "Weather"
	Supervision Variable = "Supervision"
)

// State is one legal value of a Variable.
type State string

const (
	Calm       State = "Calm"
	Running    State = "Running"
	Jumping    State = "Jumping"
	SafeZone   State = "Safe"
	NearHazard State = "NearHazard"
	Normal     State = "Normal"
	Slippery   State = "Slippery"
	Teen       State = "Teen"
	Young      State = "Young"
	Sunny      State = "Sunny"
	Rainy      State = "Rainy"
	Supervised State = "Yes"
	Alone      State = "No"
)

// Domain is the ordered set of legal states for one variable.
type Domain struct {
	Variable Variable
	States   []State
}

// Contains reports whether s is a legal state of the domain (exact match).
func (d Domain) Contains(s State) bool {
	for _, st := range d.States {
		if st == s {
			return true
		}
	}
	return false
}

// Schema is the ordered list of required variables.
// Order matters: aggregation and formatting walk variables in schema order.
type Schema []Domain

// DefaultSchema returns the six observed variables and their domains.
func DefaultSchema() Schema {
	return Schema{
		{Variable: Activity, States: []State{Calm, Running, Jumping}},
		{Variable: Proximity, States: []State{SafeZone, NearHazard}},
		{Variable: Environment, States: []State{Normal, Slippery}},
		{Variable: Age, States: []State{Teen, Young}},
		{Variable: Weather, States: []State{Sunny, Rainy}},
		{Variable: Supervision, States: []State{Supervised, Alone}},
	}
}

// Lookup returns the domain for v.
func (s Schema) Lookup(v Variable) (Domain, bool) {
	for _, d := range s {
		if d.Variable == v {
			return d, true
		}
	}
	return Domain{}, false
}

// Variables returns variable names in schema order.
func (s Schema) Variables() []Variable {
	vars := make([]Variable, len(s))
	for i, d := range s {
		vars[i] = d.Variable
	}
	return vars
}

// ResolveVariable matches a variable name case-insensitively.
func (s Schema) ResolveVariable(name string) (Variable, error) {
	name = strings.TrimSpace(name)
	for _, d := range s {
		if strings.EqualFold(string(d.Variable), name) {
			return d.Variable, nil
		}
	}
	return "", &DomainError{Variable: Variable(name), Reason: ErrUnknownVariable}
}

// Normalize resolves raw input to the canonical state of v.
// Matching is case-insensitive and ignores surrounding whitespace.
func (s Schema) Normalize(v Variable, input string) (State, error) {
	d, ok := s.Lookup(v)
	if !ok {
		return "", &DomainError{Variable: v, State: State(input), Reason: ErrUnknownVariable}
	}
	if len(d.States) == 0 {
		return "", &DomainError{Variable: v, Reason: ErrEmptyDomain}
	}
	input = strings.TrimSpace(input)
	for _, st := range d.States {
		if strings.EqualFold(string(st), input) {
			return st, nil
		}
	}
	return "", &DomainError{Variable: v, State: State(input), Reason: ErrOutOfDomain}
}

// Check validates a single (variable, state) pair without normalization.
func (s Schema) Check(v Variable, st State) error {
	d, ok := s.Lookup(v)
	if !ok {
		return &DomainError{Variable: v, State: st, Reason: ErrUnknownVariable}
	}
	if !d.Contains(st) {
		return &DomainError{Variable: v, State: st, Reason: ErrOutOfDomain}
	}
	return nil
}
