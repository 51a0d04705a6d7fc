// Package model holds partial models (oracle-produced variable
// bindings) and the example/counter-example sets the solver
// accumulates, grounded directly on the original implementation's
// ModelTable (build/lib/pyabduction/model.py).
package model

// Bindings is a partial model: a finite map from the canonical
// display name of an in-context variable to its literal value string
// (already normalized by the oracle adapter, e.g. "0x00000003"). The
// distinguished key "default" may record the oracle's blanket
// "everything else unspecified" assumption; "*controlled" (when
// present) records the set of controlled variable names for the
// originating oracle call.
type Bindings map[string]string

// ControlledKey is the distinguished binding key carrying the set of
// controlled variables of the originating oracle call, used by robust
// mode's counter-example significance checks.
const ControlledKey = "*controlled"

// DefaultKey is the distinguished binding key carrying the oracle's
// blanket "everything else is zero/unspecified" value.
const DefaultKey = "default"

// NonMeta returns a copy of b with the distinguished meta keys
// (default, *controlled) removed, the same filtering
// recover_necessary_constants applies before probing individual
// bindings.
func (b Bindings) NonMeta() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		if k == DefaultKey || k == ControlledKey {
			continue
		}
		out[k] = v
	}
	return out
}

// Empty reports whether b carries no concrete assignment, ignoring
// the controlled-set tag — used by the counter-example filter to skip
// vacuous pruning (§4.4).
func (b Bindings) Empty() bool {
	return len(b.NonMeta()) == 0
}

// Set is an append-only collection of partial models (ModelTable in
// the original): examples or counter-examples.
type Set struct {
	models []Bindings
}

// NewSet returns an empty model set.
func NewSet() *Set { return &Set{} }

// Add appends m to the set.
func (s *Set) Add(m Bindings) { s.models = append(s.models, m) }

// GetAny returns the first model added, or nil if the set is empty.
func (s *Set) GetAny() Bindings {
	if len(s.models) == 0 {
		return nil
	}
	return s.models[0]
}

// Len reports how many models the set holds.
func (s *Set) Len() int { return len(s.models) }

// All returns every model in insertion order. Callers must not
// mutate the returned slice's elements.
func (s *Set) All() []Bindings { return s.models }
