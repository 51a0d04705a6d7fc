// Package generate enumerates candidate literal conjunctions for the
// CEGAR loop to try, grounded on the original implementation's
// BinsecAutoCandidateGenerator and SimpleCandidateGenerator
// (pyabduction/binsec.py, pyabduction/engine.py).
package generate

import (
	"github.com/rseabduce/abduce/model"
	"github.com/rseabduce/abduce/term"
)

// Generator is the interface the solver drives: an enumeration of
// growing-depth candidates, fed back with example/counterexample sets
// as the CEGAR loop learns, and restartable when new variables enter
// scope mid-enumeration.
type Generator interface {
	// Generate streams candidates on the returned channel, closing it
	// once the enumeration is exhausted. The empty candidate is always
	// the first value produced. Literal counts are not globally
	// non-decreasing: AutoGenerator repeats its depth 0-1 passes
	// whenever its variable pool grows or a restart is requested.
	Generate() <-chan term.Candidate
	// SetExampleSet / SetCounterexampleSet feed the generator's
	// dynamic-constant learning and literal ordering.
	SetExampleSet(*model.Set)
	SetCounterexampleSet(*model.Set)
	// SetNecessaryCoreSet excludes literals already known to be part
	// of the necessary core from re-generation.
	SetNecessaryCoreSet(core map[term.Literal]struct{})
	// RestartLocalGeneration asks the generator to rebuild its
	// variable/literal set, used when a new variable enters scope
	// mid-search. AutoGenerator acts on it only during its depth 0-1
	// passes; StaticGenerator records the request and otherwise
	// ignores it.
	RestartLocalGeneration()
}

// combinations yields every depth-sized subset of items, in the
// stable order itertools.combinations would, feeding fn until fn
// returns false (used to support early restart).
func combinations(items []term.Literal, depth int, fn func([]term.Literal) bool) bool {
	n := len(items)
	if depth > n {
		return true
	}
	idx := make([]int, depth)
	for i := range idx {
		idx[i] = i
	}
	if depth == 0 {
		return fn(nil)
	}
	for {
		combo := make([]term.Literal, depth)
		for i, ix := range idx {
			combo[i] = items[ix]
		}
		if !fn(combo) {
			return false
		}
		i := depth - 1
		for i >= 0 && idx[i] == i+n-depth {
			i--
		}
		if i < 0 {
			return true
		}
		idx[i]++
		for j := i + 1; j < depth; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// permutations yields every ordered depth-sized arrangement of items,
// in the order itertools.permutations would, feeding fn until fn
// returns false.
func permutations(items []term.Literal, depth int, fn func([]term.Literal) bool) bool {
	n := len(items)
	used := make([]bool, n)
	combo := make([]term.Literal, depth)
	var rec func(pos int) bool
	rec = func(pos int) bool {
		if pos == depth {
			return fn(append([]term.Literal(nil), combo...))
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			combo[pos] = items[i]
			if !rec(pos + 1) {
				used[i] = false
				return false
			}
			used[i] = false
		}
		return true
	}
	if depth == 0 {
		return fn(nil)
	}
	if depth > n {
		return true
	}
	return rec(0)
}
