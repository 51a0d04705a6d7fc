// Package storage implements the antichain-of-conditions storage
// described in §3/§4.4: a set of candidates maintained under
// subset-minimality, with an optional SMT-exact consequence check
// layered on top of the fast syntactic subset test. Grounded directly
// on the original StorageTable (pyabduction/storage.py); the
// thin-wrapper-over-a-mutable-working-set shape also follows the
// teacher's quorum package (quorum/flat.go, quorum/tree.go).
package storage

import (
	"github.com/rseabduce/abduce/term"
	"github.com/rseabduce/abduce/term/satenc"
)

// Mode selects how consequence is decided when pruning on store.
type Mode int

const (
	// Fast uses only the syntactic subset test.
	Fast Mode = iota
	// Exact additionally consults the SMT backend, so that e.g.
	// {(x=3)} is recognized as implying {(x<s 4)}, which no syntactic
	// subset test can see.
	Exact
)

// Table is an antichain of candidates.
type Table struct {
	mode      Mode
	solutions []term.Candidate
}

// New returns an empty table in the given mode.
func New(mode Mode) *Table { return &Table{mode: mode} }

// Solutions returns the current antichain contents. Callers must
// treat the returned slice as read-only.
func (t *Table) Solutions() []term.Candidate { return t.solutions }

// Len reports how many candidates the table currently holds.
func (t *Table) Len() int { return len(t.solutions) }

// consequence decides A ⇒ B, using the fast syntactic test (B ⊆ A,
// since a stronger/superset conjunction implies a weaker/subset one)
// and, in Exact mode, falling back to SMT when the syntactic test is
// inconclusive.
func (t *Table) consequence(a, b term.Candidate) bool {
	if term.Subset(b, a) {
		return true
	}
	if t.mode != Exact {
		return false
	}
	ok, err := satenc.CheckConsequence(a, b)
	if err != nil {
		// §7: SMT unknown is treated as a conservative failure to
		// prune — assume the candidate survives (consequence does
		// NOT hold) rather than risk an unsound drop.
		return false
	}
	return ok
}

// Store inserts candidate into the antichain per §4.4: every
// currently stored S with S ⇒ candidate is dropped (candidate
// subsumes it), and candidate itself is rejected (not appended) if
// some remaining stored S has candidate ⇒ S. Returns whether
// candidate was actually appended.
func (t *Table) Store(candidate term.Candidate) bool {
	kept := t.solutions[:0:0]
	for _, s := range t.solutions {
		if t.consequence(s, candidate) {
			continue // s ⇒ candidate: s is redundant now, drop it
		}
		kept = append(kept, s)
	}
	t.solutions = kept

	for _, s := range t.solutions {
		if t.consequence(candidate, s) {
			return false // candidate ⇒ s: candidate is redundant, reject it
		}
	}
	t.solutions = append(t.solutions, candidate)
	return true
}

// Iterate calls fn for every candidate currently stored, stopping
// early if fn returns false.
func (t *Table) Iterate(fn func(term.Candidate) bool) {
	for _, s := range t.solutions {
		if !fn(s) {
			return
		}
	}
}

// Union returns the normalized union of every literal across every
// stored candidate — extract_necessary_component in the original,
// used to fold the Necessary-set table into a single conjunction.
func (t *Table) Union() term.Candidate {
	var merged term.Candidate
	for _, s := range t.solutions {
		merged = term.Union(merged, s)
	}
	return merged
}
