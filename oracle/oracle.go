// Package oracle hides the external symbolic-execution engine behind
// the four queries of §4.2 and normalizes its output into partial
// models keyed by in-context variables. Grounded directly on the
// original implementation's binsec.py (BinsecCheckers,
// BinsecLogParser, RobustBinsecCheckers) and checkers.py
// (AbstractChecker).
package oracle

import (
	"time"

	"github.com/rseabduce/abduce/model"
	"github.com/rseabduce/abduce/term"
)

// Verdict is the three-valued outcome of a reachability or
// consistency query.
type Verdict int

const (
	// Unreachable means the queried goal cannot be forced.
	Unreachable Verdict = iota
	// Reachable means the queried goal can be forced; a model
	// witnessing it normally accompanies this verdict.
	Reachable
	// Unknown means the engine could not decide within its timeout or
	// crashed; §7 downgrades this to "no update".
	Unknown
)

// CTStatus is the three-valued outcome of a constant-time evaluation.
type CTStatus int

const (
	// Secure means no leak was found against the policy.
	Secure CTStatus = iota
	// Insecure means at least one leak was found.
	Insecure
	// CTUnknown means the engine could not decide.
	CTUnknown
)

// LeakRecord is one "Instruction <addr> has <kind> leak" line.
type LeakRecord struct {
	Addr uint64
	Kind string
}

// CTResult is the outcome of ct-evaluate(C).
type CTResult struct {
	Status CTStatus
	Leaks  []LeakRecord
}

// CTAttempt records one attempt of the CT unknown-retry loop, kept in
// the adapter's history for post-hoc debugging (SPEC_FULL.md §9.4).
type CTAttempt struct {
	Index     int
	Timeout   time.Duration
	Status    CTStatus
	Leaks     []LeakRecord
	TimedOut  bool
	Crashed   bool
	Timestamp time.Time
}

// GoalsResult is the 4-tuple check-goals returns in classical mode:
// the negative-goal status/model and the positive-goal status/model.
// In robust mode, Robust is additionally populated and PosStatus is
// overwritten with the robust-reachability verdict once the classical
// positive query has already succeeded (the boundary decided in
// SPEC_FULL.md §4 / spec.md §9 open question 3).
type GoalsResult struct {
	NegStatus Verdict
	NegModel  model.Bindings
	PosStatus Verdict
	PosModel  model.Bindings
	Robust    *Verdict
}

// Sufficient reports whether this result makes the queried candidate
// a sufficient candidate: negative goal unreachable and positive goal
// reachable.
func (g GoalsResult) Sufficient() bool {
	return g.NegStatus == Unreachable && g.PosStatus == Reachable
}

// LocallyInconsistent reports whether the candidate is locally
// inconsistent: negative goal unreachable but positive goal is not.
func (g GoalsResult) LocallyInconsistent() bool {
	return g.NegStatus == Unreachable && g.PosStatus != Reachable
}

// Adapter is the narrow interface the solver, generator, and policy
// packages program against: §4.2's four core operations plus
// FullyAssumed and CTHistory. The consistency, consequence and
// satisfaction checks of §4.1/§4.4 are not part of it; they run
// locally through term/satenc.
type Adapter interface {
	// CheckGoals evaluates both the negative and positive goal under
	// assume(cand).
	CheckGoals(cand term.Candidate) (GoalsResult, error)
	// CheckVulnerability queries reach-negative(cand) with reject
	// models appended as rejection directives; complete selects
	// conjunctive (true) vs. disjunctive (false) combination of the
	// rejection atoms.
	CheckVulnerability(cand term.Candidate, reject []model.Bindings, complete bool) (bool, model.Bindings, error)
	// CheckNecessity decides whether the disjunction of solutions is
	// necessary: classically, reach-positive(¬⋁solutions) is
	// unreachable; in CT mode, ct-evaluate(¬⋁solutions) is insecure.
	CheckNecessity(solutions []term.Candidate) (bool, error)
	// EvaluateCTPolicy runs ct-evaluate(cand) directly, used by
	// branch-guided policy derivation and CT validation.
	EvaluateCTPolicy(cand term.Candidate) (CTResult, error)
	// FullyAssumed reports whether v already carries an unconditional
	// assume in the directives file, in which case it must be
	// excluded from candidate generation and necessary-constant
	// probing.
	FullyAssumed(v *term.Term) bool
	// CTHistory returns every CT attempt recorded so far (§9.4).
	CTHistory() []CTAttempt
}
