// Package solve implements the CEGAR search loop that drives a
// candidate generator against the oracle adapter, accumulating
// sufficient/insufficient solutions and counter-examples until a
// necessary-and-sufficient disjunction is found, grounded directly on
// the original implementation's AbductionSolver.solve()
// (pyabduction/solver.py).
package solve

import (
	"strconv"
	"strings"
	"time"

	"github.com/rseabduce/abduce/abduceconfig"
	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/generate"
	"github.com/rseabduce/abduce/model"
	"github.com/rseabduce/abduce/oracle"
	"github.com/rseabduce/abduce/stats"
	"github.com/rseabduce/abduce/storage"
	"github.com/rseabduce/abduce/term"
	"github.com/rseabduce/abduce/term/satenc"
)

// Engine owns the example/counter-example sets, the solution/
// unsolution antichains, and the necessary-literal core that the
// generator consults to shrink its search space; it mirrors the
// original's AbductionEngine state bag.
type Engine struct {
	Examples         *model.Set
	Counterexamples  *model.Set
	Solutions        *storage.Table
	Unsolutions      *storage.Table
	NecessaryLiterals map[term.Literal]struct{}

	gen generate.Generator
}

// NewEngine wires a fresh engine around gen, with solution storage in
// the requested mode.
func NewEngine(gen generate.Generator, mode storage.Mode) *Engine {
	e := &Engine{
		Examples:          model.NewSet(),
		Counterexamples:   model.NewSet(),
		Solutions:         storage.New(mode),
		Unsolutions:       storage.New(mode),
		NecessaryLiterals: map[term.Literal]struct{}{},
		gen:               gen,
	}
	return e
}

func (e *Engine) AddExample(m model.Bindings) {
	if m == nil {
		return
	}
	e.Examples.Add(m)
	e.gen.SetExampleSet(e.Examples)
}

func (e *Engine) AddCounterExample(m model.Bindings) {
	if m == nil {
		return
	}
	e.Counterexamples.Add(m)
	e.gen.SetCounterexampleSet(e.Counterexamples)
}

func (e *Engine) AddNecessaryLiteral(core term.Candidate) {
	for _, lit := range core {
		e.NecessaryLiterals[lit] = struct{}{}
	}
	e.gen.SetNecessaryCoreSet(e.NecessaryLiterals)
}

func (e *Engine) RestartLocalGeneration() { e.gen.RestartLocalGeneration() }

// ResultSummary is Solve's raw outcome: the stored sufficient
// solutions, whether a necessary set was found, and the run's stats.
// policy.Finalize builds the user-facing report from Solutions.
type ResultSummary struct {
	Solutions []term.Candidate
	NASFound  bool
	Stats     *stats.Stats
}

// Solver drives the CEGAR loop described by §4.4/§4.5: it pulls
// candidates from the generator, classifies each one against the
// oracle's four-valued goal/vulnerability/necessity queries, and
// feeds the engine's example/counter-example/necessary-literal state
// back into the generator until a necessary sufficient condition is
// reached or the configured timeout elapses.
type Solver struct {
	cfg    abduceconfig.Config
	engine *Engine
	ad     oracle.Adapter
	st     *stats.Stats
	log    corelog.Logger

	solverTimeout        time.Duration
	collectUntilTimeout  bool
	forceOnModelResort   bool
	vexamplesInitCount   int
	constDetect          bool
}

// Option configures non-default solver behavior beyond abduceconfig.Config's surface.
type Option func(*Solver)

// WithSolverTimeout bounds the wall-clock time spent in the search
// loop once collectUntilTimeout is also set.
func WithSolverTimeout(d time.Duration, collectUntilTimeout bool) Option {
	return func(s *Solver) {
		s.solverTimeout = d
		s.collectUntilTimeout = collectUntilTimeout
	}
}

// WithForceOnModelResorting enables the "otherwise add the
// counter-necessity model as an example and restart" fallback when a
// singleton candidate's negation is still reachable.
func WithForceOnModelResorting(v bool) Option {
	return func(s *Solver) { s.forceOnModelResort = v }
}

// WithInitialVulnerabilityExamples requests count seed examples drawn
// from get_vulnerability_model before the main loop starts.
func WithInitialVulnerabilityExamples(count int, constDetect bool) Option {
	return func(s *Solver) {
		s.vexamplesInitCount = count
		s.constDetect = constDetect
	}
}

// NewSolver builds a Solver around engine/adapter/stats/log.
func NewSolver(cfg abduceconfig.Config, engine *Engine, ad oracle.Adapter, st *stats.Stats, log corelog.Logger, opts ...Option) *Solver {
	s := &Solver{cfg: cfg, engine: engine, ad: ad, st: st, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getVulnerabilityModel queries reach-negative([], vset) purely to
// harvest a witnessing model, matching get_vulnerability_model.
func (s *Solver) getVulnerabilityModel(reject []model.Bindings) (model.Bindings, error) {
	_, m, err := s.ad.CheckVulnerability(term.Candidate{}, reject, false)
	return m, err
}

func (s *Solver) getInitialExamples() {
	count := s.vexamplesInitCount
	if s.constDetect && count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		m, err := s.getVulnerabilityModel(s.engine.Examples.All())
		if err != nil {
			s.log.Warn("failed to recover initial vulnerability example", "error", err)
			return
		}
		if m == nil {
			s.log.Warn("could not recover as many vulnerability models as requested", "count", i)
			return
		}
		s.log.Info("initialization vulnerability example", "model", m)
		s.engine.AddExample(m)
	}
}

// recoverNecessaryConstants draws a vulnerability model for every
// fresh variable and, where the model binds it to a value, queries
// reach-negative with that single binding rejected (complete=true);
// when the negative goal becomes unreachable, (var = value) is seeded
// as an initial necessary literal before the main search starts (§9.1).
func (s *Solver) recoverNecessaryConstants(ctx *term.Context) {
	for _, v := range ctx.Vars() {
		if v.IsConst() || s.ad.FullyAssumed(v) {
			continue
		}
		m, err := s.getVulnerabilityModel(nil)
		if err != nil || m == nil {
			continue
		}
		val, ok := m.NonMeta()[v.String()]
		if !ok {
			continue
		}
		vuln, _, err := s.ad.CheckVulnerability(term.Candidate{}, []model.Bindings{{v.String(): val}}, true)
		if err != nil || vuln {
			continue
		}
		c, err := ctx.DeclareConst(normalizeConstLiteral(val))
		if err != nil {
			continue
		}
		lit, err := ctx.CreateBinaryTerm(term.Equal, v, c)
		if err != nil {
			continue
		}
		s.engine.AddNecessaryLiteral(term.Candidate{lit})
	}
}

func normalizeConstLiteral(v string) string {
	if len(v) >= 2 && (v[:2] == "0x" || v[:2] == "0b") {
		return v
	}
	return "0x" + v
}

// necessaryComponent folds a flat set of necessary literals into a
// normalized Candidate, matching extract_necessary_component.
func necessaryComponent(necessary map[term.Literal]struct{}) term.Candidate {
	lits := make([]term.Literal, 0, len(necessary))
	for lit := range necessary {
		lits = append(lits, lit)
	}
	return term.NormalizeCandidate(lits)
}

// parseModelValue parses an oracle model binding's hex value string
// ("0x0000002a") into its bit pattern.
func parseModelValue(v string) (uint64, error) {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	if v == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseUint(v, 16, 64)
}

// bindingsToVarMap resolves an oracle model's concrete bindings back
// into context variable terms, dropping any binding that does not
// resolve to a declared variable or does not parse as a bit pattern,
// matching check_satisfied's "k in self.context.vars" filter.
func bindingsToVarMap(ctx *term.Context, m model.Bindings) map[*term.Term]uint64 {
	nonmeta := m.NonMeta()
	out := make(map[*term.Term]uint64, len(nonmeta))
	for k, v := range nonmeta {
		t, ok := ctx.Lookup(k)
		if !ok {
			continue
		}
		val, err := parseModelValue(v)
		if err != nil {
			continue
		}
		out[t] = val
	}
	return out
}

// candidateVars collects every non-constant variable referenced by
// cand's relational atoms.
func candidateVars(cand term.Candidate) []*term.Term {
	seen := make(map[*term.Term]struct{})
	var out []*term.Term
	for _, atom := range cand {
		a, b := atom.Operands()
		for _, t := range [2]*term.Term{a, b} {
			if t == nil || t.IsConst() {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// modelCoversCandidate reports whether every variable cand refers to
// is bound in varMap, matching _model_covers_candidate: a partial
// model that leaves some of the candidate's variables unconstrained
// cannot be used to prune it.
func modelCoversCandidate(cand term.Candidate, varMap map[*term.Term]uint64) bool {
	for _, v := range candidateVars(cand) {
		if _, ok := varMap[v]; !ok {
			return false
		}
	}
	return true
}

// candidateImplies decides a ⇒ b, via the fast syntactic subset test
// (b ⊆ a) and, failing that, the SMT-exact check_consequence. An SMT
// unknown is treated as a conservative "does not imply" per §7.
func candidateImplies(a, b term.Candidate) bool {
	if term.Subset(b, a) {
		return true
	}
	ok, err := satenc.CheckConsequence(a, b)
	if err != nil {
		return false
	}
	return ok
}

// precheckCandidate runs the three-stage pre-check pipeline of §4.5
// against a freshly generated candidate, before it ever reaches the
// oracle: a consistency SMT check on the raw candidate, a
// counter-example satisfaction filter on the necessary-core union,
// and a storage/necessity consequence check against the accumulated
// solutions, unsolutions, and necessary literals. It returns the
// necessary-core union (rcandidate) to evaluate against the oracle
// and whether the candidate survived, matching next_candidate.
func (s *Solver) precheckCandidate(ctx *term.Context, cand term.Candidate) (term.Candidate, bool) {
	if s.st != nil {
		s.st.Generation.Considered++
	}
	ncomponent := necessaryComponent(s.engine.NecessaryLiterals)
	rcandidate := term.Union(ncomponent, cand)

	res, err := satenc.CheckSat(cand)
	if err == nil && !res.Sat {
		s.log.Debug("candidate is inconsistent", "candidate", cand.String())
		if s.st != nil {
			s.st.Generation.Pruned.Inc("consistency")
		}
		return nil, false
	}

	if !s.cfg.NoPruneCounterex {
		for _, cex := range s.engine.Counterexamples.All() {
			if cex.Empty() {
				continue
			}
			varMap := bindingsToVarMap(ctx, cex)
			if len(varMap) == 0 || !modelCoversCandidate(rcandidate, varMap) {
				continue
			}
			mres, err := satenc.CheckSatModel(rcandidate, varMap)
			if err != nil {
				continue
			}
			if mres.Sat {
				s.log.Debug("candidate satisfied by counter-example", "candidate", rcandidate.String(), "model", cex)
				if s.st != nil {
					s.st.Generation.Pruned.Inc("counterex")
				}
				return nil, false
			}
		}
	}

	if !s.cfg.NoPruneNecessary {
		for _, sol := range s.engine.Solutions.Solutions() {
			if candidateImplies(rcandidate, sol) {
				s.log.Debug("candidate has solution as consequence", "candidate", rcandidate.String())
				if s.st != nil {
					s.st.Generation.Pruned.Inc("solution")
				}
				return nil, false
			}
		}
		for _, sol := range s.engine.Unsolutions.Solutions() {
			if candidateImplies(rcandidate, sol) {
				s.log.Debug("candidate has unsolution as consequence", "candidate", rcandidate.String())
				if s.st != nil {
					s.st.Generation.Pruned.Inc("unsolution")
				}
				return nil, false
			}
		}
		for lit := range s.engine.NecessaryLiterals {
			if candidateImplies(term.Candidate{lit}, rcandidate) {
				s.log.Debug("candidate already implied by a necessary literal", "candidate", rcandidate.String())
				if s.st != nil {
					s.st.Generation.Pruned.Inc("necessary")
				}
				return nil, false
			}
		}
	}

	return rcandidate, true
}

// Solve runs the main CEGAR loop and returns the raw accumulated
// engine state; final policy assembly (semantic post-filtering,
// ordering, result-summary text) is the policy package's job.
func (s *Solver) Solve(ctx *term.Context) (*ResultSummary, error) {
	if s.st != nil {
		s.st.StartTimers("solution", "unsolution", "counterex", "example", "necessaryc")
	}
	start := time.Now()
	nasFound := false

	s.getInitialExamples()
	if s.constDetect {
		s.recoverNecessaryConstants(ctx)
	}

	for cand := range s.engine.gen.Generate() {
		if s.collectUntilTimeout && s.solverTimeout > 0 && time.Since(start) >= s.solverTimeout {
			s.log.Warn("solver timeout reached, stopping search", "timeout", s.solverTimeout)
			break
		}
		s.log.Debug("evaluating candidate", "candidate", cand.String())
		if s.st != nil {
			s.st.Generation.Evaluated++
		}

		rcandidate, survived := s.precheckCandidate(ctx, cand)
		if !survived {
			continue
		}

		goals, err := s.ad.CheckGoals(rcandidate)
		if err != nil {
			return nil, err
		}
		switch {
		case goals.Sufficient():
			s.log.Result("satisfying solution", "candidate", rcandidate.String())
			s.engine.Solutions.Store(rcandidate)
			s.engine.AddExample(goals.PosModel)
			necessary, err := s.ad.CheckNecessity(s.engine.Solutions.Solutions())
			if err != nil {
				return nil, err
			}
			if necessary {
				nasFound = true
				if !s.collectUntilTimeout {
					return &ResultSummary{Solutions: s.engine.Solutions.Solutions(), NASFound: true, Stats: s.st}, nil
				}
				s.log.Info("necessary set found; continuing search until timeout")
			}
			if s.cfg.MaxSolutions > 0 && s.engine.Solutions.Len() >= s.cfg.MaxSolutions {
				s.log.Info("maximum number of solutions reached, stopping search", "max", s.cfg.MaxSolutions)
				return &ResultSummary{Solutions: s.engine.Solutions.Solutions(), NASFound: nasFound, Stats: s.st}, nil
			}
		case goals.LocallyInconsistent():
			s.log.Debug("locally inconsistent candidate")
			s.engine.Unsolutions.Store(rcandidate)
		case goals.NegModel != nil:
			s.log.Info("counter-example", "model", goals.NegModel)
			s.engine.AddCounterExample(goals.NegModel)
			if len(cand) == 1 {
				neg := ctx.CreateNegation(cand)
				vuln, nmodel, err := s.ad.CheckVulnerability(term.Candidate{neg}, nil, false)
				if err != nil {
					return nil, err
				}
				if !vuln {
					s.log.Result("necessary constraint", "literal", cand.String())
					s.engine.AddNecessaryLiteral(cand)
					s.engine.RestartLocalGeneration()
				} else if s.forceOnModelResort {
					s.engine.AddExample(nmodel)
					s.engine.RestartLocalGeneration()
				}
			}
		default:
			s.log.Debug("unsatisfying example with no counter-example")
		}
	}

	return &ResultSummary{Solutions: s.engine.Solutions.Solutions(), NASFound: nasFound, Stats: s.st}, nil
}
