package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/rseabduce/abduce/abduceconfig"
	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/model"
	"github.com/rseabduce/abduce/oracle"
	"github.com/rseabduce/abduce/oraclemock"
	"github.com/rseabduce/abduce/stats"
	"github.com/rseabduce/abduce/storage"
	"github.com/rseabduce/abduce/term"
)

// fakeGenerator streams a fixed list of candidates and records
// engine feedback calls for assertions, avoiding the full
// AutoGenerator's complexity in unit tests of the solve loop itself.
type fakeGenerator struct {
	candidates []term.Candidate
	restarts   int
}

func (f *fakeGenerator) Generate() <-chan term.Candidate {
	ch := make(chan term.Candidate)
	go func() {
		defer close(ch)
		for _, c := range f.candidates {
			ch <- c
		}
	}()
	return ch
}
func (f *fakeGenerator) SetExampleSet(*model.Set)                          {}
func (f *fakeGenerator) SetCounterexampleSet(*model.Set)                   {}
func (f *fakeGenerator) SetNecessaryCoreSet(map[term.Literal]struct{})     {}
func (f *fakeGenerator) RestartLocalGeneration()                          { f.restarts++ }

func TestSolveFindsSufficientAndNecessarySolutionImmediately(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("eax", 32)
	c, _ := ctx.DeclareConst("0x1")
	lit, _ := ctx.CreateBinaryTerm(term.Equal, v, c)
	cand := term.Candidate{lit}

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	ad.EXPECT().CheckGoals(gomock.Any()).Return(oracle.GoalsResult{
		NegStatus: oracle.Unreachable, PosStatus: oracle.Reachable, PosModel: model.Bindings{"eax": "0x1"},
	}, nil)
	ad.EXPECT().CheckNecessity(gomock.Any()).Return(true, nil)
	ad.EXPECT().CheckVulnerability(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, model.Bindings(nil), nil).AnyTimes()

	gen := &fakeGenerator{candidates: []term.Candidate{cand}}
	engine := NewEngine(gen, storage.Fast)
	cfg := abduceconfig.DefaultConfig()
	s := NewSolver(cfg, engine, ad, nil, corelog.NewNoOp())

	res, err := s.Solve(ctx)
	assert.NoError(t, err)
	assert.True(t, res.NASFound)
	assert.Len(t, res.Solutions, 1)
}

func TestSolveRecordsCounterExampleAndNecessaryLiteral(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("eax", 32)
	c, _ := ctx.DeclareConst("0x1")
	lit, _ := ctx.CreateBinaryTerm(term.Equal, v, c)
	cand := term.Candidate{lit}

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	ad.EXPECT().CheckGoals(gomock.Any()).Return(oracle.GoalsResult{
		NegStatus: oracle.Reachable, NegModel: model.Bindings{"eax": "0x2"},
	}, nil)
	ad.EXPECT().CheckVulnerability(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, model.Bindings(nil), nil)

	gen := &fakeGenerator{candidates: []term.Candidate{cand}}
	engine := NewEngine(gen, storage.Fast)
	cfg := abduceconfig.DefaultConfig()
	s := NewSolver(cfg, engine, ad, nil, corelog.NewNoOp())

	res, err := s.Solve(ctx)
	assert.NoError(t, err)
	assert.False(t, res.NASFound)
	assert.Contains(t, engine.NecessaryLiterals, lit)
	assert.Equal(t, 1, gen.restarts)
}

func TestSolveStoresLocallyInconsistentAsUnsolution(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("eax", 32)
	c, _ := ctx.DeclareConst("0x1")
	lit, _ := ctx.CreateBinaryTerm(term.Equal, v, c)
	cand := term.Candidate{lit}

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	ad.EXPECT().CheckGoals(gomock.Any()).Return(oracle.GoalsResult{
		NegStatus: oracle.Unreachable, PosStatus: oracle.Unknown,
	}, nil)

	gen := &fakeGenerator{candidates: []term.Candidate{cand}}
	engine := NewEngine(gen, storage.Fast)
	cfg := abduceconfig.DefaultConfig()
	s := NewSolver(cfg, engine, ad, nil, corelog.NewNoOp())

	res, err := s.Solve(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, engine.Unsolutions.Len())
	assert.Empty(t, res.Solutions)
}

// TestSolveCandidatePrunedByConsistencyCheckBeforeOracleCall covers
// §4.5's consistency pre-check: an internally contradictory candidate
// never reaches CheckGoals. The mock adapter has no expectations set,
// so any oracle call fails the test.
func TestSolveCandidatePrunedByConsistencyCheckBeforeOracleCall(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("eax", 32)
	c1, _ := ctx.DeclareConst("0x1")
	c2, _ := ctx.DeclareConst("0x2")
	lit1, _ := ctx.CreateBinaryTerm(term.Equal, v, c1)
	lit2, _ := ctx.CreateBinaryTerm(term.Equal, v, c2)
	cand := term.Candidate{lit1, lit2}

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)

	gen := &fakeGenerator{candidates: []term.Candidate{cand}}
	engine := NewEngine(gen, storage.Fast)
	cfg := abduceconfig.DefaultConfig()
	st := stats.New(nil)
	s := NewSolver(cfg, engine, ad, st, corelog.NewNoOp())

	res, err := s.Solve(ctx)
	assert.NoError(t, err)
	assert.Empty(t, res.Solutions)
	assert.Equal(t, 1, st.Generation.Considered)
	assert.Equal(t, 1, st.Generation.Pruned.Get("consistency"))
}

// TestSolveCandidatePrunedByCounterExampleBeforeOracleCall addresses
// spec.md's testable scenario 4: a candidate satisfied by a
// previously recorded counter-example model must be rejected by the
// counter-example filter before it ever reaches the oracle,
// verifiable by the mock adapter receiving zero CheckGoals calls.
func TestSolveCandidatePrunedByCounterExampleBeforeOracleCall(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("eax", 32)
	c, _ := ctx.DeclareConst("0x1")
	lit, _ := ctx.CreateBinaryTerm(term.Equal, v, c)
	cand := term.Candidate{lit}

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)

	gen := &fakeGenerator{candidates: []term.Candidate{cand}}
	engine := NewEngine(gen, storage.Fast)
	engine.Counterexamples.Add(model.Bindings{v.String(): "0x1"})
	cfg := abduceconfig.DefaultConfig()
	st := stats.New(nil)
	s := NewSolver(cfg, engine, ad, st, corelog.NewNoOp())

	res, err := s.Solve(ctx)
	assert.NoError(t, err)
	assert.Empty(t, res.Solutions)
	assert.Equal(t, 1, st.Generation.Pruned.Get("counterex"))
}

// TestSolveNoPruneCounterexFlagDisablesFilter confirms the
// --no-prune-counterex escape hatch: with the flag set, the same
// counter-example-satisfied candidate as above is allowed through to
// the oracle instead of being pruned.
func TestSolveNoPruneCounterexFlagDisablesFilter(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("eax", 32)
	c, _ := ctx.DeclareConst("0x1")
	lit, _ := ctx.CreateBinaryTerm(term.Equal, v, c)
	cand := term.Candidate{lit}

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	ad.EXPECT().CheckGoals(gomock.Any()).Return(oracle.GoalsResult{
		NegStatus: oracle.Unreachable, PosStatus: oracle.Unreachable,
	}, nil)

	gen := &fakeGenerator{candidates: []term.Candidate{cand}}
	engine := NewEngine(gen, storage.Fast)
	engine.Counterexamples.Add(model.Bindings{v.String(): "0x1"})
	cfg := abduceconfig.DefaultConfig()
	cfg.NoPruneCounterex = true
	st := stats.New(nil)
	s := NewSolver(cfg, engine, ad, st, corelog.NewNoOp())

	res, err := s.Solve(ctx)
	assert.NoError(t, err)
	assert.Empty(t, res.Solutions)
	assert.Equal(t, 0, st.Generation.Pruned.Get("counterex"))
}

// TestSolveCandidatePrunedByStoredSolutionConsequence covers §4.5's
// storage consequence pre-check: a candidate already implied by a
// previously stored solution is rejected before reaching the oracle.
func TestSolveCandidatePrunedByStoredSolutionConsequence(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("eax", 32)
	c, _ := ctx.DeclareConst("0x1")
	lit, _ := ctx.CreateBinaryTerm(term.Equal, v, c)
	cand := term.Candidate{lit}

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)

	gen := &fakeGenerator{candidates: []term.Candidate{cand}}
	engine := NewEngine(gen, storage.Fast)
	engine.Solutions.Store(cand)
	cfg := abduceconfig.DefaultConfig()
	st := stats.New(nil)
	s := NewSolver(cfg, engine, ad, st, corelog.NewNoOp())

	res, err := s.Solve(ctx)
	assert.NoError(t, err)
	assert.Len(t, res.Solutions, 1)
	assert.Equal(t, 1, st.Generation.Pruned.Get("solution"))
}
