package generate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rseabduce/abduce/abduceconfig"
	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/model"
	"github.com/rseabduce/abduce/oracle"
	"github.com/rseabduce/abduce/stats"
	"github.com/rseabduce/abduce/term"
)

// InputRegion is a canonical (base, size) memory region supplied by
// the caller, capped at cfg.InputRegionMaxBytes and chunked into
// 4-byte word variables plus a trailing remainder (§9.6).
type InputRegion struct {
	Base uint64
	Size uint
}

// AutoGenerator enumerates candidates from a learned variable/literal
// pool, grounded on BinsecAutoCandidateGenerator: it seeds variables
// from a literals file and/or canonical input regions, grows the pool
// from example/counterexample models as they accumulate, and yields
// growing-depth combinations of the resulting literal set with
// restart semantics when the pool changes mid-enumeration.
type AutoGenerator struct {
	cfg abduceconfig.Config
	ctx *term.Context
	ad  oracle.Adapter
	st  *stats.Stats
	log corelog.Logger

	vars       map[*term.Term]struct{}
	controlled map[*term.Term]struct{}
	operators  []term.Operator

	rvars     map[*term.Term]struct{} // explicitly-seeded vars, never dropped
	dynConsts map[*term.Term]map[string]struct{}

	exset, cexset *model.Set
	ncoreset      map[term.Literal]struct{}

	restart bool
}

// NewAutoGenerator constructs a generator seeded from the literals
// file at cfg.Literals and, if no explicit variable/word lines are
// present there, from canonicalRegions (each capped at
// cfg.InputRegionMaxBytes bytes and chunked into 4-byte words).
func NewAutoGenerator(cfg abduceconfig.Config, ctx *term.Context, ad oracle.Adapter, st *stats.Stats, log corelog.Logger, literalLines []string, canonicalRegions []InputRegion) (*AutoGenerator, error) {
	g := &AutoGenerator{
		cfg:        cfg,
		ctx:        ctx,
		ad:         ad,
		st:         st,
		log:        log,
		vars:       map[*term.Term]struct{}{},
		controlled: map[*term.Term]struct{}{},
		rvars:      map[*term.Term]struct{}{},
		dynConsts:  map[*term.Term]map[string]struct{}{},
		ncoreset:   map[term.Literal]struct{}{},
	}
	if err := g.initVars(literalLines, canonicalRegions); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *AutoGenerator) SetExampleSet(s *model.Set)        { g.exset = s }
func (g *AutoGenerator) SetCounterexampleSet(s *model.Set)  { g.cexset = s }
func (g *AutoGenerator) SetNecessaryCoreSet(core map[term.Literal]struct{}) {
	g.ncoreset = core
}
func (g *AutoGenerator) RestartLocalGeneration() { g.restart = true }

func (g *AutoGenerator) initVars(literalLines []string, canonicalRegions []InputRegion) error {
	hasExplicit := false
	for _, raw := range literalLines {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "constant:"):
			cvalue := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			hexvalue := cvalue
			if !strings.HasPrefix(cvalue, "0b") && !strings.HasPrefix(cvalue, "0x") {
				v, err := strconv.ParseInt(cvalue, 10, 64)
				if err != nil {
					continue
				}
				hexvalue = fmt.Sprintf("0x%x", v)
			}
			c, err := g.ctx.DeclareConst(hexvalue)
			if err != nil {
				continue
			}
			g.rvars[c] = struct{}{}
			g.vars[c] = struct{}{}
		case strings.HasPrefix(line, "variable:"):
			id := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			v, err := g.ctx.DeclareVar(id, 0)
			if err != nil {
				continue
			}
			g.rvars[v] = struct{}{}
			g.vars[v] = struct{}{}
			hasExplicit = true
		case strings.HasPrefix(line, "word:"):
			addr := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			if addr == "" {
				continue
			}
			v, err := g.ctx.DeclareVar(addr+":4", 0)
			if err != nil {
				continue
			}
			g.rvars[v] = struct{}{}
			g.vars[v] = struct{}{}
			hasExplicit = true
		case g.cfg.BinsecRobust && strings.HasPrefix(line, "controlled:"):
			id := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			v, err := g.ctx.DeclareVar(id, 0)
			if err != nil {
				continue
			}
			g.controlled[v] = struct{}{}
		}
	}
	if !hasExplicit {
		for _, r := range canonicalRegions {
			for _, chunk := range chunkRegion(r, g.cfg.InputRegionMaxBytes) {
				v, err := g.ctx.DeclareVar(fmt.Sprintf("0x%08x:%d", chunk.Base, chunk.Size), 0)
				if err != nil {
					continue
				}
				g.rvars[v] = struct{}{}
				g.vars[v] = struct{}{}
			}
		}
	}
	g.seedBaseConstants()
	if g.cfg.WithAutoConstants {
		for _, lit := range []string{"0x00", "0x01"} {
			c, err := g.ctx.DeclareConst(lit)
			if err == nil {
				g.vars[c] = struct{}{}
			}
		}
	}
	return nil
}

// chunkRegion caps a region at maxBytes and splits it into 4-byte
// words plus a trailing remainder, the §9.6 canonical input-region
// chunking rule.
func chunkRegion(r InputRegion, maxBytes int) []InputRegion {
	if maxBytes <= 0 {
		maxBytes = 32
	}
	var out []InputRegion
	remaining := r.Size
	if remaining > uint(maxBytes) {
		remaining = uint(maxBytes)
	}
	base := r.Base
	for remaining > 0 {
		size := uint(4)
		if size > remaining {
			size = remaining
		}
		out = append(out, InputRegion{Base: base, Size: size})
		base += uint64(size)
		remaining -= size
	}
	return out
}

func (g *AutoGenerator) seedBaseConstants() {
	sizes := map[uint]struct{}{}
	for v := range g.rvars {
		if v.IsConst() {
			continue
		}
		sizes[v.Width()] = struct{}{}
	}
	for bits := range sizes {
		if bits == 0 {
			continue
		}
		vals := []int64{0, 1, -1}
		if bits > 1 {
			vals = append(vals, int64(1)<<(bits-1)-1, -(int64(1) << (bits - 1)))
		}
		for _, v := range vals {
			cfmt := formatConstForSize(v, bits)
			if cfmt == "" {
				continue
			}
			c, err := g.ctx.DeclareConst(cfmt)
			if err != nil {
				continue
			}
			g.vars[c] = struct{}{}
			g.rvars[c] = struct{}{}
		}
	}
}

func formatConstForSize(value int64, bits uint) string {
	if bits == 0 {
		return ""
	}
	var mask uint64 = ^uint64(0)
	if bits < 64 {
		mask = (uint64(1) << bits) - 1
	}
	uv := uint64(value) & mask
	if bits%4 == 0 {
		width := int(bits / 4)
		if width < 1 {
			width = 1
		}
		return fmt.Sprintf("0x%0*x", width, uv)
	}
	return "0b" + binDigits(uv, bits)
}

func binDigits(v uint64, width uint) string {
	buf := make([]byte, width)
	for i := uint(0); i < width; i++ {
		bit := (v >> (width - 1 - i)) & 1
		if bit == 1 {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

// addDynamicConstFromModel mirrors _add_dynamic_const_from_model: it
// seeds at most cfg.DynamicConstsPerVar distinct constants learned
// from observed model values per variable.
func (g *AutoGenerator) addDynamicConstFromModel(v *term.Term, value string) {
	if v.IsConst() {
		return
	}
	ival, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X"), 16, 64)
	if err != nil {
		return
	}
	cfmt := formatConstForSize(ival, v.Width())
	if cfmt == "" {
		return
	}
	seen, ok := g.dynConsts[v]
	if !ok {
		seen = map[string]struct{}{}
		g.dynConsts[v] = seen
	}
	if _, ok := seen[cfmt]; ok {
		return
	}
	max := g.cfg.DynamicConstsPerVar
	if max < 1 {
		max = 1
	}
	if len(seen) >= max {
		return
	}
	c, err := g.ctx.DeclareConst(cfmt)
	if err != nil {
		return
	}
	seen[cfmt] = struct{}{}
	g.vars[c] = struct{}{}
}

// isCoveredByInputWord reports whether addr falls inside an
// explicitly-seeded word variable wider than one byte, the same
// coverage test _is_covered_by_input_word applies before admitting a
// byte-granular variable from an oracle model.
func (g *AutoGenerator) isCoveredByInputWord(addr uint64) bool {
	for v := range g.rvars {
		if v.Origin() != term.VarMemory || v.Size() <= 1 {
			continue
		}
		if v.Addr() <= addr && addr < v.Addr()+uint64(v.Size()) {
			return true
		}
	}
	return false
}

func (g *AutoGenerator) updateVars() {
	if g.cfg.InputVariablesOnly {
		g.vars = map[*term.Term]struct{}{}
		for v := range g.rvars {
			g.vars[v] = struct{}{}
		}
		return
	}
	for _, set := range []*model.Set{g.exset, g.cexset} {
		if set == nil {
			continue
		}
		for _, m := range set.All() {
			for key, val := range m {
				if key == model.DefaultKey || key == model.ControlledKey {
					continue
				}
				if strings.Contains(key, "!") || key == "from_file" {
					continue
				}
				v, ok := g.ctx.Lookup(key)
				if !ok {
					continue
				}
				if g.ad.FullyAssumed(v) {
					continue
				}
				if v.Origin() == term.VarMemory && g.isCoveredByInputWord(v.Addr()) {
					continue
				}
				g.vars[v] = struct{}{}
				g.addDynamicConstFromModel(v, val)
			}
		}
	}
}

func (g *AutoGenerator) updateOperators() {
	ops := []term.Operator{term.Equal}
	if g.cfg.WithDisequalities {
		ops = append(ops, term.Distinct)
	}
	if g.cfg.WithInequalities {
		ops = append(ops, term.Lower)
	}
	g.operators = ops
}

// reduceAuto drops controlled variables from literal generation
// outside robust mode, matching _reduce_auto.
func (g *AutoGenerator) reduceAuto() []*term.Term {
	out := make([]*term.Term, 0, len(g.vars))
	for v := range g.vars {
		if !g.cfg.BinsecRobust {
			if _, ctl := g.controlled[v]; ctl {
				continue
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return varSortKey(out[i]) < varSortKey(out[j]) })
	return out
}

// varSortKey orders constants last and wider (word-level) variables
// first, matching _var_sort_key's tuple ordering collapsed to a
// single comparable string.
func varSortKey(v *term.Term) string {
	class := "1"
	if v.IsConst() {
		class = "2"
	} else if v.Width() >= 32 {
		class = "0"
	}
	return fmt.Sprintf("%s:%08d:%s", class, 1_000_000-int(v.Width()), v.String())
}

func (g *AutoGenerator) resizedConst(c *term.Term, targetWidth uint) *term.Term {
	if targetWidth == 0 {
		return nil
	}
	return g.ctx.DeclareConstWidth(c.Value(), targetWidth)
}

func (g *AutoGenerator) normalizePair(v1, v2 *term.Term) (*term.Term, *term.Term) {
	if v1.Width() == v2.Width() {
		return v1, v2
	}
	if v1.IsConst() && !v2.IsConst() {
		nv := g.resizedConst(v1, v2.Width())
		if nv == nil {
			return nil, nil
		}
		g.vars[nv] = struct{}{}
		return nv, v2
	}
	if v2.IsConst() && !v1.IsConst() {
		nv := g.resizedConst(v2, v1.Width())
		if nv == nil {
			return nil, nil
		}
		g.vars[nv] = struct{}{}
		return v1, nv
	}
	return nil, nil
}

func (g *AutoGenerator) generateLiterals() []term.Literal {
	var lits []term.Literal
	ordered := g.reduceAuto()
	for _, op := range g.operators {
		emit := func(v1, v2 *term.Term) {
			v1, v2 = g.normalizePair(v1, v2)
			if v1 == nil || v2 == nil {
				return
			}
			if v1.IsConst() && v2.IsConst() {
				return
			}
			if v1.Width() != v2.Width() {
				return
			}
			if g.cfg.NoVariablesBinop && !v1.IsConst() && !v2.IsConst() {
				return
			}
			if g.cfg.CoreLiterals {
				lit, err := g.ctx.CreateBinaryTerm(op, v1, v2)
				if err == nil {
					if _, excluded := g.ncoreset[lit]; !excluded {
						lits = append(lits, lit)
					}
				}
			}
			if g.cfg.SeparateBytes {
				lits = append(lits, g.generateByteLiterals(op, v1, v2)...)
			}
			if g.cfg.SeparateBits {
				lits = append(lits, g.generateBitLiterals(op, v1, v2)...)
			}
		}
		if op != term.Lower {
			for i := 0; i < len(ordered); i++ {
				for j := i + 1; j < len(ordered); j++ {
					emit(ordered[i], ordered[j])
				}
			}
		} else {
			for i := 0; i < len(ordered); i++ {
				for j := 0; j < len(ordered); j++ {
					if i == j {
						continue
					}
					emit(ordered[i], ordered[j])
				}
			}
		}
	}
	return lits
}

func (g *AutoGenerator) generateByteLiterals(op term.Operator, v1, v2 *term.Term) []term.Literal {
	var lits []term.Literal
	if v1.Width() == v2.Width() {
		return lits
	}
	var v1bytes, v2bytes []*term.Term
	if v1.Width() > 8 && !v1.IsConst() {
		v1bytes = g.createBytes(v1)
	}
	if v2.Width() > 8 && !v2.IsConst() {
		v2bytes = g.createBytes(v2)
	}
	if len(v1bytes) == 0 && len(v2bytes) != 0 {
		v1bytes = []*term.Term{v1}
	}
	if len(v1bytes) != 0 && len(v2bytes) == 0 {
		v2bytes = []*term.Term{v2}
	}
	for _, b1 := range v1bytes {
		for _, b2 := range v2bytes {
			lit, err := g.ctx.CreateBinaryTerm(op, b1, b2)
			if err != nil {
				continue
			}
			if _, excluded := g.ncoreset[lit]; !excluded {
				lits = append(lits, lit)
			}
		}
	}
	return lits
}

func (g *AutoGenerator) generateBitLiterals(op term.Operator, v1, v2 *term.Term) []term.Literal {
	var lits []term.Literal
	if v1.Width() == v2.Width() {
		return lits
	}
	var v1bits, v2bits []*term.Term
	if !v1.IsConst() {
		v1bits = g.createBits(v1)
	}
	if !v2.IsConst() {
		v2bits = g.createBits(v2)
	}
	if len(v1bits) == 0 && len(v2bits) != 0 {
		v1bits = []*term.Term{v1}
	}
	if len(v1bits) != 0 && len(v2bits) == 0 {
		v2bits = []*term.Term{v2}
	}
	for _, b1 := range v1bits {
		for _, b2 := range v2bits {
			lit, err := g.ctx.CreateBinaryTerm(op, b1, b2)
			if err != nil {
				continue
			}
			if _, excluded := g.ncoreset[lit]; !excluded {
				lits = append(lits, lit)
			}
		}
	}
	return lits
}

func (g *AutoGenerator) createBytes(v *term.Term) []*term.Term {
	n := int(v.Width() / 8)
	out := make([]*term.Term, 0, n)
	for i := 0; i < n; i++ {
		b, err := g.ctx.DeclareByte(v, i)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (g *AutoGenerator) createBits(v *term.Term) []*term.Term {
	n := int(v.Width())
	out := make([]*term.Term, 0, n)
	for i := 0; i < n; i++ {
		b, err := g.ctx.DeclareBit(v, i)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Generate implements Generator: an initial empty candidate, then two
// exploratory passes at depth 0-1 re-run every time the variable pool
// grows or an external restart fires, then a final depth-ascending
// sweep up to cfg.MaxDepth (or the full literal count) once the pool
// has stabilized.
func (g *AutoGenerator) Generate() <-chan term.Candidate {
	out := make(chan term.Candidate)
	go func() {
		defer close(out)
		oldLength := 0
		g.restart = false
		g.updateVars()
		out <- term.Candidate{}

		var lits []term.Literal
		for {
			g.updateVars()
			newLength := len(g.vars)
			if g.st != nil {
				g.st.Generation.Restart++
				g.st.Generation.Vars = newLength
			}
			if !g.restart && newLength == oldLength {
				break
			}
			if g.restart {
				g.log.Debug("externally triggered restart")
				g.restart = false
			}
			oldLength = newLength
			g.updateOperators()
			lits = g.generateLiterals()
			if g.st != nil {
				g.st.Generation.Literals = len(lits)
			}
			if g.cfg.LitOrdering {
				g.orderLiterals(lits)
			}

			stop := false
			for depth := 0; depth < 2 && !stop; depth++ {
				combinations(lits, depth, func(combo []term.Literal) bool {
					select {
					case out <- term.NormalizeCandidate(combo):
					}
					if g.restart {
						stop = true
						return false
					}
					return true
				})
			}
		}

		rangeout := len(lits) + 1
		if g.cfg.MaxDepth != nil {
			rangeout = *g.cfg.MaxDepth + 1
		}
		for depth := 2; depth < rangeout; depth++ {
			combinations(lits, depth, func(combo []term.Literal) bool {
				out <- term.NormalizeCandidate(combo)
				return true
			})
		}
	}()
	return out
}

// orderLiterals sorts lits by (negated satisfied-example count,
// complexity), matching the original's mtable ordering: literals
// that are satisfied by more examples sort first.
func (g *AutoGenerator) orderLiterals(lits []term.Literal) {
	if g.exset == nil {
		return
	}
	score := make(map[term.Literal]int, len(lits))
	for _, lit := range lits {
		count := 0
		for _, ex := range g.exset.All() {
			if literalSatisfiedBy(lit, ex) {
				count++
			}
		}
		score[lit] = -count
	}
	sort.SliceStable(lits, func(i, j int) bool {
		si, sj := score[lits[i]], score[lits[j]]
		if si != sj {
			return si < sj
		}
		return complexity(lits[i]) < complexity(lits[j])
	})
}

// literalSatisfiedBy is a cheap syntactic satisfaction test on a
// single-atom literal against a concrete binding, used only to order
// (not to prune) literals; a binding miss means "not decided" and
// counts as unsatisfied.
func literalSatisfiedBy(lit term.Literal, ex model.Bindings) bool {
	a, b := lit.Operands()
	if a == nil || b == nil {
		return false
	}
	av, aok := resolveOperand(a, ex)
	bv, bok := resolveOperand(b, ex)
	if !aok || !bok {
		return false
	}
	switch lit.Op() {
	case term.Equal:
		return av == bv
	case term.Distinct:
		return av != bv
	case term.Lower:
		return int64(av) < int64(bv)
	default:
		return false
	}
}

func resolveOperand(t *term.Term, ex model.Bindings) (uint64, bool) {
	if t.IsConst() {
		return t.Value(), true
	}
	val, ok := ex[t.String()]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(val, "0x"), "0X"), 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// complexity is the literal's term-tree size, a cheap tie-breaker for
// ordering (narrower atoms first).
func complexity(lit term.Literal) int {
	a, b := lit.Operands()
	c := 1
	if a != nil {
		c += subComplexity(a)
	}
	if b != nil {
		c += subComplexity(b)
	}
	return c
}

func subComplexity(t *term.Term) int {
	switch t.Kind() {
	case term.KindBinary:
		a, b := t.Operands()
		return 1 + subComplexity(a) + subComplexity(b)
	case term.KindMulti, term.KindNeg:
		c := 1
		for _, k := range t.Children() {
			c += subComplexity(k)
		}
		return c
	default:
		return 1
	}
}

var _ Generator = (*AutoGenerator)(nil)
