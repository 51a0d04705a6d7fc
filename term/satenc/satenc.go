// Package satenc bit-blasts the typed bit-vector terms of package term
// into CNF and decides them with github.com/irifrance/gini, the CDCL
// SAT solver that backs the context's "companion SMT encoding" (§3,
// §4.1): check_sat, check_sat_model, and check_consequence.
package satenc

import (
	"github.com/irifrance/gini"
	"github.com/irifrance/gini/z"

	"github.com/rseabduce/abduce/abducterr"
	"github.com/rseabduce/abduce/term"
)

// Result is the outcome of a decision procedure call.
type Result struct {
	Sat     bool
	Unknown bool
	// Model maps every variable mentioned in the query to its
	// satisfying bit pattern, present only when Sat is true.
	Model map[*term.Term]uint64
}

// encoder bit-blasts a family of terms sharing one gini instance. Not
// reusable across independent queries: each exported function builds
// a fresh encoder so that unit assumptions from one query can never
// leak into another.
type encoder struct {
	g        *gini.Gini
	bits     map[*term.Term][]z.Lit // per-variable bit literals
	boolCache map[*term.Term]z.Lit   // memoized boolean-subterm encodings
	trueLit  z.Lit
}

func newEncoder() *encoder {
	g := gini.New()
	e := &encoder{g: g, bits: make(map[*term.Term][]z.Lit), boolCache: make(map[*term.Term]z.Lit)}
	e.trueLit = g.Lit()
	g.Add(e.trueLit, 0)
	return e
}

func (e *encoder) falseLit() z.Lit { return e.trueLit.Not() }

// varBits returns (allocating on first use) one fresh SAT variable per
// bit of t, bit 0 being the least significant.
func (e *encoder) varBits(t *term.Term) []z.Lit {
	if lits, ok := e.bits[t]; ok {
		return lits
	}
	width := t.Width()
	if width == 0 {
		width = 1
	}
	lits := make([]z.Lit, width)
	for i := range lits {
		lits[i] = e.g.Lit()
	}
	e.bits[t] = lits
	return lits
}

// constBits returns the fixed bit literals of a constant term.
func (e *encoder) constBits(t *term.Term) []z.Lit {
	width := t.Width()
	if width == 0 {
		width = 1
	}
	lits := make([]z.Lit, width)
	v := t.Value()
	for i := range lits {
		if (v>>uint(i))&1 == 1 {
			lits[i] = e.trueLit
		} else {
			lits[i] = e.falseLit()
		}
	}
	return lits
}

func (e *encoder) operandBits(t *term.Term) []z.Lit {
	if t.IsConst() {
		return e.constBits(t)
	}
	return e.varBits(t)
}

// andGate returns y <-> (a & b), Tseitin-encoded.
func (e *encoder) andGate(a, b z.Lit) z.Lit {
	y := e.g.Lit()
	e.g.Add(y.Not(), a, 0)
	e.g.Add(y.Not(), b, 0)
	e.g.Add(y, a.Not(), b.Not(), 0)
	return y
}

// orGate returns y <-> (a | b), Tseitin-encoded.
func (e *encoder) orGate(a, b z.Lit) z.Lit {
	y := e.g.Lit()
	e.g.Add(y, a.Not(), 0)
	e.g.Add(y, b.Not(), 0)
	e.g.Add(y.Not(), a, b, 0)
	return y
}

// xorGate returns y <-> (a xor b), Tseitin-encoded.
func (e *encoder) xorGate(a, b z.Lit) z.Lit {
	y := e.g.Lit()
	e.g.Add(y.Not(), a, b, 0)
	e.g.Add(y.Not(), a.Not(), b.Not(), 0)
	e.g.Add(y, a.Not(), b, 0)
	e.g.Add(y, a, b.Not(), 0)
	return y
}

func (e *encoder) xnorGate(a, b z.Lit) z.Lit { return e.xorGate(a, b).Not() }

func (e *encoder) andAll(lits []z.Lit) z.Lit {
	acc := e.trueLit
	for i, l := range lits {
		if i == 0 {
			acc = l
			continue
		}
		acc = e.andGate(acc, l)
	}
	return acc
}

func (e *encoder) orAll(lits []z.Lit) z.Lit {
	acc := e.falseLit()
	for i, l := range lits {
		if i == 0 {
			acc = l
			continue
		}
		acc = e.orGate(acc, l)
	}
	return acc
}

// equalGate builds the bitwise equality of two same-width operands.
func (e *encoder) equalGate(a, b []z.Lit) z.Lit {
	xnors := make([]z.Lit, len(a))
	for i := range a {
		xnors[i] = e.xnorGate(a[i], b[i])
	}
	return e.andAll(xnors)
}

// unsignedLessGate builds a <u b over equal-width operands MSB-first.
func (e *encoder) unsignedLessGate(a, b []z.Lit) z.Lit {
	lt := e.falseLit()
	eq := e.trueLit
	for i := len(a) - 1; i >= 0; i-- {
		bitLt := e.andGate(a[i].Not(), b[i])
		step := e.andGate(eq, bitLt)
		lt = e.orGate(lt, step)
		eq = e.andGate(eq, e.xnorGate(a[i], b[i]))
	}
	return lt
}

// signedLessGate builds a <s b by flipping both operands' sign bit and
// performing an unsigned comparison (two's complement order
// preservation trick).
func (e *encoder) signedLessGate(a, b []z.Lit) z.Lit {
	n := len(a)
	fa := make([]z.Lit, n)
	fb := make([]z.Lit, n)
	copy(fa, a)
	copy(fb, b)
	fa[n-1] = a[n-1].Not()
	fb[n-1] = b[n-1].Not()
	return e.unsignedLessGate(fa, fb)
}

// encodeBool returns a literal representing the boolean value of a
// relational atom or connective t.
func (e *encoder) encodeBool(t *term.Term) (z.Lit, error) {
	if lit, ok := e.boolCache[t]; ok {
		return lit, nil
	}
	var lit z.Lit
	switch t.Kind() {
	case term.KindBinary:
		a, b := t.Operands()
		abits, bbits := e.operandBits(a), e.operandBits(b)
		switch t.Op() {
		case term.Equal:
			lit = e.equalGate(abits, bbits)
		case term.Distinct:
			lit = e.equalGate(abits, bbits).Not()
		case term.Lower:
			lit = e.signedLessGate(abits, bbits)
		default:
			return z.LitNull, abducterr.New(abducterr.InternalInvariant, "unsupported relational operator in satenc")
		}
	case term.KindMulti:
		kids := t.Children()
		sub := make([]z.Lit, len(kids))
		for i, k := range kids {
			kl, err := e.encodeBool(k)
			if err != nil {
				return z.LitNull, err
			}
			sub[i] = kl
		}
		if t.Op() == term.And {
			lit = e.andAll(sub)
		} else {
			lit = e.orAll(sub)
		}
	case term.KindNeg:
		kl, err := e.encodeBool(t.Children()[0])
		if err != nil {
			return z.LitNull, err
		}
		lit = kl.Not()
	default:
		return z.LitNull, abducterr.New(abducterr.InternalInvariant, "encodeBool called on a non-boolean term")
	}
	e.boolCache[t] = lit
	return lit, nil
}

// assertCandidate adds a unit clause asserting every atom of cand
// true (their conjunction is exactly what a Candidate means).
func (e *encoder) assertCandidate(cand term.Candidate) error {
	for _, atom := range cand {
		lit, err := e.encodeBool(atom)
		if err != nil {
			return err
		}
		e.g.Add(lit, 0)
	}
	return nil
}

func (e *encoder) solve() (Result, error) {
	switch e.g.Solve() {
	case 1:
		model := make(map[*term.Term]uint64, len(e.bits))
		for t, lits := range e.bits {
			var v uint64
			for i, l := range lits {
				if e.g.Value(l) {
					v |= uint64(1) << uint(i)
				}
			}
			model[t] = v
		}
		return Result{Sat: true, Model: model}, nil
	case -1:
		return Result{Sat: false}, nil
	default:
		return Result{Unknown: true}, abducterr.New(abducterr.SMTUnknown, "SAT solver returned unknown")
	}
}

// CheckSat decides satisfiability of a candidate's conjunction. §4.1
// check_sat.
func CheckSat(cand term.Candidate) (Result, error) {
	e := newEncoder()
	if err := e.assertCandidate(cand); err != nil {
		return Result{}, err
	}
	return e.solve()
}

// CheckSatModel decides satisfiability of a candidate's conjunction
// under additional equality assumptions drawn from bindings (a
// var-term to fixed-value map, typically produced by resolving an
// oracle model through Context.Lookup). §4.1 check_sat_model.
func CheckSatModel(cand term.Candidate, bindings map[*term.Term]uint64) (Result, error) {
	e := newEncoder()
	if err := e.assertCandidate(cand); err != nil {
		return Result{}, err
	}
	for v, val := range bindings {
		bits := e.varBits(v)
		for i, l := range bits {
			if (val>>uint(i))&1 == 1 {
				e.g.Add(l, 0)
			} else {
				e.g.Add(l.Not(), 0)
			}
		}
	}
	return e.solve()
}

// CheckConsequence decides A ⇒ B via unsatisfiability of A ∧ ¬B. §4.1
// check_consequence.
func CheckConsequence(a, b term.Candidate) (bool, error) {
	e := newEncoder()
	if err := e.assertCandidate(a); err != nil {
		return false, err
	}
	// ¬B = not(and(b's atoms)) = or(not(atom) for atom in b).
	if len(b) == 0 {
		// B is "true"; A ⇒ true always holds.
		return true, nil
	}
	negs := make([]z.Lit, len(b))
	for i, atom := range b {
		lit, err := e.encodeBool(atom)
		if err != nil {
			return false, err
		}
		negs[i] = lit.Not()
	}
	e.g.Add(e.orAll(negs), 0)
	res, err := e.solve()
	if err != nil {
		return false, err
	}
	return !res.Sat, nil
}
