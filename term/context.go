package term

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rseabduce/abduce/abducterr"
)

// defaultRegisterWidth is used when a register variable is declared
// without an explicit width; the target architecture throughout the
// retrieval pack is 32-bit.
const defaultRegisterWidth = 32

var (
	memVarRe   = regexp.MustCompile(`^(0x[0-9a-fA-F]+)[:/]([0-9]+)$`)
	bareAddrRe = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)
	regNameRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Context interns every Term created during a solver run. It is not
// safe for concurrent use; the core is single-threaded (§5).
type Context struct {
	nextID uint64

	vars     map[string]*Term // canonical var key -> term
	consts   map[string]*Term // "width:value" -> term
	multi    map[string]*Term // structural key -> KindBinary/KindMulti/KindNeg term
	byDisplay map[string]*Term // pretty-printed name -> var term, for model round-tripping
}

// NewContext returns an empty, ready-to-use term context.
func NewContext() *Context {
	return &Context{
		vars:      make(map[string]*Term),
		consts:    make(map[string]*Term),
		multi:     make(map[string]*Term),
		byDisplay: make(map[string]*Term),
	}
}

// Lookup returns the variable previously declared whose canonical
// display string (as produced by Term.String) equals display. Used to
// resolve oracle model bindings, which are keyed by that same
// display syntax, back into context variables.
func (c *Context) Lookup(display string) (*Term, bool) {
	t, ok := c.byDisplay[display]
	return t, ok
}

// Vars returns every variable declared in the context so far, in
// insertion order.
func (c *Context) Vars() []*Term {
	out := make([]*Term, 0, len(c.vars))
	for _, t := range c.vars {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (c *Context) alloc() uint64 {
	c.nextID++
	return c.nextID
}

// DeclareVar interns (idempotently) a variable identified by id,
// following the grammar of §4.1: a bare alphabetic register name, a
// bare "0xADDR" (defaulting to a 4-byte word), or "0xADDR:BYTES" /
// "0xADDR/BYTES" for a sized memory reference. width is only
// consulted for register variables and defaults to 32 when zero.
func (c *Context) DeclareVar(id string, width uint) (*Term, error) {
	id = strings.TrimSpace(id)
	if m := memVarRe.FindStringSubmatch(id); m != nil {
		addr, err := strconv.ParseUint(m[1][2:], 16, 64)
		if err != nil {
			return nil, abducterr.Wrap(abducterr.Configuration, err, "parse memory variable address "+id)
		}
		size, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return nil, abducterr.Wrap(abducterr.Configuration, err, "parse memory variable size "+id)
		}
		return c.declareMemVar(addr, uint(size)), nil
	}
	if bareAddrRe.MatchString(id) {
		addr, err := strconv.ParseUint(id[2:], 16, 64)
		if err != nil {
			return nil, abducterr.Wrap(abducterr.Configuration, err, "parse memory variable address "+id)
		}
		return c.declareMemVar(addr, 4), nil
	}
	if regNameRe.MatchString(id) {
		if width == 0 {
			width = defaultRegisterWidth
		}
		return c.declareRegVar(id, width), nil
	}
	return nil, abducterr.New(abducterr.Configuration, "unrecognized variable id "+id)
}

func (c *Context) declareMemVar(addr uint64, size uint) *Term {
	key := fmt.Sprintf("mem:%x:%d", addr, size)
	if t, ok := c.vars[key]; ok {
		return t
	}
	t := &Term{id: c.alloc(), kind: KindVar, origin: VarMemory, addr: addr, size: size, width: size * 8, name: key}
	c.vars[key] = t
	c.byDisplay[t.String()] = t
	return t
}

func (c *Context) declareRegVar(name string, width uint) *Term {
	key := fmt.Sprintf("reg:%s:%d", name, width)
	if t, ok := c.vars[key]; ok {
		return t
	}
	t := &Term{id: c.alloc(), kind: KindVar, origin: VarRegister, name: name, width: width}
	c.vars[key] = t
	c.byDisplay[t.String()] = t
	return t
}

// DeclareConst interns (idempotently) a literal constant from its
// textual hex ("0x…") or binary ("0b…") form, per §4.1: width is
// 4·hex_digits or digit_count respectively.
func (c *Context) DeclareConst(lit string) (*Term, error) {
	lit = strings.TrimSpace(lit)
	switch {
	case strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X"):
		digits := lit[2:]
		if digits == "" {
			return nil, abducterr.New(abducterr.Configuration, "empty hex constant "+lit)
		}
		v, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return nil, abducterr.Wrap(abducterr.Configuration, err, "parse hex constant "+lit)
		}
		return c.internConst(v, uint(4*len(digits)), len(digits)), nil
	case strings.HasPrefix(lit, "0b") || strings.HasPrefix(lit, "0B"):
		digits := lit[2:]
		if digits == "" {
			return nil, abducterr.New(abducterr.Configuration, "empty binary constant "+lit)
		}
		v, err := strconv.ParseUint(digits, 2, 64)
		if err != nil {
			return nil, abducterr.Wrap(abducterr.Configuration, err, "parse binary constant "+lit)
		}
		return c.internConst(v, uint(len(digits)), 0), nil
	default:
		return nil, abducterr.New(abducterr.Configuration, "constant must be 0x or 0b prefixed: "+lit)
	}
}

// DeclareConstWidth interns a constant with an explicit numeric value
// and width, printed in hex when the width is a multiple of 4 and in
// binary otherwise. Used by the generator when seeding base
// constants (0, 1, signed min/max) and by dynamic-width re-interning.
func (c *Context) DeclareConstWidth(value uint64, width uint) *Term {
	if width == 0 {
		width = 1
	}
	mask := widthMask(width)
	return c.internConst(value&mask, width, hexDigitsFor(width))
}

func (c *Context) internConst(value uint64, width uint, hexlen int) *Term {
	key := fmt.Sprintf("const:%d:%d", width, value)
	if t, ok := c.consts[key]; ok {
		return t
	}
	t := &Term{id: c.alloc(), kind: KindConst, width: width, value: value, hexlen: hexlen}
	c.consts[key] = t
	return t
}

func widthMask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// hexDigitsFor returns the number of hex digits used to print a
// constant of the given width, matching the teacher's preference for
// hex when the width is a multiple of 4 and binary otherwise (ported
// from the original generator's _format_const_for_size).
func hexDigitsFor(width uint) int {
	if width%4 == 0 {
		return int(width / 4)
	}
	return 0
}

// DeclareByte returns the variable representing byte index i (0 is
// least significant) of v, interned idempotently.
func (c *Context) DeclareByte(v *Term, i int) (*Term, error) {
	if v.kind != KindVar {
		return nil, abducterr.New(abducterr.InternalInvariant, "DeclareByte on a non-variable term")
	}
	if uint(i) >= v.width/8 {
		return nil, abducterr.New(abducterr.Configuration, "byte index out of range")
	}
	switch v.origin {
	case VarMemory:
		return c.declareMemVar(v.addr+uint64(i), 1), nil
	default:
		key := fmt.Sprintf("regbyte:%s:%d", v.name, i)
		if t, ok := c.vars[key]; ok {
			return t, nil
		}
		t := &Term{id: c.alloc(), kind: KindVar, origin: VarRegister, name: fmt.Sprintf("%s.b%d", v.name, i), width: 8}
		c.vars[key] = t
		c.byDisplay[t.String()] = t
		return t, nil
	}
}

// DeclareBit returns the single-bit variable representing bit index i
// of v, interned idempotently.
func (c *Context) DeclareBit(v *Term, i int) (*Term, error) {
	if v.kind != KindVar {
		return nil, abducterr.New(abducterr.InternalInvariant, "DeclareBit on a non-variable term")
	}
	if uint(i) >= v.width {
		return nil, abducterr.New(abducterr.Configuration, "bit index out of range")
	}
	key := fmt.Sprintf("bit:%s:%d", v.name, i)
	if v.origin == VarMemory {
		key = fmt.Sprintf("bit:mem:%x:%d:%d", v.addr, v.size, i)
	}
	if t, ok := c.vars[key]; ok {
		return t, nil
	}
	name := fmt.Sprintf("%s.bit%d", v.name, i)
	if v.origin == VarMemory {
		name = fmt.Sprintf("@[0x%x,%d].bit%d", v.addr, v.size, i)
	}
	t := &Term{id: c.alloc(), kind: KindVar, origin: VarRegister, name: name, width: 1}
	c.vars[key] = t
	c.byDisplay[t.String()] = t
	return t, nil
}

// resizeConst re-interns a constant at a new (wider) width, preserving
// its value via zero-extension, per the mixed-width re-interning rule
// of §4.1 (decided in SPEC_FULL.md §4: constants are always re-emitted
// at the other operand's width).
func (c *Context) resizeConst(k *Term, width uint) *Term {
	if k.width == width {
		return k
	}
	return c.DeclareConstWidth(k.value, width)
}

// CreateBinaryTerm interns a relational atom over a and b, after
// width-normalizing per §4.1: when widths differ and exactly one
// operand is a constant, the constant is re-interned at the other
// operand's width (zero-extension preserves its value). Two variables
// of different widths cannot be reconciled and are an internal
// invariant failure — the generator is responsible for never pairing
// them (§4.3).
func (c *Context) CreateBinaryTerm(op Operator, a, b *Term) (*Term, error) {
	if !op.IsRelational() {
		return nil, abducterr.New(abducterr.InternalInvariant, "CreateBinaryTerm requires a relational operator")
	}
	if a.width != b.width {
		switch {
		case a.kind == KindConst && b.kind != KindConst:
			a = c.resizeConst(a, b.width)
		case b.kind == KindConst && a.kind != KindConst:
			b = c.resizeConst(b, a.width)
		case a.kind == KindConst && b.kind == KindConst:
			wide := a.width
			if b.width > wide {
				wide = b.width
			}
			a = c.resizeConst(a, wide)
			b = c.resizeConst(b, wide)
		default:
			return nil, abducterr.New(abducterr.InternalInvariant,
				fmt.Sprintf("cannot reconcile widths %d and %d between two variables", a.width, b.width))
		}
	}
	if op.IsSymmetric() && a.id > b.id {
		a, b = b, a
	}
	key := fmt.Sprintf("bin:%d:%d:%d", op, a.id, b.id)
	if t, ok := c.multi[key]; ok {
		return t, nil
	}
	t := &Term{id: c.alloc(), kind: KindBinary, op: op, a: a, b: b}
	c.multi[key] = t
	return t, nil
}

// CreateMultiTerm interns an n-ary And/Or over children, flattening
// nested terms of the same operator, deduplicating by pointer
// identity, and sorting into a canonical (ID-ascending) order so that
// structurally equal sets intern to the same Term regardless of the
// order children were supplied in.
func (c *Context) CreateMultiTerm(op Operator, children []*Term) *Term {
	flat := flatten(op, children)
	sort.Slice(flat, func(i, j int) bool { return flat[i].id < flat[j].id })
	if len(flat) == 1 {
		return flat[0]
	}
	key := multiKey(op, flat)
	if t, ok := c.multi[key]; ok {
		return t
	}
	t := &Term{id: c.alloc(), kind: KindMulti, op: op, kids: flat}
	c.multi[key] = t
	return t
}

func flatten(op Operator, children []*Term) []*Term {
	seen := make(map[*Term]struct{}, len(children))
	out := make([]*Term, 0, len(children))
	var walk func(*Term)
	walk = func(t *Term) {
		if t.kind == KindMulti && t.op == op {
			for _, k := range t.kids {
				walk(k)
			}
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, c := range children {
		walk(c)
	}
	return out
}

func multiKey(op Operator, flat []*Term) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "multi:%d", op)
	for _, t := range flat {
		fmt.Fprintf(&sb, ":%d", t.id)
	}
	return sb.String()
}

// CreateNegation builds not(and(lits...)), the shape every "reject
// model/solution" directive takes (§4.2, §4.6's ¬⋁S⁺). An empty
// candidate negates to not(true); callers that need the "0x0=0x0"
// True hack for an empty candidate build it themselves before calling
// this (that hack is an oracle-script concern, not a term concern).
func (c *Context) CreateNegation(lits []*Term) *Term {
	var inner *Term
	switch len(lits) {
	case 0:
		return c.trueSentinel()
	case 1:
		inner = lits[0]
	default:
		inner = c.CreateMultiTerm(And, lits)
	}
	key := fmt.Sprintf("neg:%d", inner.id)
	if t, ok := c.multi[key]; ok {
		return t
	}
	t := &Term{id: c.alloc(), kind: KindNeg, op: Not, kids: []*Term{inner}}
	c.multi[key] = t
	return t
}

// trueSentinel returns a degenerate always-true atom (0x0=0x0, the
// same hack the oracle script layer uses for an empty solution set)
// so that CreateNegation on an empty candidate still yields a usable
// term instead of a nil.
func (c *Context) trueSentinel() *Term {
	zero := c.DeclareConstWidth(0, 32)
	atom, _ := c.CreateBinaryTerm(Equal, zero, zero)
	neg := &Term{id: c.alloc(), kind: KindNeg, op: Not, kids: []*Term{atom}}
	return neg
}

// Negate wraps a single already-built term (typically an And/Or
// combination) in Not, without re-flattening it as a candidate.
func (c *Context) Negate(t *Term) *Term {
	key := fmt.Sprintf("neg:%d", t.id)
	if existing, ok := c.multi[key]; ok {
		return existing
	}
	neg := &Term{id: c.alloc(), kind: KindNeg, op: Not, kids: []*Term{t}}
	c.multi[key] = neg
	return neg
}

// CreateVarAssignment builds the atom "key op val", used to turn a
// model binding into a literal (as_literal in the original solver).
func (c *Context) CreateVarAssignment(op Operator, key, val *Term) (*Term, error) {
	return c.CreateBinaryTerm(op, key, val)
}

// NormalizeCandidate sorts and deduplicates lits into canonical
// Candidate form (ID-ascending, no repeats) so that set-equal
// candidates compare equal as slices.
func NormalizeCandidate(lits []Literal) Candidate {
	seen := make(map[*Term]struct{}, len(lits))
	out := make(Candidate, 0, len(lits))
	for _, l := range lits {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Union returns the normalized union of a and b.
func Union(a, b Candidate) Candidate {
	merged := make([]Literal, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return NormalizeCandidate(merged)
}
