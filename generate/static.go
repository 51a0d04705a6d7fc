package generate

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rseabduce/abduce/abduceconfig"
	"github.com/rseabduce/abduce/model"
	"github.com/rseabduce/abduce/term"
)

// StaticGenerator enumerates growing-depth combinations of a fixed
// literal pool parsed once from a source file, grounded on the
// original's SimpleCandidateGenerator. It ignores example and
// counterexample feedback entirely.
type StaticGenerator struct {
	cfg     abduceconfig.Config
	lits    []term.Literal
	selems  map[string]struct{}
	loaded  bool
	restart bool
}

// NewStaticGenerator constructs a generator, parsing src immediately,
// one literal per non-blank line.
func NewStaticGenerator(cfg abduceconfig.Config, src io.Reader, ctx *term.Context) (*StaticGenerator, error) {
	g := &StaticGenerator{cfg: cfg, selems: map[string]struct{}{}}
	if err := g.load(src, ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *StaticGenerator) load(src io.Reader, ctx *term.Context) error {
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, elem := range strings.Fields(line) {
			g.selems[elem] = struct{}{}
		}
		if lit, ok := parseLiteralLine(line, ctx); ok {
			g.lits = append(g.lits, lit)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	g.loaded = true
	return nil
}

// parseLiteralLine parses one "lhs OP rhs" literal line (e.g.
// "eax<32> = 0x1" or "@[0x601000,4] <> eax<32>") into an interned
// atom. Lines that aren't relational atoms (comments, bare var/const
// seeds) are skipped; the significance index above still sees their
// tokens regardless.
func parseLiteralLine(line string, ctx *term.Context) (term.Literal, bool) {
	for opstr, op := range map[string]term.Operator{" <> ": term.Distinct, " <s ": term.Lower, " = ": term.Equal} {
		idx := strings.Index(line, opstr)
		if idx < 0 {
			continue
		}
		lhs := strings.TrimSpace(line[:idx])
		rhs := strings.TrimSpace(line[idx+len(opstr):])
		a, aerr := declareOperand(lhs, ctx)
		b, berr := declareOperand(rhs, ctx)
		if aerr != nil || berr != nil {
			return nil, false
		}
		lit, err := ctx.CreateBinaryTerm(op, a, b)
		if err != nil {
			return nil, false
		}
		return lit, true
	}
	return nil, false
}

var (
	displayMemRe = regexp.MustCompile(`^@\[(0x[0-9a-fA-F]+),([0-9]+)\]$`)
	displayRegRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)<([0-9]+)>$`)
)

func declareOperand(tok string, ctx *term.Context) (*term.Term, error) {
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0b") {
		return ctx.DeclareConst(tok)
	}
	if m := displayMemRe.FindStringSubmatch(tok); m != nil {
		return ctx.DeclareVar(m[1]+":"+m[2], 0)
	}
	if m := displayRegRe.FindStringSubmatch(tok); m != nil {
		w, _ := strconv.ParseUint(m[2], 10, 32)
		return ctx.DeclareVar(m[1], uint(w))
	}
	return ctx.DeclareVar(tok, 0)
}

func (g *StaticGenerator) SetExampleSet(*model.Set)       {}
func (g *StaticGenerator) SetCounterexampleSet(*model.Set) {}
func (g *StaticGenerator) SetNecessaryCoreSet(map[term.Literal]struct{}) {}
func (g *StaticGenerator) RestartLocalGeneration()         { g.restart = true }

// IsSignificant reports whether elem (or its byte-1 memory-cell form)
// appears in the loaded literal pool, matching is_significant.
func (g *StaticGenerator) IsSignificant(elem string) bool {
	if _, ok := g.selems["@["+elem+",1]"]; ok {
		return true
	}
	_, ok := g.selems[elem]
	return ok
}

// Generate streams combinations of the fixed literal pool up to
// cfg.MaxDepth (inclusive), or the full pool size if unset.
func (g *StaticGenerator) Generate() <-chan term.Candidate {
	out := make(chan term.Candidate)
	go func() {
		defer close(out)
		maxDepth := len(g.lits)
		if g.cfg.MaxDepth != nil {
			maxDepth = *g.cfg.MaxDepth
		}
		for depth := 0; depth <= maxDepth; depth++ {
			combinations(g.lits, depth, func(combo []term.Literal) bool {
				out <- term.NormalizeCandidate(combo)
				return true
			})
		}
	}()
	return out
}

var _ Generator = (*StaticGenerator)(nil)
