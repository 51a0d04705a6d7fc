package oracle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rseabduce/abduce/abducterr"
)

// DirectiveKind tags the shape of a parsed directives-file line.
type DirectiveKind int

const (
	// DirReach is "reach 0xADDR [then print model]".
	DirReach DirectiveKind = iota
	// DirCut is "cut at 0xADDR".
	DirCut
	// DirAssume is "at 0xADDR assume <expr>".
	DirAssume
)

// Directive is one normalized directives-file line.
type Directive struct {
	Kind       DirectiveKind
	Addr       uint64
	Expr       string
	PrintModel bool
}

var (
	legacyReachRe  = regexp.MustCompile(`^(0x[0-9a-fA-F]+)\s+reach\s*$`)
	legacyCutRe    = regexp.MustCompile(`^(0x[0-9a-fA-F]+)\s+cut\s*$`)
	legacyAssumeRe = regexp.MustCompile(`^(0x[0-9a-fA-F]+)\s+assume\s+(.+)$`)
	sseReachRe     = regexp.MustCompile(`^reach\s+(0x[0-9a-fA-F]+)(\s+then\s+print\s+model)?\s*$`)
	sseCutRe       = regexp.MustCompile(`^cut\s+at\s+(0x[0-9a-fA-F]+)\s*$`)
	sseAssumeRe    = regexp.MustCompile(`^at\s+(0x[0-9a-fA-F]+)\s+assume\s+(.+)$`)
)

// normalizeDirectiveLine rewrites a legacy "0xADDR reach"-shaped line
// into the SSE-style syntax the script writer and parser both expect,
// per §6's directives file grammar.
func normalizeDirectiveLine(line string) string {
	if m := legacyReachRe.FindStringSubmatch(line); m != nil {
		return "reach " + m[1]
	}
	if m := legacyCutRe.FindStringSubmatch(line); m != nil {
		return "cut at " + m[1]
	}
	if m := legacyAssumeRe.FindStringSubmatch(line); m != nil {
		return "at " + m[1] + " assume " + m[2]
	}
	return line
}

// parseDirectiveLine parses one already-normalized (SSE-syntax) line.
func parseDirectiveLine(line string) (Directive, error) {
	if m := sseReachRe.FindStringSubmatch(line); m != nil {
		addr, err := strconv.ParseUint(m[1][2:], 16, 64)
		if err != nil {
			return Directive{}, abducterr.Wrap(abducterr.Configuration, err, "parse reach address")
		}
		return Directive{Kind: DirReach, Addr: addr, PrintModel: m[2] != ""}, nil
	}
	if m := sseCutRe.FindStringSubmatch(line); m != nil {
		addr, err := strconv.ParseUint(m[1][2:], 16, 64)
		if err != nil {
			return Directive{}, abducterr.Wrap(abducterr.Configuration, err, "parse cut address")
		}
		return Directive{Kind: DirCut, Addr: addr}, nil
	}
	if m := sseAssumeRe.FindStringSubmatch(line); m != nil {
		addr, err := strconv.ParseUint(m[1][2:], 16, 64)
		if err != nil {
			return Directive{}, abducterr.Wrap(abducterr.Configuration, err, "parse assume address")
		}
		return Directive{Kind: DirAssume, Addr: addr, Expr: m[2]}, nil
	}
	return Directive{}, abducterr.New(abducterr.Configuration, "unrecognized directive line: "+line)
}

// DirectiveSet buckets parsed directives into the three sets the
// adapter owns: all (applies to every query), positive (+reach goal),
// negative (−reach goal).
type DirectiveSet struct {
	All      []Directive
	Positive []Directive
	Negative []Directive
}

// ParseDirectives parses a directives file's lines, normalizing
// legacy syntax and bucketing by the optional +/− prefix.
func ParseDirectives(lines []string) (DirectiveSet, error) {
	var ds DirectiveSet
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		bucket := &ds.All
		switch {
		case strings.HasPrefix(line, "+"):
			bucket = &ds.Positive
			line = strings.TrimSpace(line[1:])
		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "−"):
			bucket = &ds.Negative
			line = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "-"), "−"))
		}
		line = normalizeDirectiveLine(line)
		d, err := parseDirectiveLine(line)
		if err != nil {
			return DirectiveSet{}, err
		}
		*bucket = append(*bucket, d)
	}
	return ds, nil
}

// FullyAssumedAddrs returns the set of addresses carrying an
// unconditional "at ADDR assume ..." directive in All, used by
// fully_assumed to exclude those variables from candidate generation.
func (ds DirectiveSet) FullyAssumedAddrs() map[uint64]struct{} {
	out := make(map[uint64]struct{})
	for _, d := range ds.All {
		if d.Kind == DirAssume {
			out[d.Addr] = struct{}{}
		}
	}
	return out
}
