package oracle

import (
	"fmt"
	"strings"
)

// MemoryRule is one memory-overlay line: a file-backed region, or (in
// robust mode) a non-deterministic overlay for a controlled cell.
type MemoryRule struct {
	Addr    uint64
	Size    uint
	Nondet  bool   // true for robust-mode overlay cells
	AliasOf string // for robust mode: the synthetic dvarN<size> name
}

func (m MemoryRule) String() string {
	if m.Nondet {
		return fmt.Sprintf("%s := nondet\n@[0x%x,%d] := %s", m.AliasOf, m.Addr, m.Size, m.AliasOf)
	}
	return fmt.Sprintf("@[0x%x,%d] := from_file", m.Addr, m.Size)
}

// scriptBuilder composes the transient oracle script text: a base
// header, a memory section, and a directives tail (§6 script format).
type scriptBuilder struct {
	entry      uint64
	memory     []MemoryRule
	directives []Directive
	timeout    int // seconds, 0 means unset
}

func newScriptBuilder(entry uint64, memory []MemoryRule) *scriptBuilder {
	return &scriptBuilder{entry: entry, memory: memory}
}

func (b *scriptBuilder) addDirective(d Directive) { b.directives = append(b.directives, d) }

func (b *scriptBuilder) render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "starting from 0x%x\n", b.entry)
	for _, m := range b.memory {
		sb.WriteString(m.String())
		sb.WriteString("\n")
	}
	for _, d := range b.directives {
		switch d.Kind {
		case DirReach:
			if d.PrintModel {
				fmt.Fprintf(&sb, "reach 0x%x then print model\n", d.Addr)
			} else {
				fmt.Fprintf(&sb, "reach 0x%x\n", d.Addr)
			}
		case DirCut:
			fmt.Fprintf(&sb, "cut at 0x%x\n", d.Addr)
		case DirAssume:
			fmt.Fprintf(&sb, "at 0x%x assume %s\n", d.Addr, d.Expr)
		}
	}
	return sb.String()
}

// assumeDirective builds "at anchor assume expr", the form every
// query augments its directive set with (§4.2 assumption injection).
func assumeDirective(anchor uint64, expr string) Directive {
	return Directive{Kind: DirAssume, Addr: anchor, Expr: expr}
}

// withPrintModel returns a copy of reach directives with PrintModel
// forced true, matching _check_dgoal_reachable_util's "ensure reach
// directives have then print model".
func withPrintModel(ds []Directive) []Directive {
	out := make([]Directive, len(ds))
	for i, d := range ds {
		if d.Kind == DirReach {
			d.PrintModel = true
		}
		out[i] = d
	}
	return out
}
