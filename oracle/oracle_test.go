package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rseabduce/abduce/model"
	"github.com/rseabduce/abduce/stats"
	"github.com/rseabduce/abduce/term"
)

func TestParseDirectivesBucketsAndNormalizesLegacySyntax(t *testing.T) {
	lines := []string{
		"# a comment",
		"",
		"+0x4005c0 reach",
		"-0x4005d4 cut",
		"0x400600 assume eax = 0x1",
	}
	ds, err := ParseDirectives(lines)
	assert.NoError(t, err)
	assert.Len(t, ds.Positive, 1)
	assert.Equal(t, DirReach, ds.Positive[0].Kind)
	assert.Equal(t, uint64(0x4005c0), ds.Positive[0].Addr)

	assert.Len(t, ds.Negative, 1)
	assert.Equal(t, DirCut, ds.Negative[0].Kind)

	assert.Len(t, ds.All, 1)
	assert.Equal(t, DirAssume, ds.All[0].Kind)
	assert.Equal(t, "eax = 0x1", ds.All[0].Expr)
}

func TestFullyAssumedAddrs(t *testing.T) {
	ds, err := ParseDirectives([]string{"at 0x400600 assume eax = 0x1"})
	assert.NoError(t, err)
	addrs := ds.FullyAssumedAddrs()
	_, ok := addrs[0x400600]
	assert.True(t, ok)
}

func TestParseLogGoalUnreachable(t *testing.T) {
	parsed := ParseLog("some banner\nGoal unreachable.\n")
	assert.True(t, parsed.GoalUnreachable)
	assert.Empty(t, parsed.Models)
}

func TestParseLogModelAndLeaksAndStatus(t *testing.T) {
	raw := "Model @ 0x4005c0:\n" +
		"eax!3: #x0000002a\n" +
		"from_file: 0x1\n" +
		"\n" +
		"Instruction 0x4005e0 has secret-dependent leak\n" +
		"Program status is: insecure\n"
	parsed := ParseLog(raw)
	if assert.Len(t, parsed.Models, 1) {
		assert.Equal(t, "0x0000002a", parsed.Models[0]["eax"])
		_, hasFromFile := parsed.Models[0]["from_file"]
		assert.False(t, hasFromFile)
	}
	if assert.Len(t, parsed.Leaks, 1) {
		assert.Equal(t, uint64(0x4005e0), parsed.Leaks[0].Addr)
		assert.Equal(t, "secret-dependent", parsed.Leaks[0].Kind)
	}
	if assert.NotNil(t, parsed.CTStatus) {
		assert.Equal(t, Insecure, *parsed.CTStatus)
	}
}

func TestGoalsResultSufficientAndInconsistent(t *testing.T) {
	r := GoalsResult{NegStatus: Unreachable, PosStatus: Reachable}
	assert.True(t, r.Sufficient())

	r2 := GoalsResult{NegStatus: Unreachable, PosStatus: Unknown}
	assert.True(t, r2.LocallyInconsistent())
	assert.False(t, r2.Sufficient())

	r3 := GoalsResult{NegStatus: Unreachable, PosStatus: Unreachable}
	assert.False(t, r3.Sufficient())
	assert.True(t, r3.LocallyInconsistent())
}

func TestScriptBuilderRendersMemoryAndDirectives(t *testing.T) {
	sb := newScriptBuilder(0x400000, []MemoryRule{{Addr: 0x601000, Size: 4}})
	sb.addDirective(Directive{Kind: DirReach, Addr: 0x4005c0, PrintModel: true})
	sb.addDirective(Directive{Kind: DirAssume, Addr: 0x400600, Expr: "eax = 0x1"})
	out := sb.render()
	assert.Contains(t, out, "starting from 0x400000")
	assert.Contains(t, out, "@[0x601000,4] := from_file")
	assert.Contains(t, out, "reach 0x4005c0 then print model")
	assert.Contains(t, out, "at 0x400600 assume eax = 0x1")
}

func TestMemoryRuleNondetOverlay(t *testing.T) {
	m := MemoryRule{Addr: 0x601000, Size: 4, Nondet: true, AliasOf: "dvar0<32>"}
	out := m.String()
	assert.Contains(t, out, "dvar0<32> := nondet")
	assert.Contains(t, out, "@[0x601000,4] := dvar0<32>")
}

func TestNormalizeModelKeyDropsInternalsAndSSATag(t *testing.T) {
	assert.Equal(t, "", normalizeModelKey("from_file"))
	assert.Equal(t, "", normalizeModelKey("bs_unknown1_for_eax"))
	assert.Equal(t, "eax", normalizeModelKey("eax!12"))
	assert.Equal(t, "0x601000", normalizeModelKey("#x601000"))
}

func TestBindingsNonMeta(t *testing.T) {
	b := model.Bindings{"eax": "0x1", model.ControlledKey: "1", model.DefaultKey: "0x0"}
	nm := b.NonMeta()
	assert.Len(t, nm, 1)
	assert.Equal(t, "0x1", nm["eax"])
}

func TestComposeWordFromBytesFoldsLittleEndian(t *testing.T) {
	m := model.Bindings{
		"@[0x601000,1]": "0x78",
		"@[0x601001,1]": "0x56",
		"@[0x601002,1]": "0x34",
		"@[0x601003,1]": "0x12",
	}
	word, ok := composeWordFromBytes(m, 0x601000, 4)
	assert.True(t, ok)
	assert.Equal(t, "0x12345678", word)
}

func TestComposeWordFromBytesFailsOnMissingByte(t *testing.T) {
	m := model.Bindings{
		"@[0x601000,1]": "0x78",
		"@[0x601002,1]": "0x34",
		"@[0x601003,1]": "0x12",
	}
	_, ok := composeWordFromBytes(m, 0x601000, 4)
	assert.False(t, ok)
}

func TestSanitizeModelComposesCoveringWordFromByteModel(t *testing.T) {
	ctx := term.NewContext()
	word, err := ctx.DeclareVar("0x601000:4", 0)
	assert.NoError(t, err)
	assert.NotNil(t, word)

	b := NewBinsec(Config{}, ctx, stats.New(nil), nil)
	out := b.sanitizeModel(model.Bindings{
		"@[0x601000,1]": "0x78",
		"@[0x601001,1]": "0x56",
		"@[0x601002,1]": "0x34",
		"@[0x601003,1]": "0x12",
		model.DefaultKey: "0x0",
	})
	assert.Equal(t, "0x12345678", out["@[0x601000,4]"])
	_, hasDefault := out[model.DefaultKey]
	assert.False(t, hasDefault)
}

func TestSanitizeModelLeavesWordUnsetWhenByteMissing(t *testing.T) {
	ctx := term.NewContext()
	_, err := ctx.DeclareVar("0x601000:4", 0)
	assert.NoError(t, err)

	b := NewBinsec(Config{}, ctx, stats.New(nil), nil)
	out := b.sanitizeModel(model.Bindings{
		"@[0x601000,1]": "0x78",
	})
	_, hasWord := out["@[0x601000,4]"]
	assert.False(t, hasWord)
}
