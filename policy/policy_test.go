package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/oracle"
	"github.com/rseabduce/abduce/oraclemock"
	"github.com/rseabduce/abduce/term"
)

func memCandidate(t *testing.T, ctx *term.Context, addr uint64, size uint, op term.Operator, constLit string) term.Candidate {
	t.Helper()
	v, err := ctx.DeclareVar(hexAddr(addr)+":"+itoa(size), 0)
	assert.NoError(t, err)
	c, err := ctx.DeclareConst(constLit)
	assert.NoError(t, err)
	lit, err := ctx.CreateBinaryTerm(op, v, c)
	assert.NoError(t, err)
	return term.Candidate{lit}
}

func hexAddr(a uint64) string {
	return "0x" + itoaHex(a)
}

func itoaHex(v uint64) string {
	if v == 0 {
		return "0"
	}
	const digits = "0123456789abcdef"
	var buf [16]byte
	pos := len(buf)
	for v > 0 {
		pos--
		buf[pos] = digits[v%16]
		v /= 16
	}
	return string(buf[pos:])
}

func itoa(v uint) string { return strconv(int(v)) }

func TestCompactPolicyConditionCollapsesLowerAndEqual(t *testing.T) {
	ctx := term.NewContext()
	lower := memCandidate(t, ctx, 0x601000, 4, term.Lower, "0x0000000a")
	equal := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x0000000a")

	expr := compactPolicyCondition([]term.Candidate{lower, equal})
	assert.Contains(t, expr, "<=s")
}

func TestOrderSolutionsSizeComplexityDefault(t *testing.T) {
	ctx := term.NewContext()
	small := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x00000001")
	v, _ := ctx.DeclareVar("eax", 32)
	c, _ := ctx.DeclareConst("0x2")
	lit2, _ := ctx.CreateBinaryTerm(term.Equal, v, c)
	big := append(term.Candidate{}, small[0], lit2)

	ordered, reason := OrderSolutions([]term.Candidate{big, small}, Options{})
	assert.Equal(t, "size-complexity", reason.Mode)
	assert.True(t, len(ordered[0]) <= len(ordered[1]))
}

func TestSemanticPostFilterDropsRedundantSolution(t *testing.T) {
	ctx := term.NewContext()
	a := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x00000001")
	b := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x00000002")

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	// removing b alone is still necessary -> drop it; resulting singleton {a} is itself necessary.
	ad.EXPECT().CheckNecessity([]term.Candidate{a}).Return(true, nil).AnyTimes()
	ad.EXPECT().CheckNecessity([]term.Candidate{b}).Return(false, nil).AnyTimes()

	out, err := SemanticPostFilter(ad, corelog.NewNoOp(), []term.Candidate{a, b})
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, a.String(), out[0].String())
}

func TestBuildSemanticsAssignsPolicyIDsAndPairwise(t *testing.T) {
	ctx := term.NewContext()
	a := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x00000001")
	b := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x00000002")

	checkSat := func(term.Candidate) (bool, error) { return false, nil }
	sem := BuildSemantics([]term.Candidate{a, b}, checkSat)
	assert.Equal(t, []string{"P1", "P2"}, sem.PolicyIDs)
	assert.Len(t, sem.PairwiseCompatibility, 1)
	assert.False(t, sem.PairwiseCompatibility[0].CompatibleWithAnd)
}

func TestDetectPrimaryBranchKeyRequiresMultipleSolutions(t *testing.T) {
	ctx := term.NewContext()
	lower := memCandidate(t, ctx, 0x601000, 4, term.Lower, "0x0000000a")
	equal := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x0000000a")

	v, k, ok := detectPrimaryBranchKey([]term.Candidate{lower, equal})
	assert.True(t, ok)
	assert.Equal(t, "@[0x601000,4]", v)
	assert.Equal(t, "0x0000000a", k)
}

func TestValidateCTPolicySkippedOutsideCTMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	v, err := ValidateCTPolicy(ad, false, term.Candidate{})
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestValidateCTPolicyRunsBaselineAndSelected(t *testing.T) {
	ctx := term.NewContext()
	sel := memCandidate(t, ctx, 0x601000, 4, term.Equal, "0x00000001")

	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	ad.EXPECT().EvaluateCTPolicy(term.Candidate{}).Return(oracle.CTResult{Status: oracle.Secure}, nil)
	ad.EXPECT().EvaluateCTPolicy(sel).Return(oracle.CTResult{Status: oracle.Insecure}, nil)

	res, err := ValidateCTPolicy(ad, true, sel)
	assert.NoError(t, err)
	assert.Equal(t, oracle.Secure, res.Baseline.Status)
	assert.Equal(t, oracle.Insecure, res.Selected.Status)
}
