package satenc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rseabduce/abduce/term"
	"github.com/rseabduce/abduce/term/satenc"
)

func TestCheckSatSimpleEquality(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c, _ := ctx.DeclareConst("0x3")
	atom, err := ctx.CreateBinaryTerm(term.Equal, v, c)
	require.NoError(t, err)

	cand := term.NormalizeCandidate([]term.Literal{atom})
	res, err := satenc.CheckSat(cand)
	require.NoError(t, err)
	require.True(t, res.Sat)
	require.Equal(t, uint64(3), res.Model[v])
}

func TestCheckSatUnsatOnContradiction(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c3, _ := ctx.DeclareConst("0x3")
	c4, _ := ctx.DeclareConst("0x4")

	eq, err := ctx.CreateBinaryTerm(term.Equal, v, c3)
	require.NoError(t, err)
	eq2, err := ctx.CreateBinaryTerm(term.Equal, v, c4)
	require.NoError(t, err)

	cand := term.NormalizeCandidate([]term.Literal{eq, eq2})
	res, err := satenc.CheckSat(cand)
	require.NoError(t, err)
	require.False(t, res.Sat)
}

func TestCheckConsequenceSingletonImpliesItself(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c, _ := ctx.DeclareConst("0x3")
	atom, err := ctx.CreateBinaryTerm(term.Equal, v, c)
	require.NoError(t, err)

	cand := term.NormalizeCandidate([]term.Literal{atom})
	ok, err := satenc.CheckConsequence(cand, cand)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckConsequenceEmptyRHSAlwaysHolds(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c, _ := ctx.DeclareConst("0x3")
	atom, err := ctx.CreateBinaryTerm(term.Equal, v, c)
	require.NoError(t, err)

	cand := term.NormalizeCandidate([]term.Literal{atom})
	ok, err := satenc.CheckConsequence(cand, nil)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignedLessThan(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:1", 0)
	zero, _ := ctx.DeclareConst("0x0")
	lt, err := ctx.CreateBinaryTerm(term.Lower, v, zero)
	require.NoError(t, err)

	cand := term.NormalizeCandidate([]term.Literal{lt})
	res, err := satenc.CheckSat(cand)
	require.NoError(t, err)
	require.True(t, res.Sat)
	// v must be negative (top bit set) in an 8-bit two's complement
	// encoding for v <s 0 to hold.
	require.True(t, res.Model[v]&0x80 != 0)
}
