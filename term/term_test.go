package term_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rseabduce/abduce/term"
)

func TestDeclareVarInterning(t *testing.T) {
	ctx := term.NewContext()

	v1, err := ctx.DeclareVar("0x080e3f4c:4", 0)
	require.NoError(t, err)
	v2, err := ctx.DeclareVar("0x080e3f4c:4", 0)
	require.NoError(t, err)
	require.Same(t, v1, v2, "declaring the same memory variable twice must intern to the same pointer")
	require.Equal(t, uint(32), v1.Width())
	require.Equal(t, "@[0x80e3f4c,4]", v1.String())

	bare, err := ctx.DeclareVar("0x080e3f4c", 0)
	require.NoError(t, err)
	require.Same(t, v1, bare, "a bare hex address must default to a 4-byte word and coincide with the explicit form")

	reg, err := ctx.DeclareVar("EAX", 0)
	require.NoError(t, err)
	require.Equal(t, "EAX<32>", reg.String())
}

func TestDeclareConstWidth(t *testing.T) {
	ctx := term.NewContext()
	c, err := ctx.DeclareConst("0x3")
	require.NoError(t, err)
	require.Equal(t, uint(4), c.Width())
	require.Equal(t, "0x3", c.String())

	bin, err := ctx.DeclareConst("0b101")
	require.NoError(t, err)
	require.Equal(t, uint(3), bin.Width())
	require.Equal(t, "0b101", bin.String())
}

func TestCreateBinaryTermWidthReconciliation(t *testing.T) {
	ctx := term.NewContext()
	v, err := ctx.DeclareVar("0x08000000:4", 0)
	require.NoError(t, err)
	c, err := ctx.DeclareConst("0x3")
	require.NoError(t, err)

	atom, err := ctx.CreateBinaryTerm(term.Equal, v, c)
	require.NoError(t, err)

	a, b := atom.Operands()
	require.Equal(t, v.Width(), a.Width())
	require.Equal(t, v.Width(), b.Width())
	require.Equal(t, "@[0x8000000,4] = 0x00000003", atom.String())

	// Width safety: no emitted literal should carry mismatched widths.
	require.Equal(t, a.Width(), b.Width())
}

func TestCreateBinaryTermSymmetricCanonicalOrder(t *testing.T) {
	ctx := term.NewContext()
	x, _ := ctx.DeclareVar("0x1:4", 0)
	y, _ := ctx.DeclareVar("0x2:4", 0)

	xy, err := ctx.CreateBinaryTerm(term.Equal, x, y)
	require.NoError(t, err)
	yx, err := ctx.CreateBinaryTerm(term.Equal, y, x)
	require.NoError(t, err)
	require.Same(t, xy, yx, "x=y and y=x must intern to the same term")
}

func TestCreateBinaryTermIrreconcilableWidths(t *testing.T) {
	ctx := term.NewContext()
	narrow, _ := ctx.DeclareVar("AL", 8)
	wide, _ := ctx.DeclareVar("EAX", 32)

	_, err := ctx.CreateBinaryTerm(term.Equal, narrow, wide)
	require.Error(t, err)
}

func TestCreateMultiTermFlattensAndDedupes(t *testing.T) {
	ctx := term.NewContext()
	x, _ := ctx.DeclareVar("0x1:4", 0)
	y, _ := ctx.DeclareVar("0x2:4", 0)
	c3, _ := ctx.DeclareConst("0x3")
	c4, _ := ctx.DeclareConst("0x4")

	a, _ := ctx.CreateBinaryTerm(term.Equal, x, c3)
	b, _ := ctx.CreateBinaryTerm(term.Equal, y, c4)

	inner := ctx.CreateMultiTerm(term.And, []*term.Term{a, b})
	outer := ctx.CreateMultiTerm(term.And, []*term.Term{inner, a})

	require.Len(t, outer.Children(), 2, "flattening nested And and deduping the repeated literal must leave exactly 2 children")
}

func TestCandidateStringing(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x08000000:4", 0)
	c, _ := ctx.DeclareConst("0x3")
	atom, err := ctx.CreateBinaryTerm(term.Equal, v, c)
	require.NoError(t, err)

	cand := term.NormalizeCandidate([]term.Literal{atom})
	require.Equal(t, "{@[0x8000000,4] = 0x00000003}", cand.String())

	empty := term.NormalizeCandidate(nil)
	require.Equal(t, "true", empty.String())
	require.Equal(t, "true", empty.Clause())
}

func TestSubset(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c3, _ := ctx.DeclareConst("0x3")
	c4, _ := ctx.DeclareConst("0x4")
	a, _ := ctx.CreateBinaryTerm(term.Equal, v, c3)
	b, _ := ctx.CreateBinaryTerm(term.Equal, v, c4)

	small := term.NormalizeCandidate([]term.Literal{a})
	big := term.NormalizeCandidate([]term.Literal{a, b})

	require.True(t, term.Subset(small, big))
	require.False(t, term.Subset(big, small))
}
