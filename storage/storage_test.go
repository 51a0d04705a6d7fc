package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rseabduce/abduce/storage"
	"github.com/rseabduce/abduce/term"
)

func TestStoreDropsSupersetsAndRejectsRedundant(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c3, _ := ctx.DeclareConst("0x3")
	c4, _ := ctx.DeclareConst("0x4")
	a, _ := ctx.CreateBinaryTerm(term.Equal, v, c3)
	b, _ := ctx.CreateBinaryTerm(term.Equal, v, c4)

	big := term.NormalizeCandidate([]term.Literal{a, b})
	small := term.NormalizeCandidate([]term.Literal{a})

	tbl := storage.New(storage.Fast)
	require.True(t, tbl.Store(big))
	require.Equal(t, 1, tbl.Len())

	// Inserting a subset (weaker/more general) candidate must drop
	// the previously stored superset.
	require.True(t, tbl.Store(small))
	require.Equal(t, 1, tbl.Len())
	require.True(t, term.EqualCandidate(tbl.Solutions()[0], small))

	// Re-inserting a superset of what's already stored must be
	// rejected as redundant.
	require.False(t, tbl.Store(big))
	require.Equal(t, 1, tbl.Len())
}

func TestAntichainInvariant(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c1, _ := ctx.DeclareConst("0x1")
	c2, _ := ctx.DeclareConst("0x2")
	a, _ := ctx.CreateBinaryTerm(term.Equal, v, c1)
	b, _ := ctx.CreateBinaryTerm(term.Equal, v, c2)

	tbl := storage.New(storage.Fast)
	tbl.Store(term.NormalizeCandidate([]term.Literal{a}))
	tbl.Store(term.NormalizeCandidate([]term.Literal{b}))
	require.Equal(t, 2, tbl.Len(), "two incomparable singleton candidates must both survive")

	sols := tbl.Solutions()
	for i := range sols {
		for j := range sols {
			if i == j {
				continue
			}
			require.False(t, term.Subset(sols[i], sols[j]) && len(sols[i]) < len(sols[j]),
				"antichain invariant violated: a strict subset pair was retained")
		}
	}
}

func TestUnionAcrossNecessarySet(t *testing.T) {
	ctx := term.NewContext()
	v, _ := ctx.DeclareVar("0x1:4", 0)
	c1, _ := ctx.DeclareConst("0x1")
	c2, _ := ctx.DeclareConst("0x2")
	a, _ := ctx.CreateBinaryTerm(term.Equal, v, c1)
	b, _ := ctx.CreateBinaryTerm(term.Equal, v, c2)

	tbl := storage.New(storage.Exact)
	tbl.Store(term.NormalizeCandidate([]term.Literal{a}))
	tbl.Store(term.NormalizeCandidate([]term.Literal{b}))

	union := tbl.Union()
	require.Len(t, union, 2)
}
