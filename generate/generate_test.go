package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rseabduce/abduce/abduceconfig"
	"github.com/rseabduce/abduce/term"
)

func TestCombinationsDepthZeroYieldsEmptyOnly(t *testing.T) {
	items := []term.Literal{}
	count := 0
	combinations(items, 0, func(c []term.Literal) bool {
		count++
		assert.Empty(t, c)
		return true
	})
	assert.Equal(t, 1, count)
}

func TestCombinationsEnumeratesAllSubsets(t *testing.T) {
	ctx := term.NewContext()
	a, _ := ctx.DeclareVar("eax", 32)
	b, _ := ctx.DeclareVar("ebx", 32)
	c, _ := ctx.DeclareVar("ecx", 32)
	items := []term.Literal{a, b, c}
	var seen [][]term.Literal
	combinations(items, 2, func(combo []term.Literal) bool {
		cp := append([]term.Literal(nil), combo...)
		seen = append(seen, cp)
		return true
	})
	assert.Len(t, seen, 3)
}

func TestPermutationsOrderedPairs(t *testing.T) {
	ctx := term.NewContext()
	a, _ := ctx.DeclareVar("eax", 32)
	b, _ := ctx.DeclareVar("ebx", 32)
	items := []term.Literal{a, b}
	var seen [][]term.Literal
	permutations(items, 2, func(combo []term.Literal) bool {
		seen = append(seen, append([]term.Literal(nil), combo...))
		return true
	})
	assert.Len(t, seen, 2)
}

func TestStaticGeneratorParsesLiteralsAndEnumeratesByDepth(t *testing.T) {
	ctx := term.NewContext()
	cfg := abduceconfig.DefaultConfig()
	depth := 2
	cfg.MaxDepth = &depth
	src := strings.NewReader("eax<32> = 0x1\nebx<32> = 0x2\n")
	g, err := NewStaticGenerator(cfg, src, ctx)
	assert.NoError(t, err)
	assert.Len(t, g.lits, 2)

	var all []term.Candidate
	for cand := range g.Generate() {
		all = append(all, cand)
	}
	// depth 0, 1x2, 1x2-choose-2 = 1 + 2 + 1 = 4
	assert.Len(t, all, 4)
}

func TestStaticGeneratorIsSignificant(t *testing.T) {
	ctx := term.NewContext()
	cfg := abduceconfig.DefaultConfig()
	src := strings.NewReader("eax<32> = 0x1\n")
	g, err := NewStaticGenerator(cfg, src, ctx)
	assert.NoError(t, err)
	assert.True(t, g.IsSignificant("eax<32>"))
	assert.False(t, g.IsSignificant("nope"))
}

func TestChunkRegionCapsAtMaxBytesInFourByteWords(t *testing.T) {
	chunks := chunkRegion(InputRegion{Base: 0x1000, Size: 70}, 32)
	assert.Len(t, chunks, 8)
	assert.Equal(t, uint(4), chunks[0].Size)
	assert.Equal(t, uint64(0x1004), chunks[1].Base)
	assert.Equal(t, uint64(0x101c), chunks[7].Base)
}

func TestFormatConstForSize(t *testing.T) {
	assert.Equal(t, "0x00000000", formatConstForSize(0, 32))
	assert.Equal(t, "0xffffffff", formatConstForSize(-1, 32))
}
