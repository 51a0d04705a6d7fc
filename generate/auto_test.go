package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/rseabduce/abduce/abduceconfig"
	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/oraclemock"
	"github.com/rseabduce/abduce/stats"
	"github.com/rseabduce/abduce/term"
)

func TestAutoGeneratorSeedsExplicitVariablesAndYieldsEmptyFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	ad.EXPECT().FullyAssumed(gomock.Any()).Return(false).AnyTimes()

	ctx := term.NewContext()
	cfg := abduceconfig.DefaultConfig()
	depth := 1
	cfg.MaxDepth = &depth

	g, err := NewAutoGenerator(cfg, ctx, ad, stats.New(nil), corelog.NewNoOp(), []string{"variable: eax"}, nil)
	assert.NoError(t, err)

	ch := g.Generate()
	first := <-ch
	assert.Empty(t, first)
	for range ch {
		// drain
	}
}

func TestAutoGeneratorSeedsCanonicalRegionsWhenNoExplicitVars(t *testing.T) {
	ctrl := gomock.NewController(t)
	ad := oraclemock.NewMockAdapter(ctrl)
	ad.EXPECT().FullyAssumed(gomock.Any()).Return(false).AnyTimes()

	ctx := term.NewContext()
	cfg := abduceconfig.DefaultConfig()
	depth := 0
	cfg.MaxDepth = &depth

	g, err := NewAutoGenerator(cfg, ctx, ad, stats.New(nil), corelog.NewNoOp(), nil, []InputRegion{{Base: 0x601000, Size: 4}})
	assert.NoError(t, err)
	assert.NotEmpty(t, g.rvars)
}

func TestVarSortKeyOrdersWordsBeforeBytesBeforeConsts(t *testing.T) {
	ctx := term.NewContext()
	word, _ := ctx.DeclareVar("0x601000:4", 0)
	reg, _ := ctx.DeclareVar("al", 8)
	c := ctx.DeclareConstWidth(1, 8)
	assert.True(t, varSortKey(word) < varSortKey(reg))
	assert.True(t, varSortKey(reg) < varSortKey(c))
}
