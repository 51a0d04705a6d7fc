package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseInputRegionsParsesHexAddrAndDecimalSize(t *testing.T) {
	regions, err := parseInputRegions([]string{"0x601000:4", "0x602000:8"})
	assert.NoError(t, err)
	assert.Len(t, regions, 2)
	assert.Equal(t, uint64(0x601000), regions[0].Base)
	assert.Equal(t, uint(4), regions[0].Size)
	assert.Equal(t, uint64(0x602000), regions[1].Base)
	assert.Equal(t, uint(8), regions[1].Size)
}

func TestParseInputRegionsRejectsMalformedEntry(t *testing.T) {
	_, err := parseInputRegions([]string{"not-a-region"})
	assert.Error(t, err)
}

func TestParseMemoryFileSkipsBlankAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.txt")
	assert.NoError(t, os.WriteFile(path, []byte("# comment\n\n0x601000 4\n0x602000 8\n"), 0o644))

	rules, err := parseMemoryFile(path)
	assert.NoError(t, err)
	assert.Len(t, rules, 2)
	assert.Equal(t, uint64(0x601000), rules[0].Addr)
	assert.Equal(t, uint(4), rules[0].Size)
}

func TestParseMemoryFileEmptyPathYieldsNoRules(t *testing.T) {
	rules, err := parseMemoryFile("")
	assert.NoError(t, err)
	assert.Nil(t, rules)
}

func TestRankingModeFlagRejectsUnknownValue(t *testing.T) {
	assert.Equal(t, "branch-first", rankingModeFlag("branch-first"))
	assert.Equal(t, "size-complexity", rankingModeFlag("size-complexity"))
	assert.Equal(t, "", rankingModeFlag("default"))
	assert.Equal(t, "", rankingModeFlag("bogus"))
}

func TestResolveConfigAppliesPresetAndFlagOverrides(t *testing.T) {
	cmd := runCmd()
	assert.NoError(t, cmd.Flags().Set("preset", "fast"))
	assert.NoError(t, cmd.Flags().Set("timeout", "7s"))
	assert.NoError(t, cmd.Flags().Set("binary", "/bin/target"))

	cfg, err := resolveConfig(cmd, "fast", "")
	assert.NoError(t, err)
	assert.Equal(t, "/bin/target", cfg.BinaryPath)
	assert.Equal(t, 7*time.Second, cfg.Timeout)
	assert.Equal(t, 0, cfg.CTUnknownRetries) // untouched fast-preset value survives
}
