// Copyright (C) 2024-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	luxlog "github.com/luxfi/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rseabduce/abduce/abduceconfig"
	"github.com/rseabduce/abduce/corelog"
	"github.com/rseabduce/abduce/generate"
	"github.com/rseabduce/abduce/oracle"
	"github.com/rseabduce/abduce/policy"
	"github.com/rseabduce/abduce/solve"
	"github.com/rseabduce/abduce/stats"
	"github.com/rseabduce/abduce/storage"
	"github.com/rseabduce/abduce/term"
	"github.com/rseabduce/abduce/term/satenc"
)

func runCmd() *cobra.Command {
	var (
		preset          string
		configProfile   string
		mode            string
		memoryFile      string
		inputRegionsArg []string
		json            bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the abductive search against a target binary",
		Long: `run drives the full CEGAR pipeline: it loads the target's literal
pool and directives, queries the oracle candidate by candidate, and
reports the necessary-and-sufficient policy it finds (or times out
without finding one).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, preset, configProfile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			regions, err := parseInputRegions(inputRegionsArg)
			if err != nil {
				return err
			}

			solverOpts := readSolverOptions(cmd.Flags())
			return runPipeline(cfg, mode, memoryFile, regions, json, solverOpts)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "default", "base parameter preset: default, fast, thorough")
	cmd.Flags().StringVar(&configProfile, "config", "", "YAML profile overlaid on the preset")
	cmd.Flags().StringVar(&mode, "mode", "auto", "candidate generation mode: auto, static")
	cmd.Flags().StringVar(&memoryFile, "memory", "", "memory overlay rules file (ADDR SIZE per line)")
	cmd.Flags().StringArrayVar(&inputRegionsArg, "input-region", nil, "canonical input region ADDR:SIZE (repeatable)")
	cmd.Flags().BoolVar(&json, "json", false, "emit the final report as a buffered machine-readable log instead of streaming")

	bindConfigFlags(cmd)
	return cmd
}

// bindConfigFlags exposes every abduceconfig.Config field as a CLI
// flag, following the teacher's benchmarkCmd pattern of attaching
// flags directly to the subcommand rather than a package-level
// pflag.FlagSet.
func bindConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("binary", "", "target binary path")
	f.String("engine", "binsec", "symbolic execution engine binary")
	f.String("literals", "", "literal pool file (auto mode) or fixed literal file (static mode)")
	f.String("directives", "", "directives file (reach/cut/assume lines)")
	f.String("entry", "0x0", "entry address (hex)")
	f.Duration("timeout", 10*time.Second, "per-oracle-call timeout")
	f.Int("ct-unknown-retries", 2, "CT-unknown retry budget")
	f.Float64("ct-unknown-timeout-factor", 2.0, "timeout growth factor per CT-unknown retry")
	f.Bool("with-auto-constants", true, "seed 0x00/0x01 constants automatically")
	f.Bool("with-disequalities", false, "include <> literals")
	f.Bool("with-inequalities", false, "include <s literals")
	f.Bool("no-variables-binop", false, "disable var-to-var relational literals")
	f.Bool("core-literals", true, "emit whole-variable literals (off: only the per-byte/per-bit literals of --separate-bytes/--separate-bits)")
	f.Bool("separate-bytes", false, "emit per-byte sub-variable literals")
	f.Bool("separate-bits", false, "emit per-bit sub-variable literals")
	f.Bool("input-variables-only", false, "restrict generation to the initial input-region pool")
	f.Bool("lit-ordering", false, "order literals by the number of examples satisfying them before complexity")
	f.Bool("no-prune-counterex", false, "disable counter-example pruning of candidates before they reach the oracle")
	f.Bool("no-prune-necessary", false, "disable storage/necessary-core consequence pruning of candidates before they reach the oracle")
	f.Int("dynamic-constants-per-var", 3, "max dynamically-learned constants kept per variable")
	f.Int("max-depth", 0, "maximum candidate conjunction size (0: unbounded)")
	f.Int("input-region-max-bytes", 32, "byte cap per canonical input region (chunked into 4-byte words), used when the literals declare no variable:/word: line")
	f.Bool("storage-exact", false, "use SMT-exact antichain pruning instead of syntactic subset")
	f.Int("max-solutions", 0, "stop after this many sufficient solutions (0: unbounded)")
	f.Bool("binsec-robust", false, "overlay controlled memory non-deterministically for robust reachability")
	f.Bool("ct-mode", false, "evaluate constant-time leakage instead of plain reachability")
	f.String("policy-ranking-mode", "default", "alternative ordering: default, branch-first, size-complexity")
	f.Bool("compact", false, "no effect: the final report always collapses {(x<s k),(x=k)} into {(x<=s k)} when possible")
	f.Bool("keep-temp-files", false, "keep generated oracle scripts on disk")
	f.String("work-dir", "", "directory for generated oracle scripts (default: OS temp dir)")
	f.String("log-level", "info", "debug, info, warn, error")
	f.Duration("solver-timeout", 0, "wall-clock budget for collect-until-timeout mode (0: no limit)")
	f.Bool("collect-until-timeout", false, "keep searching for alternatives after the first necessary solution")
	f.Bool("force-on-model-resort", false, "fall back to adding the counter-model as an example when a singleton negation is still reachable")
	f.Int("initial-vulnerability-examples", 0, "seed this many examples from reach-negative(true) before searching")
	f.Bool("const-detect", false, "probe every fresh variable for a necessary constant before searching")
}

// solverOptions carries the run flags that configure solve.Solver but
// have no home in abduceconfig.Config (they tune search behavior, not
// the candidate/oracle pipeline itself).
type solverOptions struct {
	solverTimeout        time.Duration
	collectUntilTimeout  bool
	forceOnModelResort   bool
	initialVulnExamples  int
	constDetect          bool
}

func readSolverOptions(f *pflag.FlagSet) solverOptions {
	var o solverOptions
	o.solverTimeout, _ = f.GetDuration("solver-timeout")
	o.collectUntilTimeout, _ = f.GetBool("collect-until-timeout")
	o.forceOnModelResort, _ = f.GetBool("force-on-model-resort")
	o.initialVulnExamples, _ = f.GetInt("initial-vulnerability-examples")
	o.constDetect, _ = f.GetBool("const-detect")
	return o
}

func resolveConfig(cmd *cobra.Command, preset, profile string) (abduceconfig.Config, error) {
	var cfg abduceconfig.Config
	switch preset {
	case "", "default":
		cfg = abduceconfig.DefaultConfig()
	case "fast":
		cfg = abduceconfig.FastConfig()
	case "thorough":
		cfg = abduceconfig.ThoroughConfig()
	default:
		return abduceconfig.Config{}, errors.Errorf("unknown preset %q", preset)
	}

	if profile != "" {
		loaded, err := abduceconfig.LoadProfile(profile, cfg)
		if err != nil {
			return abduceconfig.Config{}, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	applyString(f, "binary", &cfg.BinaryPath)
	applyString(f, "engine", &cfg.EnginePath)
	applyString(f, "literals", &cfg.Literals)
	applyString(f, "directives", &cfg.Directives)
	if f.Changed("entry") {
		s, _ := f.GetString("entry")
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
		if err != nil {
			return abduceconfig.Config{}, errors.Wrap(err, "parse --entry")
		}
		cfg.Entry = v
	}
	applyDuration(f, "timeout", &cfg.Timeout)
	applyInt(f, "ct-unknown-retries", &cfg.CTUnknownRetries)
	applyFloat(f, "ct-unknown-timeout-factor", &cfg.CTUnknownTimeoutFactor)
	applyBool(f, "with-auto-constants", &cfg.WithAutoConstants)
	applyBool(f, "with-disequalities", &cfg.WithDisequalities)
	applyBool(f, "with-inequalities", &cfg.WithInequalities)
	applyBool(f, "no-variables-binop", &cfg.NoVariablesBinop)
	applyBool(f, "core-literals", &cfg.CoreLiterals)
	applyBool(f, "separate-bytes", &cfg.SeparateBytes)
	applyBool(f, "separate-bits", &cfg.SeparateBits)
	applyBool(f, "input-variables-only", &cfg.InputVariablesOnly)
	applyBool(f, "lit-ordering", &cfg.LitOrdering)
	applyBool(f, "no-prune-counterex", &cfg.NoPruneCounterex)
	applyBool(f, "no-prune-necessary", &cfg.NoPruneNecessary)
	applyInt(f, "dynamic-constants-per-var", &cfg.DynamicConstsPerVar)
	if f.Changed("max-depth") {
		d, _ := f.GetInt("max-depth")
		cfg.MaxDepth = nil
		if d > 0 {
			cfg.MaxDepth = &d
		}
	}
	applyInt(f, "input-region-max-bytes", &cfg.InputRegionMaxBytes)
	applyBool(f, "storage-exact", &cfg.StorageExact)
	applyInt(f, "max-solutions", &cfg.MaxSolutions)
	applyBool(f, "binsec-robust", &cfg.BinsecRobust)
	applyBool(f, "ct-mode", &cfg.CTMode)
	applyString(f, "policy-ranking-mode", &cfg.PolicyRankingMode)
	applyBool(f, "compact", &cfg.Compact)
	applyBool(f, "keep-temp-files", &cfg.KeepTempFiles)
	applyString(f, "work-dir", &cfg.WorkDir)
	applyString(f, "log-level", &cfg.LogLevel)

	return cfg, nil
}

func applyString(f *pflag.FlagSet, name string, dst *string) {
	if f.Changed(name) {
		v, _ := f.GetString(name)
		*dst = v
	}
}
func applyBool(f *pflag.FlagSet, name string, dst *bool) {
	if f.Changed(name) {
		v, _ := f.GetBool(name)
		*dst = v
	}
}
func applyInt(f *pflag.FlagSet, name string, dst *int) {
	if f.Changed(name) {
		v, _ := f.GetInt(name)
		*dst = v
	}
}
func applyFloat(f *pflag.FlagSet, name string, dst *float64) {
	if f.Changed(name) {
		v, _ := f.GetFloat64(name)
		*dst = v
	}
}
func applyDuration(f *pflag.FlagSet, name string, dst *time.Duration) {
	if f.Changed(name) {
		v, _ := f.GetDuration(name)
		*dst = v
	}
}

func parseInputRegions(raw []string) ([]generate.InputRegion, error) {
	out := make([]generate.InputRegion, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid --input-region %q, expected ADDR:SIZE", r)
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse --input-region address %q", r)
		}
		size, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "parse --input-region size %q", r)
		}
		out = append(out, generate.InputRegion{Base: addr, Size: uint(size)})
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return strings.Split(string(data), "\n"), nil
}

func parseMemoryFile(path string) ([]oracle.MemoryRule, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	var rules []oracle.MemoryRule
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("malformed memory rule line %q, expected \"ADDR SIZE\"", raw)
		}
		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse memory rule address %q", raw)
		}
		size, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "parse memory rule size %q", raw)
		}
		rules = append(rules, oracle.MemoryRule{Addr: addr, Size: uint(size)})
	}
	return rules, nil
}

func buildLogger(cfg abduceconfig.Config, buffered bool) corelog.Logger {
	base := luxlog.NewLogger("abduce")
	base.SetLevel(logLevelFromString(cfg.LogLevel))
	if buffered {
		return corelog.NewBuffered(base)
	}
	return corelog.NewStreaming(base)
}

func logLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runPipeline(cfg abduceconfig.Config, mode, memoryFile string, regions []generate.InputRegion, asJSON bool, solverOpts solverOptions) error {
	log := buildLogger(cfg, asJSON)
	st := stats.New(nil)
	ctx := term.NewContext()

	directiveLines, err := readLines(cfg.Directives)
	if err != nil {
		return err
	}
	directives, err := oracle.ParseDirectives(directiveLines)
	if err != nil {
		return err
	}

	memory, err := parseMemoryFile(memoryFile)
	if err != nil {
		return err
	}

	ad := oracle.NewBinsec(oracle.Config{
		EnginePath:             cfg.EnginePath,
		BinaryPath:             cfg.BinaryPath,
		Entry:                  cfg.Entry,
		Timeout:                cfg.Timeout,
		Memory:                 memory,
		Directives:             directives,
		CTMode:                 cfg.CTMode,
		CTUnknownRetries:       cfg.CTUnknownRetries,
		CTUnknownTimeoutFactor: cfg.CTUnknownTimeoutFactor,
		Robust:                 cfg.BinsecRobust,
		KeepTempFiles:          cfg.KeepTempFiles,
		WorkDir:                cfg.WorkDir,
	}, ctx, st, log)

	literalLines, err := readLines(cfg.Literals)
	if err != nil {
		return err
	}

	var gen generate.Generator
	switch mode {
	case "auto":
		gen, err = generate.NewAutoGenerator(cfg, ctx, ad, st, log, literalLines, regions)
		if err != nil {
			return errors.Wrap(err, "build auto generator")
		}
	case "static":
		f, ferr := os.Open(cfg.Literals)
		if ferr != nil {
			return errors.Wrap(ferr, "open literals file")
		}
		defer f.Close()
		gen, err = generate.NewStaticGenerator(cfg, f, ctx)
		if err != nil {
			return errors.Wrap(err, "build static generator")
		}
	default:
		return errors.Errorf("unknown --mode %q", mode)
	}

	storageMode := storage.Fast
	if cfg.StorageExact {
		storageMode = storage.Exact
	}
	engine := solve.NewEngine(gen, storageMode)
	solver := solve.NewSolver(cfg, engine, ad, st, log,
		solve.WithSolverTimeout(solverOpts.solverTimeout, solverOpts.collectUntilTimeout),
		solve.WithForceOnModelResorting(solverOpts.forceOnModelResort),
		solve.WithInitialVulnerabilityExamples(solverOpts.initialVulnExamples, solverOpts.constDetect),
	)

	res, err := solver.Solve(ctx)
	if err != nil {
		return errors.Wrap(err, "solve")
	}

	opts := policy.Options{CTMode: cfg.CTMode, SelectionMode: rankingModeFlag(cfg.PolicyRankingMode)}
	checkSat := func(cand term.Candidate) (bool, error) {
		result, err := satenc.CheckSat(cand)
		if err != nil {
			return false, err
		}
		return result.Sat, nil
	}
	summary, err := policy.Finalize(ad, checkSat, log, st, opts, res.Solutions, ctx)
	if err != nil {
		return errors.Wrap(err, "finalize policy")
	}

	st.Log(log)
	printSummary(log, res, summary)

	if asJSON {
		for _, line := range corelog.AsBuffered(log) {
			fmt.Println(line)
		}
	}
	return nil
}

func rankingModeFlag(mode string) string {
	switch mode {
	case "branch-first", "size-complexity":
		return mode
	default:
		return ""
	}
}

func printSummary(log corelog.Logger, res *solve.ResultSummary, summary *policy.ResultSummary) {
	if !res.NASFound {
		log.Result("no necessary-and-sufficient condition found", "solutions_collected", len(res.Solutions))
		return
	}
	log.Result("selected policy", "condition", summary.SelectedPolicy)
	if len(summary.Alternatives) > 0 {
		log.Result("alternative policies", "count", len(summary.Alternatives))
	}
	if summary.CTValidation != nil {
		log.Result("ct validation", "baseline", summary.CTValidation.Baseline.Status, "selected", summary.CTValidation.Selected.Status)
	}
}
