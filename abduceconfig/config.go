// Package abduceconfig holds the CLI/YAML-configurable knobs of the
// abduction pipeline, grounded on the original implementation's
// argparse surface (pyabduction/__main__.py) and structured the way
// the teacher's config.Parameters/presets are, including YAML
// profile loading.
package abduceconfig

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config mirrors the CLI flag surface of §6 except the solver-loop
// flags (solver timeout, collect-until-timeout, forced model
// resorting, initial vulnerability examples, constant detection),
// which cmd/abduce reads separately and passes to solve.Solver as
// options.
type Config struct {
	// Target and engine.
	BinaryPath string `yaml:"binary_path"`
	EnginePath string `yaml:"engine_path"`
	Literals   string `yaml:"literals"`
	Directives string `yaml:"directives"`
	Entry      uint64 `yaml:"entry"`

	// Oracle timing.
	Timeout                time.Duration `yaml:"timeout"`
	CTUnknownRetries       int           `yaml:"ct_unknown_retries"`
	CTUnknownTimeoutFactor float64       `yaml:"ct_unknown_timeout_factor"`

	// Candidate generation.
	WithAutoConstants     bool `yaml:"with_auto_constants"`
	WithDisequalities     bool `yaml:"with_disequalities"`
	WithInequalities      bool `yaml:"with_inequalities"`
	NoVariablesBinop      bool `yaml:"no_variables_binop"`
	CoreLiterals          bool `yaml:"core_literals"`
	SeparateBytes         bool `yaml:"separate_bytes"`
	SeparateBits          bool `yaml:"separate_bits"`
	InputVariablesOnly    bool `yaml:"input_variables_only"`
	LitOrdering           bool `yaml:"lit_ordering"`
	NoPruneCounterex      bool `yaml:"no_prune_counterex"`
	NoPruneNecessary      bool `yaml:"no_prune_necessary"`
	DynamicConstsPerVar   int  `yaml:"dynamic_constants_per_var"`
	MaxDepth              *int `yaml:"max_depth"`
	InputRegionMaxBytes   int  `yaml:"input_region_max_bytes"`

	// Storage/solving.
	StorageExact bool `yaml:"storage_exact"`
	MaxSolutions int  `yaml:"max_solutions"`

	// Mode selection.
	BinsecRobust bool `yaml:"binsec_robust"`
	CTMode       bool `yaml:"ct_mode"`

	// Policy.
	PolicyRankingMode string `yaml:"policy_ranking_mode"`
	Compact           bool   `yaml:"compact"`

	// Diagnostics.
	KeepTempFiles bool   `yaml:"keep_temp_files"`
	WorkDir       string `yaml:"work_dir"`
	LogLevel      string `yaml:"log_level"`
}

// DefaultConfig returns the baseline parameters used when no profile
// is given, grounded on the original's argparse defaults.
func DefaultConfig() Config {
	return Config{
		EnginePath:             "binsec",
		Timeout:                10 * time.Second,
		CTUnknownRetries:       2,
		CTUnknownTimeoutFactor: 2.0,
		WithAutoConstants:      true,
		CoreLiterals:           true,
		DynamicConstsPerVar:    3,
		InputRegionMaxBytes:    32,
		MaxSolutions:           0,
		PolicyRankingMode:      "default",
		LogLevel:               "info",
	}
}

// FastConfig trims timeouts and literal richness for quick iteration,
// at the cost of completeness.
func FastConfig() Config {
	c := DefaultConfig()
	c.Timeout = 3 * time.Second
	c.CTUnknownRetries = 0
	c.WithDisequalities = false
	c.WithInequalities = false
	c.SeparateBytes = false
	c.SeparateBits = false
	return c
}

// ThoroughConfig widens the search at the cost of runtime: relational
// operators, byte/bit separation, and more CT unknown retries.
func ThoroughConfig() Config {
	c := DefaultConfig()
	c.Timeout = 30 * time.Second
	c.CTUnknownRetries = 5
	c.WithDisequalities = true
	c.WithInequalities = true
	c.SeparateBytes = true
	c.SeparateBits = true
	c.StorageExact = true
	return c
}

// LoadProfile reads a YAML profile file and overlays it on base,
// leaving any zero-valued field in the file untouched in base.
func LoadProfile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config profile")
	}
	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Config{}, errors.Wrap(err, "parse config profile")
	}
	return mergeNonZero(base, overlay), nil
}

// mergeNonZero overlays every non-zero field of overlay onto base.
// Written out explicitly (rather than via reflection) to keep the
// merge rules auditable, matching the teacher's preference for
// explicit struct-literal construction over generic merging.
func mergeNonZero(base, overlay Config) Config {
	out := base
	if overlay.BinaryPath != "" {
		out.BinaryPath = overlay.BinaryPath
	}
	if overlay.EnginePath != "" {
		out.EnginePath = overlay.EnginePath
	}
	if overlay.Literals != "" {
		out.Literals = overlay.Literals
	}
	if overlay.Directives != "" {
		out.Directives = overlay.Directives
	}
	if overlay.Entry != 0 {
		out.Entry = overlay.Entry
	}
	if overlay.Timeout != 0 {
		out.Timeout = overlay.Timeout
	}
	if overlay.CTUnknownRetries != 0 {
		out.CTUnknownRetries = overlay.CTUnknownRetries
	}
	if overlay.CTUnknownTimeoutFactor != 0 {
		out.CTUnknownTimeoutFactor = overlay.CTUnknownTimeoutFactor
	}
	out.WithAutoConstants = out.WithAutoConstants || overlay.WithAutoConstants
	out.WithDisequalities = out.WithDisequalities || overlay.WithDisequalities
	out.WithInequalities = out.WithInequalities || overlay.WithInequalities
	out.NoVariablesBinop = out.NoVariablesBinop || overlay.NoVariablesBinop
	out.CoreLiterals = out.CoreLiterals || overlay.CoreLiterals
	out.SeparateBytes = out.SeparateBytes || overlay.SeparateBytes
	out.SeparateBits = out.SeparateBits || overlay.SeparateBits
	out.InputVariablesOnly = out.InputVariablesOnly || overlay.InputVariablesOnly
	out.LitOrdering = out.LitOrdering || overlay.LitOrdering
	out.NoPruneCounterex = out.NoPruneCounterex || overlay.NoPruneCounterex
	out.NoPruneNecessary = out.NoPruneNecessary || overlay.NoPruneNecessary
	if overlay.DynamicConstsPerVar != 0 {
		out.DynamicConstsPerVar = overlay.DynamicConstsPerVar
	}
	if overlay.MaxDepth != nil {
		out.MaxDepth = overlay.MaxDepth
	}
	if overlay.InputRegionMaxBytes != 0 {
		out.InputRegionMaxBytes = overlay.InputRegionMaxBytes
	}
	out.StorageExact = out.StorageExact || overlay.StorageExact
	if overlay.MaxSolutions != 0 {
		out.MaxSolutions = overlay.MaxSolutions
	}
	out.BinsecRobust = out.BinsecRobust || overlay.BinsecRobust
	out.CTMode = out.CTMode || overlay.CTMode
	if overlay.PolicyRankingMode != "" {
		out.PolicyRankingMode = overlay.PolicyRankingMode
	}
	out.Compact = out.Compact || overlay.Compact
	out.KeepTempFiles = out.KeepTempFiles || overlay.KeepTempFiles
	if overlay.WorkDir != "" {
		out.WorkDir = overlay.WorkDir
	}
	if overlay.LogLevel != "" {
		out.LogLevel = overlay.LogLevel
	}
	return out
}

// Validate applies the minimal sanity checks the CLI needs before
// wiring a pipeline together.
func (c Config) Validate() error {
	if c.BinaryPath == "" {
		return errors.New("binary_path is required")
	}
	if c.Literals == "" {
		return errors.New("literals file is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.DynamicConstsPerVar < 1 {
		return errors.New("dynamic_constants_per_var must be >= 1")
	}
	if c.InputRegionMaxBytes < 1 {
		return errors.New("input_region_max_bytes must be >= 1")
	}
	return nil
}
