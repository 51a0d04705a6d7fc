// Package stats aggregates the execution statistics the solver loop
// accumulates over a run: core counters, per-oracle call/timeout/
// crash/timing samples, candidate-generation counters (including a
// per-category prune breakdown), and named timers recording
// first/last elapsed time since start. Grounded directly on the
// original implementation's stats.py, with an optional Prometheus
// registration layered on top the way the teacher's metrics package
// wraps a prometheus.Registerer.
package stats

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rseabduce/abduce/corelog"
)

// Timer tracks elapsed time since Start, recording the first and
// last elapsed value observed at each Mark call (StatTimer in the
// original).
type Timer struct {
	start time.Time
	First time.Duration
	Last  time.Duration
	total time.Duration
	haveFirst bool
}

// Start records the timer's reference point.
func (t *Timer) Start() { t.start = time.Now() }

// Mark records a new observation (the original's "new"): the elapsed
// time since Start becomes Last, and First if this is the first call.
func (t *Timer) Mark() {
	elapsed := time.Since(t.start)
	t.Last = elapsed
	if !t.haveFirst {
		t.First = elapsed
		t.haveFirst = true
	}
}

// Now returns the accumulated total plus time elapsed since Start.
func (t *Timer) Now() time.Duration { return t.total + time.Since(t.start) }

// Stop folds the time elapsed since Start into the accumulated total.
func (t *Timer) Stop() { t.total += time.Since(t.start) }

// OracleStats counts calls, timeouts, and crashes for one named
// oracle query family, plus every observed wall-clock sample.
type OracleStats struct {
	Calls    int
	Timeouts int
	Crashes  int
	Times    []time.Duration
}

// PruneCounters is a default-zero counter map keyed by prune category
// ("consistency", "counterex", "solution", "unsolution",
// "necessary"), matching the original's GWrapper: reading an absent
// key returns 0 without requiring prior initialization, and also
// writes the zero back so the key subsequently appears in iteration.
type PruneCounters struct {
	counts map[string]int
}

// Get returns the current count for category, defaulting it to zero
// on first access.
func (p *PruneCounters) Get(category string) int {
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	if _, ok := p.counts[category]; !ok {
		p.counts[category] = 0
	}
	return p.counts[category]
}

// Inc increments the counter for category by one.
func (p *PruneCounters) Inc(category string) {
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[category]++
}

// All returns a snapshot of every category observed so far.
func (p *PruneCounters) All() map[string]int {
	out := make(map[string]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

// Sum returns the total count across every category.
func (p *PruneCounters) Sum() int {
	total := 0
	for _, v := range p.counts {
		total += v
	}
	return total
}

// GenerationStats tracks the candidate generator's own counters.
type GenerationStats struct {
	Evaluated  int
	Considered int
	Restart    int
	Vars       int
	Literals   int
	Pruned     PruneCounters
}

// Stats is the full execution-statistics aggregate attached to the
// result summary.
type Stats struct {
	Solutions        int
	SolutionClauses  int
	FinalConstraints int
	Unsolutions      int
	Examples         int
	CounterEx        int
	NecessaryC       int

	OracleStats map[string]*OracleStats
	Generation  GenerationStats
	Timers      map[string]*Timer

	prom *promCollectors
}

// New returns an empty Stats aggregate. reg may be nil, in which case
// no Prometheus collectors are registered (matching the teacher's
// nil-safe NewMetrics(reg) constructor).
func New(reg prometheus.Registerer) *Stats {
	s := &Stats{
		OracleStats: make(map[string]*OracleStats),
		Timers:      make(map[string]*Timer),
	}
	if reg != nil {
		s.prom = newPromCollectors(reg)
	}
	return s
}

// Oracle returns (creating on first use) the OracleStats for key.
func (s *Stats) Oracle(key string) *OracleStats {
	if o, ok := s.OracleStats[key]; ok {
		return o
	}
	o := &OracleStats{}
	s.OracleStats[key] = o
	return o
}

// Timer returns (creating on first use) the named timer.
func (s *Stats) Timer(key string) *Timer {
	if t, ok := s.Timers[key]; ok {
		return t
	}
	t := &Timer{}
	s.Timers[key] = t
	return t
}

// StartTimers starts every named timer in keys.
func (s *Stats) StartTimers(keys ...string) {
	for _, k := range keys {
		s.Timer(k).Start()
	}
}

// RecordOracleCall folds one oracle invocation's outcome into the
// named oracle's stats and, when registered, into Prometheus.
func (s *Stats) RecordOracleCall(key string, elapsed time.Duration, timedOut, crashed bool) {
	o := s.Oracle(key)
	o.Calls++
	if timedOut {
		o.Timeouts++
	}
	if crashed {
		o.Crashes++
	}
	o.Times = append(o.Times, elapsed)
	if s.prom != nil {
		s.prom.observeOracleCall(key, elapsed, timedOut, crashed)
	}
}

// Log renders the same multi-section execution report the original
// Stats.log produces, to logger.Result.
func (s *Stats) Log(logger corelog.Logger) {
	logger.Result("execution statistics:")

	logger.Result("  core counters:")
	scount := s.SolutionClauses
	if scount == 0 {
		scount = s.Solutions
	}
	logger.Result(fmt.Sprintf("    number of solution clauses:   %d", scount))
	logger.Result(fmt.Sprintf("    number of final constraints:  %d", s.FinalConstraints))
	logger.Result(fmt.Sprintf("    number of unsolutions:        %d", s.Unsolutions))
	logger.Result(fmt.Sprintf("    number of examples:           %d", s.Examples))
	logger.Result(fmt.Sprintf("    number of counter-examples:   %d", s.CounterEx))
	logger.Result(fmt.Sprintf("    number of necessary literals: %d", s.NecessaryC))

	logger.Result("")
	logger.Result("  oracles:")
	for oracleName, o := range s.OracleStats {
		logger.Result(fmt.Sprintf("    %s:", oracleName))
		logger.Result(fmt.Sprintf("      * %s calls:    %d", oracleName, o.Calls))
		logger.Result(fmt.Sprintf("      * %s timeouts: %d", oracleName, o.Timeouts))
		logger.Result(fmt.Sprintf("      * %s crashes:  %d", oracleName, o.Crashes))
		logger.Result(fmt.Sprintf("      * %s times:    %v", oracleName, o.Times))
	}

	logger.Result("")
	logger.Result("  candidates generation:")
	logger.Result(fmt.Sprintf("    number of restarts:     %d", s.Generation.Restart))
	logger.Result(fmt.Sprintf("    number of variables:    %d", s.Generation.Vars))
	logger.Result(fmt.Sprintf("    number of literals:     %d", s.Generation.Literals))
	logger.Result(fmt.Sprintf("    evaluated candidates:   %d", s.Generation.Evaluated))
	logger.Result(fmt.Sprintf("    considered candidates:  %d", s.Generation.Considered))
	logger.Result(fmt.Sprintf("    pruned candidates:      %d", s.Generation.Pruned.Sum()))
	for pcat, pval := range s.Generation.Pruned.All() {
		logger.Result(fmt.Sprintf("      * %s-pruned candidates: %d", pcat, pval))
	}

	logger.Result("")
	logger.Result("  timers:")
	for name, t := range s.Timers {
		logger.Result(fmt.Sprintf("    %s:", name))
		logger.Result(fmt.Sprintf("      * first %s: %s", name, t.First))
		logger.Result(fmt.Sprintf("      * last  %s: %s", name, t.Last))
	}
}
