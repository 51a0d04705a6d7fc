// Package corelog is a thin logging façade over github.com/luxfi/log,
// adding the Result level the solver uses for user-facing summary
// lines and a buffered mode that replays its lines into the machine
// readable payload instead of a stream.
package corelog

import (
	"fmt"
	"sync"

	luxlog "github.com/luxfi/log"
)

// Logger is the interface every package in this module programs
// against. It is deliberately narrower than luxlog.Logger so that a
// buffered logger and a no-op logger are trivial to implement without
// pulling in the full geth-style surface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// Result logs a line that belongs in the user-facing summary, not
	// just the debug stream.
	Result(msg string, args ...any)
	With(args ...any) Logger
}

// streaming forwards every call immediately to an underlying
// luxlog.Logger. Used for interactive runs.
type streaming struct {
	base luxlog.Logger
}

// NewStreaming wraps an existing luxfi/log logger for immediate
// forwarding of every call.
func NewStreaming(base luxlog.Logger) Logger {
	return &streaming{base: base}
}

func (s *streaming) Debug(msg string, args ...any) { s.base.Debug(msg, args...) }
func (s *streaming) Info(msg string, args ...any)  { s.base.Info(msg, args...) }
func (s *streaming) Warn(msg string, args ...any)  { s.base.Warn(msg, args...) }
func (s *streaming) Error(msg string, args ...any) { s.base.Error(msg, args...) }
func (s *streaming) Result(msg string, args ...any) {
	s.base.Info(msg, args...)
}
func (s *streaming) With(args ...any) Logger {
	return &streaming{base: s.base.With(args...)}
}

// Line is one buffered log entry.
type Line struct {
	Level string
	Msg   string
	Args  []any
}

// buffered accumulates lines instead of forwarding them, so the CLI
// can replay the whole event log into the machine-readable summary
// payload described in §6/§7.
type buffered struct {
	mu    *sync.Mutex
	lines *[]Line
	base  luxlog.Logger
}

// NewBuffered wraps base (used only as a fallback sink for levels the
// caller still wants streamed, e.g. Warn/Error) and accumulates every
// call into an internal buffer retrievable with Lines.
func NewBuffered(base luxlog.Logger) Logger {
	return &buffered{mu: &sync.Mutex{}, lines: &[]Line{}, base: base}
}

func (b *buffered) record(level, msg string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	*b.lines = append(*b.lines, Line{Level: level, Msg: msg, Args: args})
}

func (b *buffered) Debug(msg string, args ...any) { b.record("debug", msg, args...) }
func (b *buffered) Info(msg string, args ...any)  { b.record("info", msg, args...) }
func (b *buffered) Warn(msg string, args ...any) {
	b.record("warn", msg, args...)
	if b.base != nil {
		b.base.Warn(msg, args...)
	}
}
func (b *buffered) Error(msg string, args ...any) {
	b.record("error", msg, args...)
	if b.base != nil {
		b.base.Error(msg, args...)
	}
}
func (b *buffered) Result(msg string, args ...any) { b.record("result", msg, args...) }
func (b *buffered) With(args ...any) Logger         { return b }

// Lines returns a snapshot of every line recorded so far, formatted
// the way a streaming logger would have rendered it.
func (b *buffered) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(*b.lines))
	for _, l := range *b.lines {
		out = append(out, fmt.Sprintf("[%s] %s %v", l.Level, l.Msg, l.Args))
	}
	return out
}

// AsBuffered returns l's accumulated lines if it is a buffered
// logger, or nil otherwise.
func AsBuffered(l Logger) []string {
	if b, ok := l.(*buffered); ok {
		return b.Lines()
	}
	return nil
}

// noop discards everything; used in tests and as a safe zero value.
type noop struct{}

// NewNoOp returns a Logger that discards every call.
func NewNoOp() Logger { return noop{} }

func (noop) Debug(string, ...any)  {}
func (noop) Info(string, ...any)   {}
func (noop) Warn(string, ...any)   {}
func (noop) Error(string, ...any)  {}
func (noop) Result(string, ...any) {}
func (noop) With(...any) Logger    { return noop{} }
