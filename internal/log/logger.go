// Package log provides structured logging for the engine using zap.
// Grounded on the teacher's internal/log/logger.go: same singleton/Init
// shape, same production-vs-development zap config split, generalized
// from ARM64-key-capture-specific helpers (Trace/Stub/DetectorRegister)
// to DBI-lifecycle ones (block materialization, dispatch, flush).
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with rvjit-specific helpers.
type Logger struct {
	*zap.Logger
	onEvent func(pc uint64, kind, detail string) // hook for trace event collection
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// SetOnEvent sets the callback used to feed the trace-event collector
// (internal/trace) from Event.
func (l *Logger) SetOnEvent(fn func(pc uint64, kind, detail string)) {
	l.onEvent = fn
}

// Event logs an engine lifecycle event (its one caller is the syscall
// shim, once per serviced syscall) and forwards it to the trace
// collector if one is registered.
func (l *Logger) Event(pc uint64, kind, detail string) {
	if l.onEvent != nil {
		l.onEvent(pc, kind, detail)
	}
	l.Debug("event",
		zap.String("kind", kind),
		zap.String("detail", detail),
		zap.Uint64("pc", pc),
	)
}

// Materialize logs a block materialization (allocator).
func (l *Logger) Materialize(addr uint64, size int, term string) {
	l.Debug("materialize",
		Addr(addr),
		zap.Int("bytes", size),
		zap.String("term", term),
	)
}

// Dispatch logs a dispatcher round-trip.
func (l *Logger) Dispatch(from, to uint64, term string) {
	l.Debug("dispatch",
		zap.String("from", Hex(from)),
		zap.String("to", Hex(to)),
		zap.String("term", term),
	)
}

// Link logs a trace-linker install.
func (l *Logger) Link(site, target uint64) {
	l.Debug("link", zap.String("site", Hex(site)), zap.String("target", Hex(target)))
}

// Flush logs a code-cache flush.
func (l *Logger) Flush(reason string, generation int) {
	l.Info("flush", zap.String("reason", reason), zap.Int("generation", generation))
}

// FatalEngine logs a fatal engine error with the diagnostic fields spec §7
// requires (guest PC, block id, component).
func (l *Logger) FatalEngine(component string, pc uint64, blockID int, err error) {
	l.Error("fatal",
		zap.String("component", component),
		Addr(pc),
		zap.Int("block", blockID),
		zap.Error(err),
	)
}

// WithCategory returns a logger with the category field preset.
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{
		Logger:  l.Logger.With(zap.String("cat", category)),
		onEvent: l.onEvent,
	}
}

// Hex formats a uint64 as hex string for logging.
func Hex(addr uint64) string {
	return "0x" + hexString(addr)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// Field helpers for common patterns.

// Addr creates an address field.
func Addr(addr uint64) zap.Field {
	return zap.String("addr", Hex(addr))
}

// Size creates a size field.
func Size(size uint64) zap.Field {
	return zap.Uint64("size", size)
}

// Ptr creates a pointer field.
func Ptr(name string, ptr uint64) zap.Field {
	return zap.String(name, Hex(ptr))
}

// Fn creates a function name field.
func Fn(name string) zap.Field {
	return zap.String("fn", name)
}
