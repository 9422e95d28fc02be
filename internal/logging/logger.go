// Package logging provides category-scoped structured logging for the
// kernel, backed by zap. Every subsystem logs through a Category so that
// log volume per subsystem can be tuned independently without touching
// call sites.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line. Kept as a closed
// set of constants so every log line is attributable to a component.
type Category string

const (
	CategoryBoot       Category = "boot"
	CategoryKernel     Category = "kernel"
	CategoryStore      Category = "store"
	CategoryEmbedding  Category = "embedding"
	CategoryLLM        Category = "llm"
	CategoryScheduler  Category = "scheduler"
	CategoryCron       Category = "cron"
	CategoryDispatcher Category = "dispatcher"
	CategoryRegistry   Category = "registry"
	CategoryPlanner    Category = "planner"
	CategoryWorkflow   Category = "workflow"
	CategorySynth      Category = "synth"
	CategoryHarness    Category = "harness"
	CategoryRepair     Category = "repair"
	CategoryFixPattern Category = "fixpattern"
	CategoryTools      Category = "tools"
)

// Level mirrors zap's level set under names the rest of the kernel uses.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var (
	mu          sync.RWMutex
	base        *zap.Logger
	initialized bool
	sugared     = map[Category]*zap.SugaredLogger{}
)

// Options controls how the base logger is constructed.
type Options struct {
	Level       Level
	Development bool // console encoder, human-readable; false => JSON
}

// DefaultOptions matches the teacher's CLI-facing default: production JSON
// encoding at info level, promotable to debug via verbose flags.
func DefaultOptions() Options {
	return Options{Level: LevelInfo, Development: false}
}

// Initialize builds the process-wide base logger. Safe to call once at
// startup; subsequent calls replace the base logger and invalidate cached
// per-category loggers.
func Initialize(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(opts.Level))

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	base = l
	sugared = map[Category]*zap.SugaredLogger{}
	initialized = true
	return nil
}

func toZapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func ensureInitialized() {
	mu.RLock()
	ok := initialized
	mu.RUnlock()
	if ok {
		return
	}
	_ = Initialize(DefaultOptions())
}

// Get returns a SugaredLogger bound to category, constructing the base
// logger with defaults on first use if Initialize was never called.
func Get(category Category) *zap.SugaredLogger {
	ensureInitialized()

	mu.RLock()
	if l, ok := sugared[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := sugared[category]; ok {
		return l
	}
	l := base.Sugar().With("category", string(category))
	sugared[category] = l
	return l
}

// Sync flushes the base logger. Call once at process shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return nil
	}
	return base.Sync()
}

// Timer logs the duration of an operation on Stop(); modeled on the
// teacher's StartTimer/Stop helper.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing op under category.
func StartTimer(category Category, op string) *Timer {
	return &Timer{category: category, op: op, start: time.Now()}
}

// Stop logs the elapsed duration at debug level.
func (t *Timer) Stop() {
	Get(t.category).Debugw("timed operation", "op", t.op, "duration", time.Since(t.start))
}
