// Package config collects the knobs spec §6 recognizes, built with the
// functional-options pattern katalvlaran/lvlath uses throughout (dfs.Option,
// dfs.WithContext, dfs.WithMaxDepth, ...) rather than the teacher's
// no-configuration constructors (NewSpreadsheet takes no options at all).
package config

import (
	"time"

	"github.com/latticecalc/engine/internal/calclog"
	"github.com/latticecalc/engine/internal/values"
)

// DeterministicMode freezes volatile functions (NOW, TODAY, RAND) to values
// derived from a seed and timestamp instead of wall-clock time, per spec §6.
type DeterministicMode struct {
	Enabled      bool
	TimestampUTC time.Time
	Timezone     *time.Location
}

// Config is the engine-wide configuration, spec §6.
type Config struct {
	RangeExpansionLimit int
	EnableBlockStripes  bool
	EnableParallel      bool
	MaxThreads          int // 0 means "no explicit cap" (runtime.GOMAXPROCS)
	DateSystem          values.DateSystem
	Deterministic       DeterministicMode
	Logger              calclog.Logger
}

// Option mutates a Config under construction.
type Option func(*Config)

// Default returns the spec's documented defaults.
func Default() Config {
	return Config{
		RangeExpansionLimit: 1024,
		EnableBlockStripes:  false,
		EnableParallel:      false,
		MaxThreads:          0,
		DateSystem:          values.Excel1900,
		Logger:              calclog.Nop(),
	}
}

// New builds a Config from Default() plus opts.
func New(opts ...Option) Config {
	c := Default()
	for _, o := range opts {
		o(&c)
	}
	return c
}

func WithRangeExpansionLimit(n int) Option {
	return func(c *Config) { c.RangeExpansionLimit = n }
}

func WithBlockStripes(enable bool) Option {
	return func(c *Config) { c.EnableBlockStripes = enable }
}

func WithParallel(enable bool, maxThreads int) Option {
	return func(c *Config) {
		c.EnableParallel = enable
		c.MaxThreads = maxThreads
	}
}

func WithDateSystem(sys values.DateSystem) Option {
	return func(c *Config) { c.DateSystem = sys }
}

func WithDeterministicMode(ts time.Time, tz *time.Location) Option {
	return func(c *Config) {
		c.Deterministic = DeterministicMode{Enabled: true, TimestampUTC: ts, Timezone: tz}
	}
}

func WithLogger(l calclog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
