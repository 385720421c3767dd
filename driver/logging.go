package driver

import (
	"os"

	log "github.com/hashicorp/go-hclog"
)

// LogConfig controls the core-wide logger built at boot from the -D
// repeat count and the debug_min parameter (spec.md §4.1).
type LogConfig struct {
	// DCount is how many times -D was given on argv.
	DCount int
	// DebugMin is the minimum verbosity regardless of DCount.
	DebugMin int
	// Quiet silences everything below Error (-q).
	Quiet bool
	// Name is the logger's root name, usually progname.
	Name string
}

// dLevels maps a -D count (clamped to DebugMin as a floor) onto an
// hclog level. NUT's own drivers treat debug verbosity as an
// open-ended counter; we fold anything above Trace into Trace.
func dLevels() []log.Level {
	return []log.Level{
		log.Info,  // 0
		log.Debug, // 1
		log.Trace, // 2+
	}
}

// NewLogger builds the root logger for a driver process.
func NewLogger(cfg LogConfig) log.Logger {
	if cfg.Quiet {
		return log.New(&log.LoggerOptions{
			Name:   cfg.Name,
			Level:  log.Error,
			Output: os.Stderr,
		})
	}

	n := cfg.DCount
	if cfg.DebugMin > n {
		n = cfg.DebugMin
	}
	levels := dLevels()
	if n >= len(levels) {
		n = len(levels) - 1
	}
	if n < 0 {
		n = 0
	}

	return log.New(&log.LoggerOptions{
		Name:   cfg.Name,
		Level:  levels[n],
		Output: os.Stderr,
	})
}
