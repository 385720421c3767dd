package driver

import (
	"testing"

	log "github.com/hashicorp/go-hclog"
)

func TestNewLoggerQuietForcesError(t *testing.T) {
	l := NewLogger(LogConfig{Name: "test", Quiet: true, DCount: 3})
	if !l.IsError() {
		t.Errorf("expected quiet logger to be at Error level")
	}
}

func TestNewLoggerDCountSelectsLevel(t *testing.T) {
	cases := []struct {
		dcount int
		level  log.Level
	}{
		{0, log.Info},
		{1, log.Debug},
		{2, log.Trace},
		{99, log.Trace}, // clamped to the highest level
	}
	for _, c := range cases {
		l := NewLogger(LogConfig{Name: "test", DCount: c.dcount})
		if l.GetLevel() != c.level {
			t.Errorf("DCount=%d: got level %v, want %v", c.dcount, l.GetLevel(), c.level)
		}
	}
}

func TestNewLoggerDebugMinRaisesFloor(t *testing.T) {
	l := NewLogger(LogConfig{Name: "test", DCount: 0, DebugMin: 2})
	if l.GetLevel() != log.Trace {
		t.Errorf("got %v, want Trace (debug_min should raise the floor)", l.GetLevel())
	}
}
