package driver

import "strings"

// StatusBuffer implements the three-phase init/set/commit barrier
// that keeps a peer from ever observing a partially recomputed
// ups.status (spec.md §4.3, testable property 1).
//
// Only the poll-loop goroutine ever calls these methods (spec.md §5),
// so no locking is needed here; DState.Setinfo on commit takes care
// of its own locking for the publish step.
type StatusBuffer struct {
	varName string
	scratch []string
	seen    map[string]bool
	dstate  *DState
}

func newStatusBuffer(dstate *DState, varName string) *StatusBuffer {
	return &StatusBuffer{dstate: dstate, varName: varName}
}

// Init empties the scratch buffer; call before recomputing the
// status string for this cycle.
func (s *StatusBuffer) Init() {
	s.scratch = s.scratch[:0]
	s.seen = make(map[string]bool)
}

// Set appends a token if not already present this cycle. Order of
// first appearance is preserved.
func (s *StatusBuffer) Set(token string) {
	if s.seen == nil {
		s.Init()
	}
	if s.seen[token] {
		return
	}
	s.seen[token] = true
	s.scratch = append(s.scratch, token)
}

// Commit atomically publishes the scratch buffer to the underlying
// DState variable. An empty buffer clears the variable rather than
// setting it to the empty string (spec.md §4.3).
func (s *StatusBuffer) Commit() {
	if len(s.scratch) == 0 {
		s.dstate.Delinfo(s.varName)
		return
	}
	s.dstate.Setinfo(s.varName, strings.Join(s.scratch, " "))
}

// Tokens returns a snapshot of the scratch buffer prior to commit,
// mainly useful for tests.
func (s *StatusBuffer) Tokens() []string {
	out := make([]string, len(s.scratch))
	copy(out, s.scratch)
	return out
}

// NewStatusBuffer returns the ups.status barrier for d.
func NewStatusBuffer(d *DState) *StatusBuffer {
	return newStatusBuffer(d, "ups.status")
}

// NewAlarmBuffer returns the ups.alarm barrier for d. Semantically
// identical to StatusBuffer; kept as a distinct constructor so
// callers get descriptive names (status_init/alarm_init etc. in the
// C original) without conflating the two target variables.
func NewAlarmBuffer(d *DState) *StatusBuffer {
	return newStatusBuffer(d, "ups.alarm")
}
