package driver

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	log "github.com/hashicorp/go-hclog"
)

// Flag is one of the variable flags of spec.md §3.
type Flag string

const (
	FlagRW        Flag = "RW"
	FlagString    Flag = "STRING"
	FlagNumber    Flag = "NUMBER"
	FlagImmutable Flag = "IMMUTABLE"
)

type intRange struct {
	Lo, Hi int
}

// variable is the unit of the DState, spec.md §3.
type variable struct {
	name   string
	value  string
	flags  map[Flag]bool
	aux    int
	enums  []string
	ranges []intRange
	dirty  bool
}

func (v *variable) hasFlag(f Flag) bool { return v.flags[f] }

// DState is the versioned, change-tracked variable store plus the
// instant-command registry (spec.md §4.2). It is not safe for
// concurrent use from more than the single poll-loop goroutine per
// spec.md §5, except for Getinfo/dumpLines which peers may call
// read-only via the ctrlsocket goroutine while holding mu.
type DState struct {
	mu    sync.Mutex
	vars  map[string]*variable
	order []string // insertion order, for stable DUMPALL output
	cmds  map[string]bool
	cmdOrder []string

	stale bool // true == DATASTALE, starts stale until first dataok()

	logger log.Logger

	// onChange is invoked (while mu is held) for every wire line a
	// mutation produces, so CtrlSocket can fan it out to peers.
	onChange func(line string)
}

// NewDState constructs an empty, initially-stale store.
func NewDState(logger log.Logger) *DState {
	return &DState{
		vars:   make(map[string]*variable),
		cmds:   make(map[string]bool),
		stale:  true,
		logger: logger,
	}
}

// SetOnChange installs the callback used to stream dirty lines to
// control-socket peers. Must be called before the poll loop starts.
func (d *DState) SetOnChange(fn func(line string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

func (d *DState) emit(line string) {
	if d.onChange != nil {
		d.onChange(line)
	}
}

// Setinfo creates or overwrites name's value. A no-op if the
// formatted value is byte-identical to the current one (spec.md
// §4.2).
func (d *DState) Setinfo(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setinfoLocked(name, value)
}

// Setinfof is the formatted convenience wrapper spec.md's variadic
// setinfo(name, fmt, ...) becomes per spec.md §9 (a typed/
// pre-formatted call site instead of a printf-style hole).
func (d *DState) Setinfof(name, format string, args ...interface{}) {
	d.Setinfo(name, fmt.Sprintf(format, args...))
}

func (d *DState) setinfoLocked(name, value string) {
	v, ok := d.vars[name]
	if !ok {
		v = &variable{name: name, flags: make(map[Flag]bool)}
		d.vars[name] = v
		d.order = append(d.order, name)
	} else if v.value == value {
		return
	}
	v.value = value
	v.dirty = true
	d.emit(setinfoLine(name, value))
}

// Delinfo removes name. Idempotent.
func (d *DState) Delinfo(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.vars[name]; !ok {
		return
	}
	delete(d.vars, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.emit(delinfoLine(name))
}

// Getinfo returns the current value, or (  "", false) if unset.
func (d *DState) Getinfo(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vars[name]
	if !ok {
		return "", false
	}
	return v.value, true
}

// SetFlags replaces name's flag set.
func (d *DState) SetFlags(name string, flags ...Flag) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.ensure(name)
	v.flags = make(map[Flag]bool, len(flags))
	for _, f := range flags {
		v.flags[f] = true
	}
	d.emit(setflagsLine(name, flagStrings(flags)))
}

func flagStrings(flags []Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}

// SetAux sets the string-length cap used when FlagString is set.
func (d *DState) SetAux(name string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.ensure(name)
	v.aux = n
	d.emit(setauxLine(name, n))
}

// AddEnum appends a legal value; duplicates are silently dropped.
func (d *DState) AddEnum(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.ensure(name)
	for _, e := range v.enums {
		if e == value {
			return
		}
	}
	v.enums = append(v.enums, value)
	d.emit(addenumLine(name, value))
}

// DelEnum removes a legal value if present.
func (d *DState) DelEnum(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vars[name]
	if !ok {
		return
	}
	for i, e := range v.enums {
		if e == value {
			v.enums = append(v.enums[:i], v.enums[i+1:]...)
			d.emit(delenumLine(name, value))
			return
		}
	}
}

// AddRange appends a legal [lo, hi] integer interval.
func (d *DState) AddRange(name string, lo, hi int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.ensure(name)
	v.ranges = append(v.ranges, intRange{lo, hi})
	d.emit(addrangeLine(name, lo, hi))
}

// AddCmd registers an instant command name.
func (d *DState) AddCmd(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmds[name] {
		return
	}
	d.cmds[name] = true
	d.cmdOrder = append(d.cmdOrder, name)
	d.emit(addcmdLine(name))
}

// DelCmd removes an instant command name. Idempotent.
func (d *DState) DelCmd(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.cmds[name] {
		return
	}
	delete(d.cmds, name)
	for i, n := range d.cmdOrder {
		if n == name {
			d.cmdOrder = append(d.cmdOrder[:i], d.cmdOrder[i+1:]...)
			break
		}
	}
	d.emit(delcmdLine(name))
}

// HasCmd reports whether name is a registered instant command.
func (d *DState) HasCmd(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cmds[name]
}

// Dataok flips the freshness flag to fresh, notifying peers on a
// stale->fresh transition.
func (d *DState) Dataok() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.stale {
		return
	}
	d.stale = false
	d.emit(dataokLine)
}

// Datastale flips the freshness flag to stale, notifying peers on a
// fresh->stale transition.
func (d *DState) Datastale() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stale {
		return
	}
	d.stale = true
	d.emit(datastaleLine)
}

// IsStale reports the current freshness flag.
func (d *DState) IsStale() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stale
}

func (d *DState) ensure(name string) *variable {
	v, ok := d.vars[name]
	if !ok {
		v = &variable{name: name, flags: make(map[Flag]bool)}
		d.vars[name] = v
		d.order = append(d.order, name)
	}
	return v
}

// validateSet implements the SET-acceptance invariant of spec.md §3
// and testable property 3 (§8): name must exist, be RW, and the new
// value must satisfy any enum/range/aux constraint.
func (d *DState) validateSet(name, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vars[name]
	if !ok {
		return cmdErr(ErrInvalidArgument)
	}
	if !v.hasFlag(FlagRW) {
		return cmdErr(ErrReadOnly)
	}
	if len(v.enums) > 0 {
		found := false
		for _, e := range v.enums {
			if e == value {
				found = true
				break
			}
		}
		if !found {
			return cmdErr(ErrInvalidValue)
		}
	}
	if len(v.ranges) > 0 {
		n, err := strconv.Atoi(value)
		if err != nil {
			return cmdErr(ErrInvalidValue)
		}
		inRange := false
		for _, r := range v.ranges {
			if n >= r.Lo && n <= r.Hi {
				inRange = true
				break
			}
		}
		if !inRange {
			return cmdErr(ErrInvalidValue)
		}
	}
	if v.hasFlag(FlagString) && v.aux > 0 && len(value) > v.aux {
		return cmdErr(ErrTooLong)
	}
	return nil
}

// ApplySet performs the mutation after validateSet and the driver's
// setvar callback have both agreed it is allowed.
func (d *DState) ApplySet(name, value string) {
	d.Setinfo(name, value)
}

// dumpLines renders the full current state as the ordered list of
// wire lines a DUMPALL handshake streams, terminated by DUMPDONE.
// Freshness (DATAOK/DATASTALE) is not part of the dump body itself —
// spec.md §8 S1 gives the literal expected body for a single-variable,
// single-command store as exactly SETINFO/ADDCMD/DUMPDONE — it is only
// pushed to peers as a change notification via onChange.
func (d *DState) dumpLines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dumpLinesLocked()
}

func (d *DState) dumpLinesLocked() []string {
	var lines []string
	for _, name := range d.order {
		v := d.vars[name]
		lines = append(lines, setinfoLine(name, v.value))
		if len(v.flags) > 0 {
			var fs []Flag
			for f := range v.flags {
				fs = append(fs, f)
			}
			sort.Slice(fs, func(i, j int) bool { return fs[i] < fs[j] })
			lines = append(lines, setflagsLine(name, flagStrings(fs)))
		}
		if v.aux > 0 {
			lines = append(lines, setauxLine(name, v.aux))
		}
		for _, e := range v.enums {
			lines = append(lines, addenumLine(name, e))
		}
		for _, r := range v.ranges {
			lines = append(lines, addrangeLine(name, r.Lo, r.Hi))
		}
	}
	for _, name := range d.cmdOrder {
		lines = append(lines, addcmdLine(name))
	}
	lines = append(lines, dumpdoneLine)
	return lines
}

// clearDirty resets the dirty bit on every variable; the poll loop
// calls it at the end of each cycle. Changes were already pushed to
// peers through onChange as they happened; delivery is not confirmed.
func (d *DState) clearDirty() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, v := range d.vars {
		v.dirty = false
	}
}
