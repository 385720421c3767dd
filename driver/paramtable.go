package driver

import (
	"strings"
)

// VarType is the type of a registered -x option (spec.md §4.1,
// original_source/drivers/main.h VAR_FLAG/VAR_VALUE/VAR_SENSITIVE).
type VarType int

const (
	VarFlag VarType = 1 << iota
	VarValue
	VarSensitive
)

// paramEntry is one registered -x option (spec.md §3 "Parameter
// record").
type paramEntry struct {
	name        string
	typ         VarType
	desc        string
	reloadable  bool
	value       *string
	seenThisLoad bool
}

// ParamTable holds every -x/config option a driver (or the core
// itself, §4.1's table) has registered, plus the reload discipline
// spec.md §4.1 specifies.
type ParamTable struct {
	entries map[string]*paramEntry
	order   []string
	// reloading is false during the initial config pass, true during a
	// reload; governs testvar_reloadable/testval_reloadable semantics.
	reloading bool
}

// NewParamTable returns an empty table with the core's own built-in
// options pre-registered (spec.md §4.1 table).
func NewParamTable() *ParamTable {
	pt := &ParamTable{entries: make(map[string]*paramEntry)}
	pt.registerCoreOptions()
	return pt
}

func (pt *ParamTable) registerCoreOptions() {
	pt.Addvar(VarValue, "port", "Device locator consumed by the driver")
	pt.Addvar(VarValue, "pollinterval", "Seconds between updateinfo calls")
	pt.Addvar(VarValue, "user", "Privilege-drop target user")
	pt.Addvar(VarValue, "group", "Privilege-drop target group")
	pt.Addvar(VarValue, "chroot", "Directory to chroot into")
	pt.Addvar(VarValue, "synchronous", "yes/no/auto control-socket write mode")
	pt.Addvar(VarValue, "sdcommands", "Override shutdown-intent command list")
	pt.Addvar(VarValue, "maxstartdelay", "Max seconds of initups retries before giving up")
	pt.Addvar(VarValue, "retry", "initups attempts before giving up")
	pt.Addvar(VarFlag, "nolock", "Skip advisory device-path locking")
	pt.Addvar(VarValue, "debug_min", "Minimum verbosity regardless of -D count")
}

// Addvar registers a non-reloadable option, as the plug-in's
// makevartable callback does (spec.md §4.1).
func (pt *ParamTable) Addvar(typ VarType, name, desc string) {
	pt.addvar(typ, name, desc, false)
}

// AddvarReloadable registers an option that a later SIGHUP reload is
// permitted to overwrite.
func (pt *ParamTable) AddvarReloadable(typ VarType, name, desc string) {
	pt.addvar(typ, name, desc, true)
}

func (pt *ParamTable) addvar(typ VarType, name, desc string, reloadable bool) {
	if e, ok := pt.entries[name]; ok {
		e.reloadable = reloadable
		e.desc = desc
		e.typ = typ
		return
	}
	pt.entries[name] = &paramEntry{name: name, typ: typ, desc: desc, reloadable: reloadable}
	pt.order = append(pt.order, name)
}

// Getval returns the stored value for name, or ("", false) if unset.
func (pt *ParamTable) Getval(name string) (string, bool) {
	e, ok := pt.entries[name]
	if !ok || e.value == nil {
		return "", false
	}
	return *e.value, true
}

// Testvar reports whether name was given on argv/config at all (flag
// present, even valueless).
func (pt *ParamTable) Testvar(name string) bool {
	e, ok := pt.entries[name]
	return ok && e.seenThisLoad
}

// beginLoad / endLoad bracket one config application pass (initial
// load or a reload), per spec.md §3 "Parameter record ...
// was_seen_this_load" and §4.1's reload discipline.
func (pt *ParamTable) beginLoad(isReload bool) {
	pt.reloading = isReload
	for _, e := range pt.entries {
		e.seenThisLoad = false
	}
}

// Apply stores raw into the option named name, honoring the reload
// discipline of spec.md §4.1. It returns a *ConfigError if name is
// unknown or the value/flag mismatch is fatal during initial load,
// exactly as §4.1 specifies; during a reload an unknown name is
// merely skipped with no mutation (there is nothing in the live
// ParamTable to apply it to).
func (pt *ParamTable) Apply(rawName string) error {
	name, val, hasVal := splitNameValue(rawName)
	e, ok := pt.entries[name]
	if !ok {
		if pt.reloading {
			return nil
		}
		return configErrorf("unknown option -x %q", name)
	}
	e.seenThisLoad = true

	if e.typ&VarFlag != 0 {
		if hasVal {
			return configErrorf("-x %s is a flag and takes no value", name)
		}
		// Flags are represented as a present sentinel value.
		sentinel := "yes"
		e.value = &sentinel
		return nil
	}

	if e.typ&VarValue != 0 {
		if !hasVal {
			return configErrorf("-x %s requires a value", name)
		}
		code := pt.testValReloadable(e, val)
		if code == 0 {
			return nil // change rejected, silently keep old value
		}
		if code == 1 {
			e.value = &val
		}
		return nil
	}

	return configErrorf("-x %s has no recognized type", name)
}

// testValReloadable implements testval_reloadable (spec.md §4.1):
// -1 unchanged, 0 rejected, 1 apply.
func (pt *ParamTable) testValReloadable(e *paramEntry, newval string) int {
	if e.value == nil {
		return 1
	}
	if *e.value == newval {
		return -1
	}
	if !pt.reloading {
		return 1
	}
	if e.reloadable {
		return 1
	}
	return 0
}

func splitNameValue(raw string) (name, value string, hasValue bool) {
	idx := strings.IndexByte(raw, '=')
	if idx < 0 {
		return raw, "", false
	}
	return raw[:idx], raw[idx+1:], true
}

// TestinfoReloadable implements testinfo_reloadable (spec.md §4.1):
// the DState analogue of testValReloadable, used when a driver wants
// to gate a dstate_setinfo() call on reload permission rather than a
// ParamTable slot.
func TestinfoReloadable(d *DState, reloading bool, name, newval string, reloadable bool) int {
	old, has := d.Getinfo(name)
	if !has {
		return 1
	}
	if old == newval {
		return -1
	}
	if !reloading || reloadable {
		return 1
	}
	return 0
}
