package driver

import "context"

// DriverFlag is one of the upsdrv_info_t development-status flags of
// original_source/drivers/main.h (DRV_BROKEN..DRV_COMPLETE).
type DriverFlag string

const (
	DriverBroken       DriverFlag = "broken"
	DriverExperimental DriverFlag = "experimental"
	DriverBeta         DriverFlag = "beta"
	DriverStable       DriverFlag = "stable"
	DriverComplete     DriverFlag = "complete"
)

// DriverInfo mirrors the upsdrv_info_t subdriver-description struct
// (name/version/status) every NUT driver carries, surfaced over
// DState rather than linked as a C extern.
type DriverInfo struct {
	Name    string
	Version string
	Flags   []DriverFlag
}

// SetVarResult mirrors the STAT_SET_* enum of upshandler.h.
type SetVarResult int

const (
	SetVarHandled SetVarResult = iota
	SetVarUnknown
	SetVarInvalid
	SetVarFailed
	SetVarConversionFailed
)

// Callbacks is the fixed five-function plug-in contract of spec.md
// §4.6/§6.2, expressed as an interface per the redesign note in §9
// ("the five-function plug-in contract becomes a trait/interface on
// [the Driver] context rather than a set of free functions with
// process-global side effects").
//
// InitUPS, InitInfo, UpdateInfo, Shutdown and Cleanup are required;
// Help, MakeVarTable, InstCmd and SetVar may be no-ops.
type Callbacks interface {
	// InitUPS opens the connection to the device, failing with an
	// error if it cannot be found. Called after config load, before
	// privilege drop (spec.md §4.6).
	InitUPS(ctx context.Context, d *Driver) error

	// InitInfo prepares DState entries and instant commands for
	// monitoring. Called after InitUPS succeeds.
	InitInfo(ctx context.Context, d *Driver) error

	// UpdateInfo refreshes DState for one poll cycle. Called every
	// pollinterval seconds.
	UpdateInfo(ctx context.Context, d *Driver)

	// Shutdown tells the device to power off the load, then returns
	// without sleeping (spec.md original_source skel.c comment).
	Shutdown(ctx context.Context, d *Driver) error

	// Cleanup releases resources before process exit.
	Cleanup(d *Driver)

	// MakeVarTable registers -x options via d.Params.Addvar before
	// config parsing. Optional.
	MakeVarTable(d *Driver)

	// Help appends driver-specific text to -h output. Optional.
	Help() string

	// DriverInfo reports the upsdrv_info_t-style name/version/status
	// flags published read-only as driver.version.internal during
	// boot. Optional; BaseCallbacks reports an unversioned DriverStable.
	DriverInfo() DriverInfo

	// InstCmd executes a named instant command, optionally with an
	// extra argument (spec.md §4.6).
	InstCmd(name, extra string) InstCmdResult

	// SetVar applies a validated SET request to the device itself
	// (DState has already been checked for RW/enum/range/aux by the
	// time this is called).
	SetVar(name, val string) SetVarResult
}

// BaseCallbacks gives plug-ins no-op defaults for the optional slots
// so a driver only needs to embed it and override what it uses —
// mirrors how the teacher's Driver methods panic("implement me") for
// unimplemented RPCs, except our defaults are inert rather than
// fatal.
type BaseCallbacks struct{}

func (BaseCallbacks) MakeVarTable(d *Driver)                { _ = d }
func (BaseCallbacks) Help() string                           { return "" }
func (BaseCallbacks) InstCmd(name, extra string) InstCmdResult { return InstCmdUnknown }
func (BaseCallbacks) SetVar(name, val string) SetVarResult     { return SetVarUnknown }
func (BaseCallbacks) DriverInfo() DriverInfo {
	return DriverInfo{Flags: []DriverFlag{DriverStable}}
}

// Command is the sum type spec.md §9 asks for in place of C's
// upsh.instcmd/upsh.setvar function-pointer table: a single value
// that is either an instant-command invocation or a variable write,
// dispatched through one method rather than two handler slots.
type Command struct {
	kind  commandKind
	Name  string
	Extra string // InstCmd only
	Value string // SetVar only
}

type commandKind int

const (
	commandInstCmd commandKind = iota
	commandSetVar
)

// NewInstCmdCommand builds an INSTCMD-shaped Command.
func NewInstCmdCommand(name, extra string) Command {
	return Command{kind: commandInstCmd, Name: name, Extra: extra}
}

// NewSetVarCommand builds a SET-shaped Command.
func NewSetVarCommand(name, value string) Command {
	return Command{kind: commandSetVar, Name: name, Value: value}
}

// IsInstCmd reports whether this Command is an INSTCMD invocation.
func (c Command) IsInstCmd() bool { return c.kind == commandInstCmd }

// dispatch routes a Command to the right Callbacks method, falling
// back to the core's own main_instcmd_fallback/main_setvar handlers
// (spec.md §4.6) when the plug-in reports Unknown.
func (d *Driver) dispatch(c Command) (instRes InstCmdResult, setRes SetVarResult, err error) {
	switch c.kind {
	case commandInstCmd:
		if !d.dstate.HasCmd(c.Name) && !isFallbackInstCmd(c.Name) {
			return InstCmdUnknown, 0, cmdErr(ErrUnknownCommand)
		}
		res := d.callbacks.InstCmd(c.Name, c.Extra)
		if res == InstCmdUnknown {
			res = d.mainInstcmdFallback(c.Name, c.Extra)
		}
		return res, 0, instCmdResultError(res)
	case commandSetVar:
		if verr := d.dstate.validateSet(c.Name, c.Value); verr != nil {
			return 0, 0, verr
		}
		res := d.callbacks.SetVar(c.Name, c.Value)
		if res == SetVarUnknown {
			res = d.mainSetvar(c.Name, c.Value)
		}
		if res == SetVarHandled {
			d.dstate.ApplySet(c.Name, c.Value)
		}
		return 0, res, setVarResultError(res)
	}
	return 0, 0, cmdErr(ErrUnknownCommand)
}

// instCmdResultError maps an InstCmdResult onto the ctrlsocket ERR
// code it should produce (nil for Handled).
func instCmdResultError(res InstCmdResult) error {
	switch res {
	case InstCmdHandled:
		return nil
	case InstCmdUnknown:
		return cmdErr(ErrUnknownCommand)
	case InstCmdInvalid:
		return cmdErr(ErrInvalidArgument)
	default: // InstCmdFailed, InstCmdConversionFailed
		return cmdErr(ErrCmdFailed)
	}
}

// setVarResultError maps a SetVarResult onto the ctrlsocket ERR code
// it should produce (nil for Handled).
func setVarResultError(res SetVarResult) error {
	switch res {
	case SetVarHandled:
		return nil
	case SetVarUnknown:
		return cmdErr(ErrUnknownCommand)
	case SetVarInvalid:
		return cmdErr(ErrInvalidValue)
	default: // SetVarFailed, SetVarConversionFailed
		return cmdErr(ErrCmdFailed)
	}
}
