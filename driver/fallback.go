package driver

// Fallback instant commands and variables every driver gets for free
// regardless of whether its own Callbacks.InstCmd/SetVar recognizes
// them (spec.md §4.6 "main_instcmd_fallback"/"main_setvar").
const (
	cmdDriverReload         = "driver.reload"
	cmdDriverReloadOrError  = "driver.reload-or-error"
	cmdDriverExit           = "driver.exit"
	cmdDriverKillpower      = "driver.killpower"
	cmdDriverDataDump       = "driver.dump"
)

func isFallbackInstCmd(name string) bool {
	switch name {
	case cmdDriverReload, cmdDriverReloadOrError, cmdDriverExit, cmdDriverKillpower, cmdDriverDataDump:
		return true
	}
	return false
}

// mainInstcmdFallback implements the universally-supported commands
// of spec.md §4.6.
func (d *Driver) mainInstcmdFallback(name, extra string) InstCmdResult {
	switch name {
	case cmdDriverReload:
		if err := d.Reload(); err != nil {
			d.logger.Warn("driver.reload failed", "error", err)
			return InstCmdFailed
		}
		return InstCmdHandled
	case cmdDriverReloadOrError:
		if err := d.Reload(); err != nil {
			return InstCmdFailed
		}
		return InstCmdHandled
	case cmdDriverExit:
		d.requestExit()
		return InstCmdHandled
	case cmdDriverKillpower:
		d.requestExit()
		return InstCmdHandled
	case cmdDriverDataDump:
		for _, line := range d.dstate.dumpLines() {
			d.logger.Info(line)
		}
		return InstCmdHandled
	}
	return InstCmdUnknown
}

// driverDebugVar is the one core-owned writable variable main_setvar
// handles directly (spec.md §4.6).
const driverDebugVar = "driver.debug"

// mainSetvar implements the core-owned writable variables of spec.md
// §4.6 ("main_setvar handles driver.debug and other core-owned
// writable variables").
func (d *Driver) mainSetvar(name, val string) SetVarResult {
	if name != driverDebugVar {
		return SetVarUnknown
	}
	if val != "0" && val != "1" {
		return SetVarInvalid
	}
	d.logger.Info("driver.debug changed at runtime", "value", val)
	return SetVarHandled
}
