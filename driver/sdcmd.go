package driver

import "strings"

// InstCmdResult mirrors the STAT_INSTCMD_* enum of upshandler.h.
type InstCmdResult int

const (
	InstCmdHandled InstCmdResult = iota
	InstCmdUnknown
	InstCmdInvalid
	InstCmdFailed
	InstCmdConversionFailed
)

// InstCmdFunc is the shape of the single call SDCmdDispatcher drives:
// invoke an instant command by name with no extra argument.
type InstCmdFunc func(name string) InstCmdResult

// defaultShutdownIntent is the built-in fallback walk applied when
// the user did not override `sdcommands` (spec.md §4.5).
var defaultShutdownIntent = []string{
	"shutdown.return",
	"shutdown.stayoff",
	"shutdown.reboot",
	"load.off",
}

// DoLoopShutdownCommands implements do_loop_shutdown_commands (spec.md
// §4.5, §8 property 4): split csv on commas, trim whitespace, skip
// empties, and invoke instcmd in order until one reports Handled.
// Returns the command that succeeded via usedOut (nil if none did).
func DoLoopShutdownCommands(csv string, instcmd InstCmdFunc) (InstCmdResult, *string) {
	for _, raw := range strings.Split(csv, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if instcmd(name) == InstCmdHandled {
			used := name
			return InstCmdHandled, &used
		}
	}
	return InstCmdInvalid, nil
}

// LoopShutdownCommands implements loop_shutdown_commands (spec.md
// §4.5): use the user's `sdcommands` ParamTable override when
// present, otherwise defaultCSV. Per Open Question #1 (DESIGN.md),
// the user override *replaces* the default wholesale; it is never
// merged with it.
func LoopShutdownCommands(pt *ParamTable, defaultCSV string, instcmd InstCmdFunc) (InstCmdResult, *string) {
	csv := defaultCSV
	if override, ok := pt.Getval("sdcommands"); ok && override != "" {
		csv = override
	}
	return DoLoopShutdownCommands(csv, instcmd)
}

// DefaultShutdownIntentCSV renders the built-in intent table (spec.md
// §4.5) as a comma-separated list, the shape a driver's
// shutdown.default handler typically resolves to.
func DefaultShutdownIntentCSV() string {
	return strings.Join(defaultShutdownIntent, ",")
}

// UpsdrvShutdownSdcommandsOrDefault implements
// upsdrv_shutdown_sdcommands_or_default (spec.md §4.5): call
// LoopShutdownCommands with the driver-supplied default, and report
// the exit-flag outcome the Lifecycle should use to pick its process
// exit code (spec.md §6.3, §4.5 post-conditions).
func UpsdrvShutdownSdcommandsOrDefault(pt *ParamTable, sdcmdsDefault string, instcmd InstCmdFunc) (ok bool, used *string) {
	result, cmdUsed := LoopShutdownCommands(pt, sdcmdsDefault, instcmd)
	return result == InstCmdHandled, cmdUsed
}
