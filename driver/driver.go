package driver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/hashicorp/go-hclog"
)

// Options is the parsed CLI surface of spec.md §6.3.
type Options struct {
	Progname     string
	UpsName      string // -a
	Section      string // -s (defaults to UpsName)
	DCount       int    // -D repeated
	Quiet        bool   // -q
	KillPower    bool   // -k
	ShowHelp     bool   // -h
	ShowVersion  bool   // -V
	User         string // -u
	Group        string // -g
	Chroot       string // -r
	RunDuration  time.Duration // -d; zero means run forever
	XOpts        []string      // -x name[=value], repeatable
	ConfigPath   string        // ups.conf path
	RunDir       string        // directory for pidfile/control socket
	DevicePath   string        // positional device_path argument
}

// Driver is the context object spec.md §9 asks for in place of
// process-global state: it owns DState, ParamTable, the control
// socket, and the plug-in's Callbacks, and threads them explicitly
// through every lifecycle transition.
type Driver struct {
	opts Options

	logger   log.Logger
	params   *ParamTable
	dstate   *DState
	status   *StatusBuffer
	alarm    *StatusBuffer
	callbacks Callbacks

	ctrlSocket *CtrlSocket
	notifier   *supervisorNotifier
	devLock    *DeviceLock
	sigs       *signalWatcher

	state             LifecycleState
	pollInterval      time.Duration
	exitRequested     bool
	reconnectStreak   int
	handlingShutdown  bool

	pidFilePath string
}

// NewDriver constructs a Driver in the Booting state. Callbacks may
// be nil until SetCallbacks is called (useful for tests that only
// exercise DState/ctrlsocket).
func NewDriver(opts Options, callbacks Callbacks) *Driver {
	logger := NewLogger(LogConfig{
		DCount:   opts.DCount,
		Quiet:    opts.Quiet,
		Name:     opts.Progname,
	})
	dstate := NewDState(logger.Named("dstate"))
	d := &Driver{
		opts:         opts,
		logger:       logger,
		params:       NewParamTable(),
		dstate:       dstate,
		status:       NewStatusBuffer(dstate),
		alarm:        NewAlarmBuffer(dstate),
		callbacks:    callbacks,
		notifier:     newSupervisorNotifier(logger.Named("notify")),
		state:        StateBooting,
		pollInterval: 2 * time.Second,
	}
	return d
}

// SetCallbacks installs the plug-in contract; must happen before Run.
func (d *Driver) SetCallbacks(c Callbacks) { d.callbacks = c }

// Params exposes the ParamTable for the plug-in's MakeVarTable hook.
func (d *Driver) Params() *ParamTable { return d.params }

// DState exposes the variable store for the plug-in's InitInfo/
// UpdateInfo hooks.
func (d *Driver) DState() *DState { return d.dstate }

// Status exposes the ups.status three-phase barrier.
func (d *Driver) Status() *StatusBuffer { return d.status }

// Alarm exposes the ups.alarm three-phase barrier.
func (d *Driver) Alarm() *StatusBuffer { return d.alarm }

// Logger exposes the root logger so a plug-in can derive named
// children the way the teacher's Driver does.
func (d *Driver) Logger() log.Logger { return d.logger }

// DevicePath exposes the positional device_path argv propagated
// unparsed (spec.md §4.1 "port").
func (d *Driver) DevicePath() string { return d.opts.DevicePath }

// State returns the current lifecycle state.
func (d *Driver) State() LifecycleState { return d.state }

func (d *Driver) requestExit() { d.exitRequested = true }

// instcmdFunc adapts Driver.dispatch to the InstCmdFunc shape
// SDCmdDispatcher expects, for use from the -k shutdown path.
func (d *Driver) instcmdFunc() InstCmdFunc {
	return func(name string) InstCmdResult {
		res, _, _ := d.dispatch(NewInstCmdCommand(name, ""))
		return res
	}
}

// applyPollInterval reads the `pollinterval` parameter (if set) into
// d.pollInterval, enforcing the ">= 1 second" invariant of spec.md
// §4.1.
func (d *Driver) applyPollInterval() error {
	raw, ok := d.params.Getval("pollinterval")
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return configErrorf("pollinterval must be an integer >= 1, got %q", raw)
	}
	d.pollInterval = time.Duration(n) * time.Second
	return nil
}

// publishDriverInfo surfaces the plug-in's upsdrv_info_t-equivalent
// (name, version, DRV_* status flags) as a read-only DState variable,
// the Go-native stand-in for the main.h extern upsdrv_info struct.
func (d *Driver) publishDriverInfo() {
	info := d.callbacks.DriverInfo()
	flags := make([]string, len(info.Flags))
	for i, f := range info.Flags {
		flags[i] = string(f)
	}
	d.dstate.Setinfof("driver.version.internal", "%s %s [%s]", info.Name, info.Version, strings.Join(flags, ","))
	d.dstate.SetFlags("driver.version.internal", FlagImmutable)
}

func (d *Driver) pidFileDefault() string {
	return fmt.Sprintf("%s/%s-%s.pid", d.runDir(), d.opts.Progname, d.opts.UpsName)
}

func (d *Driver) ctrlSocketPathDefault() string {
	return fmt.Sprintf("%s/%s-%s", d.runDir(), d.opts.Progname, d.opts.UpsName)
}

func (d *Driver) runDir() string {
	if d.opts.RunDir != "" {
		return d.opts.RunDir
	}
	return "/var/run/nut"
}
