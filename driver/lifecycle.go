package driver

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Run executes the full boot sequence and poll loop of spec.md §4.7,
// returning the process exit code of §6.3 (0 success, 1 unrecoverable
// init failure, 2 usage error, 3 shutdown command failed).
func (d *Driver) Run(ctx context.Context) int {
	if err := d.boot(ctx); err != nil {
		d.logger.Error("boot failed", "error", err)
		d.cleanupAndExit()
		if _, ok := err.(*ConfigError); ok {
			return 2
		}
		return 1
	}

	if d.opts.KillPower {
		ok := d.runShutdown(ctx)
		d.cleanupAndExit()
		if !ok {
			return 3
		}
		return 0
	}

	if err := d.daemonize(); err != nil {
		d.logger.Error("daemonize failed", "error", err)
		d.cleanupAndExit()
		return 1
	}

	if err := d.writePidFile(); err != nil {
		d.logger.Error("writing pid file failed", "error", err)
		d.cleanupAndExit()
		return 1
	}

	d.setState(StateRunning)
	d.notifier.ready()
	d.pollLoop(ctx)
	d.cleanupAndExit()
	return 0
}

// boot implements spec.md §4.7 steps 1-9 (everything up to, but not
// including, the -k short-circuit and the background fork).
func (d *Driver) boot(ctx context.Context) error {
	d.sigs = newSignalWatcher()

	if d.callbacks == nil {
		return fatalf(nil, "no Callbacks registered")
	}
	d.callbacks.MakeVarTable(d)
	d.registerDriverStateEnum()
	d.publishDriverInfo()

	if d.opts.ConfigPath != "" {
		section := d.opts.Section
		if section == "" {
			section = d.opts.UpsName
		}
		port, err := LoadConfigSection(d.opts.ConfigPath, section, d.params, false)
		if err != nil {
			return err
		}
		if d.opts.DevicePath == "" {
			d.opts.DevicePath = port
		}
	}
	if err := ApplyCLIOverrides(d.params, d.opts.XOpts); err != nil {
		return err
	}
	if err := d.applyPollInterval(); err != nil {
		return err
	}
	if v, ok := d.params.Getval("debug_min"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			d.logger = NewLogger(LogConfig{DCount: d.opts.DCount, DebugMin: n, Quiet: d.opts.Quiet, Name: d.opts.Progname})
		}
	}
	MirrorParameters(d.params, d.dstate)

	nolock := d.params.Testvar("nolock")
	lock, err := AcquireDeviceLock(d.opts.DevicePath, nolock)
	if err != nil {
		return err
	}
	d.devLock = lock

	syncMode := SyncAuto
	if v, ok := d.params.Getval("synchronous"); ok {
		syncMode = ParseSyncMode(v)
	}
	cs, err := NewCtrlSocket(d.logger.Named("ctrlsocket"), d.ctrlSocketPathDefault(), d.dstate, syncMode)
	if err != nil {
		return err
	}
	d.ctrlSocket = cs
	go d.ctrlSocket.Serve()

	d.setState(StateInitUps)
	if err := d.runInitupsWithRetry(ctx); err != nil {
		return err
	}

	if err := d.dropPrivileges(); err != nil {
		return err
	}

	d.setState(StateInitInfo)
	if err := d.callbacks.InitInfo(ctx, d); err != nil {
		return fatalf(err, "initinfo failed")
	}
	d.dstate.Dataok()

	return nil
}

// runInitupsWithRetry calls InitUPS up to the `retry` parameter's
// count (spec.md §4.1, §4.7 step 7). `maxstartdelay` is checked before
// each attempt: once that many seconds have passed since the first
// attempt, no further attempt is made. An attempt already running is
// not interrupted, and InitInfo is not covered by this bound.
func (d *Driver) runInitupsWithRetry(ctx context.Context) error {
	retries := 1
	if v, ok := d.params.Getval("retry"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			retries = n
		}
	}

	var startDeadline time.Time
	if v, ok := d.params.Getval("maxstartdelay"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			startDeadline = time.Now().Add(time.Duration(n) * time.Second)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if !startDeadline.IsZero() && time.Now().After(startDeadline) {
			return fatalf(lastErr, "initups exceeded maxstartdelay")
		}
		lastErr = d.callbacks.InitUPS(ctx, d)
		if lastErr == nil {
			return nil
		}
		d.logger.Warn("initups attempt failed", "attempt", attempt, "error", lastErr)
		if attempt < retries {
			d.setDriverState(driverStateWait)
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}
	return fatalf(lastErr, "initups failed after %d attempt(s)", retries)
}

// runShutdown implements the -k path of spec.md §4.7 step 10.
func (d *Driver) runShutdown(ctx context.Context) bool {
	if d.handlingShutdown {
		return false
	}
	d.handlingShutdown = true
	defer func() { d.handlingShutdown = false }()

	d.setState(StateShutdown)
	d.notifier.stopping()
	if err := d.callbacks.Shutdown(ctx, d); err != nil {
		d.logger.Error("shutdown callback failed", "error", err)
	}
	ok, used := UpsdrvShutdownSdcommandsOrDefault(d.params, DefaultShutdownIntentCSV(), d.instcmdFunc())
	if used != nil {
		d.logger.Info("shutdown command used", "command", *used)
	}
	return ok
}

// pollLoop implements spec.md §4.7's per-iteration sequence and the
// reconnect cycle of §8 S5. When opts.RunDuration is nonzero (the -d
// flag, SPEC_FULL.md §4), the loop runs a single updateinfo cycle and
// returns instead of polling forever, for scripted diagnostics.
func (d *Driver) pollLoop(ctx context.Context) {
	const reconnectThreshold = 3
	runOnce := d.opts.RunDuration > 0
	for !d.exitRequested {
		cmd := d.waitForNextCycle()

		d.drainRequests()

		if cmd != sigNone {
			switch cmd {
			case sigExit:
				d.exitRequested = true
				continue
			case sigReload:
				if err := d.Reload(); err != nil {
					d.logger.Warn("reload failed", "error", err)
				}
			case sigReloadOrExit:
				if err := d.Reload(); err != nil {
					d.logger.Warn("reload failed, exiting", "error", err)
					d.exitRequested = true
					continue
				}
			case sigDataDump:
				for _, line := range d.dstate.dumpLines() {
					fmt.Println(line)
				}
			}
		}

		wasStale := d.dstate.IsStale()
		d.callbacks.UpdateInfo(ctx, d)

		if d.dstate.IsStale() {
			d.reconnectStreak++
		} else {
			d.reconnectStreak = 0
			if wasStale {
				d.setDriverState(driverStateQuiet)
			}
		}

		if d.reconnectStreak >= reconnectThreshold && d.state != StateReconnecting {
			d.setState(StateReconnecting)
			d.setDriverState(driverStateReconnectTrying)
			d.logger.Warn("data stale for consecutive cycles, reconnecting", "streak", d.reconnectStreak)
		} else if d.state == StateReconnecting && d.reconnectStreak == 0 {
			d.setState(StateRunning)
		} else if d.state == StateReconnecting && d.reconnectStreak > 0 {
			d.setDriverState(driverStateReconnectUpdateinfo)
		}

		d.dstate.clearDirty()
		d.notifier.watchdog()

		if runOnce {
			d.exitRequested = true
		}
	}
}

// waitForNextCycle sleeps up to pollInterval, returning early with
// whatever signal woke it (spec.md §4.7 poll loop step 1). Control-
// socket activity does not wake it: CtrlSocket's reader goroutines
// queue SET/INSTCMD requests on reqCh, and those stay queued until the
// timer or a signal ends this wait and drainRequests answers them.
func (d *Driver) waitForNextCycle() signalCmd {
	timer := time.NewTimer(d.pollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return sigNone
	case s := <-d.sigs.cmd:
		return s
	}
}

// Reload implements SIGHUP / driver.reload handling (spec.md §5, §8
// S6): re-read ups.conf, diff against ParamTable's reload discipline,
// and refresh dependent derived state.
func (d *Driver) Reload() error {
	d.setState(StateReloading)
	defer d.setState(StateRunning)

	if d.opts.ConfigPath == "" {
		return nil
	}
	section := d.opts.Section
	if section == "" {
		section = d.opts.UpsName
	}
	if _, err := LoadConfigSection(d.opts.ConfigPath, section, d.params, true); err != nil {
		return err
	}
	if err := ApplyCLIOverrides(d.params, d.opts.XOpts); err != nil {
		return err
	}
	if err := d.applyPollInterval(); err != nil {
		return err
	}
	MirrorParameters(d.params, d.dstate)
	return nil
}

func (d *Driver) cleanupAndExit() {
	d.setState(StateCleanup)
	if d.callbacks != nil {
		d.callbacks.Cleanup(d)
	}
	if d.ctrlSocket != nil {
		_ = d.ctrlSocket.Close()
	}
	if d.devLock != nil {
		_ = d.devLock.Release()
	}
	if d.sigs != nil {
		d.sigs.stop()
	}
	_ = os.Remove(d.pidFileResolved())
	d.setState(StateExited)
}

func (d *Driver) pidFileResolved() string {
	if d.pidFilePath != "" {
		return d.pidFilePath
	}
	return d.pidFileDefault()
}

func (d *Driver) writePidFile() error {
	d.pidFilePath = d.pidFileDefault()
	return os.WriteFile(d.pidFilePath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}
