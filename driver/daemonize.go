package driver

import (
	"fmt"
	"os"
	"syscall"
)

// daemonizedEnv marks the re-exec'd child so it doesn't fork again.
const daemonizedEnv = "NUTDRV_DAEMONIZED"

// daemonize implements spec.md §4.7 boot step 11: fork to background
// unless -D or -q indicates the caller wants foreground operation.
// Grounded on the k3s HandleInit fork/exec shape (ForkExec plus
// SysProcAttr{Setsid: true} to leave the controlling terminal); unlike
// that PID-1 reaper, the guard here is an env var since this process
// never expects to be PID 1.
func (d *Driver) daemonize() error {
	if d.opts.DCount > 0 || d.opts.Quiet {
		return nil
	}
	if os.Getenv(daemonizedEnv) == "1" {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fatalf(err, "getwd before daemonizing")
	}

	pattrs := &syscall.ProcAttr{
		Dir: wd,
		Env: append(os.Environ(), daemonizedEnv+"=1"),
		Sys: &syscall.SysProcAttr{Setsid: true},
		Files: []uintptr{
			uintptr(syscall.Stdin),
			uintptr(syscall.Stdout),
			uintptr(syscall.Stderr),
		},
	}
	argv0, err := os.Executable()
	if err != nil {
		argv0 = os.Args[0]
	}
	if _, err := syscall.ForkExec(argv0, os.Args, pattrs); err != nil {
		return fatalf(err, "forking to background")
	}

	fmt.Fprintln(os.Stdout, "forked to background")
	os.Exit(0)
	return nil
}
