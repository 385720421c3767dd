package driver

import (
	"os"
	"os/signal"
	"syscall"
)

// signalCmd is the decoded meaning of a received signal, spec.md §5's
// table folded into a closed Go type instead of the C side's raw
// signal numbers doubling as sentinel values (SIGCMD_EXIT == -SIGTERM
// etc. in original_source/drivers/main.h).
type signalCmd int

const (
	sigNone signalCmd = iota
	sigReload
	sigExit
	sigReloadOrExit
	sigDataDump
)

// signalWatcher turns os/signal's channel delivery into the
// "self-pipe" wait-point spec.md §9 calls for: Go's channel already
// is that self-pipe, so no raw pipe/fd plumbing is needed, only a
// translation table from os.Signal to signalCmd.
type signalWatcher struct {
	raw chan os.Signal
	cmd chan signalCmd
}

func newSignalWatcher() *signalWatcher {
	w := &signalWatcher{
		raw: make(chan os.Signal, 8),
		cmd: make(chan signalCmd, 8),
	}
	signal.Notify(w.raw,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGUSR1,
		syscall.SIGURG,
	)
	go w.translate()
	return w
}

func (w *signalWatcher) translate() {
	for s := range w.raw {
		switch s {
		case syscall.SIGHUP:
			w.cmd <- sigReload
		case syscall.SIGTERM, syscall.SIGINT:
			w.cmd <- sigExit
		case syscall.SIGUSR1:
			w.cmd <- sigReloadOrExit
		case syscall.SIGURG:
			w.cmd <- sigDataDump
		}
	}
}

func (w *signalWatcher) stop() {
	signal.Stop(w.raw)
	close(w.raw)
}
