package driver

import (
	"github.com/coreos/go-systemd/v22/daemon"
	log "github.com/hashicorp/go-hclog"
)

// supervisorNotifier wraps sd_notify calls to the process supervisor
// (systemd, if the driver was launched as a service unit). It is a
// best-effort signal, never a dependency the lifecycle blocks on —
// NOTIFY_SOCKET is simply unset when there's no supervisor to talk
// to, and SdNotify returns (false, nil) in that case.
//
// This repurposes the teacher's github.com/coreos/go-systemd
// dependency: the nspawn-specific `machine1`/`import1` D-Bus
// connections are gone (see DESIGN.md), but the `daemon` subpackage
// of the same module is what remains wired.
type supervisorNotifier struct {
	logger  log.Logger
	enabled bool
}

func newSupervisorNotifier(logger log.Logger) *supervisorNotifier {
	return &supervisorNotifier{logger: logger, enabled: true}
}

func (n *supervisorNotifier) ready() {
	n.send(daemon.SdNotifyReady)
}

func (n *supervisorNotifier) stopping() {
	n.send(daemon.SdNotifyStopping)
}

func (n *supervisorNotifier) watchdog() {
	n.send(daemon.SdNotifyWatchdog)
}

func (n *supervisorNotifier) send(state string) {
	if !n.enabled {
		return
	}
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if !sent {
		// no NOTIFY_SOCKET; nothing to do, and nothing to warn about
		n.enabled = false
	}
}
