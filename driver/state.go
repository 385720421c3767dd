package driver

// LifecycleState is one of the driver-process states of spec.md §3
// "Driver-lifecycle state" / §4.7.
type LifecycleState int

const (
	StateBooting LifecycleState = iota
	StateInitUps
	StateInitInfo
	StateRunning
	StateReconnecting
	StateReloading
	StateShutdown
	StateCleanup
	StateExited
)

func (s LifecycleState) String() string {
	switch s {
	case StateBooting:
		return "Booting"
	case StateInitUps:
		return "InitUps"
	case StateInitInfo:
		return "InitInfo"
	case StateRunning:
		return "Running"
	case StateReconnecting:
		return "Reconnecting"
	case StateReloading:
		return "Reloading"
	case StateShutdown:
		return "Shutdown"
	case StateCleanup:
		return "Cleanup"
	case StateExited:
		return "Exited"
	default:
		return "Unknown"
	}
}

// driverStateValue is the vocabulary the `driver.state` DState
// variable is restricted to (spec.md §6.4), exposed for UI purposes
// distinct from the internal LifecycleState above.
type driverStateValue string

const (
	driverStateReconnectTrying     driverStateValue = "reconnect.trying"
	driverStateReconnectUpdateinfo driverStateValue = "reconnect.updateinfo"
	driverStateQuiet               driverStateValue = "quiet"
	driverStateWait                driverStateValue = "wait"
)

// setState transitions the lifecycle and mirrors it into the logger;
// it never mutates DState directly (driver.state is a narrower
// enum — see setDriverState).
func (d *Driver) setState(s LifecycleState) {
	d.logger.Debug("lifecycle transition", "from", d.state.String(), "to", s.String())
	d.state = s
}

// driverStateValues is the closed vocabulary registered against
// driver.state via AddEnum, so a SET against it (if ever made RW)
// validates the same way any other enum-backed variable does.
var driverStateValues = []driverStateValue{
	driverStateReconnectTrying,
	driverStateReconnectUpdateinfo,
	driverStateQuiet,
	driverStateWait,
}

// registerDriverStateEnum seeds driver.state with an initial value and
// its full enum vocabulary (spec.md §6.4), called once from boot.
func (d *Driver) registerDriverStateEnum() {
	d.dstate.Setinfo("driver.state", string(driverStateQuiet))
	for _, v := range driverStateValues {
		d.dstate.AddEnum("driver.state", string(v))
	}
}

func (d *Driver) setDriverState(v driverStateValue) {
	d.dstate.Setinfo("driver.state", string(v))
}
