package machine

import (
	"time"

	"github.com/fwsender/fws/firmware"
)

// Event is delivered to every registered listener, in the order events were
// produced.
type Event interface {
	event()
}

// StateChangedEvent reports an accepted controller state transition.
type StateChangedEvent struct {
	From State
	To   State
}

// StatusUpdatedEvent carries the latest parsed status report.
type StatusUpdatedEvent struct {
	Report *firmware.StatusReportMessage
}

// CommandAcknowledgedEvent reports the firmware accepted the queued command.
type CommandAcknowledgedEvent struct {
	Line string
}

// CommandFailedEvent reports the firmware rejected the queued command.
type CommandFailedEvent struct {
	Line    string
	Code    int
	Message string
}

// AlarmRaisedEvent reports an asynchronous firmware alarm.
type AlarmRaisedEvent struct {
	Code int
	Err  error
}

// VersionDetectedEvent reports the firmware version detected from the banner,
// together with the capability set derived from it.
type VersionDetectedEvent struct {
	Version      firmware.Version
	Capabilities firmware.CapabilitySet
}

// ConnectionLostEvent reports the transport failed; the controller is
// Disconnected and the application decides whether to reconnect.
type ConnectionLostEvent struct {
	Err error
}

// ConnectionStalledEvent reports that no message of any kind arrived within
// the watchdog window while connected.
type ConnectionStalledEvent struct {
	Since time.Duration
}

// DiagnosticEvent surfaces protocol anomalies that were recovered from, such
// as flow-control counter resynchronization after excess acknowledgements.
type DiagnosticEvent struct {
	Text string
}

func (StateChangedEvent) event()        {}
func (StatusUpdatedEvent) event()       {}
func (CommandAcknowledgedEvent) event() {}
func (CommandFailedEvent) event()       {}
func (AlarmRaisedEvent) event()         {}
func (VersionDetectedEvent) event()     {}
func (ConnectionLostEvent) event()      {}
func (ConnectionStalledEvent) event()   {}
func (DiagnosticEvent) event()          {}
