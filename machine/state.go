package machine

import (
	"github.com/fwsender/fws/firmware"
)

// State is the authoritative controller machine state, driven exclusively by
// parsed firmware messages.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateIdle
	StateRun
	StateHold
	StateAlarm
	StateDoor
	StateHome
	StateCheck
	StateSleep
	StateUnknown
)

var stateNames = map[State]string{
	StateDisconnected: "Disconnected",
	StateConnecting:   "Connecting",
	StateIdle:         "Idle",
	StateRun:          "Run",
	StateHold:         "Hold",
	StateAlarm:        "Alarm",
	StateDoor:         "Door",
	StateHome:         "Home",
	StateCheck:        "Check",
	StateSleep:        "Sleep",
	StateUnknown:      "Unknown",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// normalizeState maps a dialect status report state name to a State. ok is
// false for names no dialect is known to emit.
func normalizeState(name string) (State, bool) {
	switch name {
	case "Idle", "Ready", "Stop", "End":
		return StateIdle, true
	case "Run", "Jog", "Cycle", "Probe":
		return StateRun, true
	case "Hold":
		return StateHold, true
	case "Alarm":
		return StateAlarm, true
	case "Door":
		return StateDoor, true
	case "Home", "Homing":
		return StateHome, true
	case "Check":
		return StateCheck, true
	case "Sleep":
		return StateSleep, true
	case "Init":
		return StateConnecting, true
	}
	return StateUnknown, false
}

// stateMachine applies parsed firmware messages to the current state. Not
// safe for concurrent use: the Controller serializes access.
type stateMachine struct {
	state State
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		state: StateDisconnected,
	}
}

func (sm *stateMachine) State() State {
	return sm.state
}

// apply returns the transition the message causes, if any. Rules:
//   - an alarm forces Alarm regardless of prior state;
//   - a status report applies its normalized state name;
//   - an unrecognized state name holds the previous state;
//   - error responses never change state (the firmware remains in whatever
//     state its next status report announces).
func (sm *stateMachine) apply(m firmware.Message) (from, to State, changed bool) {
	from = sm.state

	switch m := m.(type) {
	case *firmware.AlarmMessage:
		to = StateAlarm
	case *firmware.StatusReportMessage:
		state, ok := normalizeState(m.MachineState.Name)
		if !ok {
			return from, from, false
		}
		to = state
	default:
		return from, from, false
	}

	if to == from {
		return from, to, false
	}
	sm.state = to
	return from, to, true
}

// force sets the state unconditionally, for transport-driven transitions
// (Connecting, Disconnected).
func (sm *stateMachine) force(to State) (from State, changed bool) {
	from = sm.state
	if from == to {
		return from, false
	}
	sm.state = to
	return from, true
}
