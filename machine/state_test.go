package machine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fwsender/fws/firmware"
)

func statusReport(stateName string) *firmware.StatusReportMessage {
	return &firmware.StatusReportMessage{
		Raw:          "<" + stateName + ">",
		MachineState: firmware.MachineState{Name: stateName},
	}
}

func TestStateMachineStatusReports(t *testing.T) {
	for name, expected := range map[string]State{
		"Idle":  StateIdle,
		"Ready": StateIdle,
		"Stop":  StateIdle,
		"End":   StateIdle,
		"Run":   StateRun,
		"Jog":   StateRun,
		"Cycle": StateRun,
		"Probe": StateRun,
		"Hold":  StateHold,
		"Alarm": StateAlarm,
		"Door":  StateDoor,
		"Home":  StateHome,
		"Check": StateCheck,
		"Sleep": StateSleep,
		"Init":  StateConnecting,
	} {
		t.Run(name, func(t *testing.T) {
			sm := newStateMachine()
			from, to, changed := sm.apply(statusReport(name))
			require.True(t, changed)
			require.Equal(t, StateDisconnected, from)
			require.Equal(t, expected, to)
			require.Equal(t, expected, sm.State())
		})
	}
}

func TestStateMachineUnrecognizedStateHoldsPrevious(t *testing.T) {
	sm := newStateMachine()

	_, _, changed := sm.apply(statusReport("Run"))
	require.True(t, changed)

	from, to, changed := sm.apply(statusReport("Glorp"))
	require.False(t, changed)
	require.Equal(t, StateRun, from)
	require.Equal(t, StateRun, to)
	require.Equal(t, StateRun, sm.State())
}

func TestStateMachineAlarmForcesAlarm(t *testing.T) {
	sm := newStateMachine()

	sm.apply(statusReport("Run"))

	from, to, changed := sm.apply(&firmware.AlarmMessage{Raw: "ALARM:1", Code: 1})
	require.True(t, changed)
	require.Equal(t, StateRun, from)
	require.Equal(t, StateAlarm, to)
}

func TestStateMachineErrorsNeverChangeState(t *testing.T) {
	sm := newStateMachine()

	sm.apply(statusReport("Run"))

	_, _, changed := sm.apply(&firmware.ErrorMessage{Raw: "error:20", Code: 20})
	require.False(t, changed)
	require.Equal(t, StateRun, sm.State())

	_, _, changed = sm.apply(&firmware.OkMessage{Raw: "ok"})
	require.False(t, changed)
	require.Equal(t, StateRun, sm.State())
}

func TestStateMachineSameStateNoTransition(t *testing.T) {
	sm := newStateMachine()

	_, _, changed := sm.apply(statusReport("Idle"))
	require.True(t, changed)

	_, _, changed = sm.apply(statusReport("Idle"))
	require.False(t, changed)
}

func TestStateMachineForce(t *testing.T) {
	sm := newStateMachine()

	from, changed := sm.force(StateConnecting)
	require.True(t, changed)
	require.Equal(t, StateDisconnected, from)

	_, changed = sm.force(StateConnecting)
	require.False(t, changed)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Idle", StateIdle.String())
	require.Equal(t, "Disconnected", StateDisconnected.String())
	require.Equal(t, "Unknown", State(99).String())
}
