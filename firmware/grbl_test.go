package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGrblParseLine(t *testing.T) {
	p := &GrblProtocol{}

	t.Run("ok", func(t *testing.T) {
		m := p.ParseLine("ok")
		require.IsType(t, &OkMessage{}, m)
		require.Equal(t, MessageTypeResponse, m.Type())
		require.True(t, p.ConsumesSlot(m))
	})

	t.Run("error with code", func(t *testing.T) {
		m := p.ParseLine("error:20")
		errorMessage, ok := m.(*ErrorMessage)
		require.True(t, ok)
		require.Equal(t, 20, errorMessage.Code)
		require.Contains(t, errorMessage.Text, "Unsupported or invalid g-code")
		require.True(t, p.ConsumesSlot(m))
	})

	t.Run("error with unknown code", func(t *testing.T) {
		m := p.ParseLine("error:999")
		errorMessage, ok := m.(*ErrorMessage)
		require.True(t, ok)
		require.Equal(t, 999, errorMessage.Code)
		require.Empty(t, errorMessage.Text)
	})

	t.Run("alarm", func(t *testing.T) {
		m := p.ParseLine("ALARM:1")
		alarmMessage, ok := m.(*AlarmMessage)
		require.True(t, ok)
		require.Equal(t, 1, alarmMessage.Code)
		require.Contains(t, alarmMessage.Text, "Hard limit")
		require.Equal(t, MessageTypePush, m.Type())
		require.False(t, p.ConsumesSlot(m))
	})

	t.Run("welcome banner", func(t *testing.T) {
		m := p.ParseLine("Grbl 1.1h ['$' for help]")
		require.IsType(t, &WelcomeMessage{}, m)
		require.False(t, p.ConsumesSlot(m))
	})

	t.Run("feedback", func(t *testing.T) {
		m := p.ParseLine("[MSG:Pgm End]")
		feedbackMessage, ok := m.(*FeedbackMessage)
		require.True(t, ok)
		require.Equal(t, "Pgm End", feedbackMessage.Text)
	})

	t.Run("unknown", func(t *testing.T) {
		m := p.ParseLine("$$")
		require.IsType(t, &UnknownMessage{}, m)
		require.False(t, p.ConsumesSlot(m))
	})
}

func TestGrblParseStatusReport(t *testing.T) {
	p := &GrblProtocol{}

	t.Run("full report", func(t *testing.T) {
		m := p.ParseLine("<Idle|MPos:1.000,2.000,-3.500|Bf:15,128|FS:500.0,8000|Ov:100,100,100>")
		report, ok := m.(*StatusReportMessage)
		require.True(t, ok)
		require.Equal(t, "Idle", report.MachineState.Name)
		require.Nil(t, report.MachineState.SubState)
		require.NotNil(t, report.MachinePosition)
		require.Equal(t, 1.0, report.MachinePosition.X)
		require.Equal(t, 2.0, report.MachinePosition.Y)
		require.Equal(t, -3.5, report.MachinePosition.Z)
		require.Nil(t, report.WorkPosition)
		require.NotNil(t, report.BufferState)
		require.Equal(t, 15, report.BufferState.AvailableBlocks)
		require.Equal(t, 128, report.BufferState.AvailableBytes)
		require.NotNil(t, report.Feed)
		require.Equal(t, 500.0, *report.Feed)
		require.NotNil(t, report.SpindleSpeed)
		require.Equal(t, 8000.0, *report.SpindleSpeed)
		require.NotNil(t, report.OverrideValues)
		require.Equal(t, 100.0, report.OverrideValues.Feed)
		// Push messages never consume a pending slot.
		require.Equal(t, MessageTypePush, m.Type())
		require.False(t, p.ConsumesSlot(m))
	})

	t.Run("sub-state", func(t *testing.T) {
		m := p.ParseLine("<Hold:1|WPos:0.000,0.000,0.000>")
		report, ok := m.(*StatusReportMessage)
		require.True(t, ok)
		require.Equal(t, "Hold", report.MachineState.Name)
		require.NotNil(t, report.MachineState.SubState)
		require.Equal(t, 1, *report.MachineState.SubState)
		require.NotNil(t, report.WorkPosition)
	})

	t.Run("fourth axis", func(t *testing.T) {
		m := p.ParseLine("<Run|MPos:1.000,2.000,3.000,45.000>")
		report, ok := m.(*StatusReportMessage)
		require.True(t, ok)
		require.NotNil(t, report.MachinePosition.A)
		require.Equal(t, 45.0, *report.MachinePosition.A)
	})

	t.Run("pins and line number", func(t *testing.T) {
		m := p.ParseLine("<Run|MPos:0.000,0.000,0.000|Ln:42|Pn:XYZ>")
		report, ok := m.(*StatusReportMessage)
		require.True(t, ok)
		require.NotNil(t, report.LineNumber)
		require.Equal(t, 42, *report.LineNumber)
		require.Equal(t, "XYZ", report.Pins)
	})

	t.Run("malformed degrades to unknown", func(t *testing.T) {
		for _, line := range []string{
			"<Idle|MPos:1.0,2.0",
			"<|MPos:1.0,2.0,3.0>",
			"<Idle|MPos:a,b,c>",
			"<Idle|MPos:1.0>",
			"<Idle|garbage>",
		} {
			m := p.ParseLine(line)
			require.IsType(t, &UnknownMessage{}, m, "line: %#v", line)
		}
	})
}

func TestGrblDetectVersion(t *testing.T) {
	p := &GrblProtocol{}

	v, ok := p.DetectVersion("Grbl 1.1h ['$' for help]")
	require.True(t, ok)
	require.Equal(t, Version{Major: 1, Minor: 1, Build: "h"}, v)

	v, ok = p.DetectVersion("Grbl 0.9j ['$' for help]")
	require.True(t, ok)
	require.Equal(t, Version{Major: 0, Minor: 9, Build: "j"}, v)

	_, ok = p.DetectVersion("something else")
	require.False(t, ok)
}

func TestGrblCapabilities(t *testing.T) {
	p := &GrblProtocol{}

	t.Run("v1.1", func(t *testing.T) {
		caps := p.Capabilities(Version{Major: 1, Minor: 1, Build: "h"})
		require.True(t, caps.Jogging)
		require.True(t, caps.RealTimeOverrides)
		require.True(t, caps.Probing)
		require.Equal(t, "XYZ", caps.SupportedAxes)
	})

	t.Run("v0.9 conservative", func(t *testing.T) {
		caps := p.Capabilities(Version{Major: 0, Minor: 9, Build: "j"})
		require.False(t, caps.Jogging)
		require.False(t, caps.RealTimeOverrides)
		require.True(t, caps.Probing)
	})

	t.Run("undetected conservative", func(t *testing.T) {
		caps := p.Capabilities(Version{})
		require.False(t, caps.Jogging)
		require.False(t, caps.RealTimeOverrides)
	})
}

func TestGrblCommands(t *testing.T) {
	p := &GrblProtocol{}

	t.Run("jog", func(t *testing.T) {
		commands, err := p.Jog('X', 10.5, 500)
		require.NoError(t, err)
		require.Len(t, commands, 1)
		require.Equal(t, CommandQueued, commands[0].Kind)
		require.Equal(t, "$J=G91 X10.5 F500", commands[0].Line)
	})

	t.Run("jog cancel", func(t *testing.T) {
		command, err := p.JogCancel()
		require.NoError(t, err)
		require.Equal(t, CommandRealTime, command.Kind)
		require.Equal(t, RealTimeJogCancel, command.Byte)
	})

	t.Run("spindle", func(t *testing.T) {
		command, err := p.SpindleOn(SpindleClockwise, 1000)
		require.NoError(t, err)
		require.Equal(t, "M3 S1000", command.Line)

		command, err = p.SpindleOn(SpindleCounterClockwise, 500)
		require.NoError(t, err)
		require.Equal(t, "M4 S500", command.Line)

		require.Equal(t, "M5", p.SpindleOff().Line)
	})

	t.Run("probe", func(t *testing.T) {
		command, err := p.Probe(ProbeTowardStop, 'Z', -10, 100)
		require.NoError(t, err)
		require.Equal(t, "G38.2 Z-10 F100", command.Line)

		command, err = p.Probe(ProbeAway, 'Z', 5, 50)
		require.NoError(t, err)
		require.Equal(t, "G38.5 Z5 F50", command.Line)
	})

	t.Run("real-time", func(t *testing.T) {
		require.Equal(t, RealTimeStatusReportQuery, p.StatusQuery().Byte)
		require.Equal(t, RealTimeSoftReset, p.SoftReset().Byte)
		require.Equal(t, RealTimeFeedHold, p.FeedHold().Byte)
		require.Equal(t, RealTimeCycleStartResume, p.CycleStart().Byte)
		require.Equal(t, CommandRealTime, p.StatusQuery().Kind)
	})

	t.Run("home and unlock", func(t *testing.T) {
		require.Equal(t, "$H", p.Home().Line)
		require.Equal(t, "$X", p.Unlock().Line)
	})
}

// Creator output must be accepted back by the parser as a response-closing
// exchange: submit a queued command, firmware answers ok.
func TestGrblCreatedCommandsRoundTrip(t *testing.T) {
	p := &GrblProtocol{}

	commands, err := p.Jog('Y', -2.5, 1000)
	require.NoError(t, err)
	for _, command := range commands {
		require.Equal(t, CommandQueued, command.Kind)
		require.NotEmpty(t, command.Line)
	}

	m := p.ParseLine("ok")
	require.True(t, p.ConsumesSlot(m))
}
