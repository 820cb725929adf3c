package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTinyGParseLine(t *testing.T) {
	p := &TinyGProtocol{}

	t.Run("ok response envelope", func(t *testing.T) {
		m := p.ParseLine(`{"r":{},"f":[1,0,6]}`)
		require.IsType(t, &OkMessage{}, m)
		require.True(t, p.ConsumesSlot(m))
	})

	t.Run("error response envelope", func(t *testing.T) {
		m := p.ParseLine(`{"r":{},"f":[1,23,6]}`)
		errorMessage, ok := m.(*ErrorMessage)
		require.True(t, ok)
		require.Equal(t, 23, errorMessage.Code)
		require.Contains(t, errorMessage.Text, "unrecognized command")
		require.True(t, p.ConsumesSlot(m))
	})

	t.Run("status report push", func(t *testing.T) {
		m := p.ParseLine(`{"sr":{"stat":5,"posx":1.5,"posy":2.0,"posz":-0.5,"vel":500.0,"line":12}}`)
		report, ok := m.(*StatusReportMessage)
		require.True(t, ok)
		require.Equal(t, "Run", report.MachineState.Name)
		require.NotNil(t, report.WorkPosition)
		require.Equal(t, 1.5, report.WorkPosition.X)
		require.Equal(t, 2.0, report.WorkPosition.Y)
		require.Equal(t, -0.5, report.WorkPosition.Z)
		require.NotNil(t, report.Feed)
		require.Equal(t, 500.0, *report.Feed)
		require.NotNil(t, report.LineNumber)
		require.Equal(t, 12, *report.LineNumber)
		// Unsolicited pushes never consume a slot.
		require.False(t, p.ConsumesSlot(m))
	})

	t.Run("solicited status report consumes", func(t *testing.T) {
		m := p.ParseLine(`{"r":{"sr":{"stat":3,"posx":0.0,"posy":0.0,"posz":0.0}},"f":[1,0,10]}`)
		report, ok := m.(*StatusReportMessage)
		require.True(t, ok)
		require.Equal(t, "Stop", report.MachineState.Name)
		require.True(t, p.ConsumesSlot(m))
	})

	t.Run("queue report", func(t *testing.T) {
		m := p.ParseLine(`{"qr":28}`)
		queueReport, ok := m.(*QueueReportMessage)
		require.True(t, ok)
		require.Equal(t, 28, queueReport.Depth)
		require.False(t, p.ConsumesSlot(m))
	})

	t.Run("exception report", func(t *testing.T) {
		m := p.ParseLine(`{"er":{"fb":440.20,"st":204,"msg":"Limit switch hit"}}`)
		alarmMessage, ok := m.(*AlarmMessage)
		require.True(t, ok)
		require.Equal(t, 204, alarmMessage.Code)
		require.Equal(t, "Limit switch hit", alarmMessage.Text)
		require.False(t, p.ConsumesSlot(m))
	})

	t.Run("boot header", func(t *testing.T) {
		m := p.ParseLine(`{"r":{"fv":0.97,"fb":440.20,"id":"2X3548-QMN"},"f":[1,0,1]}`)
		require.IsType(t, &WelcomeMessage{}, m)
	})

	t.Run("unknown lines", func(t *testing.T) {
		require.IsType(t, &UnknownMessage{}, p.ParseLine("ok"))
		require.IsType(t, &UnknownMessage{}, p.ParseLine("{not json"))
		require.IsType(t, &UnknownMessage{}, p.ParseLine(`{"x":1}`))
	})
}

func TestTinyGStatusReportStates(t *testing.T) {
	p := &TinyGProtocol{}

	for stat, expected := range map[string]string{
		`{"sr":{"stat":0}}`:  "Init",
		`{"sr":{"stat":2}}`:  "Alarm",
		`{"sr":{"stat":6}}`:  "Hold",
		`{"sr":{"stat":9}}`:  "Home",
		`{"sr":{"stat":11}}`: "Jog",
		`{"sr":{"stat":99}}`: "Unknown",
	} {
		report, ok := p.ParseLine(stat).(*StatusReportMessage)
		require.True(t, ok, "line: %#v", stat)
		require.Equal(t, expected, report.MachineState.Name)
	}
}

func TestTinyGDetectVersion(t *testing.T) {
	p := &TinyGProtocol{}

	v, ok := p.DetectVersion(`{"r":{"fv":0.97,"fb":440.20,"id":"2X3548-QMN"},"f":[1,0,1]}`)
	require.True(t, ok)
	require.Equal(t, Version{Major: 440, Minor: 20}, v)

	_, ok = p.DetectVersion(`{"sr":{"stat":5}}`)
	require.False(t, ok)
	_, ok = p.DetectVersion("Grbl 1.1h")
	require.False(t, ok)
}

func TestTinyGCommands(t *testing.T) {
	p := &TinyGProtocol{}

	t.Run("jog is relative move plus restore", func(t *testing.T) {
		commands, err := p.Jog('X', 5, 1000)
		require.NoError(t, err)
		require.Len(t, commands, 2)
		require.Equal(t, "G91 G1 X5 F1000", commands[0].Line)
		require.Equal(t, "G90", commands[1].Line)
	})

	t.Run("jog cancel", func(t *testing.T) {
		command, err := p.JogCancel()
		require.NoError(t, err)
		require.Equal(t, CommandRealTime, command.Kind)
		require.Equal(t, RealTimeQueueFlush, command.Byte)
	})

	t.Run("status query is queued", func(t *testing.T) {
		command := p.StatusQuery()
		require.Equal(t, CommandQueued, command.Kind)
		require.Equal(t, `{"sr":null}`, command.Line)
	})

	t.Run("probe", func(t *testing.T) {
		command, err := p.Probe(ProbeTowardStop, 'Z', -10, 100)
		require.NoError(t, err)
		require.Equal(t, "G38.2 Z-10 F100", command.Line)

		_, err = p.Probe(ProbeAway, 'Z', 5, 50)
		require.ErrorIs(t, err, ErrUnsupportedIntent)
	})

	t.Run("home and unlock", func(t *testing.T) {
		require.Equal(t, "G28.2 X0 Y0 Z0", p.Home().Line)
		require.Equal(t, `{"clear":null}`, p.Unlock().Line)
	})
}

func TestTinyGCapabilities(t *testing.T) {
	p := &TinyGProtocol{}

	// Jog is an ordinary relative move, available even when no version was
	// detected.
	for _, v := range []Version{{}, {Major: 440, Minor: 20}} {
		caps := p.Capabilities(v)
		require.True(t, caps.Jogging)
		require.True(t, caps.Probing)
		require.True(t, caps.HasAxis('A'))
	}
}

func TestG2CoreCapabilities(t *testing.T) {
	p := &G2CoreProtocol{}

	require.Equal(t, DialectG2Core, p.Dialect())

	caps := p.Capabilities(Version{Major: 101, Minor: 3})
	require.True(t, caps.ToolChange)
	require.True(t, caps.Jogging)

	caps = p.Capabilities(Version{Major: 100, Minor: 10})
	require.False(t, caps.ToolChange)

	// Undetected version stays conservative for version-gated features only.
	caps = p.Capabilities(Version{})
	require.False(t, caps.ToolChange)
	require.True(t, caps.Jogging)
}

func TestG2CoreParsesTinyGWire(t *testing.T) {
	p := &G2CoreProtocol{}

	require.IsType(t, &OkMessage{}, p.ParseLine(`{"r":{},"f":[1,0,6]}`))
	require.IsType(t, &StatusReportMessage{}, p.ParseLine(`{"sr":{"stat":5}}`))
}
