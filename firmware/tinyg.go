package firmware

import (
	"encoding/json"
	"fmt"
	"strings"

	iFmt "github.com/fwsender/fws/internal/fmt"
)

// TinyG status codes, from the footer of response envelopes. Zero is success.
var tinygStatusTexts = map[int]string{
	1:   "generic error",
	2:   "buffer full - fatal",
	3:   "buffer full - non-fatal",
	20:  "internal error",
	23:  "unrecognized command or config name",
	24:  "parameter is read-only",
	27:  "malformed command input",
	100: "generic gcode input error",
	102: "gcode bad number format",
	108: "gcode axis word missing",
	203: "machine is alarmed - command not processed",
	204: "limit switch hit - shutdown occurred",
}

// TinyG machine state codes from the "stat" field of status reports.
var tinygStatNames = map[int]string{
	0:  "Init",
	1:  "Ready",
	2:  "Alarm",
	3:  "Stop",
	4:  "End",
	5:  "Run",
	6:  "Hold",
	7:  "Probe",
	8:  "Cycle",
	9:  "Home",
	11: "Jog",
}

type tinygStatusReport struct {
	Stat *int     `json:"stat"`
	PosX *float64 `json:"posx"`
	PosY *float64 `json:"posy"`
	PosZ *float64 `json:"posz"`
	PosA *float64 `json:"posa"`
	MpoX *float64 `json:"mpox"`
	MpoY *float64 `json:"mpoy"`
	MpoZ *float64 `json:"mpoz"`
	Feed *float64 `json:"feed"`
	Vel  *float64 `json:"vel"`
	Sps  *float64 `json:"sps"`
	Line *int     `json:"line"`
}

type tinygException struct {
	St  int    `json:"st"`
	Msg string `json:"msg"`
}

type tinygEnvelope struct {
	R  map[string]json.RawMessage `json:"r"`
	F  []float64                  `json:"f"`
	SR *tinygStatusReport         `json:"sr"`
	QR *int                       `json:"qr"`
	ER *tinygException            `json:"er"`
}

// TinyGProtocol implements the TinyG wire protocol in JSON response mode:
// queued commands are acknowledged with {"r":{...},"f":[...]} envelopes whose
// footer carries the status code, status reports arrive as {"sr":{...}}
// pushes, and {"qr":N} queue reports are diagnostic only.
type TinyGProtocol struct{}

var _ Protocol = &TinyGProtocol{}

func (p *TinyGProtocol) Dialect() Dialect {
	return DialectTinyG
}

//gocyclo:ignore
func (p *TinyGProtocol) ParseLine(line string) Message {
	if !strings.HasPrefix(line, "{") {
		return &UnknownMessage{Raw: line}
	}

	var envelope tinygEnvelope
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return &UnknownMessage{Raw: line}
	}

	if envelope.ER != nil {
		return &AlarmMessage{Raw: line, Code: envelope.ER.St, Text: envelope.ER.Msg}
	}

	if envelope.SR != nil {
		return newTinygStatusReportMessage(line, envelope.SR)
	}

	if envelope.QR != nil {
		return &QueueReportMessage{Raw: line, Depth: *envelope.QR}
	}

	if envelope.R != nil {
		// Boot header: response envelope carrying the firmware build/version
		// fields, pushed unsolicited after reset.
		if _, ok := envelope.R["fb"]; ok {
			return &WelcomeMessage{Raw: line}
		}
		if _, ok := envelope.R["fv"]; ok {
			return &WelcomeMessage{Raw: line}
		}

		if sr, ok := envelope.R["sr"]; ok {
			var report tinygStatusReport
			if err := json.Unmarshal(sr, &report); err == nil {
				return newTinygStatusReportMessage(line, &report)
			}
		}

		status := 0
		if len(envelope.F) >= 2 {
			status = int(envelope.F[1])
		}
		if status == 0 {
			return &OkMessage{Raw: line}
		}
		return &ErrorMessage{Raw: line, Code: status, Text: tinygStatusTexts[status]}
	}

	return &UnknownMessage{Raw: line}
}

func newTinygStatusReportMessage(line string, sr *tinygStatusReport) *StatusReportMessage {
	report := &StatusReportMessage{
		Raw: line,
	}

	report.MachineState.Name = "Unknown"
	if sr.Stat != nil {
		if name, ok := tinygStatNames[*sr.Stat]; ok {
			report.MachineState.Name = name
		}
	}

	if sr.PosX != nil || sr.PosY != nil || sr.PosZ != nil {
		position := &Position{}
		if sr.PosX != nil {
			position.X = *sr.PosX
		}
		if sr.PosY != nil {
			position.Y = *sr.PosY
		}
		if sr.PosZ != nil {
			position.Z = *sr.PosZ
		}
		position.A = sr.PosA
		report.WorkPosition = position
	}

	if sr.MpoX != nil || sr.MpoY != nil || sr.MpoZ != nil {
		position := &Position{}
		if sr.MpoX != nil {
			position.X = *sr.MpoX
		}
		if sr.MpoY != nil {
			position.Y = *sr.MpoY
		}
		if sr.MpoZ != nil {
			position.Z = *sr.MpoZ
		}
		report.MachinePosition = position
	}

	if sr.Feed != nil {
		report.Feed = sr.Feed
	} else if sr.Vel != nil {
		report.Feed = sr.Vel
	}
	report.SpindleSpeed = sr.Sps
	report.LineNumber = sr.Line

	return report
}

// ConsumesSlot: TinyG answers every queued line with a {"r":...} response
// envelope, including solicited status reports, so consumption is keyed on
// the envelope rather than the variant alone.
func (p *TinyGProtocol) ConsumesSlot(m Message) bool {
	if m.Type() == MessageTypeResponse {
		return true
	}
	if report, ok := m.(*StatusReportMessage); ok {
		return strings.HasPrefix(report.Raw, `{"r"`)
	}
	return false
}

// DetectVersion reads the firmware build number ("fb") from the boot header,
// eg {"r":{"fv":0.97,"fb":440.20,...},"f":[1,0,1]} -> 440.20.
func (p *TinyGProtocol) DetectVersion(line string) (Version, bool) {
	var envelope tinygEnvelope
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return Version{}, false
	}
	if envelope.R == nil {
		return Version{}, false
	}
	raw, ok := envelope.R["fb"]
	if !ok {
		return Version{}, false
	}
	var fb json.Number
	if err := json.Unmarshal(raw, &fb); err != nil {
		return Version{}, false
	}
	v, err := ParseVersion(fb.String())
	if err != nil {
		return Version{}, false
	}
	return v, true
}

func (p *TinyGProtocol) Capabilities(v Version) CapabilitySet {
	// Jogging is a plain relative feed move here, not a dedicated mode, so it
	// is available at any version.
	return CapabilitySet{
		MaxAxes:         6,
		SupportedAxes:   "XYZABC",
		Jogging:         true,
		Probing:         true,
		MaxSpindleSpeed: 10000,
	}
}

// Jog: TinyG has no dedicated jog mode; jog is a relative feed move followed
// by a restore of absolute distance mode.
func (p *TinyGProtocol) Jog(axis byte, distance, feedRate float64) ([]Command, error) {
	return []Command{
		Queued(fmt.Sprintf(
			"G91 G1 %c%s F%s",
			axis, iFmt.SprintFloat(distance, 4), iFmt.SprintFloat(feedRate, 1),
		)),
		Queued("G90"),
	}, nil
}

func (p *TinyGProtocol) JogCancel() (Command, error) {
	// Feed hold plus queue flush is the TinyG idiom for aborting a move; the
	// hold must be issued first by the caller. Queue flush alone is the
	// closest single-command cancellation.
	return RealTime(RealTimeQueueFlush), nil
}

func (p *TinyGProtocol) SpindleOn(direction SpindleDirection, speed float64) (Command, error) {
	word := "M3"
	if direction == SpindleCounterClockwise {
		word = "M4"
	}
	return Queued(fmt.Sprintf("%s S%s", word, iFmt.SprintFloat(speed, 1))), nil
}

func (p *TinyGProtocol) SpindleOff() Command {
	return Queued("M5")
}

func (p *TinyGProtocol) Home() Command {
	return Queued("G28.2 X0 Y0 Z0")
}

func (p *TinyGProtocol) Unlock() Command {
	return Queued(`{"clear":null}`)
}

func (p *TinyGProtocol) Probe(probeType ProbeType, axis byte, target, feedRate float64) (Command, error) {
	// TinyG only implements the G38.2 probe cycle.
	if probeType != ProbeTowardStop {
		return Command{}, fmt.Errorf("%w: probe type %#v", ErrUnsupportedIntent, probeType)
	}
	return Queued(fmt.Sprintf(
		"G38.2 %c%s F%s",
		axis, iFmt.SprintFloat(target, 4), iFmt.SprintFloat(feedRate, 1),
	)), nil
}

func (p *TinyGProtocol) StatusQuery() Command {
	return Queued(`{"sr":null}`)
}

func (p *TinyGProtocol) SoftReset() Command {
	return RealTime(RealTimeSoftReset)
}

func (p *TinyGProtocol) FeedHold() Command {
	return RealTime(RealTimeFeedHold)
}

func (p *TinyGProtocol) CycleStart() Command {
	return RealTime(RealTimeCycleStartResume)
}
