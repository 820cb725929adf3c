package firmware

import (
	"fmt"
	"strconv"
	"strings"

	iFmt "github.com/fwsender/fws/internal/fmt"
)

// Vanilla Grbl v1.1 error descriptions, keyed by error code.
var grblErrorTexts = map[int]string{
	1:  "G-code words consist of a letter and a value. Letter was not found",
	2:  "Numeric value format is not valid or missing an expected value",
	3:  "Grbl '$' system command was not recognized or supported",
	4:  "Negative value received for an expected positive value",
	5:  "Homing cycle is not enabled via settings",
	6:  "Minimum step pulse time must be greater than 3usec",
	7:  "EEPROM read failed. Reset and restored to default values",
	8:  "Grbl '$' command cannot be used unless Grbl is IDLE. Ensures smooth operation during a job",
	9:  "G-code locked out during alarm or jog state",
	10: "Soft limits cannot be enabled without homing also enabled",
	11: "Max characters per line exceeded. Line was not processed and executed",
	12: "(Compile Option) Grbl '$' setting value exceeds the maximum step rate supported",
	13: "Safety door detected as opened and door state initiated",
	14: "(Grbl-Mega Only) Build info or startup line exceeded EEPROM line length limit",
	15: "Jog target exceeds machine travel. Command ignored",
	16: "Jog command with no '=' or contains prohibited g-code",
	17: "Laser mode requires PWM output",
	20: "Unsupported or invalid g-code command found in block",
	21: "More than one g-code command from same modal group found in block",
	22: "Feed rate has not yet been set or is undefined",
	23: "G-code command in block requires an integer value",
	24: "Two G-code commands that both require the use of the XYZ axis words were detected in the block",
	25: "A G-code word was repeated in the block",
	26: "A G-code command implicitly or explicitly requires XYZ axis words in the block, but none were detected",
	27: "N line number value is not within the valid range of 1 - 9,999,999",
	28: "A G-code command was sent, but is missing some required P or L value words in the line",
	29: "Grbl supports six work coordinate systems G54-G59. G59.1, G59.2, and G59.3 are not supported",
	30: "The G53 G-code command requires either a G0 seek or G1 feed motion mode to be active. A different motion was active",
	31: "There are unused axis words in the block and G80 motion mode cancel is active",
	32: "A G2 or G3 arc was commanded but there are no XYZ axis words in the selected plane to trace the arc",
	33: "The motion command has an invalid target. G2, G3, and G38.2 generates this error, if the arc is impossible to generate or if the probe target is the current position",
	34: "A G2 or G3 arc, traced with the radius definition, had a mathematical error when computing the arc geometry. Try either breaking up the arc into semi-circles or quadrants, or redefine them with the arc offset definition",
	35: "A G2 or G3 arc, traced with the offset definition, is missing the IJK offset word in the selected plane to trace the arc",
	36: "There are unused, leftover G-code words that aren't used by any command in the block",
	37: "The G43.1 dynamic tool length offset command cannot apply an offset to an axis other than its configured axis. The Grbl default axis is the Z-axis",
	38: "Tool number greater than max supported value",
}

// Vanilla Grbl v1.1 alarm descriptions, keyed by alarm code.
var grblAlarmTexts = map[int]string{
	1:  "Hard limit triggered. Machine position is likely lost due to sudden and immediate halt. Re-homing is highly recommended.",
	2:  "G-code motion target exceeds machine travel. Machine position safely retained. Alarm may be unlocked.",
	3:  "Reset while in motion. Grbl cannot guarantee position. Lost steps are likely. Re-homing is highly recommended.",
	4:  "Probe fail. The probe is not in the expected initial state before starting probe cycle, where G38.2 and G38.3 is not triggered and G38.4 and G38.5 is triggered.",
	5:  "Probe fail. Probe did not contact the workpiece within the programmed travel for G38.2 and G38.4.",
	6:  "Homing fail. Reset during active homing cycle.",
	7:  "Homing fail. Safety door was opened during active homing cycle.",
	8:  "Homing fail. Cycle failed to clear limit switch when pulling off. Try increasing pull-off setting or check wiring.",
	9:  "Homing fail. Could not find limit switch within search distance. Defined as 1.5 * max_travel on search and 5 * pulloff on locate phases.",
	10: "Homing fail. On dual axis machines, could not find the second limit switch for self-squaring.",
}

// GrblProtocol implements the vanilla Grbl v0.9/v1.1 wire protocol.
type GrblProtocol struct{}

var _ Protocol = &GrblProtocol{}

func (p *GrblProtocol) Dialect() Dialect {
	return DialectGrbl
}

//gocyclo:ignore
func (p *GrblProtocol) ParseLine(line string) Message {
	if line == "ok" {
		return &OkMessage{Raw: line}
	}
	if rest, found := strings.CutPrefix(line, "error:"); found {
		code, err := strconv.Atoi(rest)
		if err != nil {
			return &ErrorMessage{Raw: line, Code: -1, Text: rest}
		}
		return &ErrorMessage{Raw: line, Code: code, Text: grblErrorTexts[code]}
	}
	if rest, found := strings.CutPrefix(line, "ALARM:"); found {
		code, err := strconv.Atoi(rest)
		if err != nil {
			return &AlarmMessage{Raw: line, Code: -1, Text: rest}
		}
		return &AlarmMessage{Raw: line, Code: code, Text: grblAlarmTexts[code]}
	}
	if strings.HasPrefix(line, "Grbl ") {
		return &WelcomeMessage{Raw: line}
	}
	if strings.HasPrefix(line, "<") {
		return parseGrblStatusReport(line)
	}
	if strings.HasPrefix(line, "[MSG:") {
		return &FeedbackMessage{
			Raw:  line,
			Text: strings.TrimSuffix(strings.TrimPrefix(line, "[MSG:"), "]"),
		}
	}
	return &UnknownMessage{Raw: line}
}

func (p *GrblProtocol) ConsumesSlot(m Message) bool {
	return m.Type() == MessageTypeResponse
}

// DetectVersion parses the welcome banner, eg "Grbl 1.1h ['$' for help]".
func (p *GrblProtocol) DetectVersion(line string) (Version, bool) {
	rest, found := strings.CutPrefix(line, "Grbl ")
	if !found {
		return Version{}, false
	}
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return Version{}, false
	}
	v, err := ParseVersion(parts[0])
	if err != nil {
		return Version{}, false
	}
	return v, true
}

var grblV11 = Version{Major: 1, Minor: 1}

func (p *GrblProtocol) Capabilities(v Version) CapabilitySet {
	caps := CapabilitySet{
		MaxAxes:         3,
		SupportedAxes:   "XYZ",
		Probing:         true,
		MaxSpindleSpeed: 1000,
	}
	// $J= jogging and the real-time override bytes appeared in v1.1; older or
	// undetected versions get the conservative v0.9 profile.
	if v.AtLeast(grblV11) {
		caps.Jogging = true
		caps.RealTimeOverrides = true
	}
	return caps
}

func (p *GrblProtocol) Jog(axis byte, distance, feedRate float64) ([]Command, error) {
	return []Command{
		Queued(fmt.Sprintf(
			"$J=G91 %c%s F%s",
			axis, iFmt.SprintFloat(distance, 4), iFmt.SprintFloat(feedRate, 1),
		)),
	}, nil
}

func (p *GrblProtocol) JogCancel() (Command, error) {
	return RealTime(RealTimeJogCancel), nil
}

func (p *GrblProtocol) SpindleOn(direction SpindleDirection, speed float64) (Command, error) {
	word := "M3"
	if direction == SpindleCounterClockwise {
		word = "M4"
	}
	return Queued(fmt.Sprintf("%s S%s", word, iFmt.SprintFloat(speed, 1))), nil
}

func (p *GrblProtocol) SpindleOff() Command {
	return Queued("M5")
}

func (p *GrblProtocol) Home() Command {
	return Queued("$H")
}

func (p *GrblProtocol) Unlock() Command {
	return Queued("$X")
}

var probeTypeWords = map[ProbeType]string{
	ProbeTowardStop: "G38.2",
	ProbeToward:     "G38.3",
	ProbeAwayStop:   "G38.4",
	ProbeAway:       "G38.5",
}

func (p *GrblProtocol) Probe(probeType ProbeType, axis byte, target, feedRate float64) (Command, error) {
	word, ok := probeTypeWords[probeType]
	if !ok {
		return Command{}, fmt.Errorf("%w: probe type %#v", ErrUnsupportedIntent, probeType)
	}
	return Queued(fmt.Sprintf(
		"%s %c%s F%s",
		word, axis, iFmt.SprintFloat(target, 4), iFmt.SprintFloat(feedRate, 1),
	)), nil
}

func (p *GrblProtocol) StatusQuery() Command {
	return RealTime(RealTimeStatusReportQuery)
}

func (p *GrblProtocol) SoftReset() Command {
	return RealTime(RealTimeSoftReset)
}

func (p *GrblProtocol) FeedHold() Command {
	return RealTime(RealTimeFeedHold)
}

func (p *GrblProtocol) CycleStart() Command {
	return RealTime(RealTimeCycleStartResume)
}
