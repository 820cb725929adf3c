package firmware

import (
	"fmt"
	"strings"

	iFmt "github.com/fwsender/fws/internal/fmt"
)

// SmoothiewareProtocol implements the Smoothieware console protocol. Smoothie
// answers "ok" per line, reports Grbl-style bracket status on "?", and emits
// free-text "error:" and "ALARM" lines without numeric codes.
type SmoothiewareProtocol struct{}

var _ Protocol = &SmoothiewareProtocol{}

func (p *SmoothiewareProtocol) Dialect() Dialect {
	return DialectSmoothieware
}

func (p *SmoothiewareProtocol) ParseLine(line string) Message {
	if line == "ok" {
		return &OkMessage{Raw: line}
	}
	if rest, found := strings.CutPrefix(line, "error:"); found {
		// Free text, no numeric code.
		return &ErrorMessage{Raw: line, Code: -1, Text: strings.TrimSpace(rest)}
	}
	if rest, found := strings.CutPrefix(line, "ALARM:"); found {
		return &AlarmMessage{Raw: line, Code: -1, Text: strings.TrimSpace(rest)}
	}
	if line == "!!" || strings.HasPrefix(line, "HALTED") {
		// Kill state: Smoothie halts and discards input until unlocked.
		return &AlarmMessage{Raw: line, Code: -1, Text: "halted"}
	}
	if strings.HasPrefix(line, "<") {
		return parseGrblStatusReport(line)
	}
	if strings.HasPrefix(line, "Smoothie") || strings.HasPrefix(line, "Build version:") {
		return &WelcomeMessage{Raw: line}
	}
	return &UnknownMessage{Raw: line}
}

func (p *SmoothiewareProtocol) ConsumesSlot(m Message) bool {
	return m.Type() == MessageTypeResponse
}

const smoothieVersionPrefix = "Build version: "

// DetectVersion parses the "version" command output, eg
// "Build version: edge-94de12c, Build date: ..., MCU: LPC1769". Smoothie has
// no numeric firmware versioning, so only an explicit "Smoothieware X.Y"
// banner yields an ordered version; edge builds stay undetected and get the
// conservative capability set.
func (p *SmoothiewareProtocol) DetectVersion(line string) (Version, bool) {
	if rest, found := strings.CutPrefix(line, "Smoothieware "); found {
		v, err := ParseVersion(strings.Fields(rest)[0])
		if err != nil {
			return Version{}, false
		}
		return v, true
	}
	if rest, found := strings.CutPrefix(line, smoothieVersionPrefix); found {
		version := strings.SplitN(rest, ",", 2)[0]
		v, err := ParseVersion(version)
		if err != nil {
			return Version{}, false
		}
		return v, true
	}
	return Version{}, false
}

func (p *SmoothiewareProtocol) Capabilities(v Version) CapabilitySet {
	// Jogging is a plain relative feed move here, not a dedicated mode, so it
	// is available at any version.
	return CapabilitySet{
		MaxAxes:         3,
		SupportedAxes:   "XYZ",
		Jogging:         true,
		Probing:         true,
		MaxSpindleSpeed: 10000,
	}
}

func (p *SmoothiewareProtocol) Jog(axis byte, distance, feedRate float64) ([]Command, error) {
	return []Command{
		Queued(fmt.Sprintf(
			"G91 G1 %c%s F%s",
			axis, iFmt.SprintFloat(distance, 4), iFmt.SprintFloat(feedRate, 1),
		)),
		Queued("G90"),
	}, nil
}

func (p *SmoothiewareProtocol) JogCancel() (Command, error) {
	return Command{}, fmt.Errorf("%w: jog cancel", ErrUnsupportedIntent)
}

func (p *SmoothiewareProtocol) SpindleOn(direction SpindleDirection, speed float64) (Command, error) {
	if direction == SpindleCounterClockwise {
		return Command{}, fmt.Errorf("%w: counter-clockwise spindle", ErrUnsupportedIntent)
	}
	return Queued(fmt.Sprintf("M3 S%s", iFmt.SprintFloat(speed, 1))), nil
}

func (p *SmoothiewareProtocol) SpindleOff() Command {
	return Queued("M5")
}

func (p *SmoothiewareProtocol) Home() Command {
	return Queued("G28.2")
}

func (p *SmoothiewareProtocol) Unlock() Command {
	return Queued("$X")
}

func (p *SmoothiewareProtocol) Probe(probeType ProbeType, axis byte, target, feedRate float64) (Command, error) {
	if probeType != ProbeTowardStop && probeType != ProbeToward {
		return Command{}, fmt.Errorf("%w: probe type %#v", ErrUnsupportedIntent, probeType)
	}
	word := probeTypeWords[probeType]
	return Queued(fmt.Sprintf(
		"%s %c%s F%s",
		word, axis, iFmt.SprintFloat(target, 4), iFmt.SprintFloat(feedRate, 1),
	)), nil
}

func (p *SmoothiewareProtocol) StatusQuery() Command {
	return RealTime(RealTimeStatusReportQuery)
}

func (p *SmoothiewareProtocol) SoftReset() Command {
	return RealTime(RealTimeSoftReset)
}

func (p *SmoothiewareProtocol) FeedHold() Command {
	return RealTime(RealTimeFeedHold)
}

func (p *SmoothiewareProtocol) CycleStart() Command {
	return RealTime(RealTimeCycleStartResume)
}
