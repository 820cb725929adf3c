package firmware

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect identifies one firmware's command/response grammar and capability
// model. It is selected when a connection is established and immutable for the
// connection's lifetime.
type Dialect int

const (
	DialectGrbl Dialect = iota
	DialectFluidNC
	DialectTinyG
	DialectG2Core
	DialectSmoothieware
)

var dialectNames = map[Dialect]string{
	DialectGrbl:         "grbl",
	DialectFluidNC:      "fluidnc",
	DialectTinyG:        "tinyg",
	DialectG2Core:       "g2core",
	DialectSmoothieware: "smoothieware",
}

func (d Dialect) String() string {
	if name, ok := dialectNames[d]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%d)", int(d))
}

var ErrUnknownDialect = errors.New("unknown dialect")

// ParseDialect parses a dialect name as given on the command line.
func ParseDialect(s string) (Dialect, error) {
	for dialect, name := range dialectNames {
		if strings.EqualFold(s, name) {
			return dialect, nil
		}
	}
	return 0, fmt.Errorf("%w: %#v", ErrUnknownDialect, s)
}

func DialectNames() []string {
	return []string{"grbl", "fluidnc", "tinyg", "g2core", "smoothieware"}
}

// Protocol returns the Protocol implementation for the dialect.
func (d Dialect) Protocol() Protocol {
	switch d {
	case DialectGrbl:
		return &GrblProtocol{}
	case DialectFluidNC:
		return &FluidNCProtocol{}
	case DialectTinyG:
		return &TinyGProtocol{}
	case DialectG2Core:
		return &G2CoreProtocol{}
	case DialectSmoothieware:
		return &SmoothiewareProtocol{}
	}
	panic(fmt.Sprintf("bug: no protocol for dialect %#v", d))
}

type CommandKind int

const (
	// Queued commands are newline-terminated lines that consume a
	// flow-control slot and are acknowledged in FIFO order.
	CommandQueued CommandKind = iota
	// Real-time commands are single control bytes interpreted immediately by
	// the firmware; they bypass flow-control accounting entirely.
	CommandRealTime
)

// Command is an outbound intent rendered to its dialect wire form.
type Command struct {
	Kind CommandKind
	// Line is the wire text for queued commands, without terminator.
	Line string
	// Byte is the control byte for real-time commands.
	Byte RealTimeCommand
}

func Queued(line string) Command {
	return Command{Kind: CommandQueued, Line: line}
}

func RealTime(b RealTimeCommand) Command {
	return Command{Kind: CommandRealTime, Byte: b}
}

func (c Command) String() string {
	if c.Kind == CommandRealTime {
		return c.Byte.String()
	}
	return c.Line
}

// SpindleDirection selects spindle rotation for SpindleOn.
type SpindleDirection int

const (
	SpindleClockwise SpindleDirection = iota
	SpindleCounterClockwise
)

// ProbeType selects the probe cycle variant, named after the G38.x family all
// supported dialects implement.
type ProbeType int

const (
	// Probe toward workpiece, stop on contact, signal error on failure.
	ProbeTowardStop ProbeType = iota
	// Probe toward workpiece, stop on contact.
	ProbeToward
	// Probe away from workpiece, stop on loss of contact, signal error on failure.
	ProbeAwayStop
	// Probe away from workpiece, stop on loss of contact.
	ProbeAway
)

var ErrUnsupportedIntent = errors.New("intent not supported by dialect")

// Protocol is one dialect's complete wire behavior: response grammar, command
// rendering, version detection and capability model. Implementations are
// stateless; one is selected per connection at setup.
type Protocol interface {
	Dialect() Dialect

	// ParseLine classifies a framed line into a Message. Total: unrecognized
	// text yields *UnknownMessage, never an error.
	ParseLine(line string) Message

	// ConsumesSlot reports whether the message is one the firmware generates
	// to close out a queued command, ie whether it must pop a flow-control
	// pending slot.
	ConsumesSlot(m Message) bool

	// DetectVersion extracts the firmware version from a banner or feedback
	// line. ok is false when the line carries no recognizable version.
	DetectVersion(line string) (v Version, ok bool)

	// Capabilities maps a detected version to its capability set. The zero
	// Version yields the dialect's most conservative set.
	Capabilities(v Version) CapabilitySet

	// Jog renders a relative jog of one axis. Dialects without a dedicated
	// jog mode may return more than one command (eg a relative move plus a
	// restore of absolute mode).
	Jog(axis byte, distance, feedRate float64) ([]Command, error)
	// JogCancel renders the jog cancellation intent, if the dialect has one.
	JogCancel() (Command, error)

	SpindleOn(direction SpindleDirection, speed float64) (Command, error)
	SpindleOff() Command

	Home() Command
	Unlock() Command
	Probe(probeType ProbeType, axis byte, target, feedRate float64) (Command, error)

	// StatusQuery renders the status report request. Real-time for most
	// dialects; TinyG/g2core use a queued JSON request.
	StatusQuery() Command
	SoftReset() Command
	FeedHold() Command
	CycleStart() Command
}
