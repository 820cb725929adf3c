package firmware

import (
	"fmt"
)

type MessageType int

const (
	// Message sent by the firmware to close out a previously queued command.
	MessageTypeResponse MessageType = iota
	// Message pushed by the firmware asynchronously (status reports, alarms, banners...).
	MessageTypePush
)

// Message represents a single line received from the firmware, classified into
// one of the wire protocol variants. Parsing is total: any line maps to exactly
// one Message, unrecognized lines map to *UnknownMessage.
type Message interface {
	Type() MessageType
	String() string
}

// OkMessage is the acknowledgement the firmware sends for a successfully
// executed queued command.
type OkMessage struct {
	Raw string
}

func (m *OkMessage) Type() MessageType {
	return MessageTypeResponse
}

func (m *OkMessage) String() string {
	return m.Raw
}

// ErrorMessage is the firmware rejecting a queued command. Code is -1 when the
// dialect reports errors as free text without a numeric code.
type ErrorMessage struct {
	Raw  string
	Code int
	Text string
}

func (m *ErrorMessage) Type() MessageType {
	return MessageTypeResponse
}

func (m *ErrorMessage) String() string {
	return m.Raw
}

func (m *ErrorMessage) Error() error {
	if m.Text != "" {
		return fmt.Errorf("error %d: %s", m.Code, m.Text)
	}
	return fmt.Errorf("error %d", m.Code)
}

// AlarmMessage is an asynchronous alarm push. It never closes out a queued
// command.
type AlarmMessage struct {
	Raw  string
	Code int
	Text string
}

func (m *AlarmMessage) Type() MessageType {
	return MessageTypePush
}

func (m *AlarmMessage) String() string {
	return m.Raw
}

func (m *AlarmMessage) Error() error {
	if m.Text != "" {
		return fmt.Errorf("alarm %d: %s", m.Code, m.Text)
	}
	return fmt.Errorf("alarm %d", m.Code)
}

// WelcomeMessage is the firmware version banner, pushed on power up and after
// a reset. Version detection runs against its raw text.
type WelcomeMessage struct {
	Raw string
}

func (m *WelcomeMessage) Type() MessageType {
	return MessageTypePush
}

func (m *WelcomeMessage) String() string {
	return m.Raw
}

// FeedbackMessage is a non-critical informational push, eg Grbl "[MSG:...]"
// lines.
type FeedbackMessage struct {
	Raw  string
	Text string
}

func (m *FeedbackMessage) Type() MessageType {
	return MessageTypePush
}

func (m *FeedbackMessage) String() string {
	return m.Raw
}

// QueueReportMessage carries the planner queue depth some dialects
// (TinyG/g2core) push. It is diagnostic only and never participates in
// flow-control accounting.
type QueueReportMessage struct {
	Raw   string
	Depth int
}

func (m *QueueReportMessage) Type() MessageType {
	return MessageTypePush
}

func (m *QueueReportMessage) String() string {
	return m.Raw
}

// UnknownMessage is any line no other variant claims.
type UnknownMessage struct {
	Raw string
}

func (m *UnknownMessage) Type() MessageType {
	return MessageTypePush
}

func (m *UnknownMessage) String() string {
	return m.Raw
}

// Position is a machine or work coordinate triplet, with an optional fourth
// axis.
type Position struct {
	X float64
	Y float64
	Z float64
	A *float64
}

func (p Position) String() string {
	if p.A != nil {
		return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", p.X, p.Y, p.Z, *p.A)
	}
	return fmt.Sprintf("%.3f,%.3f,%.3f", p.X, p.Y, p.Z)
}

// MachineState is the state field of a status report: the raw dialect state
// name plus the optional sub-state some dialects append (eg Grbl "Hold:1").
type MachineState struct {
	Name     string
	SubState *int
}

func (s MachineState) String() string {
	if s.SubState != nil {
		return fmt.Sprintf("%s:%d", s.Name, *s.SubState)
	}
	return s.Name
}

// BufferState reports firmware-side buffer availability as embedded in status
// reports. Diagnostic cross-check only: the flow-control tracker never reads
// it.
type BufferState struct {
	// Available blocks in the planner buffer.
	AvailableBlocks int
	// Available bytes in the serial RX buffer.
	AvailableBytes int
}

// OverrideValues are the current feed/rapid/spindle overrides in percent of
// programmed values.
type OverrideValues struct {
	Feed    float64
	Rapids  float64
	Spindle float64
}

// StatusReportMessage is a firmware status report push. Fields not present on
// the wire are nil.
type StatusReportMessage struct {
	Raw                  string
	MachineState         MachineState
	MachinePosition      *Position
	WorkPosition         *Position
	WorkCoordinateOffset *Position
	Feed                 *float64
	SpindleSpeed         *float64
	BufferState          *BufferState
	LineNumber           *int
	Pins                 string
	OverrideValues       *OverrideValues
}

func (m *StatusReportMessage) Type() MessageType {
	return MessageTypePush
}

func (m *StatusReportMessage) String() string {
	return m.Raw
}
