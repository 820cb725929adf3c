package firmware

import (
	"errors"
	"sync"
	"time"
)

// DefaultRxBufferSize is the serial receive buffer capacity of vanilla Grbl
// builds; the other dialects are at least as large, so it is the safe default.
const DefaultRxBufferSize = 128

var ErrCommandTooLarge = errors.New("command exceeds firmware receive buffer capacity")

type Admission int

const (
	// Admitted: the command fits the remaining buffer space and was recorded
	// as pending; the caller must write it to the transport now.
	Admitted Admission = iota
	// Deferred: the command does not fit; the caller must keep it queued and
	// retry after the next acknowledgement frees space.
	Deferred
)

// PendingSlot is one outstanding command awaiting a firmware acknowledgement.
type PendingSlot struct {
	Line     string
	Length   int
	IssuedAt time.Time
}

// FlowControl implements character-counting streaming flow control: multiple
// commands are sent ahead of acknowledgement, bounded by the tracked byte
// count, so the firmware receive buffer is kept full but never overflows.
//
// Firmwares acknowledge commands strictly in send order, so pending slots are
// matched FIFO, never by content.
//
// All methods are safe for concurrent use.
type FlowControl struct {
	mu           sync.Mutex
	rxBufferSize int
	pendingBytes int
	pending      []PendingSlot
	resyncs      int
}

func NewFlowControl(rxBufferSize int) *FlowControl {
	if rxBufferSize <= 0 {
		rxBufferSize = DefaultRxBufferSize
	}
	return &FlowControl{
		rxBufferSize: rxBufferSize,
	}
}

// TryAdmit attempts admission of a queued command. The accounted length is
// len(line)+1, for the newline terminator the transport writer appends.
// ErrCommandTooLarge is returned for a command that can never fit, so callers
// do not deadlock holding it at the head of their outbound queue.
func (f *FlowControl) TryAdmit(line string) (Admission, error) {
	length := len(line) + 1

	f.mu.Lock()
	defer f.mu.Unlock()

	if length > f.rxBufferSize {
		return Deferred, ErrCommandTooLarge
	}

	if f.pendingBytes+length > f.rxBufferSize {
		return Deferred, nil
	}

	f.pending = append(f.pending, PendingSlot{
		Line:     line,
		Length:   length,
		IssuedAt: time.Now(),
	})
	f.pendingBytes += length
	return Admitted, nil
}

// Consume pops the oldest pending slot in response to an ok / error message.
// It must only be called for messages the dialect classifies as closing out a
// queued command (never status reports, alarms or banners).
//
// If the firmware acknowledges more commands than are outstanding, the
// counters are forcibly resynchronized to zero instead of underflowing, and
// ok is false so the caller can surface the anomaly.
func (f *FlowControl) Consume() (slot PendingSlot, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		f.pendingBytes = 0
		f.resyncs++
		return PendingSlot{}, false
	}

	slot = f.pending[0]
	f.pending = f.pending[1:]
	f.pendingBytes -= slot.Length
	if f.pendingBytes < 0 {
		// Cannot happen while the pendingBytes == sum(slot lengths) invariant
		// holds; clamp instead of going negative.
		f.pendingBytes = 0
		f.resyncs++
	}
	return slot, true
}

// Reset discards all pending accounting. Called on disconnect and firmware
// reset: firmware-side execution state is unknown at that point, so
// outstanding commands must be resubmitted by the application, never replayed.
func (f *FlowControl) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingBytes = 0
	f.pending = nil
}

// PendingBytes returns the bytes currently in flight toward the firmware
// receive buffer.
func (f *FlowControl) PendingBytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingBytes
}

// InFlight returns the number of commands awaiting acknowledgement.
func (f *FlowControl) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Resyncs returns how many times the counters had to be forcibly
// resynchronized after the firmware acknowledged more commands than were
// outstanding.
func (f *FlowControl) Resyncs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resyncs
}
