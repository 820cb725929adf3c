package machine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fornellas/slogxt/log"

	"github.com/fwsender/fws/firmware"
)

// streamWindow caps how many unacknowledged lines the streamer keeps
// submitted; flow control already bounds the firmware buffer, this only
// bounds the controller-side outbound queue for large programs.
const streamWindow = 16

// Streamer sends a newline-separated program through a Controller, paced by
// firmware acknowledgements. It fails fast on the first rejected line. G-code
// semantics are not interpreted: blank lines and comment-only lines are
// skipped, everything else is passed through untouched.
type Streamer struct {
	controller *Controller
}

func NewStreamer(controller *Controller) *Streamer {
	return &Streamer{
		controller: controller,
	}
}

func isComment(line string) bool {
	return strings.HasPrefix(line, ";") ||
		(strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")"))
}

// Run streams the program. It returns once every submitted line has been
// acknowledged, or on the first error / alarm / connection loss.
//
//gocyclo:ignore
func (s *Streamer) Run(ctx context.Context, program io.Reader) error {
	ctx, logger := log.MustWithGroup(ctx, "Streamer")

	events := s.controller.Events("streamer", streamWindow)
	defer s.controller.Unsubscribe("streamer")

	// Lines submitted by this streamer, awaiting acknowledgement. Other
	// writers (the status poller on queued-query dialects) interleave with
	// the stream, so acknowledgements are matched against our own FIFO
	// rather than counted blindly.
	var pending []string

	waitOne := func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-events:
				if !ok {
					return fmt.Errorf("event channel closed")
				}
				switch event := event.(type) {
				case CommandAcknowledgedEvent:
					if len(pending) > 0 && event.Line == pending[0] {
						pending = pending[1:]
						return nil
					}
				case CommandFailedEvent:
					return fmt.Errorf("firmware rejected %#v: error %d: %s", event.Line, event.Code, event.Message)
				case AlarmRaisedEvent:
					return fmt.Errorf("firmware alarm during stream: %w", event.Err)
				case ConnectionLostEvent:
					return fmt.Errorf("connection lost during stream: %w", event.Err)
				}
			}
		}
	}

	scanner := bufio.NewScanner(program)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}

		for len(pending) >= streamWindow {
			if err := waitOne(); err != nil {
				return fmt.Errorf("line %d: %w", lineNum, err)
			}
		}

		if err := s.controller.Submit(firmware.Queued(line)); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		pending = append(pending, line)
		logger.Debug("Submitted", "line", line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("program read error: %w", err)
	}

	for len(pending) > 0 {
		if err := waitOne(); err != nil {
			return err
		}
	}

	return nil
}
