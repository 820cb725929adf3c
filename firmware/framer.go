package firmware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// LineFramer accumulates bytes from a transport and emits complete lines,
// excluding the terminator. Partial lines are buffered across reads; an
// incomplete trailing fragment is discarded when the transport closes.
//
// The transport is expected to be configured with a short read timeout
// (returning os.ErrDeadlineExceeded with no data), so ReadLine can observe
// context cancellation while blocked.
type LineFramer struct {
	r       io.Reader
	partial []byte
}

func NewLineFramer(r io.Reader) *LineFramer {
	return &LineFramer{
		r: r,
	}
}

// ReadLine blocks until a complete line is available and returns it without
// its terminator. A trailing carriage return is stripped. Content is otherwise
// delivered untouched: trimming and grammar belong to the dialect parser.
func (f *LineFramer) ReadLine(ctx context.Context) (string, error) {
	b := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("framer: context error: %w", err)
		}

		n, err := f.r.Read(b)
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			return "", fmt.Errorf("framer: read error: %w", err)
		}
		if n == 0 {
			continue
		}
		if b[0] == '\n' {
			break
		}
		f.partial = append(f.partial, b[0])
	}

	line := f.partial
	f.partial = nil
	if len(line) >= 1 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return string(line), nil
}
