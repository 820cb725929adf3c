package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/fornellas/slogxt/log"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	return log.WithLogger(
		t.Context(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestWorkerManagerCancelStopsAllWorkers(t *testing.T) {
	m := NewWorkerManager(testContext(t))

	started := make(chan struct{}, 2)
	for _, name := range []string{"first", "second"} {
		m.StartWorker(name, func(ctx context.Context) error {
			started <- struct{}{}
			<-ctx.Done()
			return nil
		})
	}
	<-started
	<-started

	m.Cancel()
	require.NoError(t, m.Wait())
}

func TestWorkerManagerFailureCancelsSiblings(t *testing.T) {
	m := NewWorkerManager(testContext(t))

	failure := errors.New("worker failed")
	m.StartWorker("failing", func(ctx context.Context) error {
		return failure
	})
	m.StartWorker("sibling", func(ctx context.Context) error {
		// Wound down by the failing worker's return, not by Cancel.
		<-ctx.Done()
		return nil
	})

	require.ErrorIs(t, m.Wait(), failure)
}

func TestWorkerManagerParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	m := NewWorkerManager(ctx)

	m.StartWorker("worker", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	cancel()
	require.NoError(t, m.Wait())
}
