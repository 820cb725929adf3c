package worker

import (
	"context"
	"errors"

	"github.com/fornellas/slogxt/log"
)

type worker struct {
	name  string
	errCh chan error
}

// WorkerManager manages a group of workers sharing one cancellation domain.
type WorkerManager struct {
	workers    []worker
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewWorkerManager creates a new WorkerManager with the given context.
func NewWorkerManager(ctx context.Context) *WorkerManager {
	ctx, cancelFunc := context.WithCancel(ctx)
	return &WorkerManager{
		ctx:        ctx,
		cancelFunc: cancelFunc,
	}
}

// StartWorker starts a new worker with the given name and function. The worker
// function receives the manager's context, named after the worker for logging.
// When any worker function returns, the manager's context is cancelled, which
// signals all other workers to wind down.
func (m *WorkerManager) StartWorker(name string, fn func(context.Context) error) {
	errCh := make(chan error, 1)
	go func() {
		ctx, logger := log.MustWithGroup(m.ctx, name)
		logger.Debug("Starting")
		err := fn(ctx)
		logger.Debug("Finished", "err", err)
		errCh <- err
		m.cancelFunc()
	}()
	m.workers = append([]worker{{name: name, errCh: errCh}}, m.workers...)
}

// Cancel signals all workers to wind down.
func (m *WorkerManager) Cancel() {
	m.cancelFunc()
}

// Wait blocks until all workers have completed and returns any errors that
// occurred, joined. Workers are waited for in reverse start order.
func (m *WorkerManager) Wait() (err error) {
	logger := log.MustLogger(m.ctx)
	logger.Debug("Waiting for workers")
	for _, worker := range m.workers {
		err = errors.Join(err, <-worker.errCh)
	}
	logger.Debug("All workers finished", "err", err)
	m.workers = nil
	return
}
