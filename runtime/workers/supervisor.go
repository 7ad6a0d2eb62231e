package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"listing-chat/contract"
	"listing-chat/errors"
)

const DefaultRestartInterval = 200 * time.Millisecond

// Supervisor keeps the long lived parts of the hub running: the HTTP and
// gRPC listeners and the heartbeat. A worker that fails or panics is run
// again after the restart interval. A worker returning nil is finished.
type Supervisor struct {
	log             *slog.Logger
	restartInterval time.Duration

	// ctx is cancelled by Stop or when the context given to Run ends.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers []contract.Worker
	wg      sync.WaitGroup
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = DefaultRestartInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{log: log, restartInterval: restartInterval, ctx: ctx, cancel: cancel}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts every added worker and blocks until all of them have returned.
func (s *Supervisor) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	s.mu.Lock()
	workers := append([]contract.Worker(nil), s.workers...)
	s.mu.Unlock()

	for _, worker := range workers {
		s.Start(ctx, worker)
	}
	s.wg.Wait()
}

// Start supervises one worker until ctx or the supervisor is done.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		workerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(s.ctx, cancel)
		defer stop()

		s.supervise(workerCtx, worker)
	}()
}

// Stop cancels every worker. Run returns once they are all back.
func (s *Supervisor) Stop() {
	s.cancel()
}

func (s *Supervisor) supervise(ctx context.Context, worker contract.Worker) {
	name := contract.GetWorkerName(worker)
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil || s.ctx.Err() != nil {
			s.log.Info("Worker not started, supervisor stopping", "name", name)
			return
		}

		err := runOnce(ctx, worker)
		switch {
		case err == nil:
			s.log.Info("Worker finished", "name", name)
			return
		case ctx.Err() != nil:
			s.log.Info("Worker stopped", "name", name)
			return
		}

		s.log.Warn("Worker failed, restarting", "name", name, "attempt", attempt, "in", s.restartInterval, "error", err)
		timer := time.NewTimer(s.restartInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runOnce turns a panic into an error wrapping errors.ErrWorkerPanic.
func runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}
