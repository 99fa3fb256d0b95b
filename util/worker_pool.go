package util

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// WorkerPool bounds concurrent execution of arbitrary tasks to a fixed
// size, collecting every task's error into one aggregated error. It is
// the concurrency primitive the executor package builds its per-module
// dispatch on top of.
//
// Unlike a fixed goroutine pool reading off a channel, WorkerPool spawns
// one goroutine per Submit call gated by a counting semaphore: this keeps
// Submit non-blocking up to the concurrency cap and needs no separate
// start/stop lifecycle to resume accepting work after a Wait.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup

	mu  sync.Mutex
	err *multierror.Error
}

// NewWorkerPool returns a WorkerPool that runs at most size tasks
// concurrently.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}

	return &WorkerPool{sem: make(chan struct{}, size)}
}

// Submit schedules task to run, blocking only until a concurrency slot is
// free, not until the task completes.
func (wp *WorkerPool) Submit(task func() error) {
	wp.wg.Add(1)
	wp.sem <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.sem }()

		if err := task(); err != nil {
			wp.mu.Lock()
			wp.err = multierror.Append(wp.err, err)
			wp.mu.Unlock()
		}
	}()
}

// Wait blocks until every task submitted so far has completed and returns
// their aggregated error, or nil if none failed. The pool remains usable
// for further Submit calls afterward.
func (wp *WorkerPool) Wait() error {
	wp.wg.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()

	err := wp.err.ErrorOrNil()
	wp.err = nil

	return err
}
