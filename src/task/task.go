// Package task provides the one-shot stop signal shared by the long running loops.
package task

import (
	"context"
)

// Task is stopped at most once. Any number of goroutines may poll it.
type Task struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{ctx: ctx, cancel: cancel}
}

// Stop sets the signal. Later calls do nothing.
func (t *Task) Stop() {
	t.cancel()
}

// Stopped never blocks.
func (t *Task) Stopped() bool {
	return t.ctx.Err() != nil
}

func (t *Task) Done() <-chan struct{} {
	return t.ctx.Done()
}

func (t *Task) Context() context.Context {
	return t.ctx
}
