package pipeline

import (
	"context"
	"sync"
)

// worker runs submitted tasks one at a time on its own goroutine.
type worker struct {
	name  string
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func newWorker(name string) *worker {
	w := &worker{
		name:  name,
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *worker) loop() {
	defer close(w.done)
	for task := range w.tasks {
		task()
	}
}

// stop drains the worker and waits for its goroutine to exit. It is idempotent.
func (w *worker) stop() {
	w.once.Do(func() { close(w.tasks) })
	<-w.done
}

type taskResult[T any] struct {
	value T
	err   error
}

// submit runs fn on w and waits for it.
//
// Cancellation is cooperative: ctx only aborts the hand-off. Once fn has started, submit waits
// for it so that ownership of whatever fn returns is never lost.
func submit[T any](ctx context.Context, w *worker, fn func() (T, error)) (T, error) {
	result := make(chan taskResult[T], 1)
	task := func() {
		v, err := fn()
		result <- taskResult[T]{value: v, err: err}
	}

	select {
	case w.tasks <- task:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	r := <-result
	return r.value, r.err
}
