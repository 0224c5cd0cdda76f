package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Task is a unit of work executed by a pooled worker.
type Task func()

// ErrClosed is returned by Submit once the pool has been shut down.
var ErrClosed = errors.New("pool: closed")

// Workers is a fixed-size worker pool. The pool belongs to the caller:
// it is created once, shared across every round that needs it, and only
// torn down when the caller is finished. Completion of submitted work is
// the submitter's concern, which keeps the pool reusable between rounds.
type Workers struct {
	tasks  chan Task
	wg     sync.WaitGroup
	closed int32
	size   int
}

// New starts a pool of size workers. A non-positive size is treated
// as one.
func New(size int) *Workers {
	if size <= 0 {
		size = 1
	}
	w := &Workers{
		tasks: make(chan Task),
		size:  size,
	}
	for i := 0; i < size; i++ {
		w.wg.Add(1)
		go w.work()
	}
	return w
}

func (w *Workers) work() {
	defer w.wg.Done()
	for task := range w.tasks {
		task()
	}
}

// Submit hands task to the next free worker, blocking until one accepts
// it or ctx is done. Submit must not be called concurrently with Close.
func (w *Workers) Submit(ctx context.Context, task Task) error {
	if atomic.LoadInt32(&w.closed) == 1 {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case w.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size reports the number of workers.
func (w *Workers) Size() int {
	return w.size
}

// Close stops accepting work and waits for tasks already picked up to
// finish. It is safe to call more than once.
func (w *Workers) Close() {
	if !atomic.CompareAndSwapInt32(&w.closed, 0, 1) {
		return
	}
	close(w.tasks)
	w.wg.Wait()
}
