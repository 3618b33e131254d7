package station

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dispatcher runs submitted work on a fixed set of workers fed by a
// bounded queue.
type Dispatcher struct {
	workers int
	tasks   chan func()
}

func NewDispatcher(workers, queue int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 1
	}
	return &Dispatcher{workers: workers, tasks: make(chan func(), queue)}
}

// Submit queues fn without blocking. It returns ErrBusy when the queue is full.
func (d *Dispatcher) Submit(fn func()) error {
	select {
	case d.tasks <- fn:
		return nil
	default:
		return ErrBusy
	}
}

// Run executes queued work until ctx is done. Work still queued at that
// point is abandoned.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case fn := <-d.tasks:
					fn()
				}
			}
		})
	}
	return g.Wait()
}
