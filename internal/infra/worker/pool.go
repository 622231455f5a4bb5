// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var ErrPoolStopped = errors.New("worker pool stopped")

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines.
// Once the start context is cancelled or Stop is called, queued tasks that no worker
// picked up are dropped and Wait no longer blocks on them.
type Pool struct {
	mu      sync.RWMutex
	closed  bool
	workers sync.WaitGroup
	tasks   sync.WaitGroup
	jobs    chan Task
	done    chan struct{}
	stop    sync.Once
	n       int
	log     *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{jobs: make(chan Task, workers*4), done: make(chan struct{}), n: workers, log: logger}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.workers.Add(1)
		go func(id int) {
			defer p.workers.Done()
			for {
				select {
				case <-p.done:
					return
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
	go func() {
		select {
		case <-ctx.Done():
			p.stop.Do(p.shutdown)
		case <-p.done:
		}
	}()
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer p.tasks.Done()
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Int("worker", id).Interface("panic", rec).Msg("worker task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Debug().Int("worker", id).Err(err).Msg("worker task failed")
	}
}

// shutdown refuses new tasks, waits for in-flight submits and workers, then drops
// whatever is still queued.
func (p *Pool) shutdown() {
	close(p.done)
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.workers.Wait()

	dropped := 0
	for {
		select {
		case <-p.jobs:
			p.tasks.Done()
			dropped++
		default:
			if dropped > 0 {
				p.log.Debug().Int("dropped", dropped).Msg("worker pool dropped queued tasks")
			}
			return
		}
	}
}

// Submit queues task, blocking while the queue is full.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	p.tasks.Add(1)
	select {
	case p.jobs <- task:
		return nil
	case <-ctx.Done():
		p.tasks.Done()
		return ctx.Err()
	case <-p.done:
		p.tasks.Done()
		return ErrPoolStopped
	}
}

// Wait blocks until every accepted task has finished or been dropped.
func (p *Pool) Wait() {
	p.tasks.Wait()
}

func (p *Pool) Stop() {
	p.stop.Do(p.shutdown)
}
