// Package workerpool runs tasks on a fixed set of goroutines. The event
// dispatcher uses one to bound listener fan-out during order bursts.
//
//	pool := workerpool.New("events", 8, 64)
//	defer pool.Shutdown()
//
//	if err := pool.TrySubmit(task); errors.Is(err, workerpool.ErrPoolFull) {
//	    // backlog is full; run inline or drop
//	}
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/fitforge/fitforge/pkg/logger"
)

var (
	ErrPoolFull   = errors.New("workerpool: backlog is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool is a bounded goroutine pool with a fixed-size backlog.
type Pool struct {
	name  string
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines sharing a backlog of the given size.
func New(name string, workers, backlog int) *Pool {
	workers = max(workers, 1)
	p := &Pool{name: name, tasks: make(chan func(), max(backlog, 0))}
	p.wg.Add(workers)
	for range workers {
		go p.work()
	}
	return p
}

// TrySubmit queues task without blocking.
func (p *Pool) TrySubmit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Submit queues task, waiting for backlog space until ctx is done.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for the queued ones to finish.
// Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run keeps a panicking task from killing its worker.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked",
				"pool", p.name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}
