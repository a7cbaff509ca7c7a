// Package event is an in-process event dispatcher. Services fire domain
// events after their store transaction commits. Listeners handle the side
// effects such as websocket pushes, order history and cache invalidation.
package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/fitforge/fitforge/pkg/logger"
	"github.com/fitforge/fitforge/pkg/workerpool"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any)

// Dispatcher routes events to listeners.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
	pool     *workerpool.Pool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[string][]Handler{}}
}

// UsePool runs FireAsync dispatches on pool instead of a goroutine each.
// When the pool's backlog is full the dispatch runs on its own goroutine.
func (d *Dispatcher) UsePool(pool *workerpool.Pool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pool = pool
}

// Listen registers handler for event.
func (d *Dispatcher) Listen(event string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = append(d.handlers[event], handler)
}

func (d *Dispatcher) listeners(event string) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs := make([]Handler, len(d.handlers[event]))
	copy(hs, d.handlers[event])
	return hs
}

// Fire runs every listener for event in order on the calling goroutine.
func (d *Dispatcher) Fire(ctx context.Context, event string, payload any) {
	for _, h := range d.listeners(event) {
		call(ctx, event, h, payload)
	}
}

// FireAsync runs the listeners in the background detached from ctx
// cancellation, so a finished request does not abort its side effects.
// Use Wait to drain in-flight listeners.
func (d *Dispatcher) FireAsync(ctx context.Context, event string, payload any) {
	hs := d.listeners(event)
	if len(hs) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	task := func() {
		defer d.wg.Done()
		for _, h := range hs {
			call(detached, event, h, payload)
		}
	}

	d.mu.RLock()
	pool := d.pool
	d.mu.RUnlock()
	if pool != nil && pool.TrySubmit(task) == nil {
		return
	}
	go task()
}

// Wait blocks until every FireAsync dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Flush removes all listeners.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = map[string][]Handler{}
}

// call isolates listener panics from the firing service.
func call(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked",
				"event", event,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	h(ctx, payload)
}
