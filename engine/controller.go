package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/meshpay/payops-agent/core"
)

// DefaultCycleInterval is how often the controller runs a cycle when none is
// configured.
const DefaultCycleInterval = 8 * time.Second

// Controller drives the engine on a fixed interval until stopped. Results
// are delivered to the OnResult callback, if set.
type Controller struct {
	engine   *Engine
	interval time.Duration
	onResult func(*core.CycleResult)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithInterval sets the cycle interval.
func WithInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithOnResult registers a callback invoked after every completed cycle.
func WithOnResult(fn func(*core.CycleResult)) ControllerOption {
	return func(c *Controller) {
		c.onResult = fn
	}
}

// NewController creates a controller for the engine.
func NewController(engine *Engine, opts ...ControllerOption) *Controller {
	c := &Controller{
		engine:   engine,
		interval: DefaultCycleInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the cycle loop in its own goroutine. The loop exits when
// Stop is called or the context is cancelled.
func (c *Controller) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		log.Printf("[CONTROLLER] starting, interval=%s", c.interval)
		for {
			select {
			case <-ctx.Done():
				log.Printf("[CONTROLLER] context cancelled, stopping")
				return
			case <-c.stop:
				log.Printf("[CONTROLLER] stop requested")
				return
			case <-ticker.C:
				result, err := c.engine.RunCycle(ctx)
				if err != nil {
					log.Printf("[CONTROLLER] cycle aborted: %v", err)
					continue
				}
				if c.onResult != nil {
					c.onResult(result)
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight cycle to finish.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}
