package scheduler

import (
	"sync"
	"time"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/ports"
)

// CollectorState is the debounce state machine position.
type CollectorState int

const (
	StateIdle CollectorState = iota
	StateCollecting
)

type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

// Collector accumulates observations and releases them as one batch once no new observation
// has arrived for the configured delay. Every arrival cancels and re-arms the timer.
type Collector struct {
	mu       sync.Mutex
	delay    time.Duration
	pending  domain.Batch
	timer    stopper
	gen      uint64
	stopped  bool
	release  func(domain.Batch)
	after    afterFunc
	inflight sync.WaitGroup
}

var _ ports.Scheduler = (*Collector)(nil)

// NewCollector releases batches to release after delay of quiet.
func NewCollector(delay time.Duration, release func(domain.Batch)) *Collector {
	return &Collector{
		delay:   delay,
		release: release,
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// OnEvent appends obs to the pending batch and restarts the delay timer.
func (c *Collector) OnEvent(obs domain.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.pending = append(c.pending, obs)
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.after(c.delay, func() { c.onTimerFire(gen) })
}

// onTimerFire swaps the pending batch out; fires from a superseded timer are ignored.
func (c *Collector) onTimerFire(gen uint64) {
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = nil
	c.timer = nil
	if len(batch) == 0 || c.release == nil {
		c.mu.Unlock()
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()

	defer c.inflight.Done()
	c.release(batch)
}

// State reports whether a batch is being collected.
func (c *Collector) State() CollectorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return StateIdle
	}
	return StateCollecting
}

// Stop cancels the timer and returns observations that were never released.
func (c *Collector) Stop() []domain.Observation {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	dropped := c.pending
	c.pending = nil
	return dropped
}

// Wait blocks until every released batch has been handled.
func (c *Collector) Wait() {
	c.inflight.Wait()
}
