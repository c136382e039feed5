package report

import (
	"sync/atomic"

	"github.com/ppiankov/hazardwatch/internal/monitor"
)

// Multi fans a step out to every reporter in order.
type Multi []monitor.Reporter

// Report implements monitor.Reporter. Nil entries are skipped.
func (m Multi) Report(s monitor.Step) {
	for _, r := range m {
		if r != nil {
			r.Report(s)
		}
	}
}

// Chan forwards steps to a buffered channel and drops them when the
// consumer falls behind, so a slow display never stalls the loop.
type Chan struct {
	ch      chan monitor.Step
	dropped atomic.Int64
}

// NewChan buffers up to size steps (minimum 1).
func NewChan(size int) *Chan {
	if size < 1 {
		size = 1
	}
	return &Chan{ch: make(chan monitor.Step, size)}
}

// Report implements monitor.Reporter without blocking.
func (c *Chan) Report(s monitor.Step) {
	select {
	case c.ch <- s:
	default:
		c.dropped.Add(1)
	}
}

// C is the receive side.
func (c *Chan) C() <-chan monitor.Step { return c.ch }

// Dropped counts steps discarded on a full buffer.
func (c *Chan) Dropped() int64 { return c.dropped.Load() }
