package spanz

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector is a SpanProcessor that buffers completed span snapshots
// for batch export. Safe for concurrent use by multiple goroutines.
//
// Completed snapshots flow through a bounded channel so span End never
// blocks on a slow consumer; when the channel is full, snapshots are
// dropped and counted.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	spans        []SpanData
	spansCh      chan SpanData
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closed       atomic.Bool
	syncMode     bool // Bypass channel for synchronous collection.
}

// NewCollector creates a collector with the specified name and buffer size.
func NewCollector(name string, bufferSize int) *Collector {
	c := &Collector{
		name:    name,
		spans:   make([]SpanData, 0, 8), // Start with small capacity.
		spansCh: make(chan SpanData, bufferSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.start()
	return c
}

// Name returns the collector's name.
func (c *Collector) Name() string {
	return c.name
}

// OnStart implements SpanProcessor. Start events are not buffered.
func (c *Collector) OnStart(Span, *Context) {}

// OnEnd implements SpanProcessor, buffering the snapshot with
// backpressure protection. If the internal channel is full the
// snapshot is dropped and the drop counter incremented. In sync mode
// snapshots are buffered directly for deterministic testing.
func (c *Collector) OnEnd(data SpanData) {
	// Deep copy so later holders of the snapshot cannot alias buffers.
	data = data.clone()

	if c.syncMode {
		if c.closed.Load() {
			c.droppedCount.Add(1)
			return
		}
		c.bufferSpan(data)
		return
	}

	select {
	case c.spansCh <- data:
		// Successfully queued.
	default:
		// Channel full - drop to prevent blocking span End.
		c.droppedCount.Add(1)
	}
}

// start runs the collector's main loop, receiving snapshots from the
// channel.
func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining snapshots before shutdown.
			for {
				select {
				case data := <-c.spansCh:
					c.bufferSpan(data)
				default:
					return // Clean shutdown.
				}
			}
		case data := <-c.spansCh:
			c.bufferSpan(data)
		}
	}
}

// bufferSpan appends a snapshot to the internal buffer.
func (c *Collector) bufferSpan(data SpanData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Grow ahead of append to control the growth curve under load.
	if len(c.spans) >= cap(c.spans) {
		currentCap := cap(c.spans)
		var newCap int
		if currentCap < 1024 {
			newCap = currentCap * 2
		} else {
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		newSlice := make([]SpanData, len(c.spans), newCap)
		copy(newSlice, c.spans)
		c.spans = newSlice
	}
	c.spans = append(c.spans, data)
}

// Export returns a copy of all buffered snapshots and clears the
// internal buffer. The returned slice is safe to modify.
func (c *Collector) Export() []SpanData {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spans) == 0 {
		return nil
	}

	result := make([]SpanData, len(c.spans))
	for i := range c.spans {
		result[i] = c.spans[i].clone()
	}

	// Shrink only when the buffer is very oversized to avoid
	// allocation churn.
	if cap(c.spans) > 256 && len(c.spans) < cap(c.spans)/8 {
		newCap := cap(c.spans) / 4
		if newCap < 32 {
			newCap = 32
		}
		c.spans = make([]SpanData, 0, newCap)
	} else {
		c.spans = c.spans[:0] // Keep capacity, reset length.
	}

	return result
}

// Count returns the current number of buffered snapshots.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spans)
}

// DroppedCount returns the total number of snapshots dropped due to
// backpressure.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous collection for testing. When
// enabled, snapshots bypass the channel, making tests deterministic.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode = sync
}

// Reset clears all buffered snapshots and the drop counter.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spans = c.spans[:0]
	c.droppedCount.Store(0)
}

// Close shuts down the collector gracefully, draining the channel.
func (c *Collector) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.stopCh)
	select {
	case <-c.done:
		// Clean shutdown completed.
	case <-time.After(100 * time.Millisecond):
		// Timeout - give up waiting rather than block the host.
	}
}
