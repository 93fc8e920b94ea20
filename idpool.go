package spanz

import (
	"sync"
)

// idPool manages a pool of pre-generated id bytes to amortize random
// source overhead on the span-start path.
type idPool struct {
	factory func() []byte
	ids     chan []byte
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// newIDPool creates a pool with the specified capacity.
func newIDPool(capacity int, factory func() []byte) *idPool {
	pool := &idPool{
		ids:     make(chan []byte, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	// Start background refill goroutine.
	go pool.refill()
	return pool
}

// get retrieves an id from the pool or generates one if the pool is empty.
func (p *idPool) get() []byte {
	select {
	case id := <-p.ids:
		return id
	default:
		// Pool empty, generate directly (fallback for burst load).
		return p.factory()
	}
}

// refill maintains the pool by generating ids in the background.
func (p *idPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			select {
			case p.ids <- p.factory():
				// Successfully added an id to the pool.
			case <-p.stopCh:
				return
			}
		}
	}
}

// close shuts down the pool gracefully.
func (p *idPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}
