package signaling

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"asciisfu/internal/wire"
)

// Outbox is the per-connection fan-in queue (component 7): any handler may
// push a control message for a target user; only that user's own handler
// ever drains it. It is a bounded MPSC queue with capacity outboxCapacity;
// on overflow the oldest queued message is dropped to make room for the
// newest one, per §5.
type Outbox struct {
	mu sync.Mutex
	ch chan wire.Message

	// overflows counts consecutive drop-oldest events since the last
	// successful drain, for the saturation warning below. Reset by noteDrain.
	overflows atomic.Uint32
	warned    atomic.Bool
}

// NewOutbox returns an empty Outbox ready to receive pushes.
func NewOutbox() *Outbox {
	return &Outbox{ch: make(chan wire.Message, outboxCapacity)}
}

// Push enqueues m, dropping the oldest queued message if the queue is full.
func (o *Outbox) Push(m wire.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	select {
	case o.ch <- m:
		return
	default:
	}

	// Full: evict the oldest entry and retry once.
	select {
	case <-o.ch:
	default:
	}
	select {
	case o.ch <- m:
	default:
		// Not reached while every send goes through Push under o.mu: the
		// only concurrent access is the owner draining, which only frees
		// room. Kept so that Push can never block; the newest message
		// would be the one dropped here.
	}

	n := o.overflows.Add(1)
	if n == queueSaturationWarnAfter && o.warned.CompareAndSwap(false, true) {
		slog.Warn("outbox saturated, dropping oldest queued messages", "overflow_count", n)
	}
}

// C returns the receive side of the queue. Only the owning handler should
// read from it.
func (o *Outbox) C() <-chan wire.Message {
	return o.ch
}

// noteDrain resets the saturation counters after a successful delivery.
func (o *Outbox) noteDrain() {
	o.overflows.Store(0)
	o.warned.Store(false)
}
