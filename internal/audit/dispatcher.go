package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher feeds a Sink from a bounded queue so login decisions never
// wait on audit delivery. A single worker drains the queue in arrival
// order. A nil *Dispatcher is valid and discards everything; that is how
// an engine with auditing switched off carries one without branching.
type Dispatcher struct {
	sink       Sink
	queue      chan Event
	dropIfFull bool
	now        func() time.Time

	dropped atomic.Uint64

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	drained  chan struct{}
}

// NewDispatcher starts the delivery worker. The queue holds at least one
// event. With dropIfFull set, Record sheds events under backpressure and
// counts what it shed; otherwise Record waits for queue space, bounded
// by the caller's context.
func NewDispatcher(sink Sink, buffer int, dropIfFull bool) *Dispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	if buffer < 1 {
		buffer = 1
	}

	d := &Dispatcher{
		sink:       sink,
		queue:      make(chan Event, buffer),
		dropIfFull: dropIfFull,
		now:        time.Now,
		drained:    make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.drained)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Record queues the event for delivery, stamping Timestamp in UTC when
// the caller left it zero. Events recorded after Close are discarded.
func (d *Dispatcher) Record(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops intake, waits for in-flight Record calls, and drains the
// queue through the sink before returning. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()
	close(d.queue)
	<-d.drained
}

// Dropped reports how many events were shed under backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
