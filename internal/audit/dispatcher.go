package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/authcore/audit"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher delivers entries to a sink in arrival order from one
// goroutine. Entries accepted before Close are always delivered.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan audit.Entry
	stop  chan struct{}

	// mu guards accepting: Emit holds it shared while handing an entry
	// to the queue, Close holds it exclusively to stop accepting.
	mu        sync.RWMutex
	accepting bool

	worker  sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

// NewDispatcher returns nil when auditing is disabled; a nil dispatcher
// accepts and discards entries.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:       cfg,
		sink:      sink,
		queue:     make(chan audit.Entry, cfg.BufferSize),
		stop:      make(chan struct{}),
		accepting: true,
	}
	d.worker.Add(1)
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer d.worker.Done()
	for {
		select {
		case e := <-d.queue:
			d.sink.Emit(context.Background(), e)
		case <-d.stop:
			return
		}
	}
}

// Emit queues entry. With DropIfFull a full queue drops the entry;
// otherwise Emit waits for room until ctx ends. Entries that are not
// queued, including those arriving during Close, count as dropped.
func (d *Dispatcher) Emit(ctx context.Context, entry audit.Entry) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.accepting {
		d.dropped.Add(1)
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- entry:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- entry:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
		d.dropped.Add(1)
	}
}

// Close stops accepting entries, waits for the worker and delivers
// whatever is still queued.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		close(d.stop)

		d.mu.Lock()
		d.accepting = false
		d.mu.Unlock()

		d.worker.Wait()
		for {
			select {
			case e := <-d.queue:
				d.sink.Emit(context.Background(), e)
			default:
				return
			}
		}
	})
}

// Dropped returns the number of entries that were never delivered.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
