package serial

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/margin/internal/event"
	"github.com/Iron-Ham/margin/internal/logging"
)

// Registry maps resource keys to Queues, creating them on first use and
// evicting them once a key has no outstanding work.
//
// Each entry counts the operations submitted through it that have not yet
// finished. Lookup-or-create increments the count and the post-operation
// release decrements it, both under the registry mutex, so no caller can
// observe a key as absent while another still holds work for it.
type Registry[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
	logger  *logging.Logger
	bus     *event.Bus
}

type entry struct {
	q    *Queue
	refs int
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	logger *logging.Logger
	bus    *event.Bus
}

// WithLogger logs queue creation and eviction at debug level.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBus publishes a LockEvictedEvent whenever a key's queue is evicted.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry[K comparable](opts ...Option) *Registry[K] {
	o := options{logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NopLogger()
	}
	return &Registry[K]{
		entries: make(map[K]*entry),
		logger:  o.logger.WithComponent("serial"),
		bus:     o.bus,
	}
}

// Submit queues op behind all earlier work for key and returns immediately.
func (r *Registry[K]) Submit(ctx context.Context, key K, op Op) *Pending {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{q: NewQueue()}
		r.entries[key] = e
		r.logger.Debug("queue created", "key", fmt.Sprint(key))
	}
	e.refs++
	// Queue before unlocking so a concurrent Reset cannot strand the count.
	p := e.q.submit(ctx, op, func() { r.release(key, e) })
	r.mu.Unlock()
	return p
}

// Do submits op for key and waits for its result.
func (r *Registry[K]) Do(ctx context.Context, key K, op Op) (any, error) {
	return r.Submit(ctx, key, op).Wait(ctx)
}

// release drops one reference and evicts the entry when it reaches zero.
// Entries orphaned by Reset are left alone.
func (r *Registry[K]) release(key K, e *entry) {
	r.mu.Lock()
	e.refs--
	evicted := false
	if e.refs == 0 && r.entries[key] == e {
		delete(r.entries, key)
		evicted = true
	}
	r.mu.Unlock()

	if evicted {
		name := fmt.Sprint(key)
		r.logger.Debug("queue evicted", "key", name)
		r.bus.Publish(event.NewLockEvictedEvent(name))
	}
}

// ActiveCount returns the number of keys with outstanding work.
func (r *Registry[K]) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsActive reports whether key has outstanding work.
func (r *Registry[K]) IsActive(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// WaitIdle blocks until the queue currently tracked for key is idle.
// It returns immediately for an unknown key.
func (r *Registry[K]) WaitIdle(ctx context.Context, key K) error {
	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return e.q.WaitIdle(ctx)
}

// WaitAllIdle blocks until every queue tracked at the time of the call is
// idle. Work submitted afterwards is not waited for.
func (r *Registry[K]) WaitAllIdle(ctx context.Context) error {
	r.mu.Lock()
	queues := make([]*Queue, 0, len(r.entries))
	for _, e := range r.entries {
		queues = append(queues, e.q)
	}
	r.mu.Unlock()

	for _, q := range queues {
		if err := q.WaitIdle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reset forgets every tracked queue. In-flight and queued operations still
// run, but later submissions for the same keys get fresh queues and are not
// ordered after them. Intended for tests and teardown.
func (r *Registry[K]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[K]*entry)
}

// RunKeyed executes fn under key's exclusion and returns its typed result.
func RunKeyed[K comparable, T any](ctx context.Context, r *Registry[K], key K, fn func(ctx context.Context) (T, error)) (T, error) {
	return typed[T](r.Do(ctx, key, wrap(fn)))
}
