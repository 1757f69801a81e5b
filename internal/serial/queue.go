package serial

import (
	"context"
	"sync"

	"github.com/Iron-Ham/margin/internal/errors"
)

// Op is a unit of work executed under a Queue's exclusion.
type Op func(ctx context.Context) (any, error)

// Queue serializes operations for a single resource.
// The zero value is an idle, ready-to-use Queue.
type Queue struct {
	mu      sync.Mutex
	running bool
	pending []*pendingOp
	idle    chan struct{} // closed when the drain loop exits; nil before first use
}

// NewQueue returns an idle Queue.
func NewQueue() *Queue {
	return &Queue{}
}

type pendingOp struct {
	ctx    context.Context
	op     Op
	result *Pending
	after  func() // runs after op returns, before result is delivered
}

// Pending is the handle for a submitted operation.
type Pending struct {
	done  chan struct{}
	value any
	err   error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Done returns a channel closed once the operation has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the operation settles or ctx is done. When ctx ends
// first, Wait returns ctx.Err() and the operation keeps running.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) settle(value any, err error) {
	p.value, p.err = value, err
	close(p.done)
}

// Submit queues op and returns immediately. The operation starts after
// every operation submitted before it has finished.
func (q *Queue) Submit(ctx context.Context, op Op) *Pending {
	return q.submit(ctx, op, nil)
}

// Do submits op and waits for its result.
func (q *Queue) Do(ctx context.Context, op Op) (any, error) {
	return q.Submit(ctx, op).Wait(ctx)
}

func (q *Queue) submit(ctx context.Context, op Op, after func()) *Pending {
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPending()
	pop := &pendingOp{
		ctx:    context.WithoutCancel(ctx),
		op:     op,
		result: p,
		after:  after,
	}

	q.mu.Lock()
	q.pending = append(q.pending, pop)
	if q.running {
		q.mu.Unlock()
		return p
	}
	q.running = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	go q.drain()
	return p
}

// drain runs queued operations until the queue is empty.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		next.run()
	}
}

func (o *pendingOp) run() {
	value, err := o.call()
	if o.after != nil {
		o.after()
	}
	o.result.settle(value, err)
}

// call invokes the operation, converting a panic into an OperationError.
func (o *pendingOp) call() (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = errors.NewOperationError("queued operation panicked", errors.ErrOperationPanic).WithPanic(r)
		}
	}()
	return o.op(o.ctx)
}

// IsRunning reports whether a drain loop is active.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Len returns the number of operations waiting to start. The running
// operation is not counted.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// WaitIdle blocks until the queue is not running and has nothing queued,
// or until ctx is done.
func (q *Queue) WaitIdle(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		q.mu.Lock()
		if !q.running {
			q.mu.Unlock()
			return nil
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
			// A new drain loop may have started after this one exited.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run executes fn on q and returns its typed result.
func Run[T any](ctx context.Context, q *Queue, fn func(ctx context.Context) (T, error)) (T, error) {
	return typed[T](q.Do(ctx, wrap(fn)))
}

func wrap[T any](fn func(ctx context.Context) (T, error)) Op {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

func typed[T any](value any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := value.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}
