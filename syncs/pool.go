package syncs

import (
	"context"
	"sync"
)

// Pool hands out at most n values at a time, creating them on demand and reusing returned ones.
// Idle values count against n.
type Pool[T any] struct {
	live    chan struct{}
	idle    chan T
	create  func() (T, error)
	destroy func(T)
	closed  bool
	mu      sync.Mutex
}

func NewPool[T any](n int, create func() (T, error), destroy func(T)) *Pool[T] {
	return &Pool[T]{
		live:    make(chan struct{}, n),
		idle:    make(chan T, n),
		create:  create,
		destroy: destroy,
	}
}

// Get returns an idle value, or creates one when fewer than n are live.
func (p *Pool[T]) Get(ctx context.Context) (ret T, err error) {
	select {
	case v := <-p.idle:
		return v, nil
	default:
	}

	// waiters also take values returned while they wait
	select {
	case v := <-p.idle:
		return v, nil
	case p.live <- struct{}{}:
	case <-ctx.Done():
		return ret, ctx.Err()
	}

	ret, err = p.create()
	if err != nil {
		<-p.live
		return ret, err
	}
	return ret, nil
}

// Put returns v for reuse. After Close, v is destroyed instead.
func (p *Pool[T]) Put(v T) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.Discard(v)
		return
	}
	select {
	case p.idle <- v:
	default:
		p.Discard(v)
	}
}

// Discard destroys v and frees its slot.
func (p *Pool[T]) Discard(v T) {
	if p.destroy != nil {
		p.destroy(v)
	}
	select {
	case <-p.live:
	default:
	}
}

func (p *Pool[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	for {
		select {
		case v := <-p.idle:
			p.Discard(v)
		default:
			return
		}
	}
}
