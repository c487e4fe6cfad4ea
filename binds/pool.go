package binds

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/reusee/slots/logs"
	"github.com/reusee/slots/syncs"
)

// Pool lends sessions to one goroutine at a time.
type Pool struct {
	sessions *syncs.Pool[*Session]
	newSpan  logs.NewSpan
	logger   *slog.Logger

	mu        sync.Mutex
	closeErrs []error
}

func NewSessionPool(size int, build func() *Session) *Pool {
	p := new(Pool)
	p.sessions = syncs.NewPool(
		max(size, 1),
		func() (*Session, error) {
			return build(), nil
		},
		func(session *Session) {
			if err := session.Close(); err != nil {
				p.mu.Lock()
				p.closeErrs = append(p.closeErrs, err)
				p.mu.Unlock()
			}
		},
	)
	return p
}

// Do runs fn with an exclusively held session. Only waiting for a session observes ctx.
func (p *Pool) Do(ctx context.Context, fn func(session *Session) error) error {
	if p.newSpan != nil {
		ctx, _ = p.newSpan(ctx, "")
	}
	session, err := p.sessions.Get(ctx)
	if err != nil {
		return logs.WrapSpan(ctx, err)
	}
	if p.logger != nil {
		p.logger.DebugContext(ctx, "session checked out",
			"session", session.ID(),
		)
	}

	if err := fn(session); err != nil {
		// a session that failed may hold partial module state
		var runtimeErr *RuntimeError
		if errors.As(err, &runtimeErr) {
			p.sessions.Discard(session)
		} else {
			p.sessions.Put(session)
		}
		return logs.WrapSpan(ctx, err)
	}
	p.sessions.Put(session)
	return nil
}

// Close closes idle sessions and sessions returned later.
func (p *Pool) Close() error {
	p.sessions.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.closeErrs...)
}
