package binds

import (
	"log/slog"

	"github.com/reusee/slots/slotvm"
)

// Session owns one vm. It is not safe for concurrent use.
type Session struct {
	vm       *slotvm.VM
	userData *UserData
	id       string
	logger   *slog.Logger
	tracker  *AllocTracker
	strict   bool
	closed   bool
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Logger() *slog.Logger {
	return s.logger
}

func (s *Session) Bindings() *Bindings {
	return s.userData.bindings
}

// AllocTracker is nil unless allocation tracking is enabled.
func (s *Session) AllocTracker() *AllocTracker {
	return s.tracker
}

// LiveHandles is the number of vm handles not yet released.
func (s *Session) LiveHandles() int {
	return s.vm.LiveHandles()
}

// PendingReleases is the number of handles queued for the next maintenance point.
func (s *Session) PendingReleases() int {
	return s.userData.releases.Len()
}

// Interpret runs source in module.
func (s *Session) Interpret(module string, source string) error {
	if s.closed {
		return ErrSessionClosed
	}
	result := s.vm.Interpret(module, source)
	err := collectErrors(&s.userData.errors, result, s.logger)
	s.maintain()
	return err
}

// Context runs fn with a scope of vm access.
func (s *Session) Context(fn func(ctx *Context)) error {
	if s.closed {
		return ErrSessionClosed
	}
	ctx := newContext(s.vm, s.userData)
	defer func() {
		ctx.end()
		s.maintain()
	}()
	fn(ctx)
	return nil
}

func ContextResult[R any](s *Session, fn func(ctx *Context) (R, error)) (ret R, err error) {
	if closedErr := s.Context(func(ctx *Context) {
		ret, err = fn(ctx)
	}); closedErr != nil {
		return ret, closedErr
	}
	return
}

// maintain releases queued handles and discards errors no operation claimed.
func (s *Session) maintain() {
	handles := s.userData.releases.drain()
	for _, handle := range handles {
		s.vm.ReleaseHandle(handle)
	}
	if events := s.userData.errors.take(); len(events) > 0 {
		s.logger.Warn("discarding unclaimed vm errors",
			"count", len(events),
			"first", events[0].message,
		)
	}
}

// Tap starts an interactive prompt on module's globals.
func (s *Session) Tap(module string) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.vm.REPL(module)
	s.maintain()
	return nil
}

// Close frees the vm. Handles still live are reported, and are an error in strict mode.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	for _, handle := range s.userData.releases.close() {
		s.vm.ReleaseHandle(handle)
	}
	live := s.vm.LiveHandles()
	s.vm.Free()

	if s.tracker != nil {
		s.logger.Debug("allocations at close",
			"blocks", s.tracker.LiveBlocks(),
			"bytes", s.tracker.LiveBytes(),
			"total", s.tracker.TotalAllocations(),
		)
	}

	if live > 0 {
		s.logger.Warn("handles not released before close",
			"count", live,
		)
		if s.strict {
			return &HandleLeakError{
				Count: live,
			}
		}
	}
	return nil
}
