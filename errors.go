package spanz

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrGuardDetached reports a second Detach of the same ContextGuard.
	ErrGuardDetached = errors.New("spanz: context guard already detached")
	// ErrGuardWrongGoroutine reports a Detach from a goroutine other
	// than the one that attached.
	ErrGuardWrongGoroutine = errors.New("spanz: context guard detached on a different goroutine than it was attached on")
)

// ErrorHandler receives internal library failures: guard misuse and
// panics from samplers, id generators, and span processors. Handlers
// must not panic and should return quickly; calls are fire-and-forget
// and never retried.
type ErrorHandler func(error)

var errorHandler atomic.Value // ErrorHandler

// SetErrorHandler installs the process-wide error handler. A nil
// handler restores the default, which discards errors.
func SetErrorHandler(h ErrorHandler) {
	if h == nil {
		h = func(error) {}
	}
	errorHandler.Store(h)
}

// reportError hands err to the installed handler, if any.
func reportError(err error) {
	if err == nil {
		return
	}
	if h, ok := errorHandler.Load().(ErrorHandler); ok {
		h(err)
	}
}
