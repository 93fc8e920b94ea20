package spanz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// Context is an immutable snapshot of ambient state, of which the
// active span is the one defined slot. Deriving a new Context never
// mutates an existing one, so Contexts are safe to share and read from
// any goroutine.
//
// Each goroutine has its own notion of the "current" Context. Attach
// makes a Context current for the calling goroutine and returns a
// guard; releasing the guard restores whatever was current when Attach
// ran. A fresh goroutine starts at the distinguished empty Context.
type Context struct {
	span Span
	// prev is the Context this one was derived from. It exists only so
	// activation bookkeeping can be inspected while debugging; nothing
	// traverses it as a parent-child query API.
	prev *Context
}

// emptyContext is the distinguished root: no active span, no predecessor.
var emptyContext = &Context{}

// currentCells maps goroutine id to that goroutine's current Context.
// Each entry is written only by its owning goroutine, so entries need
// no further synchronization beyond the map itself.
var currentCells sync.Map // int64 -> *Context

// Current returns the Context active on the calling goroutine, or the
// empty Context if none was ever attached.
func Current() *Context {
	if v, ok := currentCells.Load(goid.Get()); ok {
		return v.(*Context)
	}
	return emptyContext
}

// CurrentWithSpan derives a Context from the current one with its
// active-span slot replaced by span. Nothing becomes current until the
// result is attached.
func CurrentWithSpan(span Span) *Context {
	return Current().WithSpan(span)
}

// Span returns the active span, or the non-recording sentinel span if
// the slot is empty. Never nil, so callers need no nil checks.
func (cx *Context) Span() Span {
	if cx == nil || cx.span == nil {
		return nonRecordingSpan{}
	}
	return cx.span
}

// HasActiveSpan reports whether the active-span slot holds a span with
// a valid SpanContext.
func (cx *Context) HasActiveSpan() bool {
	return cx != nil && cx.span != nil && cx.span.SpanContext().IsValid()
}

// WithSpan returns a new Context derived from cx with the active-span
// slot replaced by span. cx is not modified.
func (cx *Context) WithSpan(span Span) *Context {
	if cx == nil {
		cx = emptyContext
	}
	return &Context{span: span, prev: cx}
}

// ContextGuard is a single-use scope token created by Attach. It holds
// the Context that was current immediately before the attach; exactly
// one Detach is valid.
type ContextGuard struct {
	prior    *Context
	gid      int64
	detached atomic.Bool
}

// Attach makes cx the current Context for the calling goroutine and
// returns a guard capturing the previously current Context. Every
// Attach must be paired with exactly one Detach on the same goroutine.
func (cx *Context) Attach() *ContextGuard {
	if cx == nil {
		cx = emptyContext
	}
	gid := goid.Get()
	prior := Current()
	currentCells.Store(gid, cx)
	return &ContextGuard{prior: prior, gid: gid}
}

// Detach restores "current" to the Context the guard captured,
// regardless of what is current right now. Restoration targets the
// captured value, not a stack pop, so a release that arrives out of
// nesting order does not corrupt unrelated scopes.
//
// A second Detach, or a Detach from a goroutine other than the one
// that attached, performs no restore and is reported to the error
// handler.
func (g *ContextGuard) Detach() {
	gid := goid.Get()
	if gid != g.gid {
		// The guard stays live: the attaching goroutine can still
		// perform the one valid release.
		reportError(ErrGuardWrongGoroutine)
		return
	}

	if g.detached.Swap(true) {
		reportError(ErrGuardDetached)
		return
	}

	if g.prior == emptyContext {
		// Dropping the cell, rather than storing the empty root, keeps
		// the registry from accumulating entries for dead goroutines.
		currentCells.Delete(gid)
		return
	}
	currentCells.Store(gid, g.prior)
}

// Step is a single resumption of a deferred computation. It runs one
// slice of the work and reports whether the computation completed.
type Step func() (done bool)

// Bind wraps a step-driven computation with cx. Each invocation of the
// returned Step attaches cx, runs one resumption, and detaches before
// yielding control back, so the scope is never held open across a
// suspension point and resumptions may migrate between goroutines.
//
// Holding a single guard across the whole computation instead is wrong:
// unrelated work interleaving between resumptions would observe the
// wrong Context, and a final release could land on a different
// goroutine than the attach.
func (cx *Context) Bind(step Step) Step {
	return func() bool {
		guard := cx.Attach()
		defer guard.Detach()
		return step()
	}
}

// Run invokes f with cx attached for f's full extent. The guard is
// released on every exit path, including panics.
func (cx *Context) Run(f func()) {
	guard := cx.Attach()
	defer guard.Detach()
	f()
}

// Go runs f on a new goroutine with cx attached for f's full extent.
// The new goroutine owns its own current-Context cell, so the caller's
// scope is unaffected.
func (cx *Context) Go(f func()) {
	go cx.Run(f)
}

// spanKeyType is a private type for context keys to avoid collisions.
type spanKeyType string

const spanKey spanKeyType = "spanz"

// ContextWithSpan embeds span in a context.Context carrier for code
// that already threads one through its call paths.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey, span)
}

// SpanFromContext extracts the span from a context.Context carrier.
// Returns the non-recording sentinel span if none is present.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nonRecordingSpan{}
	}
	if span, ok := ctx.Value(spanKey).(Span); ok {
		return span
	}
	return nonRecordingSpan{}
}
