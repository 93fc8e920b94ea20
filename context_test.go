package spanz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/petermattis/goid"
)

// testGoroutineID exposes the calling goroutine's registry key for
// cleanup after deliberately non-nested scenarios.
func testGoroutineID() int64 {
	return goid.Get()
}

func TestCurrentDefaultsToEmpty(t *testing.T) {
	cx := Current()
	if cx != emptyContext {
		t.Error("expected the empty context before any attach")
	}

	span := cx.Span()
	if span == nil {
		t.Fatal("active-span accessor must never return nil")
	}
	if span.SpanContext().IsValid() {
		t.Error("empty context should carry the invalid sentinel span")
	}
	if cx.HasActiveSpan() {
		t.Error("empty context should report no active span")
	}
}

func TestWithSpanDoesNotMutate(t *testing.T) {
	tracer := New("test-service")
	defer tracer.Close()

	span := tracer.Start("op")
	defer span.End()

	before := Current()
	derived := CurrentWithSpan(span)

	if Current() != before {
		t.Error("deriving a context must not change what is current")
	}
	if derived.Span() != span {
		t.Error("derived context should hold the span")
	}
	if before.HasActiveSpan() {
		t.Error("original context should be unchanged")
	}
}

func TestAttachDetachRoundTrip(t *testing.T) {
	tracer := New("test-service")
	defer tracer.Close()

	before := Current()

	outer := CurrentWithSpan(tracer.Start("outer"))
	outerGuard := outer.Attach()

	if Current() != outer {
		t.Error("outer context should be current after attach")
	}

	inner := CurrentWithSpan(tracer.Start("inner"))
	innerGuard := inner.Attach()

	if Current() != inner {
		t.Error("inner context should be current after nested attach")
	}

	innerGuard.Detach()
	if Current() != outer {
		t.Error("inner detach should restore the outer context")
	}

	outerGuard.Detach()
	if Current() != before {
		t.Error("outermost detach should restore the pre-attach context")
	}
}

func TestDetachRestoresCapturedValue(t *testing.T) {
	// Releasing guards out of nesting order must restore each guard's
	// own captured prior value, not pop a stack.
	tracer := New("test-service")
	defer tracer.Close()

	cxA := CurrentWithSpan(tracer.Start("a"))
	cxB := CurrentWithSpan(tracer.Start("b"))

	guardA := cxA.Attach() // captured: empty
	guardB := cxB.Attach() // captured: cxA

	guardA.Detach() // out of order
	if Current() != emptyContext {
		t.Error("guardA should restore its captured value, the empty context")
	}

	guardB.Detach()
	if Current() != cxA {
		t.Error("guardB should restore its captured value, cxA")
	}

	// Clean up the deliberately surprising final state.
	currentCells.Delete(testGoroutineID())
}

func TestGuardDoubleDetachReported(t *testing.T) {
	var mu sync.Mutex
	var got []error
	SetErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, err)
	})
	defer SetErrorHandler(nil)

	cx := CurrentWithSpan(nonRecordingSpan{})
	guard := cx.Attach()

	guard.Detach()
	if Current() != emptyContext {
		t.Error("first detach should restore the empty context")
	}

	guard.Detach()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || !errors.Is(got[0], ErrGuardDetached) {
		t.Errorf("expected one ErrGuardDetached report, got %v", got)
	}
	if Current() != emptyContext {
		t.Error("double detach must not disturb the current context")
	}
}

func TestGuardWrongGoroutineReported(t *testing.T) {
	var mu sync.Mutex
	var got []error
	SetErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, err)
	})
	defer SetErrorHandler(nil)

	cx := CurrentWithSpan(nonRecordingSpan{})
	guard := cx.Attach()

	done := make(chan struct{})
	go func() {
		defer close(done)
		guard.Detach()
	}()
	<-done

	mu.Lock()
	if len(got) != 1 || !errors.Is(got[0], ErrGuardWrongGoroutine) {
		t.Errorf("expected one ErrGuardWrongGoroutine report, got %v", got)
	}
	mu.Unlock()

	if Current() != cx {
		t.Error("foreign detach must not restore anything")
	}

	// The attaching goroutine still owns the one valid release.
	guard.Detach()
	if Current() != emptyContext {
		t.Error("owner detach should still restore the empty context")
	}
}

func TestCurrentIsPerGoroutine(t *testing.T) {
	tracer := New("test-service")
	defer tracer.Close()

	span := tracer.Start("main-op")
	cx := CurrentWithSpan(span)
	guard := cx.Attach()
	defer guard.Detach()

	results := make(chan bool, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		// A fresh goroutine starts at the empty context.
		results <- Current() == emptyContext

		other := CurrentWithSpan(tracer.Start("other-op"))
		g := other.Attach()
		results <- Current() == other
		g.Detach()
	}()
	wg.Wait()

	if !<-results {
		t.Error("new goroutine should not see another goroutine's context")
	}
	if !<-results {
		t.Error("goroutine should see its own attached context")
	}

	if Current() != cx {
		t.Error("main goroutine's context should be unaffected")
	}
}

func TestRunReleasesOnPanic(t *testing.T) {
	cx := CurrentWithSpan(nonRecordingSpan{})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		cx.Run(func() {
			if Current() != cx {
				t.Error("context should be attached inside Run")
			}
			panic("boom")
		})
	}()

	if Current() != emptyContext {
		t.Error("Run must detach on the panic path")
	}
}

func TestBindAttachesPerStep(t *testing.T) {
	tracer := New("test-service")
	defer tracer.Close()

	span := tracer.Start("deferred-op")
	defer span.End()
	cx := CurrentWithSpan(span)

	remaining := 3
	step := cx.Bind(func() bool {
		if Current() != cx {
			t.Error("bound context should be current inside a resumption")
		}
		remaining--
		return remaining == 0
	})

	// Drive each resumption from a different goroutine, simulating a
	// deferred computation migrating between schedulers.
	for i := 0; i < 3; i++ {
		done := make(chan bool, 1)
		go func() {
			finished := step()
			// The scope must close before control yields back.
			if Current() != emptyContext {
				t.Error("context should be detached between resumptions")
			}
			done <- finished
		}()
		finished := <-done
		if finished != (i == 2) {
			t.Errorf("step %d: unexpected completion %v", i, finished)
		}
	}

	if Current() != emptyContext {
		t.Error("driving goroutine's context should be untouched")
	}
}

func TestGoAttachesOnNewGoroutine(t *testing.T) {
	tracer := New("test-service")
	defer tracer.Close()

	span := tracer.Start("bg-op")
	defer span.End()
	cx := CurrentWithSpan(span)

	done := make(chan bool, 1)
	cx.Go(func() {
		done <- Current() == cx
	})

	if !<-done {
		t.Error("Go should run f with the context attached")
	}
	if Current() != emptyContext {
		t.Error("caller's context should be unaffected by Go")
	}
}

func TestContextWithSpanBridge(t *testing.T) {
	tracer := New("test-service")
	defer tracer.Close()

	span := tracer.Start("carried-op")
	defer span.End()

	ctx := ContextWithSpan(context.Background(), span)
	if SpanFromContext(ctx) != span {
		t.Error("expected the embedded span back")
	}

	if SpanFromContext(context.Background()).SpanContext().IsValid() {
		t.Error("missing span should degrade to the invalid sentinel")
	}
	if SpanFromContext(nil).SpanContext().IsValid() { //nolint:staticcheck // nil carrier tolerance is part of the contract
		t.Error("nil carrier should degrade to the invalid sentinel")
	}
}
