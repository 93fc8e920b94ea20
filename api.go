// Package spanz provides the instrumentation core of a distributed
// tracing library: span creation with correct causal linkage, and a
// nesting-safe mechanism for tracking the currently active span as
// control flows through a program.
//
// Core Components:.
//   - Tracer: Resolves parents, constructs spans, and provides activation.
//   - Span: The capability surface of a single unit of work.
//   - Context: Immutable snapshot carrying the active span for a goroutine.
//   - ContextGuard: Scope token whose release restores the prior Context.
//   - SpanBuilder: Collects span configuration before construction.
//   - Collector: Buffers completed spans for export.
//
// Basic Usage:.
//
//	tracer := spanz.New("my-service")
//	defer tracer.Close()
//
//	// Start a root span and activate it.
//	span := tracer.Start("operation-name")
//	guard := tracer.MarkSpanAsActive(span)
//
//	// Anything running below sees the span as active.
//	child := tracer.Start("child-operation")
//	child.End()
//
//	guard.Detach()
//	span.End()
//
// Or scope activation to a closure:.
//
//	tracer.InSpan("operation-name", func(cx *spanz.Context) {
//		// cx.Span() is active here; the guard is released and the
//		// span ended on every exit path, including panics.
//	})
//
// Thread Safety:.
//
// "Current" Context state is per-goroutine; no goroutine ever observes
// another's active span. Contexts are immutable and safe to share.
// Span operations are safe for concurrent use by every holder of the
// handle; contention is per-span, never global.
//
// Asynchronous Work:.
//
// A guard held across a suspension point is wrong: it keeps the scope
// open while unrelated work runs, and resumptions may migrate between
// goroutines. Wrap step-driven work with Context.Bind, which re-enters
// activation around each resumption, or hand whole closures to
// Context.Run / Context.Go.
//
// Error Handling:.
//
// Instrumentation must never break the host program. Library-detected
// misuse and collaborator panics are reported to the handler installed
// with SetErrorHandler; nothing in this package panics outward.
package spanz

import "time"

// KeyValue is a single span attribute.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attr builds a KeyValue attribute.
func Attr(key, value string) KeyValue {
	return KeyValue{Key: key, Value: value}
}

// Event is a timestamped annotation on a span.
type Event struct {
	Time       time.Time  `json:"time"`
	Name       string     `json:"name"`
	Attributes []KeyValue `json:"attributes,omitempty"`
}

// Link is a causal reference from one span to another span's SpanContext,
// typically in a different trace.
type Link struct {
	SpanContext SpanContext `json:"span_context"`
	Attributes  []KeyValue  `json:"attributes,omitempty"`
}

// SpanKind describes the relationship between a span and its parents
// and children in a trace.
type SpanKind int

const (
	// SpanKindInternal is the default kind: an operation internal to
	// an application.
	SpanKindInternal SpanKind = iota
	// SpanKindServer covers handling a synchronous remote request.
	SpanKindServer
	// SpanKindClient covers issuing a synchronous remote request.
	SpanKindClient
	// SpanKindProducer covers creating an asynchronous message.
	SpanKindProducer
	// SpanKindConsumer covers processing an asynchronous message.
	SpanKindConsumer
)

// String returns the lowercase name of the kind.
func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// StatusCode is the outcome classification of a span.
type StatusCode int

const (
	// StatusUnset means no status was recorded.
	StatusUnset StatusCode = iota
	// StatusOK marks the operation as successful.
	StatusOK
	// StatusError marks the operation as failed.
	StatusError
)

// String returns the name of the status code.
func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}
