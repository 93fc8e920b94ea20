package spanz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
)

// Tracer is the factory and policy object: it resolves parents,
// consults the sampler, constructs spans, and provides the activation
// helpers. Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for readability over memory
type Tracer struct {
	name       string
	clock      clockz.Clock
	idgen      IDGenerator
	sampler    Sampler
	resource   *Resource
	processors []processorEntry
	procLock   sync.RWMutex
	nextID     atomic.Uint64
}

// Option configures a Tracer at construction.
type Option func(*Tracer)

// WithClock injects the clock used for span timestamps. Enables
// deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(t *Tracer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithIDGenerator injects the trace/span id source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(t *Tracer) {
		if gen != nil {
			t.idgen = gen
		}
	}
}

// WithSampler injects the sampling policy consulted at span start.
func WithSampler(sampler Sampler) Option {
	return func(t *Tracer) {
		if sampler != nil {
			t.sampler = sampler
		}
	}
}

// WithResource attaches an attribute bundle to every span the tracer
// produces.
func WithResource(resource *Resource) Option {
	return func(t *Tracer) {
		t.resource = resource
	}
}

// WithSpanProcessor registers a processor at construction.
func WithSpanProcessor(p SpanProcessor) Option {
	return func(t *Tracer) {
		t.RegisterSpanProcessor(p)
	}
}

// New creates a tracer named name, typically the instrumented component.
// Defaults: real clock, pooled random ids, ParentBased(AlwaysOn) sampling.
func New(name string, opts ...Option) *Tracer {
	t := &Tracer{
		name:    name,
		clock:   clockz.RealClock,
		idgen:   newDefaultIDGenerator(),
		sampler: ParentBased(AlwaysOn()),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the tracer's component name.
func (t *Tracer) Name() string {
	return t.name
}

// RegisterSpanProcessor registers a processor and returns its id.
func (t *Tracer) RegisterSpanProcessor(p SpanProcessor) uint64 {
	if p == nil {
		return 0
	}

	id := t.nextID.Add(1)

	t.procLock.Lock()
	defer t.procLock.Unlock()

	t.processors = append(t.processors, processorEntry{
		id:        id,
		processor: p,
	})

	return id
}

// RemoveSpanProcessor removes a processor by id.
func (t *Tracer) RemoveSpanProcessor(id uint64) {
	t.procLock.Lock()
	defer t.procLock.Unlock()

	// Preserve order
	for i, e := range t.processors {
		if e.id == id {
			copy(t.processors[i:], t.processors[i+1:])
			t.processors = t.processors[:len(t.processors)-1]
			return
		}
	}
}

// HasProcessors reports whether any processor is registered.
func (t *Tracer) HasProcessors() bool {
	t.procLock.RLock()
	defer t.procLock.RUnlock()
	return len(t.processors) > 0
}

// Invalid returns a span with an invalid SpanContext, used wherever a
// default span is needed and none is present.
func (t *Tracer) Invalid() Span {
	return nonRecordingSpan{}
}

// Start creates a span named name, parented from the calling
// goroutine's current Context. The new span does not become active;
// pair with MarkSpanAsActive or use InSpan for that.
func (t *Tracer) Start(name string) Span {
	return t.StartFromContext(name, Current())
}

// StartFromContext creates a span parented from an explicit Context
// instead of the ambient one.
func (t *Tracer) StartFromContext(name string, cx *Context) Span {
	return t.BuildWithContext(NewSpanBuilder(name), cx)
}

// StartFromGoContext creates a span parented from a span carried in a
// context.Context, for call paths that thread one instead of using the
// ambient mechanism.
func (t *Tracer) StartFromGoContext(ctx context.Context, name string) Span {
	return t.BuildWithContext(NewSpanBuilder(name), emptyContext.WithSpan(SpanFromContext(ctx)))
}

// SpanBuilder creates a builder for richer span configuration.
func (t *Tracer) SpanBuilder(name string) SpanBuilder {
	return NewSpanBuilder(name)
}

// Build constructs a span from builder configuration, resolving the
// parent against the calling goroutine's current Context.
func (t *Tracer) Build(b SpanBuilder) Span {
	return t.BuildWithContext(b, Current())
}

// BuildWithContext constructs a span from builder configuration and an
// explicit ambient Context.
//
// Parent resolution precedence: the builder's explicit Parent; else a
// parent synthesized from builder TraceID/SpanID overrides; else the
// ambient Context's active span; else the span is a root with a fresh
// trace id. A fresh span id is always generated. Trace flags and trace
// state are inherited from the resolved parent unless overridden.
func (t *Tracer) BuildWithContext(b SpanBuilder, cx *Context) Span {
	parent := resolveParent(b, cx)

	traceID := b.TraceID
	if parent != nil {
		traceID = parent.TraceID()
	}
	if !traceID.IsValid() {
		traceID = t.safeNewTraceID()
	}
	spanID := t.safeNewSpanID()

	var result SamplingResult
	if b.SamplingResult != nil {
		result = *b.SamplingResult
	} else {
		result = t.safeShouldSample(SamplingParameters{
			Parent:     parent,
			TraceID:    traceID,
			Name:       b.Name,
			Kind:       b.Kind,
			Attributes: b.Attributes,
			Links:      b.Links,
		})
	}

	var flags TraceFlags
	var state TraceState
	if parent != nil {
		flags = parent.TraceFlags()
		state = parent.TraceState()
	}
	flags = flags.WithSampled(result.Decision == RecordAndSample)
	if result.TraceState.Len() > 0 {
		state = result.TraceState
	}

	sc := NewSpanContext(traceID, spanID, flags, state)

	if result.Decision == Drop {
		return nonRecordingSpan{sc: sc}
	}

	startTime := b.StartTime
	if startTime.IsZero() {
		startTime = t.clock.Now()
	}

	attrs := make([]KeyValue, 0, len(b.Attributes)+len(result.Attributes))
	attrs = append(attrs, b.Attributes...)
	attrs = append(attrs, result.Attributes...)
	if len(attrs) == 0 {
		attrs = nil
	}

	var parentSpanID SpanID
	if parent != nil {
		parentSpanID = parent.SpanID()
	}

	span := &recordingSpan{
		tracer: t,
		data: SpanData{
			SpanContext:   sc,
			ParentSpanID:  parentSpanID,
			Name:          b.Name,
			Kind:          b.Kind,
			StartTime:     startTime,
			Attributes:    attrs,
			Events:        b.Events,
			Links:         b.Links,
			StatusCode:    b.StatusCode,
			StatusMessage: b.StatusMessage,
			Resource:      t.resource,
		},
	}

	t.notifyStart(span, cx)

	if !b.EndTime.IsZero() {
		span.EndWithTimestamp(b.EndTime)
	}

	return span
}

// resolveParent applies the precedence order documented on
// BuildWithContext, returning nil for a root span.
func resolveParent(b SpanBuilder, cx *Context) *SpanContext {
	switch {
	case b.Parent != nil:
		if !b.Parent.IsValid() {
			// Explicit invalid parent detaches from the ambient scope.
			return nil
		}
		sc := *b.Parent
		return &sc
	case b.TraceID.IsValid():
		sc := NewSpanContext(b.TraceID, b.SpanID, 0, TraceState{})
		return &sc
	default:
		if sc := cx.Span().SpanContext(); sc.IsValid() {
			return &sc
		}
	}
	return nil
}

// MarkSpanAsActive makes span the active span on the calling
// goroutine. The caller owns the returned guard and is responsible for
// exactly one Detach.
func (t *Tracer) MarkSpanAsActive(span Span) *ContextGuard {
	return CurrentWithSpan(span).Attach()
}

// GetActiveSpan invokes f with the current Context's active span, or
// the invalid sentinel span if none is active. Read-only; no scope
// change.
func (t *Tracer) GetActiveSpan(f func(Span)) {
	f(Current().Span())
}

// InSpan starts a span named name, activates it for the dynamic extent
// of f, then releases the guard and ends the span. Both happen on
// every exit path, including a panic out of f.
func (t *Tracer) InSpan(name string, f func(*Context)) {
	span := t.Start(name)
	defer span.End()

	cx := CurrentWithSpan(span)
	guard := cx.Attach()
	defer guard.Detach()

	f(cx)
}

// WithSpan activates an existing span for the dynamic extent of f,
// releasing the guard on every exit path. The span's own lifecycle is
// untouched: WithSpan never ends it.
func (t *Tracer) WithSpan(span Span, f func(*Context)) {
	cx := CurrentWithSpan(span)
	guard := cx.Attach()
	defer guard.Detach()

	f(cx)
}

// notifyStart fans a newly constructed span out to the processors.
func (t *Tracer) notifyStart(span Span, parent *Context) {
	for _, e := range t.snapshotProcessors() {
		t.safeOnStart(e, span, parent)
	}
}

// spanEnded fans a completed span's snapshot out to the processors.
func (t *Tracer) spanEnded(data SpanData) {
	for _, e := range t.snapshotProcessors() {
		t.safeOnEnd(e, data)
	}
}

func (t *Tracer) snapshotProcessors() []processorEntry {
	t.procLock.RLock()
	if len(t.processors) == 0 {
		t.procLock.RUnlock()
		return nil
	}

	processors := make([]processorEntry, len(t.processors))
	copy(processors, t.processors)
	t.procLock.RUnlock()

	return processors
}

func (t *Tracer) safeOnStart(entry processorEntry, span Span, parent *Context) {
	defer func() {
		if r := recover(); r != nil {
			reportError(fmt.Errorf("spanz: span processor %d panicked in OnStart: %v", entry.id, r))
		}
	}()
	entry.processor.OnStart(span, parent)
}

func (t *Tracer) safeOnEnd(entry processorEntry, data SpanData) {
	defer func() {
		if r := recover(); r != nil {
			reportError(fmt.Errorf("spanz: span processor %d panicked in OnEnd: %v", entry.id, r))
		}
	}()
	entry.processor.OnEnd(data)
}

// safeNewTraceID consults the id generator with panic recovery; a
// failing generator degrades to the default generator rather than
// breaking the host.
func (t *Tracer) safeNewTraceID() (id TraceID) {
	defer func() {
		if r := recover(); r != nil {
			reportError(fmt.Errorf("spanz: id generator panicked in NewTraceID: %v", r))
			var raw [16]byte
			copy(raw[:], timeFallbackID(16))
			id = TraceID(raw)
		}
	}()
	return t.idgen.NewTraceID()
}

func (t *Tracer) safeNewSpanID() (id SpanID) {
	defer func() {
		if r := recover(); r != nil {
			reportError(fmt.Errorf("spanz: id generator panicked in NewSpanID: %v", r))
			var raw [8]byte
			copy(raw[:], timeFallbackID(8))
			id = SpanID(raw)
		}
	}()
	return t.idgen.NewSpanID()
}

// safeShouldSample consults the sampler with panic recovery; a failing
// sampler records the span rather than losing it.
func (t *Tracer) safeShouldSample(params SamplingParameters) (result SamplingResult) {
	defer func() {
		if r := recover(); r != nil {
			reportError(fmt.Errorf("spanz: sampler panicked: %v", r))
			result = SamplingResult{Decision: RecordAndSample}
		}
	}()
	return t.sampler.ShouldSample(params)
}

// Close releases tracer resources: processors are dropped and the
// default id generator's pools are shut down. Spans already started
// remain usable but end unobserved.
func (t *Tracer) Close() {
	t.procLock.Lock()
	t.processors = nil
	t.procLock.Unlock()

	if gen, ok := t.idgen.(*defaultIDGenerator); ok {
		gen.close()
	}
}
