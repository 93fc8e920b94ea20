package spanz

import "time"

// SpanBuilder collects span configuration before construction. All
// fields except Name are optional; absent fields take tracer defaults
// when the builder is passed to Build. The builder is a plain value:
// the With* setters return modified copies, and the caller owns it
// exclusively until construction consumes it.
type SpanBuilder struct {
	// Parent, when set, is the parent SpanContext, full stop: the
	// ambient Context is not consulted. Setting an invalid Parent
	// forces a root span.
	Parent *SpanContext
	// TraceID and SpanID synthesize a parent from externally tracked
	// identifiers when no Parent is set.
	TraceID TraceID
	SpanID  SpanID

	Kind      SpanKind
	Name      string
	StartTime time.Time
	// EndTime, when set, produces a span that is already ended.
	EndTime       time.Time
	Attributes    []KeyValue
	Events        []Event
	Links         []Link
	StatusCode    StatusCode
	StatusMessage string
	// SamplingResult, when set, is used verbatim and the tracer's
	// sampler is not consulted.
	SamplingResult *SamplingResult
}

// NewSpanBuilder creates a builder for a span named name.
func NewSpanBuilder(name string) SpanBuilder {
	return SpanBuilder{Name: name}
}

// WithParent assigns an explicit parent SpanContext.
func (b SpanBuilder) WithParent(sc SpanContext) SpanBuilder {
	b.Parent = &sc
	return b
}

// WithTraceID assigns the trace id to use when no parent context exists.
func (b SpanBuilder) WithTraceID(id TraceID) SpanBuilder {
	b.TraceID = id
	return b
}

// WithSpanID assigns the parent span id to pair with WithTraceID.
func (b SpanBuilder) WithSpanID(id SpanID) SpanBuilder {
	b.SpanID = id
	return b
}

// WithKind assigns the span kind.
func (b SpanBuilder) WithKind(kind SpanKind) SpanBuilder {
	b.Kind = kind
	return b
}

// WithStartTime assigns an explicit start time, bypassing the clock.
func (b SpanBuilder) WithStartTime(t time.Time) SpanBuilder {
	b.StartTime = t
	return b
}

// WithEndTime assigns an explicit end time; the built span is ended
// immediately.
func (b SpanBuilder) WithEndTime(t time.Time) SpanBuilder {
	b.EndTime = t
	return b
}

// WithAttributes assigns initial attributes.
func (b SpanBuilder) WithAttributes(attrs ...KeyValue) SpanBuilder {
	b.Attributes = attrs
	return b
}

// WithEvents assigns initial events.
func (b SpanBuilder) WithEvents(events ...Event) SpanBuilder {
	b.Events = events
	return b
}

// WithLinks assigns initial links.
func (b SpanBuilder) WithLinks(links ...Link) SpanBuilder {
	b.Links = links
	return b
}

// WithStatus assigns the initial status.
func (b SpanBuilder) WithStatus(code StatusCode, message string) SpanBuilder {
	b.StatusCode = code
	b.StatusMessage = message
	return b
}

// WithSamplingResult assigns a pre-made sampling verdict, bypassing
// the tracer's sampler.
func (b SpanBuilder) WithSamplingResult(result SamplingResult) SpanBuilder {
	b.SamplingResult = &result
	return b
}

// Start builds the span with the given tracer. Equivalent to
// tracer.Build(b).
func (b SpanBuilder) Start(tracer *Tracer) Span {
	return tracer.Build(b)
}
