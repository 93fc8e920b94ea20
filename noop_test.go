package spanz

import (
	"testing"
	"time"
)

func TestInvalidSpanBehavior(t *testing.T) {
	tracer := New("test-service")
	defer tracer.Close()

	span := tracer.Invalid()

	if span.SpanContext().IsValid() {
		t.Error("invalid span must carry the invalid SpanContext")
	}
	if span.IsRecording() {
		t.Error("invalid span must not be recording")
	}

	// Every operation is a silent no-op.
	span.SetName("renamed")
	span.SetAttribute("key", "value")
	span.SetAttributes(Attr("k", "v"))
	span.AddEvent("event")
	span.AddLink(SpanContext{})
	span.SetStatus(StatusError, "nope")
	span.End()
	span.End()
	span.EndWithTimestamp(time.Now())

	if id := span.SpanContext().TraceID().String(); id != "00000000000000000000000000000000" {
		t.Errorf("expected all-zero trace id, got %s", id)
	}
	if id := span.SpanContext().SpanID().String(); id != "0000000000000000" {
		t.Errorf("expected all-zero span id, got %s", id)
	}
}

func TestDroppedSpanKeepsIdentity(t *testing.T) {
	// A Drop verdict yields a non-recording span that still carries a
	// valid SpanContext for propagation.
	tracer, collector := newTestTracer(t, WithSampler(AlwaysOff()))

	span := tracer.Start("dropped-op")

	if span.IsRecording() {
		t.Error("dropped span must not be recording")
	}
	sc := span.SpanContext()
	if !sc.IsValid() {
		t.Error("dropped span should keep a valid SpanContext")
	}
	if sc.IsSampled() {
		t.Error("dropped span must not be sampled")
	}

	span.SetAttribute("ignored", "yes")
	span.End()

	if got := collector.Count(); got != 0 {
		t.Errorf("dropped span must never reach processors, got %d", got)
	}
}

func TestDroppedChildStaysInParentTrace(t *testing.T) {
	tracer, _ := newTestTracer(t, WithSampler(AlwaysOff()))

	parent := tracer.Start("parent")
	child := tracer.StartFromContext("child", CurrentWithSpan(parent))

	if child.SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Error("non-recording child should still share the parent's trace id")
	}
}

func TestRecordOnlySpan(t *testing.T) {
	recordOnly := samplerFunc(func(SamplingParameters) SamplingResult {
		return SamplingResult{Decision: RecordOnly}
	})
	tracer, collector := newTestTracer(t, WithSampler(recordOnly))

	span := tracer.Start("record-only-op")
	if !span.IsRecording() {
		t.Error("record-only span should be recording")
	}
	if span.SpanContext().IsSampled() {
		t.Error("record-only span must not set the sampled flag")
	}
	span.End()

	if got := collector.Count(); got != 1 {
		t.Errorf("record-only span should reach processors, got %d", got)
	}
}

// samplerFunc adapts a function to the Sampler interface for tests.
type samplerFunc func(SamplingParameters) SamplingResult

func (f samplerFunc) ShouldSample(params SamplingParameters) SamplingResult {
	return f(params)
}

func (samplerFunc) Description() string {
	return "samplerFunc"
}
