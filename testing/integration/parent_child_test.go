package integration

import (
	"testing"

	"github.com/zoobzio/spanz"
)

// TestDeepHierarchy builds a four-level span tree and verifies the
// causal chain end to end.
func TestDeepHierarchy(t *testing.T) {
	mock := NewMockCollector(t)
	tracer := newTracer(t, mock)

	tracer.InSpan("level-0", func(*spanz.Context) {
		tracer.InSpan("level-1", func(*spanz.Context) {
			tracer.InSpan("level-2", func(*spanz.Context) {
				tracer.InSpan("level-3", func(*spanz.Context) {})
			})
		})
	})

	l0 := mock.Find("level-0")
	l1 := mock.Find("level-1")
	l2 := mock.Find("level-2")
	l3 := mock.Find("level-3")

	mock.AssertChild(l0, l1)
	mock.AssertChild(l1, l2)
	mock.AssertChild(l2, l3)

	if l0.ParentSpanID.IsValid() {
		t.Error("the root of the tree must have no parent")
	}
}

// TestCrossProcessHandoff simulates a propagator round trip: identity
// travels as strings, is rebuilt remotely, and the continuation span
// joins the originating trace.
func TestCrossProcessHandoff(t *testing.T) {
	clientMock := NewMockCollector(t)
	client := newTracer(t, clientMock)

	clientSpan := client.SpanBuilder("client.call").
		WithKind(spanz.SpanKindClient).
		Start(client)
	sc := clientSpan.SpanContext()

	// Wire form, as a propagator would serialize it.
	wireTrace := sc.TraceID().String()
	wireSpan := sc.SpanID().String()
	wireState := sc.TraceState().Insert("vendor", "abc").String()

	// "Server process": rebuild the remote identity.
	traceID, err := spanz.ParseTraceID(wireTrace)
	if err != nil {
		t.Fatalf("trace id round trip failed: %v", err)
	}
	spanID, err := spanz.ParseSpanID(wireSpan)
	if err != nil {
		t.Fatalf("span id round trip failed: %v", err)
	}
	state, err := spanz.ParseTraceState(wireState)
	if err != nil {
		t.Fatalf("trace state round trip failed: %v", err)
	}
	remote := spanz.NewRemoteSpanContext(traceID, spanID, spanz.FlagsSampled, state)

	serverMock := NewMockCollector(t)
	server := newTracer(t, serverMock)

	serverSpan := server.SpanBuilder("server.handle").
		WithKind(spanz.SpanKindServer).
		WithParent(remote).
		Start(server)
	serverSpan.End()
	clientSpan.End()

	handled := serverMock.Find("server.handle")
	if handled.SpanContext.TraceID() != sc.TraceID() {
		t.Error("server span should continue the client's trace")
	}
	if handled.ParentSpanID != sc.SpanID() {
		t.Error("server span should be parented under the client span")
	}
	if handled.SpanContext.IsRemote() {
		t.Error("the server's own span is local even under a remote parent")
	}
	if got, _ := handled.SpanContext.TraceState().Get("vendor"); got != "abc" {
		t.Errorf("trace state should survive the handoff, got %q", got)
	}
}

// TestParentSamplingFollowed verifies ParentBased sampling across a
// remote boundary: an unsampled remote parent suppresses recording.
func TestParentSamplingFollowed(t *testing.T) {
	mock := NewMockCollector(t)
	tracer := newTracer(t, mock, spanz.WithSampler(spanz.ParentBased(spanz.AlwaysOn())))

	unsampled := spanz.NewRemoteSpanContext(
		spanz.TraceID{0x01}, spanz.SpanID{0x02}, 0, spanz.TraceState{})

	span := tracer.SpanBuilder("suppressed").WithParent(unsampled).Start(tracer)
	span.End()

	if span.IsRecording() {
		t.Error("unsampled parent should suppress recording under ParentBased")
	}
	if len(mock.Drain()) != 0 {
		t.Error("suppressed span must not reach the collector")
	}

	sampled := spanz.NewRemoteSpanContext(
		spanz.TraceID{0x03}, spanz.SpanID{0x04}, spanz.FlagsSampled, spanz.TraceState{})

	kept := tracer.SpanBuilder("kept").WithParent(sampled).Start(tracer)
	kept.End()

	if mock.Find("kept").SpanContext.TraceID() != sampled.TraceID() {
		t.Error("sampled remote parent should be followed")
	}
}
