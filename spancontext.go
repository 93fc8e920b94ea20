package spanz

import "encoding/json"

// SpanContext is the immutable, externally-identifying part of a span:
// its trace and span ids, trace option flags, vendor trace state, and
// whether the identity arrived from another process. The zero value is
// the invalid SpanContext.
type SpanContext struct {
	traceState TraceState
	traceID    TraceID
	spanID     SpanID
	traceFlags TraceFlags
	remote     bool
}

// NewSpanContext builds a SpanContext for a locally created span.
// Locally constructed identities are never remote.
func NewSpanContext(traceID TraceID, spanID SpanID, flags TraceFlags, state TraceState) SpanContext {
	return SpanContext{
		traceID:    traceID,
		spanID:     spanID,
		traceFlags: flags,
		traceState: state,
	}
}

// NewRemoteSpanContext builds a SpanContext deserialized from a
// cross-process carrier. Only propagator deserialization should use it.
func NewRemoteSpanContext(traceID TraceID, spanID SpanID, flags TraceFlags, state TraceState) SpanContext {
	sc := NewSpanContext(traceID, spanID, flags, state)
	sc.remote = true
	return sc
}

// TraceID returns the trace identity.
func (sc SpanContext) TraceID() TraceID {
	return sc.traceID
}

// SpanID returns the span identity.
func (sc SpanContext) SpanID() SpanID {
	return sc.spanID
}

// TraceFlags returns the trace option flags.
func (sc SpanContext) TraceFlags() TraceFlags {
	return sc.traceFlags
}

// TraceState returns the vendor trace state.
func (sc SpanContext) TraceState() TraceState {
	return sc.traceState
}

// IsRemote reports whether the identity was deserialized from another
// process.
func (sc SpanContext) IsRemote() bool {
	return sc.remote
}

// IsSampled reports whether the sampled flag is set.
func (sc SpanContext) IsSampled() bool {
	return sc.traceFlags.IsSampled()
}

// IsValid reports whether both ids are non-zero.
func (sc SpanContext) IsValid() bool {
	return sc.traceID.IsValid() && sc.spanID.IsValid()
}

// MarshalJSON serializes the identity in its wire-friendly hex form.
func (sc SpanContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TraceID    string `json:"trace_id"`
		SpanID     string `json:"span_id"`
		TraceFlags byte   `json:"trace_flags"`
		TraceState string `json:"trace_state,omitempty"`
		IsRemote   bool   `json:"is_remote,omitempty"`
	}{
		TraceID:    sc.traceID.String(),
		SpanID:     sc.spanID.String(),
		TraceFlags: byte(sc.traceFlags),
		TraceState: sc.traceState.String(),
		IsRemote:   sc.remote,
	})
}
