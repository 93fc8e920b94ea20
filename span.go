package spanz

import (
	"sync"
	"time"
)

// Span is the capability surface of a single traced unit of work.
// Every operation is safe to call from any goroutine holding the
// handle. Mutation after End is accepted and silently ignored;
// instrumentation must never crash the host program.
type Span interface {
	// SpanContext returns the span's immutable identity.
	SpanContext() SpanContext
	// IsRecording reports whether mutations are being retained.
	IsRecording() bool
	// SetName renames the span.
	SetName(name string)
	// SetAttribute records a single attribute.
	SetAttribute(key, value string)
	// SetAttributes records a batch of attributes.
	SetAttributes(attrs ...KeyValue)
	// AddEvent records a timestamped event.
	AddEvent(name string, attrs ...KeyValue)
	// AddLink records a causal link to another SpanContext.
	AddLink(sc SpanContext, attrs ...KeyValue)
	// SetStatus records the span's outcome.
	SetStatus(code StatusCode, message string)
	// End completes the span, freezing further mutation and handing a
	// snapshot to the processing pipeline. Safe to call multiple
	// times; only the first call's timestamp is retained.
	End()
	// EndWithTimestamp is End with an explicit end time.
	EndWithTimestamp(t time.Time)
}

// SpanData is the immutable snapshot of a completed span handed to
// span processors.
//
//nolint:govet // Field order matches serialization order, not alignment
type SpanData struct {
	SpanContext   SpanContext   `json:"span_context"`
	ParentSpanID  SpanID        `json:"parent_span_id,omitempty"`
	Name          string        `json:"name"`
	Kind          SpanKind      `json:"kind"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Attributes    []KeyValue    `json:"attributes,omitempty"`
	Events        []Event       `json:"events,omitempty"`
	Links         []Link        `json:"links,omitempty"`
	StatusCode    StatusCode    `json:"status_code"`
	StatusMessage string        `json:"status_message,omitempty"`
	Resource      *Resource     `json:"-"`
	Duration      time.Duration `json:"duration"`
}

// clone deep-copies the snapshot so holders cannot alias each other's
// slices.
func (d SpanData) clone() SpanData {
	out := d
	if d.Attributes != nil {
		out.Attributes = make([]KeyValue, len(d.Attributes))
		copy(out.Attributes, d.Attributes)
	}
	if d.Events != nil {
		out.Events = make([]Event, len(d.Events))
		copy(out.Events, d.Events)
	}
	if d.Links != nil {
		out.Links = make([]Link, len(d.Links))
		copy(out.Links, d.Links)
	}
	return out
}

// recordingSpan is the span implementation produced for sampled and
// record-only spans. The mutex serializes mutation from concurrent
// holders; contention is per-span.
type recordingSpan struct {
	tracer *Tracer
	data   SpanData
	mu     sync.Mutex
	ended  bool
}

func (s *recordingSpan) SpanContext() SpanContext {
	// Identity is fixed at construction; no lock needed.
	return s.data.SpanContext
}

func (s *recordingSpan) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended
}

func (s *recordingSpan) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Don't modify ended spans.
	if s.ended {
		return
	}
	s.data.Name = name
}

func (s *recordingSpan) SetAttribute(key, value string) {
	s.SetAttributes(KeyValue{Key: key, Value: value})
}

func (s *recordingSpan) SetAttributes(attrs ...KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.data.Attributes = append(s.data.Attributes, attrs...)
}

func (s *recordingSpan) AddEvent(name string, attrs ...KeyValue) {
	now := s.tracer.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.data.Events = append(s.data.Events, Event{
		Name:       name,
		Time:       now,
		Attributes: attrs,
	})
}

func (s *recordingSpan) AddLink(sc SpanContext, attrs ...KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.data.Links = append(s.data.Links, Link{
		SpanContext: sc,
		Attributes:  attrs,
	})
}

func (s *recordingSpan) SetStatus(code StatusCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.data.StatusCode = code
	s.data.StatusMessage = message
}

func (s *recordingSpan) End() {
	s.end(s.tracer.clock.Now())
}

func (s *recordingSpan) EndWithTimestamp(t time.Time) {
	s.end(t)
}

// end completes the span once; later calls are no-ops. The snapshot is
// taken under the lock, the processor fan-out happens outside it.
func (s *recordingSpan) end(t time.Time) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	if s.data.EndTime.IsZero() {
		s.data.EndTime = t
	}
	s.data.Duration = s.data.EndTime.Sub(s.data.StartTime)
	snapshot := s.data.clone()
	s.mu.Unlock()

	s.tracer.spanEnded(snapshot)
}

// nonRecordingSpan is both the invalid sentinel span (zero SpanContext)
// and the span produced for a Drop sampling verdict (valid SpanContext,
// nothing recorded). Every mutation is a silent no-op.
type nonRecordingSpan struct {
	sc SpanContext
}

func (n nonRecordingSpan) SpanContext() SpanContext       { return n.sc }
func (nonRecordingSpan) IsRecording() bool                { return false }
func (nonRecordingSpan) SetName(string)                   {}
func (nonRecordingSpan) SetAttribute(string, string)      {}
func (nonRecordingSpan) SetAttributes(...KeyValue)        {}
func (nonRecordingSpan) AddEvent(string, ...KeyValue)     {}
func (nonRecordingSpan) AddLink(SpanContext, ...KeyValue) {}
func (nonRecordingSpan) SetStatus(StatusCode, string)     {}
func (nonRecordingSpan) End()                             {}
func (nonRecordingSpan) EndWithTimestamp(time.Time)       {}
