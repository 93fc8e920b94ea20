package integration

import (
	"sync"
	"testing"

	"github.com/zoobzio/spanz"
)

// MockCollector wraps a real collector with test utilities.
// Provides synchronous collection and verification helpers.
type MockCollector struct {
	*spanz.Collector
	t        *testing.T
	mu       sync.Mutex
	exported []spanz.SpanData
}

// NewMockCollector creates a collector for testing.
func NewMockCollector(t *testing.T) *MockCollector {
	t.Helper()

	collector := spanz.NewCollector("mock", 256)
	collector.SetSyncMode(true) // Deterministic collection for tests.
	m := &MockCollector{
		Collector: collector,
		t:         t,
	}
	t.Cleanup(collector.Close)
	return m
}

// Drain pulls everything buffered so far into the mock's history and
// returns the full history.
func (m *MockCollector) Drain() []spanz.SpanData {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exported = append(m.exported, m.Collector.Export()...)
	all := make([]spanz.SpanData, len(m.exported))
	copy(all, m.exported)
	return all
}

// Find returns the first collected span with the given name, failing
// the test if it is absent.
func (m *MockCollector) Find(name string) spanz.SpanData {
	m.t.Helper()

	for _, data := range m.Drain() {
		if data.Name == name {
			return data
		}
	}
	m.t.Fatalf("no collected span named %q", name)
	return spanz.SpanData{}
}

// AssertChild fails the test unless child is parented under parent in
// the same trace.
func (m *MockCollector) AssertChild(parent, child spanz.SpanData) {
	m.t.Helper()

	if child.SpanContext.TraceID() != parent.SpanContext.TraceID() {
		m.t.Errorf("span %q is not in %q's trace", child.Name, parent.Name)
	}
	if child.ParentSpanID != parent.SpanContext.SpanID() {
		m.t.Errorf("span %q is not a child of %q", child.Name, parent.Name)
	}
}

// newTracer builds a tracer feeding the mock collector.
func newTracer(t *testing.T, m *MockCollector, opts ...spanz.Option) *spanz.Tracer {
	t.Helper()

	tracer := spanz.New("integration", append(opts, spanz.WithSpanProcessor(m))...)
	t.Cleanup(tracer.Close)
	return tracer
}
