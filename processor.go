package spanz

// SpanProcessor observes span lifecycle transitions. OnStart runs
// synchronously inside span construction with the live span and the
// ambient parent Context; OnEnd receives an immutable snapshot after
// the span's first End. Batching, export, and buffering strategy are
// the processor's concern, not the tracer's.
//
// Processors are invoked with panic recovery; a panicking processor is
// reported to the error handler and never disturbs the host program.
type SpanProcessor interface {
	OnStart(span Span, parent *Context)
	OnEnd(data SpanData)
}

// processorEntry pairs a registered processor with its registry id.
type processorEntry struct {
	processor SpanProcessor
	id        uint64
}
