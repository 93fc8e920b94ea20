package spanz

// SamplingDecision is the verdict a Sampler returns for a span about
// to be constructed.
type SamplingDecision int

const (
	// Drop produces a non-recording span: it carries a valid
	// SpanContext for propagation but records nothing.
	Drop SamplingDecision = iota
	// RecordOnly produces a recording span with the sampled flag clear.
	RecordOnly
	// RecordAndSample produces a recording span with the sampled flag set.
	RecordAndSample
)

// SamplingParameters is everything a Sampler may consult when deciding.
type SamplingParameters struct {
	// Parent is the resolved parent SpanContext, nil for root spans.
	Parent     *SpanContext
	TraceID    TraceID
	Name       string
	Kind       SpanKind
	Attributes []KeyValue
	Links      []Link
}

// SamplingResult is a Sampler's verdict. Attributes are added to the
// new span; a non-empty TraceState replaces the state the span would
// otherwise inherit from its parent.
type SamplingResult struct {
	TraceState TraceState
	Attributes []KeyValue
	Decision   SamplingDecision
}

// Sampler decides whether and how fully a span is recorded. The
// decision logic is the sampler's alone; the tracer treats the result
// as opaque input. Implementations must be safe for concurrent use.
type Sampler interface {
	ShouldSample(params SamplingParameters) SamplingResult
	Description() string
}

type alwaysOnSampler struct{}

// AlwaysOn returns a sampler that records and samples every span.
func AlwaysOn() Sampler {
	return alwaysOnSampler{}
}

func (alwaysOnSampler) ShouldSample(SamplingParameters) SamplingResult {
	return SamplingResult{Decision: RecordAndSample}
}

func (alwaysOnSampler) Description() string {
	return "AlwaysOn"
}

type alwaysOffSampler struct{}

// AlwaysOff returns a sampler that drops every span.
func AlwaysOff() Sampler {
	return alwaysOffSampler{}
}

func (alwaysOffSampler) ShouldSample(SamplingParameters) SamplingResult {
	return SamplingResult{Decision: Drop}
}

func (alwaysOffSampler) Description() string {
	return "AlwaysOff"
}

type parentBasedSampler struct {
	root Sampler
}

// ParentBased returns a sampler that follows the parent's sampled flag
// when a valid parent exists and delegates root spans to root.
func ParentBased(root Sampler) Sampler {
	if root == nil {
		root = AlwaysOn()
	}
	return parentBasedSampler{root: root}
}

func (s parentBasedSampler) ShouldSample(params SamplingParameters) SamplingResult {
	if params.Parent != nil && params.Parent.IsValid() {
		if params.Parent.IsSampled() {
			return SamplingResult{Decision: RecordAndSample}
		}
		return SamplingResult{Decision: Drop}
	}
	return s.root.ShouldSample(params)
}

func (s parentBasedSampler) Description() string {
	return "ParentBased{" + s.root.Description() + "}"
}
