package spanz

// Resource is an immutable attribute bundle describing the entity that
// produced a tracer's spans. Every SpanData snapshot the tracer emits
// carries a reference to its resource.
type Resource struct {
	attrs []KeyValue
}

// NewResource builds a resource from attributes.
func NewResource(attrs ...KeyValue) *Resource {
	r := &Resource{attrs: make([]KeyValue, len(attrs))}
	copy(r.attrs, attrs)
	return r
}

// Attributes returns a copy of the resource's attributes.
func (r *Resource) Attributes() []KeyValue {
	if r == nil || len(r.attrs) == 0 {
		return nil
	}
	attrs := make([]KeyValue, len(r.attrs))
	copy(attrs, r.attrs)
	return attrs
}

// Len returns the number of attributes.
func (r *Resource) Len() int {
	if r == nil {
		return 0
	}
	return len(r.attrs)
}

// Merge returns a resource combining r and other; on duplicate keys,
// other wins.
func (r *Resource) Merge(other *Resource) *Resource {
	if other == nil || len(other.attrs) == 0 {
		return r
	}
	if r == nil || len(r.attrs) == 0 {
		return other
	}

	merged := make([]KeyValue, 0, len(r.attrs)+len(other.attrs))
	seen := make(map[string]int, len(r.attrs))
	for _, kv := range r.attrs {
		seen[kv.Key] = len(merged)
		merged = append(merged, kv)
	}
	for _, kv := range other.attrs {
		if i, ok := seen[kv.Key]; ok {
			merged[i] = kv
			continue
		}
		merged = append(merged, kv)
	}
	return &Resource{attrs: merged}
}
