package spanz

import (
	"fmt"
	"strings"
)

// TraceState is an ordered set of vendor-specific key/value pairs
// propagated unchanged across every span in a trace unless explicitly
// overridden. Keys are unique; insertion order is preserved so the
// serialized form is stable. The zero value is the empty state.
//
// TraceState values are immutable: Insert and Delete return modified
// copies and never touch the receiver, so a state inherited by many
// spans can be shared freely.
type TraceState struct {
	entries []traceStateEntry
}

type traceStateEntry struct {
	key   string
	value string
}

// Len returns the number of entries.
func (ts TraceState) Len() int {
	return len(ts.entries)
}

// Get returns the value stored under key.
func (ts TraceState) Get(key string) (string, bool) {
	for _, e := range ts.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Insert returns a copy of the state with key set to value. An existing
// key keeps its position; a new key is appended.
func (ts TraceState) Insert(key, value string) TraceState {
	entries := make([]traceStateEntry, len(ts.entries), len(ts.entries)+1)
	copy(entries, ts.entries)

	for i := range entries {
		if entries[i].key == key {
			entries[i].value = value
			return TraceState{entries: entries}
		}
	}
	return TraceState{entries: append(entries, traceStateEntry{key: key, value: value})}
}

// Delete returns a copy of the state without key.
func (ts TraceState) Delete(key string) TraceState {
	entries := make([]traceStateEntry, 0, len(ts.entries))
	for _, e := range ts.entries {
		if e.key != key {
			entries = append(entries, e)
		}
	}
	return TraceState{entries: entries}
}

// Items returns the entries in order as attributes.
func (ts TraceState) Items() []KeyValue {
	if len(ts.entries) == 0 {
		return nil
	}
	items := make([]KeyValue, len(ts.entries))
	for i, e := range ts.entries {
		items[i] = KeyValue{Key: e.key, Value: e.value}
	}
	return items
}

// String serializes the state as "k1=v1,k2=v2" in insertion order.
func (ts TraceState) String() string {
	if len(ts.entries) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range ts.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.key)
		b.WriteByte('=')
		b.WriteString(e.value)
	}
	return b.String()
}

// ParseTraceState decodes the serialized "k1=v1,k2=v2" form, as carried
// by a cross-process propagator. Duplicate keys are rejected.
func ParseTraceState(s string) (TraceState, error) {
	if s == "" {
		return TraceState{}, nil
	}

	var ts TraceState
	for _, member := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(member), "=")
		if !ok || key == "" {
			return TraceState{}, fmt.Errorf("spanz: malformed trace state member %q", member)
		}
		if _, exists := ts.Get(key); exists {
			return TraceState{}, fmt.Errorf("spanz: duplicate trace state key %q", key)
		}
		ts = ts.Insert(key, value)
	}
	return ts, nil
}
