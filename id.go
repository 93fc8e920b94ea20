package spanz

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceID identifies a trace: 128 bits, globally unique. The all-zero
// value is the explicit "invalid" sentinel.
type TraceID [16]byte

// IsValid reports whether the id is non-zero.
func (t TraceID) IsValid() bool {
	return t != TraceID{}
}

// String returns the id as 32 lowercase hex characters.
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// ParseTraceID decodes a 32-character hex trace id, as produced by
// String or carried by a cross-process propagator.
func ParseTraceID(s string) (TraceID, error) {
	var t TraceID
	if len(s) != 32 {
		return t, fmt.Errorf("spanz: trace id must be 32 hex characters, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return t, fmt.Errorf("spanz: invalid trace id %q: %w", s, err)
	}
	copy(t[:], b)
	return t, nil
}

// SpanID identifies a span within a trace: 64 bits. The all-zero value
// is the explicit "invalid" sentinel.
type SpanID [8]byte

// IsValid reports whether the id is non-zero.
func (s SpanID) IsValid() bool {
	return s != SpanID{}
}

// String returns the id as 16 lowercase hex characters.
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// ParseSpanID decodes a 16-character hex span id.
func ParseSpanID(s string) (SpanID, error) {
	var id SpanID
	if len(s) != 16 {
		return id, fmt.Errorf("spanz: span id must be 16 hex characters, got %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("spanz: invalid span id %q: %w", s, err)
	}
	copy(id[:], b)
	return id, nil
}

// TraceFlags carries per-trace option bits. Only the sampled bit is
// defined.
type TraceFlags byte

// FlagsSampled marks a trace as sampled for recording and export.
const FlagsSampled TraceFlags = 0x1

// IsSampled reports whether the sampled bit is set.
func (f TraceFlags) IsSampled() bool {
	return f&FlagsSampled != 0
}

// WithSampled returns the flags with the sampled bit set or cleared.
func (f TraceFlags) WithSampled(sampled bool) TraceFlags {
	if sampled {
		return f | FlagsSampled
	}
	return f &^ FlagsSampled
}

// IDGenerator supplies identity for new traces and spans. Implementations
// must be safe for concurrent use.
type IDGenerator interface {
	NewTraceID() TraceID
	NewSpanID() SpanID
}

// defaultIDGenerator backs tracers that were not given a generator.
// Trace ids are random UUIDs; span ids come from crypto/rand. Both are
// pre-generated in pools to keep id cost off the span-start path.
type defaultIDGenerator struct {
	tracePool *idPool
	spanPool  *idPool
	once      sync.Once
}

func newDefaultIDGenerator() *defaultIDGenerator {
	return &defaultIDGenerator{}
}

// ensurePools initializes the id pools if not already created.
func (g *defaultIDGenerator) ensurePools() {
	g.once.Do(func() {
		// Pool size based on number of CPUs for contention balance.
		poolSize := runtime.NumCPU() * 64

		g.tracePool = newIDPool(poolSize, func() []byte {
			id, err := uuid.NewRandom()
			if err != nil {
				reportError(fmt.Errorf("spanz: trace id generation: %w", err))
				return timeFallbackID(16)
			}
			return id[:]
		})

		g.spanPool = newIDPool(poolSize, func() []byte {
			b := make([]byte, 8)
			if _, err := rand.Read(b); err != nil {
				reportError(fmt.Errorf("spanz: span id generation: %w", err))
				return timeFallbackID(8)
			}
			return b
		})
	})
}

// NewTraceID returns a fresh 128-bit trace id.
func (g *defaultIDGenerator) NewTraceID() TraceID {
	g.ensurePools()
	var t TraceID
	copy(t[:], g.tracePool.get())
	return t
}

// NewSpanID returns a fresh 64-bit span id.
func (g *defaultIDGenerator) NewSpanID() SpanID {
	g.ensurePools()
	var s SpanID
	copy(s[:], g.spanPool.get())
	return s
}

// close shuts down the backing pools.
func (g *defaultIDGenerator) close() {
	if g.tracePool != nil {
		g.tracePool.close()
	}
	if g.spanPool != nil {
		g.spanPool.close()
	}
}

// timeFallbackID derives an id from the wall clock when the random
// source fails. Uniqueness degrades but ids stay non-zero.
func timeFallbackID(n int) []byte {
	b := make([]byte, n)
	binary.BigEndian.PutUint64(b[n-8:], uint64(time.Now().UnixNano())|1)
	return b
}
