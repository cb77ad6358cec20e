package inspect

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/reactivecache/pkg/reactive"
)

// DefaultBufferSize is the number of recent events a Recorder keeps.
const DefaultBufferSize = 1024

// EventRecord is the serializable form of a reactive.Event.
type EventRecord struct {
	Seq        uint64    `json:"seq"`
	Time       time.Time `json:"time"`
	Kind       string    `json:"kind"`
	Node       string    `json:"node"`
	NodeID     uint64    `json:"node_id"`
	NodeType   string    `json:"node_type"`
	Changed    bool      `json:"changed,omitempty"`
	Collecting bool      `json:"collecting,omitempty"`
}

// Recorder is a reactive.Observer that keeps per-kind counts and a ring of
// recent events, and forwards each event to a Hub.
//
// Observe runs on the engine's goroutine; every other method may be called
// from any goroutine.
type Recorder struct {
	counts map[reactive.EventKind]*atomic.Uint64
	hub    *Hub

	mu   sync.Mutex
	ring []EventRecord
	next int
	full bool
	seq  uint64
}

var _ reactive.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder keeping size recent events. Non-positive
// sizes select DefaultBufferSize. hub may be nil.
func NewRecorder(size int, hub *Hub) *Recorder {
	if size <= 0 {
		size = DefaultBufferSize
	}
	counts := make(map[reactive.EventKind]*atomic.Uint64, len(reactive.EventKinds))
	for _, k := range reactive.EventKinds {
		counts[k] = new(atomic.Uint64)
	}
	return &Recorder{
		counts: counts,
		hub:    hub,
		ring:   make([]EventRecord, size),
	}
}

// Observe implements reactive.Observer.
func (r *Recorder) Observe(e reactive.Event) {
	if c, ok := r.counts[e.Kind]; ok {
		c.Add(1)
	}

	r.mu.Lock()
	r.seq++
	rec := EventRecord{
		Seq:        r.seq,
		Time:       time.Now(),
		Kind:       e.Kind.String(),
		Node:       e.Node.String(),
		NodeID:     e.Node.ID,
		NodeType:   e.Node.Type.String(),
		Changed:    e.Changed,
		Collecting: e.Collecting,
	}
	r.ring[r.next] = rec
	r.next = (r.next + 1) % len(r.ring)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.Publish(rec)
	}
}

// Counts returns the number of events seen per kind name.
func (r *Recorder) Counts() map[string]uint64 {
	out := make(map[string]uint64, len(r.counts))
	for k, c := range r.counts {
		out[k.String()] = c.Load()
	}
	return out
}

// Count returns the number of events of kind k seen so far.
func (r *Recorder) Count(k reactive.EventKind) uint64 {
	if c, ok := r.counts[k]; ok {
		return c.Load()
	}
	return 0
}

// Recent returns up to n of the most recent events, oldest first. n <= 0
// returns everything buffered.
func (r *Recorder) Recent(n int) []EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.ring)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]EventRecord, n)
	start := r.next - n
	if start < 0 {
		start += len(r.ring)
	}
	for i := 0; i < n; i++ {
		out[i] = r.ring[(start+i)%len(r.ring)]
	}
	return out
}

// Len returns the number of buffered events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.ring)
	}
	return r.next
}
