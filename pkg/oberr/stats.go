package oberr

import (
	"sync"
	"sync/atomic"
)

// StatKey identifies one error counter.
type StatKey struct {
	Code      Code
	Operation string
}

// Stats counts classified errors per (code, operation) and transient
// failures per operation. It is safe for concurrent use; increments are
// atomic and never block each other.
//
// Stats is explicitly constructed and injected rather than being a package
// global, so tests get isolated instances.
type Stats struct {
	counters  sync.Map // StatKey -> *int64
	transient sync.Map // operation string -> *int64
}

// NewStats creates an empty counter store.
func NewStats() *Stats { return &Stats{} }

func (s *Stats) inc(code Code, op string) {
	v, _ := s.counters.LoadOrStore(StatKey{Code: code, Operation: op}, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// IncTransient records a retryable failure for op.
func (s *Stats) IncTransient(op string) {
	v, _ := s.transient.LoadOrStore(op, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// ResetTransient clears the transient failure count for op. The retry
// executor calls this after a successful attempt.
func (s *Stats) ResetTransient(op string) {
	if v, ok := s.transient.Load(op); ok {
		atomic.StoreInt64(v.(*int64), 0)
	}
}

// Transient returns the current transient failure count for op.
func (s *Stats) Transient(op string) int64 {
	if v, ok := s.transient.Load(op); ok {
		return atomic.LoadInt64(v.(*int64))
	}
	return 0
}

// Snapshot returns a copy of all error counters. Calling it twice without
// an intervening failure yields identical maps.
func (s *Stats) Snapshot() map[StatKey]int64 {
	out := make(map[StatKey]int64)
	s.counters.Range(func(k, v any) bool {
		out[k.(StatKey)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}

// Reset zeroes every counter. Intended for test isolation.
func (s *Stats) Reset() {
	s.counters.Range(func(k, _ any) bool {
		s.counters.Delete(k)
		return true
	})
	s.transient.Range(func(k, _ any) bool {
		s.transient.Delete(k)
		return true
	})
}
