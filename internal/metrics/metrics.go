// Package metrics derives instantaneous FPS and per-stream latency from
// frame timestamps.
package metrics

import (
	"sync"
	"time"
)

// DefaultWindowSize is the number of inter-arrival samples kept for the
// rolling FPS estimate.
const DefaultWindowSize = 30

// Tracker computes a rolling FPS estimate from arrival times and point
// latencies from capture timestamps.
//
// The window is a fixed-capacity ring of inter-arrival durations: the oldest
// sample is evicted when a new one arrives past capacity, so memory stays
// bounded no matter how long the stream runs.
type Tracker struct {
	mu        sync.Mutex
	intervals []time.Duration
	next      int
	count     int
	last      time.Time
	total     uint64
}

// NewTracker creates a tracker with the given window capacity.
// A non-positive size falls back to DefaultWindowSize.
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Tracker{intervals: make([]time.Duration, windowSize)}
}

// RecordArrival notes that a frame arrived at now. The first arrival only
// seeds the clock; every later one contributes an inter-arrival sample.
func (t *Tracker) RecordArrival(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	if !t.last.IsZero() {
		t.intervals[t.next] = now.Sub(t.last)
		t.next = (t.next + 1) % len(t.intervals)
		if t.count < len(t.intervals) {
			t.count++
		}
	}
	t.last = now
}

// FPS returns the reciprocal of the mean inter-arrival duration over the
// window. With fewer than two recorded arrivals there is no interval to
// average, and FPS reports 0 rather than extrapolating.
func (t *Tracker) FPS() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		return 0
	}

	var sum time.Duration
	for i := 0; i < t.count; i++ {
		sum += t.intervals[i]
	}
	mean := sum.Seconds() / float64(t.count)
	if mean <= 0 {
		return 0
	}
	return 1.0 / mean
}

// Latency returns now minus the frame's capture timestamp.
//
// Producer and consumer clocks are assumed close enough to be comparable;
// skew is not corrected. This is a stated limitation of the scheme, not
// something the tracker compensates for.
func (t *Tracker) Latency(capturedAt, now time.Time) time.Duration {
	return now.Sub(capturedAt)
}

// Count returns the total number of recorded arrivals.
func (t *Tracker) Count() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Snapshot is a point-in-time reading for periodic reporting.
type Snapshot struct {
	Frames uint64  `json:"frames"`
	FPS    float64 `json:"fps"`
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{Frames: t.Count(), FPS: t.FPS()}
}
