package metrics

import (
	"math"
	"testing"
	"time"
)

// TestFPSZeroUnderTwoArrivals verifies FPS reports 0 instead of
// extrapolating from a single sample.
func TestFPSZeroUnderTwoArrivals(t *testing.T) {
	tr := NewTracker(30)

	if fps := tr.FPS(); fps != 0 {
		t.Errorf("expected 0 FPS with no arrivals, got %v", fps)
	}

	tr.RecordArrival(time.Now())
	if fps := tr.FPS(); fps != 0 {
		t.Errorf("expected 0 FPS with one arrival, got %v", fps)
	}
}

// TestFPSFixedInterval verifies a synthetic fixed inter-arrival interval
// yields its reciprocal.
func TestFPSFixedInterval(t *testing.T) {
	tr := NewTracker(30)

	base := time.Now()
	interval := 33 * time.Millisecond
	for i := 0; i < 10; i++ {
		tr.RecordArrival(base.Add(time.Duration(i) * interval))
	}

	want := 1.0 / interval.Seconds()
	if got := tr.FPS(); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %v FPS, got %v", want, got)
	}
}

// TestWindowEviction verifies only the newest samples influence the
// estimate once the window is full.
func TestWindowEviction(t *testing.T) {
	tr := NewTracker(5)

	base := time.Now()
	now := base
	// Seed with slow arrivals (100ms), then overrun the window with fast
	// ones (10ms). The first fast arrival still measures its gap from the
	// last slow one, so six fast arrivals are needed to push five pure
	// 10ms samples through the window. The estimate must then reflect
	// only the fast interval.
	for i := 0; i < 6; i++ {
		tr.RecordArrival(now)
		now = now.Add(100 * time.Millisecond)
	}
	for i := 0; i < 6; i++ {
		tr.RecordArrival(now)
		now = now.Add(10 * time.Millisecond)
	}

	want := 1.0 / 0.010
	if got := tr.FPS(); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %v FPS after eviction, got %v", want, got)
	}
}

// TestLatencyMonotone verifies latency is non-negative and grows with now.
func TestLatencyMonotone(t *testing.T) {
	tr := NewTracker(0)

	capturedAt := time.Now()
	prev := time.Duration(-1)
	for i := 0; i < 5; i++ {
		now := capturedAt.Add(time.Duration(i) * 10 * time.Millisecond)
		lat := tr.Latency(capturedAt, now)
		if lat < 0 {
			t.Errorf("latency %v negative for now >= capturedAt", lat)
		}
		if lat <= prev && i > 0 {
			t.Errorf("latency %v did not grow past %v", lat, prev)
		}
		prev = lat
	}
}

// TestCountAndSnapshot verifies arrival accounting.
func TestCountAndSnapshot(t *testing.T) {
	tr := NewTracker(30)

	base := time.Now()
	for i := 0; i < 7; i++ {
		tr.RecordArrival(base.Add(time.Duration(i) * 20 * time.Millisecond))
	}

	if tr.Count() != 7 {
		t.Errorf("expected 7 arrivals, got %d", tr.Count())
	}
	snap := tr.Snapshot()
	if snap.Frames != 7 || snap.FPS == 0 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}
