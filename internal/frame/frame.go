// Package frame defines the frame data model and the capture source contract.
//
// A Frame is immutable once produced: the stage that holds it owns it, and
// ownership transfers to the next pipeline stage. Nothing retains a frame
// across loop iterations.
package frame

import (
	"context"
	"time"
)

// Frame is a single captured sensor frame.
type Frame struct {
	// StreamID names the logical channel this frame belongs to (e.g. "ego_view").
	StreamID string

	// Seq is a monotonic per-source sequence number.
	Seq uint64

	// CapturedAt is the acquisition timestamp (source time, not processing time).
	CapturedAt time.Time

	// Width in pixels.
	Width int

	// Height in pixels.
	Height int

	// Pixels holds raw RGB24 data, len = Width*Height*3.
	// MUST NOT be modified after the frame leaves its producer.
	Pixels []byte

	// Depth holds per-pixel distance in meters, len = Width*Height.
	// Nil unless depth capture is enabled.
	Depth []float32
}

// HasDepth reports whether the frame carries a depth plane.
func (f *Frame) HasDepth() bool { return f.Depth != nil }

// Resolution is a capture resolution class.
type Resolution string

const (
	ResolutionVGA   Resolution = "vga"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution2K    Resolution = "2k"
)

// Dimensions returns the pixel dimensions for the resolution class.
// Unknown classes fall back to 720p.
func (r Resolution) Dimensions() (width, height int) {
	switch r {
	case ResolutionVGA:
		return 672, 376
	case Resolution1080p:
		return 1920, 1080
	case Resolution2K:
		return 2208, 1242
	case Resolution720p:
		return 1280, 720
	default:
		return 1280, 720
	}
}

// Valid reports whether r is one of the known resolution classes.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionVGA, Resolution720p, Resolution1080p, Resolution2K:
		return true
	}
	return false
}

// SourceConfig holds capture settings, fixed for the lifetime of a source.
type SourceConfig struct {
	// StreamID names the stream produced by this source.
	StreamID string

	// Resolution class for the session.
	Resolution Resolution

	// FPS is the target frame rate.
	FPS int

	// EnableDepth turns on per-pixel depth capture.
	EnableDepth bool

	// Serial optionally selects a device instance for multi-camera setups.
	Serial string
}

// Source abstracts a frame-producing device.
//
// Concrete device SDKs (ZED, RealSense, GStreamer pipelines) live behind this
// interface; the pipeline never depends on a vendor API. Opening the device
// happens in the concrete constructor so a failed open surfaces before any
// streaming starts.
type Source interface {
	// Grab acquires the next frame. It may block up to one frame interval
	// waiting on hardware. A single failed grab is transient: the caller
	// logs it and moves on.
	Grab(ctx context.Context) (*Frame, error)

	// Close releases the device handle. Idempotent.
	Close() error
}
