// Package sink routes decoded frames to their final destinations. Display
// windows and video writers are external collaborators; what lives here is
// the disk saver and a logging preview stand-in.
package sink

import (
	"log/slog"

	"github.com/visiona/framecast/internal/frame"
)

// Sink consumes decoded frames.
type Sink interface {
	// Render hands one frame to the sink. The sink must not retain it.
	Render(f *frame.Frame) error

	// Close flushes and releases the sink. Idempotent.
	Close() error
}

// Preview logs frame arrivals in place of a display window.
type Preview struct{}

// Render logs the frame at debug level.
func (Preview) Render(f *frame.Frame) error {
	slog.Debug("preview frame",
		"stream", f.StreamID,
		"seq", f.Seq,
		"size", len(f.Pixels),
		"depth", f.HasDepth(),
	)
	return nil
}

// Close is a no-op.
func (Preview) Close() error { return nil }
