package frame

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SyntheticSource generates deterministic test-pattern frames. It stands in
// for a real camera when no device is attached and backs the test suite.
type SyntheticSource struct {
	cfg    SourceConfig
	width  int
	height int

	mu     sync.Mutex
	seq    uint64
	closed bool

	closeOnce sync.Once
}

// NewSyntheticSource creates a synthetic source for the given config.
func NewSyntheticSource(cfg SourceConfig) *SyntheticSource {
	w, h := cfg.Resolution.Dimensions()

	slog.Info("synthetic source opened",
		"stream", cfg.StreamID,
		"resolution", cfg.Resolution,
		"width", w,
		"height", h,
		"fps", cfg.FPS,
		"depth", cfg.EnableDepth,
	)

	return &SyntheticSource{
		cfg:    cfg,
		width:  w,
		height: h,
	}
}

// Grab produces the next pattern frame. The pattern shifts with the sequence
// number so consecutive frames differ, which makes drops visible downstream.
func (s *SyntheticSource) Grab(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSourceClosed
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	pixels := make([]byte, s.width*s.height*3)
	shift := byte(seq)
	for y := 0; y < s.height; y++ {
		row := y * s.width * 3
		for x := 0; x < s.width; x++ {
			i := row + x*3
			pixels[i+0] = byte(x) + shift
			pixels[i+1] = byte(y) + shift
			pixels[i+2] = shift
		}
	}

	f := &Frame{
		StreamID:   s.cfg.StreamID,
		Seq:        seq,
		CapturedAt: time.Now(),
		Width:      s.width,
		Height:     s.height,
		Pixels:     pixels,
	}

	if s.cfg.EnableDepth {
		depth := make([]float32, s.width*s.height)
		for i := range depth {
			// Ramp between 0.5m and 10.5m, offset per frame.
			depth[i] = 0.5 + float32((i+int(seq))%1000)/100.0
		}
		f.Depth = depth
	}

	return f, nil
}

// Close marks the source closed. Safe to call more than once.
func (s *SyntheticSource) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		slog.Info("synthetic source closed", "stream", s.cfg.StreamID, "frames_grabbed", s.seq)
	})
	return nil
}
