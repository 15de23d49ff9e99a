package frame

import (
	"context"
	"errors"
	"testing"
)

// TestResolutionDimensions verifies the class-to-pixels mapping.
func TestResolutionDimensions(t *testing.T) {
	cases := []struct {
		res  Resolution
		w, h int
	}{
		{ResolutionVGA, 672, 376},
		{Resolution720p, 1280, 720},
		{Resolution1080p, 1920, 1080},
		{Resolution2K, 2208, 1242},
		{Resolution("bogus"), 1280, 720}, // fallback
	}
	for _, c := range cases {
		w, h := c.res.Dimensions()
		if w != c.w || h != c.h {
			t.Errorf("%s: expected %dx%d, got %dx%d", c.res, c.w, c.h, w, h)
		}
	}

	if Resolution("bogus").Valid() {
		t.Error("bogus resolution reported valid")
	}
	if !Resolution720p.Valid() {
		t.Error("720p reported invalid")
	}
}

// TestSyntheticSourceProducesFrames verifies dimensions, sequence numbers,
// and the depth plane toggle.
func TestSyntheticSourceProducesFrames(t *testing.T) {
	src := NewSyntheticSource(SourceConfig{
		StreamID:    "ego_view",
		Resolution:  ResolutionVGA,
		FPS:         30,
		EnableDepth: true,
	})
	defer src.Close()

	var prev uint64
	for i := 0; i < 3; i++ {
		f, err := src.Grab(context.Background())
		if err != nil {
			t.Fatalf("Grab failed: %v", err)
		}
		if f.Width != 672 || f.Height != 376 {
			t.Errorf("expected 672x376, got %dx%d", f.Width, f.Height)
		}
		if len(f.Pixels) != f.Width*f.Height*3 {
			t.Errorf("pixel buffer %d bytes, want %d", len(f.Pixels), f.Width*f.Height*3)
		}
		if !f.HasDepth() || len(f.Depth) != f.Width*f.Height {
			t.Errorf("depth plane missing or wrong size")
		}
		if f.Seq <= prev {
			t.Errorf("sequence not monotonic: %d after %d", f.Seq, prev)
		}
		prev = f.Seq
		if f.CapturedAt.IsZero() {
			t.Error("frame missing capture timestamp")
		}
	}
}

// TestSyntheticSourceNoDepth verifies depth stays off when disabled.
func TestSyntheticSourceNoDepth(t *testing.T) {
	src := NewSyntheticSource(SourceConfig{StreamID: "ego_view", Resolution: ResolutionVGA})
	defer src.Close()

	f, err := src.Grab(context.Background())
	if err != nil {
		t.Fatalf("Grab failed: %v", err)
	}
	if f.HasDepth() {
		t.Error("depth plane present with depth disabled")
	}
}

// TestSyntheticSourceCloseIdempotent verifies Close is safe to repeat and
// that Grab reports a closed source.
func TestSyntheticSourceCloseIdempotent(t *testing.T) {
	src := NewSyntheticSource(SourceConfig{StreamID: "ego_view", Resolution: ResolutionVGA})

	if err := src.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := src.Grab(context.Background()); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("expected ErrSourceClosed, got %v", err)
	}
}

// TestSyntheticSourceHonorsContext verifies a cancelled grab returns early.
func TestSyntheticSourceHonorsContext(t *testing.T) {
	src := NewSyntheticSource(SourceConfig{StreamID: "ego_view", Resolution: ResolutionVGA})
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Grab(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
