package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/visiona/framecast/internal/frame"
)

func testFrame(w, h int, withDepth bool) *frame.Frame {
	pixels := make([]byte, w*h*3)
	for i := range pixels {
		pixels[i] = byte(i * 7)
	}

	f := &frame.Frame{
		StreamID:   "ego_view",
		Seq:        42,
		CapturedAt: time.Now(),
		Width:      w,
		Height:     h,
		Pixels:     pixels,
	}

	if withDepth {
		depth := make([]float32, w*h)
		for i := range depth {
			depth[i] = 0.5 + float32(i%1000)/100.0
		}
		f.Depth = depth
	}
	return f
}

// TestRoundTripPreservesDimensions verifies decode(encode(f)) keeps the
// spatial dimensions exactly for both formats.
func TestRoundTripPreservesDimensions(t *testing.T) {
	for _, format := range []Format{FormatJPEG, FormatPNG} {
		enc, err := NewEncoder(format, 90)
		if err != nil {
			t.Fatalf("NewEncoder(%s) failed: %v", format, err)
		}

		f := testFrame(64, 48, false)
		env, err := enc.Encode(f)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}

		got, err := enc.Decode(env, "ego_view")
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got.Width != 64 || got.Height != 48 {
			t.Errorf("%s: expected 64x48, got %dx%d", format, got.Width, got.Height)
		}
		if len(got.Pixels) != 64*48*3 {
			t.Errorf("%s: expected %d pixel bytes, got %d", format, 64*48*3, len(got.Pixels))
		}
	}
}

// TestPNGRoundTripIsLossless verifies pixel content survives exactly for
// the lossless format.
func TestPNGRoundTripIsLossless(t *testing.T) {
	enc, _ := NewEncoder(FormatPNG, 0)

	f := testFrame(32, 24, false)
	env, err := enc.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := enc.Decode(env, "ego_view")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	for i := range f.Pixels {
		if got.Pixels[i] != f.Pixels[i] {
			t.Fatalf("pixel byte %d differs: got %d, want %d", i, got.Pixels[i], f.Pixels[i])
		}
	}
}

// TestDepthRoundTripsExactly verifies the depth plane survives
// byte-for-byte, including through the lossy image format.
func TestDepthRoundTripsExactly(t *testing.T) {
	enc, _ := NewEncoder(FormatJPEG, 80)

	f := testFrame(40, 30, true)
	env, err := enc.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := enc.Decode(env, "ego_view")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Depth == nil {
		t.Fatal("decoded frame lost its depth plane")
	}
	if len(got.Depth) != len(f.Depth) {
		t.Fatalf("depth length %d, want %d", len(got.Depth), len(f.Depth))
	}
	for i := range f.Depth {
		if got.Depth[i] != f.Depth[i] {
			t.Fatalf("depth value %d differs: got %v, want %v", i, got.Depth[i], f.Depth[i])
		}
	}
}

// TestTimestampSurvivesWire verifies the capture timestamp round-trips
// through the floating-point wire representation.
func TestTimestampSurvivesWire(t *testing.T) {
	enc, _ := NewEncoder(FormatJPEG, 90)

	f := testFrame(16, 16, false)
	env, err := enc.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	data, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	env2, err := UnmarshalEnvelope(data)
	if err != nil {
		t.Fatalf("UnmarshalEnvelope failed: %v", err)
	}

	got, err := enc.Decode(env2, "ego_view")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	diff := got.CapturedAt.Sub(f.CapturedAt)
	if diff < 0 {
		diff = -diff
	}
	// float64 epoch seconds carry sub-microsecond precision for current dates.
	if diff > time.Microsecond {
		t.Errorf("timestamp drifted by %v through the wire", diff)
	}
}

// TestDecodeRejectsDimensionMismatch verifies a corrupted shape header is
// reported as ErrDimensionMismatch.
func TestDecodeRejectsDimensionMismatch(t *testing.T) {
	enc, _ := NewEncoder(FormatJPEG, 90)

	f := testFrame(20, 20, false)
	env, err := enc.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	env.Shapes["ego_view"] = Shape{Width: 99, Height: 99}

	if _, err := enc.Decode(env, "ego_view"); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

// TestDecodeRejectsTruncatedDepth verifies a short depth plane is treated
// as a corrupt frame.
func TestDecodeRejectsTruncatedDepth(t *testing.T) {
	enc, _ := NewEncoder(FormatPNG, 0)

	f := testFrame(20, 20, true)
	env, err := enc.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	env.Depths["ego_view"] = env.Depths["ego_view"][:100]

	if _, err := enc.Decode(env, "ego_view"); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

// TestDecodeUnknownStream verifies demultiplexing by stream name.
func TestDecodeUnknownStream(t *testing.T) {
	enc, _ := NewEncoder(FormatJPEG, 90)

	env, err := enc.Encode(testFrame(16, 16, false))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := enc.Decode(env, "head"); !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("expected ErrStreamNotFound, got %v", err)
	}
}

// TestDecodeIsFormatAgnostic verifies decoding auto-detects the payload
// format: a decoder configured for JPEG reads PNG payloads unchanged, so a
// consumer never needs the producer's encoder settings.
func TestDecodeIsFormatAgnostic(t *testing.T) {
	pngEnc, _ := NewEncoder(FormatPNG, 0)
	jpegDec, _ := NewEncoder(FormatJPEG, DefaultJPEGQuality)

	f := testFrame(24, 18, true)
	env, err := pngEnc.Encode(f)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := jpegDec.Decode(env, "ego_view")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Width != 24 || got.Height != 18 {
		t.Errorf("expected 24x18, got %dx%d", got.Width, got.Height)
	}
	for i := range f.Pixels {
		if got.Pixels[i] != f.Pixels[i] {
			t.Fatalf("pixel byte %d differs: got %d, want %d", i, got.Pixels[i], f.Pixels[i])
		}
	}
	for i := range f.Depth {
		if got.Depth[i] != f.Depth[i] {
			t.Fatalf("depth value %d differs: got %v, want %v", i, got.Depth[i], f.Depth[i])
		}
	}
}

// TestNewEncoderValidation rejects unknown formats and bad quality.
func TestNewEncoderValidation(t *testing.T) {
	if _, err := NewEncoder("webp", 90); err == nil {
		t.Error("expected error for unsupported format")
	}
	if _, err := NewEncoder(FormatJPEG, 101); err == nil {
		t.Error("expected error for quality out of range")
	}
}
