package sink

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"github.com/visiona/framecast/internal/frame"
)

// Saver writes frames to disk as image files, one file per frame.
//
// Filename format: <stream>_<counter>.<ext>, e.g. ego_view_000042.jpg.
// When a frame carries depth, the plane is written alongside as a raw
// little-endian float32 file with a .depth extension.
//
// Thread-safe: Render may be called from multiple goroutines.
type Saver struct {
	dir     string
	format  string
	quality int

	// MaxWidth, when non-zero, downscales wider frames before saving.
	MaxWidth int

	saved   atomic.Uint64
	dropped atomic.Uint64

	enabled atomic.Bool
}

// NewSaver creates a saver writing into dir. Format is "jpeg" or "png";
// quality applies to JPEG only.
func NewSaver(dir, format string, quality int) (*Saver, error) {
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("sink: unsupported format %q (must be jpeg or png)", format)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("sink: create output directory: %w", err)
	}

	s := &Saver{dir: dir, format: format, quality: quality}
	s.enabled.Store(true)
	return s, nil
}

// SetEnabled toggles saving at runtime. A disabled saver accepts frames and
// discards them, so toggling never disturbs the receive loop.
func (s *Saver) SetEnabled(on bool) { s.enabled.Store(on) }

// Enabled reports the current toggle state.
func (s *Saver) Enabled() bool { return s.enabled.Load() }

// Render writes one frame to disk.
func (s *Saver) Render(f *frame.Frame) error {
	if !s.enabled.Load() {
		return nil
	}

	n := s.saved.Load() + s.dropped.Load()

	img := toNRGBA(f)
	if s.MaxWidth > 0 && f.Width > s.MaxWidth {
		img = imaging.Resize(img, s.MaxWidth, 0, imaging.Lanczos)
	}

	ext := "jpg"
	if s.format == "png" {
		ext = "png"
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%06d.%s", f.StreamID, n, ext))

	if err := imaging.Save(img, path, imaging.JPEGQuality(s.quality)); err != nil {
		s.dropped.Add(1)
		return fmt.Errorf("sink: save frame: %w", err)
	}

	if f.HasDepth() {
		if err := s.saveDepth(f, n); err != nil {
			s.dropped.Add(1)
			return err
		}
	}

	s.saved.Add(1)
	return nil
}

func (s *Saver) saveDepth(f *frame.Frame, n uint64) error {
	raw := make([]byte, len(f.Depth)*4)
	for i, v := range f.Depth {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%06d.depth", f.StreamID, n))
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("sink: save depth plane: %w", err)
	}
	return nil
}

// Stats returns counts of frames saved and dropped.
func (s *Saver) Stats() (saved, dropped uint64) {
	return s.saved.Load(), s.dropped.Load()
}

// Close is a no-op; files are closed per frame.
func (s *Saver) Close() error { return nil }

// toNRGBA converts RGB24 frame data to an NRGBA image.
func toNRGBA(f *frame.Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width*f.Height; i++ {
		img.Pix[i*4+0] = f.Pixels[i*3+0]
		img.Pix[i*4+1] = f.Pixels[i*3+1]
		img.Pix[i*4+2] = f.Pixels[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img
}
