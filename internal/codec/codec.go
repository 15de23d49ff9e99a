// Package codec converts frames to and from transmissible envelopes.
//
// Both directions are pure transformations: no I/O, no retained state beyond
// the encoder settings. Image planes are carried as JPEG (lossy, bounded by
// the configured quality) or PNG (lossless). Depth planes always round-trip
// byte-for-byte as raw little-endian float32, since they feed numeric use
// downstream.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/visiona/framecast/internal/frame"
)

// Format selects the image plane encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// DefaultJPEGQuality matches the quality used by the frame saver.
const DefaultJPEGQuality = 90

// ErrDimensionMismatch means a decoded payload does not match the dimensions
// declared in its envelope. The frame is corrupt and must be dropped.
var ErrDimensionMismatch = errors.New("codec: payload dimensions do not match envelope")

// ErrStreamNotFound means the requested stream has no payload in the envelope.
var ErrStreamNotFound = errors.New("codec: stream not present in envelope")

// Shape records the spatial dimensions of an encoded stream, used to validate
// payloads on decode.
type Shape struct {
	Width  int `msgpack:"w"`
	Height int `msgpack:"h"`
}

// Envelope is the wire message: one self-contained multi-stream snapshot.
//
// Every map is keyed by stream name so a consumer can demultiplex cameras.
// Timestamps are floating-point seconds since epoch, matching the wire
// contract with non-Go peers.
type Envelope struct {
	Images     map[string][]byte  `msgpack:"images"`
	Depths     map[string][]byte  `msgpack:"depths,omitempty"`
	Timestamps map[string]float64 `msgpack:"timestamps"`
	Shapes     map[string]Shape   `msgpack:"shapes"`
}

// Streams returns the stream names carried by the envelope.
func (e *Envelope) Streams() []string {
	names := make([]string, 0, len(e.Images))
	for name := range e.Images {
		names = append(names, name)
	}
	return names
}

// Marshal serializes the envelope with msgpack.
func (e *Envelope) Marshal() ([]byte, error) {
	return msgpack.Marshal(e)
}

// UnmarshalEnvelope parses a msgpack-encoded envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("codec: unmarshal envelope: %w", err)
	}
	return &e, nil
}

// Encoder converts frames into envelopes and back.
type Encoder struct {
	// Format for image planes.
	Format Format

	// Quality for JPEG encoding, 1-100. Zero means DefaultJPEGQuality.
	Quality int
}

// NewEncoder returns an encoder with the given format, validating it.
func NewEncoder(format Format, quality int) (*Encoder, error) {
	if format != FormatJPEG && format != FormatPNG {
		return nil, fmt.Errorf("codec: unsupported format %q (must be jpeg or png)", format)
	}
	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("codec: jpeg quality %d out of range 1-100", quality)
	}
	return &Encoder{Format: format, Quality: quality}, nil
}

// Encode packs a frame into a single-stream envelope.
func (c *Encoder) Encode(f *frame.Frame) (*Envelope, error) {
	if len(f.Pixels) != f.Width*f.Height*3 {
		return nil, fmt.Errorf("codec: invalid RGB data size: got %d, expected %d",
			len(f.Pixels), f.Width*f.Height*3)
	}

	img := rgbToImage(f.Pixels, f.Width, f.Height)

	var buf bytes.Buffer
	switch c.Format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("codec: png encode: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.Quality}); err != nil {
			return nil, fmt.Errorf("codec: jpeg encode: %w", err)
		}
	}

	env := &Envelope{
		Images:     map[string][]byte{f.StreamID: buf.Bytes()},
		Timestamps: map[string]float64{f.StreamID: timeToEpoch(f.CapturedAt)},
		Shapes:     map[string]Shape{f.StreamID: {Width: f.Width, Height: f.Height}},
	}

	if f.HasDepth() {
		if len(f.Depth) != f.Width*f.Height {
			return nil, fmt.Errorf("codec: invalid depth plane size: got %d, expected %d",
				len(f.Depth), f.Width*f.Height)
		}
		env.Depths = map[string][]byte{f.StreamID: depthToBytes(f.Depth)}
	}

	return env, nil
}

// Decode reconstructs the named stream's frame from an envelope.
//
// Dimensions are validated against the envelope header: a mismatch between
// the declared shape and the decoded image (or the depth plane length) yields
// ErrDimensionMismatch.
func (c *Encoder) Decode(env *Envelope, stream string) (*frame.Frame, error) {
	payload, ok := env.Images[stream]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStreamNotFound, stream)
	}

	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("codec: image decode: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if shape, ok := env.Shapes[stream]; ok {
		if shape.Width != w || shape.Height != h {
			return nil, fmt.Errorf("%w: declared %dx%d, decoded %dx%d",
				ErrDimensionMismatch, shape.Width, shape.Height, w, h)
		}
	}

	f := &frame.Frame{
		StreamID:   stream,
		CapturedAt: epochToTime(env.Timestamps[stream]),
		Width:      w,
		Height:     h,
		Pixels:     imageToRGB(img),
	}

	if raw, ok := env.Depths[stream]; ok {
		if len(raw) != w*h*4 {
			return nil, fmt.Errorf("%w: depth plane %d bytes for %dx%d",
				ErrDimensionMismatch, len(raw), w, h)
		}
		f.Depth = bytesToDepth(raw)
	}

	return f, nil
}

// rgbToImage wraps RGB24 bytes into an NRGBA image (alpha forced opaque).
func rgbToImage(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4+0] = pixels[i*3+0]
		img.Pix[i*4+1] = pixels[i*3+1]
		img.Pix[i*4+2] = pixels[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img
}

// imageToRGB flattens any decoded image back to RGB24.
func imageToRGB(img image.Image) []byte {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, w*h*3)

	if nrgba, ok := img.(*image.NRGBA); ok {
		for i := 0; i < w*h; i++ {
			out[i*3+0] = nrgba.Pix[i*4+0]
			out[i*3+1] = nrgba.Pix[i*4+1]
			out[i*3+2] = nrgba.Pix[i*4+2]
		}
		return out
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out[i+0] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return out
}

// depthToBytes serializes a depth plane as little-endian float32.
func depthToBytes(depth []float32) []byte {
	out := make([]byte, len(depth)*4)
	for i, v := range depth {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesToDepth(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

// timeToEpoch converts to floating-point seconds since epoch (wire contract).
func timeToEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func epochToTime(sec float64) time.Time {
	s := int64(sec)
	ns := int64((sec - float64(s)) * 1e9)
	return time.Unix(s, ns)
}
