// Package stream holds the producer and consumer orchestration loops.
//
// Both loops are single-worker: one goroutine acquires (or receives) one
// frame per iteration, processes it, updates metrics, and checks for
// cancellation at the top of the next iteration. Suspension happens only
// inside the single blocking Grab/Receive call per iteration; there are no
// hidden background threads beyond what the transport needs to avoid
// blocking.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/visiona/framecast/internal/codec"
	"github.com/visiona/framecast/internal/frame"
	"github.com/visiona/framecast/internal/metrics"
	"github.com/visiona/framecast/internal/sink"
	"github.com/visiona/framecast/internal/transport"
)

// statsInterval is how often the loops log their FPS line.
const statsInterval = 2 * time.Second

// StreamerConfig configures a producer loop.
type StreamerConfig struct {
	// FPS is the target capture rate; the loop is paced to it.
	FPS int

	// Duration optionally bounds the run; zero means run until cancelled.
	Duration time.Duration
}

// Streamer drives the capture side: grab, encode, publish, render.
type Streamer struct {
	cfg     StreamerConfig
	source  frame.Source
	encoder *codec.Encoder

	// pub is nil when network publishing is disabled.
	pub *transport.Publisher

	sinks   []sink.Sink
	tracker *metrics.Tracker
	limiter *rate.Limiter

	life      lifecycle
	closeOnce sync.Once
	closeErr  error
}

// NewStreamer assembles a producer loop. source and encoder are required;
// pub may be nil (publishing disabled) and sinks may be empty.
func NewStreamer(cfg StreamerConfig, source frame.Source, encoder *codec.Encoder, pub *transport.Publisher, sinks ...sink.Sink) *Streamer {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	return &Streamer{
		cfg:     cfg,
		source:  source,
		encoder: encoder,
		pub:     pub,
		sinks:   sinks,
		tracker: metrics.NewTracker(metrics.DefaultWindowSize),
		limiter: rate.NewLimiter(rate.Limit(cfg.FPS), 1),
	}
}

// Tracker exposes the producer-side metrics.
func (s *Streamer) Tracker() *metrics.Tracker { return s.tracker }

// State returns the current lifecycle state.
func (s *Streamer) State() State { return s.life.State() }

// Run executes the capture loop until ctx is cancelled, the configured
// duration elapses, or the source reports it was closed. A single failed
// grab is logged and skipped; only startup problems abort a session, and
// those surface from the constructors before Run is ever called.
//
// Run releases all resources on the way out, so the streamer is Closed when
// it returns.
func (s *Streamer) Run(ctx context.Context) error {
	if err := s.life.start(); err != nil {
		return err
	}

	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}

	slog.Info("streaming started", "fps_target", s.cfg.FPS, "publishing", s.pub != nil)

	lastLog := time.Now()

	for {
		// Cancellation is polled here, never mid-iteration.
		if ctx.Err() != nil {
			break
		}

		if err := s.limiter.Wait(ctx); err != nil {
			break
		}

		f, err := s.source.Grab(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, frame.ErrSourceClosed) {
				break
			}
			slog.Warn("frame grab missed", "error", err)
			continue
		}

		s.tracker.RecordArrival(time.Now())

		env, err := s.encoder.Encode(f)
		if err != nil {
			slog.Warn("frame encode failed, dropping", "seq", f.Seq, "error", err)
			continue
		}

		if s.pub != nil {
			s.pub.Publish(env)
		}

		for _, snk := range s.sinks {
			if err := snk.Render(f); err != nil {
				slog.Warn("sink rejected frame", "seq", f.Seq, "error", err)
			}
		}

		if time.Since(lastLog) >= statsInterval {
			fields := []any{"fps", s.tracker.FPS(), "frames", s.tracker.Count()}
			if s.pub != nil {
				st := s.pub.Stats()
				fields = append(fields, "published", st.Published, "subscribers", len(st.Subscribers))
			}
			slog.Info("streaming", fields...)
			lastLog = time.Now()
		}
	}

	s.life.set(Stopping)
	err := s.Close()
	slog.Info("streaming stopped", "frames", s.tracker.Count())
	return err
}

// Close releases the source, the transport binding, and all sinks exactly
// once. Safe to call concurrently with or after Run.
func (s *Streamer) Close() error {
	s.closeOnce.Do(func() {
		s.life.set(Stopping)

		var errs []error
		if err := s.source.Close(); err != nil {
			errs = append(errs, err)
		} else {
			slog.Info("released device handle")
		}
		if s.pub != nil {
			if err := s.pub.Close(); err != nil {
				errs = append(errs, err)
			} else {
				slog.Info("released transport binding")
			}
		}
		for _, snk := range s.sinks {
			if err := snk.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		s.closeErr = errors.Join(errs...)
		s.life.set(Closed)
	})
	return s.closeErr
}
