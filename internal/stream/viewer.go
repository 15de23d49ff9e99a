package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/visiona/framecast/internal/codec"
	"github.com/visiona/framecast/internal/metrics"
	"github.com/visiona/framecast/internal/sink"
	"github.com/visiona/framecast/internal/transport"
)

// ViewerConfig configures a consumer loop.
type ViewerConfig struct {
	// ReceiveTimeout bounds each blocking receive.
	ReceiveTimeout time.Duration
}

// Viewer drives the consume side: receive, decode, track, render.
//
// Retry policy lives here, not in the subscriber: a timeout is reported and
// the loop simply tries again on the next iteration.
type Viewer struct {
	cfg     ViewerConfig
	sub     *transport.Subscriber
	decoder *codec.Encoder
	sinks   []sink.Sink

	// saver is the subset of sinks with a runtime toggle, if any.
	saver *sink.Saver

	tracker *metrics.Tracker

	// latency of the most recent frame per stream, for reporting.
	mu          sync.Mutex
	lastLatency map[string]time.Duration

	life      lifecycle
	closeOnce sync.Once
	closeErr  error
}

// NewViewer assembles a consumer loop. saver may be nil when saving is
// disabled; when present it is also rendered to and can be toggled.
func NewViewer(cfg ViewerConfig, sub *transport.Subscriber, decoder *codec.Encoder, saver *sink.Saver, sinks ...sink.Sink) *Viewer {
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = 5 * time.Second
	}
	if saver != nil {
		sinks = append(sinks, saver)
	}
	return &Viewer{
		cfg:         cfg,
		sub:         sub,
		decoder:     decoder,
		saver:       saver,
		sinks:       sinks,
		tracker:     metrics.NewTracker(metrics.DefaultWindowSize),
		lastLatency: make(map[string]time.Duration),
	}
}

// Tracker exposes the consumer-side metrics.
func (v *Viewer) Tracker() *metrics.Tracker { return v.tracker }

// State returns the current lifecycle state.
func (v *Viewer) State() State { return v.life.State() }

// ToggleSave flips frame saving and returns the new state.
// No-op returning false when no saver is attached.
func (v *Viewer) ToggleSave() bool {
	if v.saver == nil {
		return false
	}
	on := !v.saver.Enabled()
	v.saver.SetEnabled(on)
	slog.Info("frame saving toggled", "enabled", on)
	return on
}

// Run executes the receive loop until ctx is cancelled or the subscriber is
// closed. Timeouts and corrupt frames are reported and survived; nothing
// inside the loop aborts the session.
func (v *Viewer) Run(ctx context.Context) error {
	if err := v.life.start(); err != nil {
		return err
	}

	slog.Info("viewer started", "timeout", v.cfg.ReceiveTimeout)

	lastLog := time.Now()

	for {
		if ctx.Err() != nil {
			break
		}

		env, err := v.sub.Receive(v.cfg.ReceiveTimeout)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				slog.Warn("waiting for frames", "timeout", v.cfg.ReceiveTimeout)
				continue
			}
			// Subscriber closed underneath us.
			break
		}

		now := time.Now()
		v.tracker.RecordArrival(now)

		for _, name := range env.Streams() {
			f, err := v.decoder.Decode(env, name)
			if err != nil {
				if errors.Is(err, codec.ErrDimensionMismatch) {
					slog.Warn("corrupt frame dropped", "stream", name, "error", err)
					continue
				}
				slog.Warn("frame decode failed", "stream", name, "error", err)
				continue
			}

			latency := v.tracker.Latency(f.CapturedAt, now)
			v.mu.Lock()
			v.lastLatency[name] = latency
			v.mu.Unlock()

			for _, snk := range v.sinks {
				if err := snk.Render(f); err != nil {
					slog.Warn("sink rejected frame", "stream", name, "error", err)
				}
			}
		}

		if time.Since(lastLog) >= statsInterval {
			v.logStats()
			lastLog = time.Now()
		}
	}

	v.life.set(Stopping)
	err := v.Close()
	slog.Info("viewer stopped", "frames", v.tracker.Count())
	return err
}

func (v *Viewer) logStats() {
	fields := []any{"fps", v.tracker.FPS(), "frames", v.tracker.Count()}

	v.mu.Lock()
	for name, lat := range v.lastLatency {
		fields = append(fields, "latency_"+name, lat.Round(time.Millisecond))
	}
	v.mu.Unlock()

	st := v.sub.Stats()
	fields = append(fields, "conflated", st.Conflated, "connected", st.Connected)

	slog.Info("viewing", fields...)
}

// Close releases the subscriber connection and all sinks exactly once.
func (v *Viewer) Close() error {
	v.closeOnce.Do(func() {
		v.life.set(Stopping)

		var errs []error
		if err := v.sub.Close(); err != nil {
			errs = append(errs, err)
		} else {
			slog.Info("released transport connection")
		}
		for _, snk := range v.sinks {
			if err := snk.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		v.closeErr = errors.Join(errs...)
		v.life.set(Closed)
	})
	return v.closeErr
}
