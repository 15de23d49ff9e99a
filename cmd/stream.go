package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/visiona/framecast/internal/codec"
	"github.com/visiona/framecast/internal/config"
	"github.com/visiona/framecast/internal/frame"
	"github.com/visiona/framecast/internal/sink"
	"github.com/visiona/framecast/internal/stream"
	"github.com/visiona/framecast/internal/transport"
)

// streamOptions holds the producer flags.
type streamOptions struct {
	Resolution string
	FPS        int
	Depth      bool
	Serial     string
	Port       int
	Preview    bool
	SaveDir    string
	Duration   time.Duration
}

var streamOpts streamOptions

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Capture frames and publish them to subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStream(cmd)
	},
}

func init() {
	streamCmd.Flags().StringVarP(&streamOpts.Resolution, "resolution", "r", "720p", "Camera resolution (vga, 720p, 1080p, 2k)")
	streamCmd.Flags().IntVarP(&streamOpts.FPS, "fps", "f", 30, "Target frames per second")
	streamCmd.Flags().BoolVar(&streamOpts.Depth, "depth", false, "Enable depth capture")
	streamCmd.Flags().StringVar(&streamOpts.Serial, "serial", "", "Device serial number (for multi-camera)")
	streamCmd.Flags().IntVarP(&streamOpts.Port, "port", "p", 5556, "Publisher port (0 to disable)")
	streamCmd.Flags().BoolVar(&streamOpts.Preview, "preview", false, "Log a local preview of each frame")
	streamCmd.Flags().StringVar(&streamOpts.SaveDir, "save", "", "Save frames to directory")
	streamCmd.Flags().DurationVar(&streamOpts.Duration, "duration", 0, "Run duration (0 = run until interrupted)")

	rootCmd.AddCommand(streamCmd)
}

// applyStreamFlags overlays explicitly-set flags onto the file config.
func applyStreamFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("resolution") {
		cfg.Stream.Resolution = streamOpts.Resolution
	}
	if flags.Changed("fps") {
		cfg.Stream.FPS = streamOpts.FPS
	}
	if flags.Changed("depth") {
		cfg.Stream.Depth = streamOpts.Depth
	}
	if flags.Changed("serial") {
		cfg.Stream.Serial = streamOpts.Serial
	}
	if flags.Changed("port") {
		cfg.Stream.Port = streamOpts.Port
	}
}

func runStream(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyStreamFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	source := frame.NewSyntheticSource(frame.SourceConfig{
		StreamID:    cfg.Stream.StreamID,
		Resolution:  frame.Resolution(cfg.Stream.Resolution),
		FPS:         cfg.Stream.FPS,
		EnableDepth: cfg.Stream.Depth,
		Serial:      cfg.Stream.Serial,
	})

	encoder, err := codec.NewEncoder(codec.Format(cfg.Stream.Format), cfg.Stream.Quality)
	if err != nil {
		return err
	}

	var pub *transport.Publisher
	if cfg.Stream.Port > 0 {
		pub, err = transport.Listen(fmt.Sprintf(":%d", cfg.Stream.Port))
		if err != nil {
			return fmt.Errorf("transport bind failed: %w", err)
		}
	} else {
		slog.Info("network publishing disabled")
	}

	var sinks []sink.Sink
	if streamOpts.Preview {
		sinks = append(sinks, sink.Preview{})
	}
	if streamOpts.SaveDir != "" {
		saver, err := sink.NewSaver(streamOpts.SaveDir, cfg.Stream.Format, cfg.Stream.Quality)
		if err != nil {
			return err
		}
		sinks = append(sinks, saver)
	}

	streamer := stream.NewStreamer(stream.StreamerConfig{
		FPS:      cfg.Stream.FPS,
		Duration: streamOpts.Duration,
	}, source, encoder, pub, sinks...)

	return runLoop(cmd.Context(), "streamer", cfg.MQTT, streamer.Tracker().Snapshot, streamer.Run)
}
