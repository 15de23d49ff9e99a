package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/visiona/framecast/internal/codec"
	"github.com/visiona/framecast/internal/config"
	"github.com/visiona/framecast/internal/sink"
	"github.com/visiona/framecast/internal/stream"
	"github.com/visiona/framecast/internal/transport"
)

// viewOptions holds the consumer flags.
type viewOptions struct {
	Addr    string
	Port    int
	Timeout time.Duration
	Save    bool
	SaveDir string
}

var viewOpts viewOptions

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Receive frames from a publisher and report FPS/latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd)
	},
}

func init() {
	viewCmd.Flags().StringVarP(&viewOpts.Addr, "addr", "a", "127.0.0.1", "Publisher address")
	viewCmd.Flags().IntVarP(&viewOpts.Port, "port", "p", 5556, "Publisher port")
	viewCmd.Flags().DurationVarP(&viewOpts.Timeout, "timeout", "t", 5*time.Second, "Receive timeout")
	viewCmd.Flags().BoolVarP(&viewOpts.Save, "save", "s", false, "Enable frame saving")
	viewCmd.Flags().StringVar(&viewOpts.SaveDir, "save-dir", "./captured_frames", "Directory to save frames")

	rootCmd.AddCommand(viewCmd)
}

func applyViewFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Viewer.Addr = viewOpts.Addr
	}
	if flags.Changed("port") {
		cfg.Viewer.Port = viewOpts.Port
	}
	if flags.Changed("save-dir") {
		cfg.Viewer.SaveDir = viewOpts.SaveDir
	}
}

// resolveTimeout picks the receive timeout. The flag is a duration and wins
// as given, sub-second values included; the config file only carries whole
// seconds.
func resolveTimeout(flagSet bool, flagValue time.Duration, fileSeconds int) time.Duration {
	if flagSet {
		return flagValue
	}
	return time.Duration(fileSeconds) * time.Second
}

func runView(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyViewFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	sub, err := transport.Dial(fmt.Sprintf("%s:%d", cfg.Viewer.Addr, cfg.Viewer.Port))
	if err != nil {
		return fmt.Errorf("transport dial failed: %w", err)
	}

	// Decoding auto-detects the image format from the payload, so the
	// decoder does not depend on any producer-side settings.
	decoder, err := codec.NewEncoder(codec.FormatJPEG, codec.DefaultJPEGQuality)
	if err != nil {
		return err
	}

	// The saver is always attached so saving can be toggled at runtime;
	// it starts enabled only when --save was given.
	saver, err := sink.NewSaver(cfg.Viewer.SaveDir, "jpeg", codec.DefaultJPEGQuality)
	if err != nil {
		return err
	}
	saver.SetEnabled(viewOpts.Save)

	viewer := stream.NewViewer(stream.ViewerConfig{
		ReceiveTimeout: resolveTimeout(cmd.Flags().Changed("timeout"), viewOpts.Timeout, cfg.Viewer.TimeoutS),
	}, sub, decoder, saver, sink.Preview{})

	fmt.Println("Commands: 's' toggles frame saving, 'q' quits.")
	go readCommands(viewer)

	return runLoop(cmd.Context(), "viewer", cfg.MQTT, viewer.Tracker().Snapshot, viewer.Run)
}

// readCommands handles the interactive stdin toggles. Quitting raises
// SIGINT so shutdown funnels through the one signal path.
func readCommands(viewer *stream.Viewer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "s":
			viewer.ToggleSave()
		case "q":
			p, err := os.FindProcess(os.Getpid())
			if err == nil {
				p.Signal(os.Interrupt)
			}
			return
		case "":
		default:
			slog.Info("unknown command (use 's' or 'q')")
		}
	}
}
