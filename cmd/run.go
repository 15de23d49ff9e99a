package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visiona/framecast/internal/config"
	"github.com/visiona/framecast/internal/emitter"
	"github.com/visiona/framecast/internal/metrics"
)

// runLoop drives a streaming loop until it finishes on its own or a shutdown
// signal arrives, with the optional MQTT status emitter running alongside.
func runLoop(parent context.Context, role string, mqttCfg config.MQTTConfig, snapshot func() metrics.Snapshot, loop func(context.Context) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if mqttCfg.Broker != "" {
		em := emitter.New(mqttCfg.Broker, mqttCfg.Topic, role, time.Duration(mqttCfg.IntervalS)*time.Second, snapshot)
		if err := em.Connect(); err != nil {
			slog.Warn("status emitter disabled", "error", err)
		} else {
			defer em.Close()
			go em.Run(ctx)
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- loop(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		cancel()
		return <-errChan
	case err := <-errChan:
		return err
	}
}
