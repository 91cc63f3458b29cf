package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/trackmap/internal/adapters/nats"
	"github.com/samirrijal/trackmap/internal/adapters/traccar"
	"github.com/samirrijal/trackmap/internal/core/usecases"
	"github.com/samirrijal/trackmap/internal/pkg/config"
	"github.com/samirrijal/trackmap/internal/pkg/logging"
	"github.com/samirrijal/trackmap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("trackmap-realtime")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	tracking := traccar.NewClient(traccar.Options{
		BaseURL:  cfg.Traccar.BaseURL,
		Username: cfg.Traccar.Username,
		Password: cfg.Traccar.Password,
		Timeout:  time.Duration(cfg.Traccar.Timeout) * time.Second,
	})
	poller := usecases.NewPositionPoller(tracking, pub)

	pollInterval := time.Duration(cfg.Traccar.PollInterval) * time.Second
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	slog.Info("realtime poller started", "interval", pollInterval.String(), "traccar", cfg.Traccar.BaseURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	poll := func() {
		pollCtx, pollCancel := context.WithTimeout(ctx, pollInterval)
		defer pollCancel()
		n, err := poller.Poll(pollCtx)
		if err != nil {
			slog.Error("poll positions failed", "error", err)
			return
		}
		slog.Debug("positions published", "count", n)
	}

	poll()

	for {
		select {
		case <-ticker.C:
			poll()
		case sig := <-quit:
			slog.Info("shutting down realtime poller", "signal", sig.String())
			cancel()
			return
		}
	}
}
