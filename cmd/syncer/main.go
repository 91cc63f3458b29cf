package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/trackmap/internal/adapters/postgres"
	"github.com/samirrijal/trackmap/internal/adapters/traccar"
	"github.com/samirrijal/trackmap/internal/core/usecases"
	"github.com/samirrijal/trackmap/internal/pkg/config"
	"github.com/samirrijal/trackmap/internal/pkg/logging"
	"github.com/samirrijal/trackmap/internal/pkg/telemetry"
	"github.com/samirrijal/trackmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("trackmap-syncer")
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

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	tracking := traccar.NewClient(traccar.Options{
		BaseURL:  cfg.Traccar.BaseURL,
		Username: cfg.Traccar.Username,
		Password: cfg.Traccar.Password,
		Timeout:  time.Duration(cfg.Traccar.Timeout) * time.Second,
	})
	syncSvc := usecases.NewVehicleSyncService(postgres.NewVehicleRepo(db), tracking)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.DeviceSyncWorkflow)
	w.RegisterWorkflow(workflows.TrackingInfoWorkflow)
	w.RegisterActivity(&workflows.DeviceSyncActivities{Sync: syncSvc})

	if cfg.Temporal.TrackingCron != "" {
		starter := workflows.NewStarter(c, cfg.Temporal.TaskQueue)
		if err := starter.ScheduleTrackingInfo(ctx, cfg.Temporal.TrackingCron); err != nil {
			slog.Warn("tracking info schedule not started", "error", err)
		}
	}

	slog.Info("syncer worker started", "task_queue", cfg.Temporal.TaskQueue, "tracking_cron", cfg.Temporal.TrackingCron)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
