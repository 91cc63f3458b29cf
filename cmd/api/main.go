package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/trackmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/trackmap/internal/adapters/nats"
	"github.com/samirrijal/trackmap/internal/adapters/postgres"
	"github.com/samirrijal/trackmap/internal/adapters/traccar"
	"github.com/samirrijal/trackmap/internal/adapters/valkey"
	"github.com/samirrijal/trackmap/internal/core/domain"
	"github.com/samirrijal/trackmap/internal/core/ports"
	"github.com/samirrijal/trackmap/internal/core/usecases"
	"github.com/samirrijal/trackmap/internal/pkg/config"
	"github.com/samirrijal/trackmap/internal/pkg/logging"
	"github.com/samirrijal/trackmap/internal/pkg/metrics"
	"github.com/samirrijal/trackmap/internal/pkg/telemetry"
	"github.com/samirrijal/trackmap/internal/workflows"
)

var version = "dev"

func main() {
	cfg, err := config.Load("trackmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{DB: db, Version: version}

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Password, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.NATS = pub.Conn()
	}

	tracking := traccar.NewClient(traccar.Options{
		BaseURL:  cfg.Traccar.BaseURL,
		Username: cfg.Traccar.Username,
		Password: cfg.Traccar.Password,
		Timeout:  time.Duration(cfg.Traccar.Timeout) * time.Second,
	})
	if cfg.Traccar.Username == "" {
		slog.Warn("traccar credentials not set, tracking requests will be anonymous")
	}

	// Use cases
	partnerRepo := postgres.NewPartnerRepo(db)
	vehicleRepo := postgres.NewVehicleRepo(db)

	partnerSvc := usecases.NewPartnerService(partnerRepo, cache)
	syncSvc := usecases.NewVehicleSyncService(vehicleRepo, tracking)
	viewSvc := usecases.NewViewService(viewSettings(cfg.Map), partnerSvc, tracking, publisher)
	defer viewSvc.CloseAll()

	deps.Views = viewSvc
	deps.Partners = partnerSvc
	deps.Sync = syncSvc

	// Position events from the realtime poller update the vehicle table.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
	if err != nil {
		slog.Warn("position subscriber unavailable", "error", err)
	} else {
		defer sub.Close()
		err := sub.SubscribePositions(ctx, func(ctx context.Context, pos *domain.Position) error {
			_, err := syncSvc.ApplyPosition(ctx, pos)
			return err
		})
		if err != nil {
			slog.Warn("subscribe positions failed", "error", err)
		}
	}

	// Temporal
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, async device sync disabled", "error", err)
		} else {
			defer tc.Close()
			deps.Workflow = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "Trackmap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, http://localhost:8069",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, Deprecation",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.RouterOptions{RateLimit: cfg.Server.RateLimit})

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// viewSettings applies the map configuration on top of the stock defaults.
func viewSettings(m config.MapConfig) usecases.ViewSettings {
	s := usecases.DefaultViewSettings()
	s.Scene.TileLayer = domain.TileLayer{
		URLTemplate: m.TileURL,
		MaxZoom:     m.TileMaxZoom,
		Attribution: m.Attribution,
	}
	s.Scene.Width = m.Width
	s.Scene.Height = m.Height
	s.ClientRefresh = time.Duration(m.ClientRefresh) * time.Second
	s.TrackingRefresh = time.Duration(m.TrackingRefresh) * time.Second
	return s
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
