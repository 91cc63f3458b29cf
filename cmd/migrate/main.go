package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/samirrijal/trackmap/internal/adapters/postgres"
	"github.com/samirrijal/trackmap/internal/pkg/config"
	"github.com/samirrijal/trackmap/internal/pkg/logging"
)

var upFiles = []string{
	"migrations/001_partners.sql",
	"migrations/002_vehicles.sql",
}

const downFile = "migrations/down.sql"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("trackmap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 1)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		apply(ctx, db, upFiles)
	case "down":
		apply(ctx, db, []string{downFile})
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func apply(ctx context.Context, db *postgres.DB, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}
		slog.Info("migration applied", "file", f)
	}
	slog.Info("migrations complete", "count", len(files))
}
