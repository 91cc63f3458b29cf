package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "trackmap", DBName: "trackmap", SSLMode: "disable"},
		NATS:     NATSConfig{URL: "nats://localhost:4222"},
		Valkey:   ValkeyConfig{Addr: "localhost:6379"},
		Traccar:  TraccarConfig{BaseURL: "http://localhost:8082", Timeout: 10, PollInterval: 5},
		Map:      MapConfig{TileMaxZoom: 19, ClientRefresh: 10, TrackingRefresh: 5},
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRACKMAP_SERVER_PORT", "9090")
	t.Setenv("TRACKMAP_TRACCAR_BASE_URL", "https://gps.example.com")
	t.Setenv("TRACKMAP_TRACCAR_USERNAME", "fleet")
	t.Setenv("TRACKMAP_TRACCAR_PASSWORD", "secret")

	cfg, err := Load("trackmap-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Traccar.BaseURL != "https://gps.example.com" || cfg.Traccar.Username != "fleet" {
		t.Errorf("unexpected traccar config %+v", cfg.Traccar)
	}
	if cfg.Telemetry.ServiceName != "trackmap-test" {
		t.Errorf("expected service name default, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Map.ClientRefresh != 10 || cfg.Map.TrackingRefresh != 5 {
		t.Errorf("unexpected refresh defaults %+v", cfg.Map)
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Traccar.BaseURL = "not a url"
	cfg.Traccar.Username = "only-user"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"server.port", "traccar.base_url", "traccar.username and traccar.password"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestValidate_TemporalQueue(t *testing.T) {
	cfg := validConfig()
	cfg.Temporal = TemporalConfig{Enabled: true}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "temporal.task_queue") {
		t.Errorf("expected task queue error, got %v", err)
	}
}

func TestDSN_EscapesPassword(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "trackmap", SSLMode: "disable"}
	want := "postgres://app:p%40ss%2Fword@db:5432/trackmap?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
