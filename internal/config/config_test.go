package config

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.SQLite.Path != "engine.db" {
		t.Fatalf("sqlite path = %q, want engine.db", cfg.Database.SQLite.Path)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoggingApplySetsFlags(t *testing.T) {
	prev := log.Flags()
	defer log.SetFlags(prev)

	LoggingConfig{Level: "info"}.Apply()
	if got := log.Flags(); got != log.LstdFlags {
		t.Fatalf("info flags = %d, want %d", got, log.LstdFlags)
	}

	LoggingConfig{Level: "debug"}.Apply()
	want := log.LstdFlags | log.Lshortfile | log.Lmicroseconds
	if got := log.Flags(); got != want {
		t.Fatalf("debug flags = %d, want %d", got, want)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 9000\n  read_timeout: 5s\ndatabase:\n  driver: mysql\n  mysql:\n    host: db.internal\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("read timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Driver != "mysql" {
		t.Fatalf("driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.MySQL.Host != "db.internal" {
		t.Fatalf("mysql host = %q, want db.internal", cfg.Database.MySQL.Host)
	}
	// Defaults still fill what the file leaves out.
	if cfg.Server.WriteTimeout != 15*time.Second {
		t.Fatalf("write timeout = %v, want 15s", cfg.Server.WriteTimeout)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE", "custom.db")
	t.Setenv("PORT", "9191")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.SQLite.Path != "custom.db" {
		t.Fatalf("sqlite path = %q, want custom.db", cfg.Database.SQLite.Path)
	}
	if cfg.Server.Port != 9191 {
		t.Fatalf("port = %d, want 9191", cfg.Server.Port)
	}
}
