package main

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-home/internal/scripting"
)

// writeConfig writes a config with MQTT and InfluxDB disabled.
func writeConfig(t *testing.T, dbPath, luaDir string, port int) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
site:
  id: test-site
  name: Test Home

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: discard

api:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(port) + `
  timeouts:
    read: 5
    write: 5
    idle: 5

scripting:
  plugin_dir: ""
  lua_enabled: true
  lua_dir: "` + luaDir + `"
  lua_timeout: 500
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// freePort asks the kernel for an unused TCP port.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close() //nolint:errcheck // only used to pick a port
	return port
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, options{configPath: "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	configPath := writeConfig(t, "", t.TempDir(), 8080)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, options{configPath: configPath}); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath verifies flag, environment and default precedence.
func TestGetConfigPath(t *testing.T) {
	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{name: "default", want: defaultConfigPath},
		{name: "env", env: "/env/config.yaml", want: "/env/config.yaml"},
		{name: "flag wins", flag: "/flag/config.yaml", env: "/env/config.yaml", want: "/flag/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GRAYLOGIC_CONFIG", tt.env)
			if got := getConfigPath(tt.flag); got != tt.want {
				t.Errorf("getConfigPath(%q) = %q, want %q", tt.flag, got, tt.want)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "a.yaml", "--plugins", "/opt/plugins", "--lua=/opt/lua"})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	want := options{configPath: "a.yaml", pluginDir: "/opt/plugins", luaDir: "/opt/lua"}
	if opts != want {
		t.Errorf("parseFlags() = %+v, want %+v", opts, want)
	}

	if _, err := parseFlags([]string{"-c", "a.yaml", "extra"}); err == nil {
		t.Error("parseFlags() with positional argument should fail")
	}
	if _, err := parseFlags([]string{"--bogus"}); err == nil {
		t.Error("parseFlags() with unknown flag should fail")
	}
	if _, err := parseFlags([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("parseFlags(--help) error = %v, want pflag.ErrHelp", err)
	}
}

// TestRun_StartupAndShutdown starts the full stack without a broker and
// checks that static Lua sources were persisted.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	luaDir := filepath.Join(tmpDir, "lua")
	if err := os.MkdirAll(luaDir, 0750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	lamp := "-- supports: device\nfunction setup(ctx) ctx:property('power', 'boolean', false, 'visible') end\n"
	if err := os.WriteFile(filepath.Join(luaDir, "lamp.lua"), []byte(lamp), 0600); err != nil {
		t.Fatalf("write lua: %v", err)
	}

	configPath := writeConfig(t, dbPath, luaDir, freePort(t))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := run(ctx, options{configPath: configPath}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	db, err := database.Open(database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()

	records, err := scripting.NewSQLiteSourceRepository(db.DB).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 || records[0].Provider != "lua" || records[0].Name != "lamp" {
		t.Errorf("persisted sources = %+v, want lua/lamp", records)
	}
}
