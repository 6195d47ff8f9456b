// Gray Logic Home - scriptable rooms, devices and services
//
// This is the main entry point for the Gray Logic Home application.
// It hosts script providers (native plugins and Lua), restores the
// persisted home and serves it over REST, WebSocket and MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/gray-logic-home/migrations"

	"github.com/nerrad567/gray-logic-home/internal/api"
	"github.com/nerrad567/gray-logic-home/internal/home"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-home/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-home/internal/scripting"
	"github.com/nerrad567/gray-logic-home/internal/scripting/lua"
	"github.com/nerrad567/gray-logic-home/internal/scripting/native"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// options are the command-line overrides.
type options struct {
	configPath string
	pluginDir  string
	luaDir     string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. pflag.ErrHelp is returned after
// usage has been printed for -h/--help.
func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("graylogic", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (default $GRAYLOGIC_CONFIG or "+defaultConfigPath+")")
	flagSet.StringVar(&opts.pluginDir, "plugins", "", "native plugin directory, overrides scripting.plugin_dir")
	flagSet.StringVar(&opts.luaDir, "lua", "", "Lua source directory, overrides scripting.lua_dir")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Command-line overrides
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Home",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.pluginDir != "" {
		cfg.Scripting.PluginDir = opts.pluginDir
	}
	if opts.luaDir != "" {
		cfg.Scripting.LuaDir = opts.luaDir
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	scripts, err := startScripting(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	// Connect to MQTT broker (optional)
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	switch {
	case errors.Is(err, mqtt.ErrDisabled):
		log.Info("MQTT disabled")
	case err != nil:
		return fmt.Errorf("connecting to MQTT: %w", err)
	default:
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// Connect to InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// The hub is created ahead of the API server so the home can publish to it.
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	h := home.New(homeDeps(cfg, scripts, db, hub, mqttClient, influxClient, log))
	if loadErr := h.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading home: %w", loadErr)
	}
	defer func() {
		log.Info("terminating scripts")
		h.Close()
	}()

	apiDeps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Home:    h,
		Scripts: scripts,
		DB:      db.DB,
		Hub:     hub,
		Version: version,
	}

	if mqttClient != nil {
		invokes := mqtt.Topics{}.AllEntityInvokes()
		if subErr := mqttClient.Subscribe(invokes, 1, h.HandleInvoke); subErr != nil {
			return fmt.Errorf("subscribing to invoke topics: %w", subErr)
		}
		// Stop taking invokes before the scripts are terminated.
		defer func() {
			if unsubErr := mqttClient.Unsubscribe(invokes); unsubErr != nil {
				log.Warn("unsubscribing from invoke topics", "error", unsubErr)
			}
		}()
		apiDeps.MQTT = mqttClient
	}

	server, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API server, scripts, InfluxDB, MQTT, database.

	log.Info("Gray Logic Home stopped")
	return nil
}

// startScripting registers the configured providers and restores the
// persisted script sources.
func startScripting(ctx context.Context, cfg *config.Config, db *database.DB, log *logging.Logger) (*scripting.Manager, error) {
	manager := scripting.NewManager()
	manager.SetLogger(log.Component("scripting"))

	if cfg.Scripting.PluginDir != "" {
		provider := native.NewProvider(cfg.Scripting.PluginDir,
			native.WithSuffixes(cfg.Scripting.PluginSuffix),
			native.WithLogger(log.Component("native")),
		)
		if err := manager.AddProvider(provider); err != nil {
			return nil, fmt.Errorf("registering native provider: %w", err)
		}
	}

	if cfg.Scripting.LuaEnabled {
		provider := lua.NewProvider(cfg.Scripting.LuaDir,
			lua.WithTimeout(cfg.GetLuaTimeout()),
			lua.WithLogger(log.Component("lua")),
		)
		if err := manager.AddProvider(provider); err != nil {
			return nil, fmt.Errorf("registering lua provider: %w", err)
		}
	}

	if err := manager.Bootstrap(ctx, scripting.NewSQLiteSourceRepository(db.DB)); err != nil {
		return nil, fmt.Errorf("bootstrapping script sources: %w", err)
	}
	log.Info("scripting initialised",
		"providers", manager.Providers(),
		"sources", len(manager.Sources()),
	)
	return manager, nil
}

// homeDeps wires the home to its repository and broadcast targets.
// Optional clients are only added when connected, so no typed nil ends up
// behind an interface.
func homeDeps(cfg *config.Config, scripts *scripting.Manager, db *database.DB, hub *api.Hub,
	mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) home.Deps {
	publishers := home.Publishers{hub}
	if mqttClient != nil {
		publishers = append(publishers, home.NewMQTTPublisher(mqttClient))
	}

	deps := home.Deps{
		Name:       cfg.Site.Name,
		Scripts:    scripts,
		Repository: home.NewSQLiteRepository(db.DB),
		Publisher:  publishers,
		Logger:     log.Component("home"),
	}
	if influxClient != nil {
		deps.Recorder = home.NewInfluxRecorder(influxClient)
	}
	return deps
}

// getConfigPath returns the configuration file path.
// The flag wins over the GRAYLOGIC_CONFIG environment variable, which wins
// over the default.
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
