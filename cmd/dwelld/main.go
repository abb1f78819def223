// Dwell Core - Occupancy Time Accumulation Engine
//
// This is the main entry point for the Dwell Core daemon. Dwell Core turns
// binary occupancy sensor streams into durable usage metrics:
//   - Cumulative occupied time and activation counts per source
//   - Persistence across restarts, crashes and clock weirdness
//   - Live metrics over MQTT, REST and WebSocket
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/nerrad567/dwell-core/migrations"

	"github.com/nerrad567/dwell-core/internal/api"
	"github.com/nerrad567/dwell-core/internal/infrastructure/config"
	"github.com/nerrad567/dwell-core/internal/infrastructure/database"
	"github.com/nerrad567/dwell-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/dwell-core/internal/infrastructure/logging"
	"github.com/nerrad567/dwell-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/dwell-core/internal/tracking"
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

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Dwell Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the snapshot publisher fan-out: retained MQTT snapshots always,
	// InfluxDB points when enabled.
	publisher := buildPublisher(mqttClient, influxClient, log)

	// Initialise tracker registry over the persisted record store
	store := tracking.NewSQLiteStore(db.DB)
	registry := tracking.NewRegistry(store, tracking.SystemClock(), publisher)
	registry.SetLogger(log)

	// Resume tracking for sources seen in previous runs
	if restoreErr := registry.RestorePersisted(ctx); restoreErr != nil {
		return fmt.Errorf("restoring persisted sources: %w", restoreErr)
	}
	log.Info("tracker registry initialised", "sources", registry.Count())

	// Begin event intake from the bus
	watcher := tracking.NewWatcher(mqttClient, registry, tracking.SystemClock(), log)
	if watchErr := watcher.Start(ctx); watchErr != nil {
		return fmt.Errorf("starting source watcher: %w", watchErr)
	}

	// Source discovery: static config list plus broker announcements,
	// reconciled periodically.
	discovery, err := startDiscovery(ctx, cfg, mqttClient, registry, log)
	if err != nil {
		return fmt.Errorf("starting source discovery: %w", err)
	}
	go registry.RunReconciler(ctx, discovery, cfg.GetRescanInterval())

	// Periodic runtime stats to InfluxDB (when enabled)
	if influxClient != nil {
		go reportSystemStats(ctx, influxClient, registry)
	}

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		MQTT:     mqttClient,
		DB:       db,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Flush any tracker records whose last persist failed. Uses a fresh
	// context because ctx is already cancelled.
	if flushErr := registry.Close(context.Background()); flushErr != nil {
		log.Error("error flushing tracker records", "error", flushErr)
	}

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Dwell Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DWELL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DWELL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildPublisher assembles the snapshot sink fan-out.
func buildPublisher(mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) tracking.Publisher {
	publishers := []tracking.Publisher{
		tracking.NewMQTTPublisher(mqttClient, log),
	}
	if influxClient != nil {
		publishers = append(publishers, tracking.NewInfluxPublisher(influxClient))
	}
	return tracking.NewMultiPublisher(publishers...)
}

// startDiscovery wires static config sources and broker announcements into
// a single discovery feed. Broker announcements also push straight into the
// registry so new sources start tracking without waiting for the next
// reconcile tick.
func startDiscovery(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client, registry *tracking.Registry, log *logging.Logger) (tracking.Discovery, error) {
	mqttDiscovery := tracking.NewMQTTDiscovery(mqttClient, log)
	mqttDiscovery.SetOnChange(func(ids []string) {
		registry.Reconcile(ctx, ids)
	})
	if err := mqttDiscovery.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting MQTT discovery: %w", err)
	}

	return tracking.NewMultiDiscovery(log,
		tracking.NewStaticDiscovery(cfg.Tracking.Sources),
		mqttDiscovery,
	), nil
}

// systemStatsInterval is how often runtime stats are written to InfluxDB.
const systemStatsInterval = 60 * time.Second

// reportSystemStats periodically writes process and tracking runtime stats
// as a system_stats measurement. Runs until ctx is cancelled.
func reportSystemStats(ctx context.Context, influxClient *influxdb.Client, registry *tracking.Registry) {
	ticker := time.NewTicker(systemStatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			influxClient.WritePoint("system_stats",
				map[string]string{"component": "dwelld"},
				systemStatsFields(registry),
			)
		}
	}
}

// systemStatsFields collects the field set for one system_stats point.
func systemStatsFields(registry *tracking.Registry) map[string]interface{} {
	occupied := 0
	for _, snap := range registry.Snapshots() {
		if snap.State.IsOn() {
			occupied++
		}
	}
	return map[string]interface{}{
		"goroutines":      runtime.NumGoroutine(),
		"tracked_sources": registry.Count(),
		"occupied_now":    occupied,
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
