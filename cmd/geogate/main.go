// geogate serves per-user files to devices that have logged in, proved they
// are inside the configured geofence and presented a trusted client hash.
//
// Any failed check revokes the device session and forces a new login.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/geogate/migrations"

	"github.com/nerrad567/geogate/internal/api"
	"github.com/nerrad567/geogate/internal/audit"
	"github.com/nerrad567/geogate/internal/auth"
	"github.com/nerrad567/geogate/internal/files"
	"github.com/nerrad567/geogate/internal/geofence"
	"github.com/nerrad567/geogate/internal/infrastructure/config"
	"github.com/nerrad567/geogate/internal/infrastructure/database"
	"github.com/nerrad567/geogate/internal/infrastructure/influxdb"
	"github.com/nerrad567/geogate/internal/infrastructure/logging"
	"github.com/nerrad567/geogate/internal/infrastructure/mqtt"
	"github.com/nerrad567/geogate/internal/integrity"
	"github.com/nerrad567/geogate/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const storageDirPermissions = 0o750

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting geogate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	// Static checks first: a bad polygon or hash is fatal before any I/O.
	polygon, err := geofence.FromConfig(cfg.Geofence)
	if err != nil {
		return fmt.Errorf("loading geofence: %w", err)
	}
	log.Info("geofence loaded", "vertices", len(polygon.Vertices()))

	verifier, err := integrity.New(cfg.Integrity.ReferenceHash)
	if err != nil {
		return fmt.Errorf("loading integrity reference: %w", err)
	}

	db, err := database.Open(cfg.Database)
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

	mqttClient := connectMQTT(cfg.MQTT, log)
	defer func() {
		if mqttClient != nil {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}
	}()

	influxClient, err := connectInfluxDB(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	defer func() {
		if influxClient != nil {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}
	}()

	var publisher audit.Publisher
	if mqttClient != nil {
		publisher = mqttClient
	}
	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB), publisher, log)

	scheme, err := auth.NewSecretScheme(cfg.Auth.PasswordMode)
	if err != nil {
		return fmt.Errorf("configuring password scheme: %w", err)
	}
	users := auth.NewUserRepository(db.DB)
	entitlements := files.NewSQLiteEntitlementStore(db.DB)
	if err := seed(ctx, cfg.Seed, users, scheme, entitlements, log); err != nil {
		return err
	}

	store, err := session.NewStore(ctx, cfg.Sessions, db.DB)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()
	log.Info("session store ready", "backend", cfg.Sessions.Backend)

	sessions := session.NewManager(store,
		session.WithDeviceIDLength(cfg.Sessions.DeviceIDLength),
		session.WithLogger(log),
		session.WithObserver(sessionObserver(recorder)),
	)

	blobs, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer blobs.Close()
	log.Info("blob store ready", "backend", cfg.Storage.Backend)

	deps := api.Deps{
		Config:      cfg.API,
		Logger:      log,
		Credentials: auth.NewCredentials(users, scheme),
		Sessions:    sessions,
		Geofence:    polygon,
		Integrity:   verifier,
		Files:       files.NewGate(entitlements, blobs),
		Audit:       recorder,
		Database:    db,
		Optional:    map[string]api.HealthChecker{},
		Version:     version,
	}
	if mqttClient != nil {
		deps.Optional["mqtt"] = mqttClient
	}
	if influxClient != nil {
		deps.Locations = influxClient
		deps.Optional["influxdb"] = influxClient
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("geogate stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("GEOGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT returns nil when MQTT is disabled or the broker is unreachable.
// Security events are then only written to the audit table.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) *mqtt.Client {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		log.Warn("MQTT unavailable, security events will not be published", "error", err)
		return nil
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client
}

func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client, nil
}

func openBlobStore(ctx context.Context, cfg config.StorageConfig) (files.BlobStore, error) {
	if cfg.Backend == config.StorageBackendLocal {
		if err := os.MkdirAll(cfg.Dir, storageDirPermissions); err != nil {
			return nil, fmt.Errorf("creating storage dir: %w", err)
		}
	}
	blobs, err := files.NewBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}
	return blobs, nil
}

// seed imports the legacy users.json and files.json when configured.
func seed(ctx context.Context, cfg config.SeedConfig, users auth.UserRepository, scheme auth.SecretScheme, ents files.EntitlementStore, log *logging.Logger) error {
	if cfg.UsersFile != "" {
		if _, err := auth.SeedUsersFromFile(ctx, users, scheme, cfg.UsersFile, log); err != nil {
			return fmt.Errorf("seeding users: %w", err)
		}
	}
	if cfg.FilesFile != "" {
		if _, err := files.SeedFromFile(ctx, ents, cfg.FilesFile, log); err != nil {
			return fmt.Errorf("seeding files: %w", err)
		}
	}
	return nil
}

// sessionObserver audits revocations. Issues are audited by the login
// handler.
func sessionObserver(recorder *audit.Recorder) session.Observer {
	return func(ctx context.Context, ev session.Event) {
		if ev.Kind != session.EventRevoked {
			return
		}
		recorder.Record(ctx, audit.ActionSessionRevoked, ev.Username, map[string]any{
			"reason": ev.Reason,
		})
	}
}
