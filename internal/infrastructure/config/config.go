package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for geogate.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Geofence  GeofenceConfig  `yaml:"geofence"`
	Integrity IntegrityConfig `yaml:"integrity"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Seed      SeedConfig      `yaml:"seed"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// Session store backends.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// SessionsConfig selects where device sessions live and how ids are minted.
type SessionsConfig struct {
	Backend string `yaml:"backend"`

	// DeviceIDLength is the number of alphanumeric characters in a freshly
	// issued device id. Values below 6 are rejected.
	DeviceIDLength int `yaml:"device_id_length"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings for the session store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// GeofenceConfig points at the permitted-area polygon.
// PolygonFile takes precedence over inline Vertices.
type GeofenceConfig struct {
	PolygonFile string         `yaml:"polygon_file"`
	Vertices    []VertexConfig `yaml:"vertices"`
}

// VertexConfig is one polygon corner in (latitude, longitude) order.
type VertexConfig struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// IntegrityConfig holds the client signing-certificate fingerprint baseline.
type IntegrityConfig struct {
	ReferenceHash string `yaml:"reference_hash"`
}

// Blob storage backends.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// StorageConfig selects the blob store serving entitled files.
type StorageConfig struct {
	Backend string   `yaml:"backend"`
	Dir     string   `yaml:"dir"`
	S3      S3Config `yaml:"s3"`
}

// S3Config contains settings for an S3-compatible object store.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Password storage modes.
const (
	PasswordModeArgon2    = "argon2"
	PasswordModePlaintext = "plaintext"
)

// AuthConfig controls how stored user secrets are interpreted.
type AuthConfig struct {
	// PasswordMode is "argon2" (default) or "plaintext" for parity with a
	// legacy users store that kept raw passwords.
	PasswordMode string `yaml:"password_mode"`
}

// SeedConfig names legacy JSON stores imported on first boot.
type SeedConfig struct {
	UsersFile string `yaml:"users_file"`
	FilesFile string `yaml:"files_file"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// minDeviceIDLength is the shortest device id the session manager may mint.
const minDeviceIDLength = 6

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. .env file in the working directory, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: GEOGATE_SECTION_KEY
// For example: GEOGATE_DATABASE_PATH, GEOGATE_API_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// godotenv never overrides variables already present in the process.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 60,
				Idle:  120,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/geogate.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Sessions: SessionsConfig{
			Backend:        SessionBackendSQLite,
			DeviceIDLength: 16,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "geogate:device:",
			},
		},
		Geofence: GeofenceConfig{
			PolygonFile: "areamap.json",
		},
		Storage: StorageConfig{
			Backend: StorageBackendLocal,
			Dir:     "static",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Auth: AuthConfig{
			PasswordMode: PasswordModeArgon2,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "geogate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("GEOGATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GEOGATE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Database
	if v := os.Getenv("GEOGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Sessions
	if v := os.Getenv("GEOGATE_SESSIONS_BACKEND"); v != "" {
		cfg.Sessions.Backend = v
	}
	if v := os.Getenv("GEOGATE_REDIS_ADDR"); v != "" {
		cfg.Sessions.Redis.Addr = v
	}
	if v := os.Getenv("GEOGATE_REDIS_PASSWORD"); v != "" {
		cfg.Sessions.Redis.Password = v
	}

	// Geofence
	if v := os.Getenv("GEOGATE_GEOFENCE_POLYGON_FILE"); v != "" {
		cfg.Geofence.PolygonFile = v
	}

	// Integrity - HASH is the name the legacy deployment used in its .env
	if v := os.Getenv("GEOGATE_INTEGRITY_REFERENCE_HASH"); v != "" {
		cfg.Integrity.ReferenceHash = v
	} else if v := os.Getenv("HASH"); v != "" {
		cfg.Integrity.ReferenceHash = v
	}

	// Storage
	if v := os.Getenv("GEOGATE_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("GEOGATE_S3_ACCESS_KEY"); v != "" {
		cfg.Storage.S3.AccessKey = v
	}
	if v := os.Getenv("GEOGATE_S3_SECRET_KEY"); v != "" {
		cfg.Storage.S3.SecretKey = v
	}

	// MQTT
	if v := os.Getenv("GEOGATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GEOGATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GEOGATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GEOGATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls requires cert_file and key_file")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	switch c.Sessions.Backend {
	case SessionBackendSQLite, SessionBackendMemory:
	case SessionBackendRedis:
		if c.Sessions.Redis.Addr == "" {
			errs = append(errs, "sessions.redis.addr is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("sessions.backend %q is not one of sqlite, redis, memory", c.Sessions.Backend))
	}
	if c.Sessions.DeviceIDLength < minDeviceIDLength {
		errs = append(errs, fmt.Sprintf("sessions.device_id_length must be at least %d", minDeviceIDLength))
	}

	if c.Geofence.PolygonFile == "" && len(c.Geofence.Vertices) == 0 {
		errs = append(errs, "geofence.polygon_file or geofence.vertices is required")
	}

	if strings.TrimSpace(c.Integrity.ReferenceHash) == "" {
		errs = append(errs, "integrity.reference_hash is required (set GEOGATE_INTEGRITY_REFERENCE_HASH or HASH)")
	}

	switch c.Storage.Backend {
	case StorageBackendLocal:
		if c.Storage.Dir == "" {
			errs = append(errs, "storage.dir is required for the local backend")
		}
	case StorageBackendS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, "storage.s3.bucket is required for the s3 backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is not one of local, s3", c.Storage.Backend))
	}

	switch c.Auth.PasswordMode {
	case PasswordModeArgon2, PasswordModePlaintext:
	default:
		errs = append(errs, fmt.Sprintf("auth.password_mode %q is not one of argon2, plaintext", c.Auth.PasswordMode))
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
