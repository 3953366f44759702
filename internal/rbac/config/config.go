package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"mongo"`

	MongoURI                    string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	DBName                      string `envconfig:"DB_NAME" default:"rolegate"`
	RolesCollection             string `envconfig:"COLLECTION_ROLES" default:"roles"`
	MappingsCollection          string `envconfig:"COLLECTION_PERMISSION_MAPPINGS" default:"permission_mappings"`
	SystemPermissionsCollection string `envconfig:"COLLECTION_SYSTEM_PERMISSIONS" default:"system_permissions"`
	AssignmentsCollection       string `envconfig:"COLLECTION_ROLE_ASSIGNMENTS" default:"role_assignments"`
	CountersCollection          string `envconfig:"COLLECTION_COUNTERS" default:"counters"`
	HistoryCollection           string `envconfig:"COLLECTION_PERMISSION_HISTORY" default:"permission_history"`
	DashboardsCollection        string `envconfig:"COLLECTION_DASHBOARDS" default:"dashboards"`
	DataPointsCollection        string `envconfig:"COLLECTION_DATA_POINTS" default:"data_points"`

	// Empty RedisAddr keeps the cascade lock in process.
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	LockPrefix       string        `envconfig:"LOCK_PREFIX" default:"rolegate:lock"`
	LockTTL          time.Duration `envconfig:"LOCK_TTL" default:"30s"`
	LockPollInterval time.Duration `envconfig:"LOCK_POLL_INTERVAL" default:"50ms"`

	CascadeRetries int           `envconfig:"CASCADE_RETRIES" default:"2"`
	RoleCacheSize  int           `envconfig:"ROLE_CACHE_SIZE" default:"1024"`
	RoleCacheTTL   time.Duration `envconfig:"ROLE_CACHE_TTL" default:"5m"`

	BootstrapSuperadmins []string `envconfig:"BOOTSTRAP_SUPERADMINS"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoadConfig reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.CascadeRetries < 0 {
		return fmt.Errorf("CASCADE_RETRIES must not be negative")
	}
	if c.LockTTL <= 0 || c.LockPollInterval <= 0 {
		return fmt.Errorf("LOCK_TTL and LOCK_POLL_INTERVAL must be positive")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
