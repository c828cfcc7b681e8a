package config

import (
	"fmt"
	"time"
)

// DBConfig contains PostgreSQL database configuration for the settings history store.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"dashboard"`
	Password string `env:"PASSWORD"                envDefault:"dashboard"`
	Name     string `env:"NAME"                    envDefault:"content_dashboard"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN renders the connection string used by the pgx stdlib driver.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	// Namespace prefixes every cache key written by the dashboard.
	Namespace string `env:"NAMESPACE" envDefault:"content-dashboard"`
}

// CacheConfig contains TTLs for Redis-backed caches.
type CacheConfig struct {
	// StepTTL is how long indexed step outputs stay cached.
	StepTTL time.Duration `env:"STEP_TTL" envDefault:"30m"`

	// SnapshotTTL is how long the job list snapshot stays valid.
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"2m"`
}

// Sanitize applies guardrails to cache TTLs.
func (c *CacheConfig) Sanitize() {
	if c.StepTTL <= 0 {
		c.StepTTL = 30 * time.Minute
	}
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = 2 * time.Minute
	}
}
