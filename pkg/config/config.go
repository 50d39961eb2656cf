// Package config loads gateway configuration from YAML and environment
// variables. Environment variables override YAML; secrets come only from
// the environment.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for db2api-gateway.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // set at load time, not from config

	// Metadata store (PostgreSQL).
	Database DatabaseConfig `yaml:"database"`

	// Datasource resource cache settings.
	Datasource DatasourceConfig `yaml:"datasource"`

	// Token issuance settings.
	Token TokenConfig `yaml:"token"`

	// EncryptionSecret keys the cipher for stored passwords and client
	// secrets. A 32-byte base64 key or any passphrase. Server refuses to
	// start without it.
	EncryptionSecret string `yaml:"-" env:"ENCRYPTION_SECRET"`
}

// DatabaseConfig holds metadata-store connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"db2api"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // secret, not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"db2api_gateway"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// URL renders the metadata-store connection string.
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

// DatasourceConfig holds connection-resource cache settings for external
// databases.
type DatasourceConfig struct {
	// PoolMaxConns is the maximum number of connections per cached resource.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	// PoolMinConns is the minimum number of connections per cached resource.
	PoolMinConns int32 `yaml:"pool_min_conns" env:"DATASOURCE_POOL_MIN_CONNS" env-default:"1"`
	// TestTimeoutSeconds bounds connection tests and introspection dials.
	TestTimeoutSeconds int `yaml:"test_timeout_seconds" env:"DATASOURCE_TEST_TIMEOUT_SECONDS" env-default:"5"`
}

// TokenConfig holds bearer-token issuance settings.
type TokenConfig struct {
	// SigningSecret signs issued HS256 tokens. Server refuses to start
	// without it.
	SigningSecret string `yaml:"-" env:"JWT_SIGNING_SECRET"`
	// Issuer is the iss claim placed in issued tokens.
	Issuer string `yaml:"issuer" env:"TOKEN_ISSUER" env-default:"http://localhost:8080"`
	// ExpirySeconds is the issued-token lifetime.
	ExpirySeconds int `yaml:"expiry_seconds" env:"TOKEN_EXPIRY_SECONDS" env-default:"3600"`
	// Scope is the fixed scope claim granted to every client.
	Scope string `yaml:"scope" env:"TOKEN_SCOPE" env-default:"api:read api:write"`
}

// Load reads config.yaml (if present) and the environment, then validates.
func Load(version string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the secrets every deployment must provide.
func (c *Config) Validate() error {
	if c.EncryptionSecret == "" {
		return fmt.Errorf("ENCRYPTION_SECRET is required (generate with: openssl rand -base64 32)")
	}
	if c.Token.SigningSecret == "" {
		return fmt.Errorf("JWT_SIGNING_SECRET is required")
	}
	if c.Token.ExpirySeconds <= 0 {
		return fmt.Errorf("token expiry must be positive, got %d", c.Token.ExpirySeconds)
	}
	return nil
}
