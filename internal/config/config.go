package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverCouchDB = "couchdb"
	DriverSQLite  = "sqlite"

	CacheMemory  = "memory"
	CacheCouchDB = "couchdb"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	GeoDirectory GeoDirectoryConfig
	Cache        CacheConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SQLitePath string
}

// GeoDirectoryConfig configures the remote geo-directory. When Enabled is
// false places are stored locally only and never pushed or pulled.
type GeoDirectoryConfig struct {
	URL      string
	User     string
	Password string
	Enabled  bool
	Timeout  time.Duration
}

type CacheConfig struct {
	Backend string
	DBName  string
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func Load() (*Config, error) {
	godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("GEODIRECTORY_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEODIRECTORY_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverCouchDB),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5984"),
			User:       getEnv("DB_USER", "admin"),
			Password:   getEnv("DB_PASSWORD", "password"),
			Name:       getEnv("DB_NAME", "geodirectory"),
			SQLitePath: getEnv("SQLITE_PATH", "data/places.db"),
		},
		GeoDirectory: GeoDirectoryConfig{
			URL:      getEnv("GEODIRECTORY_URL", ""),
			User:     getEnv("GEODIRECTORY_USER", ""),
			Password: getEnv("GEODIRECTORY_PASSWORD", ""),
			Enabled:  getEnvAsBool("GEODIRECTORY_ENABLED", true),
			Timeout:  timeout,
		},
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", CacheMemory),
			DBName:  getEnv("CACHE_DB_NAME", "geodirectory_cache"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverCouchDB, DriverSQLite:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheCouchDB:
		if c.Database.Driver != DriverCouchDB {
			return fmt.Errorf("CACHE_BACKEND=%s requires DB_DRIVER=%s", CacheCouchDB, DriverCouchDB)
		}
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", c.Cache.Backend)
	}

	if c.GeoDirectory.Enabled && c.GeoDirectory.URL == "" {
		return fmt.Errorf("GEODIRECTORY_URL is required when GEODIRECTORY_ENABLED is true")
	}

	return nil
}

// CouchURL is the CouchDB server URL including credentials.
func (d DatabaseConfig) CouchURL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", d.User, d.Password, d.Host, d.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
