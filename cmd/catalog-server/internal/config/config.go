// Package config provides configuration management for the catalog server.
// Settings come from an optional config file with environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/shelfstream/catalog/adapters/kafka"
)

// Config holds all configuration for the catalog server.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Kafka       kafka.Config      `mapstructure:"kafka"`
	GoogleBooks GoogleBooksConfig `mapstructure:"googleBooks"`
	Bootstrap   BootstrapConfig   `mapstructure:"bootstrap"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql, postgres, sqlite3
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Prefix   string `mapstructure:"prefix"` // Table prefix (default: "catalog_")
}

// GoogleBooksConfig holds the external book lookup configuration.
type GoogleBooksConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"apiKey"`
}

// BootstrapConfig holds the initial admin account created on first start.
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"adminUsername"`
	AdminPassword string `mapstructure:"adminPassword"`
}

// Load loads configuration from an optional file plus environment variables.
// Environment variables use the CATALOG_ prefix with underscores, e.g.
// CATALOG_DATABASE_PASSWORD overrides database.password.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "catalog")
	v.SetDefault("database.database", "catalog")
	v.SetDefault("database.prefix", "catalog_")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.securityProtocol", "PLAINTEXT")
	v.SetDefault("kafka.consumerGroup", "catalog-notifications")
	v.SetDefault("googleBooks.enabled", true)
	v.SetDefault("bootstrap.adminUsername", "admin")

	// Bind environment variables for sensitive data
	_ = v.BindEnv("database.password", "CATALOG_DATABASE_PASSWORD")
	_ = v.BindEnv("kafka.saslUsername", "KAFKA_SASL_USERNAME")
	_ = v.BindEnv("kafka.saslPassword", "KAFKA_SASL_PASSWORD")
	_ = v.BindEnv("googleBooks.apiKey", "GOOGLE_BOOKS_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Driver != "sqlite3" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("database password is required (set CATALOG_DATABASE_PASSWORD)")
	}

	return &cfg, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}
