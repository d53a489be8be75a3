package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"stashsmart/internal/config"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds database configuration
type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewConfig derives the database configuration from the application config
func NewConfig(cfg *config.Config) (*Config, error) {
	switch cfg.DBDriver {
	case DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (use postgres or mysql)", cfg.DBDriver)
	}

	return &Config{
		Driver:   cfg.DBDriver,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, nil
}

// DSN returns the driver-specific connection string used by GORM
func (c *Config) DSN() string {
	if c.Driver == DriverMySQL {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the database URL in the form golang-migrate expects
func (c *Config) MigrateURL() string {
	if c.Driver == DriverMySQL {
		return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// MigrationsSource returns the file source holding this driver's migrations
func (c *Config) MigrationsSource() string {
	return "file://migrations/" + c.Driver
}

// Dialector returns the GORM dialector for the configured driver
func (c *Config) Dialector() gorm.Dialector {
	if c.Driver == DriverMySQL {
		return mysql.Open(c.DSN())
	}
	return postgres.New(postgres.Config{
		DSN:                  c.DSN(),
		PreferSimpleProtocol: true,
	})
}
