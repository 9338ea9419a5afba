// Package config provides environment-based configuration management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"shramsetu/internal/types"
	"shramsetu/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Constants for default configuration values
const (
	defaultHost                    = "0.0.0.0"
	defaultPort                    = 3001
	defaultReadTimeout             = 60
	defaultWriteTimeout            = 60
	defaultIdleTimeout             = 120
	defaultGracefulShutdownTimeout = 30
	defaultMaxConcurrentRequests   = 100

	defaultCheckinGraceMinutes         = 15
	defaultLocationStalenessMinutes    = 5
	defaultSessionCleanupBufferMinutes = 10
	defaultLocationSampleTTLHours      = 24
	defaultBaseDailyWage               = 350.0
)

// Manager implements types.ConfigManager backed by environment variables.
type Manager struct {
	serverConfig       types.ServerConfig
	authConfig         types.AuthConfig
	corsConfig         types.CORSConfig
	perfConfig         types.PerformanceConfig
	logConfig          types.LogConfig
	databaseConfig     types.DatabaseConfig
	verificationConfig types.VerificationConfig
	wageConfig         types.WageConfig
	redisDSN           string
}

// NewManager creates a configuration manager from the process environment.
// A .env file in the working directory is loaded first when present.
func NewManager() (types.ConfigManager, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment variables")
	}

	m := &Manager{
		serverConfig: types.ServerConfig{
			Host:                    utils.GetEnvOrDefault("HOST", defaultHost),
			Port:                    parseInteger(os.Getenv("PORT"), defaultPort),
			IsMaster:                !parseBoolean(os.Getenv("IS_SLAVE"), false),
			ReadTimeout:             parseInteger(os.Getenv("SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout:            parseInteger(os.Getenv("SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:             parseInteger(os.Getenv("SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
			GracefulShutdownTimeout: parseInteger(os.Getenv("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT"), defaultGracefulShutdownTimeout),
		},
		authConfig: types.AuthConfig{
			Key: os.Getenv("AUTH_KEY"),
		},
		corsConfig: types.CORSConfig{
			Enabled:          parseBoolean(os.Getenv("ENABLE_CORS"), true),
			AllowedOrigins:   parseList(os.Getenv("ALLOWED_ORIGINS"), []string{"*"}),
			AllowedMethods:   parseList(os.Getenv("ALLOWED_METHODS"), []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   parseList(os.Getenv("ALLOWED_HEADERS"), []string{"*"}),
			AllowCredentials: parseBoolean(os.Getenv("ALLOW_CREDENTIALS"), false),
		},
		perfConfig: types.PerformanceConfig{
			MaxConcurrentRequests: parseInteger(os.Getenv("MAX_CONCURRENT_REQUESTS"), defaultMaxConcurrentRequests),
		},
		logConfig: types.LogConfig{
			Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
			Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
			EnableFile: parseBoolean(os.Getenv("LOG_ENABLE_FILE"), false),
			FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
		},
		databaseConfig: types.DatabaseConfig{
			DSN: utils.GetEnvOrDefault("DATABASE_DSN", "./data/shramsetu.db"),
		},
		verificationConfig: types.VerificationConfig{
			CheckinGraceMinutes:         parseInteger(os.Getenv("CHECKIN_GRACE_MINUTES"), defaultCheckinGraceMinutes),
			LocationStalenessMinutes:    parseInteger(os.Getenv("LOCATION_STALENESS_MINUTES"), defaultLocationStalenessMinutes),
			SessionCleanupBufferMinutes: parseInteger(os.Getenv("SESSION_CLEANUP_BUFFER_MINUTES"), defaultSessionCleanupBufferMinutes),
			LocationSampleTTLHours:      parseInteger(os.Getenv("LOCATION_SAMPLE_TTL_HOURS"), defaultLocationSampleTTLHours),
		},
		wageConfig: types.WageConfig{
			DefaultBaseDailyWage: parseFloat(os.Getenv("DEFAULT_BASE_DAILY_WAGE"), defaultBaseDailyWage),
		},
		redisDSN: os.Getenv("REDIS_DSN"),
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Validate checks the configuration for invalid combinations.
func (m *Manager) Validate() error {
	var errors []string

	if m.serverConfig.Port < 1 || m.serverConfig.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port: %d", m.serverConfig.Port))
	}

	if m.authConfig.Key == "" {
		errors = append(errors, "AUTH_KEY is required")
	} else if len(m.authConfig.Key) < 16 {
		errors = append(errors, "AUTH_KEY must be at least 16 characters")
	}

	vc := m.verificationConfig
	if vc.CheckinGraceMinutes < 0 {
		errors = append(errors, "CHECKIN_GRACE_MINUTES cannot be negative")
	}
	if vc.LocationStalenessMinutes < 1 {
		errors = append(errors, "LOCATION_STALENESS_MINUTES must be at least 1")
	}
	if vc.SessionCleanupBufferMinutes < 0 {
		errors = append(errors, "SESSION_CLEANUP_BUFFER_MINUTES cannot be negative")
	}
	if m.wageConfig.DefaultBaseDailyWage < 0 {
		errors = append(errors, "DEFAULT_BASE_DAILY_WAGE cannot be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsMaster returns whether this node runs the scheduling services.
func (m *Manager) IsMaster() bool {
	return m.serverConfig.IsMaster
}

// GetAuthConfig returns the authentication configuration.
func (m *Manager) GetAuthConfig() types.AuthConfig {
	return m.authConfig
}

// GetCORSConfig returns the CORS configuration.
func (m *Manager) GetCORSConfig() types.CORSConfig {
	return m.corsConfig
}

// GetPerformanceConfig returns the performance configuration.
func (m *Manager) GetPerformanceConfig() types.PerformanceConfig {
	return m.perfConfig
}

// GetLogConfig returns the logging configuration.
func (m *Manager) GetLogConfig() types.LogConfig {
	return m.logConfig
}

// GetDatabaseConfig returns the database configuration.
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	return m.databaseConfig
}

// GetEffectiveServerConfig returns the server configuration.
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	return m.serverConfig
}

// GetVerificationConfig returns the verification engine configuration.
func (m *Manager) GetVerificationConfig() types.VerificationConfig {
	return m.verificationConfig
}

// GetWageConfig returns the wage calculation defaults.
func (m *Manager) GetWageConfig() types.WageConfig {
	return m.wageConfig
}

// GetRedisDSN returns the Redis DSN, empty when running on the memory store.
func (m *Manager) GetRedisDSN() string {
	return m.redisDSN
}

// DisplayServerConfig logs an overview of the effective configuration.
func (m *Manager) DisplayServerConfig() {
	storageType := "memory"
	if m.redisDSN != "" {
		storageType = "redis"
	}
	nodeRole := "master"
	if !m.serverConfig.IsMaster {
		nodeRole = "slave"
	}

	logrus.Info("")
	logrus.Info("======= Shramsetu Attendance Engine =======")
	logrus.Infof("  Listen:          %s:%d", m.serverConfig.Host, m.serverConfig.Port)
	logrus.Infof("  Node role:       %s", nodeRole)
	logrus.Infof("  Storage:         %s", storageType)
	logrus.Infof("  Database DSN:    %s", m.databaseConfig.DSN)
	logrus.Infof("  Check-in grace:  %dm", m.verificationConfig.CheckinGraceMinutes)
	logrus.Infof("  Staleness:       %dm", m.verificationConfig.LocationStalenessMinutes)
	logrus.Infof("  Cleanup buffer:  %dm", m.verificationConfig.SessionCleanupBufferMinutes)
	logrus.Info("===========================================")
	logrus.Info("")
}

// parseInteger parses an integer from a string with a fallback default.
func parseInteger(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return defaultValue
}

// parseFloat parses a float from a string with a fallback default.
func parseFloat(value string, defaultValue float64) float64 {
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return parsed
	}
	return defaultValue
}

// parseBoolean parses a boolean from a string with a fallback default.
func parseBoolean(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return defaultValue
}

// parseList splits a comma-separated string into a trimmed slice.
func parseList(value string, defaultValue []string) []string {
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
