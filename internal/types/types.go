package types

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	IsMaster() bool
	GetAuthConfig() AuthConfig
	GetCORSConfig() CORSConfig
	GetPerformanceConfig() PerformanceConfig
	GetLogConfig() LogConfig
	GetDatabaseConfig() DatabaseConfig
	GetEffectiveServerConfig() ServerConfig
	GetVerificationConfig() VerificationConfig
	GetWageConfig() WageConfig
	GetRedisDSN() string
	Validate() error
	DisplayServerConfig()
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port                    int    `json:"port"`
	Host                    string `json:"host"`
	IsMaster                bool   `json:"is_master"`
	ReadTimeout             int    `json:"read_timeout"`
	WriteTimeout            int    `json:"write_timeout"`
	IdleTimeout             int    `json:"idle_timeout"`
	GracefulShutdownTimeout int    `json:"graceful_shutdown_timeout"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Key string `json:"key"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// PerformanceConfig represents performance configuration
type PerformanceConfig struct {
	MaxConcurrentRequests int `json:"max_concurrent_requests"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	EnableFile bool   `json:"enable_file"`
	FilePath   string `json:"file_path"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// VerificationConfig holds the process-wide knobs of the verification engine.
// Per-session policy (interval bounds, minimum verification count) lives on
// each work session; everything here applies to all sessions.
type VerificationConfig struct {
	// CheckinGraceMinutes is the window after session start during which no
	// verification is scheduled, giving workers time to check in.
	CheckinGraceMinutes int `json:"checkin_grace_minutes"`
	// LocationStalenessMinutes is the maximum age of a cached location sample
	// for it to be trusted at a verification instant.
	LocationStalenessMinutes int `json:"location_staleness_minutes"`
	// SessionCleanupBufferMinutes is how long after session end the scheduler
	// waits before cancelling leftover tasks and completing the session.
	SessionCleanupBufferMinutes int `json:"session_cleanup_buffer_minutes"`
	// LocationSampleTTLHours bounds how long a reported location stays cached.
	LocationSampleTTLHours int `json:"location_sample_ttl_hours"`
}

// WageConfig holds wage calculation defaults applied when a session does not
// override them.
type WageConfig struct {
	DefaultBaseDailyWage float64 `json:"default_base_daily_wage"`
}
