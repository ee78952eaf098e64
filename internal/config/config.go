package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "LAB"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`

	// APIKeys maps key to client name. When non-empty, mutating requests
	// must carry one of them in X-API-Key.
	APIKeys map[string]string `yaml:"api_keys" envconfig:"API_KEYS"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/labanalyzer.log"`
}

// DatabaseConfig contains the experiment database settings
type DatabaseConfig struct {
	File         string        `yaml:"file" envconfig:"FILE" default:"data/experiments.db"`
	BusyRetries  int           `yaml:"busy_retries" envconfig:"BUSY_RETRIES" default:"3"`
	RetryBackoff time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF" default:"100ms"`
}

// AnalysisConfig contains the defaults of an analysis session
type AnalysisConfig struct {
	StartTime     float64       `yaml:"start_time" envconfig:"START_TIME" default:"0"`
	EndTime       float64       `yaml:"end_time" envconfig:"END_TIME" default:"24"`
	ControlMarker string        `yaml:"control_marker" envconfig:"CONTROL_MARKER" default:"Control"`
	SessionTTL    time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL" default:"2h"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR" default:"data/exports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and the first config
// file found in the usual locations
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom loads configuration from environment variables merged over the
// YAML file at path. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path != "" {
		fileConfig, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg, explicitEnv())
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// explicitEnv returns the set of LAB_* variables present in the environment
func explicitEnv() map[string]bool {
	set := make(map[string]bool)
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix+"_") {
			set[name] = true
		}
	}
	return set
}

// mergeConfigs overlays the file config on the env config. A value set
// explicitly in the environment wins; otherwise a non-zero file value
// replaces the envconfig default.
func mergeConfigs(fileConfig, envConfig Config, env map[string]bool) Config {
	pick := func(name string) bool {
		return !env[EnvPrefix+"_"+name]
	}

	// Server config
	if pick("SERVER_PORT") && fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if pick("SERVER_READ_TIMEOUT") && fileConfig.Server.ReadTimeout != 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if pick("SERVER_WRITE_TIMEOUT") && fileConfig.Server.WriteTimeout != 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if pick("SERVER_IDLE_TIMEOUT") && fileConfig.Server.IdleTimeout != 0 {
		envConfig.Server.IdleTimeout = fileConfig.Server.IdleTimeout
	}
	if pick("SERVER_SHUTDOWN_TIMEOUT") && fileConfig.Server.ShutdownTimeout != 0 {
		envConfig.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout
	}
	if pick("SERVER_REQUEST_TIMEOUT") && fileConfig.Server.RequestTimeout != 0 {
		envConfig.Server.RequestTimeout = fileConfig.Server.RequestTimeout
	}

	// Security config
	if pick("SECURITY_ALLOWED_ORIGINS") && len(fileConfig.Security.AllowedOrigins) > 0 {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if pick("SECURITY_RATE_LIMIT_RPS") && fileConfig.Security.RateLimit.RPS != 0 {
		envConfig.Security.RateLimit.RPS = fileConfig.Security.RateLimit.RPS
	}
	if pick("SECURITY_RATE_LIMIT_BURST") && fileConfig.Security.RateLimit.Burst != 0 {
		envConfig.Security.RateLimit.Burst = fileConfig.Security.RateLimit.Burst
	}
	if pick("SECURITY_API_KEYS") && len(fileConfig.Security.APIKeys) > 0 {
		envConfig.Security.APIKeys = fileConfig.Security.APIKeys
	}

	// Logging config
	if pick("LOGGING_LEVEL") && fileConfig.Logging.Level != "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if pick("LOGGING_OUTPUT") && fileConfig.Logging.Output != "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if pick("LOGGING_FILE_PATH") && fileConfig.Logging.FilePath != "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	// Database config
	if pick("DATABASE_FILE") && fileConfig.Database.File != "" {
		envConfig.Database.File = fileConfig.Database.File
	}
	if pick("DATABASE_BUSY_RETRIES") && fileConfig.Database.BusyRetries != 0 {
		envConfig.Database.BusyRetries = fileConfig.Database.BusyRetries
	}
	if pick("DATABASE_RETRY_BACKOFF") && fileConfig.Database.RetryBackoff != 0 {
		envConfig.Database.RetryBackoff = fileConfig.Database.RetryBackoff
	}

	// Analysis config. Zero is a legal start time, so the file value always
	// applies unless the environment names it.
	if pick("ANALYSIS_START_TIME") {
		envConfig.Analysis.StartTime = fileConfig.Analysis.StartTime
	}
	if pick("ANALYSIS_END_TIME") && fileConfig.Analysis.EndTime != 0 {
		envConfig.Analysis.EndTime = fileConfig.Analysis.EndTime
	}
	if pick("ANALYSIS_CONTROL_MARKER") && fileConfig.Analysis.ControlMarker != "" {
		envConfig.Analysis.ControlMarker = fileConfig.Analysis.ControlMarker
	}
	if pick("ANALYSIS_SESSION_TTL") && fileConfig.Analysis.SessionTTL != 0 {
		envConfig.Analysis.SessionTTL = fileConfig.Analysis.SessionTTL
	}

	// Paths config
	if pick("PATHS_BASE_DIR") && fileConfig.Paths.BaseDir != "" {
		envConfig.Paths.BaseDir = fileConfig.Paths.BaseDir
	}
	if pick("PATHS_DATA_DIR") && fileConfig.Paths.DataDir != "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if pick("PATHS_EXPORTS_DIR") && fileConfig.Paths.ExportsDir != "" {
		envConfig.Paths.ExportsDir = fileConfig.Paths.ExportsDir
	}
	if pick("PATHS_LOGS_DIR") && fileConfig.Paths.LogsDir != "" {
		envConfig.Paths.LogsDir = fileConfig.Paths.LogsDir
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when enabled")
	}

	if c.Analysis.StartTime < 0 || c.Analysis.EndTime <= c.Analysis.StartTime {
		return fmt.Errorf("invalid analysis window: start=%g end=%g", c.Analysis.StartTime, c.Analysis.EndTime)
	}

	if strings.TrimSpace(c.Analysis.ControlMarker) == "" {
		return fmt.Errorf("analysis control marker must not be empty")
	}

	if c.Database.File == "" {
		return fmt.Errorf("database file must be set")
	}

	if c.Database.BusyRetries < 0 {
		return fmt.Errorf("database busy retries must not be negative")
	}

	// Logs are always JSON
	c.Logging.Format = "json"

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, DefaultLogFileName)
	}

	return nil
}

// findConfigFile returns the first config file found in the usual locations
func findConfigFile() string {
	locations := []string{
		"labanalyzer.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultRequestTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "console",
			FilePath: filepath.Join(DefaultLogsDir, DefaultLogFileName),
		},
		Database: DatabaseConfig{
			File:         filepath.Join(DefaultDataDir, DefaultDatabaseFile),
			BusyRetries:  3,
			RetryBackoff: 100 * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			StartTime:     DefaultStartTime,
			EndTime:       DefaultEndTime,
			ControlMarker: DefaultControlMarker,
			SessionTTL:    DefaultSessionTTL,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ExportsDir: DefaultExportsDir,
			LogsDir:    DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
	}
}
