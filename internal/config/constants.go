package config

import "time"

// Application constants
const (
	// Application Info
	AppName = "Lab Analyzer"

	// Analysis defaults, in hours
	DefaultStartTime     = 0.0
	DefaultEndTime       = 24.0
	DefaultControlMarker = "Control"
	DefaultSessionTTL    = 2 * time.Hour

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultRequestTimeout = 60 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// File Paths (relative to the base directory)
	DefaultDataDir      = "data"
	DefaultExportsDir   = "data/exports"
	DefaultLogsDir      = "logs"
	DefaultDatabaseFile = "experiments.db"
	DefaultLogFileName  = "labanalyzer.log"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Export file names
	RawDataCSVName  = "raw_data.csv"
	GrowthCSVName   = "growth_analysis.csv"
	WorkbookName    = "analysis.xlsx"
	ChartFileSuffix = ".png"
)

// URLs and Endpoints
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
