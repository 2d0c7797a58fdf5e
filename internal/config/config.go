// Package config provides configuration management for heimdex-cut.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort              = 8790
	DefaultLogLevel          = "info"
	DefaultDataDir           = ".heimdex-cut"
	DefaultSuggestionTTL     = 300  // seconds
	DefaultMergeEpsilon      = 0.1  // seconds
	DefaultHistoryLimit      = 100  // undo entries
	DefaultAutosaveDelay     = 1500 // milliseconds
	DefaultPipelinesModule   = "heimdex_media_pipelines"
	DefaultTranscribeTimeout = 1800 // seconds

	// Environment variable names
	EnvPort              = "HEIMDEX_CUT_PORT"
	EnvLogLevel          = "HEIMDEX_CUT_LOG_LEVEL"
	EnvDataDir           = "HEIMDEX_CUT_DATA_DIR"
	EnvRedisURL          = "HEIMDEX_CUT_REDIS_URL"
	EnvSuggestionTTL     = "HEIMDEX_CUT_SUGGESTION_TTL"
	EnvMergeEpsilon      = "HEIMDEX_CUT_MERGE_EPSILON"
	EnvHistoryLimit      = "HEIMDEX_CUT_HISTORY_LIMIT"
	EnvAutosaveDelay     = "HEIMDEX_CUT_AUTOSAVE_DELAY"
	EnvAuthToken         = "HEIMDEX_CUT_AUTH_TOKEN"
	EnvPipelinesEnabled  = "HEIMDEX_CUT_PIPELINES_ENABLED"
	EnvPipelinesPython   = "HEIMDEX_CUT_PIPELINES_PYTHON"
	EnvPipelinesModule   = "HEIMDEX_CUT_PIPELINES_MODULE"
	EnvTranscribeTimeout = "HEIMDEX_CUT_TRANSCRIBE_TIMEOUT"

	// Database filename
	DBFilename = "heimdex-cut.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	RedisURL() string
	SuggestionTTL() time.Duration
	MergeEpsilon() float64
	HistoryLimit() int
	AutosaveDelay() time.Duration
	AuthToken() string
	PipelinesEnabled() bool
	PipelinesPython() string
	PipelinesModule() string
	TranscribeTimeout() time.Duration
	ArtifactsDir() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port          int
	logLevel      string
	dataDir       string
	redisURL      string
	suggestionTTL time.Duration
	mergeEpsilon  float64
	historyLimit  int
	autosaveDelay time.Duration
	authToken     string

	pipelinesEnabled  bool
	pipelinesPython   string
	pipelinesModule   string
	transcribeTimeout time.Duration
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:          DefaultPort,
		logLevel:      DefaultLogLevel,
		dataDir:       defaultDataDir(),
		suggestionTTL: DefaultSuggestionTTL * time.Second,
		mergeEpsilon:  DefaultMergeEpsilon,
		historyLimit:  DefaultHistoryLimit,
		autosaveDelay: DefaultAutosaveDelay * time.Millisecond,

		pipelinesEnabled:  true,
		pipelinesModule:   DefaultPipelinesModule,
		transcribeTimeout: DefaultTranscribeTimeout * time.Second,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.redisURL = os.Getenv(EnvRedisURL)
	cfg.authToken = os.Getenv(EnvAuthToken)

	if v := os.Getenv(EnvSuggestionTTL); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvSuggestionTTL)
		}
		cfg.suggestionTTL = time.Duration(secs) * time.Second
	}

	if v := os.Getenv(EnvMergeEpsilon); v != "" {
		eps, err := strconv.ParseFloat(v, 64)
		if err != nil || eps <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvMergeEpsilon)
		}
		cfg.mergeEpsilon = eps
	}

	if v := os.Getenv(EnvHistoryLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvHistoryLimit)
		}
		cfg.historyLimit = n
	}

	if v := os.Getenv(EnvAutosaveDelay); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid %s: must be a non-negative number of milliseconds", EnvAutosaveDelay)
		}
		cfg.autosaveDelay = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv(EnvPipelinesEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPipelinesEnabled, err)
		}
		cfg.pipelinesEnabled = enabled
	}
	cfg.pipelinesPython = os.Getenv(EnvPipelinesPython)
	if v := os.Getenv(EnvPipelinesModule); v != "" {
		cfg.pipelinesModule = v
	}
	if v := os.Getenv(EnvTranscribeTimeout); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid %s: must be a positive number of seconds", EnvTranscribeTimeout)
		}
		cfg.transcribeTimeout = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir is where exports land when a request names no directory.
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// RedisURL is empty when pending suggestions are kept in memory.
func (c *EnvConfig) RedisURL() string {
	return c.redisURL
}

func (c *EnvConfig) SuggestionTTL() time.Duration {
	return c.suggestionTTL
}

// MergeEpsilon is the gap below which adjacent skip intervals are joined.
func (c *EnvConfig) MergeEpsilon() float64 {
	return c.mergeEpsilon
}

func (c *EnvConfig) HistoryLimit() int {
	return c.historyLimit
}

func (c *EnvConfig) AutosaveDelay() time.Duration {
	return c.autosaveDelay
}

// AuthToken seeds the API bearer token on first start. Empty means a
// random token is generated.
func (c *EnvConfig) AuthToken() string {
	return c.authToken
}

// PipelinesEnabled turns on POST /projects/{id}/transcribe when a python
// interpreter can be found.
func (c *EnvConfig) PipelinesEnabled() bool {
	return c.pipelinesEnabled
}

// PipelinesPython is empty when python3 or python should be found on PATH.
func (c *EnvConfig) PipelinesPython() string {
	return c.pipelinesPython
}

func (c *EnvConfig) PipelinesModule() string {
	return c.pipelinesModule
}

func (c *EnvConfig) TranscribeTimeout() time.Duration {
	return c.transcribeTimeout
}

// ArtifactsDir holds speech pipeline output.
func (c *EnvConfig) ArtifactsDir() string {
	return filepath.Join(c.dataDir, "artifacts")
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
