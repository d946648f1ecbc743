// Package config loads runtime tuning knobs for the demo binary from
// environment variables, following the teacher's env-var-driven
// Load()/Default() convention.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxParallelTools    = 4
	defaultMaxStepsPerTurn     = 25
	defaultModelRequestRetries = 3
	defaultModelRequestTimeout = 30 * time.Second
	defaultToolTimeout         = 10 * time.Second
	defaultTurnTimeout         = 5 * time.Minute
	defaultSessionStorageDir   = "./sessions"
	defaultBypassToolConsent   = true
	defaultLogLevel            = slog.LevelInfo
)

// Config holds every environment-overridable runtime knob named in the
// event-loop driver's contract (bounded parallelism, step and time
// budgets, retry counts, and where sessions persist).
type Config struct {
	MaxParallelTools    int
	MaxStepsPerTurn     int
	ModelRequestRetries int
	ModelRequestTimeout time.Duration
	ToolTimeout         time.Duration
	TurnTimeout         time.Duration
	SessionStorageDir   string
	BypassToolConsent   bool
	LogLevel            slog.Level

	// AuthToken gates the demo HTTP surface behind a bearer token. Empty
	// disables the check, for local development.
	AuthToken string
}

// Default returns the built-in configuration before any environment
// override is applied.
func Default() Config {
	return Config{
		MaxParallelTools:    defaultMaxParallelTools,
		MaxStepsPerTurn:     defaultMaxStepsPerTurn,
		ModelRequestRetries: defaultModelRequestRetries,
		ModelRequestTimeout: defaultModelRequestTimeout,
		ToolTimeout:         defaultToolTimeout,
		TurnTimeout:         defaultTurnTimeout,
		SessionStorageDir:   defaultSessionStorageDir,
		BypassToolConsent:   defaultBypassToolConsent,
		LogLevel:            defaultLogLevel,
	}
}

// Load reads runtime configuration from environment variables, seeding
// unset knobs from Default and validating the result.
func Load() (Config, error) {
	cfg := Default()

	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_MAX_PARALLEL_TOOLS")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse DEEPAGENT_MAX_PARALLEL_TOOLS: %w", err)
		}
		cfg.MaxParallelTools = parsed
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_MAX_STEPS_PER_TURN")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse DEEPAGENT_MAX_STEPS_PER_TURN: %w", err)
		}
		cfg.MaxStepsPerTurn = parsed
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_MODEL_REQUEST_RETRIES")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse DEEPAGENT_MODEL_REQUEST_RETRIES: %w", err)
		}
		cfg.ModelRequestRetries = parsed
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_MODEL_REQUEST_TIMEOUT_MS")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse DEEPAGENT_MODEL_REQUEST_TIMEOUT_MS: %w", err)
		}
		cfg.ModelRequestTimeout = time.Duration(parsed) * time.Millisecond
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_TOOL_TIMEOUT_MS")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse DEEPAGENT_TOOL_TIMEOUT_MS: %w", err)
		}
		cfg.ToolTimeout = time.Duration(parsed) * time.Millisecond
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_TURN_TIMEOUT_MS")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse DEEPAGENT_TURN_TIMEOUT_MS: %w", err)
		}
		cfg.TurnTimeout = time.Duration(parsed) * time.Millisecond
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_SESSION_STORAGE_DIR")); raw != "" {
		cfg.SessionStorageDir = raw
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_BYPASS_TOOL_CONSENT")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse DEEPAGENT_BYPASS_TOOL_CONSENT: %w", err)
		}
		cfg.BypassToolConsent = parsed
	}
	if raw := strings.TrimSpace(os.Getenv("DEEPAGENT_LOG_LEVEL")); raw != "" {
		parsed, err := parseLogLevel(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = parsed
	}
	cfg.AuthToken = os.Getenv("DEEPAGENT_AUTH_TOKEN")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range knobs before the runtime starts.
func (c Config) Validate() error {
	if c.MaxParallelTools <= 0 {
		return errors.New("validate config: DEEPAGENT_MAX_PARALLEL_TOOLS must be > 0")
	}
	if c.MaxStepsPerTurn <= 0 {
		return errors.New("validate config: DEEPAGENT_MAX_STEPS_PER_TURN must be > 0")
	}
	if c.ModelRequestRetries < 0 {
		return errors.New("validate config: DEEPAGENT_MODEL_REQUEST_RETRIES must be >= 0")
	}
	if c.ModelRequestTimeout <= 0 {
		return errors.New("validate config: DEEPAGENT_MODEL_REQUEST_TIMEOUT_MS must be > 0")
	}
	if c.ToolTimeout <= 0 {
		return errors.New("validate config: DEEPAGENT_TOOL_TIMEOUT_MS must be > 0")
	}
	if c.TurnTimeout <= 0 {
		return errors.New("validate config: DEEPAGENT_TURN_TIMEOUT_MS must be > 0")
	}
	if strings.TrimSpace(c.SessionStorageDir) == "" {
		return errors.New("validate config: DEEPAGENT_SESSION_STORAGE_DIR must not be empty")
	}
	switch c.LogLevel {
	case slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError:
	default:
		return fmt.Errorf("validate config: unsupported DEEPAGENT_LOG_LEVEL %q", c.LogLevel.String())
	}
	return nil
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("parse DEEPAGENT_LOG_LEVEL: unsupported value %q", input)
	}
}
