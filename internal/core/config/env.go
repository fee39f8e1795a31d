package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CODELENS_[SECTION]_[KEY] (e.g., CODELENS_ANALYSIS_TYPE_MAX_DEPTH).
func ApplyEnvOverrides(cfg *Config) {
	// Project
	setEnvString(&cfg.Project.Root, "CODELENS_PROJECT_ROOT")
	setEnvList(&cfg.Project.Namespaces, "CODELENS_PROJECT_NAMESPACES")

	// Analysis
	setEnvInt(&cfg.Analysis.TypeMaxDepth, "CODELENS_ANALYSIS_TYPE_MAX_DEPTH")
	setEnvInt(&cfg.Analysis.CallMaxDepth, "CODELENS_ANALYSIS_CALL_MAX_DEPTH")
	setEnvList(&cfg.Analysis.BoundaryPatterns, "CODELENS_ANALYSIS_BOUNDARY_PATTERNS")

	// Index
	setEnvString(&cfg.Index.Store, "CODELENS_INDEX_STORE")
	setEnvInt(&cfg.Index.ParseWorkers, "CODELENS_INDEX_PARSE_WORKERS")

	// Engine
	setEnvFloat64(&cfg.Engine.RateLimit, "CODELENS_ENGINE_RATE_LIMIT")

	// Bridge
	setEnvString(&cfg.Bridge.Command, "CODELENS_BRIDGE_COMMAND")
	setEnvDuration(&cfg.Bridge.StartupTimeout, "CODELENS_BRIDGE_STARTUP_TIMEOUT")
	setEnvDuration(&cfg.Bridge.RequestTimeout, "CODELENS_BRIDGE_REQUEST_TIMEOUT")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "CODELENS_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "CODELENS_WATCH_DEBOUNCE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "CODELENS_OBSERVABILITY_METRICS_ADDRESS")
	setEnvBool(&cfg.Observability.EnableTracing, "CODELENS_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CODELENS_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = normalizeList(strings.Split(val, ","))
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
