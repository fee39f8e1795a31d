package config

import (
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Analysis      Analysis      `toml:"analysis"`
	Annotations   Annotations   `toml:"annotations"`
	Index         Index         `toml:"index"`
	Engine        Engine        `toml:"engine"`
	Bridge        Bridge        `toml:"bridge"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Project struct {
	Root string `toml:"root"`
	// Namespaces are package globs searched for simple type names after
	// imports and the same package (e.g. "com.acme.**").
	Namespaces        []string `toml:"namespaces"`
	IncludeNamespaces []string `toml:"include_namespaces"`
	ExcludeNamespaces []string `toml:"exclude_namespaces"`
	ExcludeDirs       []string `toml:"exclude_dirs"`
	ExcludeFiles      []string `toml:"exclude_files"`
	RespectGitignore  *bool    `toml:"respect_gitignore"`
}

type Analysis struct {
	TypeMaxDepth     int      `toml:"type_max_depth"`
	CallMaxDepth     int      `toml:"call_max_depth"`
	BoundaryPatterns []string `toml:"boundary_patterns"`
	CollectionTypes  []string `toml:"collection_types"`
	MapTypes         []string `toml:"map_types"`
	OptionalTypes    []string `toml:"optional_types"`
}

// Annotations holds the name sets used to classify annotations at read time.
// Names are simple annotation names without the leading '@'.
type Annotations struct {
	Validation    []string            `toml:"validation"`
	Persistence   []string            `toml:"persistence"`
	Serialization []string            `toml:"serialization"`
	Injection     []string            `toml:"injection"`
	Stereotypes   map[string][]string `toml:"stereotypes"`
}

type Index struct {
	Store        string `toml:"store"` // memory or sqlite
	ParseWorkers int    `toml:"parse_workers"`
}

type Engine struct {
	RateLimit    float64 `toml:"rate_limit"` // requests per second, 0 disables
	RateBurst    int     `toml:"rate_burst"`
	MaxLineBytes int     `toml:"max_line_bytes"`
	// Operations restricts the served operations. Empty serves all of them.
	Operations []string `toml:"operations"`
}

type Bridge struct {
	Command        string        `toml:"command"`
	Args           []string      `toml:"args"`
	StartupTimeout time.Duration `toml:"startup_timeout"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	StopGrace      time.Duration `toml:"stop_grace"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	EnableTracing  bool   `toml:"enable_tracing"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

// DefaultConfig returns a configuration with every default applied, used when
// no config file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalizeProject(cfg)
	return cfg
}

// GitignoreEnabled reports whether discovery honours .gitignore files.
func (p Project) GitignoreEnabled() bool {
	return p.RespectGitignore == nil || *p.RespectGitignore
}
