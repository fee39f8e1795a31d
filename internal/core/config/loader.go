package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultFileName = "codelens.toml"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalizeProject(&cfg)
	normalizeAnalysis(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateProject(&cfg); err != nil {
		return nil, err
	}
	if err := validateAnalysis(&cfg); err != nil {
		return nil, err
	}
	if err := validateIndex(&cfg); err != nil {
		return nil, err
	}
	if err := validateBridge(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig
// otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if len(cfg.Project.ExcludeDirs) == 0 {
		cfg.Project.ExcludeDirs = []string{".git", "target", "build", "out", "node_modules", ".idea", ".gradle"}
	}

	if cfg.Analysis.TypeMaxDepth <= 0 {
		cfg.Analysis.TypeMaxDepth = 5
	}
	if cfg.Analysis.CallMaxDepth <= 0 {
		cfg.Analysis.CallMaxDepth = 5
	}
	if len(cfg.Analysis.BoundaryPatterns) == 0 {
		cfg.Analysis.BoundaryPatterns = []string{
			"java.**",
			"javax.**",
			"jakarta.**",
			"org.springframework.**",
			"org.slf4j.**",
			"lombok.**",
		}
	}
	if len(cfg.Analysis.CollectionTypes) == 0 {
		cfg.Analysis.CollectionTypes = []string{
			"List", "ArrayList", "LinkedList", "Set", "HashSet", "LinkedHashSet", "TreeSet", "SortedSet",
			"Collection", "Iterable", "Queue", "Deque", "ArrayDeque", "Stream", "Flux", "Mono", "Page", "Slice",
		}
	}
	if len(cfg.Analysis.MapTypes) == 0 {
		cfg.Analysis.MapTypes = []string{"Map", "HashMap", "LinkedHashMap", "TreeMap", "SortedMap", "ConcurrentHashMap", "ConcurrentMap"}
	}
	if len(cfg.Analysis.OptionalTypes) == 0 {
		cfg.Analysis.OptionalTypes = []string{"Optional", "ResponseEntity", "CompletableFuture", "Future"}
	}

	if len(cfg.Annotations.Validation) == 0 {
		cfg.Annotations.Validation = []string{
			"NotNull", "NotBlank", "NotEmpty", "Size", "Min", "Max", "Pattern", "Email",
			"Positive", "PositiveOrZero", "Negative", "Past", "Future", "Valid", "DecimalMin", "DecimalMax", "Digits",
		}
	}
	if len(cfg.Annotations.Persistence) == 0 {
		cfg.Annotations.Persistence = []string{
			"Entity", "Table", "Id", "GeneratedValue", "Column", "OneToMany", "ManyToOne", "OneToOne",
			"ManyToMany", "JoinColumn", "Embedded", "Embeddable", "Transient", "Version", "Enumerated",
		}
	}
	if len(cfg.Annotations.Serialization) == 0 {
		cfg.Annotations.Serialization = []string{"JsonProperty", "JsonIgnore", "JsonFormat", "JsonInclude", "JsonAlias", "SerializedName"}
	}
	if len(cfg.Annotations.Injection) == 0 {
		cfg.Annotations.Injection = []string{"Autowired", "Inject", "Resource", "Value", "Qualifier"}
	}
	if len(cfg.Annotations.Stereotypes) == 0 {
		cfg.Annotations.Stereotypes = map[string][]string{
			"controller": {"RestController", "Controller"},
			"service":    {"Service"},
			"repository": {"Repository"},
			"component":  {"Component", "Configuration"},
		}
	}

	if strings.TrimSpace(cfg.Index.Store) == "" {
		cfg.Index.Store = "memory"
	}
	if cfg.Index.ParseWorkers <= 0 {
		cfg.Index.ParseWorkers = 4
	}

	if cfg.Engine.RateBurst <= 0 {
		cfg.Engine.RateBurst = 16
	}
	if cfg.Engine.MaxLineBytes <= 0 {
		cfg.Engine.MaxLineBytes = 8 * 1024 * 1024
	}

	if cfg.Bridge.StartupTimeout <= 0 {
		cfg.Bridge.StartupTimeout = 60 * time.Second
	}
	if cfg.Bridge.RequestTimeout <= 0 {
		cfg.Bridge.RequestTimeout = 30 * time.Second
	}
	if cfg.Bridge.StopGrace <= 0 {
		cfg.Bridge.StopGrace = 2 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "codelens"
	}
}

func normalizeProject(cfg *Config) {
	cfg.Project.Root = strings.TrimSpace(cfg.Project.Root)
	cfg.Project.Namespaces = normalizeList(cfg.Project.Namespaces)
	cfg.Project.IncludeNamespaces = normalizeList(cfg.Project.IncludeNamespaces)
	cfg.Project.ExcludeNamespaces = normalizeList(cfg.Project.ExcludeNamespaces)
	cfg.Project.ExcludeDirs = normalizeList(cfg.Project.ExcludeDirs)
	cfg.Project.ExcludeFiles = normalizeList(cfg.Project.ExcludeFiles)
}

func normalizeAnalysis(cfg *Config) {
	cfg.Analysis.BoundaryPatterns = normalizeList(cfg.Analysis.BoundaryPatterns)
	cfg.Index.Store = strings.ToLower(strings.TrimSpace(cfg.Index.Store))
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
