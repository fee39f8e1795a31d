package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	if cfg.Project.Root == "" {
		return fmt.Errorf("project.root must not be empty")
	}
	for key, patterns := range map[string][]string{
		"project.namespaces":         cfg.Project.Namespaces,
		"project.include_namespaces": cfg.Project.IncludeNamespaces,
		"project.exclude_namespaces": cfg.Project.ExcludeNamespaces,
	} {
		if err := validateNamespaceGlobs(key, patterns); err != nil {
			return err
		}
	}
	for i, pattern := range cfg.Project.ExcludeFiles {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("project.exclude_files[%d] %q is not a valid glob", i, pattern)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.TypeMaxDepth < 1 {
		return fmt.Errorf("analysis.type_max_depth must be >= 1, got %d", cfg.Analysis.TypeMaxDepth)
	}
	if cfg.Analysis.CallMaxDepth < 1 {
		return fmt.Errorf("analysis.call_max_depth must be >= 1, got %d", cfg.Analysis.CallMaxDepth)
	}
	return validateNamespaceGlobs("analysis.boundary_patterns", cfg.Analysis.BoundaryPatterns)
}

func validateIndex(cfg *Config) error {
	switch cfg.Index.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("index.store must be one of: memory, sqlite; got %q", cfg.Index.Store)
	}
	return nil
}

func validateBridge(cfg *Config) error {
	if cfg.Bridge.StartupTimeout <= 0 || cfg.Bridge.RequestTimeout <= 0 {
		return fmt.Errorf("bridge timeouts must be positive")
	}
	return nil
}

func validateNamespaceGlobs(key string, patterns []string) error {
	for i, pattern := range patterns {
		if _, err := glob.Compile(pattern, '.'); err != nil {
			return fmt.Errorf("%s[%d] %q is not a valid glob: %w", key, i, pattern, err)
		}
	}
	return nil
}

// Validate runs every check without stopping at the first failure and also
// verifies the project root exists on disk.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateProject,
		validateAnalysis,
		validateIndex,
		validateBridge,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	root := strings.TrimSpace(cfg.Project.Root)
	if root != "" {
		info, err := os.Stat(root)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("project.root %q does not exist", root))
		case !info.IsDir():
			errs = append(errs, fmt.Errorf("project.root %q is not a directory", root))
		}
	}
	return errs
}
