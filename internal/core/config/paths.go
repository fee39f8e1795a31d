package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveProjectRoot returns the absolute project root. An explicit
// project.root is resolved against cwd; "." triggers marker detection upward
// from cwd.
func ResolveProjectRoot(cfg *Config, cwd string) (string, error) {
	if strings.TrimSpace(cwd) == "" {
		return "", fmt.Errorf("cwd must not be empty")
	}
	root := strings.TrimSpace(cfg.Project.Root)
	if root != "" && root != "." {
		return ResolveRelative(cwd, root), nil
	}
	return DetectProjectRoot([]string{cwd})
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFileName,
		"pom.xml",
		"build.gradle",
		"build.gradle.kts",
		"settings.gradle",
		".git",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
