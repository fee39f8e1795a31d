// Package indextest builds throwaway indexed projects for tests.
package indextest

import (
	"codelens/internal/engine/index"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// WriteProject lays out files under a fresh temp dir and returns its path.
func WriteProject(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// Build writes files and indexes them, failing the test on any parse error.
func Build(t testing.TB, files map[string]string) *index.Index {
	t.Helper()
	ix, err := index.New(index.Options{Root: WriteProject(t, files)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	report, err := ix.IndexProject(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Failures) > 0 {
		t.Fatalf("fixture failed to parse: %+v", report.Failures)
	}
	return ix
}
