package index

import (
	"codelens/internal/engine/parser"
	"codelens/internal/shared/util"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// PathFilter decides which directories and files take part in indexing. It is
// shared with the project watcher so both see the same tree.
type PathFilter struct {
	root         string
	excludeDirs  []glob.Glob
	excludeFiles []string
	gitignore    *ignore.GitIgnore
}

func NewPathFilter(root string, excludeDirs, excludeFiles []string, respectGitignore bool) (*PathFilter, error) {
	f := &PathFilter{root: root}
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		f.excludeDirs = append(f.excludeDirs, g)
	}
	for _, pattern := range excludeFiles {
		pattern = util.NormalizePatternPath(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, doublestar.ErrBadPattern
		}
		f.excludeFiles = append(f.excludeFiles, pattern)
	}
	if respectGitignore {
		f.gitignore = loadGitignore(root)
	}
	return f, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// Rel returns the slash-separated path relative to the root, or the cleaned
// input when it lies outside the root.
func (f *PathFilter) Rel(path string) string {
	if filepath.IsAbs(path) && f.root != "" {
		if rel, err := filepath.Rel(f.root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return util.NormalizePatternPath(rel)
		}
	}
	return util.NormalizePatternPath(path)
}

// Abs maps an index key back to a filesystem path.
func (f *PathFilter) Abs(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(f.root, filepath.FromSlash(key))
}

// SkipDir reports whether a directory should not be descended into.
func (f *PathFilter) SkipDir(path string) bool {
	base := filepath.Base(path)
	if filepath.Clean(path) != filepath.Clean(f.root) && strings.HasPrefix(base, ".") {
		return true
	}
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	if f.gitignore != nil {
		if rel := f.Rel(path); rel != "" && f.gitignore.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}

// SkipFile reports whether a file is outside the indexed set.
func (f *PathFilter) SkipFile(path string) bool {
	if !parser.IsSourcePath(path) {
		return true
	}
	rel := f.Rel(path)
	for _, pattern := range f.excludeFiles {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(rel)); ok {
			return true
		}
	}
	if f.gitignore != nil && f.gitignore.MatchesPath(rel) {
		return true
	}
	return false
}
