package index

import (
	"codelens/internal/core/config"
	"codelens/internal/core/errors"
	"codelens/internal/engine/parser"
	"codelens/internal/shared/observability"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Root              string
	Namespaces        []string
	IncludeNamespaces []string
	ExcludeNamespaces []string
	ExcludeDirs       []string
	ExcludeFiles      []string
	RespectGitignore  bool
	Workers           int
	Store             string
	Logger            *slog.Logger
}

// OptionsFromConfig maps the [project] and [index] sections onto Options.
func OptionsFromConfig(cfg *config.Config, root string) Options {
	return Options{
		Root:              root,
		Namespaces:        cfg.Project.Namespaces,
		IncludeNamespaces: cfg.Project.IncludeNamespaces,
		ExcludeNamespaces: cfg.Project.ExcludeNamespaces,
		ExcludeDirs:       cfg.Project.ExcludeDirs,
		ExcludeFiles:      cfg.Project.ExcludeFiles,
		RespectGitignore:  cfg.Project.GitignoreEnabled(),
		Workers:           cfg.Index.ParseWorkers,
		Store:             cfg.Index.Store,
	}
}

type Failure struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Report struct {
	Files      int       `json:"files"`
	Indexed    int       `json:"indexed"`
	Unchanged  int       `json:"unchanged"`
	Filtered   int       `json:"filtered"`
	Removed    int       `json:"removed"`
	Failures   []Failure `json:"failures,omitempty"`
	DurationMS int64     `json:"durationMs"`
}

type Stats struct {
	Files        int       `json:"files"`
	Types        int       `json:"types"`
	Declarations int       `json:"declarations"`
	Failures     []Failure `json:"failures,omitempty"`
}

type entry struct {
	file *parser.File
	hash uint64
}

// Index is the Source Model Index: every parsed declaration keyed by
// qualified name, plus per-file import context for simple-name lookups.
type Index struct {
	opts    Options
	filter  *PathFilter
	parser  *parser.Parser
	symbols SymbolLookupTable
	logger  *slog.Logger

	namespaces []glob.Glob
	include    []glob.Glob
	exclude    []glob.Glob

	mu       sync.RWMutex
	files    map[string]*entry
	types    map[string]*parser.Declaration
	failures map[string]Failure
}

func New(opts Options) (*Index, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	opts.Root = root
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	filter, err := NewPathFilter(root, opts.ExcludeDirs, opts.ExcludeFiles, opts.RespectGitignore)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}

	ix := &Index{
		opts:     opts,
		filter:   filter,
		parser:   parser.NewParser(),
		logger:   logger,
		files:    make(map[string]*entry),
		types:    make(map[string]*parser.Declaration),
		failures: make(map[string]Failure),
	}
	for _, set := range []struct {
		patterns []string
		target   *[]glob.Glob
	}{
		{opts.Namespaces, &ix.namespaces},
		{opts.IncludeNamespaces, &ix.include},
		{opts.ExcludeNamespaces, &ix.exclude},
	} {
		for _, pattern := range set.patterns {
			g, err := glob.Compile(pattern, '.')
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid namespace pattern %q", pattern))
			}
			*set.target = append(*set.target, g)
		}
	}

	switch opts.Store {
	case "", "memory":
		ix.symbols = NewMemorySymbolTable()
	case "sqlite":
		table, err := OpenSQLiteSymbolTable()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "open symbol table")
		}
		ix.symbols = table
	default:
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("unknown index store %q", opts.Store))
	}
	return ix, nil
}

func (ix *Index) Close() error {
	return ix.symbols.Close()
}

func (ix *Index) Root() string { return ix.opts.Root }

func (ix *Index) Filter() *PathFilter { return ix.filter }

// Parser exposes the shared parser so self-contained analyses reuse its pool.
func (ix *Index) Parser() *parser.Parser { return ix.parser }

// Key normalizes a caller-supplied path to the index key form.
func (ix *Index) Key(path string) string { return ix.filter.Rel(path) }

// IndexFile parses path from disk and replaces its declarations.
func (ix *Index) IndexFile(path string) ([]*parser.Declaration, error) {
	key := ix.Key(path)
	content, err := os.ReadFile(ix.filter.Abs(key))
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source file"), errors.CtxPath, key)
	}
	return ix.IndexSource(key, content)
}

// IndexSource indexes in-memory content under path. Unchanged content is a
// no-op. A parse failure drops the file's previous declarations.
func (ix *Index) IndexSource(path string, content []byte) ([]*parser.Declaration, error) {
	key := ix.Key(path)
	hash := xxhash.Sum64(content)

	ix.mu.RLock()
	prev := ix.files[key]
	ix.mu.RUnlock()
	if prev != nil && prev.hash == hash {
		return prev.file.Declarations(), nil
	}

	file, err := ix.parse(key, content)
	if err != nil {
		ix.fail(key, err)
		return nil, err
	}
	if !ix.packageAllowed(file.Package) {
		ix.Remove(key)
		ix.logger.Debug("file outside configured namespaces", "path", key, "package", file.Package)
		return nil, nil
	}
	ix.commit(key, file, hash)
	return file.Declarations(), nil
}

func (ix *Index) parse(key string, content []byte) (*parser.File, error) {
	start := time.Now()
	file, err := ix.parser.ParseFile(key, content)
	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	return file, err
}

func (ix *Index) commit(key string, file *parser.File, hash uint64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(key)
	ix.files[key] = &entry{file: file, hash: hash}
	for _, t := range file.TypeDeclarations() {
		if existing, ok := ix.types[t.QualifiedName]; ok && existing.File != key {
			ix.logger.Warn("duplicate type declaration", "type", t.QualifiedName, "path", key, "previous", existing.File)
		}
		ix.types[t.QualifiedName] = t
	}
	delete(ix.failures, key)
	if err := ix.symbols.Replace(key, recordsFor(file)); err != nil {
		ix.logger.Error("symbol table update failed", "path", key, "error", err)
	}
	ix.publishGaugesLocked()
}

func (ix *Index) fail(key string, err error) {
	observability.ParseFailuresTotal.Inc()
	ix.logger.Warn("skipping unparsable file", "path", key, "error", err)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(key)
	ix.failures[key] = Failure{
		Path:    key,
		Kind:    string(errors.CodeOf(err)),
		Message: err.Error(),
	}
	ix.publishGaugesLocked()
}

// Remove drops every declaration contributed by path.
func (ix *Index) Remove(path string) {
	key := ix.Key(path)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(key)
	delete(ix.failures, key)
	ix.publishGaugesLocked()
}

func (ix *Index) removeLocked(key string) {
	prev, ok := ix.files[key]
	if !ok {
		return
	}
	for _, t := range prev.file.TypeDeclarations() {
		if current := ix.types[t.QualifiedName]; current != nil && current.File == key {
			delete(ix.types, t.QualifiedName)
		}
	}
	delete(ix.files, key)
	if err := ix.symbols.Remove(key); err != nil {
		ix.logger.Error("symbol table removal failed", "path", key, "error", err)
	}
}

func (ix *Index) publishGaugesLocked() {
	observability.IndexedFiles.Set(float64(len(ix.files)))
	observability.IndexedTypes.Set(float64(len(ix.types)))
}

func (ix *Index) packageAllowed(pkg string) bool {
	for _, g := range ix.exclude {
		if g.Match(pkg) {
			return false
		}
	}
	if len(ix.include) == 0 {
		return true
	}
	for _, g := range ix.include {
		if g.Match(pkg) {
			return true
		}
	}
	return false
}

type parseResult struct {
	key       string
	file      *parser.File
	hash      uint64
	err       error
	unchanged bool
}

// IndexProject discovers and indexes every source file under the root.
// Per-file failures are reported, never fatal.
func (ix *Index) IndexProject(ctx context.Context) (Report, error) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "index.IndexProject")
	defer span.End()

	keys, err := ix.Discover()
	if err != nil {
		return Report{}, errors.Wrap(err, errors.CodeInternal, "discover source files")
	}

	results := make([]parseResult, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Workers)
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(ix.filter.Abs(key))
			if err != nil {
				results[i] = parseResult{key: key, err: errors.Wrap(err, errors.CodeNotFound, "read source file")}
				return nil
			}
			hash := xxhash.Sum64(content)
			ix.mu.RLock()
			prev := ix.files[key]
			ix.mu.RUnlock()
			if prev != nil && prev.hash == hash {
				results[i] = parseResult{key: key, unchanged: true}
				return nil
			}
			file, err := ix.parse(key, content)
			results[i] = parseResult{key: key, file: file, hash: hash, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Files: len(keys)}
	seen := make(map[string]bool, len(keys))
	for _, res := range results {
		seen[res.key] = true
		switch {
		case res.unchanged:
			report.Unchanged++
		case res.err != nil:
			ix.fail(res.key, res.err)
			report.Failures = append(report.Failures, ix.failureFor(res.key))
		case !ix.packageAllowed(res.file.Package):
			ix.Remove(res.key)
			report.Filtered++
		default:
			ix.commit(res.key, res.file, res.hash)
			report.Indexed++
		}
	}

	ix.mu.RLock()
	var stale []string
	for key := range ix.files {
		if !seen[key] {
			stale = append(stale, key)
		}
	}
	ix.mu.RUnlock()
	for _, key := range stale {
		ix.Remove(key)
		report.Removed++
	}

	report.DurationMS = time.Since(start).Milliseconds()
	ix.logger.Info("project indexed",
		"root", ix.opts.Root,
		"files", report.Files,
		"indexed", report.Indexed,
		"unchanged", report.Unchanged,
		"failures", len(report.Failures),
		"duration", time.Since(start),
	)
	return report, nil
}

// Refresh re-indexes the given paths, removing the ones that no longer exist.
func (ix *Index) Refresh(ctx context.Context, paths []string) Report {
	start := time.Now()
	report := Report{Files: len(paths)}
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		key := ix.Key(path)
		if ix.filter.SkipFile(key) {
			report.Filtered++
			continue
		}
		if _, err := os.Stat(ix.filter.Abs(key)); os.IsNotExist(err) {
			ix.Remove(key)
			report.Removed++
			continue
		}
		decls, err := ix.IndexFile(key)
		switch {
		case err != nil:
			report.Failures = append(report.Failures, ix.failureFor(key))
		case decls == nil:
			report.Filtered++
		default:
			report.Indexed++
		}
	}
	report.DurationMS = time.Since(start).Milliseconds()
	return report
}

func (ix *Index) failureFor(key string) Failure {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if f, ok := ix.failures[key]; ok {
		return f
	}
	return Failure{Path: key, Kind: string(errors.CodeInternal)}
}

// Discover lists index keys for every source file under the root.
func (ix *Index) Discover() ([]string, error) {
	var keys []string
	err := filepath.WalkDir(ix.opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if ix.filter.SkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || ix.filter.SkipFile(path) {
			return nil
		}
		keys = append(keys, ix.filter.Rel(path))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// File returns the parsed compilation unit for path, or nil.
func (ix *Index) File(path string) *parser.File {
	key := ix.Key(path)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e, ok := ix.files[key]; ok {
		return e.file
	}
	return nil
}

// Class returns the type declaration with the exact qualified name.
func (ix *Index) Class(qualified string) *parser.Declaration {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.types[qualified]
}

// Classes returns every indexed type sorted by qualified name.
func (ix *Index) Classes() []*parser.Declaration {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*parser.Declaration, 0, len(ix.types))
	for _, t := range ix.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })
	return out
}

func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	stats := Stats{Files: len(ix.files), Types: len(ix.types)}
	for _, e := range ix.files {
		stats.Declarations += len(e.file.Declarations())
	}
	for _, key := range sortedFailureKeys(ix.failures) {
		stats.Failures = append(stats.Failures, ix.failures[key])
	}
	return stats
}

func sortedFailureKeys(m map[string]Failure) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
