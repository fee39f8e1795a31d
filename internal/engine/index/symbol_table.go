package index

import (
	"codelens/internal/engine/parser"
	"sort"
	"sync"
)

// SymbolRecord is one type declaration as seen by simple-name lookups.
type SymbolRecord struct {
	Name          string
	QualifiedName string
	Package       string
	File          string
	Kind          parser.DeclarationKind
}

// SymbolLookupTable maps simple type names to their qualified declarations.
type SymbolLookupTable interface {
	Replace(path string, records []SymbolRecord) error
	Remove(path string) error
	Lookup(name string) []SymbolRecord
	Names() []string
	Close() error
}

func recordsFor(file *parser.File) []SymbolRecord {
	types := file.TypeDeclarations()
	out := make([]SymbolRecord, 0, len(types))
	for _, t := range types {
		out = append(out, SymbolRecord{
			Name:          t.Name,
			QualifiedName: t.QualifiedName,
			Package:       t.Package,
			File:          file.Path,
			Kind:          t.Kind,
		})
	}
	return out
}

type memorySymbolTable struct {
	mu     sync.RWMutex
	byName map[string][]SymbolRecord
	byFile map[string][]SymbolRecord
}

func NewMemorySymbolTable() SymbolLookupTable {
	return &memorySymbolTable{
		byName: make(map[string][]SymbolRecord),
		byFile: make(map[string][]SymbolRecord),
	}
}

func (t *memorySymbolTable) Replace(path string, records []SymbolRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(path)
	t.byFile[path] = records
	for _, rec := range records {
		list := append(t.byName[rec.Name], rec)
		sort.Slice(list, func(i, j int) bool { return list[i].QualifiedName < list[j].QualifiedName })
		t.byName[rec.Name] = list
	}
	return nil
}

func (t *memorySymbolTable) Remove(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(path)
	return nil
}

func (t *memorySymbolTable) removeLocked(path string) {
	for _, rec := range t.byFile[path] {
		list := t.byName[rec.Name]
		kept := list[:0]
		for _, existing := range list {
			if existing.File != path {
				kept = append(kept, existing)
			}
		}
		if len(kept) == 0 {
			delete(t.byName, rec.Name)
		} else {
			t.byName[rec.Name] = kept
		}
	}
	delete(t.byFile, path)
}

func (t *memorySymbolTable) Lookup(name string) []SymbolRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]SymbolRecord(nil), t.byName[name]...)
}

func (t *memorySymbolTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *memorySymbolTable) Close() error { return nil }
