package parser

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

const SourceExtension = ".java"

var (
	javaOnce sync.Once
	javaLang *sitter.Language
)

// JavaLanguage returns the process-wide Java grammar.
func JavaLanguage() *sitter.Language {
	javaOnce.Do(func() {
		javaLang = sitter.NewLanguage(tree_sitter_java.Language())
	})
	return javaLang
}

// IsSourcePath reports whether path names a Java source file.
func IsSourcePath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SourceExtension)
}
