package annotations

import (
	"codelens/internal/core/config"
	"codelens/internal/engine/parser"
	"sort"
	"strings"
)

// Category tags an annotation by the framework concern it belongs to.
type Category string

const (
	Validation    Category = "validation"
	Persistence   Category = "persistence"
	Serialization Category = "serialization"
	Injection     Category = "injection"
)

// Info is an annotation as reported to callers.
type Info struct {
	Name      string     `json:"name"`
	Arguments string     `json:"arguments,omitempty"`
	Tags      []Category `json:"tags,omitempty"`
}

type Classifier struct {
	categories  map[string][]Category
	stereotypes map[string]string
}

func NewClassifier(cfg config.Annotations) *Classifier {
	c := &Classifier{
		categories:  make(map[string][]Category),
		stereotypes: make(map[string]string),
	}
	for _, set := range []struct {
		category Category
		names    []string
	}{
		{Validation, cfg.Validation},
		{Persistence, cfg.Persistence},
		{Serialization, cfg.Serialization},
		{Injection, cfg.Injection},
	} {
		for _, name := range set.names {
			name = strings.TrimPrefix(strings.TrimSpace(name), "@")
			c.categories[name] = append(c.categories[name], set.category)
		}
	}
	// Sorted so an annotation listed under two stereotypes always maps the same way.
	for _, stereotype := range sortedKeys(cfg.Stereotypes) {
		for _, name := range cfg.Stereotypes[stereotype] {
			name = strings.TrimPrefix(strings.TrimSpace(name), "@")
			if _, taken := c.stereotypes[name]; !taken {
				c.stereotypes[name] = stereotype
			}
		}
	}
	return c
}

// Tags returns the categories of an annotation given by simple or qualified
// name.
func (c *Classifier) Tags(name string) []Category {
	return c.categories[parser.SimpleName(strings.TrimPrefix(name, "@"))]
}

// Describe converts parsed annotations into reported form.
func (c *Classifier) Describe(list []parser.Annotation) []Info {
	if len(list) == 0 {
		return nil
	}
	out := make([]Info, 0, len(list))
	for _, a := range list {
		out = append(out, Info{Name: a.Name, Arguments: a.Args, Tags: c.Tags(a.Name)})
	}
	return out
}

// Stereotype returns the framework role of a type declaration, or "" when it
// carries no stereotype annotation.
func (c *Classifier) Stereotype(decl *parser.Declaration) string {
	if decl == nil {
		return ""
	}
	for _, a := range decl.Annotations {
		if s, ok := c.stereotypes[parser.SimpleName(a.Name)]; ok {
			return s
		}
	}
	return ""
}

// Has reports whether any annotation of decl falls into category.
func (c *Classifier) Has(decl *parser.Declaration, category Category) bool {
	for _, a := range decl.Annotations {
		for _, tag := range c.Tags(a.Name) {
			if tag == category {
				return true
			}
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
