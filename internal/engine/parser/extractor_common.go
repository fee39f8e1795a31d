package parser

import (
	"strings"
)

// NormalizeTypeText strips whitespace and type annotations from a type as
// written, wherever they appear: List<@Valid Item> becomes List<Item>.
func NormalizeTypeText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); {
		c := value[i]
		switch c {
		case ' ', '\t', '\n', '\r':
			i++
		case '@':
			i = skipAnnotation(value, i)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// skipAnnotation returns the index just past the annotation starting at
// value[at], including a parenthesized argument list.
func skipAnnotation(value string, at int) int {
	i := at + 1
	for i < len(value) && (isIdentByte(value[i]) || value[i] == '.') {
		i++
	}
	j := i
	for j < len(value) && isSpaceByte(value[j]) {
		j++
	}
	if j >= len(value) || value[j] != '(' {
		return i
	}
	depth := 0
	var quote byte
	for ; j < len(value); j++ {
		c := value[j]
		switch {
		case quote != 0:
			if c == '\\' {
				j++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(value)
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// EraseGenerics drops type arguments: Map<K,List<V>>[] becomes Map[].
func EraseGenerics(value string) string {
	if !strings.Contains(value, "<") {
		return value
	}
	var b strings.Builder
	depth := 0
	for _, r := range value {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SimpleName returns the last dot-separated segment.
func SimpleName(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// PackageOf returns everything before the last dot.
func PackageOf(qualified string) string {
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		return qualified[:idx]
	}
	return ""
}

// MethodSignature renders a member key like save(Order,List).
func MethodSignature(name string, params []*Declaration) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, SimpleName(EraseGenerics(p.TypeText)))
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// JoinQualified joins a package or outer name with a simple name.
func JoinQualified(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func trimParens(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		value = value[1 : len(value)-1]
	}
	return strings.TrimSpace(value)
}

func visibilityOf(keywords map[string]bool, implicitPublic bool) string {
	switch {
	case keywords["public"]:
		return "public"
	case keywords["protected"]:
		return "protected"
	case keywords["private"]:
		return "private"
	case implicitPublic:
		return "public"
	}
	return "package"
}
