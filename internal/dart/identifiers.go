package dart

import (
	"strings"
	"unicode"
)

// IsIdentByte reports whether b can appear inside a Dart identifier.
func IsIdentByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// ReplaceIdentifier replaces every whole-word occurrence of word in src.
// An occurrence preceded by '.' is a member access on some other receiver
// and is left alone. word may itself be qualified ("AppColors.primary").
func ReplaceIdentifier(src, word, repl string) (string, int) {
	return replaceIdentifier(src, word, repl, nil)
}

// ReplaceCodeIdentifier is ReplaceIdentifier restricted to code: occurrences
// inside comments and string literals are kept, interpolations are not.
func ReplaceCodeIdentifier(src, word, repl string) (string, int) {
	if word == "" || !strings.Contains(src, word) {
		return src, 0
	}
	return replaceIdentifier(src, word, repl, CodeMask(src))
}

func replaceIdentifier(src, word, repl string, code []bool) (string, int) {
	if word == "" {
		return src, 0
	}
	var b strings.Builder
	count := 0
	last := 0
	for i := 0; i+len(word) <= len(src); {
		idx := strings.Index(src[i:], word)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(word)
		if isBoundary(src, start, end) && (code == nil || code[start]) {
			if count == 0 {
				b.Grow(len(src))
			}
			b.WriteString(src[last:start])
			b.WriteString(repl)
			last = end
			count++
			i = end
			continue
		}
		i = start + 1
	}
	if count == 0 {
		return src, 0
	}
	b.WriteString(src[last:])
	return b.String(), count
}

// ContainsIdentifier reports whether word occurs in src as a whole word.
func ContainsIdentifier(src, word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i+len(word) <= len(src); {
		idx := strings.Index(src[i:], word)
		if idx < 0 {
			return false
		}
		start := i + idx
		if isBoundary(src, start, start+len(word)) {
			return true
		}
		i = start + 1
	}
	return false
}

func isBoundary(src string, start, end int) bool {
	if start > 0 {
		prev := src[start-1]
		if IsIdentByte(prev) || prev == '.' {
			return false
		}
	}
	if end < len(src) && IsIdentByte(src[end]) {
		return false
	}
	return true
}

// Pascal converts a snake_case or kebab-case name to PascalCase.
func Pascal(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
