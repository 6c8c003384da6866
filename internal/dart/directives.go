// Package dart holds the lexical helpers the pipeline needs to read and
// rewrite Dart sources without a full parser.
package dart

import (
	"regexp"
	"strings"
)

type DirectiveKind string

const (
	KindImport  DirectiveKind = "import"
	KindExport  DirectiveKind = "export"
	KindPart    DirectiveKind = "part"
	KindPartOf  DirectiveKind = "part of"
	KindLibrary DirectiveKind = "library"
)

// Directive is a top-level import/export/part/library statement, possibly
// spanning several lines (show/hide combinators).
type Directive struct {
	Kind      DirectiveKind
	URI       string
	Text      string
	StartLine int // 0-based, inclusive
	EndLine   int // 0-based, inclusive
}

var uriPattern = regexp.MustCompile(`['"]([^'"]+)['"]`)

// LineEnding returns "\r\n" when src uses CRLF line endings and "\n"
// otherwise.
func LineEnding(src string) string {
	if strings.Contains(src, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// Lines splits src on '\n' and drops a trailing '\r' from every line.
// Rejoin with LineEnding(src) to keep the original endings.
func Lines(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func directiveKind(trimmed string) (DirectiveKind, bool) {
	switch {
	case strings.HasPrefix(trimmed, "import "), strings.HasPrefix(trimmed, "import'"), strings.HasPrefix(trimmed, `import"`):
		return KindImport, true
	case strings.HasPrefix(trimmed, "export "):
		return KindExport, true
	case strings.HasPrefix(trimmed, "part of "):
		return KindPartOf, true
	case strings.HasPrefix(trimmed, "part "):
		return KindPart, true
	case strings.HasPrefix(trimmed, "library ") || trimmed == "library;":
		return KindLibrary, true
	}
	return "", false
}

// ParseDirectives returns the directives of src in source order.
func ParseDirectives(src string) []Directive {
	ds, _ := split(Lines(src), LineEnding(src))
	return ds
}

// SplitDirectives separates src into its directives and the remaining body
// with leading and trailing blank lines removed.
func SplitDirectives(src string) ([]Directive, string) {
	ds, body := split(Lines(src), LineEnding(src))
	return ds, strings.Trim(strings.Join(body, LineEnding(src)), "\r\n")
}

func split(lines []string, eol string) ([]Directive, []string) {
	var directives []Directive
	var body []string

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		kind, ok := directiveKind(trimmed)
		if !ok {
			body = append(body, lines[i])
			continue
		}

		start := i
		parts := []string{lines[i]}
		for !strings.Contains(stripLineComment(lines[i]), ";") && i+1 < len(lines) {
			i++
			parts = append(parts, lines[i])
		}
		text := strings.Join(parts, eol)
		d := Directive{Kind: kind, Text: text, StartLine: start, EndLine: i}
		if m := uriPattern.FindStringSubmatch(text); m != nil {
			d.URI = m[1]
		}
		directives = append(directives, d)
	}
	return directives, body
}

func stripLineComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		// Keep "//" that live inside a quoted URI such as 'package:x//y'.
		if strings.Count(line[:idx], "'")%2 == 0 && strings.Count(line[:idx], `"`)%2 == 0 {
			return line[:idx]
		}
	}
	return line
}

// IsImportLike reports whether d pulls another library into scope.
func (d Directive) IsImportLike() bool {
	return d.Kind == KindImport || d.Kind == KindExport
}

// Normalized returns the directive collapsed to a single line, which is the
// form used to deduplicate imports.
func (d Directive) Normalized() string {
	fields := strings.Fields(strings.ReplaceAll(d.Text, `"`, "'"))
	return strings.Join(fields, " ")
}

// PackageOf returns the package name of a "package:" URI, or "" otherwise.
func PackageOf(uri string) string {
	rest, ok := strings.CutPrefix(uri, "package:")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// IsRelative reports whether uri is a path relative to the importing file.
func IsRelative(uri string) bool {
	return uri != "" && !strings.Contains(uri, ":")
}

// IsSDK reports whether uri points into the Dart SDK.
func IsSDK(uri string) bool {
	return strings.HasPrefix(uri, "dart:")
}

// RemoveDirectives drops the inclusive [start, end] line ranges of the given
// directives from src.
func RemoveDirectives(src string, drop []Directive) string {
	if len(drop) == 0 {
		return src
	}
	lines := Lines(src)
	skip := make(map[int]bool)
	for _, d := range drop {
		for i := d.StartLine; i <= d.EndLine; i++ {
			skip[i] = true
		}
	}
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if !skip[i] {
			out = append(out, l)
		}
	}
	return strings.Join(out, LineEnding(src))
}

// ReplaceDirective replaces the lines of d in src with text.
func ReplaceDirective(src string, d Directive, text string) string {
	lines := Lines(src)
	if d.StartLine < 0 || d.EndLine >= len(lines) || d.StartLine > d.EndLine {
		return src
	}
	out := make([]string, 0, len(lines))
	out = append(out, lines[:d.StartLine]...)
	out = append(out, text)
	out = append(out, lines[d.EndLine+1:]...)
	return strings.Join(out, LineEnding(src))
}

// InsertImport adds `import '<uri>';` after the last import directive and any
// blank lines directly following it. It is a no-op when an import of the same
// URI is already present.
func InsertImport(src, uri string) (string, bool) {
	directives := ParseDirectives(src)
	lastImport := -1
	for _, d := range directives {
		if d.Kind == KindImport && d.URI == uri {
			return src, false
		}
		if d.IsImportLike() || d.Kind == KindLibrary {
			lastImport = d.EndLine
		}
	}

	stmt := "import '" + uri + "';"
	eol := LineEnding(src)
	lines := Lines(src)
	if lastImport < 0 {
		return stmt + eol + eol + src, true
	}

	at := lastImport + 1
	for at < len(lines) && strings.TrimSpace(lines[at]) == "" {
		at++
	}
	if at == len(lines) && lines[at-1] == "" {
		at--
	}
	out := make([]string, 0, len(lines)+2)
	out = append(out, lines[:at]...)
	out = append(out, stmt)
	if at < len(lines) {
		out = append(out, "")
	}
	out = append(out, lines[at:]...)
	return strings.Join(out, eol), true
}
