package extractor

import (
	"strings"

	"brickgen/internal/dart"
)

// NormalizeExpr turns a raw right-hand side into a canonical single-line
// form: line comments removed, whitespace collapsed, no padding inside
// brackets, and no trailing comma before a closing bracket. String literals
// are copied untouched.
func NormalizeExpr(raw string) string {
	var b strings.Builder
	pendingSpace := false
	flushSpace := func(next byte) {
		if !pendingSpace {
			return
		}
		pendingSpace = false
		if b.Len() == 0 {
			return
		}
		prev := b.String()[b.Len()-1]
		if prev == '(' || prev == '[' || next == ')' || next == ']' || next == ',' {
			return
		}
		b.WriteByte(' ')
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\'' || c == '"':
			flushSpace(c)
			end := dart.SkipString(raw, i)
			b.WriteString(raw[i:end])
			i = end - 1
		case c == '/' && i+1 < len(raw) && raw[i+1] == '/':
			for i < len(raw) && raw[i] != '\n' {
				i++
			}
			pendingSpace = true
		case c == '/' && i+1 < len(raw) && raw[i+1] == '*':
			end := strings.Index(raw[i+2:], "*/")
			if end < 0 {
				i = len(raw)
			} else {
				i += end + 3
			}
			pendingSpace = true
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pendingSpace = true
		case c == ')' || c == ']':
			pendingSpace = false
			out := b.String()
			trimmed := strings.TrimRight(out, " ")
			if strings.HasSuffix(trimmed, ",") {
				trimmed = strings.TrimSuffix(trimmed, ",")
			}
			if len(trimmed) != len(out) {
				b.Reset()
				b.WriteString(trimmed)
			}
			b.WriteByte(c)
		default:
			flushSpace(c)
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}
