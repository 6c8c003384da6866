package dart

import "strings"

// SkipString returns the index just past the string literal whose opening
// quote is at s[i], handling triple quotes, raw strings and backslash
// escapes. A literal left open runs to the end of its line (or of s for
// triple quotes).
func SkipString(s string, i int) int {
	q := s[i]
	raw := i > 0 && s[i-1] == 'r'
	if i+2 < len(s) && s[i+1] == q && s[i+2] == q {
		end := strings.Index(s[i+3:], strings.Repeat(string(q), 3))
		if end < 0 {
			return len(s)
		}
		return i + 3 + end + 3
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if !raw {
				j++
			}
		case q:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(s)
}

// IsStringLiteral reports whether s is exactly one quoted literal without
// interpolation.
func IsStringLiteral(s string) bool {
	start := 0
	if strings.HasPrefix(s, "r") {
		start = 1
	}
	if len(s) < start+2 || (s[start] != '\'' && s[start] != '"') {
		return false
	}
	if SkipString(s, start) != len(s) {
		return false
	}
	if start == 0 && strings.Contains(s, "$") {
		return strings.Count(s, `\$`) == strings.Count(s, "$")
	}
	return true
}

// CodeMask marks the bytes of src that are code, as opposed to comments and
// string literal text. Expressions inside ${...} interpolation of non-raw
// strings are code.
func CodeMask(src string) []bool {
	mask := make([]bool, len(src))
	markCode(src, 0, false, mask)
	return mask
}

// markCode marks code starting at i. With inBrace set it stops at the '}'
// closing an interpolation and returns its index.
func markCode(s string, i int, inBrace bool, mask []bool) int {
	depth := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i = skipBlockComment(s, i)
		case c == '\'' || c == '"':
			i = markString(s, i, mask)
		default:
			if inBrace {
				if c == '{' {
					depth++
				} else if c == '}' {
					if depth == 0 {
						return i
					}
					depth--
				}
			}
			mask[i] = true
			i++
		}
	}
	return i
}

// skipBlockComment returns the index just past the (possibly nested) block
// comment opening at s[i].
func skipBlockComment(s string, i int) int {
	depth := 0
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return i
}

// markString returns the index just past the literal opening at s[i],
// marking the interpolated expressions it contains.
func markString(s string, i int, mask []bool) int {
	q := s[i]
	raw := i > 0 && s[i-1] == 'r' && (i < 2 || !IsIdentByte(s[i-2]))
	triple := i+2 < len(s) && s[i+1] == q && s[i+2] == q
	j := i + 1
	if triple {
		j = i + 3
	}
	for j < len(s) {
		switch {
		case !raw && s[j] == '\\':
			j += 2
		case s[j] == q && (!triple || strings.HasPrefix(s[j:], strings.Repeat(string(q), 3))):
			if triple {
				return j + 3
			}
			return j + 1
		case s[j] == '\n' && !triple:
			return j
		case !raw && s[j] == '$' && j+1 < len(s) && s[j+1] == '{':
			j = markCode(s, j+2, true, mask) + 1
		default:
			j++
		}
	}
	return len(s)
}
