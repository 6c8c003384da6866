package extractor

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	line  int
}

// ScannerExtractor tokenizes the source (comments, string literals with
// interpolation, nested brackets) before looking for declarations, so it
// only reports class-level and top-level constants. It fails on input it
// cannot tokenize, which lets an Extractor fall back to PatternExtractor.
type ScannerExtractor struct{}

func NewScannerExtractor() *ScannerExtractor {
	return &ScannerExtractor{}
}

func (s *ScannerExtractor) Name() string {
	return "scanner"
}

func (s *ScannerExtractor) Extract(src []byte) (*Module, error) {
	text := string(src)
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	m := &Module{}
	depth := 0
	classBody := -1 // brace depth of the first class body
	pendingClass := false
	atStmt := true

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.kind == tokPunct && t.text == "{":
			depth++
			if pendingClass {
				classBody = depth
				pendingClass = false
			}
			atStmt = true
			continue
		case t.kind == tokPunct && t.text == "}":
			if depth == classBody {
				// Only the first class contributes members.
				classBody = -1
			}
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unexpected '}' on line %d", ErrUnbalanced, t.line)
			}
			atStmt = true
			continue
		case t.kind == tokPunct && t.text == ";":
			atStmt = true
			continue
		case t.kind == tokPunct && t.text == "@" && atStmt:
			i = skipAnnotation(toks, i)
			continue
		}

		if t.kind == tokIdent && t.text == "class" && m.ClassName == "" && i+1 < len(toks) && toks[i+1].kind == tokIdent {
			m.ClassName = toks[i+1].text
			pendingClass = true
			atStmt = false
			i++
			continue
		}

		if atStmt && t.kind == tokIdent && (depth == 0 || depth == classBody) {
			decl, next, ok, err := parseDeclaration(text, toks, i)
			if err != nil {
				return nil, err
			}
			if ok {
				if depth == 0 || decl.Static {
					m.Declarations = append(m.Declarations, decl)
				}
				i = next
				atStmt = true
				continue
			}
		}
		atStmt = false
	}

	if depth != 0 {
		return nil, fmt.Errorf("%w: %d unclosed '{' at end of file", ErrUnbalanced, depth)
	}
	if m.ClassName == "" {
		return nil, ErrNoClass
	}
	return m, nil
}

// parseDeclaration tries to read `[static] [late] const|final [Type] name = value;`
// starting at toks[i]. It returns the index of the terminating ';'.
func parseDeclaration(src string, toks []token, i int) (Declaration, int, bool, error) {
	var d Declaration
	j := i
	if toks[j].text == "static" {
		d.Static = true
		j++
	}
	if j < len(toks) && toks[j].text == "late" {
		j++
	}
	if j >= len(toks) || (toks[j].text != "const" && toks[j].text != "final") {
		return d, i, false, nil
	}
	d.Kind = DeclKind(toks[j].text)
	j++

	// Type tokens, then the name, up to '='.
	typeStart := j
	nest := 0
	eq := -1
	for k := j; k < len(toks); k++ {
		tk := toks[k]
		if tk.kind != tokPunct {
			continue
		}
		switch tk.text {
		case "<":
			nest++
		case ">":
			nest--
		case "=":
			if nest == 0 {
				eq = k
			}
		case ";", "(", "{", "}":
			if nest == 0 {
				return d, i, false, nil
			}
		}
		if eq >= 0 {
			break
		}
	}
	if eq < 0 || eq == typeStart || toks[eq-1].kind != tokIdent {
		return d, i, false, nil
	}
	nameTok := toks[eq-1]
	d.Name = nameTok.text
	d.Line = nameTok.line
	if eq-1 > typeStart {
		d.Type = strings.TrimSpace(src[toks[typeStart].start:nameTok.start])
	}

	// Value runs to the ';' at bracket depth 0.
	depth := 0
	for k := eq + 1; k < len(toks); k++ {
		tk := toks[k]
		if tk.kind != tokPunct {
			continue
		}
		switch tk.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth < 0 {
				return d, i, false, fmt.Errorf("%w: unexpected %q in value of %s on line %d", ErrUnbalanced, tk.text, d.Name, tk.line)
			}
		case ";":
			if depth == 0 {
				if k == eq+1 {
					return d, i, false, nil
				}
				d.Value = NormalizeExpr(src[toks[eq].end:tk.start])
				return d, k, true, nil
			}
		}
	}
	return d, i, false, fmt.Errorf("unterminated declaration of %s on line %d", d.Name, d.Line)
}

// skipAnnotation returns the index of the last token of an annotation such
// as @override or @Deprecated('x') starting at toks[i].
func skipAnnotation(toks []token, i int) int {
	j := i + 1
	for j < len(toks) && (toks[j].kind == tokIdent || toks[j].text == ".") {
		j++
	}
	if j < len(toks) && toks[j].text == "(" {
		depth := 0
		for ; j < len(toks); j++ {
			switch toks[j].text {
			case "(":
				depth++
			case ")":
				depth--
				if depth == 0 {
					return j
				}
			}
		}
	}
	return j - 1
}

func tokenize(src string) ([]token, error) {
	var toks []token
	line := 1
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end, err := skipBlockComment(src, i)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			line += strings.Count(src[i:end], "\n")
			i = end
		case c == '\'' || c == '"':
			end, err := scanString(src, i, false)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			toks = append(toks, token{kind: tokString, text: src[i:end], start: i, end: end, line: line})
			line += strings.Count(src[i:end], "\n")
			i = end
		case c == 'r' && i+1 < len(src) && (src[i+1] == '\'' || src[i+1] == '"') && (i == 0 || !isIdent(src[i-1])):
			end, err := scanString(src, i+1, true)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			toks = append(toks, token{kind: tokString, text: src[i:end], start: i, end: end, line: line})
			line += strings.Count(src[i:end], "\n")
			i = end
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdent(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], start: i, end: j, line: line})
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(src) && (isIdent(src[j]) || src[j] == '.' && j+1 < len(src) && src[j+1] >= '0' && src[j+1] <= '9') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], start: i, end: j, line: line})
			i = j
		default:
			toks = append(toks, token{kind: tokPunct, text: src[i : i+1], start: i, end: i + 1, line: line})
			i++
		}
	}
	return toks, nil
}

func skipBlockComment(src string, i int) (int, error) {
	depth := 0
	for j := i; j+1 < len(src); j++ {
		switch {
		case src[j] == '/' && src[j+1] == '*':
			depth++
			j++
		case src[j] == '*' && src[j+1] == '/':
			depth--
			j++
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated block comment")
}

// scanString returns the index just past the literal whose opening quote
// is at src[i]. Interpolations (${...}) may nest braces and strings.
func scanString(src string, i int, raw bool) (int, error) {
	q := src[i]
	triple := i+2 < len(src) && src[i+1] == q && src[i+2] == q
	j := i + 1
	if triple {
		j = i + 3
	}
	for j < len(src) {
		c := src[j]
		switch {
		case c == '\\' && !raw:
			j += 2
			continue
		case c == '\n' && !triple:
			return 0, fmt.Errorf("unterminated string literal")
		case c == '$' && !raw && j+1 < len(src) && src[j+1] == '{':
			end, err := skipInterpolation(src, j+2)
			if err != nil {
				return 0, err
			}
			j = end
			continue
		case c == q:
			if !triple {
				return j + 1, nil
			}
			if j+2 < len(src) && src[j+1] == q && src[j+2] == q {
				return j + 3, nil
			}
		}
		j++
	}
	return 0, fmt.Errorf("unterminated string literal")
}

func skipInterpolation(src string, i int) (int, error) {
	depth := 1
	for j := i; j < len(src); j++ {
		switch src[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1, nil
			}
		case '\'', '"':
			end, err := scanString(src, j, false)
			if err != nil {
				return 0, err
			}
			j = end - 1
		}
	}
	return 0, fmt.Errorf("unterminated string interpolation")
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
