package resolver

import (
	"regexp"
	"strings"

	"brickgen/internal/dart"
)

// ValueKind says how a resolved constant value will be inlined.
type ValueKind string

const (
	KindLiteral    ValueKind = "literal"
	KindExpression ValueKind = "expression"
	KindReference  ValueKind = "reference"
	KindSimple     ValueKind = "simple"
	KindSimplified ValueKind = "simplified"
)

// Reasons a value is left unresolved.
const (
	ReasonComplex     = "complex_value"
	ReasonUnsupported = "unsupported_value"
)

// maxSimpleArgs bounds the named-argument constructor shape.
const maxSimpleArgs = 4

var (
	numberPattern     = regexp.MustCompile(`^-?(?:\d+(?:\.\d+)?(?:[eE][+-]?\d+)?|\.\d+|0[xX][0-9a-fA-F]+)$`)
	hexPattern        = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
	arithmeticPattern = regexp.MustCompile(`^[-+*/%().\d\s~]+$`)
	referencePattern  = regexp.MustCompile(`^[A-Z][\w$]*(?:\.[A-Za-z_$][\w$]*)+$`)
	calleePattern     = regexp.MustCompile(`^([A-Z][\w$]*(?:\.[A-Za-z_$][\w$]*)?)\(`)
	labelPattern      = regexp.MustCompile(`^([A-Za-z_$][\w$]*)\s*:\s*(.+)$`)

	// Markers of values that depend on private helpers, external theming
	// or a BuildContext.
	complexMarkers = regexp.MustCompile(`(?:^|[^\w$.])_[A-Za-z$]|\bTheme\.of\b|\bMediaQuery\b|\bcontext\b|\bGoogleFonts\.|\.copyWith\(|\.with(?:Opacity|Alpha|Values|Red|Green|Blue)\(|\.lerp\(|=>|\?\?`)
)

// Classification is the stored form of one resolved value.
type Classification struct {
	Value  string
	Kind   ValueKind
	Reason string
}

// Classify decides how a fully expanded right-hand side is stored. typ is the
// declared type (may be empty) and isConst whether the declaration was const.
// ok is false when the value must stay unresolved.
func Classify(value, typ string, isConst bool) (Classification, bool) {
	v := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "const "))

	switch {
	case isLiteral(v):
		return Classification{Value: v, Kind: KindLiteral}, true
	case isArithmetic(v):
		return Classification{Value: parenthesize(v), Kind: KindExpression}, true
	}

	if isColorLike(v, typ) {
		if color, ok := SimplifyColor(v); ok {
			return Classification{Value: withConst(color, isConst), Kind: KindSimplified}, true
		}
	}

	if complexMarkers.MatchString(v) {
		if isTextStyleLike(v, typ) {
			if style, ok := SimplifyTextStyle(v); ok {
				return Classification{Value: withConst(style, isConst), Kind: KindSimplified}, true
			}
		}
		return Classification{Reason: ReasonComplex}, false
	}

	switch {
	case referencePattern.MatchString(v):
		return Classification{Value: v, Kind: KindReference}, true
	case isSimpleCall(v, 0):
		return Classification{Value: withConst(v, isConst), Kind: KindSimple}, true
	}
	return Classification{Reason: ReasonUnsupported}, false
}

func withConst(v string, isConst bool) string {
	if isConst {
		return "const " + v
	}
	return v
}

func isLiteral(v string) bool {
	switch v {
	case "true", "false", "null":
		return true
	}
	return numberPattern.MatchString(v) || dart.IsStringLiteral(v)
}

// isArithmetic accepts numeric expressions such as "(8.0 * 2)" left behind by
// reference expansion.
func isArithmetic(v string) bool {
	if !arithmeticPattern.MatchString(hexPattern.ReplaceAllString(v, "0")) || !strings.ContainsAny(v, "+-*/%~") {
		return false
	}
	return strings.ContainsAny(v, "0123456789") && balanced(v)
}

func isColorLike(v, typ string) bool {
	return typ == "Color" || strings.Contains(v, "Color.from") || strings.HasPrefix(v, "Color(")
}

func isTextStyleLike(v, typ string) bool {
	return typ == "TextStyle" || strings.Contains(v, "TextStyle(") || strings.Contains(v, "GoogleFonts.")
}

// isSimpleCall matches the allow-listed constructor shapes:
//
//	Wrapper(x)                 one argument, positional or named
//	Type.named(a: x, b: y)     up to maxSimpleArgs named arguments
//	Type.named(1, 2, 3, 4)     up to maxSimpleArgs positional numbers
//
// where every argument is a literal, a member reference or, recursively, a
// simple call.
func isSimpleCall(v string, depth int) bool {
	if depth > 3 {
		return false
	}
	inner, ok := callArgs(v)
	if !ok {
		return false
	}
	args := splitArgs(inner)
	if len(args) == 0 || len(args) > maxSimpleArgs {
		return false
	}

	named, positional := 0, 0
	for _, a := range args {
		val := a
		if m := labelPattern.FindStringSubmatch(a); m != nil && !strings.HasPrefix(a, "'") && !strings.HasPrefix(a, `"`) {
			named++
			val = strings.TrimSpace(m[2])
		} else {
			positional++
		}
		if !isSimpleArg(val, depth) {
			return false
		}
	}

	switch {
	case len(args) == 1:
		return true
	case positional == 0:
		return true
	case named == 0:
		for _, a := range args {
			if !numberPattern.MatchString(a) {
				return false
			}
		}
		return true
	}
	return false
}

func isSimpleArg(v string, depth int) bool {
	v = strings.TrimPrefix(v, "const ")
	return isLiteral(v) || isArithmetic(v) || referencePattern.MatchString(v) || isSimpleCall(v, depth+1)
}

// callArgs returns the text between the parentheses of `Callee(...)` when the
// opening parenthesis closes at the very end of v.
func callArgs(v string) (string, bool) {
	m := calleePattern.FindStringSubmatchIndex(v)
	if m == nil || !strings.HasSuffix(v, ")") {
		return "", false
	}
	open := m[1] - 1
	depth := 0
	for i := open; i < len(v); i++ {
		switch v[i] {
		case '\'', '"':
			i = dart.SkipString(v, i) - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 && i != len(v)-1 {
				return "", false
			}
		}
	}
	if depth != 0 {
		return "", false
	}
	return strings.TrimSpace(v[open+1 : len(v)-1]), true
}

// splitArgs splits an argument list on top-level commas.
func splitArgs(inner string) []string {
	if strings.TrimSpace(inner) == "" {
		return nil
	}
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '\'', '"':
			i = dart.SkipString(inner, i) - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(inner[start:]); last != "" {
		out = append(out, last)
	}
	return out
}

func balanced(v string) bool {
	depth := 0
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
