package extractor

import (
	"regexp"
	"strings"
)

var (
	classPattern = regexp.MustCompile(`(?m)^\s*(?:(?:abstract|final|sealed|base|interface)\s+)*class\s+([A-Za-z_$][\w$]*)\s*(?:<[^{]*?>)?\s*(?:\{|extends\b|implements\b|with\b)`)

	// A declaration is either a static member (any indentation) or a
	// top-level statement starting at column 0. The value runs to the first
	// ';' that ends a line.
	declPattern = regexp.MustCompile(`(?ms)^(?:[ \t]*(static)\s+)?(const|final)\s+(?:([A-Za-z_$][\w$<>?, ]*?)\s+)?([A-Za-z_$][\w$]*)\s*=\s*(.*?);[ \t]*(?://[^\n]*)?$`)
)

// PatternExtractor is the structural extractor: regular expressions over
// the raw text. It tolerates malformed files but can be fooled by
// declarations inside comments or method bodies at column 0.
type PatternExtractor struct{}

func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

func (p *PatternExtractor) Name() string {
	return "pattern"
}

func (p *PatternExtractor) Extract(src []byte) (*Module, error) {
	text := string(src)
	cm := classPattern.FindStringSubmatch(text)
	if cm == nil {
		return nil, ErrNoClass
	}

	m := &Module{ClassName: cm[1]}
	for _, idx := range declPattern.FindAllStringSubmatchIndex(text, -1) {
		group := func(n int) string {
			if idx[2*n] < 0 {
				return ""
			}
			return text[idx[2*n]:idx[2*n+1]]
		}
		m.Declarations = append(m.Declarations, Declaration{
			Name:   group(4),
			Type:   strings.TrimSpace(group(3)),
			Value:  NormalizeExpr(group(5)),
			Kind:   DeclKind(group(2)),
			Static: group(1) != "",
			Line:   strings.Count(text[:idx[0]], "\n") + 1,
		})
	}
	return m, nil
}
