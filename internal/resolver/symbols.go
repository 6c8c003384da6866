// Package resolver inlines foundation constants into materialized templates.
package resolver

import (
	"path/filepath"
	"sort"
	"strings"

	"brickgen/internal/config"
	"brickgen/internal/dart"
	"brickgen/internal/diag"
	"brickgen/internal/extractor"

	"go.uber.org/zap"
)

// maxExpandedLen stops runaway expansion of values that grow every round.
const maxExpandedLen = 64 << 10

// Symbol is one resolved foundation constant.
type Symbol struct {
	Qualified string    `json:"qualified"`
	Class     string    `json:"class"`
	Name      string    `json:"name"`
	Module    string    `json:"module"`
	Value     string    `json:"value"`
	Kind      ValueKind `json:"kind"`
	Const     bool      `json:"const"`
}

type ResolveStats struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Skipped   int `json:"skipped"`
}

// ModuleSummary describes how one foundation module was read.
type ModuleSummary struct {
	Key       string       `json:"key"`
	Path      string       `json:"path"`
	ClassName string       `json:"class_name,omitempty"`
	Strategy  string       `json:"strategy,omitempty"`
	Stats     ResolveStats `json:"stats"`
}

// SymbolTable maps qualified names such as "AppSpacing.xs" to their resolved
// replacement text. It is read-only once built.
type SymbolTable struct {
	symbols map[string]Symbol
	sorted  []Symbol
	modules []ModuleSummary
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]Symbol)}
}

func (t *SymbolTable) add(s Symbol) bool {
	if _, exists := t.symbols[s.Qualified]; exists {
		return false
	}
	t.symbols[s.Qualified] = s
	t.sorted = append(t.sorted, s)
	return true
}

func (t *SymbolTable) finish() {
	sort.SliceStable(t.sorted, func(i, j int) bool {
		a, b := t.sorted[i].Qualified, t.sorted[j].Qualified
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
}

func (t *SymbolTable) Lookup(qualified string) (Symbol, bool) {
	if t == nil {
		return Symbol{}, false
	}
	s, ok := t.symbols[qualified]
	return s, ok
}

func (t *SymbolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.symbols)
}

// Sorted returns the symbols longest qualified name first.
func (t *SymbolTable) Sorted() []Symbol {
	if t == nil {
		return nil
	}
	return t.sorted
}

func (t *SymbolTable) Modules() []ModuleSummary {
	if t == nil {
		return nil
	}
	return t.modules
}

// Stats sums the per-module statistics.
func (t *SymbolTable) Stats() ResolveStats {
	var total ResolveStats
	for _, m := range t.Modules() {
		total.Attempted += m.Stats.Attempted
		total.Resolved += m.Stats.Resolved
		total.Skipped += m.Stats.Skipped
	}
	return total
}

// Builder reads foundation modules into a SymbolTable.
type Builder struct {
	extractor     *extractor.Extractor
	maxIterations int
	logger        *zap.Logger
}

func NewBuilder(ext *extractor.Extractor, maxIterations int, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxIterations < 1 {
		maxIterations = config.DefaultMaxIterations
	}
	return &Builder{extractor: ext, maxIterations: maxIterations, logger: logger}
}

type loadedModule struct {
	key    string
	path   string
	module *extractor.Module
}

// Build extracts every foundation module under repoRoot and resolves its
// static constants. Unreadable modules and unresolvable values are reported
// as diagnostics and left out of the table.
func (b *Builder) Build(repoRoot string, foundations []config.Foundation) (*SymbolTable, []diag.Diagnostic) {
	dc := diag.NewCollector(diag.StageConstants, b.logger)
	table := newSymbolTable()

	var loaded []loadedModule
	classes := make(map[string]string)
	for _, f := range foundations {
		summary := ModuleSummary{Key: f.Key, Path: f.Path}
		m, attempts, err := b.extractor.ExtractFromFile(filepath.Join(repoRoot, filepath.FromSlash(f.Path)))
		if err != nil {
			dc.Warn("foundation_unreadable", "", f.Path, "foundation %q skipped: %v", f.Key, err)
			table.modules = append(table.modules, summary)
			continue
		}
		if len(attempts) > 1 {
			dc.Info("extractor_fallback", "", f.Path, "extracted with %s after %d failed attempt(s)", m.Strategy, len(attempts)-1)
		}
		summary.ClassName = m.ClassName
		summary.Strategy = m.Strategy
		table.modules = append(table.modules, summary)
		loaded = append(loaded, loadedModule{key: f.Key, path: f.Path, module: m})
		if _, seen := classes[m.ClassName]; !seen {
			classes[m.ClassName] = f.Key
		}
	}

	for _, lm := range loaded {
		stats := b.resolveModule(table, lm, classes, dc)
		for i := range table.modules {
			if table.modules[i].Key == lm.key {
				table.modules[i].Stats = stats
			}
		}
	}
	table.finish()

	b.logger.Info("symbol table built",
		zap.Int("modules", len(loaded)),
		zap.Int("symbols", table.Len()))
	return table, dc.Diagnostics()
}

func (b *Builder) resolveModule(table *SymbolTable, lm loadedModule, classes map[string]string, dc *diag.Collector) ResolveStats {
	m := lm.module
	raw := make(map[string]extractor.Declaration, len(m.Declarations))
	for _, d := range m.Declarations {
		if _, dup := raw[d.Name]; !dup {
			raw[d.Name] = d
		}
	}

	var stats ResolveStats
	for _, d := range m.Declarations {
		if !d.Static {
			continue
		}
		stats.Attempted++
		qualified := m.ClassName + "." + d.Name

		value, ok := b.expand(d.Value, raw, m.ClassName)
		if !ok {
			stats.Skipped++
			dc.Warn("reference_cycle", "", lm.path, "%s left unresolved after %d expansion rounds", qualified, b.maxIterations)
			continue
		}
		if dart.ContainsIdentifier(value, m.ClassName) {
			stats.Skipped++
			dc.Info("unresolved_reference", "", lm.path, "%s refers to an undeclared member of %s", qualified, m.ClassName)
			continue
		}
		if other := foreignClassReference(value, m.ClassName, classes); other != "" {
			stats.Skipped++
			dc.Info("cross_module_reference", "", lm.path, "%s references foundation class %s", qualified, other)
			continue
		}
		c, ok := Classify(value, d.Type, d.Kind == extractor.KindConst)
		if !ok {
			stats.Skipped++
			dc.Info(c.Reason, "", lm.path, "%s skipped: %s", qualified, value)
			continue
		}
		if !table.add(Symbol{
			Qualified: qualified,
			Class:     m.ClassName,
			Name:      d.Name,
			Module:    lm.key,
			Value:     c.Value,
			Kind:      c.Kind,
			Const:     d.Kind == extractor.KindConst,
		}) {
			stats.Skipped++
			dc.Warn("duplicate_symbol", "", lm.path, "%s already defined by an earlier foundation", qualified)
			continue
		}
		stats.Resolved++
	}
	return stats
}

// expand substitutes references to sibling constants until the value no
// longer changes. ok is false when references remain after maxIterations
// rounds, which is what a reference cycle looks like.
func (b *Builder) expand(value string, raw map[string]extractor.Declaration, class string) (string, bool) {
	cur := value
	for i := 0; i < b.maxIterations; i++ {
		next, n := expandOnce(cur, raw, class)
		if n == 0 {
			return cur, true
		}
		if len(next) > maxExpandedLen {
			return next, false
		}
		cur = next
	}
	_, n := expandOnce(cur, raw, class)
	return cur, n == 0
}

// expandOnce replaces each reference to a declaration of the same module,
// bare (`spacing2`) or qualified (`AppSpacing.spacing2`). String literals,
// member accesses and named-argument labels are not references.
func expandOnce(src string, raw map[string]extractor.Declaration, class string) (string, int) {
	var out strings.Builder
	n := 0
	last := 0
	for i := 0; i < len(src); {
		c := src[i]
		if c == '\'' || c == '"' {
			i = dart.SkipString(src, i)
			continue
		}
		if !dart.IsIdentByte(c) {
			i++
			continue
		}
		start := i
		for i < len(src) && dart.IsIdentByte(src[i]) {
			i++
		}
		word := src[start:i]
		if (c >= '0' && c <= '9') || (start > 0 && src[start-1] == '.') {
			continue
		}

		end := i
		name := word
		if word == class && i+1 < len(src) && src[i] == '.' {
			j := i + 1
			for j < len(src) && dart.IsIdentByte(src[j]) {
				j++
			}
			name = src[i+1 : j]
			end = j
		}
		d, ok := raw[name]
		if !ok || isLabel(src, start, end) {
			i = end
			continue
		}
		out.WriteString(src[last:start])
		out.WriteString(parenthesize(d.Value))
		last = end
		i = end
		n++
	}
	if n == 0 {
		return src, 0
	}
	out.WriteString(src[last:])
	return out.String(), n
}

// isLabel reports whether src[start:end] is a named-argument label such as
// the `height` in `TextStyle(height: 1.5)`.
func isLabel(src string, start, end int) bool {
	j := end
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		j++
	}
	if j >= len(src) || src[j] != ':' {
		return false
	}
	k := start - 1
	for k >= 0 && (src[k] == ' ' || src[k] == '\t') {
		k--
	}
	return k < 0 || src[k] == '(' || src[k] == ',' || src[k] == '{'
}

// parenthesize wraps values with a top-level binary operator so they keep
// their precedence once inlined into a larger expression.
func parenthesize(v string) string {
	if !hasTopLevelOperator(v) {
		return v
	}
	return "(" + v + ")"
}

func hasTopLevelOperator(v string) bool {
	depth := 0
	prev := byte(0)
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == '\'' || c == '"':
			i = dart.SkipString(v, i) - 1
			prev = c
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case depth > 0 || c == ' ':
			continue
		case strings.IndexByte("+*/%?~|&^<>", c) >= 0:
			return true
		case c == '-' && (dart.IsIdentByte(prev) || prev == ')' || prev == ']'):
			return true
		}
		prev = c
	}
	return false
}

// foreignClassReference returns the first other foundation class the value
// still refers to.
func foreignClassReference(value, own string, classes map[string]string) string {
	names := make([]string, 0, len(classes))
	for name := range classes {
		if name != own {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(value, name+".") && dart.ContainsIdentifier(value, name) {
			return name
		}
	}
	return ""
}
