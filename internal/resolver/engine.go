package resolver

import (
	"fmt"
	"os"
	"sort"

	"brickgen/internal/brick"
	"brickgen/internal/diag"

	"go.uber.org/zap"
)

// ComponentResult summarizes constant resolution for one artifact.
type ComponentResult struct {
	Component      string   `json:"component"`
	FilesScanned   int      `json:"files_scanned"`
	FilesRewritten int      `json:"files_rewritten"`
	Substitutions  int      `json:"substitutions"`
	ImportsRemoved int      `json:"imports_removed"`
	ThirdParty     []string `json:"third_party,omitempty"`
}

// Engine rewrites materialized templates against a SymbolTable.
type Engine struct {
	table  *SymbolTable
	policy *ImportPolicy
	logger *zap.Logger
}

func NewEngine(table *SymbolTable, policy *ImportPolicy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{table: table, policy: policy, logger: logger}
}

// ResolveArtifact substitutes symbols in every Dart file of a and strips
// foundation imports from the files it changed. A file without any
// substitution is not written. Per-file failures become diagnostics.
func (e *Engine) ResolveArtifact(a *brick.Artifact) (ComponentResult, []diag.Diagnostic) {
	dc := diag.NewCollector(diag.StageConstants, e.logger)
	res := ComponentResult{Component: a.Name}
	thirdParty := make(map[string]bool)

	for _, rel := range a.SourceFiles() {
		path := a.Path(rel)
		data, err := os.ReadFile(path)
		if err != nil {
			dc.Error("read_failed", a.Name, rel, err)
			continue
		}
		res.FilesScanned++
		content := string(data)

		updated, n := e.table.Substitute(content)
		if n > 0 {
			cleaned, removed := e.policy.CleanImports(updated)
			if err := os.WriteFile(path, []byte(cleaned), 0644); err != nil {
				dc.Error("write_failed", a.Name, rel, fmt.Errorf("rewrite: %w", err))
				cleaned = content
			} else {
				res.FilesRewritten++
				res.Substitutions += n
				res.ImportsRemoved += len(removed)
				e.logger.Debug("constants inlined",
					zap.String("component", a.Name),
					zap.String("file", rel),
					zap.Int("substitutions", n),
					zap.Strings("removed_imports", removed))
			}
			content = cleaned
		}

		for _, pkg := range e.policy.ThirdParty(content) {
			thirdParty[pkg] = true
		}
	}

	for pkg := range thirdParty {
		res.ThirdParty = append(res.ThirdParty, pkg)
	}
	sort.Strings(res.ThirdParty)
	if len(res.ThirdParty) > 0 {
		dc.Info("third_party_imports", a.Name, "", "surviving third-party packages: %v", res.ThirdParty)
	}
	return res, dc.Diagnostics()
}
