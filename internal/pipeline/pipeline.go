// Package pipeline turns a cloned component repository into template
// artifacts: discover, materialize, inline constants, inline dependencies,
// report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime/debug"

	"brickgen/internal/brick"
	"brickgen/internal/config"
	"brickgen/internal/crawler"
	"brickgen/internal/deps"
	"brickgen/internal/diag"
	"brickgen/internal/extractor"
	"brickgen/internal/graph"
	"brickgen/internal/pubspec"
	"brickgen/internal/report"
	"brickgen/internal/resolver"

	"go.uber.org/zap"
)

// Result is the best-effort outcome of one run. Failures are in
// Diagnostics and in the report, never returned as an error.
type Result struct {
	Report       *report.RunReport
	Components   []crawler.Component
	Artifacts    map[string]*brick.Artifact
	Constants    map[string]resolver.ComponentResult
	Dependencies map[string]deps.Result
	Diagnostics  []diag.Diagnostic
}

// Pipeline processes one repository at a time, sequentially and in
// component-name order.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

type runState struct {
	repoRoot    string
	packageName string
	repoName    string
	version     string
	res         *Result
	summaries   map[string]*report.ComponentSummary
}

// Run processes repoRoot. It never fails: every problem is recorded as a
// diagnostic and the run continues with the remaining work.
func (p *Pipeline) Run(ctx context.Context, repoRoot string) *Result {
	st := &runState{
		repoRoot: repoRoot,
		res: &Result{
			Report:       report.NewRunReport(repoRoot),
			Artifacts:    make(map[string]*brick.Artifact),
			Constants:    make(map[string]resolver.ComponentResult),
			Dependencies: make(map[string]deps.Result),
		},
		summaries: make(map[string]*report.ComponentSummary),
	}
	st.repoName = filepath.Base(filepath.Clean(repoRoot))
	st.version = pubspec.VersionOf(repoRoot)
	if ps, err := pubspec.Load(repoRoot); err == nil && ps.Name != "" {
		st.packageName = ps.Name
		st.repoName = ps.Name
	}

	p.logger.Info("processing repository",
		zap.String("repo", repoRoot),
		zap.String("run_id", st.res.Report.RunID),
		zap.String("version", st.version))

	p.discoverStage(st)
	p.materializeStage(ctx, st)
	p.constantsStage(ctx, st)
	p.dependenciesStage(ctx, st)
	p.reportStage(st)

	for _, c := range st.res.Components {
		if s, ok := st.summaries[c.Name]; ok {
			st.res.Report.AddComponent(*s)
		}
	}
	st.res.Report.AddDiagnostics(st.res.Diagnostics...)
	st.res.Report.Finalize()

	summary := st.res.Report.Summary
	p.logger.Info("repository processed",
		zap.String("run_id", st.res.Report.RunID),
		zap.Int("components", summary.ComponentCount),
		zap.Int("created", summary.ArtifactsCreated),
		zap.Int("errors", summary.DiagnosticsBySeverity[string(diag.SeverityError)]),
		zap.Int("warnings", summary.DiagnosticsBySeverity[string(diag.SeverityWarning)]))
	return st.res
}

func (p *Pipeline) discoverStage(st *runState) {
	h := st.res.Report.BeginStage(diag.StageDiscover)
	comps, ds := crawler.NewCrawler(p.cfg.TemplateDir, p.logger).Discover(st.repoRoot, p.cfg.ComponentsPath)
	st.res.Components = comps
	st.res.Diagnostics = append(st.res.Diagnostics, ds...)
	for _, c := range comps {
		st.summaries[c.Name] = &report.ComponentSummary{Name: c.Name}
	}
	st.res.Report.EndStage(h, report.StatusOK, map[string]float64{
		"components": float64(len(comps)),
	}, []string{p.cfg.ComponentsPath}, nil)
}

// materializeStage creates missing artifacts and loads existing ones, so
// later stages see every component that has a template.
func (p *Pipeline) materializeStage(ctx context.Context, st *runState) {
	h := st.res.Report.BeginStage(diag.StageMaterialize)
	dc := diag.NewCollector(diag.StageMaterialize, p.logger)
	m := brick.NewMaterializer(p.cfg.TemplateDir, st.repoName, st.version, p.logger)

	created, existing := 0, 0
	for _, c := range st.res.Components {
		if err := ctx.Err(); err != nil {
			dc.Warn("canceled", c.Name, "", "materialization stopped: %v", err)
			break
		}
		sum := st.summaries[c.Name]
		a, isNew, err := m.Materialize(c)
		if err != nil {
			dc.Error("materialize_failed", c.Name, "", err)
			sum.Failed = true
			continue
		}
		if !isNew {
			a, err = brick.LoadArtifact(c.Name, m.ArtifactDir(c.Dir))
			if err != nil {
				dc.Error("artifact_unreadable", c.Name, "", err)
				sum.Failed = true
				continue
			}
			existing++
		} else {
			created++
		}
		sum.Created = isNew
		st.res.Artifacts[c.Name] = a
	}

	st.res.Diagnostics = append(st.res.Diagnostics, dc.Diagnostics()...)
	st.res.Report.EndStage(h, report.StatusOK, map[string]float64{
		"created":  float64(created),
		"existing": float64(existing),
		"failed":   float64(diag.Count(dc.Diagnostics(), diag.SeverityError)),
	}, nil, nil)
}

func (p *Pipeline) constantsStage(ctx context.Context, st *runState) {
	h := st.res.Report.BeginStage(diag.StageConstants)
	dc := diag.NewCollector(diag.StageConstants, p.logger)

	ext, err := extractor.NewExtractor(p.cfg.Resolution.Extractor, p.logger)
	if err != nil {
		dc.Error("extractor_config", "", "", err)
		st.res.Diagnostics = append(st.res.Diagnostics, dc.Diagnostics()...)
		st.res.Report.EndStage(h, report.StatusSkipped, nil, nil, err)
		return
	}
	table, ds := resolver.NewBuilder(ext, p.cfg.Resolution.MaxIterations, p.logger).Build(st.repoRoot, p.cfg.Foundations)
	dc.Merge(ds)

	engine := resolver.NewEngine(table, resolver.NewImportPolicy(st.packageName, p.cfg.Foundations), p.logger)
	rewritten, substitutions := 0, 0
	for _, c := range st.res.Components {
		a, ok := st.res.Artifacts[c.Name]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			dc.Warn("canceled", c.Name, "", "constant resolution stopped: %v", err)
			break
		}
		cr, ds := engine.ResolveArtifact(a)
		dc.Merge(ds)
		st.res.Constants[c.Name] = cr

		sum := st.summaries[c.Name]
		sum.FilesRewritten = cr.FilesRewritten
		sum.Substitutions = cr.Substitutions
		rewritten += cr.FilesRewritten
		substitutions += cr.Substitutions
	}

	stats := table.Stats()
	st.res.Diagnostics = append(st.res.Diagnostics, dc.Diagnostics()...)
	st.res.Report.EndStage(h, report.StatusOK, map[string]float64{
		"symbols":          float64(table.Len()),
		"symbols_skipped":  float64(stats.Skipped),
		"files_rewritten":  float64(rewritten),
		"substitutions":    float64(substitutions),
		"foundation_count": float64(len(p.cfg.Foundations)),
	}, nil, nil)
}

// dependenciesStage never lets a failure escape: a panic anywhere in the
// resolver is recorded and the run continues without dependency inlining.
func (p *Pipeline) dependenciesStage(ctx context.Context, st *runState) {
	h := st.res.Report.BeginStage(diag.StageDependencies)
	dc := diag.NewCollector(diag.StageDependencies, p.logger)
	var g *graph.Graph

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("dependency resolution panicked",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = fmt.Errorf("dependency resolution aborted: %v", r)
			}
		}()
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := deps.NewResolver(p.cfg.TemplateDir, p.cfg.Dependencies.TypePrefix, p.logger)
		if err != nil {
			return err
		}
		r.WithPackage(st.packageName, filepath.Join(st.repoRoot, "lib"))
		m, ds := r.BuildMap(st.res.Components)
		dc.Merge(ds)
		results, ds := r.Resolve(m)
		dc.Merge(ds)
		g = r.Graph()
		for _, res := range results {
			st.res.Dependencies[res.Component] = res
			if sum, ok := st.summaries[res.Component]; ok {
				sum.Dependencies = res.Dependencies
				sum.Dependents = g.GetDependents(res.Component)
			}
		}
		return nil
	}()

	status := report.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = report.StatusSkipped
		dc.Warn("canceled", "", "", "dependency resolution skipped: %v", err)
		err = nil
	default:
		status = report.StatusError
		dc.Error("dependency_stage_failed", "", "", err)
	}

	counters := map[string]float64{}
	for _, res := range st.res.Dependencies {
		counters["files_copied"] += float64(res.FilesCopied)
		counters["imports_injected"] += float64(res.ImportsInjected)
		counters["imports_rewritten"] += float64(res.ImportsRewritten)
	}
	if g != nil {
		reasons := g.UnresolvedReasonCounts()
		counters["unowned"] = float64(reasons[graph.ReasonNoCandidate])
		counters["ambiguous"] = float64(reasons[graph.ReasonAmbiguous])
		counters["cycles"] = float64(len(g.Cycles()))
		maxFanIn := 0
		for _, n := range g.FanIn() {
			maxFanIn = max(maxFanIn, n)
		}
		counters["max_fan_in"] = float64(maxFanIn)
	}
	st.res.Diagnostics = append(st.res.Diagnostics, dc.Diagnostics()...)
	st.res.Report.EndStage(h, status, counters, nil, err)
}

// reportStage documents the third-party packages each artifact needs,
// including those brought in by inlined dependencies.
func (p *Pipeline) reportStage(st *runState) {
	h := st.res.Report.BeginStage(diag.StageReport)
	dc := diag.NewCollector(diag.StageReport, p.logger)

	written := 0
	for _, c := range st.res.Components {
		a, ok := st.res.Artifacts[c.Name]
		if !ok {
			continue
		}
		pkgs := append([]string(nil), st.res.Constants[c.Name].ThirdParty...)
		for _, dep := range st.res.Dependencies[c.Name].Inlined {
			pkgs = append(pkgs, st.res.Constants[dep].ThirdParty...)
		}
		ok, err := report.WriteDependencies(a.Dir, c.Name, pkgs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				dc.Warn("artifact_missing", c.Name, "", "cannot write %s: %v", report.DependenciesFile, err)
			} else {
				dc.Error("report_failed", c.Name, "", err)
			}
			continue
		}
		if ok {
			written++
			st.summaries[c.Name].ThirdParty = dedupe(pkgs)
		}
		st.summaries[c.Name].Files = len(a.Files)
	}

	st.res.Diagnostics = append(st.res.Diagnostics, dc.Diagnostics()...)
	st.res.Report.EndStage(h, report.StatusOK, map[string]float64{
		"dependency_reports": float64(written),
	}, nil, nil)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
