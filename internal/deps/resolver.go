// Package deps inlines sibling components a template depends on, so each
// artifact can be generated without the rest of the repository.
package deps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"brickgen/internal/brick"
	"brickgen/internal/crawler"
	"brickgen/internal/dart"
	"brickgen/internal/diag"
	"brickgen/internal/graph"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const fileCacheSize = 1024

// Entry is one component of the Dependency Map.
type Entry struct {
	Name string
	// Dir is the component's directory in the repository.
	Dir      string
	Artifact *brick.Artifact
	// Own lists the artifact files that came from the component itself,
	// as opposed to files inlined from its dependencies.
	Own     []string
	Primary string
}

// Map is the Dependency Map: component name to materialized template.
type Map map[string]*Entry

// Names returns the component names in sorted order.
func (m Map) Names() []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Result describes what the resolver did for one component.
type Result struct {
	Component string `json:"component"`
	// Dependencies are the components referenced directly.
	Dependencies []string `json:"dependencies,omitempty"`
	// Inlined is the transitive closure whose files were copied in.
	Inlined []string `json:"inlined,omitempty"`
	// Attributed maps each dependency to the identifiers that led to it.
	Attributed      map[string][]string `json:"attributed,omitempty"`
	Unowned         []string            `json:"unowned,omitempty"`
	FilesCopied     int                 `json:"files_copied"`
	FilesSkipped    int                 `json:"files_skipped"`
	ImportsInjected int                 `json:"imports_injected"`
	// ImportsRewritten counts imports that pointed into an inlined
	// component's repository directory and now point at the inlined copy.
	ImportsRewritten int `json:"imports_rewritten"`
}

// Resolver finds and inlines cross-component references.
type Resolver struct {
	templateDir string
	typePrefix  string
	logger      *zap.Logger
	files       *lru.Cache[string, string]

	// Own package name and its lib directory, for "package:" imports.
	pkg    string
	libDir string

	graph *graph.Graph
}

func NewResolver(templateDir, typePrefix string, logger *zap.Logger) (*Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, string](fileCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create file cache: %w", err)
	}
	return &Resolver{
		templateDir: templateDir,
		typePrefix:  typePrefix,
		logger:      logger,
		files:       cache,
	}, nil
}

// WithPackage lets the resolver follow "package:<name>/..." imports, which
// resolve against libDir.
func (r *Resolver) WithPackage(name, libDir string) *Resolver {
	r.pkg = name
	r.libDir = libDir
	return r
}

// Graph returns the dependency graph built by the last Resolve call.
func (r *Resolver) Graph() *graph.Graph {
	return r.graph
}

// BuildMap re-scans the materialized templates of the given components.
// Components without a template are left out.
func (r *Resolver) BuildMap(components []crawler.Component) (Map, []diag.Diagnostic) {
	dc := diag.NewCollector(diag.StageDependencies, r.logger)
	m := make(Map, len(components))
	for _, c := range components {
		dir := filepath.Join(c.Dir, r.templateDir)
		if _, err := os.Stat(dir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				dc.Error("artifact_unreadable", c.Name, "", err)
			}
			continue
		}
		a, err := brick.LoadArtifact(c.Name, dir)
		if err != nil {
			dc.Error("artifact_unreadable", c.Name, "", err)
			continue
		}

		present := make(map[string]bool, len(a.Files))
		for _, f := range a.Files {
			present[f] = true
		}
		var own, ownSources []string
		for _, f := range brick.OwnFiles(c) {
			if !present[f] {
				continue
			}
			own = append(own, f)
			if strings.HasSuffix(f, crawler.SourceExt) {
				ownSources = append(ownSources, f)
			}
		}
		m[c.Name] = &Entry{
			Name:     c.Name,
			Dir:      c.Dir,
			Artifact: a,
			Own:      own,
			Primary:  brick.PrimaryFile(c.Name, ownSources),
		}
	}
	return m, dc.Diagnostics()
}

// Resolve computes every component's dependencies, points the imports of
// the component's own files at the inlined copies, and then copies the
// files of the whole dependency closure into its template. Imports are
// fixed before any copy so inlined files carry their own imports.
func (r *Resolver) Resolve(m Map) ([]Result, []diag.Diagnostic) {
	dc := diag.NewCollector(diag.StageDependencies, r.logger)
	names := m.Names()

	g := r.buildGraph(m, dc)
	r.graph = g
	results := make(map[string]*Result, len(names))
	for _, name := range names {
		results[name] = newResult(g, name)
	}
	for _, u := range g.Unresolved {
		if u.Reason == graph.ReasonAmbiguous {
			dc.Info("ambiguous_owner", u.From, "", "%s is declared by %v", u.Identifier, u.Candidates)
		}
	}
	for _, name := range names {
		if res := results[name]; len(res.Unowned) > 0 {
			dc.Info("unowned_identifier", name, "", "no component declares %v", res.Unowned)
		}
	}
	for _, cycle := range g.Cycles() {
		dc.Info("dependency_cycle", cycle[0], "", "components depend on each other: %v", cycle)
	}

	for _, name := range names {
		r.rewriteOriginImports(m, results[name], dc)
		r.injectImports(m, results[name], dc)
	}

	out := make([]Result, 0, len(names))
	for _, name := range names {
		res := results[name]
		for _, dep := range res.Inlined {
			r.copyFiles(m[dep], m[name], res, dc)
		}
		if len(res.Dependencies) > 0 {
			r.logger.Info("dependencies inlined",
				zap.String("component", name),
				zap.Strings("dependencies", res.Dependencies),
				zap.Int("copied", res.FilesCopied),
				zap.Int("imports", res.ImportsInjected),
				zap.Int("rewritten", res.ImportsRewritten))
		}
		out = append(out, *res)
	}
	return out, dc.Diagnostics()
}

// buildGraph indexes the types each component's own files declare, then
// links the component-like types they reference to their owners.
func (r *Resolver) buildGraph(m Map, dc *diag.Collector) *graph.Graph {
	g := graph.NewGraph()
	sources := make(map[string][]string)
	for _, name := range m.Names() {
		e := m[name]
		var declared []string
		for _, rel := range e.ownSources() {
			src, err := r.read(e.Artifact.Path(rel))
			if err != nil {
				dc.Error("read_failed", name, rel, err)
				continue
			}
			sources[name] = append(sources[name], src)
			declared = append(declared, declaredTypes(src)...)
		}
		g.AddComponent(name, declared)
	}

	for _, name := range m.Names() {
		referenced := make(map[string]bool)
		for _, src := range sources[name] {
			for _, ident := range referencedTypes(src, r.typePrefix) {
				referenced[ident] = true
			}
		}
		g.LinkReferences(name, sortedKeys(referenced))
	}
	return g
}

func newResult(g *graph.Graph, name string) *Result {
	res := &Result{
		Component:    name,
		Dependencies: g.GetDependencies(name),
		Inlined:      g.Closure(name),
		Attributed:   make(map[string][]string),
	}
	for _, dep := range res.Dependencies {
		res.Attributed[dep] = g.Evidence(name, dep)
	}
	for _, u := range g.Unresolved {
		if u.From == name && u.Reason == graph.ReasonNoCandidate {
			res.Unowned = append(res.Unowned, u.Identifier)
		}
	}
	return res
}

// injectImports adds an import of each direct dependency's primary file to
// the component's own files that mention one of its class-name variants.
// A part file cannot import, so its library gets the import instead.
func (r *Resolver) injectImports(m Map, res *Result, dc *diag.Collector) {
	e := m[res.Component]
	libraries := r.partLibraries(e, dc)
	for _, dep := range res.Dependencies {
		d := m[dep]
		if d.Primary == "" {
			dc.Warn("no_primary_file", res.Component, "", "dependency %s has no source file to import", dep)
			continue
		}
		variants := classVariants(dep, r.typePrefix, res.Attributed[dep])
		seen := make(map[string]bool)
		var targets []string
		for _, rel := range e.ownSources() {
			src, err := r.read(e.Artifact.Path(rel))
			if err != nil {
				dc.Error("read_failed", res.Component, rel, err)
				continue
			}
			if !mentionsAny(src, variants) {
				continue
			}
			target := rel
			if lib, ok := libraries[rel]; ok {
				target = lib
			}
			if target == "" || target == d.Primary || seen[target] {
				continue
			}
			seen[target] = true
			targets = append(targets, target)
		}

		for _, rel := range targets {
			p := e.Artifact.Path(rel)
			src, err := r.read(p)
			if err != nil {
				dc.Error("read_failed", res.Component, rel, err)
				continue
			}
			updated, added := dart.InsertImport(src, relativeImport(rel, d.Primary))
			if !added {
				continue
			}
			if err := r.write(p, updated); err != nil {
				dc.Error("write_failed", res.Component, rel, err)
				continue
			}
			res.ImportsInjected++
		}
	}
}

// partLibraries maps each own part file of e to the own file of the library
// it belongs to. A part whose library is not in the template maps to "".
func (r *Resolver) partLibraries(e *Entry, dc *diag.Collector) map[string]string {
	own := make(map[string]bool)
	partOf := make(map[string]string)
	declaredBy := make(map[string]string)
	for _, rel := range e.ownSources() {
		own[rel] = true
		src, err := r.read(e.Artifact.Path(rel))
		if err != nil {
			continue
		}
		for _, d := range dart.ParseDirectives(src) {
			switch d.Kind {
			case dart.KindPart:
				if dart.IsRelative(d.URI) {
					declaredBy[path.Join(path.Dir(rel), d.URI)] = rel
				}
			case dart.KindPartOf:
				partOf[rel] = d.URI
			}
		}
	}

	parts := make([]string, 0, len(partOf))
	for rel := range partOf {
		parts = append(parts, rel)
	}
	sort.Strings(parts)

	out := make(map[string]string, len(parts))
	for _, rel := range parts {
		lib := declaredBy[rel]
		if uri := partOf[rel]; dart.IsRelative(uri) {
			lib = path.Join(path.Dir(rel), uri)
		}
		if !own[lib] {
			dc.Warn("part_without_library", e.Name, rel, "the library of this part is not in the template, so no import can be added for it")
			lib = ""
		}
		out[rel] = lib
	}
	return out
}

// rewriteOriginImports points the imports of the component's own files
// that reach into another component's repository directory at the copy
// inlined into the template. When that copy is already imported the
// original import is dropped. Imports of a component that is not inlined
// cannot be fixed and are reported.
func (r *Resolver) rewriteOriginImports(m Map, res *Result, dc *diag.Collector) {
	e := m[res.Component]
	inlined := make(map[string]bool, len(res.Inlined))
	for _, name := range res.Inlined {
		inlined[name] = true
	}

	for _, rel := range e.ownSources() {
		p := e.Artifact.Path(rel)
		src, err := r.read(p)
		if err != nil {
			dc.Error("read_failed", res.Component, rel, err)
			continue
		}
		ds := dart.ParseDirectives(src)
		present := make(map[string]bool, len(ds))
		for _, d := range ds {
			present[d.Normalized()] = true
		}

		updated, rewritten := src, 0
		// Bottom-up, so the line numbers of earlier directives stay valid.
		for i := len(ds) - 1; i >= 0; i-- {
			d := ds[i]
			if !d.IsImportLike() {
				continue
			}
			dep, sub := r.originTarget(m, e, rel, d.URI)
			if dep == nil {
				continue
			}
			if !inlined[dep.Name] {
				dc.Warn("dangling_import", res.Component, rel, "%s points into component %s, which is not inlined", d.URI, dep.Name)
				continue
			}
			target := sub
			if !contains(dep.Own, sub) {
				target = dep.Primary
			}
			if target == "" {
				continue
			}
			uri := relativeImport(rel, target)
			if uri == d.URI {
				continue
			}
			text := strings.Replace(d.Text, d.URI, uri, 1)
			norm := dart.Directive{Text: text}.Normalized()
			if present[norm] {
				updated = dart.RemoveDirectives(updated, []dart.Directive{d})
			} else {
				updated = dart.ReplaceDirective(updated, d, text)
				present[norm] = true
			}
			rewritten++
		}
		if rewritten == 0 {
			continue
		}
		if err := r.write(p, updated); err != nil {
			dc.Error("write_failed", res.Component, rel, err)
			continue
		}
		res.ImportsRewritten += rewritten
	}
}

// originTarget resolves uri, imported by e's file rel, to a location in the
// repository. When that location is inside another component's directory it
// returns the component and the path of the location within it.
func (r *Resolver) originTarget(m Map, e *Entry, rel, uri string) (*Entry, string) {
	var abs string
	switch {
	case dart.IsRelative(uri):
		abs = filepath.Join(e.Dir, filepath.FromSlash(path.Dir(rel)), filepath.FromSlash(uri))
	case r.pkg != "" && r.libDir != "" && dart.PackageOf(uri) == r.pkg:
		abs = filepath.Join(r.libDir, filepath.FromSlash(strings.TrimPrefix(uri, "package:"+r.pkg+"/")))
	default:
		return nil, ""
	}

	if _, ok := within(e.Dir, abs); ok {
		return nil, ""
	}

	var best *Entry
	var bestSub string
	for _, name := range m.Names() {
		d := m[name]
		if d == e || d.Dir == "" {
			continue
		}
		sub, ok := within(d.Dir, abs)
		if !ok {
			continue
		}
		// Nested component directories: the innermost one owns the file.
		if best == nil || len(d.Dir) > len(best.Dir) {
			best, bestSub = d, sub
		}
	}
	return best, bestSub
}

// within returns the slash path of p relative to dir when p lies below dir.
func within(dir, p string) (string, bool) {
	sub, err := filepath.Rel(dir, p)
	if err != nil || sub == "." || sub == ".." || strings.HasPrefix(sub, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(sub), true
}

// copyFiles copies dep's own files into dst's template, never overwriting.
func (r *Resolver) copyFiles(dep, dst *Entry, res *Result, dc *diag.Collector) {
	for _, rel := range dep.Own {
		target := dst.Artifact.Path(rel)
		if _, err := os.Stat(target); err == nil {
			res.FilesSkipped++
			continue
		}
		if err := brick.CopyFile(dep.Artifact.Path(rel), target); err != nil {
			dc.Error("copy_failed", dst.Name, rel, fmt.Errorf("from %s: %w", dep.Name, err))
			continue
		}
		res.FilesCopied++
	}
}

func (r *Resolver) read(p string) (string, error) {
	if src, ok := r.files.Get(p); ok {
		return src, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	r.files.Add(p, string(data))
	return string(data), nil
}

func (r *Resolver) write(p, content string) error {
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		r.files.Remove(p)
		return err
	}
	r.files.Add(p, content)
	return nil
}

func (e *Entry) ownSources() []string {
	var out []string
	for _, f := range e.Own {
		if strings.HasSuffix(f, crawler.SourceExt) {
			out = append(out, f)
		}
	}
	return out
}

// classVariants lists the names a dependent may use for a component:
// Pascal(name), the prefixed form, and the identifiers attributed to it.
func classVariants(component, prefix string, attributed []string) []string {
	pascal := dart.Pascal(component)
	set := map[string]bool{pascal: true}
	if prefix != "" && !strings.HasPrefix(pascal, prefix) {
		set[prefix+pascal] = true
	}
	for _, ident := range attributed {
		set[ident] = true
	}
	return sortedKeys(set)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func mentionsAny(src string, idents []string) bool {
	code := stripNoise(src)
	for _, ident := range idents {
		if dart.ContainsIdentifier(code, ident) {
			return true
		}
	}
	return false
}

// relativeImport returns the URI that imports target from the file at from,
// both relative to the template root.
func relativeImport(from, target string) string {
	dir := path.Dir(from)
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
