package brick

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"brickgen/internal/crawler"

	"go.uber.org/zap"
)

// Artifact is the template produced for one component.
type Artifact struct {
	Name string
	// Dir holds the manifest; SourceDir (Dir/__brick__) holds the template files.
	Dir       string
	SourceDir string
	Manifest  Manifest
	// Files are slash-separated paths relative to SourceDir.
	Files []string
}

// SourceFiles returns the artifact's Dart files.
func (a *Artifact) SourceFiles() []string {
	var out []string
	for _, f := range a.Files {
		if strings.HasSuffix(f, crawler.SourceExt) {
			out = append(out, f)
		}
	}
	return out
}

// Path returns the absolute path of a file relative to SourceDir.
func (a *Artifact) Path(rel string) string {
	return filepath.Join(a.SourceDir, filepath.FromSlash(rel))
}

// Materializer creates template artifacts from discovered components.
type Materializer struct {
	templateDir string
	repoName    string
	version     string
	logger      *zap.Logger
}

func NewMaterializer(templateDir, repoName, version string, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{
		templateDir: templateDir,
		repoName:    repoName,
		version:     version,
		logger:      logger,
	}
}

// ArtifactDir returns where the artifact of a component directory lives.
func (m *Materializer) ArtifactDir(componentDir string) string {
	return filepath.Join(componentDir, m.templateDir)
}

// Materialize creates the artifact for c. It returns created=false without
// touching the disk when the artifact directory already exists.
func (m *Materializer) Materialize(c crawler.Component) (*Artifact, bool, error) {
	dir := m.ArtifactDir(c.Dir)
	if _, err := os.Stat(dir); err == nil {
		m.logger.Debug("artifact exists, skipping", zap.String("component", c.Name))
		return nil, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("stat %s: %w", dir, err)
	}

	a := &Artifact{
		Name:      c.Name,
		Dir:       dir,
		SourceDir: filepath.Join(dir, SourceDirName),
		Manifest:  NewManifest(c.Name, m.repoName, m.version),
	}
	if err := os.MkdirAll(a.SourceDir, 0755); err != nil {
		return nil, true, fmt.Errorf("create %s: %w", a.SourceDir, err)
	}
	if err := writeManifest(dir, a.Manifest); err != nil {
		return nil, true, fmt.Errorf("write manifest: %w", err)
	}

	for _, rel := range c.Assets {
		if err := CopyFile(filepath.Join(c.Dir, filepath.FromSlash(rel)), a.Path(rel)); err != nil {
			return nil, true, fmt.Errorf("copy %s: %w", rel, err)
		}
		a.Files = append(a.Files, rel)
	}

	written, err := m.writeSources(c, a)
	if err != nil {
		return nil, true, err
	}
	a.Files = append(a.Files, written...)
	sort.Strings(a.Files)

	m.logger.Info("artifact materialized",
		zap.String("component", c.Name),
		zap.Int("files", len(a.Files)),
		zap.String("version", m.version))
	return a, true, nil
}

func (m *Materializer) writeSources(c crawler.Component, a *Artifact) ([]string, error) {
	if mergesSources(c) {
		sources := make([]Source, 0, len(c.Sources))
		for _, rel := range c.Sources {
			data, err := os.ReadFile(filepath.Join(c.Dir, filepath.FromSlash(rel)))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", rel, err)
			}
			sources = append(sources, Source{Rel: rel, Content: string(data)})
		}
		merged := MergeSources(c.Name, sources)
		if err := writeFile(a.Path(merged.Rel), []byte(merged.Content)); err != nil {
			return nil, fmt.Errorf("write merged %s: %w", merged.Rel, err)
		}
		m.logger.Debug("sources merged",
			zap.String("component", c.Name),
			zap.String("into", merged.Rel),
			zap.Int("files", len(sources)))
		return []string{merged.Rel}, nil
	}

	// One file, or files spread over subdirectories whose relative imports
	// must stay resolvable: copy as-is.
	out := make([]string, 0, len(c.Sources))
	for _, rel := range c.Sources {
		if err := CopyFile(filepath.Join(c.Dir, filepath.FromSlash(rel)), a.Path(rel)); err != nil {
			return nil, fmt.Errorf("copy %s: %w", rel, err)
		}
		out = append(out, rel)
	}
	return out, nil
}

func mergesSources(c crawler.Component) bool {
	return len(c.Sources) > 1 && SameDir(c.Sources)
}

// OwnFiles returns the artifact paths c's own files materialize to, as
// opposed to files later inlined from other components.
func OwnFiles(c crawler.Component) []string {
	out := append([]string(nil), c.Assets...)
	if mergesSources(c) {
		out = append(out, PrimaryFile(c.Name, c.Sources))
	} else {
		out = append(out, c.Sources...)
	}
	sort.Strings(out)
	return out
}

// LoadArtifact opens an artifact that was materialized earlier.
func LoadArtifact(name, dir string) (*Artifact, error) {
	a := &Artifact{Name: name, Dir: dir, SourceDir: filepath.Join(dir, SourceDirName)}
	manifest, err := ReadManifest(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	a.Manifest = manifest

	files, err := ListFiles(a.SourceDir)
	if err != nil {
		return nil, err
	}
	a.Files = files
	return a, nil
}

// ListFiles returns every regular file under dir as sorted slash paths.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// CopyFile copies src to dst, creating parent directories.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
