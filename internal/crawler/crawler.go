package crawler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"brickgen/internal/diag"

	"go.uber.org/zap"
)

// SourceExt is the extension of the source files a component is made of.
const SourceExt = ".dart"

// Component is one discovered UI component directory.
type Component struct {
	Name string
	// Dir is the absolute component directory.
	Dir string
	// Sources are slash-separated paths relative to Dir, sorted and unique.
	Sources []string
	// Assets are the non-source files, relative to Dir.
	Assets []string
}

// Crawler scans a components directory for component folders.
type Crawler struct {
	templateDir string
	ignored     []string
	logger      *zap.Logger
}

// NewCrawler creates a new crawler that skips the given materialized-template
// directory name wherever it appears.
func NewCrawler(templateDir string, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		templateDir: templateDir,
		ignored:     []string{".git", ".dart_tool", "build", "node_modules"},
		logger:      logger,
	}
}

// Discover lists the first-level subdirectories of <root>/<componentsPath>
// that contain at least one source file. A missing components directory is
// reported as a warning and yields no components.
func (c *Crawler) Discover(root, componentsPath string) ([]Component, []diag.Diagnostic) {
	col := diag.NewCollector(diag.StageDiscover, c.logger)
	base := filepath.Join(root, filepath.FromSlash(componentsPath))

	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			col.Warn("components_path_missing", "", componentsPath, "components path %s does not exist", base)
		} else {
			col.Warn("components_path_unreadable", "", componentsPath, "cannot list %s: %v", base, err)
		}
		return nil, col.Diagnostics()
	}

	var components []Component
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == c.templateDir || c.isIgnored(entry.Name()) {
			continue
		}

		dir, err := filepath.Abs(filepath.Join(base, entry.Name()))
		if err != nil {
			col.Warn("component_path", entry.Name(), "", "cannot resolve path: %v", err)
			continue
		}

		sources, assets, err := c.scanComponent(dir)
		if err != nil {
			// Log and continue instead of failing the whole scan
			col.Warn("component_unreadable", entry.Name(), "", "scan failed: %v", err)
			continue
		}
		if len(sources) == 0 {
			col.Info("no_sources", entry.Name(), "", "skipped: no %s files", SourceExt)
			continue
		}

		components = append(components, Component{
			Name:    entry.Name(),
			Dir:     dir,
			Sources: sources,
			Assets:  assets,
		})
	}

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })
	c.logger.Debug("components discovered", zap.String("path", base), zap.Int("count", len(components)))
	return components, col.Diagnostics()
}

func (c *Crawler) scanComponent(dir string) ([]string, []string, error) {
	srcSet := make(map[string]bool)
	assetSet := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored and materialized-template directories
		if d.IsDir() {
			if path != dir && (d.Name() == c.templateDir || c.isIgnored(d.Name())) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasSuffix(d.Name(), SourceExt) {
			srcSet[rel] = true
		} else {
			assetSet[rel] = true
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return sortedKeys(srcSet), sortedKeys(assetSet), nil
}

func (c *Crawler) isIgnored(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
