// Package report writes what a run leaves behind for people: the
// per-artifact dependency notes and the JSON run report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DependenciesFile is written next to brick.yaml when an artifact still
// imports third-party packages.
const DependenciesFile = "DEPENDENCIES.md"

// WriteDependencies documents the third-party packages of one artifact. It
// writes nothing and returns false when packages is empty.
func WriteDependencies(artifactDir, component string, packages []string) (bool, error) {
	pkgs := uniqueSorted(packages)
	if len(pkgs) == 0 {
		return false, nil
	}
	path := filepath.Join(artifactDir, DependenciesFile)
	if err := os.WriteFile(path, []byte(RenderDependencies(component, pkgs)), 0644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// RenderDependencies returns the DEPENDENCIES.md content.
func RenderDependencies(component string, packages []string) string {
	pkgs := uniqueSorted(packages)

	var b strings.Builder
	b.WriteString("# Dependencies\n\n")
	fmt.Fprintf(&b, "The `%s` template imports packages that are not part of the Flutter SDK.\n", component)
	b.WriteString("Add them to the target project before generating it:\n\n")
	b.WriteString("```sh\n")
	fmt.Fprintf(&b, "flutter pub add %s\n", strings.Join(pkgs, " "))
	b.WriteString("```\n\n")
	b.WriteString("| Package | Install |\n")
	b.WriteString("|---|---|\n")
	for _, p := range pkgs {
		fmt.Fprintf(&b, "| `%s` | `flutter pub add %s` |\n", p, p)
	}
	return b.String()
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
