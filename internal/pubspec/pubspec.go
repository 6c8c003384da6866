// Package pubspec reads the repository's top-level package manifest.
package pubspec

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FileName = "pubspec.yaml"

	// FallbackVersion is used when the manifest is missing or its version is unusable.
	FallbackVersion = "0.1.0"
)

type Pubspec struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

var semverPattern = regexp.MustCompile(`^v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`)

// Load reads <repoRoot>/pubspec.yaml.
func Load(repoRoot string) (*Pubspec, error) {
	path := filepath.Join(repoRoot, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var p Pubspec
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Version = strings.TrimSpace(p.Version)
	return &p, nil
}

// SemVer returns the manifest version without build metadata, or
// FallbackVersion when it does not look like a semantic version.
func (p *Pubspec) SemVer() string {
	if p == nil {
		return FallbackVersion
	}
	m := semverPattern.FindStringSubmatch(p.Version)
	if m == nil {
		return FallbackVersion
	}
	return m[1]
}

// VersionOf is the "read top-level package manifest version" lookup. It
// never fails; a missing or unparsable manifest yields FallbackVersion.
func VersionOf(repoRoot string) string {
	p, err := Load(repoRoot)
	if err != nil {
		return FallbackVersion
	}
	return p.SemVer()
}
