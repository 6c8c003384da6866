package resolver

import (
	"path"
	"sort"
	"strings"

	"brickgen/internal/config"
	"brickgen/internal/dart"
)

// standardPackages are never removed and never reported as third party.
var standardPackages = map[string]bool{
	"flutter":               true,
	"flutter_test":          true,
	"flutter_localizations": true,
}

// ImportPolicy decides which import directives point at foundation modules
// and which name third-party packages.
type ImportPolicy struct {
	packageName string
	basenames   map[string]bool
	fragments   []string
}

// NewImportPolicy builds the policy for a repository whose pubspec declares
// packageName (may be empty).
func NewImportPolicy(packageName string, foundations []config.Foundation) *ImportPolicy {
	p := &ImportPolicy{packageName: packageName, basenames: make(map[string]bool)}
	seen := make(map[string]bool)
	for _, f := range foundations {
		clean := path.Clean(strings.TrimPrefix(f.Path, "./"))
		p.basenames[path.Base(clean)] = true

		dir := path.Base(path.Dir(clean))
		switch dir {
		case ".", "/", "lib", "src":
			continue
		}
		if !seen[dir] {
			seen[dir] = true
			p.fragments = append(p.fragments, dir)
		}
	}
	return p
}

// IsStandard reports whether uri is an SDK or framework import.
func (p *ImportPolicy) IsStandard(uri string) bool {
	return dart.IsSDK(uri) || standardPackages[dart.PackageOf(uri)]
}

// IsFoundation reports whether uri imports a foundation module, the
// directory holding them, or the repository's own barrel library.
func (p *ImportPolicy) IsFoundation(uri string) bool {
	if p.IsStandard(uri) {
		return false
	}
	pkg := dart.PackageOf(uri)
	if pkg != "" && p.packageName != "" && pkg != p.packageName {
		return false
	}
	if p.basenames[path.Base(uri)] {
		return true
	}
	if p.packageName != "" && uri == "package:"+p.packageName+"/"+p.packageName+".dart" {
		return true
	}
	for _, frag := range p.fragments {
		if strings.Contains(uri, "/"+frag+"/") || strings.HasPrefix(uri, frag+"/") {
			return true
		}
	}
	return false
}

// CleanImports removes the foundation import and export directives of src
// and returns their URIs.
func (p *ImportPolicy) CleanImports(src string) (string, []string) {
	var drop []dart.Directive
	var removed []string
	for _, d := range dart.ParseDirectives(src) {
		if d.IsImportLike() && p.IsFoundation(d.URI) {
			drop = append(drop, d)
			removed = append(removed, d.URI)
		}
	}
	if len(drop) == 0 {
		return src, nil
	}
	return dart.RemoveDirectives(src, drop), removed
}

// ThirdParty returns the sorted package names src imports that are neither
// standard nor the repository's own package.
func (p *ImportPolicy) ThirdParty(src string) []string {
	set := make(map[string]bool)
	for _, d := range dart.ParseDirectives(src) {
		if !d.IsImportLike() {
			continue
		}
		pkg := dart.PackageOf(d.URI)
		if pkg == "" || standardPackages[pkg] || pkg == p.packageName {
			continue
		}
		set[pkg] = true
	}
	out := make([]string, 0, len(set))
	for pkg := range set {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}
