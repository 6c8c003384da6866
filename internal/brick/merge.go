package brick

import (
	"path"
	"sort"
	"strings"

	"brickgen/internal/dart"
)

// Source is a source file's path relative to its component and its content.
type Source struct {
	Rel     string
	Content string
}

const provenancePrefix = "// ---- merged from "

// PrimaryFile picks the file whose name best matches the component:
// an exact "<component>.dart" first, then names containing the component
// name, then lexical order.
func PrimaryFile(component string, files []string) string {
	if len(files) == 0 {
		return ""
	}
	ranked := append([]string(nil), files...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := matchRank(component, ranked[i]), matchRank(component, ranked[j])
		if ri != rj {
			return ri < rj
		}
		return ranked[i] < ranked[j]
	})
	return ranked[0]
}

func matchRank(component, rel string) int {
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	switch {
	case base == component:
		return 0
	case strings.Contains(base, component):
		return 1
	default:
		return 2
	}
}

// SameDir reports whether every file lives in one directory.
func SameDir(files []string) bool {
	for _, f := range files[1:] {
		if path.Dir(f) != path.Dir(files[0]) {
			return false
		}
	}
	return true
}

// MergeSources folds same-directory sources into one file named after the
// primary file. Directives are deduplicated and hoisted; directives that
// point at a merged sibling are dropped since the sibling is now inline.
func MergeSources(component string, sources []Source) Source {
	rels := make([]string, 0, len(sources))
	byRel := make(map[string]Source, len(sources))
	for _, s := range sources {
		rels = append(rels, s.Rel)
		byRel[s.Rel] = s
	}
	primary := PrimaryFile(component, rels)

	order := []string{primary}
	sort.Strings(rels)
	for _, r := range rels {
		if r != primary {
			order = append(order, r)
		}
	}

	eol := "\n"
	for _, s := range sources {
		if dart.LineEnding(s.Content) == "\r\n" {
			eol = "\r\n"
			break
		}
	}

	seen := make(map[string]bool)
	var imports, parts []string
	var bodies []string
	for _, rel := range order {
		directives, body := dart.SplitDirectives(byRel[rel].Content)
		for _, d := range directives {
			switch d.Kind {
			case dart.KindLibrary, dart.KindPartOf:
				continue
			}
			if dart.IsRelative(d.URI) && byRel[path.Join(path.Dir(rel), d.URI)].Rel != "" {
				continue
			}
			key := d.Normalized()
			if seen[key] {
				continue
			}
			seen[key] = true
			if d.Kind == dart.KindPart {
				parts = append(parts, d.Text)
			} else {
				imports = append(imports, d.Text)
			}
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		bodies = append(bodies, provenancePrefix+rel+" ----"+eol+body)
	}

	var b strings.Builder
	header := append(imports, parts...)
	if len(header) > 0 {
		b.WriteString(strings.Join(header, eol))
		b.WriteString(eol + eol)
	}
	b.WriteString(strings.Join(bodies, eol+eol))
	b.WriteString(eol)
	return Source{Rel: primary, Content: b.String()}
}
