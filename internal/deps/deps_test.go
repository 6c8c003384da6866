package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brickgen/internal/brick"
	"brickgen/internal/crawler"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const buttonSource = `import 'package:flutter/material.dart';

enum AppButtonSize { small, large }

class AppButton extends StatelessWidget {
  const AppButton({super.key, this.size = AppButtonSize.small});

  final AppButtonSize size;

  @override
  Widget build(BuildContext context) => const SizedBox();
}
`

const cardSource = `import 'package:flutter/material.dart';

/// Looks like AppIcon(), but this is a comment.
class AppCard extends StatelessWidget {
  const AppCard({super.key});

  @override
  Widget build(BuildContext context) {
    return Column(
      children: const [
        Text('AppToast.show()'),
        AppButton(size: AppButtonSize.large),
      ],
    );
  }
}
`

const dialogSource = `import 'package:flutter/widgets.dart';

import 'src/dialog_body.dart';

class AppDialog extends StatelessWidget {
  const AppDialog({super.key});

  @override
  Widget build(BuildContext context) => const AppDialogBody();
}
`

const dialogBodySource = `import 'package:flutter/widgets.dart';

class AppDialogBody extends StatelessWidget {
  const AppDialogBody({super.key});

  @override
  Widget build(BuildContext context) => const AppCard();
}
`

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

// materializedRepo builds a component tree and materializes every component.
func materializedRepo(t *testing.T) []crawler.Component {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "lib/components/button/button.dart", buttonSource)
	writeFile(t, root, "lib/components/card/card.dart", cardSource)
	writeFile(t, root, "lib/components/dialog/dialog.dart", dialogSource)
	writeFile(t, root, "lib/components/dialog/src/dialog_body.dart", dialogBodySource)

	comps, ds := crawler.NewCrawler("brick", zaptest.NewLogger(t)).Discover(root, "lib/components")
	require.Empty(t, ds)
	require.Len(t, comps, 3)

	mat := brick.NewMaterializer("brick", "acme_ui", "1.0.0", zaptest.NewLogger(t))
	for _, c := range comps {
		_, created, err := mat.Materialize(c)
		require.NoError(t, err)
		require.True(t, created)
	}
	return comps
}

func resolveAll(t *testing.T, comps []crawler.Component) map[string]Result {
	t.Helper()
	r, err := NewResolver("brick", "App", zaptest.NewLogger(t))
	require.NoError(t, err)

	m, ds := r.BuildMap(comps)
	require.Empty(t, ds)
	results, _ := r.Resolve(m)

	out := make(map[string]Result, len(results))
	for _, res := range results {
		out[res.Component] = res
	}
	return out
}

func brickFile(c crawler.Component, rel string) string {
	return filepath.Join(c.Dir, "brick", brick.SourceDirName, filepath.FromSlash(rel))
}

func TestResolver_InlinesDependencies(t *testing.T) {
	comps := materializedRepo(t)
	button, card, dialog := comps[0], comps[1], comps[2]
	results := resolveAll(t, comps)

	t.Run("leaf component has no dependencies", func(t *testing.T) {
		res := results["button"]
		assert.Empty(t, res.Dependencies)
		assert.Empty(t, res.Unowned)
		assert.Zero(t, res.FilesCopied)
	})

	t.Run("direct dependency", func(t *testing.T) {
		res := results["card"]
		assert.Equal(t, []string{"button"}, res.Dependencies)
		if diff := cmp.Diff([]string{"AppButton", "AppButtonSize"}, res.Attributed["button"]); diff != "" {
			t.Errorf("attributed mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, 1, res.FilesCopied)
		assert.Equal(t, 1, res.ImportsInjected)

		assert.Equal(t, buttonSource, readFile(t, brickFile(card, "button.dart")))
		src := readFile(t, brickFile(card, "card.dart"))
		assert.Equal(t, 1, strings.Count(src, "import 'button.dart';"))
		assert.NotContains(t, readFile(t, brickFile(button, "button.dart")), "import 'card.dart';")
	})

	t.Run("transitive dependencies are inlined", func(t *testing.T) {
		res := results["dialog"]
		assert.Equal(t, []string{"card"}, res.Dependencies)
		assert.Equal(t, []string{"button", "card"}, res.Inlined)
		assert.Equal(t, 2, res.FilesCopied)

		body := readFile(t, brickFile(dialog, "src/dialog_body.dart"))
		assert.Contains(t, body, "import '../card.dart';")
		assert.NotContains(t, readFile(t, brickFile(dialog, "dialog.dart")), "card.dart")

		copied := readFile(t, brickFile(dialog, "card.dart"))
		assert.Contains(t, copied, "import 'button.dart';", "inlined files keep their own imports")
		assert.FileExists(t, brickFile(dialog, "button.dart"))
	})

	t.Run("repeat run changes nothing", func(t *testing.T) {
		before := readFile(t, brickFile(card, "card.dart"))
		again := resolveAll(t, comps)

		assert.Zero(t, again["card"].FilesCopied)
		assert.Equal(t, 1, again["card"].FilesSkipped)
		assert.Zero(t, again["card"].ImportsInjected)
		assert.Zero(t, again["dialog"].ImportsInjected)
		assert.Equal(t, before, readFile(t, brickFile(card, "card.dart")))
	})
}

func TestResolver_DoesNotOverwrite(t *testing.T) {
	comps := materializedRepo(t)
	card := comps[1]
	writeFile(t, filepath.Join(card.Dir, "brick", brick.SourceDirName), "button.dart", "// local copy\n")

	results := resolveAll(t, comps)
	assert.Equal(t, 1, results["card"].FilesSkipped)
	assert.Equal(t, "// local copy\n", readFile(t, brickFile(card, "button.dart")))
}

func TestBuildMap_SkipsUnmaterialized(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/components/chip/chip.dart", "class AppChip {}\n")
	comps, _ := crawler.NewCrawler("brick", nil).Discover(root, "lib/components")

	r, err := NewResolver("brick", "App", nil)
	require.NoError(t, err)
	m, ds := r.BuildMap(comps)
	assert.Empty(t, m)
	assert.Empty(t, ds)
}

func TestReferencedTypes(t *testing.T) {
	src := `class AppBadge {
  final BadgeVariant variant;
  final AppBar bar; // AppHidden(
  static void show() => AppToast.show('AppQuoted()');
  Widget build(BuildContext context) => AppChip(shape: ChipShape.round);
}
`
	got := referencedTypes(src, "App")
	want := []string{"AppChip", "AppToast", "BadgeVariant", "ChipShape"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("referencedTypes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"AppBadge"}, declaredTypes(src))
}

func TestIsComponentLike(t *testing.T) {
	tests := map[string]bool{
		"AppButton":    true,
		"ButtonSize":   true,
		"CardVariant":  true,
		"AppBar":       false,
		"Apple":        false,
		"TextStyle":    false,
		"Size":         false,
		"Container":    false,
		"MainAxisSize": false,
	}
	for ident, want := range tests {
		assert.Equal(t, want, isComponentLike(ident, "App"), ident)
	}
}

func TestRelativeImport(t *testing.T) {
	assert.Equal(t, "button.dart", relativeImport("card.dart", "button.dart"))
	assert.Equal(t, "../card.dart", relativeImport("src/body.dart", "card.dart"))
	assert.Equal(t, "widgets/row.dart", relativeImport("list.dart", "widgets/row.dart"))
}

func TestResolver_MutualDependencies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/components/menu/menu.dart", "class AppMenu {\n  final AppMenuItem? item = null;\n}\n")
	writeFile(t, root, "lib/components/menu_item/menu_item.dart", "class AppMenuItem {\n  AppMenu? parent;\n}\n")
	comps, _ := crawler.NewCrawler("brick", nil).Discover(root, "lib/components")
	mat := brick.NewMaterializer("brick", "acme_ui", "1.0.0", nil)
	for _, c := range comps {
		_, _, err := mat.Materialize(c)
		require.NoError(t, err)
	}

	r, err := NewResolver("brick", "App", nil)
	require.NoError(t, err)
	m, _ := r.BuildMap(comps)
	results, ds := r.Resolve(m)
	require.Len(t, results, 2)

	var cycles int
	for _, d := range ds {
		if d.Code == "dependency_cycle" {
			cycles++
		}
	}
	assert.Equal(t, 1, cycles)
	assert.Equal(t, []string{"menu_item"}, results[0].Inlined)
	assert.Equal(t, []string{"menu"}, results[1].Inlined)
	assert.FileExists(t, brickFile(comps[0], "menu_item.dart"))
	assert.FileExists(t, brickFile(comps[1], "menu.dart"))
}

func materialize(t *testing.T, root string) []crawler.Component {
	t.Helper()
	comps, _ := crawler.NewCrawler("brick", nil).Discover(root, "lib/components")
	mat := brick.NewMaterializer("brick", "acme_ui", "1.0.0", nil)
	for _, c := range comps {
		_, _, err := mat.Materialize(c)
		require.NoError(t, err)
	}
	return comps
}

func byName(comps []crawler.Component) map[string]crawler.Component {
	out := make(map[string]crawler.Component, len(comps))
	for _, c := range comps {
		out[c.Name] = c
	}
	return out
}

func TestResolver_RewritesOriginImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/components/button/button.dart", buttonSource)
	writeFile(t, root, "lib/components/card/card.dart", `import 'package:flutter/material.dart';
import '../button/button.dart';

class AppCard extends StatelessWidget {
  @override
  Widget build(BuildContext context) => const AppButton();
}
`)
	writeFile(t, root, "lib/components/panel/panel.dart", `import 'package:flutter/material.dart';
import 'package:acme_ui/components/button/button.dart' show AppButton;

class AppPanel extends StatelessWidget {
  @override
  Widget build(BuildContext context) => const AppButton();
}
`)
	writeFile(t, root, "lib/components/badge/badge.dart", "class AppBadge {}\n")
	writeFile(t, root, "lib/components/tile/tile.dart", "import '../badge/badge.dart';\n\nclass AppTile {}\n")
	comps := byName(materialize(t, root))

	resolve := func() (map[string]Result, []string) {
		r, err := NewResolver("brick", "App", zaptest.NewLogger(t))
		require.NoError(t, err)
		r.WithPackage("acme_ui", filepath.Join(root, "lib"))
		m, _ := r.BuildMap(byNameSlice(comps))
		results, ds := r.Resolve(m)
		out := make(map[string]Result, len(results))
		for _, res := range results {
			out[res.Component] = res
		}
		var codes []string
		for _, d := range ds {
			codes = append(codes, d.Code)
		}
		return out, codes
	}
	results, codes := resolve()

	t.Run("relative import into the dependency", func(t *testing.T) {
		src := readFile(t, brickFile(comps["card"], "card.dart"))
		assert.Equal(t, "import 'package:flutter/material.dart';\nimport 'button.dart';\n", src[:strings.Index(src, "\n\n")+1])
		assert.NotContains(t, src, "../button/")
		assert.Equal(t, 1, results["card"].ImportsRewritten)
		assert.Zero(t, results["card"].ImportsInjected)
	})

	t.Run("own package import keeps combinators", func(t *testing.T) {
		src := readFile(t, brickFile(comps["panel"], "panel.dart"))
		assert.Contains(t, src, "import 'button.dart' show AppButton;")
		assert.NotContains(t, src, "package:acme_ui")
		assert.Equal(t, 1, strings.Count(src, "button.dart"))
	})

	t.Run("import of a component that is not inlined", func(t *testing.T) {
		assert.Empty(t, results["tile"].Inlined)
		assert.Contains(t, codes, "dangling_import")
		assert.Contains(t, readFile(t, brickFile(comps["tile"], "tile.dart")), "import '../badge/badge.dart';")
	})

	t.Run("repeat run changes nothing", func(t *testing.T) {
		before := readFile(t, brickFile(comps["card"], "card.dart"))
		again, _ := resolve()
		assert.Zero(t, again["card"].ImportsRewritten)
		assert.Zero(t, again["panel"].ImportsRewritten)
		assert.Equal(t, before, readFile(t, brickFile(comps["card"], "card.dart")))
	})
}

func byNameSlice(m map[string]crawler.Component) []crawler.Component {
	out := make([]crawler.Component, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func TestResolver_PartFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "lib/components/button/button.dart", buttonSource)
	writeFile(t, root, "lib/components/card/card.dart", `import 'package:flutter/material.dart';

part 'src/card_body.dart';

class AppCard extends StatelessWidget {
  @override
  Widget build(BuildContext context) => const _CardBody();
}
`)
	writeFile(t, root, "lib/components/card/src/card_body.dart", `part of '../card.dart';

class _CardBody extends StatelessWidget {
  const _CardBody();

  @override
  Widget build(BuildContext context) => const AppButton();
}
`)
	writeFile(t, root, "lib/components/menu/menu.dart", "library menu;\n\npart 'src/menu_entry.dart';\n\nclass AppMenu {}\n")
	writeFile(t, root, "lib/components/menu/src/menu_entry.dart", "part of menu;\n\nclass _Entry {\n  final AppButton button = const AppButton();\n}\n")
	comps := byName(materialize(t, root))

	r, err := NewResolver("brick", "App", zaptest.NewLogger(t))
	require.NoError(t, err)
	m, _ := r.BuildMap(byNameSlice(comps))
	results, _ := r.Resolve(m)
	got := make(map[string]Result, len(results))
	for _, res := range results {
		got[res.Component] = res
	}

	t.Run("part of by uri", func(t *testing.T) {
		assert.Equal(t, []string{"button"}, got["card"].Dependencies)
		assert.Equal(t, 1, got["card"].ImportsInjected)
		lib := readFile(t, brickFile(comps["card"], "card.dart"))
		assert.Contains(t, lib, "import 'button.dart';\n\npart 'src/card_body.dart';")
		assert.NotContains(t, readFile(t, brickFile(comps["card"], "src/card_body.dart")), "import ")
	})

	t.Run("part of by library name", func(t *testing.T) {
		assert.Equal(t, 1, got["menu"].ImportsInjected)
		assert.Equal(t, "library menu;\n\nimport 'button.dart';\n\npart 'src/menu_entry.dart';\n\nclass AppMenu {}\n",
			readFile(t, brickFile(comps["menu"], "menu.dart")))
		assert.NotContains(t, readFile(t, brickFile(comps["menu"], "src/menu_entry.dart")), "import ")
	})
}
