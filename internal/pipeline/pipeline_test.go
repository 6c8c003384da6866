package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"brickgen/internal/brick"
	"brickgen/internal/config"
	"brickgen/internal/diag"
	"brickgen/internal/report"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const spacingSource = `class AppSpacing {
  AppSpacing._();

  static const double sm = 8.0;
  static const double md = sm * 2;
}
`

const buttonSource = `import 'package:flutter/material.dart';
import 'package:google_fonts/google_fonts.dart';

import '../../foundation/spacing.dart';

class AppButton extends StatelessWidget {
  const AppButton({super.key});

  @override
  Widget build(BuildContext context) {
    return Padding(
      padding: EdgeInsets.all(AppSpacing.sm),
      child: Text('go', style: GoogleFonts.inter()),
    );
  }
}
`

const cardSource = `import 'package:flutter/material.dart';
import 'package:acme_ui/components/button/button.dart';

import '../../foundation/spacing.dart';

class AppCard extends StatelessWidget {
  const AppCard({super.key});

  @override
  Widget build(BuildContext context) {
    return Padding(
      padding: EdgeInsets.all(AppSpacing.md),
      child: const AppButton(),
    );
  }
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

func fixtureRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "pubspec.yaml", "name: acme_ui\nversion: 2.1.0+4\n")
	writeFile(t, root, "lib/foundation/spacing.dart", spacingSource)
	writeFile(t, root, "lib/components/button/button.dart", buttonSource)
	writeFile(t, root, "lib/components/card/card.dart", cardSource)
	writeFile(t, root, "lib/components/empty/README.md", "no dart here\n")
	return root
}

func fixtureConfig() *config.Config {
	cfg := config.Default()
	cfg.ComponentsPath = "lib/components"
	cfg.Foundations = []config.Foundation{{Key: "spacing", Path: "lib/foundation/spacing.dart"}}
	return cfg
}

// treeDigest hashes every file under root by relative path.
func treeDigest(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		sum := sha256.Sum256(data)
		out[filepath.ToSlash(rel)] = hex.EncodeToString(sum[:])
		return nil
	})
	require.NoError(t, err)
	return out
}

func brickPath(root, component, rel string) string {
	return filepath.Join(root, "lib", "components", component, "brick", brick.SourceDirName, filepath.FromSlash(rel))
}

func TestPipeline_Run(t *testing.T) {
	root := fixtureRepo(t)
	p := New(fixtureConfig(), zaptest.NewLogger(t))

	res := p.Run(context.Background(), root)
	require.NotNil(t, res.Report)
	assert.Zero(t, diag.Count(res.Diagnostics, diag.SeverityError), "diagnostics: %v", res.Diagnostics)

	t.Run("every stage is reported", func(t *testing.T) {
		var names []string
		for _, st := range res.Report.Stages {
			names = append(names, st.Name)
			assert.Equal(t, report.StatusOK, st.Status, st.Name)
		}
		want := []string{"discover", "materialize", "resolve_constants", "resolve_dependencies", "report"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("stages mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("artifacts are materialized", func(t *testing.T) {
		require.Len(t, res.Components, 2)
		m, err := brick.ReadManifest(filepath.Join(root, "lib/components/button/brick"))
		require.NoError(t, err)
		assert.Equal(t, "button", m.Name)
		assert.Equal(t, "2.1.0", m.Version)
		assert.Equal(t, 2, res.Report.Summary.ArtifactsCreated)
		assert.NoDirExists(t, filepath.Join(root, "lib/components/empty/brick"))
	})

	t.Run("constants are inlined", func(t *testing.T) {
		src := readFile(t, brickPath(root, "button", "button.dart"))
		assert.Contains(t, src, "EdgeInsets.all(8.0)")
		assert.NotContains(t, src, "AppSpacing")
		assert.NotContains(t, src, "spacing.dart")
		assert.Contains(t, src, "package:google_fonts/google_fonts.dart")

		card := readFile(t, brickPath(root, "card", "card.dart"))
		assert.NotContains(t, card, "AppSpacing")
		assert.Equal(t, buttonSource, readFile(t, filepath.Join(root, "lib/components/button/button.dart")), "sources stay untouched")
	})

	t.Run("dependencies are inlined", func(t *testing.T) {
		assert.Equal(t, []string{"button"}, res.Dependencies["card"].Dependencies)
		card := readFile(t, brickPath(root, "card", "card.dart"))
		assert.Equal(t, 1, strings.Count(card, "button.dart"), card)
		assert.Contains(t, card, "import 'button.dart';")
		assert.NotContains(t, card, "components/button")
		assert.Equal(t, 1, res.Dependencies["card"].ImportsRewritten)
		assert.Equal(t, readFile(t, brickPath(root, "button", "button.dart")), readFile(t, brickPath(root, "card", "button.dart")))
	})

	t.Run("dependency graph is summarized", func(t *testing.T) {
		var counters map[string]float64
		for _, st := range res.Report.Stages {
			if st.Name == string(diag.StageDependencies) {
				counters = st.Counters
			}
		}
		require.NotNil(t, counters)
		assert.Equal(t, 1.0, counters["max_fan_in"])
		assert.Equal(t, 1.0, counters["imports_rewritten"])
		assert.Zero(t, counters["ambiguous"])
		assert.Zero(t, counters["cycles"])
		assert.Contains(t, counters, "unowned")

		var dependents []string
		for _, c := range res.Report.Components {
			if c.Name == "button" {
				dependents = c.Dependents
			}
		}
		assert.Equal(t, []string{"card"}, dependents)
	})

	t.Run("third-party packages are documented", func(t *testing.T) {
		for _, c := range []string{"button", "card"} {
			md := readFile(t, filepath.Join(root, "lib/components", c, "brick", report.DependenciesFile))
			assert.Contains(t, md, "flutter pub add google_fonts", c)
		}
	})
}

func TestPipeline_RunIsIdempotent(t *testing.T) {
	root := fixtureRepo(t)
	p := New(fixtureConfig(), zaptest.NewLogger(t))

	p.Run(context.Background(), root)
	first := treeDigest(t, root)

	second := p.Run(context.Background(), root)
	assert.Zero(t, second.Report.Summary.ArtifactsCreated)
	for name, cr := range second.Constants {
		assert.Zero(t, cr.FilesRewritten, name)
	}
	for name, dr := range second.Dependencies {
		assert.Zero(t, dr.FilesCopied, name)
		assert.Zero(t, dr.ImportsInjected, name)
		assert.Zero(t, dr.ImportsRewritten, name)
	}

	if diff := cmp.Diff(first, treeDigest(t, root)); diff != "" {
		t.Errorf("second run changed the tree (-first +second):\n%s", diff)
	}
}

func TestPipeline_MissingComponentsPath(t *testing.T) {
	root := t.TempDir()
	cfg := fixtureConfig()
	cfg.ComponentsPath = "lib/nowhere"

	res := New(cfg, nil).Run(context.Background(), root)
	assert.Empty(t, res.Components)
	assert.Len(t, res.Report.Stages, 5)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, "components_path_missing", res.Diagnostics[0].Code)
	assert.Zero(t, diag.Count(res.Diagnostics, diag.SeverityError))
}

func TestPipeline_CanceledContext(t *testing.T) {
	root := fixtureRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(fixtureConfig(), zaptest.NewLogger(t)).Run(ctx, root)
	assert.Empty(t, res.Artifacts)
	assert.NoDirExists(t, filepath.Join(root, "lib/components/button/brick"))

	var codes []string
	for _, d := range res.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, "canceled")
}
