package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"brickgen/internal/diag"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDependencies(t *testing.T) {
	dir := t.TempDir()

	written, err := WriteDependencies(dir, "button", []string{"google_fonts", "flutter_svg", "google_fonts", " "})
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(filepath.Join(dir, DependenciesFile))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "The `button` template")
	assert.Contains(t, content, "flutter pub add flutter_svg google_fonts\n")
	assert.Contains(t, content, "| `flutter_svg` | `flutter pub add flutter_svg` |\n| `google_fonts` |")

	t.Run("rewrite is stable", func(t *testing.T) {
		_, err := WriteDependencies(dir, "button", []string{"flutter_svg", "google_fonts"})
		require.NoError(t, err)
		again, err := os.ReadFile(filepath.Join(dir, DependenciesFile))
		require.NoError(t, err)
		assert.Equal(t, content, string(again))
	})

	t.Run("nothing to report", func(t *testing.T) {
		empty := t.TempDir()
		written, err := WriteDependencies(empty, "card", nil)
		require.NoError(t, err)
		assert.False(t, written)
		assert.NoFileExists(t, filepath.Join(empty, DependenciesFile))
	})
}

func TestRunReport(t *testing.T) {
	r := NewRunReport("/tmp/repo")
	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err)

	h := r.BeginStage(diag.StageDiscover)
	r.EndStage(h, "", map[string]float64{"components": 3, " ": 1}, []string{" ", "lib/components"}, nil)
	h = r.BeginStage(diag.StageDependencies)
	r.EndStage(h, StatusOK, nil, nil, errors.New("boom"))

	r.AddDiagnostics(
		diag.Diagnostic{Stage: diag.StageDiscover, Severity: diag.SeverityInfo, Code: "no_sources", Message: "skipped"},
		diag.Diagnostic{Stage: diag.StageConstants, Severity: diag.SeverityError, Code: "write_failed", Message: "denied"},
		diag.Diagnostic{Stage: diag.StageConstants, Severity: diag.SeverityWarning, Code: "reference_cycle", Message: "cap"},
	)
	r.AddComponent(ComponentSummary{Name: "button", Created: true})
	r.AddComponent(ComponentSummary{Name: "card", Failed: true})
	r.AddComponent(ComponentSummary{})

	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, r.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got RunReport
	require.NoError(t, json.Unmarshal(data, &got))

	require.Len(t, got.Stages, 2)
	assert.Equal(t, StatusOK, got.Stages[0].Status)
	assert.Equal(t, map[string]float64{"components": 3}, got.Stages[0].Counters)
	assert.Equal(t, []string{"lib/components"}, got.Stages[0].Notes)
	assert.Equal(t, StatusError, got.Stages[1].Status)
	assert.Equal(t, "boom", got.Stages[1].Error)

	require.Len(t, got.Diagnostics, 3)
	assert.Equal(t, "write_failed", got.Diagnostics[0].Code)
	assert.Equal(t, "reference_cycle", got.Diagnostics[1].Code)

	assert.Equal(t, Summary{
		StageCount:       2,
		FailedStages:     1,
		ComponentCount:   2,
		ArtifactsCreated: 1,
		FailedComponents: 1,
		DiagnosticsBySeverity: map[string]int{
			"error":   1,
			"warning": 1,
			"info":    1,
		},
	}, got.Summary)
}

func TestRunReport_NilSafe(t *testing.T) {
	var r *RunReport
	r.AddDiagnostics(diag.Diagnostic{Code: "x"})
	r.AddComponent(ComponentSummary{Name: "x"})
	r.Finalize()
	assert.NoError(t, r.Save(filepath.Join(t.TempDir(), "never.json")))
}
