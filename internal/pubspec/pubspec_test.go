package pubspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePubspec(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writePubspec(t, "name: ui_kit\nversion: 2.3.1+14\nenvironment:\n  sdk: '>=3.0.0 <4.0.0'\n")

	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ui_kit", p.Name)
	assert.Equal(t, "2.3.1+14", p.Version)
	assert.Equal(t, "2.3.1", p.SemVer())
}

func TestSemVer(t *testing.T) {
	tests := map[string]string{
		"1.0.0":        "1.0.0",
		"1.0.0-beta.1": "1.0.0-beta.1",
		"v0.4.2":       "0.4.2",
		"":             FallbackVersion,
		"latest":       FallbackVersion,
		"1.2":          FallbackVersion,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, (&Pubspec{Version: in}).SemVer())
		})
	}
	var nilSpec *Pubspec
	assert.Equal(t, FallbackVersion, nilSpec.SemVer())
}

func TestVersionOf_Fallbacks(t *testing.T) {
	assert.Equal(t, FallbackVersion, VersionOf(t.TempDir()))
	assert.Equal(t, FallbackVersion, VersionOf(writePubspec(t, "name: [unclosed")))
	assert.Equal(t, "3.1.4", VersionOf(writePubspec(t, "name: kit\nversion: 3.1.4\n")))
}
