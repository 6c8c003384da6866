package dart

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetSource = `library button;

import 'package:flutter/material.dart';
import 'package:ui_kit/foundation/app_colors.dart'
    show AppColors;
export 'button_style.dart';

class AppButton extends StatelessWidget {
  const AppButton({super.key});
}
`

func TestParseDirectives(t *testing.T) {
	ds := ParseDirectives(widgetSource)
	require.Len(t, ds, 4)

	got := make([]string, 0, len(ds))
	for _, d := range ds {
		got = append(got, string(d.Kind)+" "+d.URI)
	}
	want := []string{
		"library ",
		"import package:flutter/material.dart",
		"import package:ui_kit/foundation/app_colors.dart",
		"export button_style.dart",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}

	multi := ds[2]
	assert.Equal(t, 3, multi.StartLine)
	assert.Equal(t, 4, multi.EndLine)
	assert.Equal(t, "import 'package:ui_kit/foundation/app_colors.dart' show AppColors;", multi.Normalized())
}

func TestSplitDirectives(t *testing.T) {
	ds, body := SplitDirectives(widgetSource)
	assert.Len(t, ds, 4)
	assert.Equal(t, "class AppButton extends StatelessWidget {\n  const AppButton({super.key});\n}", body)
}

func TestRemoveDirectives(t *testing.T) {
	ds := ParseDirectives(widgetSource)
	out := RemoveDirectives(widgetSource, ds[2:3])
	assert.NotContains(t, out, "app_colors.dart")
	assert.NotContains(t, out, "show AppColors")
	assert.Contains(t, out, "export 'button_style.dart';")
	assert.Equal(t, widgetSource, RemoveDirectives(widgetSource, nil))
}

func TestInsertImport(t *testing.T) {
	t.Run("after last import and blank lines", func(t *testing.T) {
		src := "import 'package:flutter/material.dart';\n\nclass A {}\n"
		out, ok := InsertImport(src, "app_icon.dart")
		require.True(t, ok)
		assert.Equal(t, "import 'package:flutter/material.dart';\n\nimport 'app_icon.dart';\n\nclass A {}\n", out)
	})

	t.Run("deduplicated", func(t *testing.T) {
		src := "import 'app_icon.dart';\n\nclass A {}\n"
		out, ok := InsertImport(src, "app_icon.dart")
		assert.False(t, ok)
		assert.Equal(t, src, out)
	})

	t.Run("no imports", func(t *testing.T) {
		out, ok := InsertImport("class A {}\n", "a.dart")
		require.True(t, ok)
		assert.Equal(t, "import 'a.dart';\n\nclass A {}\n", out)
	})
}

func TestReplaceDirective(t *testing.T) {
	src := "import 'package:flutter/material.dart';\nimport '../button/button.dart';\n\nclass A {}\n"
	ds := ParseDirectives(src)
	require.Len(t, ds, 2)
	out := ReplaceDirective(src, ds[1], "import 'button.dart';")
	assert.Equal(t, "import 'package:flutter/material.dart';\nimport 'button.dart';\n\nclass A {}\n", out)
	assert.Equal(t, src, ReplaceDirective(src, Directive{StartLine: 9, EndLine: 9}, "x"))
}

func TestLineEndings(t *testing.T) {
	src := "import 'package:flutter/material.dart';\r\n\r\nclass A {}\r\n"
	assert.Equal(t, "\r\n", LineEnding(src))
	assert.Equal(t, "\n", LineEnding("class A {}\n"))

	inserted, ok := InsertImport(src, "a.dart")
	require.True(t, ok)
	assert.Equal(t, "import 'package:flutter/material.dart';\r\n\r\nimport 'a.dart';\r\n\r\nclass A {}\r\n", inserted)

	removed := RemoveDirectives(inserted, ParseDirectives(inserted)[1:2])
	assert.NotContains(t, removed, "a.dart")
	assert.Equal(t, strings.Count(removed, "\n"), strings.Count(removed, "\r\n"), "bare LF in %q", removed)

	prepended, ok := InsertImport("class A {}\r\n", "a.dart")
	require.True(t, ok)
	assert.Equal(t, "import 'a.dart';\r\n\r\nclass A {}\r\n", prepended)

	_, body := SplitDirectives("import 'a.dart';\r\n\r\nclass A {\r\n}\r\n")
	assert.Equal(t, "class A {\r\n}", body)

	replaced := ReplaceDirective(src, ParseDirectives(src)[0], "import 'b.dart';")
	assert.Equal(t, "import 'b.dart';\r\n\r\nclass A {}\r\n", replaced)
}

func TestURIHelpers(t *testing.T) {
	assert.Equal(t, "google_fonts", PackageOf("package:google_fonts/google_fonts.dart"))
	assert.Equal(t, "", PackageOf("dart:ui"))
	assert.True(t, IsRelative("../icon/icon.dart"))
	assert.False(t, IsRelative("package:a/a.dart"))
	assert.True(t, IsSDK("dart:async"))
}

func TestReplaceIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		word  string
		repl  string
		want  string
		count int
	}{
		{"qualified", "color: AppColors.primary,", "AppColors.primary", "Color(0xFF000000)", "color: Color(0xFF000000),", 1},
		{"longer name untouched", "AppColors.primaryDark", "AppColors.primary", "X", "AppColors.primaryDark", 0},
		{"member access untouched", "theme.spacing2 + spacing2", "spacing2", "8.0", "theme.spacing2 + 8.0", 1},
		{"prefix untouched", "xspacing2", "spacing2", "8.0", "xspacing2", 0},
		{"multiple", "a(s) + b(s)", "s", "1", "a(1) + b(1)", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := ReplaceIdentifier(tt.src, tt.word, tt.repl)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, n)
			assert.Equal(t, tt.count > 0, ContainsIdentifier(tt.src, tt.word))
		})
	}
}

func TestReplaceCodeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  string
		count int
	}{
		{"code", "padding: AppSpacing.sm,", "padding: 8.0,", 1},
		{"string literal", "Text('Gap is AppSpacing.sm')", "Text('Gap is AppSpacing.sm')", 0},
		{"double quoted", `Text("AppSpacing.sm") + AppSpacing.sm`, `Text("AppSpacing.sm") + 8.0`, 1},
		{"interpolation", "Text('Gap ${AppSpacing.sm}')", "Text('Gap ${8.0}')", 1},
		{"raw string", "Text(r'${AppSpacing.sm}')", "Text(r'${AppSpacing.sm}')", 0},
		{"comments", "// AppSpacing.sm\n/* AppSpacing.sm /* nested */ */ x = AppSpacing.sm;", "// AppSpacing.sm\n/* AppSpacing.sm /* nested */ */ x = 8.0;", 1},
		{"triple quoted", "'''\nAppSpacing.sm\n''' + AppSpacing.sm", "'''\nAppSpacing.sm\n''' + 8.0", 1},
		{"escaped quote", `'it\'s AppSpacing.sm' + AppSpacing.sm`, `'it\'s AppSpacing.sm' + 8.0`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := ReplaceCodeIdentifier(tt.src, "AppSpacing.sm", "8.0")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, n)
		})
	}
}

func TestPascal(t *testing.T) {
	assert.Equal(t, "AppButton", Pascal("app_button"))
	assert.Equal(t, "Chip", Pascal("chip"))
	assert.Equal(t, "TextField", Pascal("text-field"))
}
