package deps

import (
	"regexp"
	"sort"
	"strings"

	"brickgen/internal/dart"
)

// Reference shapes that name another type.
var referenceShapes = []*regexp.Regexp{
	// AppButton(  /  const AppButton(
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9_]*)\s*\(`),
	// AppButtonSize size;  /  AppButtonSize? size = ...
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9_]*)\??\s+[a-z_][A-Za-z0-9_]*\s*[=;,)]`),
	// AppToast.show(
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9_]*)\.[A-Za-z_][A-Za-z0-9_]*\s*\(`),
	// ButtonSize.large
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9_]*)\.[a-z][A-Za-z0-9_]*\b`),
}

var (
	declarationPattern = regexp.MustCompile(`\b(?:class|enum|mixin|typedef|extension\s+type)\s+([A-Z][A-Za-z0-9_]*)`)
	variantSuffix      = regexp.MustCompile(`(?:Size|State|Shape|Style|Config|Variant|Type)$`)
)

// frameworkTypes are Flutter and Dart core names that match the naming
// conventions but never belong to a component.
var frameworkTypes = toSet(
	"Align", "Alignment", "AlignmentGeometry", "Animation", "AnimationController", "AnimatedBuilder",
	"AnimatedContainer", "AnimatedOpacity", "AppBar", "AppBarTheme", "AppLifecycleState", "BorderRadius",
	"Border", "BorderSide", "BorderStyle", "BoxConstraints", "BoxDecoration", "BoxFit", "BoxShadow",
	"BoxShape", "Brightness", "BuildContext", "Builder", "ButtonStyle", "Center", "ChangeNotifier",
	"CircleBorder", "Clip", "ClipRRect", "Color", "ColorScheme", "Colors", "Column", "Container",
	"CrossAxisAlignment", "Curves", "DateTime", "DefaultTextStyle", "Deprecated", "Directionality",
	"Duration", "EdgeInsets", "EdgeInsetsGeometry", "Expanded", "Flexible", "FocusNode", "FontStyle",
	"FontWeight", "Function", "Future", "GestureDetector", "Icon", "IconData", "IconTheme", "Icons",
	"Image", "InkWell", "Iterable", "Key", "LayoutBuilder", "List", "ListView", "MainAxisAlignment",
	"MainAxisSize", "Map", "Material", "MaterialState", "MaterialStateProperty", "MaterialType",
	"MediaQuery", "Navigator", "Object", "Offset", "Opacity", "OutlinedBorder", "Padding",
	"PageStorageKey", "Positioned", "Radius", "RoundedRectangleBorder", "Row", "Scaffold", "Semantics",
	"Set", "ShapeBorder", "Size", "SizedBox", "Stack", "StackFit", "StadiumBorder", "State",
	"StatefulWidget", "StatelessWidget", "Stream", "String", "Text", "TextAlign", "TextDecoration",
	"TextEditingController", "TextField", "TextOverflow", "TextStyle", "TextTheme", "Theme", "ThemeData",
	"ThemeMode", "TickerProviderStateMixin", "Tween", "Type", "ValueChanged", "ValueKey",
	"ValueListenableBuilder", "ValueNotifier", "VerticalDirection", "VoidCallback", "Widget",
	"WidgetState", "WidgetStateProperty", "WidgetsBinding",
)

func toSet(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// isComponentLike reports whether ident follows a component naming
// convention: the configured prefix followed by an upper-case letter, or a
// variant suffix.
func isComponentLike(ident, prefix string) bool {
	if frameworkTypes[ident] {
		return false
	}
	if prefix != "" && len(ident) > len(prefix) && strings.HasPrefix(ident, prefix) {
		if c := ident[len(prefix)]; c >= 'A' && c <= 'Z' {
			return true
		}
	}
	loc := variantSuffix.FindStringIndex(ident)
	return loc != nil && loc[0] > 0
}

// referencedTypes returns the component-like identifiers src refers to.
func referencedTypes(src, prefix string) []string {
	code := stripNoise(src)
	set := make(map[string]bool)
	for _, shape := range referenceShapes {
		for _, m := range shape.FindAllStringSubmatch(code, -1) {
			if isComponentLike(m[1], prefix) {
				set[m[1]] = true
			}
		}
	}
	return sortedKeys(set)
}

// declaredTypes returns the type names src declares.
func declaredTypes(src string) []string {
	set := make(map[string]bool)
	for _, m := range declarationPattern.FindAllStringSubmatch(stripNoise(src), -1) {
		set[m[1]] = true
	}
	return sortedKeys(set)
}

// stripNoise blanks out comments and string literals, keeping offsets and
// line breaks, so the reference shapes only see code.
func stripNoise(src string) string {
	b := []byte(src)
	for i := 0; i < len(b); {
		switch {
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				b[i] = ' '
				i++
			}
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			stop := len(b)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			blank(b, i, stop)
			i = stop
		case b[i] == '\'' || b[i] == '"':
			end := dart.SkipString(src, i)
			blank(b, i, end)
			i = end
		default:
			i++
		}
	}
	return string(b)
}

func blank(b []byte, from, to int) {
	for j := from; j < to; j++ {
		if b[j] != '\n' {
			b[j] = ' '
		}
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
