package resolver

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	colorWithPattern = regexp.MustCompile(`^(?:const\s+)?Color\(\s*(0[xX][0-9a-fA-F]{1,8})\s*\)\.with(Opacity|Alpha)\(\s*([^()]+?)\s*\)$`)

	textStyleArgs = []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{"fontSize", regexp.MustCompile(`\bfontSize\s*:\s*(-?\d+(?:\.\d+)?)`)},
		{"fontWeight", regexp.MustCompile(`\bfontWeight\s*:\s*(FontWeight\.\w+)`)},
		{"height", regexp.MustCompile(`\bheight\s*:\s*(-?\d+(?:\.\d+)?)`)},
		{"letterSpacing", regexp.MustCompile(`\bletterSpacing\s*:\s*(-?\d+(?:\.\d+)?)`)},
		{"decoration", regexp.MustCompile(`\bdecoration\s*:\s*(TextDecoration\.\w+)`)},
	}
)

// SimplifyColor flattens a composed color into a single hex Color literal.
// Recognized forms are Color.fromRGBO, Color.fromARGB and a hex Color with
// withOpacity or withAlpha applied.
func SimplifyColor(v string) (string, bool) {
	v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "const "))

	if m := colorWithPattern.FindStringSubmatch(v); m != nil {
		base, err := strconv.ParseUint(m[1][2:], 16, 32)
		if err != nil {
			return "", false
		}
		rgb := base & 0xFFFFFF
		var alpha int
		switch m[2] {
		case "Opacity":
			o, err := strconv.ParseFloat(m[3], 64)
			if err != nil {
				return "", false
			}
			alpha = opacityToAlpha(o)
		case "Alpha":
			a, ok := parseChannel(m[3])
			if !ok {
				return "", false
			}
			alpha = a
		}
		return formatColor(alpha, rgb), true
	}

	callee, args, ok := splitCall(v)
	if !ok || len(args) != 4 {
		return "", false
	}
	switch callee {
	case "Color.fromRGBO":
		r, okR := parseChannel(args[0])
		g, okG := parseChannel(args[1])
		b, okB := parseChannel(args[2])
		o, err := strconv.ParseFloat(args[3], 64)
		if !okR || !okG || !okB || err != nil {
			return "", false
		}
		return formatColor(opacityToAlpha(o), uint64(r<<16|g<<8|b)), true
	case "Color.fromARGB":
		a, okA := parseChannel(args[0])
		r, okR := parseChannel(args[1])
		g, okG := parseChannel(args[2])
		b, okB := parseChannel(args[3])
		if !okA || !okR || !okG || !okB {
			return "", false
		}
		return formatColor(a, uint64(r<<16|g<<8|b)), true
	}
	return "", false
}

// SimplifyTextStyle rebuilds a text style from the keyword arguments it can
// read literally. The last occurrence of each argument wins, which matches
// copyWith overriding a base style.
func SimplifyTextStyle(v string) (string, bool) {
	var parts []string
	for _, arg := range textStyleArgs {
		all := arg.pattern.FindAllStringSubmatch(v, -1)
		if len(all) == 0 {
			continue
		}
		parts = append(parts, arg.name+": "+all[len(all)-1][1])
	}
	if len(parts) == 0 {
		return "", false
	}
	return "TextStyle(" + strings.Join(parts, ", ") + ")", true
}

func formatColor(alpha int, rgb uint64) string {
	if alpha >= 255 {
		return fmt.Sprintf("Color(0xFF%06X)", rgb&0xFFFFFF)
	}
	return fmt.Sprintf("Color(0x%08X)", uint64(alpha)<<24|rgb&0xFFFFFF)
}

func opacityToAlpha(o float64) int {
	a := int(math.Round(o * 255))
	switch {
	case a < 0:
		return 0
	case a > 255:
		return 255
	}
	return a
}

// parseChannel reads a 0-255 integer channel, decimal or hex.
func parseChannel(s string) (int, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil || n < 0 || n > 255 {
		return 0, false
	}
	return int(n), true
}

// splitCall splits `Callee(a, b)` into its callee and top-level arguments.
func splitCall(v string) (string, []string, bool) {
	m := calleePattern.FindStringSubmatch(v)
	if m == nil {
		return "", nil, false
	}
	inner, ok := callArgs(v)
	if !ok {
		return "", nil, false
	}
	return m[1], splitArgs(inner), true
}
