package resolver

import "brickgen/internal/dart"

// Substitute replaces every qualified symbol occurring in src with its
// resolved value, longest name first so "AppColors.primaryDark" is never
// clipped by "AppColors.primary". Comments and string literals are left
// as written. It returns the number of replacements.
func (t *SymbolTable) Substitute(src string) (string, int) {
	total := 0
	for _, s := range t.Sorted() {
		var n int
		src, n = dart.ReplaceCodeIdentifier(src, s.Qualified, s.Value)
		total += n
	}
	return src, total
}
