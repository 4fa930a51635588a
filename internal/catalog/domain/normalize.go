package domain

import "strings"

// NormalizeReference strips everything outside [a-z0-9] and case-folds, the
// fuzzy-match key for supplier SKUs ("VRS-19" and "vrs19" compare equal).
func NormalizeReference(reference string) string {
	var b strings.Builder
	b.Grow(len(reference))
	for _, r := range strings.ToLower(reference) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SplitReferences splits a possibly consolidated multi-SKU reference field
// ("VRS-19, VRS-20") into its member SKUs.
func SplitReferences(reference string) []string {
	parts := strings.FieldsFunc(reference, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
