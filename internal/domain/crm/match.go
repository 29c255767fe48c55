package crm

import "strings"

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveMatch narrows candidates returned by a broad query. It returns the
// first candidate, in the order the platform returned them, whose field
// equals input after both are reduced to digits. Candidates with an empty
// field never match. Callers that need a deterministic winner among several
// matches must order the query.
func ResolveMatch(candidates []Record, field, input string) (Record, bool) {
	want := DigitsOnly(input)
	if want == "" {
		return nil, false
	}
	for _, c := range candidates {
		raw := stringify(c[field])
		if raw == "" {
			continue
		}
		if DigitsOnly(raw) == want {
			return c, true
		}
	}
	return nil, false
}
