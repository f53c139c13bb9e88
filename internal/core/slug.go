package core

import "strings"

// Slugify derives a Character's addressing key from its display name:
// lowercased, whitespace runs collapsed to a single underscore, and any
// character outside [a-z0-9_-] stripped.
func Slugify(displayName string) string {
	lower := strings.ToLower(strings.TrimSpace(displayName))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range lower {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			// stripped
		}
	}
	return strings.Trim(b.String(), "_")
}
