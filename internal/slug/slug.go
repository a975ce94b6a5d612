// Package slug derives stable machine-readable codes from display names.
package slug

import (
	"regexp"
	"strings"
)

const maxLen = 40

var valid = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// IsSlug reports whether s is already a well-formed code.
func IsSlug(s string) bool {
	return valid.MatchString(s)
}

// Slugify lowercases s, replaces runs of other characters with a single
// underscore, caps the result at 40 characters and strips edge underscores.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range strings.ToLower(s) {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		switch {
		case ok:
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
		if b.Len() >= maxLen {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}
