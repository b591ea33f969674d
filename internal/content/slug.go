package content

import "strings"

// Slugify lowercases title and collapses every run of characters outside
// [a-z0-9] into a single dash, trimming dashes at either end. A title with
// no ASCII letters or digits has an empty slug.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
