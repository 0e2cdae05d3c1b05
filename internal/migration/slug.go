package migration

import "strings"

// Slugify derives a URL slug from a display name: lowercase, every run of
// non-alphanumeric characters becomes a single hyphen, no leading or trailing
// hyphen. Deterministic so re-normalizing the same record yields the same slug.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
