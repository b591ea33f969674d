package content

import (
	"regexp"
	"strings"
)

// DefaultMediaPrefix is the path under which uploaded media is stored.
const DefaultMediaPrefix = "store/"

var (
	imageToken    = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+(?:"[^"]*"|'[^']*'))?\s*\)`)
	wikiLinkToken = regexp.MustCompile(`\[\[([^\[\]\n]+?)\]\]`)
	codeSpan      = regexp.MustCompile("`+[^`]*`+")
)

// fenceTracker follows ``` and ~~~ code fences line by line.
type fenceTracker struct {
	marker string
}

func (f *fenceTracker) inside() bool { return f.marker != "" }

// feed consumes one line and reports whether it belongs to a code block,
// fence lines included.
func (f *fenceTracker) feed(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return f.inside()
	}
	if f.marker != "" {
		if strings.HasPrefix(trimmed, f.marker) && strings.TrimSpace(strings.TrimLeft(trimmed, f.marker[:1])) == "" {
			f.marker = ""
		}
		return true
	}
	for _, ch := range []string{"`", "~"} {
		n := 0
		for n < len(trimmed) && trimmed[n] == ch[0] {
			n++
		}
		if n >= 3 {
			f.marker = strings.Repeat(ch, n)
			return true
		}
	}
	return false
}

// scanLines calls fn for every line outside fenced code, with inline code
// spans blanked out.
func scanLines(src string, fn func(line string)) {
	var fence fenceTracker
	for _, line := range strings.Split(src, "\n") {
		if fence.feed(line) {
			continue
		}
		fn(codeSpan.ReplaceAllString(line, ""))
	}
}

// IsManaged reports whether url points into the managed media prefix.
// Absolute URLs with a scheme are never managed.
func IsManaged(url, prefix string) bool {
	if prefix == "" {
		prefix = DefaultMediaPrefix
	}
	if strings.Contains(url, "://") || strings.HasPrefix(url, "//") {
		return false
	}
	u := strings.TrimPrefix(strings.TrimPrefix(url, "./"), "/")
	return strings.HasPrefix(u, strings.TrimPrefix(prefix, "/"))
}

// ExtractMedia returns the managed media URLs referenced by image tokens in
// src, in order of first appearance.
func ExtractMedia(src, prefix string) []string {
	seen := make(map[string]bool)
	out := []string{}
	scanLines(src, func(line string) {
		for _, m := range imageToken.FindAllStringSubmatch(line, -1) {
			url := m[1]
			if !IsManaged(url, prefix) || seen[url] {
				continue
			}
			seen[url] = true
			out = append(out, url)
		}
	})
	return out
}

// MediaSet is ExtractMedia as a set.
func MediaSet(src, prefix string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, url := range ExtractMedia(src, prefix) {
		set[url] = struct{}{}
	}
	return set
}

// ExtractLinks returns the titles of internal links in src, in order of first
// appearance. Titles compare case-insensitively.
func ExtractLinks(src string) []string {
	seen := make(map[string]bool)
	out := []string{}
	scanLines(src, func(line string) {
		for _, m := range wikiLinkToken.FindAllStringSubmatch(line, -1) {
			title, _ := splitLinkTarget(m[1])
			key := strings.ToLower(title)
			if title == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, title)
		}
	})
	return out
}
