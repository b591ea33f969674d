package content

import (
	"regexp"
	"strings"
)

// openLink matches an unterminated "[[" at the end of the text before the
// cursor. A "|" ends the title part, so label typing does not suggest.
var openLink = regexp.MustCompile(`\[\[([^\[\]\n|]*)$`)

// OpenLinkQuery reports whether the cursor sits inside an unterminated
// internal link and returns the fragment typed so far. Closing the brackets
// or moving the cursor out of the token ends suggestion mode.
func OpenLinkQuery(text string, cursor int) (string, bool) {
	if cursor < 0 || cursor > len(text) {
		return "", false
	}
	m := openLink.FindStringSubmatch(text[:cursor])
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CompleteLink replaces the open link before the cursor with a finished
// [[title]] and returns the new text and cursor. Closing brackets already
// typed after the cursor are reused. When there is no open link the text is
// returned unchanged.
func CompleteLink(text string, cursor int, title string) (string, int) {
	if cursor < 0 || cursor > len(text) {
		return text, cursor
	}
	loc := openLink.FindStringIndex(text[:cursor])
	if loc == nil {
		return text, cursor
	}
	rest := text[cursor:]
	rest = strings.TrimPrefix(rest, "]]")
	token := "[[" + title + "]]"
	return text[:loc[0]] + token + rest, loc[0] + len(token)
}
