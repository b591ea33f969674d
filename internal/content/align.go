package content

import (
	"regexp"
	"strings"
)

// Align is a block alignment direction.
type Align string

const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign accepts left, center, right, or "" and "none" for no wrapper.
func ParseAlign(s string) (Align, bool) {
	switch a := Align(strings.ToLower(strings.TrimSpace(s))); a {
	case AlignLeft, AlignCenter, AlignRight, AlignNone:
		return a, true
	case "none":
		return AlignNone, true
	}
	return AlignNone, false
}

var alignOpen = regexp.MustCompile(`^:::(left|center|right)\s*$`)

type segment struct {
	Align Align
	Body  string
}

// splitAligned cuts src into plain and aligned segments. Fences inside code
// blocks are ignored; an unclosed wrapper runs to the end of the document.
func splitAligned(src string) []segment {
	var (
		segs    []segment
		cur     strings.Builder
		align   Align
		fence   fenceTracker
		started bool
	)
	flush := func() {
		if cur.Len() > 0 || align != AlignNone {
			segs = append(segs, segment{Align: align, Body: cur.String()})
		}
		cur.Reset()
	}

	for _, line := range strings.SplitAfter(src, "\n") {
		started = true
		trimmed := strings.TrimSpace(line)
		if !fence.inside() {
			if align == AlignNone {
				if m := alignOpen.FindStringSubmatch(trimmed); m != nil {
					flush()
					align = Align(m[1])
					continue
				}
			} else if trimmed == ":::" {
				flush()
				align = AlignNone
				continue
			}
		}
		fence.feed(line)
		cur.WriteString(line)
	}
	if started {
		flush()
	}
	return segs
}

var alignWrapper = regexp.MustCompile(`^:::(left|center|right)[ \t]*\n([\s\S]*?)\n?:::[ \t]*$`)

// WrapAlignment wraps text[start:end] in an alignment block and returns the
// new text. A selection already wrapped, or sitting directly inside a
// wrapper, has that wrapper replaced instead of nested. AlignNone unwraps.
func WrapAlignment(text string, start, end int, align Align) string {
	start, end = clampRange(text, start, end)

	inner := text[start:end]
	if m := alignWrapper.FindStringSubmatch(inner); m != nil {
		inner = m[2]
	} else {
		before, after := text[:start], text[end:]
		if open := lastLine(before); alignOpen.MatchString(strings.TrimSpace(open)) && hasCloseNext(after) {
			start -= len(open)
			end += len(firstLine(after))
		}
	}

	prefix, suffix := text[:start], text[end:]
	if align == AlignNone {
		return prefix + inner + suffix
	}
	var b strings.Builder
	b.WriteString(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(":::" + string(align) + "\n")
	b.WriteString(inner)
	if !strings.HasSuffix(inner, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(":::")
	if suffix != "" && !strings.HasPrefix(suffix, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(suffix)
	return b.String()
}

// lastLine returns the final complete line of s including its newline, or ""
// when s does not end in one.
func lastLine(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return ""
	}
	i := strings.LastIndexByte(s[:len(s)-1], '\n')
	return s[i+1:]
}

// firstLine returns the leading newline of s and the line after it.
func firstLine(s string) string {
	if !strings.HasPrefix(s, "\n") {
		return ""
	}
	rest := s[1:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		return s[:i+1]
	}
	return s
}

func hasCloseNext(after string) bool {
	line := firstLine(after)
	return line != "" && strings.TrimSpace(line) == ":::"
}

func clampRange(text string, start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}
	return start, end
}
