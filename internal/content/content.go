// Package content turns wiki markdown into sanitised HTML and pulls the
// structured bits (internal links, managed media) out of raw page content.
package content

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/logger"

	"github.com/microcosm-cc/bluemonday"
)

// Mode selects presentation defaults.
type Mode int

const (
	// ModeView is the read-only page viewer.
	ModeView Mode = iota
	// ModePreview is the editor's live preview.
	ModePreview
)

// DefaultImageWidth is the width given to images without a size annotation.
func (m Mode) DefaultImageWidth() string {
	if m == ModePreview {
		return "500"
	}
	return "100%"
}

// LinkResolver finds the page an internal link points at. The source page is
// never a valid target.
type LinkResolver interface {
	Resolve(title, sourceID string) (*data.Page, bool)
}

// DiagramRenderer turns diagram source into trusted markup.
type DiagramRenderer interface {
	Render(ctx context.Context, lang, source string) (string, error)
}

// DefaultDiagramLanguages are the fenced code languages rendered as diagrams.
var DefaultDiagramLanguages = []string{"mermaid", "plantuml", "graphviz", "dot", "d2"}

// Config holds processor-wide settings.
type Config struct {
	LinkBase         string
	MediaPrefix      string
	DiagramLanguages []string
	Diagrams         DiagramRenderer
}

// Options are per-call settings.
type Options struct {
	Mode     Mode
	SourceID string
	Resolver LinkResolver
}

// LinkRef is one internal link found while rendering.
type LinkRef struct {
	Title  string `json:"title"`
	Label  string `json:"label"`
	PageID string `json:"page_id,omitempty"`
	Broken bool   `json:"broken"`
}

// DiagramResult records how one diagram block rendered.
type DiagramResult struct {
	Lang  string `json:"lang"`
	Error string `json:"error,omitempty"`
}

// Rendered is the output of Process.
type Rendered struct {
	HTML     string          `json:"html"`
	Links    []LinkRef       `json:"links"`
	Media    []string        `json:"media"`
	Diagrams []DiagramResult `json:"diagrams"`
}

// Processor renders page content. It is safe for concurrent use; a fresh
// goldmark engine is built for every call.
type Processor struct {
	linkBase    string
	mediaPrefix string
	languages   map[string]bool
	diagrams    DiagramRenderer
	policy      *bluemonday.Policy
	log         logger.Logger
}

// NewProcessor builds a processor. A nil logger discards output.
func NewProcessor(cfg Config, log logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	langs := cfg.DiagramLanguages
	if len(langs) == 0 {
		langs = DefaultDiagramLanguages
	}
	set := make(map[string]bool, len(langs))
	for _, l := range langs {
		set[strings.ToLower(strings.TrimSpace(l))] = true
	}
	linkBase := strings.TrimRight(cfg.LinkBase, "/")
	if linkBase == "" {
		linkBase = "/wiki"
	}
	prefix := cfg.MediaPrefix
	if prefix == "" {
		prefix = DefaultMediaPrefix
	}
	return &Processor{
		linkBase:    linkBase,
		mediaPrefix: prefix,
		languages:   set,
		diagrams:    cfg.Diagrams,
		policy:      newPolicy(),
		log:         log,
	}
}

var classPattern = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)

// newPolicy extends the UGC policy with the wiki's own classes, data
// attributes and image widths.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div", "span")
	p.AllowAttrs("class").Matching(classPattern).Globally()
	p.AllowDataAttributes()
	p.AllowAttrs("width").Matching(bluemonday.NumberOrPercent).OnElements("img")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}

// MediaPrefix returns the managed media prefix used for extraction.
func (p *Processor) MediaPrefix() string { return p.mediaPrefix }

// Process renders src. Diagram and link failures degrade inside the HTML;
// an error is only returned when the context is done or goldmark fails.
func (p *Processor) Process(ctx context.Context, src string, opts Options) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &renderState{proc: p, opts: opts}
	md := p.engine(st)

	var buf bytes.Buffer
	for _, seg := range splitAligned(src) {
		if seg.Align != "" {
			buf.WriteString(`<div class="wiki-align wiki-align-` + string(seg.Align) + `">` + "\n")
		}
		if err := md.Convert([]byte(seg.Body), &buf); err != nil {
			return nil, fmt.Errorf("markdown render: %w", err)
		}
		if seg.Align != "" {
			buf.WriteString("</div>\n")
		}
	}

	out := p.policy.Sanitize(buf.String())
	out, results := p.spliceDiagrams(ctx, st.diagrams, out)

	links := st.links
	if links == nil {
		links = []LinkRef{}
	}
	return &Rendered{
		HTML:     out,
		Links:    links,
		Media:    ExtractMedia(src, p.mediaPrefix),
		Diagrams: results,
	}, nil
}

func diagramPlaceholder(i int) string {
	return `<div data-wiki-diagram="` + strconv.Itoa(i) + `"></div>`
}

// spliceDiagrams swaps sanitised placeholders for renderer output. Renderer
// markup is trusted and never passes through the sanitiser.
func (p *Processor) spliceDiagrams(ctx context.Context, blocks []*diagramBlock, out string) (string, []DiagramResult) {
	results := make([]DiagramResult, 0, len(blocks))
	for i, b := range blocks {
		res := DiagramResult{Lang: b.Lang}
		var markup string
		var err error
		if p.diagrams == nil {
			err = fmt.Errorf("no diagram renderer configured")
		} else if err = ctx.Err(); err == nil {
			markup, err = p.diagrams.Render(ctx, b.Lang, b.Source)
		}

		var block string
		if err != nil {
			res.Error = err.Error()
			p.log.With(map[string]interface{}{"lang": b.Lang}).Warn(fmt.Sprintf("diagram render failed: %v", err))
			block = `<div class="wiki-diagram wiki-diagram-error"><pre><code class="language-` + html.EscapeString(b.Lang) + `">` +
				html.EscapeString(b.Source) + `</code></pre><p class="wiki-diagram-message">Diagram could not be rendered: ` +
				html.EscapeString(err.Error()) + `</p></div>`
		} else {
			block = `<div class="wiki-diagram wiki-diagram-` + html.EscapeString(b.Lang) + `">` + markup + `</div>`
		}
		out = strings.Replace(out, diagramPlaceholder(i), block, 1)
		results = append(results, res)
	}
	return out, results
}
