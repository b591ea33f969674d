package content

import (
	"bytes"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// renderState is shared by the goldmark hooks of a single Process call.
type renderState struct {
	proc     *Processor
	opts     Options
	links    []LinkRef
	diagrams []*diagramBlock
}

func (p *Processor) engine(st *renderState) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM, &wikiExtension{state: st}),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

type wikiExtension struct {
	state *renderState
}

func (e *wikiExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		// Runs ahead of the standard link parser (200) so "[[" is never read
		// as a pair of reference links.
		parser.WithInlineParsers(util.Prioritized(&wikiLinkParser{state: e.state}, 199)),
		parser.WithASTTransformers(
			util.Prioritized(&imageSizeTransformer{state: e.state}, 100),
			util.Prioritized(&diagramTransformer{state: e.state}, 110),
		),
	)
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&wikiHTMLRenderer{state: e.state}, 500),
	))
}

// Internal links.

var wikiLinkKind = ast.NewNodeKind("WikiLink")

type wikiLink struct {
	ast.BaseInline
	Ref LinkRef
}

func (n *wikiLink) Kind() ast.NodeKind { return wikiLinkKind }

func (n *wikiLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Title":  n.Ref.Title,
		"Label":  n.Ref.Label,
		"PageID": n.Ref.PageID,
	}, nil)
}

type wikiLinkParser struct {
	state *renderState
}

func (p *wikiLinkParser) Trigger() []byte { return []byte{'['} }

func (p *wikiLinkParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 5 || line[0] != '[' || line[1] != '[' {
		return nil
	}
	end := bytes.Index(line[2:], []byte("]]"))
	if end < 0 {
		return nil
	}
	inner := line[2 : 2+end]
	if bytes.ContainsAny(inner, "[]") {
		return nil
	}
	title, label := splitLinkTarget(string(inner))
	if title == "" {
		return nil
	}
	block.Advance(end + 4)

	ref := LinkRef{Title: title, Label: label, Broken: true}
	if r := p.state.opts.Resolver; r != nil {
		if target, ok := r.Resolve(title, p.state.opts.SourceID); ok {
			ref.PageID = target.ID
			ref.Broken = false
		}
	}
	p.state.links = append(p.state.links, ref)
	return &wikiLink{Ref: ref}
}

// splitLinkTarget splits "Title|Label" and defaults the label to the title.
func splitLinkTarget(inner string) (title, label string) {
	title = inner
	if i := strings.IndexByte(inner, '|'); i >= 0 {
		title, label = inner[:i], inner[i+1:]
	}
	title = strings.TrimSpace(title)
	label = strings.TrimSpace(label)
	if label == "" {
		label = title
	}
	return title, label
}

// Sized images.

var widthAnnotation = regexp.MustCompile(`^\{\s*width\s*=\s*(\d+)(px|%)?\s*\}`)

type imageSizeTransformer struct {
	state *renderState
}

func (t *imageSizeTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	var images []*ast.Image
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			images = append(images, img)
		}
		return ast.WalkContinue, nil
	})

	for _, img := range images {
		width := t.state.opts.Mode.DefaultImageWidth()
		if next, ok := img.NextSibling().(*ast.Text); ok {
			value := next.Segment.Value(source)
			if m := widthAnnotation.FindSubmatch(value); m != nil {
				width = string(m[1])
				if string(m[2]) == "%" {
					width += "%"
				}
				if len(m[0]) == len(value) {
					next.Parent().RemoveChild(next.Parent(), next)
				} else {
					next.Segment = next.Segment.WithStart(next.Segment.Start + len(m[0]))
				}
			}
		}
		img.SetAttributeString("width", []byte(width))
	}
}

// Diagrams.

var diagramKind = ast.NewNodeKind("WikiDiagram")

type diagramBlock struct {
	ast.BaseBlock
	Index  int
	Lang   string
	Source string
}

func (n *diagramBlock) Kind() ast.NodeKind { return diagramKind }

func (n *diagramBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Lang":  n.Lang,
		"Index": strconv.Itoa(n.Index),
	}, nil)
}

type diagramTransformer struct {
	state *renderState
}

func (t *diagramTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()
	var fences []*ast.FencedCodeBlock
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fcb, ok := n.(*ast.FencedCodeBlock); ok && entering {
			fences = append(fences, fcb)
		}
		return ast.WalkContinue, nil
	})

	for _, fcb := range fences {
		lang := strings.ToLower(string(fcb.Language(source)))
		if !t.state.proc.languages[lang] {
			continue
		}
		var b strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		block := &diagramBlock{Index: len(t.state.diagrams), Lang: lang, Source: b.String()}
		t.state.diagrams = append(t.state.diagrams, block)
		fcb.Parent().ReplaceChild(fcb.Parent(), fcb, block)
	}
}

type wikiHTMLRenderer struct {
	state *renderState
}

func (r *wikiHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(wikiLinkKind, r.renderWikiLink)
	reg.Register(diagramKind, r.renderDiagram)
}

func (r *wikiHTMLRenderer) renderWikiLink(
	w util.BufWriter, source []byte, node ast.Node, entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	ref := node.(*wikiLink).Ref
	label := html.EscapeString(ref.Label)
	if ref.Broken {
		_, _ = w.WriteString(`<span class="wiki-link wiki-link-broken" data-title="`)
		_, _ = w.WriteString(html.EscapeString(ref.Title))
		_, _ = w.WriteString(`">`)
		_, _ = w.WriteString(label)
		_, _ = w.WriteString(`</span>`)
		return ast.WalkSkipChildren, nil
	}
	id := html.EscapeString(ref.PageID)
	_, _ = w.WriteString(`<a class="wiki-link" href="`)
	_, _ = w.WriteString(r.state.proc.linkBase + "/" + id)
	_, _ = w.WriteString(`" data-page-id="`)
	_, _ = w.WriteString(id)
	_, _ = w.WriteString(`">`)
	_, _ = w.WriteString(label)
	_, _ = w.WriteString(`</a>`)
	return ast.WalkSkipChildren, nil
}

func (r *wikiHTMLRenderer) renderDiagram(
	w util.BufWriter, source []byte, node ast.Node, entering bool,
) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(diagramPlaceholder(node.(*diagramBlock).Index))
	_, _ = w.WriteString("\n")
	return ast.WalkSkipChildren, nil
}
