// Package view renders the embedded HTML templates of the page viewer.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"go-wiki-engine/internal/middleware"
)

// DefaultLinkBase is used when no link base path is configured.
const DefaultLinkBase = "/wiki"

// View holds one template set per page, each parsed together with the
// shared layouts.
type View struct {
	linkBase  string
	templates map[string]*template.Template
}

var _ middleware.Renderer = (*View)(nil)

// New parses templates/layouts/*.html with each templates/pages/*.html
// from templateFS. Page links in templates are built under linkBase.
func New(templateFS fs.FS, linkBase string) (*View, error) {
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}
	v := &View{
		linkBase:  "/" + strings.Trim(linkBase, "/"),
		templates: make(map[string]*template.Template),
	}

	layouts, err := fs.Glob(templateFS, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}

	funcs := template.FuncMap{
		"pageURL": v.PageURL,
		"stamp":   stamp,
	}
	for _, page := range pages {
		name := path.Base(page)
		files := append(append([]string{}, layouts...), page)
		ts, err := template.New(name).Funcs(funcs).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.templates[name] = ts
	}
	return v, nil
}

// PageURL returns the viewer path of a page.
func (v *View) PageURL(id string) string {
	return v.linkBase + "/" + id
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// Render executes the named page template into w. The current user is
// added to data under "UserInfo" unless the caller set it. Output is
// buffered so a failing template writes nothing.
func (v *View) Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error {
	ts, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	if data == nil {
		data = make(map[string]interface{})
	}
	if _, ok := data["UserInfo"]; !ok {
		data["UserInfo"] = middleware.GetUserInfo(r.Context())
	}

	var buf bytes.Buffer
	if err := ts.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
