package handler

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"go-wiki-engine/internal/middleware"
	"go-wiki-engine/internal/service"
)

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	pageService service.PageServicer
	baseURL     string
	linkBase    string
}

// NewSeoHandler creates a new SeoHandler. baseURL is the public origin and
// linkBase the path pages are served under.
func NewSeoHandler(ps service.PageServicer, baseURL, linkBase string) *SeoHandler {
	if linkBase == "" {
		linkBase = "/wiki"
	}
	return &SeoHandler{
		pageService: ps,
		baseURL:     strings.TrimRight(baseURL, "/"),
		linkBase:    "/" + strings.Trim(linkBase, "/"),
	}
}

// robotsHandler serves robots.txt pointing at the sitemap.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /api/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler lists every viewable page. Folders have no page of their own.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.pageService.ListPages(r.Context())
	if err != nil {
		return toAppError(err, "Failed to retrieve pages for sitemap")
	}

	sitemap := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, page := range pages {
		if page.IsFolder {
			continue
		}
		sitemap.URLs = append(sitemap.URLs, sitemapURL{
			Loc:     h.baseURL + h.linkBase + "/" + page.ID,
			LastMod: page.UpdatedAt.Format(sitemapDateFormat),
		})
	}

	out, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to generate sitemap XML", Code: http.StatusInternalServerError}
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	w.Write(out)
	return nil
}
