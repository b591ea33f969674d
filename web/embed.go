// Package web embeds the viewer templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// TemplateFS provides access to the embedded template files.
var TemplateFS fs.FS = templateFS

// StaticFS provides access to the embedded static asset files, rooted at
// the static directory.
var StaticFS, _ = fs.Sub(staticFS, "static")
