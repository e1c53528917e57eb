// Package web embeds the server-rendered pages and the static client script.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every page template. Pages are addressed by file name, e.g. "dashboard.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"isTechnician": func(role string) bool { return role == "technician" || role == "admin" },
	}).ParseFS(templateFS, "templates/*.html")
}

// Static returns the files served under /static/
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
