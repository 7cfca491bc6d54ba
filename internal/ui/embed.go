package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed all:static
var staticFS embed.FS

// StaticFS returns the embedded static/ filesystem with the "static" prefix
// stripped.
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

// Stylesheet returns the contents of an embedded stylesheet, e.g.
// "kanban.css". Generated pages inline it so they can be saved as a single
// file.
func Stylesheet(name string) (string, error) {
	data, err := staticFS.ReadFile("static/" + name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Handler serves the embedded stylesheets. Mount it with the prefix
// stripped, e.g. http.StripPrefix("/static/", h).
func Handler() (http.Handler, error) {
	sub, err := StaticFS()
	if err != nil {
		return nil, err
	}
	return http.FileServerFS(sub), nil
}
