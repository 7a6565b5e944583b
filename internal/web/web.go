// Package web holds the embedded browser UI.
package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// IndexData is rendered into the home page.
type IndexData struct {
	Address string
}

// ResultData is rendered into the upload result fragment.
type ResultData struct {
	Success bool
	Count   int
	Error   string
}

// RenderIndex writes the home page.
func RenderIndex(w io.Writer, data IndexData) error {
	return templates.ExecuteTemplate(w, "index.html", data)
}

// RenderResult writes the fragment shown after a form upload.
func RenderResult(w io.Writer, data ResultData) error {
	return templates.ExecuteTemplate(w, "result.html", data)
}
