package server

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

type flash struct {
	Kind string // success, warning, error or info
	Text string
}

type formValues struct {
	Name        string
	College     string
	RegNo       string
	Event       string
	Competition string
}
