package views

import (
	"embed"
	"html/template"

	"github.com/a-h/templ"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var templates = template.Must(template.New("views").ParseFS(templateFiles, "templates/*.tmpl"))

// component binds one of the named templates to its data.
func component(name string, data any) templ.Component {
	return templ.FromGoHTML(templates.Lookup(name), data)
}
