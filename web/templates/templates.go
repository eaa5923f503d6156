package templates

import (
	"embed"
	"html/template"

	"github.com/bjaergning/rapport/web/templates/components"
)

//go:embed *.html
var files embed.FS

// Load parses all pages. Each page is addressed by its file name.
func Load() (*template.Template, error) {
	return template.New("").Funcs(components.FuncMap()).ParseFS(files, "*.html")
}
