package webui

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/jholhewres/buddy/pkg/buddy/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// pages holds the parsed HTML templates.
type pages struct {
	login *template.Template
	index *template.Template
}

// pageData is passed to every template.
type pageData struct {
	User     string
	Register bool
	Flashes  []auth.Flash
}

func mustParsePages() *pages {
	parse := func(name string) *template.Template {
		return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return &pages{
		login: parse("login.html"),
		index: parse("index.html"),
	}
}

// render executes t into a buffer first so a template error never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, t *template.Template, data pageData) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("rendering page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
