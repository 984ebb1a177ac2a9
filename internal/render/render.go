// Package render executes the embedded HTML pages.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/4slk4/simple-note-taking/internal/user"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	PageIndex    = "index.html"
	PageLogin    = "login.html"
	PageRegister = "register.html"
)

// PageData is the value every page is executed with.
type PageData struct {
	User     *user.User
	Message  string
	Username string
}

type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{PageIndex, PageLogin, PageRegister} {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages}, nil
}

// Render writes page name with status. The page is executed into a buffer
// first so a template failure never leaves a half-written response.
func (r *Renderer) Render(response http.ResponseWriter, status int, name string, data PageData) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("execute %s: %w", name, err)
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	_, err := buf.WriteTo(response)

	return err
}
