package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	Login  = "login"
	Signup = "signup"
)

var titles = map[string]string{
	Login:  "Entrar",
	Signup: "Criar conta",
}

// Form is the data rendered into the auth pages. Passwords are never echoed.
type Form struct {
	Title string
	Error string
	Name  string
	Email string
}

// Renderer renders the server-side auth pages.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(titles))
	for name := range titles {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s view: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes the named page with the given status.
func (v *Renderer) Render(w http.ResponseWriter, status int, name string, form Form) error {
	tmpl, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	if form.Title == "" {
		form.Title = titles[name]
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", form); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
