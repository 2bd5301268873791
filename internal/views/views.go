// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/isdelr/inventory-tracker/internal/auth"
	"github.com/isdelr/inventory-tracker/internal/models"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var files embed.FS

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"` // success, error or info
	Message  string `json:"m"`
}

// Page is the data every template receives.
type Page struct {
	Title     string
	Principal *auth.Principal
	Flashes   []Flash
	Data      any
}

// ListData backs the inventory list page.
type ListData struct {
	Items   []models.Item
	Summary models.InventorySummary
}

// ItemData backs the view and edit pages.
type ItemData struct {
	Item models.Item
}

// SearchData backs the search results page.
type SearchData struct {
	Query string
	Items []models.Item
}

// AuthFormData refills the login/register forms.
type AuthFormData struct {
	Username string
	Email    string
	Next     string
}

// ErrorData backs the error page.
type ErrorData struct {
	Status  int
	Message string
}

var funcs = template.FuncMap{
	"datetime": FormatDateTime,
	"money": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
	"upper": strings.ToUpper,
}

// FormatDateTime renders timestamps as dd/mm/YYYY HH:MM in UTC.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02/01/2006 15:04")
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page together with the shared layout.
func New() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, path := range names {
		name := strings.TrimPrefix(path, "templates/")
		if name == "layout.html" || name == "partials.html" {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(files,
			"templates/layout.html", "templates/partials.html", path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render writes page with the given status. Templates are executed into a
// buffer first so a failing template never produces half a page.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	tmpl, ok := r.pages[name]
	if !ok {
		log.Error().Str("template", name).Msg("Unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
