package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/isdelr/inventory-tracker/internal/auth"
	"github.com/isdelr/inventory-tracker/internal/views"
)

// newPage collects pending flashes, the principal and page data.
func newPage(w http.ResponseWriter, r *http.Request, title string, data any, extra ...views.Flash) views.Page {
	page := views.Page{
		Title:   title,
		Data:    data,
		Flashes: append(popFlashes(w, r), extra...),
	}
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		page.Principal = &p
	}
	return page
}

func renderError(v *views.Renderer, w http.ResponseWriter, r *http.Request, status int, message string) {
	v.Render(w, status, "error.html", newPage(w, r, http.StatusText(status), views.ErrorData{Status: status, Message: message}))
}

// NotFound renders the 404 page for unknown routes.
func NotFound(v *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderError(v, w, r, http.StatusNotFound, "Page not found.")
	}
}

// safeRedirect returns next when it is a same-site relative path and "/"
// otherwise.
func safeRedirect(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") ||
		strings.ContainsAny(next, "\\\r\n\t") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return "/"
	}
	return next
}
