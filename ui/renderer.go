// Package ui provides the shared server-side rendering infrastructure for
// the demo apps: an embedded-template renderer, the template function map
// (formatting helpers and DaisyUI/Tailwind class builders), and markdown
// rendering for job details.
package ui

import (
	"bytes"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pulseboard/pulseboard/logger"
)

// Renderer executes templates from an embedded filesystem. Fragment
// templates define their template name as the file path (e.g.
// "fragments/cpu-card.html").
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the given glob patterns from fsys into one template
// set with the shared function map installed.
func NewRenderer(fsys fs.FS, patterns ...string) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(Funcs()).ParseFS(fsys, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	return &Renderer{tmpl: tmpl}, nil
}

// PageData wraps the data handed to full-page renders.
type PageData struct {
	Title string
	Data  any
}

// Page renders the "base" layout with the page's content block.
func (r *Renderer) Page(w http.ResponseWriter, data PageData) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return r.tmpl.ExecuteTemplate(w, "base", data)
}

// WriteFragment renders a fragment template to an HTTP response.
func (r *Renderer) WriteFragment(w http.ResponseWriter, name string, data any) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// Fragment renders a fragment template to a string for SSE payloads.
func (r *Renderer) Fragment(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "render fragment %s", name)
	}
	return template.HTML(buf.String()), nil
}

// MustFragment is Fragment for SSE dispatch callbacks, where a render error
// means a bug in the template: it panics and relies on the dispatcher's
// panic recovery.
func (r *Renderer) MustFragment(name string, data any) template.HTML {
	frag, err := r.Fragment(name, data)
	if err != nil {
		panic(err)
	}
	return frag
}

// Execute renders any named template to w. Used by tests.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// RecoveryMiddleware recovers handler panics into a 500 response.
func RecoveryMiddleware(next http.Handler, l logger.Logger) http.Handler {
	if l == nil {
		l = logger.NopLogger{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				l.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
