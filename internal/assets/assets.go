// Package assets renders the server-side HTML pages from embedded templates.
package assets

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Pages holds the parsed page templates.
type Pages struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Pages, error) {
	return NewWithFuncs(nil)
}

// NewWithFuncs parses the embedded templates with extra template functions.
func NewWithFuncs(customFuncs template.FuncMap) (*Pages, error) {
	funcs := template.FuncMap{
		"lower": strings.ToLower,
		"label": label,
		"date":  formatDate,
	}

	maps.Copy(funcs, customFuncs)

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Pages{tmpl: tmpl}, nil
}

// Render executes the named page into w. The page is rendered into a buffer
// first so a template failure never produces a partial 200 response.
func (p *Pages) Render(ctx context.Context, w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Handler returns a handler rendering a static page with the given title.
func (p *Pages) Handler(name, title string, status int, contextFn func(ctx context.Context) any) http.HandlerFunc {
	if contextFn == nil {
		contextFn = func(ctx context.Context) any {
			return nil
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"Title":   title,
			"Context": contextFn(r.Context()),
		}
		p.Render(r.Context(), w, status, name, data)
	}
}

// label turns an enum value such as PARTIAL_OUTAGE into "Partial outage".
func label(value any) string {
	s := strings.ToLower(strings.ReplaceAll(fmt.Sprint(value), "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatDate(t time.Time) string {
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}
