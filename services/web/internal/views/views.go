// Package views renders the site's HTML pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/services/web/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	PageIndex   = "index.html"
	PageSearch  = "search_results.html"
	PageDetail  = "anime_detail.html"
	PageBrowse  = "browse.html"
	PageLogin   = "login.html"
	PageReg     = "register.html"
	layoutFile  = "templates/layout.html"
	partialFile = "templates/card.html"
)

var pages = []string{PageIndex, PageSearch, PageDetail, PageBrowse, PageLogin, PageReg}

// Page is the value every template executes against.
type Page struct {
	User     auth.Identity
	LoggedIn bool
	Flashes  []Flash
	Query    string
	Data     any
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page with the shared layout. affiliate is appended to
// Crunchyroll streaming links.
func New(affiliate string) (*Renderer, error) {
	funcs := template.FuncMap{
		"affiliateLink": func(l store.StreamingLink) string { return AffiliateLink(l, affiliate) },
		"scoreText":     ScoreText,
		"truncate":      Truncate,
		"pathEscape":    url.PathEscape,
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		t, err := template.New(p).Funcs(funcs).ParseFS(templateFS, layoutFile, partialFile, "templates/"+p)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[p] = t
	}
	return r, nil
}

// Render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded assets; mount it under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func AffiliateLink(l store.StreamingLink, suffix string) string {
	if suffix == "" || !strings.Contains(strings.ToLower(l.Name), "crunchyroll") {
		return l.URL
	}
	if strings.Contains(l.URL, "?") && strings.HasPrefix(suffix, "?") {
		return l.URL + "&" + suffix[1:]
	}
	return l.URL + suffix
}

func ScoreText(score *float64) string {
	if score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *score)
}

func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}
