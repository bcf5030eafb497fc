// Package handlers serves the site's pages and JSON actions.
package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/analytics"
	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/internal/platform/httpserver"
	"github.com/example/animehub/services/web/internal/accounts"
	"github.com/example/animehub/services/web/internal/catalog"
	"github.com/example/animehub/services/web/internal/reactions"
	"github.com/example/animehub/services/web/internal/session"
	"github.com/example/animehub/services/web/internal/store"
	"github.com/example/animehub/services/web/internal/views"
)

// Site holds what the handlers need. Every field except Events is required.
type Site struct {
	Catalog   *catalog.Service
	Reactions *reactions.Engine
	Accounts  *accounts.Service
	Comments  store.CommentStore
	Sessions  *session.Manager
	Views     *views.Renderer
	Events    *analytics.Publisher
	Log       *zap.Logger
}

// page builds the template value for the current request, consuming any
// queued flash messages.
func (s *Site) page(w http.ResponseWriter, r *http.Request, data any) views.Page {
	id, ok := auth.IdentityFromContext(r.Context())
	return views.Page{
		User:     id,
		LoggedIn: ok,
		Flashes:  views.PopFlashes(w, r),
		Data:     data,
	}
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, p views.Page) {
	if err := s.Views.Render(w, status, name, p); err != nil {
		s.Log.Error("render page",
			zap.String("page", name),
			zap.String("request_id", httpserver.RequestIDFromContext(r.Context())),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// loginRedirect sends an anonymous visitor to the login page and back to
// next afterwards.
func loginRedirect(w http.ResponseWriter, r *http.Request, next string) {
	views.AddFlash(w, r, views.FlashInfo, "Please log in to access this page.")
	redirect(w, r, "/login?next="+url.QueryEscape(safeNext(next)))
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

func positiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func positiveInt64(raw string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
