package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/example/animehub/internal/platform/api"
	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/services/web/internal/views"
)

type RouteOptions struct {
	// AuthRateLimit caps login and register POSTs per client IP per window.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Routes registers the site on r. The session middleware must already be
// installed on r so handlers can see the caller.
func Routes(r chi.Router, s *Site, opts RouteOptions) {
	if opts.AuthRateLimit <= 0 {
		opts.AuthRateLimit = 10
	}
	if opts.AuthRateWindow <= 0 {
		opts.AuthRateWindow = time.Minute
	}
	authLimit := httprate.Limit(opts.AuthRateLimit, opts.AuthRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(api.RateLimited),
	)

	r.Handle("/static/*", views.Static())

	r.Get("/", Home(s))
	r.Get("/search", Search(s))
	r.Get("/browse", Browse(s))
	r.Get("/genre/{genre_id}/{genre_name}", Genre(s))
	r.Get("/anime/{mal_id}", AnimeDetail(s))

	r.Get("/register", RegisterForm(s))
	r.With(authLimit).Post("/register", Register(s))
	r.Get("/login", LoginForm(s))
	r.With(authLimit).Post("/login", Login(s))
	r.Get("/logout", Logout(s))
	r.Post("/logout", Logout(s))
	r.Post("/account/delete", DeleteAccount(s))

	r.Post("/anime/{mal_id}/comments", PostComment(s))
	r.Post("/comments/{comment_id}/delete", DeleteComment(s))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(api.Unauthorized))
		r.Post("/anime/{mal_id}/vote", Vote(s))
		r.Post("/comments/{comment_id}/like", LikeComment(s))
	})
}
