package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/analytics"
	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/services/web/internal/jikan"
	"github.com/example/animehub/services/web/internal/views"
)

const heroSize = 5

const upstreamWarning = "Error communicating with the anime database API: %v"

type homeData struct {
	Hero   []jikan.Anime
	Top    []jikan.Anime
	Season []jikan.Anime
}

type resultsData struct {
	Label   string
	Results []jikan.Anime
}

type browseData struct {
	Genres []jikan.Genre
}

// Home renders the top and seasonal lists. Upstream failures leave the
// lists empty and show a warning.
func Home(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := s.Catalog.Featured(r.Context())
		p := s.page(w, r, nil)
		if err != nil {
			s.Log.Warn("home: featured lists", zap.Error(err))
			p.Flashes = append(p.Flashes, views.Flash{Kind: views.FlashWarning, Message: fmt.Sprintf(upstreamWarning, err)})
		}
		hero := f.Top
		if len(hero) > heroSize {
			hero = hero[:heroSize]
		}
		p.Data = homeData{Hero: hero, Top: f.Top, Season: f.Season}
		s.render(w, r, http.StatusOK, views.PageIndex, p)
	}
}

func Search(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			redirect(w, r, "/")
			return
		}
		results, err := s.Catalog.Search(r.Context(), q)
		p := s.page(w, r, nil)
		p.Query = q
		if err != nil {
			s.Log.Warn("search: upstream", zap.String("q", q), zap.Error(err))
			p.Flashes = append(p.Flashes, views.Flash{Kind: views.FlashWarning, Message: fmt.Sprintf(upstreamWarning, err)})
			results = []jikan.Anime{}
		}
		id, _ := auth.IdentityFromContext(r.Context())
		s.Events.Publish(analytics.SubjectSearchPerformed, "search_performed", id.UserID, map[string]any{
			"query":   q,
			"results": len(results),
		})
		p.Data = resultsData{Label: q, Results: results}
		s.render(w, r, http.StatusOK, views.PageSearch, p)
	}
}

// AnimeDetail renders the cached record with its engagement. A cache miss
// that cannot be filled from upstream sends the visitor home.
func AnimeDetail(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		malID, ok := positiveInt(chi.URLParam(r, "mal_id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		d, err := s.Catalog.Detail(r.Context(), malID)
		if err != nil {
			if errors.Is(err, jikan.ErrInvalidID) {
				http.NotFound(w, r)
				return
			}
			if r.Context().Err() != nil {
				// Visitor went away; nothing to render.
				return
			}
			if !errors.Is(err, jikan.ErrUpstreamUnavailable) {
				s.Log.Error("detail", zap.Int("mal_id", malID), zap.Error(err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			s.Log.Warn("detail: upstream", zap.Int("mal_id", malID), zap.Error(err))
			views.AddFlash(w, r, views.FlashDanger, fmt.Sprintf("Error fetching from Jikan API: %v", err))
			redirect(w, r, "/")
			return
		}
		id, _ := auth.IdentityFromContext(r.Context())
		s.Events.Publish(analytics.SubjectAnimeViewed, "anime_viewed", id.UserID, map[string]any{"mal_id": malID})
		s.render(w, r, http.StatusOK, views.PageDetail, s.page(w, r, d))
	}
}

func Browse(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genres, err := s.Catalog.Genres(r.Context())
		p := s.page(w, r, nil)
		if err != nil {
			s.Log.Warn("browse: genres", zap.Error(err))
			p.Flashes = append(p.Flashes, views.Flash{Kind: views.FlashWarning, Message: fmt.Sprintf("Could not load genres from the API: %v", err)})
			genres = []jikan.Genre{}
		}
		p.Data = browseData{Genres: genres}
		s.render(w, r, http.StatusOK, views.PageBrowse, p)
	}
}

// Genre lists one genre's anime with the search results template.
func Genre(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genreID, ok := positiveInt(chi.URLParam(r, "genre_id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		label := chi.URLParam(r, "genre_name")
		if unescaped, err := url.PathUnescape(label); err == nil {
			label = unescaped
		}
		if strings.TrimSpace(label) == "" {
			label = "Genre " + strconv.Itoa(genreID)
		}

		results, err := s.Catalog.ByGenre(r.Context(), genreID)
		p := s.page(w, r, nil)
		if err != nil {
			s.Log.Warn("genre: upstream", zap.Int("genre_id", genreID), zap.Error(err))
			p.Flashes = append(p.Flashes, views.Flash{Kind: views.FlashWarning, Message: fmt.Sprintf("Could not load anime for this genre: %v", err)})
			results = []jikan.Anime{}
		}
		p.Data = resultsData{Label: label, Results: results}
		s.render(w, r, http.StatusOK, views.PageSearch, p)
	}
}
