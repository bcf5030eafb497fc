// Package catalog assembles anime pages from the local cache, the
// metadata API and the engagement tables.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/example/animehub/internal/platform/metrics"
	"github.com/example/animehub/services/web/internal/jikan"
	"github.com/example/animehub/services/web/internal/store"
)

const (
	// RecommendationLimit caps the "you may also like" row.
	RecommendationLimit = 7
	// PageSize is the result count asked of search and genre listings.
	PageSize = 24
	// FeaturedLimit is the length of each home page carousel.
	FeaturedLimit = 15

	// DefaultFetchTimeout bounds a cache-miss fetch once it no longer
	// follows the request that started it.
	DefaultFetchTimeout = 30 * time.Second
)

// Detail is everything the anime page renders.
type Detail struct {
	Anime           store.Anime
	Recommendations []store.Anime
	Likes           int
	Dislikes        int
	Comments        []store.CommentView
}

// Featured holds the home page carousels.
type Featured struct {
	Top    []jikan.Anime
	Season []jikan.Anime
}

// Service reads through the anime cache and serves the browse pages.
type Service struct {
	provider jikan.Provider
	anime    store.AnimeStore
	votes    store.VoteStore
	comments store.CommentStore
	log      *zap.Logger

	misses       singleflight.Group
	fetchTimeout time.Duration
}

// NewService wires the assembler to its upstream and stores. A nil logger
// discards output.
func NewService(p jikan.Provider, s store.Stores, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		provider:     p,
		anime:        s.Anime,
		votes:        s.Votes,
		comments:     s.Comments,
		log:          log,
		fetchTimeout: DefaultFetchTimeout,
	}
}

// Detail returns the page aggregate for malID, fetching and caching the
// record on first view. Upstream failures abort before anything is stored.
func (s *Service) Detail(ctx context.Context, malID int) (Detail, error) {
	a, err := s.cachedOrFetch(ctx, malID)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{Anime: a, Recommendations: []store.Anime{}}
	if len(a.Genres) > 0 {
		d.Recommendations, err = s.anime.Recommend(ctx, a, RecommendationLimit)
		if err != nil {
			return Detail{}, fmt.Errorf("recommend %d: %w", malID, err)
		}
	}

	tally, err := s.votes.Tally(ctx, malID)
	if err != nil {
		return Detail{}, fmt.Errorf("tally %d: %w", malID, err)
	}
	d.Likes, d.Dislikes = tally.Likes, tally.Dislikes

	d.Comments, err = s.comments.ListForAnime(ctx, malID)
	if err != nil {
		return Detail{}, fmt.Errorf("comments %d: %w", malID, err)
	}
	return d, nil
}

func (s *Service) cachedOrFetch(ctx context.Context, malID int) (store.Anime, error) {
	a, err := s.anime.GetByExternalID(ctx, malID)
	if err == nil {
		metrics.RecordCacheLookup("hit")
		return a, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Anime{}, fmt.Errorf("cache lookup %d: %w", malID, err)
	}
	metrics.RecordCacheLookup("miss")

	// Concurrent misses in this process share one upstream fetch. It is
	// detached from the request that started it so one disconnect does not
	// fail every waiter.
	ch := s.misses.DoChan(strconv.Itoa(malID), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetchAndInsert(fctx, malID)
	})
	select {
	case <-ctx.Done():
		return store.Anime{}, fmt.Errorf("detail %d: %w", malID, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return store.Anime{}, res.Err
		}
		return res.Val.(store.Anime), nil
	}
}

func (s *Service) fetchAndInsert(ctx context.Context, malID int) (store.Anime, error) {
	var (
		up    jikan.Anime
		links []jikan.StreamingLink
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		up, err = s.provider.GetAnime(gctx, malID)
		return err
	})
	g.Go(func() error {
		var err error
		links, err = s.provider.GetStreaming(gctx, malID)
		return err
	})
	if err := g.Wait(); err != nil {
		return store.Anime{}, err
	}
	if up.MalID != malID {
		return store.Anime{}, &jikan.UpstreamError{
			Op:  "get_anime",
			Err: fmt.Errorf("%w: asked for %d, got %d", jikan.ErrInvalidResponse, malID, up.MalID),
		}
	}

	rec, err := s.anime.Insert(ctx, FromUpstream(up, links))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrDuplicateExternalID) {
		return store.Anime{}, fmt.Errorf("cache insert %d: %w", malID, err)
	}

	// Another process inserted first; its row wins.
	metrics.RecordCacheLookup("race")
	s.log.Debug("anime cache insert race", zap.Int("mal_id", malID))
	rec, err = s.anime.GetByExternalID(ctx, malID)
	if err != nil {
		return store.Anime{}, fmt.Errorf("cache reread %d: %w", malID, err)
	}
	return rec, nil
}

// Search proxies a title query. Blank queries return no results.
func (s *Service) Search(ctx context.Context, q string) ([]jikan.Anime, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []jikan.Anime{}, nil
	}
	return s.provider.Search(ctx, q, PageSize)
}

func (s *Service) Genres(ctx context.Context) ([]jikan.Genre, error) {
	return s.provider.ListGenres(ctx)
}

func (s *Service) ByGenre(ctx context.Context, genreID int) ([]jikan.Anime, error) {
	return s.provider.ListByGenre(ctx, genreID, PageSize)
}

// Featured loads the home page lists. Each list is filled independently;
// the first upstream error is returned alongside whatever loaded.
func (s *Service) Featured(ctx context.Context) (Featured, error) {
	var (
		f Featured
		g errgroup.Group
	)
	g.Go(func() error {
		var err error
		f.Top, err = s.provider.TopAnime(ctx, FeaturedLimit)
		return err
	})
	g.Go(func() error {
		var err error
		f.Season, err = s.provider.SeasonNow(ctx, FeaturedLimit)
		return err
	})
	err := g.Wait()
	if f.Top == nil {
		f.Top = []jikan.Anime{}
	}
	if f.Season == nil {
		f.Season = []jikan.Anime{}
	}
	return f, err
}
