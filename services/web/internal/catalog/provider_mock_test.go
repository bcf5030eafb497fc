package catalog

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/example/animehub/services/web/internal/jikan"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Search(ctx context.Context, q string, limit int) ([]jikan.Anime, error) {
	args := m.Called(ctx, q, limit)
	return animeList(args.Get(0)), args.Error(1)
}

func (m *mockProvider) GetAnime(ctx context.Context, malID int) (jikan.Anime, error) {
	args := m.Called(ctx, malID)
	a, _ := args.Get(0).(jikan.Anime)
	return a, args.Error(1)
}

func (m *mockProvider) GetStreaming(ctx context.Context, malID int) ([]jikan.StreamingLink, error) {
	args := m.Called(ctx, malID)
	l, _ := args.Get(0).([]jikan.StreamingLink)
	return l, args.Error(1)
}

func (m *mockProvider) ListGenres(ctx context.Context) ([]jikan.Genre, error) {
	args := m.Called(ctx)
	g, _ := args.Get(0).([]jikan.Genre)
	return g, args.Error(1)
}

func (m *mockProvider) ListByGenre(ctx context.Context, genreID, limit int) ([]jikan.Anime, error) {
	args := m.Called(ctx, genreID, limit)
	return animeList(args.Get(0)), args.Error(1)
}

func (m *mockProvider) TopAnime(ctx context.Context, limit int) ([]jikan.Anime, error) {
	args := m.Called(ctx, limit)
	return animeList(args.Get(0)), args.Error(1)
}

func (m *mockProvider) SeasonNow(ctx context.Context, limit int) ([]jikan.Anime, error) {
	args := m.Called(ctx, limit)
	return animeList(args.Get(0)), args.Error(1)
}

func animeList(v any) []jikan.Anime {
	l, _ := v.([]jikan.Anime)
	return l
}
