package store

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAnimeStore is the insert-only anime cache.
type PostgresAnimeStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAnimeStore(pool *pgxpool.Pool) *PostgresAnimeStore {
	return &PostgresAnimeStore{pool: pool}
}

const animeColumns = `id, mal_id, title, synopsis, image_url, score, streaming_links, genres, created_at`

func (s *PostgresAnimeStore) GetByExternalID(ctx context.Context, malID int) (Anime, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+animeColumns+` FROM anime WHERE mal_id = $1`, malID)
	a, err := scanAnime(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Anime{}, ErrNotFound
	}
	return a, err
}

func (s *PostgresAnimeStore) Insert(ctx context.Context, a Anime) (Anime, error) {
	links, err := json.Marshal(nonNilLinks(a.StreamingLinks))
	if err != nil {
		return Anime{}, fmt.Errorf("marshal streaming links: %w", err)
	}
	genres, err := json.Marshal(nonNilGenres(a.Genres))
	if err != nil {
		return Anime{}, fmt.Errorf("marshal genres: %w", err)
	}

	const q = `INSERT INTO anime (mal_id, title, synopsis, image_url, score, streaming_links, genres, genre_keys)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	           RETURNING ` + animeColumns
	row := s.pool.QueryRow(ctx, q, a.MalID, a.Title, a.Synopsis, a.ImageURL, a.Score, links, genres, a.GenreKeys())
	out, err := scanAnime(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Anime{}, ErrDuplicateExternalID
		}
		return Anime{}, fmt.Errorf("insert anime %d: %w", a.MalID, err)
	}
	return out, nil
}

// Recommend uses array overlap on the normalized genre_keys column.
func (s *PostgresAnimeStore) Recommend(ctx context.Context, a Anime, limit int) ([]Anime, error) {
	keys := a.GenreKeys()
	if len(keys) == 0 || limit <= 0 {
		return []Anime{}, nil
	}
	const q = `SELECT ` + animeColumns + `
	           FROM anime
	           WHERE genre_keys && $1::text[] AND mal_id <> $2
	           ORDER BY id
	           LIMIT $3`
	rows, err := s.pool.Query(ctx, q, keys, a.MalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Anime{}
	for rows.Next() {
		rec, err := scanAnime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanAnime(row pgx.Row) (Anime, error) {
	var (
		a      Anime
		links  []byte
		genres []byte
	)
	if err := row.Scan(&a.ID, &a.MalID, &a.Title, &a.Synopsis, &a.ImageURL, &a.Score, &links, &genres, &a.CreatedAt); err != nil {
		return Anime{}, err
	}
	if err := json.Unmarshal(links, &a.StreamingLinks); err != nil {
		return Anime{}, fmt.Errorf("decode streaming links for %d: %w", a.MalID, err)
	}
	if err := json.Unmarshal(genres, &a.Genres); err != nil {
		return Anime{}, fmt.Errorf("decode genres for %d: %w", a.MalID, err)
	}
	return a, nil
}

func nonNilLinks(l []StreamingLink) []StreamingLink {
	if l == nil {
		return []StreamingLink{}
	}
	return l
}

func nonNilGenres(g []Genre) []Genre {
	if g == nil {
		return []Genre{}
	}
	return g
}
