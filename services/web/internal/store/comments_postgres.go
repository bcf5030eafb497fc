package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

func (s *PostgresCommentStore) Create(ctx context.Context, c Comment) (Comment, error) {
	const q = `INSERT INTO comments (user_id, mal_id, text)
	           VALUES ($1, $2, $3)
	           RETURNING id, user_id, mal_id, text, created_at`
	var out Comment
	err := s.pool.QueryRow(ctx, q, c.UserID, c.MalID, c.Text).
		Scan(&out.ID, &out.UserID, &out.MalID, &out.Text, &out.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return out, nil
}

func (s *PostgresCommentStore) Get(ctx context.Context, id int64) (Comment, error) {
	var c Comment
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, mal_id, text, created_at FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.UserID, &c.MalID, &c.Text, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

// Delete cascades to comment_likes through the foreign key.
func (s *PostgresCommentStore) Delete(ctx context.Context, id, userID int64) (Comment, error) {
	var c Comment
	err := s.pool.QueryRow(ctx,
		`DELETE FROM comments WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, mal_id, text, created_at`, id, userID).
		Scan(&c.ID, &c.UserID, &c.MalID, &c.Text, &c.CreatedAt)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, fmt.Errorf("delete comment: %w", err)
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	return existing, ErrForbidden
}

func (s *PostgresCommentStore) ListForAnime(ctx context.Context, malID int) ([]CommentView, error) {
	const q = `SELECT c.id, c.user_id, c.mal_id, c.text, c.created_at, u.username, COUNT(l.id)
	           FROM comments c
	           JOIN users u ON u.id = c.user_id
	           LEFT JOIN comment_likes l ON l.comment_id = c.id
	           WHERE c.mal_id = $1
	           GROUP BY c.id, u.username
	           ORDER BY c.id`
	rows, err := s.pool.Query(ctx, q, malID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CommentView{}
	for rows.Next() {
		var v CommentView
		if err := rows.Scan(&v.ID, &v.UserID, &v.MalID, &v.Text, &v.CreatedAt, &v.Author, &v.Likes); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type PostgresCommentLikeStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCommentLikeStore(pool *pgxpool.Pool) *PostgresCommentLikeStore {
	return &PostgresCommentLikeStore{pool: pool}
}

func (s *PostgresCommentLikeStore) ToggleLike(ctx context.Context, userID, commentID int64) (LikeTransition, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockUser(ctx, tx, userID); err != nil {
		return "", 0, err
	}

	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM comments WHERE id = $1 FOR SHARE`, commentID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, err
	}

	tr := LikeRemoved
	tag, err := tx.Exec(ctx,
		`DELETE FROM comment_likes WHERE user_id = $1 AND comment_id = $2`, userID, commentID)
	if err != nil {
		return "", 0, err
	}
	if tag.RowsAffected() == 0 {
		tr = LikeAdded
		if _, err := tx.Exec(ctx,
			`INSERT INTO comment_likes (user_id, comment_id) VALUES ($1, $2)`, userID, commentID); err != nil {
			return "", 0, fmt.Errorf("insert comment like: %w", err)
		}
	}

	var likes int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM comment_likes WHERE comment_id = $1`, commentID).Scan(&likes); err != nil {
		return "", 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", 0, err
	}
	return tr, likes, nil
}
