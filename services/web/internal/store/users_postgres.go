package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) Create(ctx context.Context, username, passwordHash string) (User, error) {
	const q = `INSERT INTO users (username, password_hash)
	           VALUES ($1, $2)
	           RETURNING id, username, password_hash, created_at`
	var u User
	err := s.pool.QueryRow(ctx, q, username, passwordHash).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) ByUsername(ctx context.Context, username string) (User, error) {
	return s.one(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (s *PostgresUserStore) ByID(ctx context.Context, id int64) (User, error) {
	return s.one(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresUserStore) one(ctx context.Context, q string, arg any) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// Delete relies on ON DELETE CASCADE for comments, votes and comment likes.
func (s *PostgresUserStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) Activity(ctx context.Context, id int64) (UserActivity, error) {
	var out UserActivity

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, mal_id, text, created_at FROM comments WHERE user_id = $1 ORDER BY id`, id)
	if err != nil {
		return out, err
	}
	out.Comments, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Comment, error) {
		var c Comment
		err := row.Scan(&c.ID, &c.UserID, &c.MalID, &c.Text, &c.CreatedAt)
		return c, err
	})
	if err != nil {
		return out, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT user_id, mal_id, is_like FROM anime_votes WHERE user_id = $1 ORDER BY mal_id`, id)
	if err != nil {
		return out, err
	}
	out.Votes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Vote, error) {
		var v Vote
		err := row.Scan(&v.UserID, &v.MalID, &v.IsLike)
		return v, err
	})
	if err != nil {
		return out, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT comment_id FROM comment_likes WHERE user_id = $1 ORDER BY comment_id`, id)
	if err != nil {
		return out, err
	}
	out.CommentLikes, err = pgx.CollectRows(rows, pgx.RowTo[int64])
	return out, err
}
