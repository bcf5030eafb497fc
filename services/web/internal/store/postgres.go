package store

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgres returns stores backed by pool. Close closes the pool.
func NewPostgres(pool *pgxpool.Pool) Stores {
	return Stores{
		Users:        NewPostgresUserStore(pool),
		Anime:        NewPostgresAnimeStore(pool),
		Votes:        NewPostgresVoteStore(pool),
		Comments:     NewPostgresCommentStore(pool),
		CommentLikes: NewPostgresCommentLikeStore(pool),
		Ping:         pool.Ping,
		Close:        pool.Close,
	}
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool { return pgCode(err) == pgerrcode.UniqueViolation }

func isForeignKeyViolation(err error) bool { return pgCode(err) == pgerrcode.ForeignKeyViolation }

// lockUser serializes engagement writes per user for the rest of tx.
func lockUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
