package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresVoteStore struct {
	pool *pgxpool.Pool
}

func NewPostgresVoteStore(pool *pgxpool.Pool) *PostgresVoteStore {
	return &PostgresVoteStore{pool: pool}
}

// ToggleVote locks the voter's row so concurrent toggles by the same user
// apply one after another.
func (s *PostgresVoteStore) ToggleVote(ctx context.Context, userID int64, malID int, wantLike bool) (VoteTransition, VoteTally, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", VoteTally{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockUser(ctx, tx, userID); err != nil {
		return "", VoteTally{}, err
	}

	var existing bool
	err = tx.QueryRow(ctx,
		`SELECT is_like FROM anime_votes WHERE user_id = $1 AND mal_id = $2`,
		userID, malID).Scan(&existing)

	var tr VoteTransition
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		tr = VoteCreated
		_, err = tx.Exec(ctx,
			`INSERT INTO anime_votes (user_id, mal_id, is_like) VALUES ($1, $2, $3)`,
			userID, malID, wantLike)
	case err != nil:
		return "", VoteTally{}, err
	case existing == wantLike:
		tr = VoteRemoved
		_, err = tx.Exec(ctx,
			`DELETE FROM anime_votes WHERE user_id = $1 AND mal_id = $2`,
			userID, malID)
	default:
		tr = VoteFlipped
		_, err = tx.Exec(ctx,
			`UPDATE anime_votes SET is_like = $3 WHERE user_id = $1 AND mal_id = $2`,
			userID, malID, wantLike)
	}
	if err != nil {
		return "", VoteTally{}, fmt.Errorf("toggle vote (%s): %w", tr, err)
	}

	tally, err := tallyVotes(ctx, tx, malID)
	if err != nil {
		return "", VoteTally{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", VoteTally{}, err
	}
	return tr, tally, nil
}

func (s *PostgresVoteStore) Tally(ctx context.Context, malID int) (VoteTally, error) {
	return tallyVotes(ctx, s.pool, malID)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func tallyVotes(ctx context.Context, q querier, malID int) (VoteTally, error) {
	const sql = `SELECT COUNT(*) FILTER (WHERE is_like), COUNT(*) FILTER (WHERE NOT is_like)
	             FROM anime_votes WHERE mal_id = $1`
	var t VoteTally
	err := q.QueryRow(ctx, sql, malID).Scan(&t.Likes, &t.Dislikes)
	return t, err
}
