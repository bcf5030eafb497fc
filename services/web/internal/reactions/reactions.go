// Package reactions applies like/dislike and comment-like toggles for an
// authenticated caller.
package reactions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/analytics"
	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/internal/platform/metrics"
	"github.com/example/animehub/services/web/internal/store"
)

// ErrUnauthorized rejects anonymous callers.
var ErrUnauthorized = errors.New("reactions: login required")

type Engine struct {
	votes  store.VoteStore
	likes  store.CommentLikeStore
	events *analytics.Publisher
	log    *zap.Logger
}

func NewEngine(s store.Stores, events *analytics.Publisher, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{votes: s.Votes, likes: s.CommentLikes, events: events, log: log}
}

// ToggleVote creates, removes or flips the caller's vote on malID and
// returns the resulting tally.
func (e *Engine) ToggleVote(ctx context.Context, id auth.Identity, malID int, wantLike bool) (store.VoteTally, error) {
	if id.UserID <= 0 {
		return store.VoteTally{}, ErrUnauthorized
	}
	tr, tally, err := e.votes.ToggleVote(ctx, id.UserID, malID, wantLike)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The session outlived its account.
			return store.VoteTally{}, ErrUnauthorized
		}
		return store.VoteTally{}, fmt.Errorf("toggle vote: %w", err)
	}

	metrics.RecordReactionToggle("vote", string(tr))
	e.log.Debug("vote toggled",
		zap.Int64("user_id", id.UserID), zap.Int("mal_id", malID),
		zap.Bool("is_like", wantLike), zap.String("transition", string(tr)))
	e.events.Publish(analytics.SubjectVoteToggled, "vote_toggled", id.UserID, map[string]any{
		"mal_id":     malID,
		"is_like":    wantLike,
		"transition": string(tr),
	})
	return tally, nil
}

// ToggleCommentLike adds or removes the caller's like and returns the
// comment's like count. Missing comments yield store.ErrNotFound.
func (e *Engine) ToggleCommentLike(ctx context.Context, id auth.Identity, commentID int64) (int, error) {
	if id.UserID <= 0 {
		return 0, ErrUnauthorized
	}
	tr, likes, err := e.likes.ToggleLike(ctx, id.UserID, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("toggle comment like: %w", err)
	}

	metrics.RecordReactionToggle("comment_like", string(tr))
	e.events.Publish(analytics.SubjectCommentLiked, "comment_liked", id.UserID, map[string]any{
		"comment_id": commentID,
		"transition": string(tr),
	})
	return likes, nil
}
