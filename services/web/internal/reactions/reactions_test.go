package reactions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/analytics"
	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/services/web/internal/store"
)

type recordingSink struct{ subjects []string }

func (s *recordingSink) Publish(subject string, _ []byte) error {
	s.subjects = append(s.subjects, subject)
	return nil
}

func setup(t *testing.T) (*Engine, store.Stores, *recordingSink) {
	t.Helper()
	st := store.NewMemory()
	sink := &recordingSink{}
	return NewEngine(st, analytics.New(sink, zap.NewNop()), zap.NewNop()), st, sink
}

func identity(t *testing.T, st store.Stores, name string) auth.Identity {
	t.Helper()
	u, err := st.Users.Create(context.Background(), name, "h")
	require.NoError(t, err)
	return auth.Identity{UserID: u.ID, Username: u.Username}
}

func TestToggleVote_Anonymous(t *testing.T) {
	e, _, sink := setup(t)
	_, err := e.ToggleVote(context.Background(), auth.Identity{}, 5114, true)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, sink.subjects)
}

func TestToggleVote_SameTwiceReturnsToBaseline(t *testing.T) {
	e, st, _ := setup(t)
	ctx := context.Background()
	u := identity(t, st, "u")

	base, err := st.Votes.Tally(ctx, 1)
	require.NoError(t, err)

	_, err = e.ToggleVote(ctx, u, 1, true)
	require.NoError(t, err)
	tally, err := e.ToggleVote(ctx, u, 1, true)
	require.NoError(t, err)
	assert.Equal(t, base, tally)

	act, err := st.Users.Activity(ctx, u.UserID)
	require.NoError(t, err)
	assert.Empty(t, act.Votes)
}

func TestToggleVote_LikeThenDislikeFlips(t *testing.T) {
	e, st, _ := setup(t)
	ctx := context.Background()
	u := identity(t, st, "u")

	_, err := e.ToggleVote(ctx, u, 1, true)
	require.NoError(t, err)
	tally, err := e.ToggleVote(ctx, u, 1, false)
	require.NoError(t, err)
	assert.Equal(t, store.VoteTally{Likes: 0, Dislikes: 1}, tally)

	act, err := st.Users.Activity(ctx, u.UserID)
	require.NoError(t, err)
	require.Len(t, act.Votes, 1)
	assert.False(t, act.Votes[0].IsLike)
}

func TestToggleVote_AliceScenario(t *testing.T) {
	e, st, sink := setup(t)
	ctx := context.Background()
	alice := identity(t, st, "alice")

	steps := []struct {
		wantLike bool
		expected store.VoteTally
	}{
		{true, store.VoteTally{Likes: 1, Dislikes: 0}},
		{false, store.VoteTally{Likes: 0, Dislikes: 1}},
		{false, store.VoteTally{Likes: 0, Dislikes: 0}},
	}
	for i, s := range steps {
		got, err := e.ToggleVote(ctx, alice, 5114, s.wantLike)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, s.expected, got, "step %d", i)
	}

	act, err := st.Users.Activity(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, act.Votes)
	assert.Len(t, sink.subjects, 3)
	assert.Equal(t, analytics.SubjectVoteToggled, sink.subjects[0])
}

func TestToggleVote_DeletedAccountIsUnauthorized(t *testing.T) {
	e, st, _ := setup(t)
	ctx := context.Background()
	u := identity(t, st, "ghost")
	require.NoError(t, st.Users.Delete(ctx, u.UserID))

	_, err := e.ToggleVote(ctx, u, 1, true)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestToggleCommentLike_TwiceRestoresCount(t *testing.T) {
	e, st, _ := setup(t)
	ctx := context.Background()
	author := identity(t, st, "author")
	fan := identity(t, st, "fan")
	other := identity(t, st, "other")

	c, err := st.Comments.Create(ctx, store.Comment{UserID: author.UserID, MalID: 1, Text: "hi"})
	require.NoError(t, err)
	_, err = e.ToggleCommentLike(ctx, other, c.ID)
	require.NoError(t, err)

	likes, err := e.ToggleCommentLike(ctx, fan, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, likes)
	likes, err = e.ToggleCommentLike(ctx, fan, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	act, err := st.Users.Activity(ctx, fan.UserID)
	require.NoError(t, err)
	assert.Empty(t, act.CommentLikes)
}

func TestToggleCommentLike_Errors(t *testing.T) {
	e, st, _ := setup(t)
	ctx := context.Background()
	u := identity(t, st, "u")

	_, err := e.ToggleCommentLike(ctx, auth.Identity{}, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.ToggleCommentLike(ctx, u, 999)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
