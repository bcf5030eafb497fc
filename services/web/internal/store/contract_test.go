package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// runContract exercises behaviour both backends must share.
func runContract(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("UserConflict", func(t *testing.T) { testUserConflict(t, newStores(t)) })
	t.Run("AnimeInsertOnce", func(t *testing.T) { testAnimeInsertOnce(t, newStores(t)) })
	t.Run("Recommend", func(t *testing.T) { testRecommend(t, newStores(t)) })
	t.Run("VoteStateMachine", func(t *testing.T) { testVoteStateMachine(t, newStores(t)) })
	t.Run("VoteConcurrentSameUser", func(t *testing.T) { testVoteConcurrentSameUser(t, newStores(t)) })
	t.Run("CommentLikeToggle", func(t *testing.T) { testCommentLikeToggle(t, newStores(t)) })
	t.Run("CommentDeleteAuthorOnly", func(t *testing.T) { testCommentDeleteAuthorOnly(t, newStores(t)) })
	t.Run("UserDeleteCascades", func(t *testing.T) { testUserDeleteCascades(t, newStores(t)) })
}

func mustUser(t *testing.T, s Stores, name string) User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), name, "hash-"+name)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func mustAnime(t *testing.T, s Stores, malID int, genres ...string) Anime {
	t.Helper()
	a := Anime{MalID: malID, Title: "anime", StreamingLinks: []StreamingLink{}}
	for i, g := range genres {
		a.Genres = append(a.Genres, Genre{MalID: i + 1, Name: g})
	}
	out, err := s.Anime.Insert(context.Background(), a)
	if err != nil {
		t.Fatalf("insert anime %d: %v", malID, err)
	}
	return out
}

func testUserConflict(t *testing.T, s Stores) {
	ctx := context.Background()
	mustUser(t, s, "alice")
	if _, err := s.Users.Create(ctx, "alice", "x"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := s.Users.ByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testAnimeInsertOnce(t *testing.T, s Stores) {
	ctx := context.Background()
	score := 9.1
	in := Anime{
		MalID:          5114,
		Title:          "FMA:B",
		Synopsis:       "Brothers.",
		ImageURL:       "https://cdn/x.jpg",
		Score:          &score,
		StreamingLinks: []StreamingLink{{Name: "Crunchyroll", URL: "https://cr/x"}},
		Genres:         []Genre{{MalID: 1, Name: "Action"}},
	}
	if _, err := s.Anime.Insert(ctx, in); err != nil {
		t.Fatalf("insert: %v", err)
	}
	in.Title = "changed"
	if _, err := s.Anime.Insert(ctx, in); !errors.Is(err, ErrDuplicateExternalID) {
		t.Fatalf("expected ErrDuplicateExternalID, got %v", err)
	}

	got, err := s.Anime.GetByExternalID(ctx, 5114)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "FMA:B" {
		t.Fatalf("cached record was modified: %q", got.Title)
	}
	if got.Score == nil || *got.Score != 9.1 {
		t.Fatalf("unexpected score %v", got.Score)
	}
	if len(got.StreamingLinks) != 1 || got.StreamingLinks[0].Name != "Crunchyroll" {
		t.Fatalf("unexpected streaming links %+v", got.StreamingLinks)
	}
	if len(got.Genres) != 1 || got.Genres[0].Name != "Action" {
		t.Fatalf("unexpected genres %+v", got.Genres)
	}
	if _, err := s.Anime.GetByExternalID(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testRecommend(t *testing.T, s Stores) {
	ctx := context.Background()
	target := mustAnime(t, s, 1, "Action", "Drama")
	mustAnime(t, s, 2, "action")        // case-insensitive match
	mustAnime(t, s, 3, "Romance")       // no match
	mustAnime(t, s, 4, "Action Comedy") // not a substring match
	mustAnime(t, s, 5, " Drama ", "Sci-Fi")
	for i := 10; i < 20; i++ {
		mustAnime(t, s, i, "Drama")
	}

	got, err := s.Anime.Recommend(ctx, target, 7)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 recommendations, got %d", len(got))
	}
	if got[0].MalID != 2 || got[1].MalID != 5 {
		t.Fatalf("expected oldest matches first, got %d, %d", got[0].MalID, got[1].MalID)
	}
	for _, r := range got {
		if r.MalID == 1 || r.MalID == 3 || r.MalID == 4 {
			t.Fatalf("unexpected recommendation %d", r.MalID)
		}
	}

	none, err := s.Anime.Recommend(ctx, Anime{MalID: 99}, 7)
	if err != nil {
		t.Fatalf("recommend without genres: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no recommendations without genres, got %d", len(none))
	}
}

func testVoteStateMachine(t *testing.T, s Stores) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	if _, _, err := s.Votes.ToggleVote(ctx, bob.ID, 5114, true); err != nil {
		t.Fatalf("bob vote: %v", err)
	}

	steps := []struct {
		want     bool
		tr       VoteTransition
		likes    int
		dislikes int
	}{
		{true, VoteCreated, 2, 0},
		{true, VoteRemoved, 1, 0},
		{true, VoteCreated, 2, 0},
		{false, VoteFlipped, 1, 1},
		{false, VoteRemoved, 1, 0},
	}
	for i, st := range steps {
		tr, tally, err := s.Votes.ToggleVote(ctx, alice.ID, 5114, st.want)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if tr != st.tr {
			t.Fatalf("step %d: expected %s, got %s", i, st.tr, tr)
		}
		if tally.Likes != st.likes || tally.Dislikes != st.dislikes {
			t.Fatalf("step %d: expected %d/%d, got %d/%d", i, st.likes, st.dislikes, tally.Likes, tally.Dislikes)
		}
	}

	tally, err := s.Votes.Tally(ctx, 5114)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tally.Likes != 1 || tally.Dislikes != 0 {
		t.Fatalf("expected 1/0, got %+v", tally)
	}
	if _, _, err := s.Votes.ToggleVote(ctx, 424242, 5114, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func testVoteConcurrentSameUser(t *testing.T, s Stores) {
	ctx := context.Background()
	u := mustUser(t, s, "clicker")

	// An even number of identical toggles must end with no vote.
	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := s.Votes.ToggleVote(ctx, u.ID, 7, true); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("toggle: %v", err)
	}

	tally, err := s.Votes.Tally(ctx, 7)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if tally.Likes != 0 || tally.Dislikes != 0 {
		t.Fatalf("expected no votes after %d toggles, got %+v", n, tally)
	}
}

func testCommentLikeToggle(t *testing.T, s Stores) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	fan := mustUser(t, s, "fan")
	c, err := s.Comments.Create(ctx, Comment{UserID: author.ID, MalID: 5114, Text: "great show"})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}

	tr, likes, err := s.CommentLikes.ToggleLike(ctx, fan.ID, c.ID)
	if err != nil || tr != LikeAdded || likes != 1 {
		t.Fatalf("first toggle: tr=%s likes=%d err=%v", tr, likes, err)
	}
	tr, likes, err = s.CommentLikes.ToggleLike(ctx, fan.ID, c.ID)
	if err != nil || tr != LikeRemoved || likes != 0 {
		t.Fatalf("second toggle: tr=%s likes=%d err=%v", tr, likes, err)
	}

	act, err := s.Users.Activity(ctx, fan.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(act.CommentLikes) != 0 {
		t.Fatalf("expected no like rows, got %v", act.CommentLikes)
	}

	if _, _, err := s.CommentLikes.ToggleLike(ctx, fan.ID, c.ID+1000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCommentDeleteAuthorOnly(t *testing.T, s Stores) {
	ctx := context.Background()
	author := mustUser(t, s, "author")
	other := mustUser(t, s, "other")
	c, err := s.Comments.Create(ctx, Comment{UserID: author.ID, MalID: 5114, Text: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := s.CommentLikes.ToggleLike(ctx, other.ID, c.ID); err != nil {
		t.Fatalf("like: %v", err)
	}

	views, err := s.Comments.ListForAnime(ctx, 5114)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].Author != "author" || views[0].Likes != 1 {
		t.Fatalf("unexpected views %+v", views)
	}

	got, err := s.Comments.Delete(ctx, c.ID, other.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got.MalID != 5114 {
		t.Fatalf("expected forbidden delete to report mal_id, got %d", got.MalID)
	}
	if _, err := s.Comments.Delete(ctx, c.ID, author.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if _, err := s.Comments.Delete(ctx, c.ID, author.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	act, err := s.Users.Activity(ctx, other.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(act.CommentLikes) != 0 {
		t.Fatalf("expected comment delete to cascade likes, got %v", act.CommentLikes)
	}
}

func testUserDeleteCascades(t *testing.T, s Stores) {
	ctx := context.Background()
	gone := mustUser(t, s, "gone")
	stays := mustUser(t, s, "stays")

	own, err := s.Comments.Create(ctx, Comment{UserID: gone.ID, MalID: 1, Text: "bye"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	theirs, err := s.Comments.Create(ctx, Comment{UserID: stays.ID, MalID: 1, Text: "hi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := s.Votes.ToggleVote(ctx, gone.ID, 1, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, _, err := s.CommentLikes.ToggleLike(ctx, gone.ID, theirs.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, _, err := s.CommentLikes.ToggleLike(ctx, stays.ID, own.ID); err != nil {
		t.Fatalf("like: %v", err)
	}

	if err := s.Users.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	act, err := s.Users.Activity(ctx, gone.ID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if !act.Empty() {
		t.Fatalf("expected no rows for deleted user, got %+v", act)
	}
	if _, err := s.Users.ByID(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	tally, _ := s.Votes.Tally(ctx, 1)
	if tally.Dislikes != 0 {
		t.Fatalf("expected vote removed, got %+v", tally)
	}
	stayAct, _ := s.Users.Activity(ctx, stays.ID)
	if len(stayAct.CommentLikes) != 0 {
		t.Fatalf("expected like on deleted user's comment to cascade, got %v", stayAct.CommentLikes)
	}
	views, _ := s.Comments.ListForAnime(ctx, 1)
	if len(views) != 1 || views[0].Likes != 0 {
		t.Fatalf("unexpected remaining comments %+v", views)
	}
	if err := s.Users.Delete(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
