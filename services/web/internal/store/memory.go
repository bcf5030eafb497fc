package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type voteKey struct {
	userID int64
	malID  int
}

type likeKey struct {
	userID    int64
	commentID int64
}

// memoryDB is a development-only backend. One mutex guards every table so
// cascades and toggles are atomic.
type memoryDB struct {
	mu sync.RWMutex

	nextUserID    int64
	nextAnimeID   int64
	nextCommentID int64

	users     map[int64]User
	usernames map[string]int64
	anime     map[int]Anime // mal_id -> record
	votes     map[voteKey]bool
	comments  map[int64]Comment
	likes     map[likeKey]struct{}
	now       func() time.Time
}

// NewMemory returns in-memory stores sharing one dataset.
func NewMemory() Stores {
	db := &memoryDB{
		users:     make(map[int64]User),
		usernames: make(map[string]int64),
		anime:     make(map[int]Anime),
		votes:     make(map[voteKey]bool),
		comments:  make(map[int64]Comment),
		likes:     make(map[likeKey]struct{}),
		now:       func() time.Time { return time.Now().UTC() },
	}
	return Stores{
		Users:        memoryUsers{db},
		Anime:        memoryAnime{db},
		Votes:        memoryVotes{db},
		Comments:     memoryComments{db},
		CommentLikes: memoryCommentLikes{db},
		Ping:         func(context.Context) error { return nil },
		Close:        func() {},
	}
}

// ─── users ──────────────────────────────────────────────────────────────────

type memoryUsers struct{ db *memoryDB }

func (s memoryUsers) Create(_ context.Context, username, passwordHash string) (User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.usernames[username]; ok {
		return User{}, ErrConflict
	}
	s.db.nextUserID++
	u := User{ID: s.db.nextUserID, Username: username, PasswordHash: passwordHash, CreatedAt: s.db.now()}
	s.db.users[u.ID] = u
	s.db.usernames[username] = u.ID
	return u, nil
}

func (s memoryUsers) ByUsername(_ context.Context, username string) (User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	id, ok := s.db.usernames[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.db.users[id], nil
}

func (s memoryUsers) ByID(_ context.Context, id int64) (User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s memoryUsers) Delete(_ context.Context, id int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.db.users, id)
	delete(s.db.usernames, u.Username)

	for k := range s.db.votes {
		if k.userID == id {
			delete(s.db.votes, k)
		}
	}
	for cid, c := range s.db.comments {
		if c.UserID == id {
			s.db.deleteCommentLocked(cid)
		}
	}
	for k := range s.db.likes {
		if k.userID == id {
			delete(s.db.likes, k)
		}
	}
	return nil
}

func (s memoryUsers) Activity(_ context.Context, id int64) (UserActivity, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out UserActivity
	for _, c := range s.db.comments {
		if c.UserID == id {
			out.Comments = append(out.Comments, c)
		}
	}
	for k, isLike := range s.db.votes {
		if k.userID == id {
			out.Votes = append(out.Votes, Vote{UserID: id, MalID: k.malID, IsLike: isLike})
		}
	}
	for k := range s.db.likes {
		if k.userID == id {
			out.CommentLikes = append(out.CommentLikes, k.commentID)
		}
	}
	sort.Slice(out.Comments, func(i, j int) bool { return out.Comments[i].ID < out.Comments[j].ID })
	sort.Slice(out.Votes, func(i, j int) bool { return out.Votes[i].MalID < out.Votes[j].MalID })
	sort.Slice(out.CommentLikes, func(i, j int) bool { return out.CommentLikes[i] < out.CommentLikes[j] })
	return out, nil
}

// ─── anime cache ────────────────────────────────────────────────────────────

type memoryAnime struct{ db *memoryDB }

func (s memoryAnime) GetByExternalID(_ context.Context, malID int) (Anime, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	a, ok := s.db.anime[malID]
	if !ok {
		return Anime{}, ErrNotFound
	}
	return cloneAnime(a), nil
}

func (s memoryAnime) Insert(_ context.Context, a Anime) (Anime, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.anime[a.MalID]; ok {
		return Anime{}, ErrDuplicateExternalID
	}
	s.db.nextAnimeID++
	a = cloneAnime(a)
	a.ID = s.db.nextAnimeID
	a.CreatedAt = s.db.now()
	s.db.anime[a.MalID] = a
	return cloneAnime(a), nil
}

func (s memoryAnime) Recommend(_ context.Context, a Anime, limit int) ([]Anime, error) {
	keys := a.GenreKeys()
	if len(keys) == 0 || limit <= 0 {
		return []Anime{}, nil
	}
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []Anime
	for _, other := range s.db.anime {
		if other.MalID == a.MalID {
			continue
		}
		if sharesGenre(want, other.GenreKeys()) {
			out = append(out, other)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i] = cloneAnime(out[i])
	}
	if out == nil {
		out = []Anime{}
	}
	return out, nil
}

func cloneAnime(a Anime) Anime {
	if a.Score != nil {
		v := *a.Score
		a.Score = &v
	}
	a.Genres = append([]Genre(nil), a.Genres...)
	a.StreamingLinks = append([]StreamingLink(nil), a.StreamingLinks...)
	return a
}

// ─── votes ──────────────────────────────────────────────────────────────────

type memoryVotes struct{ db *memoryDB }

func (s memoryVotes) ToggleVote(_ context.Context, userID int64, malID int, wantLike bool) (VoteTransition, VoteTally, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[userID]; !ok {
		return "", VoteTally{}, ErrNotFound
	}

	k := voteKey{userID: userID, malID: malID}
	var tr VoteTransition
	existing, ok := s.db.votes[k]
	switch {
	case !ok:
		s.db.votes[k] = wantLike
		tr = VoteCreated
	case existing == wantLike:
		delete(s.db.votes, k)
		tr = VoteRemoved
	default:
		s.db.votes[k] = wantLike
		tr = VoteFlipped
	}
	return tr, s.db.tallyLocked(malID), nil
}

func (s memoryVotes) Tally(_ context.Context, malID int) (VoteTally, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.db.tallyLocked(malID), nil
}

func (db *memoryDB) tallyLocked(malID int) VoteTally {
	var t VoteTally
	for k, isLike := range db.votes {
		if k.malID != malID {
			continue
		}
		if isLike {
			t.Likes++
		} else {
			t.Dislikes++
		}
	}
	return t
}

// ─── comments ───────────────────────────────────────────────────────────────

type memoryComments struct{ db *memoryDB }

func (s memoryComments) Create(_ context.Context, c Comment) (Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.users[c.UserID]; !ok {
		return Comment{}, ErrNotFound
	}
	s.db.nextCommentID++
	c.ID = s.db.nextCommentID
	c.CreatedAt = s.db.now()
	s.db.comments[c.ID] = c
	return c, nil
}

func (s memoryComments) Get(_ context.Context, id int64) (Comment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return c, nil
}

func (s memoryComments) Delete(_ context.Context, id, userID int64) (Comment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	if c.UserID != userID {
		return c, ErrForbidden
	}
	s.db.deleteCommentLocked(id)
	return c, nil
}

func (db *memoryDB) deleteCommentLocked(id int64) {
	delete(db.comments, id)
	for k := range db.likes {
		if k.commentID == id {
			delete(db.likes, k)
		}
	}
}

func (s memoryComments) ListForAnime(_ context.Context, malID int) ([]CommentView, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := []CommentView{}
	for _, c := range s.db.comments {
		if c.MalID != malID {
			continue
		}
		out = append(out, CommentView{
			Comment: c,
			Author:  s.db.users[c.UserID].Username,
			Likes:   s.db.likeCountLocked(c.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── comment likes ──────────────────────────────────────────────────────────

type memoryCommentLikes struct{ db *memoryDB }

func (s memoryCommentLikes) ToggleLike(_ context.Context, userID, commentID int64) (LikeTransition, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.comments[commentID]; !ok {
		return "", 0, ErrNotFound
	}
	if _, ok := s.db.users[userID]; !ok {
		return "", 0, ErrNotFound
	}
	k := likeKey{userID: userID, commentID: commentID}
	tr := LikeAdded
	if _, ok := s.db.likes[k]; ok {
		delete(s.db.likes, k)
		tr = LikeRemoved
	} else {
		s.db.likes[k] = struct{}{}
	}
	return tr, s.db.likeCountLocked(commentID), nil
}

func (db *memoryDB) likeCountLocked(commentID int64) int {
	n := 0
	for k := range db.likes {
		if k.commentID == commentID {
			n++
		}
	}
	return n
}
