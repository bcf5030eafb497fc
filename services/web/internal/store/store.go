// Package store persists users, cached anime records and engagement rows.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrDuplicateExternalID = errors.New("anime already cached")
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Genre struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

type StreamingLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Anime is an immutable snapshot of one upstream record.
type Anime struct {
	ID             int64
	MalID          int
	Title          string
	Synopsis       string
	ImageURL       string
	Score          *float64
	StreamingLinks []StreamingLink
	Genres         []Genre
	CreatedAt      time.Time
}

// NormalizeGenre folds case and collapses whitespace.
func NormalizeGenre(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// GenreKeys returns the distinct normalized genre names in input order.
func (a Anime) GenreKeys() []string {
	seen := make(map[string]struct{}, len(a.Genres))
	keys := make([]string, 0, len(a.Genres))
	for _, g := range a.Genres {
		k := NormalizeGenre(g.Name)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

type Comment struct {
	ID        int64
	UserID    int64
	MalID     int
	Text      string
	CreatedAt time.Time
}

// CommentView is a comment enriched for rendering.
type CommentView struct {
	Comment
	Author string
	Likes  int
}

type Vote struct {
	UserID int64
	MalID  int
	IsLike bool
}

type VoteTally struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// VoteTransition names the row change a vote toggle performed.
type VoteTransition string

const (
	VoteCreated VoteTransition = "created"
	VoteRemoved VoteTransition = "removed"
	VoteFlipped VoteTransition = "flipped"
)

type LikeTransition string

const (
	LikeAdded   LikeTransition = "added"
	LikeRemoved LikeTransition = "removed"
)

// UserActivity lists every engagement row owned by one user.
type UserActivity struct {
	Comments     []Comment
	Votes        []Vote
	CommentLikes []int64
}

func (a UserActivity) Empty() bool {
	return len(a.Comments) == 0 && len(a.Votes) == 0 && len(a.CommentLikes) == 0
}

type UserStore interface {
	// Create fails with ErrConflict when the username is taken.
	Create(ctx context.Context, username, passwordHash string) (User, error)
	ByUsername(ctx context.Context, username string) (User, error)
	ByID(ctx context.Context, id int64) (User, error)
	// Delete removes the user and cascades to every row they own.
	Delete(ctx context.Context, id int64) error
	Activity(ctx context.Context, id int64) (UserActivity, error)
}

type AnimeStore interface {
	GetByExternalID(ctx context.Context, malID int) (Anime, error)
	// Insert fails with ErrDuplicateExternalID when malID is already cached.
	Insert(ctx context.Context, a Anime) (Anime, error)
	// Recommend returns up to limit other cached records sharing at least
	// one normalized genre name with a, oldest first.
	Recommend(ctx context.Context, a Anime, limit int) ([]Anime, error)
}

type VoteStore interface {
	// ToggleVote applies the create/remove/flip transition atomically.
	ToggleVote(ctx context.Context, userID int64, malID int, wantLike bool) (VoteTransition, VoteTally, error)
	Tally(ctx context.Context, malID int) (VoteTally, error)
}

type CommentStore interface {
	Create(ctx context.Context, c Comment) (Comment, error)
	Get(ctx context.Context, id int64) (Comment, error)
	// Delete removes the comment when userID is its author. It returns the
	// deleted comment, ErrNotFound, or ErrForbidden.
	Delete(ctx context.Context, id, userID int64) (Comment, error)
	// ListForAnime returns comments oldest first.
	ListForAnime(ctx context.Context, malID int) ([]CommentView, error)
}

type CommentLikeStore interface {
	// ToggleLike adds or removes the like atomically. The comment must exist.
	ToggleLike(ctx context.Context, userID, commentID int64) (LikeTransition, int, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Users        UserStore
	Anime        AnimeStore
	Votes        VoteStore
	Comments     CommentStore
	CommentLikes CommentLikeStore

	Ping  func(ctx context.Context) error
	Close func()
}

func sharesGenre(keys map[string]struct{}, other []string) bool {
	for _, k := range other {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}
