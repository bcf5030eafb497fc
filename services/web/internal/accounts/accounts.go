// Package accounts registers, authenticates and deletes site users.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/animehub/internal/platform/analytics"
	"github.com/example/animehub/internal/platform/validation"
	"github.com/example/animehub/services/web/internal/store"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type RegisterInput struct {
	Username string `validate:"required,min=3,max=100"`
	Password string `validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type Service struct {
	users  store.UserStore
	events *analytics.Publisher
	log    *zap.Logger
	cost   int
}

func NewService(users store.UserStore, events *analytics.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{users: users, events: events, log: log, cost: bcrypt.DefaultCost}
}

// Register returns a validation.Errors value for bad input and
// ErrUsernameTaken when the name is in use.
func (s *Service) Register(ctx context.Context, in RegisterInput) (store.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Struct(in); err != nil {
		return store.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, in.Username, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.User{}, ErrUsernameTaken
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID))
	s.events.Publish(analytics.SubjectAuthRegistered, "user_registered", u.ID, nil)
	return u, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (store.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Struct(in); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	u, err := s.users.ByUsername(ctx, in.Username)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return store.User{}, ErrInvalidCredentials
	}
	s.events.Publish(analytics.SubjectAuthLoggedIn, "user_logged_in", u.ID, nil)
	return u, nil
}

// Delete removes the account and everything it owns.
func (s *Service) Delete(ctx context.Context, userID int64) error {
	act, err := s.users.Activity(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info("account deleted",
		zap.Int64("user_id", userID),
		zap.Int("comments", len(act.Comments)),
		zap.Int("votes", len(act.Votes)),
		zap.Int("comment_likes", len(act.CommentLikes)))
	s.events.Publish(analytics.SubjectAuthAccountDeleted, "account_deleted", userID, map[string]any{
		"comments":      len(act.Comments),
		"votes":         len(act.Votes),
		"comment_likes": len(act.CommentLikes),
	})
	return nil
}
