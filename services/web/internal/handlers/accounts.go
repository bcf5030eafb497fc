package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/internal/platform/validation"
	"github.com/example/animehub/services/web/internal/accounts"
	"github.com/example/animehub/services/web/internal/store"
	"github.com/example/animehub/services/web/internal/views"
)

type authForm struct {
	Username string
	Next     string
}

func RegisterForm(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, views.PageReg, s.page(w, r, authForm{}))
	}
}

func Register(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		in := accounts.RegisterInput{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
		_, err := s.Accounts.Register(r.Context(), in)
		if err == nil {
			views.AddFlash(w, r, views.FlashSuccess, "Registration successful! Please log in.")
			redirect(w, r, "/login")
			return
		}

		p := s.page(w, r, authForm{Username: in.Username})
		var verrs validation.Errors
		switch {
		case errors.Is(err, accounts.ErrUsernameTaken):
			p.Flashes = append(p.Flashes, views.Flash{Kind: views.FlashDanger, Message: "Username already exists."})
			s.render(w, r, http.StatusConflict, views.PageReg, p)
		case errors.As(err, &verrs):
			p.Flashes = append(p.Flashes, views.Flash{Kind: views.FlashDanger, Message: verrs.First()})
			s.render(w, r, http.StatusBadRequest, views.PageReg, p)
		default:
			s.Log.Error("register", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

func LoginForm(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := authForm{Next: safeNext(r.URL.Query().Get("next"))}
		s.render(w, r, http.StatusOK, views.PageLogin, s.page(w, r, form))
	}
}

func Login(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		in := accounts.LoginInput{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
		next := safeNext(r.PostFormValue("next"))

		u, err := s.Accounts.Login(r.Context(), in)
		if err != nil {
			if !errors.Is(err, accounts.ErrInvalidCredentials) {
				s.Log.Error("login", zap.Error(err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			p := s.page(w, r, authForm{Username: in.Username, Next: next})
			p.Flashes = append(p.Flashes, views.Flash{Kind: views.FlashDanger, Message: "Invalid username or password."})
			s.render(w, r, http.StatusUnauthorized, views.PageLogin, p)
			return
		}
		if err := s.Sessions.Issue(w, u); err != nil {
			s.Log.Error("issue session", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		redirect(w, r, next)
	}
}

func Logout(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Sessions.End(r.Context(), w, r); err != nil {
			s.Log.Warn("logout: revoke session", zap.Error(err))
		}
		redirect(w, r, "/")
	}
}

// DeleteAccount removes the caller and everything they posted or voted.
func DeleteAccount(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			loginRedirect(w, r, "/login")
			return
		}
		if err := s.Accounts.Delete(r.Context(), id.UserID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.Log.Error("delete account", zap.Int64("user_id", id.UserID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if err := s.Sessions.End(r.Context(), w, r); err != nil {
			s.Log.Warn("delete account: revoke session", zap.Error(err))
		}
		views.AddFlash(w, r, views.FlashSuccess, "Your account has been deleted.")
		redirect(w, r, "/")
	}
}
