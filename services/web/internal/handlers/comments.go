package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/analytics"
	"github.com/example/animehub/internal/platform/api"
	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/internal/platform/httpserver"
	"github.com/example/animehub/internal/platform/validation"
	"github.com/example/animehub/services/web/internal/reactions"
	"github.com/example/animehub/services/web/internal/store"
	"github.com/example/animehub/services/web/internal/views"
)

type commentForm struct {
	Text string `validate:"required,max=500"`
}

func detailPath(malID int) string {
	return "/anime/" + strconv.Itoa(malID)
}

// PostComment adds the caller's comment and returns to the anime page.
func PostComment(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		malID, ok := positiveInt(chi.URLParam(r, "mal_id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			loginRedirect(w, r, detailPath(malID))
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		form := commentForm{Text: strings.TrimSpace(r.PostFormValue("comment_text"))}
		if err := validation.Struct(form); err != nil {
			views.AddFlash(w, r, views.FlashDanger, "Comment must be between 1 and 500 characters.")
			redirect(w, r, detailPath(malID))
			return
		}

		c, err := s.Comments.Create(r.Context(), store.Comment{UserID: id.UserID, MalID: malID, Text: form.Text})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				loginRedirect(w, r, detailPath(malID))
				return
			}
			s.Log.Error("post comment", zap.Int("mal_id", malID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		s.Events.Publish(analytics.SubjectCommentPosted, "comment_posted", id.UserID, map[string]any{
			"mal_id":     malID,
			"comment_id": c.ID,
		})
		views.AddFlash(w, r, views.FlashSuccess, "Your comment has been posted.")
		redirect(w, r, detailPath(malID)+"#comment-"+strconv.FormatInt(c.ID, 10))
	}
}

// DeleteComment lets an author remove their own comment.
func DeleteComment(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, ok := positiveInt64(chi.URLParam(r, "comment_id"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			loginRedirect(w, r, "/")
			return
		}
		c, err := s.Comments.Delete(r.Context(), commentID, id.UserID)
		switch {
		case err == nil:
			views.AddFlash(w, r, views.FlashSuccess, "Your comment has been deleted.")
		case errors.Is(err, store.ErrForbidden):
			views.AddFlash(w, r, views.FlashDanger, "You are not authorized to delete this comment.")
		case errors.Is(err, store.ErrNotFound):
			http.NotFound(w, r)
			return
		default:
			s.Log.Error("delete comment", zap.Int64("comment_id", commentID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		redirect(w, r, detailPath(c.MalID))
	}
}

// LikeComment toggles the caller's like and answers {success, likes}.
func LikeComment(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, ok := positiveInt64(chi.URLParam(r, "comment_id"))
		if !ok {
			api.BadRequest(w, r, api.CodeInvalidID, "comment_id must be a positive integer")
			return
		}
		id, _ := auth.IdentityFromContext(r.Context())
		likes, err := s.Reactions.ToggleCommentLike(r.Context(), id, commentID)
		if err != nil {
			switch {
			case errors.Is(err, reactions.ErrUnauthorized):
				api.Unauthorized(w, r)
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, r, "Comment not found")
			default:
				s.Log.Error("like comment", zap.Int64("comment_id", commentID), zap.String("request_id", httpserver.RequestIDFromContext(r.Context())), zap.Error(err))
				api.Internal(w, r)
			}
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "likes": likes})
	}
}
