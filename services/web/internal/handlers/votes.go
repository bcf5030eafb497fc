package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/animehub/internal/platform/api"
	"github.com/example/animehub/internal/platform/auth"
	"github.com/example/animehub/internal/platform/httpserver"
	"github.com/example/animehub/services/web/internal/reactions"
)

type voteReq struct {
	IsLike *bool `json:"is_like"`
}

type voteResp struct {
	Success  bool `json:"success"`
	Likes    int  `json:"likes"`
	Dislikes int  `json:"dislikes"`
}

// Vote toggles the caller's like or dislike on an anime.
func Vote(s *Site) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		malID, ok := positiveInt(chi.URLParam(r, "mal_id"))
		if !ok {
			api.BadRequest(w, r, api.CodeInvalidID, "mal_id must be a positive integer")
			return
		}
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, r)
			return
		}
		var req voteReq
		if err := api.DecodeJSON(r, &req); err != nil || req.IsLike == nil {
			api.BadRequest(w, r, api.CodeInvalidJSON, "is_like is required")
			return
		}

		tally, err := s.Reactions.ToggleVote(r.Context(), id, malID, *req.IsLike)
		if err != nil {
			if errors.Is(err, reactions.ErrUnauthorized) {
				api.Unauthorized(w, r)
				return
			}
			s.Log.Error("vote", zap.Int("mal_id", malID), zap.String("request_id", httpserver.RequestIDFromContext(r.Context())), zap.Error(err))
			api.Internal(w, r)
			return
		}
		api.WriteJSON(w, http.StatusOK, voteResp{Success: true, Likes: tally.Likes, Dislikes: tally.Dislikes})
	}
}
