package httpapi

import (
	"net/http"
	"time"

	"github.com/avolkovs/taskdeck/internal/server/models"
	"github.com/avolkovs/taskdeck/internal/server/services"
)

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// toUserResponse builds the outbound profile. The avatar is exposed as a
// short-lived presigned URL; if presigning fails the profile is still
// returned, just without the avatar.
func (s *Server) toUserResponse(r *http.Request, user *models.User) userResponse {
	resp := userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	if user.AvatarKey != "" {
		url, err := s.users.AvatarDownloadURL(r.Context(), user.AvatarKey)
		if err != nil {
			s.logger.Warn(r.Context(), "avatar presign failed", "error", err.Error())
		} else {
			resp.AvatarURL = url
		}
	}
	return resp
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user, err := s.users.Register(r.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, envelope{"user": s.toUserResponse(r, user)})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	token, user, err := s.users.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"token": token, "user": s.toUserResponse(r, user)})
}

func (s *Server) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.CurrentUser(r.Context(), userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"user": s.toUserResponse(r, user)})
}

func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name   *string `json:"name"`
		Email  *string `json:"email"`
		Avatar *string `json:"avatar"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), userIDFromRequest(r), services.UpdateProfileParams{
		Name:      input.Name,
		Email:     input.Email,
		AvatarKey: input.Avatar,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"user": s.toUserResponse(r, user)})
}

func (s *Server) updatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := s.readJSON(w, r, &input); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.users.UpdatePassword(r.Context(), userIDFromRequest(r), input.OldPassword, input.NewPassword); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"message": "password updated"})
}

func (s *Server) avatarUploadURLHandler(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.users.AvatarUploadURL(r.Context(), userIDFromRequest(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{"key": key, "uploadUrl": url})
}
