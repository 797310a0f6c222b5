package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/repository"
	"github.com/a3888968/wiseguide-backend/internal/validation"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

type signupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	SystemID string `json:"systemId" validate:"required"`
}

type loginRequest struct {
	SystemID string `json:"systemId" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Email     *string  `json:"email"`
	Name      *string  `json:"name"`
	Biography *string  `json:"biography"`
	Summary   *string  `json:"summary"`
	Password  *string  `json:"password"`
	Roles     []string `json:"roles"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	user := domain.User{Username: req.Username, Email: req.Email, Roles: []string{domain.RoleContributor}}
	if err := validation.User(&user, req.Password); err != nil {
		writeError(w, s.logger, err)
		return
	}
	system, err := s.systems.GetSystem(r.Context(), req.SystemID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			err = appErrors.NewValidation("bad_systemid", "system does not exist")
		}
		writeError(w, s.logger, err)
		return
	}
	user.System = system

	hash, err := HashPassword(req.Password)
	if err != nil {
		writeError(w, s.logger, appErrors.NewInternal("failed to hash password", err))
		return
	}
	user.HashedPassword = hash

	if err := s.users.PutUser(r.Context(), user); err != nil {
		writeError(w, s.logger, err)
		return
	}
	token, err := s.auth.IssueToken(user)
	if err != nil {
		writeError(w, s.logger, appErrors.NewInternal("failed to issue token", err))
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserView(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeValid(w, r, &req) {
		return
	}

	user, err := s.users.GetUser(r.Context(), req.SystemID, req.Username)
	if err != nil {
		if appErrors.IsNotFound(err) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Reason: "bad_credentials"})
			return
		}
		writeError(w, s.logger, err)
		return
	}
	if !CheckPassword(user.HashedPassword, req.Password) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Reason: "bad_credentials"})
		return
	}
	token, err := s.auth.IssueToken(user)
	if err != nil {
		writeError(w, s.logger, appErrors.NewInternal("failed to issue token", err))
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserView(user)})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	user, err := s.users.GetUser(r.Context(), claims.SystemID, claims.Username)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}

// handleUpdateUser edits a user's account fields. Users edit their own
// account; admins may edit anyone's, and only admins may change roles.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	username := chi.URLParam(r, "username")
	if username != claims.Username && !claims.IsAdmin {
		writeJSON(w, http.StatusForbidden, errorResponse{Reason: "forbidden"})
		return
	}
	var req updateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Roles != nil && !claims.IsAdmin {
		writeJSON(w, http.StatusForbidden, errorResponse{Reason: "forbidden"})
		return
	}
	if err := validation.UserChanges(req.Email, req.Name, req.Biography, req.Summary, req.Password, req.Roles); err != nil {
		writeError(w, s.logger, err)
		return
	}
	changes := repository.UserChanges{
		Email:     req.Email,
		Name:      req.Name,
		Biography: req.Biography,
		Summary:   req.Summary,
		Roles:     req.Roles,
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			writeError(w, s.logger, appErrors.NewInternal("failed to hash password", err))
			return
		}
		changes.HashedPassword = &hash
	}
	user, err := s.users.UpdateUser(r.Context(), claims.SystemID, username, changes)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(user))
}
