package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/validation"
)

type createSystemRequest struct {
	SystemID              string  `json:"systemId" validate:"required"`
	Name                  string  `json:"name" validate:"required"`
	Lat                   float64 `json:"lat"`
	Lon                   float64 `json:"lon"`
	AppendToLocationQuery string  `json:"appendToLocationQuery"`
}

type updateSystemRequest struct {
	Name                  string  `json:"name" validate:"required"`
	Lat                   float64 `json:"lat"`
	Lon                   float64 `json:"lon"`
	AppendToLocationQuery string  `json:"appendToLocationQuery"`
	Locked                bool    `json:"locked"`
}

func (s *Server) handleCreateSystem(w http.ResponseWriter, r *http.Request) {
	var req createSystemRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	system := domain.System{
		SystemID:              req.SystemID,
		Name:                  req.Name,
		Lat:                   req.Lat,
		Lon:                   req.Lon,
		AppendToLocationQuery: req.AppendToLocationQuery,
	}
	if err := validation.System(&system); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.systems.CreateSystem(r.Context(), system); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSystemView(system))
}

func (s *Server) handleListSystems(w http.ResponseWriter, r *http.Request) {
	systems, err := s.systems.ListSystems(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]SystemView, len(systems))
	for i, system := range systems {
		views[i] = toSystemView(system)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	system, err := s.systems.GetSystem(r.Context(), chi.URLParam(r, "systemId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSystemView(system))
}

func (s *Server) handleUpdateSystem(w http.ResponseWriter, r *http.Request) {
	var req updateSystemRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	system := domain.System{
		SystemID:              chi.URLParam(r, "systemId"),
		Name:                  req.Name,
		Lat:                   req.Lat,
		Lon:                   req.Lon,
		AppendToLocationQuery: req.AppendToLocationQuery,
		Locked:                req.Locked,
	}
	if err := validation.System(&system); err != nil {
		writeError(w, s.logger, err)
		return
	}
	updated, err := s.systems.UpdateSystem(r.Context(), system)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSystemView(updated))
}

func (s *Server) handleLockSystem(locked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.systems.SetLock(r.Context(), chi.URLParam(r, "systemId"), locked); err != nil {
			writeError(w, s.logger, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	}
}

// handleDeleteSystem removes a system and its user accounts. Orphaned content
// rows are unreachable once the system is gone; only users span systems.
func (s *Server) handleDeleteSystem(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "systemId")
	users, err := s.users.ListUsersBySystem(r.Context(), systemID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.systems.DeleteSystem(r.Context(), systemID); err != nil {
		writeError(w, s.logger, err)
		return
	}
	for _, user := range users {
		if err := s.users.DeleteUser(r.Context(), systemID, user.Username); err != nil {
			s.logger.Warn("failed to delete user of removed system",
				zap.String("systemId", systemID),
				zap.String("username", user.Username),
				zap.Error(err))
		}
	}
	writeJSON(w, http.StatusNoContent, nil)
}
