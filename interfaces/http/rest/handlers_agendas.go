package rest

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/validation"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

type createAgendaRequest struct {
	Name string `json:"name" validate:"required"`
}

type addAgendaItemRequest struct {
	OccurrenceID string `json:"occurrenceId" validate:"required"`
}

type agendaDetailResponse struct {
	Agenda AgendaView       `json:"agenda"`
	Items  []AgendaItemView `json:"items"`
}

func (s *Server) handleCreateAgenda(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req createAgendaRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := validation.Agenda(&req.Name); err != nil {
		writeError(w, s.logger, err)
		return
	}
	agenda, err := s.agendas.CreateAgenda(r.Context(), domain.Agenda{
		SystemID: claims.SystemID,
		Owner:    claims.Username,
		Name:     req.Name,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAgendaView(agenda))
}

func (s *Server) handleListAgendas(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	agendas, err := s.agendas.ListAgendasByOwner(r.Context(), claims.Username)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]AgendaView, len(agendas))
	for i, agenda := range agendas {
		views[i] = toAgendaView(agenda)
	}
	writeJSON(w, http.StatusOK, views)
}

// ownedAgenda loads an agenda and verifies the caller owns it. Foreign
// agendas are reported as missing, not forbidden.
func (s *Server) ownedAgenda(ctx context.Context, agendaID string) (domain.Agenda, error) {
	claims := ClaimsFrom(ctx)
	agenda, err := s.agendas.GetAgenda(ctx, claims.SystemID, agendaID)
	if err != nil {
		return domain.Agenda{}, err
	}
	if agenda.Owner != claims.Username {
		return domain.Agenda{}, appErrors.NewNotFound(appErrors.CodeAgendaNotFound, "agenda does not exist")
	}
	return agenda, nil
}

func (s *Server) handleGetAgenda(w http.ResponseWriter, r *http.Request) {
	agenda, err := s.ownedAgenda(r.Context(), chi.URLParam(r, "agendaId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	items, err := s.agendas.ListAgendaItems(r.Context(), agenda.SystemID, agenda.AgendaID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	itemViews := make([]AgendaItemView, len(items))
	for i, item := range items {
		itemViews[i] = toAgendaItemView(item)
	}
	writeJSON(w, http.StatusOK, agendaDetailResponse{Agenda: toAgendaView(agenda), Items: itemViews})
}

func (s *Server) handleDeleteAgenda(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if err := s.agendas.DeleteAgenda(r.Context(), claims.SystemID, chi.URLParam(r, "agendaId"), claims.Username); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddAgendaItem(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req addAgendaItemRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	agenda, err := s.ownedAgenda(r.Context(), chi.URLParam(r, "agendaId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	occurrence, err := s.events.GetOccurrence(r.Context(), claims.SystemID, req.OccurrenceID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	item, err := s.agendas.AddAgendaItem(r.Context(), agenda, occurrence)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.queueAnalysis(r.Context(), claims.SystemID)
	writeJSON(w, http.StatusCreated, toAgendaItemView(item))
}

func (s *Server) handleDeleteAgendaItem(w http.ResponseWriter, r *http.Request) {
	agenda, err := s.ownedAgenda(r.Context(), chi.URLParam(r, "agendaId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.agendas.DeleteAgendaItem(r.Context(), agenda.SystemID, agenda.AgendaID, chi.URLParam(r, "occurrenceId")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// queueAnalysis asks for a suggestion-analysis run in the background. Agenda
// activity is what feeds the suggestion model, so item adds trigger it.
func (s *Server) queueAnalysis(ctx context.Context, systemID string) {
	if s.analysis == nil {
		return
	}
	go func(ctx context.Context) {
		if err := s.analysis.EnqueueSystem(ctx, systemID); err != nil {
			s.logger.Warn("failed to queue system for analysis",
				zap.String("systemId", systemID), zap.Error(err))
		}
	}(context.WithoutCancel(ctx))
}
