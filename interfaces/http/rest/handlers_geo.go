package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/a3888968/wiseguide-backend/internal/domain"
)

type geoEntryRequest struct {
	VenueID  string `json:"venueId" validate:"required"`
	DeviceID string `json:"deviceId" validate:"required"`
	Time     int64  `json:"time" validate:"required"`
}

type geoEntryResponse struct {
	Accepted bool `json:"accepted"`
}

type popularResponse struct {
	Venues []PopularVenueView `json:"venues"`
	Events []PopularEventView `json:"events"`
}

func (s *Server) handleRecordGeoEntry(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req geoEntryRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if _, err := s.venues.GetVenue(r.Context(), claims.SystemID, req.VenueID); err != nil {
		writeError(w, s.logger, err)
		return
	}
	accepted, err := s.geoEntries.RecordEntry(r.Context(), domain.GeoEntry{
		SystemID: claims.SystemID,
		VenueID:  req.VenueID,
		DeviceID: req.DeviceID,
		Username: claims.Username,
		Time:     req.Time,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, geoEntryResponse{Accepted: accepted})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	venues, events, err := s.popularity.Popular(r.Context(), claims.SystemID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	resp := popularResponse{
		Venues: make([]PopularVenueView, len(venues)),
		Events: make([]PopularEventView, len(events)),
	}
	for i, v := range venues {
		resp.Venues[i] = toPopularVenueView(v)
	}
	for i, e := range events {
		resp.Events[i] = toPopularEventView(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserSuggestions(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	s.writeSuggestions(w, r, claims.Username)
}

func (s *Server) handleAgendaSuggestions(w http.ResponseWriter, r *http.Request) {
	agenda, err := s.ownedAgenda(r.Context(), chi.URLParam(r, "agendaId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	s.writeSuggestions(w, r, agenda.AgendaID)
}

func (s *Server) writeSuggestions(w http.ResponseWriter, r *http.Request, targetID string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	suggestions, err := s.suggestions.TopSuggestions(r.Context(), targetID, limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]SuggestedEventView, len(suggestions))
	for i, sug := range suggestions {
		views[i] = SuggestedEventView{EventID: sug.EventID, Score: sug.Score}
	}
	writeJSON(w, http.StatusOK, views)
}
