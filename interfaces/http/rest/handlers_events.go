package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/repository"
	"github.com/a3888968/wiseguide-backend/internal/service"
	"github.com/a3888968/wiseguide-backend/internal/validation"
)

type occurrenceInput struct {
	VenueID string `json:"venueId" validate:"required"`
	Room    string `json:"room" validate:"required"`
	Start   int64  `json:"start" validate:"required"`
	End     int64  `json:"end" validate:"required"`
}

type createEventRequest struct {
	Name        string            `json:"name" validate:"required"`
	Description string            `json:"description" validate:"required"`
	Categories  []string          `json:"categories"`
	Occurrences []occurrenceInput `json:"occurrences" validate:"required,dive"`
}

type addOccurrencesRequest struct {
	Occurrences []occurrenceInput `json:"occurrences" validate:"required,dive"`
}

type editEventRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Categories  []string `json:"categories"`
}

type updateOccurrenceRequest struct {
	Start   *int64  `json:"start"`
	End     *int64  `json:"end"`
	Room    *string `json:"room"`
	VenueID *string `json:"venueId"`
}

type occurrenceListResponse struct {
	Occurrences      []OccurrenceFullView `json:"occurrences"`
	NextCursor       string               `json:"nextCursor,omitempty"`
	LookedUpLocation *LocationView        `json:"lookedUpLocation,omitempty"`
}

// parseCoordParams reads an explicit reference point off the query string.
// Both parts must be present and numeric.
func parseCoordParams(latStr, lonStr string) (*float64, *float64) {
	if latStr == "" || lonStr == "" {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		return nil, nil
	}
	return &lat, &lon
}

func toRepoOccurrenceInputs(inputs []occurrenceInput) []repository.OccurrenceInput {
	out := make([]repository.OccurrenceInput, len(inputs))
	for i, in := range inputs {
		out[i] = repository.OccurrenceInput{VenueID: in.VenueID, Room: in.Room, Start: in.Start, End: in.End}
	}
	return out
}

func toValidationOccurrences(inputs []occurrenceInput) []validation.Occurrence {
	out := make([]validation.Occurrence, len(inputs))
	for i, in := range inputs {
		out[i] = validation.Occurrence{VenueID: in.VenueID, Room: in.Room, Start: in.Start, End: in.End}
	}
	return out
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req createEventRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	event := domain.Event{
		Name:        req.Name,
		Description: req.Description,
		Categories:  req.Categories,
		Contributor: claims.Username,
	}
	if err := validation.Event(&event); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := validation.Occurrences(toValidationOccurrences(req.Occurrences)); err != nil {
		writeError(w, s.logger, err)
		return
	}
	occurrences, err := s.events.PutEvent(r.Context(), claims.SystemID, event, toRepoOccurrenceInputs(req.Occurrences))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]OccurrenceFullView, len(occurrences))
	for i, occ := range occurrences {
		views[i] = toOccurrenceFullView(occ)
	}
	writeJSON(w, http.StatusCreated, views)
}

func (s *Server) handleAddOccurrences(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req addOccurrencesRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := validation.Occurrences(toValidationOccurrences(req.Occurrences)); err != nil {
		writeError(w, s.logger, err)
		return
	}
	occurrences, err := s.events.AddOccurrences(r.Context(), claims.SystemID, chi.URLParam(r, "eventId"), claims.Username, toRepoOccurrenceInputs(req.Occurrences))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]OccurrenceInEventView, len(occurrences))
	for i, occ := range occurrences {
		views[i] = toOccurrenceInEventView(occ)
	}
	writeJSON(w, http.StatusCreated, views)
}

func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req editEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.EventChanges(req.Name, req.Description, req.Categories); err != nil {
		writeError(w, s.logger, err)
		return
	}
	err := s.events.EditEventFields(r.Context(), claims.SystemID, chi.URLParam(r, "eventId"), claims.Username, repository.EventChanges{
		Name:        req.Name,
		Description: req.Description,
		Categories:  req.Categories,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListOccurrences(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	system, err := s.systems.GetSystem(r.Context(), claims.SystemID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	q := r.URL.Query()
	upcomingFrom, _ := strconv.ParseInt(q.Get("upcomingFrom"), 10, 64)
	until, _ := strconv.ParseInt(q.Get("until"), 10, 64)
	lat, lon := parseCoordParams(q.Get("lat"), q.Get("lon"))
	listing, err := s.listing.ListOccurrences(r.Context(), system, service.OccurrenceListRequest{
		VenueID:      q.Get("venueId"),
		EventID:      q.Get("eventId"),
		Category:     q.Get("category"),
		NameContains: q.Get("nameContains"),
		UpcomingFrom: upcomingFrom,
		Until:        until,
		Sort:         q.Get("sort"),
		Address:      q.Get("address"),
		Lat:          lat,
		Lon:          lon,
		Cursor:       q.Get("cursor"),
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]OccurrenceFullView, len(listing.Occurrences))
	for i, occ := range listing.Occurrences {
		views[i] = toOccurrenceFullView(occ)
	}
	writeJSON(w, http.StatusOK, occurrenceListResponse{
		Occurrences:      views,
		NextCursor:       listing.NextCursor,
		LookedUpLocation: toLocationView(listing.LookedUpLocation),
	})
}

func (s *Server) handleGetOccurrence(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	occ, err := s.events.GetOccurrence(r.Context(), claims.SystemID, chi.URLParam(r, "occurrenceId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceFullView(occ))
}

func (s *Server) handleUpdateOccurrence(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req updateOccurrenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.OccurrenceChanges(req.Start, req.End, req.Room); err != nil {
		writeError(w, s.logger, err)
		return
	}
	occ, err := s.events.UpdateOccurrence(r.Context(), claims.SystemID, chi.URLParam(r, "occurrenceId"), claims.Username, repository.OccurrenceChanges{
		Start:   req.Start,
		End:     req.End,
		Room:    req.Room,
		VenueID: req.VenueID,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOccurrenceFullView(occ))
}

func (s *Server) handleCancelOccurrence(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if err := s.events.CancelOccurrence(r.Context(), claims.SystemID, chi.URLParam(r, "occurrenceId"), claims.Username); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if err := s.events.CancelEvent(r.Context(), claims.SystemID, chi.URLParam(r, "eventId"), claims.Username); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if err := s.events.DeleteOccurrence(r.Context(), claims.SystemID, chi.URLParam(r, "occurrenceId"), claims.Username); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if err := s.events.DeleteEvent(r.Context(), claims.SystemID, chi.URLParam(r, "eventId"), claims.Username); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
