package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/repository"
	"github.com/a3888968/wiseguide-backend/internal/service"
	"github.com/a3888968/wiseguide-backend/internal/validation"
)

type createVenueRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Address     string   `json:"address" validate:"required"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Rooms       []string `json:"rooms" validate:"required"`
}

type updateVenueRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

type addRoomRequest struct {
	Room string `json:"room" validate:"required"`
}

type venueListResponse struct {
	Venues           []VenueFullView `json:"venues"`
	NextCursor       string          `json:"nextCursor,omitempty"`
	LookedUpLocation *LocationView   `json:"lookedUpLocation,omitempty"`
}

func (s *Server) handleCreateVenue(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req createVenueRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	venue := domain.Venue{
		SystemID:    claims.SystemID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Lat:         req.Lat,
		Lon:         req.Lon,
		Rooms:       req.Rooms,
		Contributor: claims.Username,
	}
	if err := validation.Venue(&venue); err != nil {
		writeError(w, s.logger, err)
		return
	}
	created, err := s.venues.CreateVenue(r.Context(), venue)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVenueFullView(created))
}

func (s *Server) handleListVenues(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	system, err := s.systems.GetSystem(r.Context(), claims.SystemID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	q := r.URL.Query()
	lat, lon := parseCoordParams(q.Get("lat"), q.Get("lon"))
	listing, err := s.listing.ListVenues(r.Context(), system, service.VenueListRequest{
		NameContains: q.Get("nameContains"),
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
	views := make([]VenueFullView, len(listing.Venues))
	for i, venue := range listing.Venues {
		views[i] = toVenueFullView(venue)
	}
	writeJSON(w, http.StatusOK, venueListResponse{
		Venues:           views,
		NextCursor:       listing.NextCursor,
		LookedUpLocation: toLocationView(listing.LookedUpLocation),
	})
}

func (s *Server) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	venue, err := s.venues.GetVenue(r.Context(), claims.SystemID, chi.URLParam(r, "venueId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toVenueFullView(venue))
}

func (s *Server) handleUpdateVenue(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req updateVenueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validation.VenueChanges(req.Name, req.Description, req.Address, req.Lat, req.Lon); err != nil {
		writeError(w, s.logger, err)
		return
	}
	venue, err := s.venues.UpdateVenue(r.Context(), claims.SystemID, chi.URLParam(r, "venueId"), claims.Username, repository.VenueChanges{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Lat:         req.Lat,
		Lon:         req.Lon,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toVenueFullView(venue))
}

func (s *Server) handleAddRoom(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	var req addRoomRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	if err := validation.Room(&req.Room); err != nil {
		writeError(w, s.logger, err)
		return
	}
	venue, err := s.venues.AddRoom(r.Context(), claims.SystemID, chi.URLParam(r, "venueId"), claims.Username, req.Room)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toVenueFullView(venue))
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	venue, err := s.venues.DeleteRoom(r.Context(), claims.SystemID, chi.URLParam(r, "venueId"), claims.Username, chi.URLParam(r, "room"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toVenueFullView(venue))
}

func (s *Server) handleDeleteVenue(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if err := s.venues.DeleteVenue(r.Context(), claims.SystemID, chi.URLParam(r, "venueId"), claims.Username); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
