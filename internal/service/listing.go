// Package service orchestrates repositories into the higher-level flows the
// API exposes: page-filled listings, sort dispatch, geo entry counting,
// popularity and the analysis queue.
package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/geocode"
	"github.com/a3888968/wiseguide-backend/internal/repository"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
	"github.com/a3888968/wiseguide-backend/pkg/utils"
)

// Sort orders accepted by the listing endpoints.
const (
	SortTime     = "Time"
	SortName     = "Name"
	SortDistance = "Distance"
)

// maxPageFillQueries caps how many raw pages a single listing request will
// chain before returning what it has.
const maxPageFillQueries = 10

// OccurrenceListRequest describes one occurrence listing call. A distance
// sort takes its reference point from explicit coordinates when both are
// set, otherwise from the address.
type OccurrenceListRequest struct {
	VenueID      string
	EventID      string
	Category     string
	NameContains string
	UpcomingFrom int64
	Until        int64
	Sort         string
	Address      string
	Lat          *float64
	Lon          *float64
	Cursor       string
}

// OccurrenceListing is a filled page of occurrences. LookedUpLocation is set
// when a distance sort resolved a location.
type OccurrenceListing struct {
	Occurrences      []domain.Occurrence
	NextCursor       string
	LookedUpLocation *geocode.Location
}

// VenueListRequest describes one venue listing call.
type VenueListRequest struct {
	NameContains string
	Sort         string
	Address      string
	Lat          *float64
	Lon          *float64
	Cursor       string
}

// VenueListing is a filled page of venues.
type VenueListing struct {
	Venues           []domain.Venue
	NextCursor       string
	LookedUpLocation *geocode.Location
}

// ListingService runs listing queries and keeps filling pages until they
// carry enough results to be worth returning.
type ListingService struct {
	events   *repository.EventRepository
	venues   *repository.VenueRepository
	geocoder geocode.Geocoder
	logger   *zap.Logger
}

// NewListingService creates a ListingService.
func NewListingService(events *repository.EventRepository, venues *repository.VenueRepository, geocoder geocode.Geocoder, logger *zap.Logger) *ListingService {
	return &ListingService{events: events, venues: venues, geocoder: geocoder, logger: logger}
}

// ListOccurrences returns a filled page of occurrences for a system. Server
// side filters can leave raw pages nearly empty, so pages are chained until
// the minimum fill is reached or the data runs out.
func (s *ListingService) ListOccurrences(ctx context.Context, system domain.System, req OccurrenceListRequest) (OccurrenceListing, error) {
	switch req.Sort {
	case "", SortTime, SortDistance:
	default:
		return OccurrenceListing{}, appErrors.NewValidation(appErrors.CodeSortOrderUnsupported, "unsupported sort order")
	}

	var out OccurrenceListing
	cursor := req.Cursor
	for i := 0; i < maxPageFillQueries; i++ {
		page, err := s.events.ListOccurrencesPage(ctx, system.SystemID, repository.OccurrenceListOptions{
			VenueID:      req.VenueID,
			EventID:      req.EventID,
			Category:     req.Category,
			NameContains: req.NameContains,
			UpcomingFrom: req.UpcomingFrom,
			Until:        req.Until,
			Limit:        repository.MinPageFill,
			Cursor:       cursor,
		})
		if err != nil {
			return OccurrenceListing{}, err
		}
		out.Occurrences = append(out.Occurrences, page.Occurrences...)
		cursor = page.NextCursor
		if cursor == "" || len(out.Occurrences) >= repository.MinPageFill {
			break
		}
	}
	out.NextCursor = cursor

	if req.Sort == SortDistance {
		loc, err := s.resolveLocation(ctx, system, req.Lat, req.Lon, req.Address, occurrenceCoords(out.Occurrences))
		if err != nil {
			return OccurrenceListing{}, err
		}
		out.LookedUpLocation = loc
		if loc != nil {
			sortOccurrencesByDistance(out.Occurrences, *loc)
		}
	}
	return out, nil
}

// ListVenues returns a filled page of venues for a system.
func (s *ListingService) ListVenues(ctx context.Context, system domain.System, req VenueListRequest) (VenueListing, error) {
	switch req.Sort {
	case "", SortName, SortDistance:
	default:
		return VenueListing{}, appErrors.NewValidation(appErrors.CodeSortOrderUnsupported, "unsupported sort order")
	}

	var out VenueListing
	cursor := req.Cursor
	for i := 0; i < maxPageFillQueries; i++ {
		page, err := s.venues.ListVenuesPage(ctx, system.SystemID, repository.VenueListOptions{
			SortByName:   req.Sort == SortName,
			NameContains: req.NameContains,
			Limit:        repository.MinPageFill,
			Cursor:       cursor,
		})
		if err != nil {
			return VenueListing{}, err
		}
		out.Venues = append(out.Venues, page.Venues...)
		cursor = page.NextCursor
		if cursor == "" || len(out.Venues) >= repository.MinPageFill {
			break
		}
	}
	out.NextCursor = cursor

	if req.Sort == SortDistance {
		loc, err := s.resolveLocation(ctx, system, req.Lat, req.Lon, req.Address, venueCoords(out.Venues))
		if err != nil {
			return VenueListing{}, err
		}
		out.LookedUpLocation = loc
		if loc != nil {
			sortVenuesByDistance(out.Venues, *loc)
		}
	}
	return out, nil
}

// resolveLocation turns a distance-sort request into a reference point.
// Explicit coordinates win outright. A given address is geocoded scoped to
// the system's location query suffix and the candidate closest to the system
// centre wins. With neither, the midpoint of the result set's bounding box
// is used.
func (s *ListingService) resolveLocation(ctx context.Context, system domain.System, lat, lon *float64, address string, coords [][2]float64) (*geocode.Location, error) {
	if lat != nil && lon != nil {
		return &geocode.Location{Lat: *lat, Lon: *lon}, nil
	}
	if address != "" {
		query := address
		if system.AppendToLocationQuery != "" {
			query += " " + system.AppendToLocationQuery
		}
		candidates, err := s.geocoder.Geocode(ctx, query)
		if err != nil {
			s.logger.Warn("geocoding failed", zap.String("query", query), zap.Error(err))
			return nil, appErrors.NewValidation(appErrors.CodeLocationNotFound, "could not resolve location")
		}
		if len(candidates) == 0 {
			return nil, appErrors.NewValidation(appErrors.CodeLocationNotFound, "could not resolve location")
		}
		best := candidates[0]
		bestDist := utils.DistanceMetres(best.Lat, best.Lon, system.Lat, system.Lon)
		for _, c := range candidates[1:] {
			if d := utils.DistanceMetres(c.Lat, c.Lon, system.Lat, system.Lon); d < bestDist {
				best, bestDist = c, d
			}
		}
		return &best, nil
	}

	lats := make([]float64, len(coords))
	lons := make([]float64, len(coords))
	for i, c := range coords {
		lats[i], lons[i] = c[0], c[1]
	}
	midLat, midLon, ok := utils.BoundingBoxMidpoint(lats, lons)
	if !ok {
		return nil, nil
	}
	return &geocode.Location{Lat: midLat, Lon: midLon}, nil
}

func occurrenceCoords(occurrences []domain.Occurrence) [][2]float64 {
	coords := make([][2]float64, len(occurrences))
	for i, o := range occurrences {
		coords[i] = [2]float64{o.Venue.Lat, o.Venue.Lon}
	}
	return coords
}

func venueCoords(venues []domain.Venue) [][2]float64 {
	coords := make([][2]float64, len(venues))
	for i, v := range venues {
		coords[i] = [2]float64{v.Lat, v.Lon}
	}
	return coords
}

func sortOccurrencesByDistance(occurrences []domain.Occurrence, loc geocode.Location) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		di := utils.DistanceMetres(occurrences[i].Venue.Lat, occurrences[i].Venue.Lon, loc.Lat, loc.Lon)
		dj := utils.DistanceMetres(occurrences[j].Venue.Lat, occurrences[j].Venue.Lon, loc.Lat, loc.Lon)
		return di < dj
	})
}

func sortVenuesByDistance(venues []domain.Venue, loc geocode.Location) {
	sort.SliceStable(venues, func(i, j int) bool {
		di := utils.DistanceMetres(venues[i].Lat, venues[i].Lon, loc.Lat, loc.Lon)
		dj := utils.DistanceMetres(venues[j].Lat, venues[j].Lon, loc.Lat, loc.Lon)
		return di < dj
	})
}
