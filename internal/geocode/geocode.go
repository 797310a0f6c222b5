// Package geocode wraps the external geocoding collaborator used by
// distance-sorted listings.
package geocode

import (
	"context"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"
)

// Location is one geocoding candidate.
type Location struct {
	Lat float64
	Lon float64
}

// Geocoder resolves a free-text query to candidate locations.
type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]Location, error)
}

// OSM is a Geocoder backed by the OpenStreetMap Nominatim service.
type OSM struct {
	geocoder geo.Geocoder
}

// NewOSM creates an OpenStreetMap geocoder.
func NewOSM() *OSM {
	return &OSM{geocoder: openstreetmap.Geocoder()}
}

// Geocode resolves a query. A query Nominatim cannot place returns an empty
// candidate list, not an error.
func (o *OSM) Geocode(ctx context.Context, query string) ([]Location, error) {
	loc, err := o.geocoder.Geocode(query)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, nil
	}
	return []Location{{Lat: loc.Lat, Lon: loc.Lng}}, nil
}
