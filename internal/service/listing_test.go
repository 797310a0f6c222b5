package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/geocode"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

func newListingService(env *testEnv, geocoder geocode.Geocoder) *ListingService {
	return NewListingService(env.events, env.venues, geocoder, zap.NewNop())
}

func bristol() domain.System {
	return domain.System{SystemID: "bristol", Name: "Bristol", Lat: 51.45, Lon: -2.59}
}

func TestListingService_ListOccurrences_RejectsUnknownSort(t *testing.T) {
	env := newTestEnv()
	svc := newListingService(env, &fakeGeocoder{})

	_, err := svc.ListOccurrences(context.Background(), bristol(), OccurrenceListRequest{Sort: "Colour"})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeSortOrderUnsupported))

	_, err = svc.ListVenues(context.Background(), bristol(), VenueListRequest{Sort: "Time"})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeSortOrderUnsupported))
}

func TestListingService_ListOccurrences_ChainsPagesUntilFilled(t *testing.T) {
	env := newTestEnv()
	svc := newListingService(env, &fakeGeocoder{})
	venue := env.mustCreateVenue(t, "Town Hall", 51.5, -0.12)

	// 20 occurrences, of which 5 scattered through the start order match the
	// name filter. A single raw page of 15 cannot hold them all, so the
	// service has to chain pages until the data runs out.
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("Filler %02d", i)
		if i%4 == 0 {
			name = fmt.Sprintf("Special %02d", i)
		}
		env.mustPutEvent(t, name, venue.VenueID, int64(1000+i*100), int64(1050+i*100))
	}

	listing, err := svc.ListOccurrences(context.Background(), bristol(), OccurrenceListRequest{
		NameContains: "Special",
	})
	require.NoError(t, err)
	assert.Len(t, listing.Occurrences, 5)
	assert.Empty(t, listing.NextCursor)
	for _, occ := range listing.Occurrences {
		assert.Contains(t, occ.Event.Name, "Special")
	}
}

func TestListingService_ListOccurrences_ReturnsCursorWhenMoreRemains(t *testing.T) {
	env := newTestEnv()
	svc := newListingService(env, &fakeGeocoder{})
	venue := env.mustCreateVenue(t, "Town Hall", 51.5, -0.12)
	for i := 0; i < 20; i++ {
		env.mustPutEvent(t, fmt.Sprintf("Show %02d", i), venue.VenueID, int64(1000+i*100), int64(1050+i*100))
	}

	listing, err := svc.ListOccurrences(context.Background(), bristol(), OccurrenceListRequest{})
	require.NoError(t, err)
	assert.Len(t, listing.Occurrences, 15)
	require.NotEmpty(t, listing.NextCursor)

	rest, err := svc.ListOccurrences(context.Background(), bristol(), OccurrenceListRequest{
		Cursor: listing.NextCursor,
	})
	require.NoError(t, err)
	assert.Len(t, rest.Occurrences, 5)
	assert.Empty(t, rest.NextCursor)
}

func TestListingService_ListVenues_DistanceSortWithAddress(t *testing.T) {
	env := newTestEnv()
	geocoder := &fakeGeocoder{candidates: []geocode.Location{
		{Lat: 40, Lon: 40},       // far from the system centre
		{Lat: 51.46, Lon: -2.60}, // close, should win
	}}
	svc := newListingService(env, geocoder)

	near := env.mustCreateVenue(t, "Near", 51.46, -2.61)
	far := env.mustCreateVenue(t, "Far", 55.95, -3.19)

	system := bristol()
	system.AppendToLocationQuery = "Bristol UK"
	listing, err := svc.ListVenues(context.Background(), system, VenueListRequest{
		Sort:    SortDistance,
		Address: "Market Square",
	})
	require.NoError(t, err)
	assert.Equal(t, "Market Square Bristol UK", geocoder.lastQuery)
	require.NotNil(t, listing.LookedUpLocation)
	assert.InDelta(t, 51.46, listing.LookedUpLocation.Lat, 0.001)
	require.Len(t, listing.Venues, 2)
	assert.Equal(t, near.VenueID, listing.Venues[0].VenueID)
	assert.Equal(t, far.VenueID, listing.Venues[1].VenueID)
}

func TestListingService_ListVenues_DistanceSortWithExplicitCoords(t *testing.T) {
	env := newTestEnv()
	geocoder := &fakeGeocoder{candidates: []geocode.Location{{Lat: 40, Lon: 40}}}
	svc := newListingService(env, geocoder)

	near := env.mustCreateVenue(t, "Near", 51.46, -2.61)
	far := env.mustCreateVenue(t, "Far", 55.95, -3.19)

	// explicit coordinates beat the address, so the geocoder stays idle
	listing, err := svc.ListVenues(context.Background(), bristol(), VenueListRequest{
		Sort:    SortDistance,
		Address: "Market Square",
		Lat:     floatPtr(51.45),
		Lon:     floatPtr(-2.59),
	})
	require.NoError(t, err)
	assert.Empty(t, geocoder.lastQuery)
	require.NotNil(t, listing.LookedUpLocation)
	assert.Equal(t, 51.45, listing.LookedUpLocation.Lat)
	assert.Equal(t, -2.59, listing.LookedUpLocation.Lon)
	require.Len(t, listing.Venues, 2)
	assert.Equal(t, near.VenueID, listing.Venues[0].VenueID)
	assert.Equal(t, far.VenueID, listing.Venues[1].VenueID)
}

func TestListingService_ListOccurrences_TimeWindow(t *testing.T) {
	env := newTestEnv()
	svc := newListingService(env, &fakeGeocoder{})
	venue := env.mustCreateVenue(t, "Town Hall", 51.5, -0.12)
	env.mustPutEvent(t, "Early", venue.VenueID, 1000, 2000)
	env.mustPutEvent(t, "Late", venue.VenueID, 5000, 6000)

	listing, err := svc.ListOccurrences(context.Background(), bristol(), OccurrenceListRequest{
		Until: 3000,
	})
	require.NoError(t, err)
	require.Len(t, listing.Occurrences, 1)
	assert.Equal(t, "Early", listing.Occurrences[0].Event.Name)
}

func TestListingService_ListVenues_DistanceSortLocationNotFound(t *testing.T) {
	env := newTestEnv()
	env.mustCreateVenue(t, "Town Hall", 51.5, -0.12)

	svc := newListingService(env, &fakeGeocoder{err: errors.New("nominatim down")})
	_, err := svc.ListVenues(context.Background(), bristol(), VenueListRequest{
		Sort:    SortDistance,
		Address: "nowhere",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeLocationNotFound))

	svc = newListingService(env, &fakeGeocoder{})
	_, err = svc.ListVenues(context.Background(), bristol(), VenueListRequest{
		Sort:    SortDistance,
		Address: "nowhere",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeLocationNotFound))
}

func TestListingService_ListVenues_DistanceSortWithoutAddressUsesMidpoint(t *testing.T) {
	env := newTestEnv()
	svc := newListingService(env, &fakeGeocoder{})
	env.mustCreateVenue(t, "West", 51.0, -4.0)
	env.mustCreateVenue(t, "East", 51.0, 0.0)
	c := env.mustCreateVenue(t, "Centre", 51.0, -2.1)

	listing, err := svc.ListVenues(context.Background(), bristol(), VenueListRequest{Sort: SortDistance})
	require.NoError(t, err)
	require.NotNil(t, listing.LookedUpLocation)
	assert.InDelta(t, 51.0, listing.LookedUpLocation.Lat, 0.0001)
	assert.InDelta(t, -2.0, listing.LookedUpLocation.Lon, 0.0001)
	require.Len(t, listing.Venues, 3)
	assert.Equal(t, c.VenueID, listing.Venues[0].VenueID)
}

func TestListingService_ListOccurrences_DistanceSort(t *testing.T) {
	env := newTestEnv()
	geocoder := &fakeGeocoder{candidates: []geocode.Location{{Lat: 51.5, Lon: -0.12}}}
	svc := newListingService(env, geocoder)

	near := env.mustCreateVenue(t, "Near", 51.51, -0.13)
	far := env.mustCreateVenue(t, "Far", 55.95, -3.19)
	first := env.mustPutEvent(t, "Far Show", far.VenueID, 1000, 2000)
	second := env.mustPutEvent(t, "Near Show", near.VenueID, 3000, 4000)

	listing, err := svc.ListOccurrences(context.Background(), bristol(), OccurrenceListRequest{
		Sort:    SortDistance,
		Address: "Covent Garden",
	})
	require.NoError(t, err)
	require.Len(t, listing.Occurrences, 2)
	assert.Equal(t, second.OccurrenceID, listing.Occurrences[0].OccurrenceID)
	assert.Equal(t, first.OccurrenceID, listing.Occurrences[1].OccurrenceID)
}
