package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/geocode"
	"github.com/a3888968/wiseguide-backend/internal/repository"
	"github.com/a3888968/wiseguide-backend/internal/store"
)

// Shared fixtures for the service tests, running against the in-memory
// store with the repositories wired the same way main wires them.

type testEnv struct {
	systems   *repository.SystemRepository
	venues    *repository.VenueRepository
	events    *repository.EventRepository
	agendas   *repository.AgendaRepository
	geoEvents *repository.GeoEventRepository
	counters  *repository.CounterRepository
}

func newTestEnv() *testEnv {
	tables := repository.Tables{Prefix: "test"}
	s := store.NewMemory(tables.Schemas()...)
	logger := zap.NewNop()
	agendas := repository.NewAgendaRepository(s, tables, logger)
	events := repository.NewEventRepository(s, tables, logger, agendas)
	venues := repository.NewVenueRepository(s, tables, logger)
	venues.SetRefresher(events)
	return &testEnv{
		systems:   repository.NewSystemRepository(s, tables, logger),
		venues:    venues,
		events:    events,
		agendas:   agendas,
		geoEvents: repository.NewGeoEventRepository(s, tables, logger),
		counters:  repository.NewCounterRepository(s, tables, logger),
	}
}

func (e *testEnv) mustCreateVenue(t *testing.T, name string, lat, lon float64) domain.Venue {
	t.Helper()
	venue, err := e.venues.CreateVenue(context.Background(), domain.Venue{
		SystemID:    "bristol",
		Name:        name,
		Description: "a place",
		Address:     "1 Test Street",
		Lat:         lat,
		Lon:         lon,
		Rooms:       []string{"Main Hall"},
		Contributor: "alice",
	})
	require.NoError(t, err)
	return venue
}

func (e *testEnv) mustPutEvent(t *testing.T, name, venueID string, start, end int64) domain.Occurrence {
	t.Helper()
	occs, err := e.events.PutEvent(context.Background(), "bristol", domain.Event{
		Name:        name,
		Description: "an event",
		Contributor: "alice",
	}, []repository.OccurrenceInput{{VenueID: venueID, Room: "Main Hall", Start: start, End: end}})
	require.NoError(t, err)
	return occs[0]
}

func floatPtr(f float64) *float64 { return &f }

// fakeGeocoder returns canned candidates or a canned error.
type fakeGeocoder struct {
	candidates []geocode.Location
	err        error
	lastQuery  string
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) ([]geocode.Location, error) {
	f.lastQuery = query
	return f.candidates, f.err
}
