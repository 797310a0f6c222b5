package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
)

// Shared fixtures for the repository tests, all running against the
// in-memory store.

func testTables() Tables { return Tables{Prefix: "test"} }

func newTestStore() *store.Memory {
	return store.NewMemory(testTables().Schemas()...)
}

type testRepos struct {
	store       *store.Memory
	systems     *SystemRepository
	users       *UserRepository
	venues      *VenueRepository
	events      *EventRepository
	categories  *CategoryRepository
	agendas     *AgendaRepository
	geoEvents   *GeoEventRepository
	counters    *CounterRepository
	suggestions *SuggestedEventRepository
}

func newTestRepos() *testRepos {
	s := newTestStore()
	tables := testTables()
	logger := zap.NewNop()
	agendas := NewAgendaRepository(s, tables, logger)
	events := NewEventRepository(s, tables, logger, agendas)
	venues := NewVenueRepository(s, tables, logger)
	venues.SetRefresher(events)
	return &testRepos{
		store:       s,
		systems:     NewSystemRepository(s, tables, logger),
		users:       NewUserRepository(s, tables, logger),
		venues:      venues,
		events:      events,
		categories:  NewCategoryRepository(s, tables, logger, agendas),
		agendas:     agendas,
		geoEvents:   NewGeoEventRepository(s, tables, logger),
		counters:    NewCounterRepository(s, tables, logger),
		suggestions: NewSuggestedEventRepository(s, tables, logger),
	}
}

func (r *testRepos) mustCreateVenue(t *testing.T, systemID, name, contributor string, rooms ...string) domain.Venue {
	t.Helper()
	venue, err := r.venues.CreateVenue(context.Background(), domain.Venue{
		SystemID:    systemID,
		Name:        name,
		Description: "a place",
		Address:     "1 Test Street",
		Lat:         51.5,
		Lon:         -0.12,
		Rooms:       rooms,
		Contributor: contributor,
	})
	require.NoError(t, err)
	return venue
}

func (r *testRepos) mustPutEvent(t *testing.T, systemID, name, contributor string, occurrences []OccurrenceInput, categories ...string) []domain.Occurrence {
	t.Helper()
	out, err := r.events.PutEvent(context.Background(), systemID, domain.Event{
		Name:        name,
		Description: "an event",
		Categories:  categories,
		Contributor: contributor,
	}, occurrences)
	require.NoError(t, err)
	return out
}

func strPtr(s string) *string    { return &s }
func int64Ptr(i int64) *int64    { return &i }
func floatPtr(f float64) *float64 { return &f }
