package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

func (r *testRepos) mustCreateAgenda(t *testing.T, systemID, owner, name string) domain.Agenda {
	t.Helper()
	agenda, err := r.agendas.CreateAgenda(context.Background(), domain.Agenda{
		SystemID: systemID,
		Owner:    owner,
		Name:     name,
	})
	require.NoError(t, err)
	return agenda
}

func (r *testRepos) mustAddAgendaItem(t *testing.T, agenda domain.Agenda, occurrenceID string) domain.AgendaItem {
	t.Helper()
	ctx := context.Background()
	occ, err := r.events.GetOccurrence(ctx, agenda.SystemID, occurrenceID)
	require.NoError(t, err)
	item, err := r.agendas.AddAgendaItem(ctx, agenda, occ)
	require.NoError(t, err)
	return item
}

func TestAgendaRepository_CreateAndGet(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()

	agenda := r.mustCreateAgenda(t, "bristol", "bob", "Saturday")
	assert.NotEmpty(t, agenda.AgendaID)

	got, err := r.agendas.GetAgenda(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Owner)
	assert.Equal(t, "Saturday", got.Name)

	_, err = r.agendas.GetAgenda(ctx, "bristol", "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeAgendaNotFound))
}

func TestAgendaRepository_ListAgendasByOwner(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	r.mustCreateAgenda(t, "bristol", "bob", "Saturday")
	r.mustCreateAgenda(t, "bristol", "bob", "Sunday")
	r.mustCreateAgenda(t, "bristol", "carol", "Elsewhere")

	agendas, err := r.agendas.ListAgendasByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, agendas, 2)
	for _, a := range agendas {
		assert.Equal(t, "bob", a.Owner)
	}
}

func TestAgendaRepository_AddAgendaItem_SnapshotsOccurrence(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	agenda := r.mustCreateAgenda(t, "bristol", "bob", "Saturday")

	item := r.mustAddAgendaItem(t, agenda, occs[0].OccurrenceID)
	assert.Equal(t, "Concert", item.Name)
	assert.Equal(t, "an event", item.Description)
	assert.Equal(t, "Town Hall", item.VenueName)
	assert.Equal(t, "1 Test Street", item.VenueAddress)
	assert.Equal(t, 51.5, item.VenueLat)
	assert.Equal(t, -0.12, item.VenueLon)
	assert.Equal(t, int64(1000), item.Start)

	// re-adding the same occurrence fails the write condition
	occ, err := r.events.GetOccurrence(ctx, "bristol", occs[0].OccurrenceID)
	require.NoError(t, err)
	_, err = r.agendas.AddAgendaItem(ctx, agenda, occ)
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))
	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAgendaRepository_ListAgendaItems_ScopedToAgenda(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 3000, End: 4000},
	})
	mine := r.mustCreateAgenda(t, "bristol", "bob", "Mine")
	other := r.mustCreateAgenda(t, "bristol", "carol", "Other")
	r.mustAddAgendaItem(t, mine, occs[0].OccurrenceID)
	r.mustAddAgendaItem(t, mine, occs[1].OccurrenceID)
	r.mustAddAgendaItem(t, other, occs[0].OccurrenceID)

	items, err := r.agendas.ListAgendaItems(ctx, "bristol", mine.AgendaID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = r.agendas.ListAgendaItems(ctx, "bristol", other.AgendaID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAgendaRepository_DeleteAgenda_CascadesToItems(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	agenda := r.mustCreateAgenda(t, "bristol", "bob", "Saturday")
	r.mustAddAgendaItem(t, agenda, occs[0].OccurrenceID)

	err := r.agendas.DeleteAgenda(ctx, "bristol", agenda.AgendaID, "carol")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeAgendaNotFound))

	require.NoError(t, r.agendas.DeleteAgenda(ctx, "bristol", agenda.AgendaID, "bob"))

	_, err = r.agendas.GetAgenda(ctx, "bristol", agenda.AgendaID)
	assert.True(t, appErrors.IsNotFound(err))
	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAgendaRepository_DeleteAgendaItem(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	agenda := r.mustCreateAgenda(t, "bristol", "bob", "Saturday")
	r.mustAddAgendaItem(t, agenda, occs[0].OccurrenceID)

	require.NoError(t, r.agendas.DeleteAgendaItem(ctx, "bristol", agenda.AgendaID, occs[0].OccurrenceID))

	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	assert.Empty(t, items)

	err = r.agendas.DeleteAgendaItem(ctx, "bristol", agenda.AgendaID, occs[0].OccurrenceID)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestAgendaRepository_MirrorsFollowOccurrenceChanges(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall", "Annex")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	agenda := r.mustCreateAgenda(t, "bristol", "bob", "Saturday")
	r.mustAddAgendaItem(t, agenda, occs[0].OccurrenceID)

	_, err := r.events.UpdateOccurrence(ctx, "bristol", occs[0].OccurrenceID, "alice", OccurrenceChanges{
		Room:  strPtr("Annex"),
		Start: int64Ptr(1500),
		End:   int64Ptr(2500),
	})
	require.NoError(t, err)

	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Annex", items[0].Room)
	assert.Equal(t, int64(1500), items[0].Start)
	assert.Equal(t, int64(2500), items[0].End)

	require.NoError(t, r.events.CancelOccurrence(ctx, "bristol", occs[0].OccurrenceID, "alice"))
	items, err = r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsCancelled)
}

func TestAgendaRepository_MirrorsFollowVenueChanges(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	agenda := r.mustCreateAgenda(t, "bristol", "bob", "Saturday")
	r.mustAddAgendaItem(t, agenda, occs[0].OccurrenceID)

	_, err := r.venues.UpdateVenue(ctx, "bristol", venue.VenueID, "alice", VenueChanges{
		Name:    strPtr("Guildhall"),
		Address: strPtr("2 New Road"),
	})
	require.NoError(t, err)

	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Guildhall", items[0].VenueName)
	assert.Equal(t, "2 New Road", items[0].VenueAddress)
}
