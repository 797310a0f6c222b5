package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

func TestEventRepository_PutEvent_EmbedsVenueSnapshot(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")

	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 100, End: 200},
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 300, End: 400},
	})
	require.Len(t, occs, 2)
	assert.Equal(t, occs[0].Event.EventID, occs[1].Event.EventID)
	assert.NotEqual(t, occs[0].OccurrenceID, occs[1].OccurrenceID)

	got, err := r.events.GetOccurrence(ctx, "bristol", occs[0].OccurrenceID)
	require.NoError(t, err)
	assert.Equal(t, "Concert", got.Event.Name)
	assert.Equal(t, "Town Hall", got.Venue.Name)
	assert.Equal(t, "1 Test Street", got.Venue.Address)
	assert.False(t, got.IsCancelled)
}

func TestEventRepository_PutEvent_RejectsUnknownVenueAndRoom(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")

	_, err := r.events.PutEvent(ctx, "bristol", domain.Event{Name: "Concert", Contributor: "alice"}, []OccurrenceInput{
		{VenueID: "missing", Room: "Main Hall", Start: 100, End: 200},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeBadVenue))

	_, err = r.events.PutEvent(ctx, "bristol", domain.Event{Name: "Concert", Contributor: "alice"}, []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Basement", Start: 100, End: 200},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeBadRoom))
}

func TestEventRepository_PutEvent_RejectsUnknownCategory(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Music"}))

	_, err := r.events.PutEvent(ctx, "bristol", domain.Event{
		Name: "Concert", Contributor: "alice", Categories: []string{"Music", "Sport"},
	}, []OccurrenceInput{{VenueID: venue.VenueID, Room: "Main Hall", Start: 100, End: 200}})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeBadCategories))

	occs, err := r.events.PutEvent(ctx, "bristol", domain.Event{
		Name: "Concert", Contributor: "alice", Categories: []string{"Music"},
	}, []OccurrenceInput{{VenueID: venue.VenueID, Room: "Main Hall", Start: 100, End: 200}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Music"}, occs[0].Event.Categories)
}

func TestEventRepository_AddOccurrences(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 100, End: 200},
	})
	eventID := occs[0].Event.EventID

	_, err := r.events.AddOccurrences(ctx, "bristol", eventID, "mallory", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 300, End: 400},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))

	added, err := r.events.AddOccurrences(ctx, "bristol", eventID, "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 300, End: 400},
	})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, eventID, added[0].Event.EventID)
	assert.Equal(t, "Concert", added[0].Event.Name)

	// an event with no surviving rows cannot be extended
	_, err = r.events.AddOccurrences(ctx, "bristol", "missing", "alice", nil)
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))
}

func TestEventRepository_ListOccurrencesPage_ByStartTime(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	r.mustPutEvent(t, "bristol", "Late Show", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 3000, End: 4000},
	})
	r.mustPutEvent(t, "bristol", "Matinee", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})

	page, err := r.events.ListOccurrencesPage(ctx, "bristol", OccurrenceListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Occurrences, 2)
	assert.Equal(t, "Matinee", page.Occurrences[0].Event.Name)
	assert.Equal(t, "Late Show", page.Occurrences[1].Event.Name)
}

func TestEventRepository_ListOccurrencesPage_Filters(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	other := r.mustCreateVenue(t, "bristol", "Arena", "alice", "Floor")
	concert := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
		{VenueID: other.VenueID, Room: "Floor", Start: 5000, End: 6000},
	})
	r.mustPutEvent(t, "bristol", "Quiz Night", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 3000, End: 4000},
	})

	page, err := r.events.ListOccurrencesPage(ctx, "bristol", OccurrenceListOptions{
		EventID: concert[0].Event.EventID,
	})
	require.NoError(t, err)
	assert.Len(t, page.Occurrences, 2)

	page, err = r.events.ListOccurrencesPage(ctx, "bristol", OccurrenceListOptions{
		VenueID: other.VenueID,
	})
	require.NoError(t, err)
	require.Len(t, page.Occurrences, 1)
	assert.Equal(t, "Concert", page.Occurrences[0].Event.Name)

	// occurrences already over by 4500 are filtered out
	page, err = r.events.ListOccurrencesPage(ctx, "bristol", OccurrenceListOptions{
		UpcomingFrom: 4500,
	})
	require.NoError(t, err)
	require.Len(t, page.Occurrences, 1)
	assert.Equal(t, int64(5000), page.Occurrences[0].Start)

	// occurrences starting after 2500 are filtered out
	page, err = r.events.ListOccurrencesPage(ctx, "bristol", OccurrenceListOptions{
		Until: 2500,
	})
	require.NoError(t, err)
	require.Len(t, page.Occurrences, 1)
	assert.Equal(t, int64(1000), page.Occurrences[0].Start)

	page, err = r.events.ListOccurrencesPage(ctx, "bristol", OccurrenceListOptions{
		NameContains: "Quiz",
	})
	require.NoError(t, err)
	require.Len(t, page.Occurrences, 1)
	assert.Equal(t, "Quiz Night", page.Occurrences[0].Event.Name)
}

func TestEventRepository_UpdateOccurrence(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall", "Annex")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	id := occs[0].OccurrenceID

	updated, err := r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		Room: strPtr("Annex"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Annex", updated.Room)

	// a room outside the embedded venue's set fails the condition
	_, err = r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		Room: strPtr("Basement"),
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))

	// moving Start past the stored End fails the condition
	_, err = r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		Start: int64Ptr(2500),
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))

	// both bounds together may move past the old interval
	updated, err = r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		Start: int64Ptr(2500), End: int64Ptr(3500),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), updated.Start)
	assert.Equal(t, int64(3500), updated.End)

	_, err = r.events.UpdateOccurrence(ctx, "bristol", id, "mallory", OccurrenceChanges{
		Start: int64Ptr(1), End: int64Ptr(2),
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))
}

func TestEventRepository_UpdateOccurrence_MovesVenue(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	other := r.mustCreateVenue(t, "bristol", "Arena", "alice", "Floor", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	id := occs[0].OccurrenceID

	_, err := r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		VenueID: strPtr("missing"),
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeBadVenue))

	// the new venue's room set gates the move
	_, err = r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		VenueID: strPtr(other.VenueID), Room: strPtr("Basement"),
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeBadRoom))

	updated, err := r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		VenueID: strPtr(other.VenueID), Room: strPtr("Floor"),
	})
	require.NoError(t, err)
	assert.Equal(t, other.VenueID, updated.Venue.VenueID)
	assert.Equal(t, "Arena", updated.Venue.Name)
	assert.Equal(t, "Floor", updated.Room)

	// moving without a room keeps the current one when the new venue has it
	updated, err = r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		VenueID: strPtr(venue.VenueID), Room: strPtr("Main Hall"),
	})
	require.NoError(t, err)
	updated, err = r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		VenueID: strPtr(other.VenueID),
	})
	require.NoError(t, err)
	assert.Equal(t, "Main Hall", updated.Room)

	// a kept room absent at the destination blocks the move
	cramped := r.mustCreateVenue(t, "bristol", "Cafe", "alice", "Back Room")
	_, err = r.events.UpdateOccurrence(ctx, "bristol", id, "alice", OccurrenceChanges{
		VenueID: strPtr(cramped.VenueID),
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))
}

func TestEventRepository_EditEventFields_FansOut(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 3000, End: 4000},
	})
	eventID := occs[0].Event.EventID

	err := r.events.EditEventFields(ctx, "bristol", eventID, "mallory", EventChanges{Name: strPtr("Hijacked")})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))

	require.NoError(t, r.events.EditEventFields(ctx, "bristol", eventID, "alice", EventChanges{
		Name:        strPtr("Festival"),
		Description: strPtr("All day"),
	}))
	for _, occ := range occs {
		got, err := r.events.GetOccurrence(ctx, "bristol", occ.OccurrenceID)
		require.NoError(t, err)
		assert.Equal(t, "Festival", got.Event.Name)
		assert.Equal(t, "All day", got.Event.Description)
	}

	err = r.events.EditEventFields(ctx, "bristol", eventID, "alice", EventChanges{
		Categories: []string{"Nonexistent"},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeBadCategories))
}

func TestEventRepository_EditEventFields_RefreshesAgendaMirrors(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	agenda, err := r.agendas.CreateAgenda(ctx, domain.Agenda{SystemID: "bristol", Owner: "bob", Name: "My plan"})
	require.NoError(t, err)
	occ, err := r.events.GetOccurrence(ctx, "bristol", occs[0].OccurrenceID)
	require.NoError(t, err)
	_, err = r.agendas.AddAgendaItem(ctx, agenda, occ)
	require.NoError(t, err)

	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Music"}))
	require.NoError(t, r.events.EditEventFields(ctx, "bristol", occ.Event.EventID, "alice", EventChanges{
		Name:        strPtr("Festival"),
		Description: strPtr("All weekend"),
		Categories:  []string{"Music"},
	}))

	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Festival", items[0].Name)
	assert.Equal(t, "All weekend", items[0].Description)
	assert.Equal(t, []string{"Music"}, items[0].Categories)
}

func TestEventRepository_CancelOccurrence(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})

	err := r.events.CancelOccurrence(ctx, "bristol", occs[0].OccurrenceID, "mallory")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConditionViolated))

	require.NoError(t, r.events.CancelOccurrence(ctx, "bristol", occs[0].OccurrenceID, "alice"))
	got, err := r.events.GetOccurrence(ctx, "bristol", occs[0].OccurrenceID)
	require.NoError(t, err)
	assert.True(t, got.IsCancelled)
}

func TestEventRepository_CancelEvent_TombstonesAllOccurrences(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 3000, End: 4000},
	})

	require.NoError(t, r.events.CancelEvent(ctx, "bristol", occs[0].Event.EventID, "alice"))
	for _, occ := range occs {
		got, err := r.events.GetOccurrence(ctx, "bristol", occ.OccurrenceID)
		require.NoError(t, err)
		assert.True(t, got.IsCancelled)
	}
}

func TestEventRepository_DeleteEvent_RemovesRowsAndCancelsMirrors(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	agenda, err := r.agendas.CreateAgenda(ctx, domain.Agenda{SystemID: "bristol", Owner: "bob", Name: "My plan"})
	require.NoError(t, err)
	occ, err := r.events.GetOccurrence(ctx, "bristol", occs[0].OccurrenceID)
	require.NoError(t, err)
	_, err = r.agendas.AddAgendaItem(ctx, agenda, occ)
	require.NoError(t, err)

	require.NoError(t, r.events.DeleteEvent(ctx, "bristol", occ.Event.EventID, "alice"))

	_, err = r.events.GetOccurrence(ctx, "bristol", occ.OccurrenceID)
	assert.True(t, appErrors.IsNotFound(err))

	// the agenda keeps the item but shows it cancelled
	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsCancelled)
}

func TestEventRepository_OccurrencesAtVenueCovering(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	r.mustPutEvent(t, "bristol", "Now", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	})
	r.mustPutEvent(t, "bristol", "Soon", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1600, End: 2500},
	})
	r.mustPutEvent(t, "bristol", "Much Later", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 9000, End: 9500},
	})

	// t=1500 with an allowance of 200 covers Now and the about-to-start Soon
	covering, err := r.events.OccurrencesAtVenueCovering(ctx, "bristol", venue.VenueID, 1500, 200)
	require.NoError(t, err)
	assert.Len(t, covering, 2)

	covering, err = r.events.OccurrencesAtVenueCovering(ctx, "bristol", venue.VenueID, 5000, 200)
	require.NoError(t, err)
	assert.Empty(t, covering)
}
