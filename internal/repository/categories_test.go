package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

func TestCategoryRepository_CreateAndList(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()

	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Music"}))
	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Sport"}))
	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "york", Name: "Music"}))

	err := r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Music"})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeCategoryExists))

	categories, err := r.categories.ListCategories(ctx, "bristol")
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}

func TestCategoryRepository_DeleteCategory_StripsTagFromOccurrences(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Music"}))
	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Family"}))
	tagged := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	}, "Music", "Family")
	only := r.mustPutEvent(t, "bristol", "Recital", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 3000, End: 4000},
	}, "Music")

	require.NoError(t, r.categories.DeleteCategory(ctx, "bristol", "Music"))

	categories, err := r.categories.ListCategories(ctx, "bristol")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Family", categories[0].Name)

	occ, err := r.events.GetOccurrence(ctx, "bristol", tagged[0].OccurrenceID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Family"}, occ.Event.Categories)

	occ, err = r.events.GetOccurrence(ctx, "bristol", only[0].OccurrenceID)
	require.NoError(t, err)
	assert.Empty(t, occ.Event.Categories)

	err = r.categories.DeleteCategory(ctx, "bristol", "Music")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeCategoryNotFound))
}

func TestCategoryRepository_UpdateCategory_RenamesEverywhere(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()
	venue := r.mustCreateVenue(t, "bristol", "Town Hall", "alice", "Main Hall")
	require.NoError(t, r.categories.CreateCategory(ctx, domain.Category{SystemID: "bristol", Name: "Music"}))
	occs := r.mustPutEvent(t, "bristol", "Concert", "alice", []OccurrenceInput{
		{VenueID: venue.VenueID, Room: "Main Hall", Start: 1000, End: 2000},
	}, "Music")
	agenda, err := r.agendas.CreateAgenda(ctx, domain.Agenda{SystemID: "bristol", Owner: "bob", Name: "Saturday"})
	require.NoError(t, err)
	occ, err := r.events.GetOccurrence(ctx, "bristol", occs[0].OccurrenceID)
	require.NoError(t, err)
	_, err = r.agendas.AddAgendaItem(ctx, agenda, occ)
	require.NoError(t, err)

	require.NoError(t, r.categories.UpdateCategory(ctx, "bristol", "Music", "Live Music"))

	categories, err := r.categories.ListCategories(ctx, "bristol")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Live Music", categories[0].Name)

	occ, err = r.events.GetOccurrence(ctx, "bristol", occs[0].OccurrenceID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Live Music"}, occ.Event.Categories)

	// agenda mirrors follow the rename
	items, err := r.agendas.ListAgendaItems(ctx, "bristol", agenda.AgendaID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"Live Music"}, items[0].Categories)

	err = r.categories.UpdateCategory(ctx, "bristol", "Music", "Other")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeCategoryNotFound))
}
