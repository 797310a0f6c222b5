package repository

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
)

func TestSuggestedEventRepository_TopSuggestions(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()

	require.NoError(t, r.suggestions.PutSuggestions(ctx, "bob", []domain.SuggestedEvent{
		{EventID: "e1", Score: 0.5},
		{EventID: "e2", Score: 0.9},
		{EventID: "e3", Score: 0.7},
		{EventID: "e4", Score: 0.1},
	}))

	// default limit keeps the best three, best first
	top, err := r.suggestions.TopSuggestions(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, top, DefaultSuggestionCount)
	assert.Equal(t, "e2", top[0].EventID)
	assert.Equal(t, "e3", top[1].EventID)
	assert.Equal(t, "e1", top[2].EventID)

	top, err = r.suggestions.TopSuggestions(ctx, "bob", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "e2", top[0].EventID)
	assert.Equal(t, 0.9, top[0].Score)
}

func TestSuggestedEventRepository_TopSuggestions_TiesBreakOnEventID(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()

	require.NoError(t, r.suggestions.PutSuggestions(ctx, "bob", []domain.SuggestedEvent{
		{EventID: "zz", Score: 0.5},
		{EventID: "aa", Score: 0.5},
	}))

	top, err := r.suggestions.TopSuggestions(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "aa", top[0].EventID)
	assert.Equal(t, "zz", top[1].EventID)
}

func TestSuggestedEventRepository_TopSuggestions_UnknownTarget(t *testing.T) {
	r := newTestRepos()

	top, err := r.suggestions.TopSuggestions(context.Background(), "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestSuggestedEventRepository_PutSuggestions_ReplacesSet(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()

	require.NoError(t, r.suggestions.PutSuggestions(ctx, "bob", []domain.SuggestedEvent{
		{EventID: "old", Score: 1},
	}))
	require.NoError(t, r.suggestions.PutSuggestions(ctx, "bob", []domain.SuggestedEvent{
		{EventID: "new", Score: 1},
	}))

	top, err := r.suggestions.TopSuggestions(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "new", top[0].EventID)
}

func TestSuggestedEventRepository_TopSuggestions_SkipsMalformedMembers(t *testing.T) {
	r := newTestRepos()
	ctx := context.Background()

	// seed a row with one good and two malformed members directly
	item := map[string]types.AttributeValue{
		"TargetId": store.S("bob"),
		"Suggestions": &types.AttributeValueMemberSS{
			Value: []string{"e1#0.5", "no-separator", "e2#not-a-number"},
		},
	}
	require.NoError(t, r.store.Put(ctx, testTables().SuggestedEvents(), item, nil))

	top, err := r.suggestions.TopSuggestions(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "e1", top[0].EventID)
}
