package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopularityService_Popular(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	venue := env.mustCreateVenue(t, "Town Hall", 51.5, -0.12)
	occ := env.mustPutEvent(t, "Concert", venue.VenueID, 1000, 2000)

	require.NoError(t, env.counters.IncrementVenueCounter(ctx, "bristol", venue.VenueID, 1500))
	require.NoError(t, env.counters.IncrementEventCounter(ctx, "bristol", occ.Event.EventID, occ.OccurrenceID, 1500))

	venues, events, err := NewPopularityService(env.counters).Popular(ctx, "bristol")
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "Town Hall", venues[0].Name)
	require.Len(t, events, 1)
	assert.Equal(t, "Concert", events[0].Name)
}

func TestPopularityService_Popular_EmptySystem(t *testing.T) {
	env := newTestEnv()

	venues, events, err := NewPopularityService(env.counters).Popular(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, venues)
	assert.Empty(t, events)
}
