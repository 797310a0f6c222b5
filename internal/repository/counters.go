package repository

import (
	"context"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
	"github.com/a3888968/wiseguide-backend/pkg/utils"
)

// popularityRanks is how many distinct attendance totals the popularity
// listings cover; entries tied on a covered total are all included.
const popularityRanks = 5

type ddbVenueCounter struct {
	SysVenueID string `dynamodbav:"SysVenueId"`
	Time       int64  `dynamodbav:"Time"`
	SystemID   string `dynamodbav:"SystemId"`
	VenueID    string `dynamodbav:"VenueId"`
	Count      int64  `dynamodbav:"Count"`
}

type ddbEventCounter struct {
	SysEventID   string `dynamodbav:"SysEventId"`
	OccIDTime    string `dynamodbav:"OccIdTime"`
	SystemID     string `dynamodbav:"SystemId"`
	EventID      string `dynamodbav:"EventId"`
	OccurrenceID string `dynamodbav:"OccurrenceId"`
	Time         int64  `dynamodbav:"Time"`
	Count        int64  `dynamodbav:"Count"`
}

func sysEventID(systemID, eventID string) string {
	return systemID + "#" + eventID
}

func occIDTime(occurrenceID string, chunk int64) string {
	return occurrenceID + "#" + strconv.FormatInt(chunk, 10)
}

// CounterRepository maintains 30-minute attendance buckets per venue and per
// event occurrence, and aggregates them into popularity rankings.
type CounterRepository struct {
	store  store.Store
	tables Tables
	logger *zap.Logger
}

// NewCounterRepository creates a CounterRepository.
func NewCounterRepository(s store.Store, tables Tables, logger *zap.Logger) *CounterRepository {
	return &CounterRepository{store: s, tables: tables, logger: logger}
}

// IncrementVenueCounter bumps the venue bucket covering t. The bucket row is
// created on first increment.
func (r *CounterRepository) IncrementVenueCounter(ctx context.Context, systemID, venueID string, t int64) error {
	chunk := utils.RoundToTimechunk(t)
	_, err := r.store.Update(ctx, r.tables.VenueCounters(), store.Key{
		"SysVenueId": store.S(sysVenueID(systemID, venueID)),
		"Time":       store.N(chunk),
	}, store.Update{
		Set: map[string]any{"SystemId": systemID, "VenueId": venueID},
		Add: map[string]any{"Count": int64(1)},
	}, nil)
	if err != nil {
		return appErrors.Wrap(err, "failed to increment venue counter")
	}
	return nil
}

// IncrementEventCounter bumps the occurrence bucket covering t.
func (r *CounterRepository) IncrementEventCounter(ctx context.Context, systemID, eventID, occurrenceID string, t int64) error {
	chunk := utils.RoundToTimechunk(t)
	_, err := r.store.Update(ctx, r.tables.EventCounters(), store.Key{
		"SysEventId": store.S(sysEventID(systemID, eventID)),
		"OccIdTime":  store.S(occIDTime(occurrenceID, chunk)),
	}, store.Update{
		Set: map[string]any{
			"SystemId":     systemID,
			"EventId":      eventID,
			"OccurrenceId": occurrenceID,
			"Time":         chunk,
		},
		Add: map[string]any{"Count": int64(1)},
	}, nil)
	if err != nil {
		return appErrors.Wrap(err, "failed to increment event counter")
	}
	return nil
}

// GetVenueCounters returns the buckets of one venue between from and to.
func (r *CounterRepository) GetVenueCounters(ctx context.Context, systemID, venueID string, from, to int64) ([]domain.CounterBucket, error) {
	q := store.Query{
		KeyConditions: []store.Condition{
			store.Eq("SysVenueId", sysVenueID(systemID, venueID)),
			store.Ge("Time", from),
		},
	}
	if to > 0 {
		q.Filter = append(q.Filter, store.Le("Time", to))
	}
	items, err := queryAll(ctx, r.store, r.tables.VenueCounters(), q)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get venue counters")
	}
	buckets := make([]domain.CounterBucket, 0, len(items))
	for _, item := range items {
		var row ddbVenueCounter
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal venue counter", err)
		}
		buckets = append(buckets, domain.CounterBucket{Time: row.Time, Count: row.Count})
	}
	sortBuckets(buckets)
	return buckets, nil
}

// GetOccurrenceCounters returns the buckets of one occurrence.
func (r *CounterRepository) GetOccurrenceCounters(ctx context.Context, systemID, eventID, occurrenceID string) ([]domain.CounterBucket, error) {
	items, err := queryAll(ctx, r.store, r.tables.EventCounters(), store.Query{
		KeyConditions: []store.Condition{
			store.Eq("SysEventId", sysEventID(systemID, eventID)),
			store.HasPrefix("OccIdTime", occurrenceID+"#"),
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to get occurrence counters")
	}
	buckets := make([]domain.CounterBucket, 0, len(items))
	for _, item := range items {
		var row ddbEventCounter
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal event counter", err)
		}
		buckets = append(buckets, domain.CounterBucket{Time: row.Time, Count: row.Count})
	}
	sortBuckets(buckets)
	return buckets, nil
}

// PopularVenues aggregates venue attendance for a system and returns the
// venues whose totals are among the top distinct totals, joined with their
// current names.
func (r *CounterRepository) PopularVenues(ctx context.Context, systemID string) ([]domain.PopularVenue, error) {
	items, err := queryAll(ctx, r.store, r.tables.VenueCounters(), store.Query{
		IndexName:     SystemIndex,
		KeyConditions: []store.Condition{store.Eq("SystemId", systemID)},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to aggregate venue counters")
	}

	totals := map[string]int64{}
	buckets := map[string][]domain.CounterBucket{}
	for _, item := range items {
		var row ddbVenueCounter
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal venue counter", err)
		}
		totals[row.VenueID] += row.Count
		buckets[row.VenueID] = append(buckets[row.VenueID], domain.CounterBucket{Time: row.Time, Count: row.Count})
	}

	ranked := topByDistinctTotals(totals, popularityRanks)
	if len(ranked) == 0 {
		return []domain.PopularVenue{}, nil
	}

	keys := make([]store.Key, 0, len(ranked))
	for _, venueID := range ranked {
		keys = append(keys, store.Key{
			"SystemId": store.S(systemID),
			"VenueId":  store.S(venueID),
		})
	}
	venueItems, err := r.store.BatchGet(ctx, r.tables.Venues(), keys)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to join venue names")
	}
	names := make(map[string]string, len(venueItems))
	for _, item := range venueItems {
		var row ddbVenue
		if err := attributevalue.UnmarshalMap(item, &row); err == nil {
			names[row.VenueID] = row.Name
		}
	}

	popular := make([]domain.PopularVenue, 0, len(ranked))
	for _, venueID := range ranked {
		entry := domain.PopularVenue{
			VenueID:    venueID,
			Name:       names[venueID],
			Total:      totals[venueID],
			TimeCounts: buckets[venueID],
		}
		sortBuckets(entry.TimeCounts)
		popular = append(popular, entry)
	}
	sortPopular(popular, func(p domain.PopularVenue) (int64, string) { return p.Total, p.VenueID })
	return popular, nil
}

// PopularEvents aggregates occurrence attendance for a system, joined with
// the occurrence name and venue coordinates.
func (r *CounterRepository) PopularEvents(ctx context.Context, systemID string) ([]domain.PopularEvent, error) {
	items, err := queryAll(ctx, r.store, r.tables.EventCounters(), store.Query{
		IndexName:     SystemIndex,
		KeyConditions: []store.Condition{store.Eq("SystemId", systemID)},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to aggregate event counters")
	}

	totals := map[string]int64{}
	buckets := map[string][]domain.CounterBucket{}
	eventIDs := map[string]string{}
	for _, item := range items {
		var row ddbEventCounter
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal event counter", err)
		}
		totals[row.OccurrenceID] += row.Count
		buckets[row.OccurrenceID] = append(buckets[row.OccurrenceID], domain.CounterBucket{Time: row.Time, Count: row.Count})
		eventIDs[row.OccurrenceID] = row.EventID
	}

	ranked := topByDistinctTotals(totals, popularityRanks)
	if len(ranked) == 0 {
		return []domain.PopularEvent{}, nil
	}

	keys := make([]store.Key, 0, len(ranked))
	for _, occurrenceID := range ranked {
		keys = append(keys, store.Key{
			"SystemId":     store.S(systemID),
			"OccurrenceId": store.S(occurrenceID),
		})
	}
	occItems, err := r.store.BatchGet(ctx, r.tables.Events(), keys)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to join occurrence details")
	}
	details := make(map[string]ddbOccurrence, len(occItems))
	for _, item := range occItems {
		var row ddbOccurrence
		if err := attributevalue.UnmarshalMap(item, &row); err == nil {
			details[row.OccurrenceID] = row
		}
	}

	popular := make([]domain.PopularEvent, 0, len(ranked))
	for _, occurrenceID := range ranked {
		detail := details[occurrenceID]
		entry := domain.PopularEvent{
			OccurrenceID: occurrenceID,
			EventID:      eventIDs[occurrenceID],
			Name:         detail.Name,
			Lat:          detail.Venue.Lat,
			Lon:          detail.Venue.Lon,
			Total:        totals[occurrenceID],
			TimeCounts:   buckets[occurrenceID],
		}
		sortBuckets(entry.TimeCounts)
		popular = append(popular, entry)
	}
	sortPopular(popular, func(p domain.PopularEvent) (int64, string) { return p.Total, p.OccurrenceID })
	return popular, nil
}

// topByDistinctTotals picks the ids whose total falls in the top n distinct
// total values. Ties share a rank, so more than n ids may come back.
func topByDistinctTotals(totals map[string]int64, n int) []string {
	if len(totals) == 0 {
		return nil
	}
	distinct := map[int64]struct{}{}
	for _, total := range totals {
		distinct[total] = struct{}{}
	}
	values := make([]int64, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })
	if len(values) > n {
		values = values[:n]
	}
	cutoff := values[len(values)-1]

	var ids []string
	for id, total := range totals {
		if total >= cutoff {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if totals[ids[i]] != totals[ids[j]] {
			return totals[ids[i]] > totals[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func sortBuckets(buckets []domain.CounterBucket) {
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Time < buckets[j].Time })
}

func sortPopular[T any](entries []T, key func(T) (int64, string)) {
	sort.Slice(entries, func(i, j int) bool {
		ti, idi := key(entries[i])
		tj, idj := key(entries[j])
		if ti != tj {
			return ti > tj
		}
		return idi < idj
	})
}
