package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
	"github.com/a3888968/wiseguide-backend/pkg/utils"
)

// Occurrence rows denormalize their event fields and embed a full snapshot
// of the venue. Reads never join; writes fan out.
type ddbOccurrence struct {
	SystemID     string   `dynamodbav:"SystemId"`
	OccurrenceID string   `dynamodbav:"OccurrenceId"`
	EventID      string   `dynamodbav:"EventId"`
	Name         string   `dynamodbav:"Name"`
	Description  string   `dynamodbav:"Description"`
	Categories   []string `dynamodbav:"Categories,stringset,omitempty"`
	Contributor  string   `dynamodbav:"Contributor"`
	Start        int64    `dynamodbav:"Start"`
	End          int64    `dynamodbav:"End"`
	Room         string   `dynamodbav:"Room"`
	VenueID      string   `dynamodbav:"VenueId"`
	IsCancelled  bool     `dynamodbav:"IsCancelled"`
	Venue        ddbVenue `dynamodbav:"Venue"`
}

func (r ddbOccurrence) toDomain() domain.Occurrence {
	return domain.Occurrence{
		OccurrenceID: r.OccurrenceID,
		SystemID:     r.SystemID,
		Event: domain.Event{
			EventID:     r.EventID,
			Name:        r.Name,
			Description: r.Description,
			Categories:  r.Categories,
			Contributor: r.Contributor,
		},
		Start:       r.Start,
		End:         r.End,
		Room:        r.Room,
		Venue:       r.Venue.toDomain(),
		IsCancelled: r.IsCancelled,
	}
}

// OccurrenceMirror maintains the occurrence snapshots embedded in agenda
// items. AgendaRepository implements it.
type OccurrenceMirror interface {
	RefreshOccurrenceDetails(ctx context.Context, occurrence domain.Occurrence)
	MarkOccurrenceCancelled(ctx context.Context, occurrenceID string)
}

// OccurrenceInput describes one occurrence of a new or existing event.
type OccurrenceInput struct {
	VenueID string
	Room    string
	Start   int64
	End     int64
}

// OccurrenceChanges carries the schedulable fields an occurrence update may
// touch. Nil means unchanged. A VenueID change re-embeds the new venue's
// record on the row.
type OccurrenceChanges struct {
	Start   *int64
	End     *int64
	Room    *string
	VenueID *string
}

// EventChanges carries the event-level fields an edit may touch.
type EventChanges struct {
	Name        *string
	Description *string
	Categories  []string
}

// OccurrenceListOptions controls one occurrence listing page. UpcomingFrom
// and Until bound the listing to occurrences still running at or after one
// instant and starting no later than another.
type OccurrenceListOptions struct {
	VenueID      string
	EventID      string
	Category     string
	NameContains string
	UpcomingFrom int64
	Until        int64
	Limit        int32
	Cursor       string
}

// OccurrencePage is one page of an occurrence listing.
type OccurrencePage struct {
	Occurrences []domain.Occurrence
	NextCursor  string
}

// EventRepository manages events and their occurrence rows.
type EventRepository struct {
	store      store.Store
	tables     Tables
	logger     *zap.Logger
	propagator *Propagator
	mirror     OccurrenceMirror
}

// NewEventRepository creates an EventRepository.
func NewEventRepository(s store.Store, tables Tables, logger *zap.Logger, mirror OccurrenceMirror) *EventRepository {
	return &EventRepository{
		store:      s,
		tables:     tables,
		logger:     logger,
		propagator: NewPropagator(logger),
		mirror:     mirror,
	}
}

// PutEvent creates an event with one row per occurrence. Venues and rooms
// are resolved up front and the venue record is embedded in each row;
// categories must already exist in the system.
func (r *EventRepository) PutEvent(ctx context.Context, systemID string, event domain.Event, occurrences []OccurrenceInput) ([]domain.Occurrence, error) {
	if err := r.checkCategories(ctx, systemID, event.Categories); err != nil {
		return nil, err
	}
	venues, err := r.resolveVenues(ctx, systemID, occurrences)
	if err != nil {
		return nil, err
	}

	event.EventID = uuid.NewString()
	rows := make([]ddbOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		rows = append(rows, ddbOccurrence{
			SystemID:     systemID,
			OccurrenceID: uuid.NewString(),
			EventID:      event.EventID,
			Name:         event.Name,
			Description:  event.Description,
			Categories:   event.Categories,
			Contributor:  event.Contributor,
			Start:        occ.Start,
			End:          occ.End,
			Room:         occ.Room,
			VenueID:      occ.VenueID,
			Venue:        venues[occ.VenueID],
		})
	}
	if err := r.writeRows(ctx, rows); err != nil {
		return nil, err
	}
	r.logger.Debug("created event",
		zap.String("systemId", systemID),
		zap.String("eventId", event.EventID),
		zap.Int("occurrences", len(rows)))
	out := make([]domain.Occurrence, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// AddOccurrences appends occurrences to an existing event, copying the event
// fields from its current rows. Only the contributor may extend an event.
func (r *EventRepository) AddOccurrences(ctx context.Context, systemID, eventID, contributor string, occurrences []OccurrenceInput) ([]domain.Occurrence, error) {
	existing, err := r.eventRows(ctx, systemID, eventID)
	if err != nil {
		// extending an event is conditional on it still having rows
		if appErrors.IsNotFound(err) {
			return nil, appErrors.NewConflict(appErrors.CodeConditionViolated, "event has no occurrences")
		}
		return nil, err
	}
	sample := existing[0]
	if sample.Contributor != contributor {
		return nil, appErrors.NewConflict(appErrors.CodeConditionViolated, "not the event contributor")
	}
	venues, err := r.resolveVenues(ctx, systemID, occurrences)
	if err != nil {
		return nil, err
	}

	rows := make([]ddbOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		rows = append(rows, ddbOccurrence{
			SystemID:     systemID,
			OccurrenceID: uuid.NewString(),
			EventID:      eventID,
			Name:         sample.Name,
			Description:  sample.Description,
			Categories:   sample.Categories,
			Contributor:  sample.Contributor,
			Start:        occ.Start,
			End:          occ.End,
			Room:         occ.Room,
			VenueID:      occ.VenueID,
			Venue:        venues[occ.VenueID],
		})
	}
	if err := r.writeRows(ctx, rows); err != nil {
		return nil, err
	}
	out := make([]domain.Occurrence, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// GetOccurrence fetches one occurrence by id.
func (r *EventRepository) GetOccurrence(ctx context.Context, systemID, occurrenceID string) (domain.Occurrence, error) {
	row, err := r.getRow(ctx, systemID, occurrenceID)
	if err != nil {
		return domain.Occurrence{}, err
	}
	return row.toDomain(), nil
}

func (r *EventRepository) getRow(ctx context.Context, systemID, occurrenceID string) (ddbOccurrence, error) {
	item, err := r.store.Get(ctx, r.tables.Events(), store.Key{
		"SystemId":     store.S(systemID),
		"OccurrenceId": store.S(occurrenceID),
	})
	if err != nil {
		return ddbOccurrence{}, appErrors.Wrap(err, "failed to get occurrence")
	}
	if item == nil {
		return ddbOccurrence{}, appErrors.NewNotFound("occurrence_not_found", "occurrence does not exist")
	}
	var row ddbOccurrence
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return ddbOccurrence{}, appErrors.NewInternal("failed to unmarshal occurrence", err)
	}
	return row, nil
}

// ListOccurrencesPage returns one raw page of occurrences. The index is
// chosen from the options: event id, venue id, or the start-time index.
func (r *EventRepository) ListOccurrencesPage(ctx context.Context, systemID string, opts OccurrenceListOptions) (OccurrencePage, error) {
	startKey, err := DecodeCursor(opts.Cursor)
	if err != nil {
		return OccurrencePage{}, err
	}
	q := store.Query{
		KeyConditions:     []store.Condition{store.Eq("SystemId", systemID)},
		Limit:             opts.Limit,
		ExclusiveStartKey: startKey,
	}
	switch {
	case opts.EventID != "":
		q.IndexName = EventIDIndex
		q.KeyConditions = append(q.KeyConditions, store.Eq("EventId", opts.EventID))
	case opts.VenueID != "":
		q.IndexName = VenueIDIndex
		q.KeyConditions = append(q.KeyConditions, store.Eq("VenueId", opts.VenueID))
	default:
		q.IndexName = StartIndex
	}
	if opts.UpcomingFrom > 0 {
		q.Filter = append(q.Filter, store.Ge("End", opts.UpcomingFrom))
	}
	if opts.Until > 0 {
		q.Filter = append(q.Filter, store.Le("Start", opts.Until))
	}
	if opts.Category != "" {
		q.Filter = append(q.Filter, store.ContainsValue("Categories", opts.Category))
	}
	if opts.NameContains != "" {
		q.Filter = append(q.Filter, store.ContainsValue("Name", opts.NameContains))
	}

	page, err := r.store.Query(ctx, r.tables.Events(), q)
	if err != nil {
		return OccurrencePage{}, appErrors.Wrap(err, "failed to list occurrences")
	}
	occurrences := make([]domain.Occurrence, 0, len(page.Items))
	for _, item := range page.Items {
		var row ddbOccurrence
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return OccurrencePage{}, appErrors.NewInternal("failed to unmarshal occurrence", err)
		}
		occurrences = append(occurrences, row.toDomain())
	}
	next, err := EncodeCursor(page.LastEvaluatedKey)
	if err != nil {
		return OccurrencePage{}, err
	}
	return OccurrencePage{Occurrences: occurrences, NextCursor: next}, nil
}

// UpdateOccurrence changes the venue, room or interval of one occurrence.
// The write condition re-verifies the contributor, that a new room exists in
// the embedded venue, and that a half-open interval change stays consistent
// with the stored other bound. A venue move resolves the new venue first and
// embeds its record; the room, kept or changed, must exist at the new venue.
func (r *EventRepository) UpdateOccurrence(ctx context.Context, systemID, occurrenceID, contributor string, changes OccurrenceChanges) (domain.Occurrence, error) {
	set := map[string]any{}
	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("OccurrenceId"),
		store.Eq("Contributor", contributor),
	}}
	switch {
	case changes.VenueID != nil:
		current, err := r.getRow(ctx, systemID, occurrenceID)
		if err != nil {
			return domain.Occurrence{}, err
		}
		item, err := r.store.Get(ctx, r.tables.Venues(), store.Key{
			"SystemId": store.S(systemID),
			"VenueId":  store.S(*changes.VenueID),
		})
		if err != nil {
			return domain.Occurrence{}, appErrors.Wrap(err, "failed to resolve venue")
		}
		if item == nil {
			return domain.Occurrence{}, appErrors.NewValidation(appErrors.CodeBadVenue, "venue does not exist")
		}
		var venueRow ddbVenue
		if err := attributevalue.UnmarshalMap(item, &venueRow); err != nil {
			return domain.Occurrence{}, appErrors.NewInternal("failed to unmarshal venue", err)
		}
		room := current.Room
		if changes.Room != nil {
			room = *changes.Room
		}
		if !utils.ContainsString(venueRow.Rooms, room) {
			if changes.Room != nil {
				return domain.Occurrence{}, appErrors.NewValidation(appErrors.CodeBadRoom, "room does not exist in venue")
			}
			return domain.Occurrence{}, appErrors.NewConflict(appErrors.CodeConditionViolated, "current room does not exist at the new venue")
		}
		set["VenueId"] = *changes.VenueID
		set["Venue"] = venueRow
		set["Room"] = room
	case changes.Room != nil:
		set["Room"] = *changes.Room
		cond.All = append(cond.All, store.ContainsValue("Venue.Rooms", *changes.Room))
	}
	switch {
	case changes.Start != nil && changes.End != nil:
		set["Start"] = *changes.Start
		set["End"] = *changes.End
	case changes.Start != nil:
		set["Start"] = *changes.Start
		cond.All = append(cond.All, store.Ge("End", *changes.Start))
	case changes.End != nil:
		set["End"] = *changes.End
		cond.All = append(cond.All, store.Le("Start", *changes.End))
	}
	if len(set) == 0 {
		return r.GetOccurrence(ctx, systemID, occurrenceID)
	}

	item, err := r.store.Update(ctx, r.tables.Events(), store.Key{
		"SystemId":     store.S(systemID),
		"OccurrenceId": store.S(occurrenceID),
	}, store.Update{Set: set}, cond)
	if err != nil {
		return domain.Occurrence{}, appErrors.Wrap(err, "failed to update occurrence")
	}
	var row ddbOccurrence
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.Occurrence{}, appErrors.NewInternal("failed to unmarshal occurrence", err)
	}
	if r.mirror != nil {
		r.mirror.RefreshOccurrenceDetails(ctx, row.toDomain())
	}
	return row.toDomain(), nil
}

// EditEventFields changes the denormalized event fields on every occurrence
// row of the event. Ownership is checked once up front; the fan-out writes
// are unconditional so a mid-flight edit cannot leave rows half-renamed
// behind a failed condition.
func (r *EventRepository) EditEventFields(ctx context.Context, systemID, eventID, contributor string, changes EventChanges) error {
	rows, err := r.eventRows(ctx, systemID, eventID)
	if err != nil {
		return err
	}
	if rows[0].Contributor != contributor {
		return appErrors.NewConflict(appErrors.CodeConditionViolated, "not the event contributor")
	}

	set := map[string]any{}
	if changes.Name != nil {
		set["Name"] = *changes.Name
	}
	if changes.Description != nil {
		set["Description"] = *changes.Description
	}
	if changes.Categories != nil {
		if err := r.checkCategories(ctx, systemID, changes.Categories); err != nil {
			return err
		}
		set["Categories"] = store.StringSet(changes.Categories)
	}
	if len(set) == 0 {
		return nil
	}

	for _, row := range rows {
		if _, err := r.store.Update(ctx, r.tables.Events(), store.Key{
			"SystemId":     store.S(systemID),
			"OccurrenceId": store.S(row.OccurrenceID),
		}, store.Update{Set: set}, nil); err != nil {
			return appErrors.Wrap(err, "failed to fan out event edit")
		}
	}

	if r.mirror != nil {
		for _, row := range rows {
			updated := row
			if changes.Name != nil {
				updated.Name = *changes.Name
			}
			if changes.Description != nil {
				updated.Description = *changes.Description
			}
			if changes.Categories != nil {
				updated.Categories = changes.Categories
			}
			r.mirror.RefreshOccurrenceDetails(ctx, updated.toDomain())
		}
	}
	return nil
}

// CancelOccurrence tombstones one occurrence. The row is kept so listings
// can show the cancellation.
func (r *EventRepository) CancelOccurrence(ctx context.Context, systemID, occurrenceID, contributor string) error {
	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("OccurrenceId"),
		store.Eq("Contributor", contributor),
	}}
	_, err := r.store.Update(ctx, r.tables.Events(), store.Key{
		"SystemId":     store.S(systemID),
		"OccurrenceId": store.S(occurrenceID),
	}, store.Update{Set: map[string]any{"IsCancelled": true}}, cond)
	if err != nil {
		return appErrors.Wrap(err, "failed to cancel occurrence")
	}
	if r.mirror != nil {
		r.mirror.MarkOccurrenceCancelled(ctx, occurrenceID)
	}
	return nil
}

// CancelEvent tombstones every occurrence of an event.
func (r *EventRepository) CancelEvent(ctx context.Context, systemID, eventID, contributor string) error {
	rows, err := r.eventRows(ctx, systemID, eventID)
	if err != nil {
		return err
	}
	if rows[0].Contributor != contributor {
		return appErrors.NewConflict(appErrors.CodeConditionViolated, "not the event contributor")
	}
	for _, row := range rows {
		if _, err := r.store.Update(ctx, r.tables.Events(), store.Key{
			"SystemId":     store.S(systemID),
			"OccurrenceId": store.S(row.OccurrenceID),
		}, store.Update{Set: map[string]any{"IsCancelled": true}}, nil); err != nil {
			return appErrors.Wrap(err, "failed to cancel event occurrence")
		}
		if r.mirror != nil {
			r.mirror.MarkOccurrenceCancelled(ctx, row.OccurrenceID)
		}
	}
	return nil
}

// DeleteOccurrence removes one occurrence row. Agenda mirrors are marked
// cancelled rather than deleted.
func (r *EventRepository) DeleteOccurrence(ctx context.Context, systemID, occurrenceID, contributor string) error {
	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("OccurrenceId"),
		store.Eq("Contributor", contributor),
	}}
	err := r.store.Delete(ctx, r.tables.Events(), store.Key{
		"SystemId":     store.S(systemID),
		"OccurrenceId": store.S(occurrenceID),
	}, cond)
	if err != nil {
		return appErrors.Wrap(err, "failed to delete occurrence")
	}
	if r.mirror != nil {
		r.mirror.MarkOccurrenceCancelled(ctx, occurrenceID)
	}
	return nil
}

// DeleteEvent removes every occurrence row of an event.
func (r *EventRepository) DeleteEvent(ctx context.Context, systemID, eventID, contributor string) error {
	rows, err := r.eventRows(ctx, systemID, eventID)
	if err != nil {
		return err
	}
	if rows[0].Contributor != contributor {
		return appErrors.NewConflict(appErrors.CodeConditionViolated, "not the event contributor")
	}
	writes := make([]store.Write, 0, len(rows))
	for _, row := range rows {
		writes = append(writes, store.Write{Delete: store.Key{
			"SystemId":     store.S(systemID),
			"OccurrenceId": store.S(row.OccurrenceID),
		}})
	}
	if err := r.store.BatchWrite(ctx, r.tables.Events(), writes); err != nil {
		return appErrors.Wrap(err, "failed to delete event")
	}
	if r.mirror != nil {
		for _, row := range rows {
			r.mirror.MarkOccurrenceCancelled(ctx, row.OccurrenceID)
		}
	}
	return nil
}

// RefreshVenueDetails pushes an updated venue record onto every occurrence
// embedding it, then refreshes the agenda mirrors of those occurrences.
// Best-effort: a failed target leaves a stale snapshot and a log line.
func (r *EventRepository) RefreshVenueDetails(ctx context.Context, systemID string, venue domain.Venue) {
	items, err := queryAll(ctx, r.store, r.tables.Events(), store.Query{
		IndexName: VenueIDIndex,
		KeyConditions: []store.Condition{
			store.Eq("SystemId", systemID),
			store.Eq("VenueId", venue.VenueID),
		},
	})
	if err != nil {
		r.logger.Warn("failed to list occurrences for venue snapshot refresh",
			zap.String("systemId", systemID),
			zap.String("venueId", venue.VenueID),
			zap.Error(err))
		return
	}
	rows := make(map[string]ddbOccurrence, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var row ddbOccurrence
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			continue
		}
		rows[row.OccurrenceID] = row
		ids = append(ids, row.OccurrenceID)
	}

	venueRow := toDdbVenue(venue)
	r.propagator.Apply(ctx, "refreshVenueDetails", ids, func(ctx context.Context, occurrenceID string) error {
		_, err := r.store.Update(ctx, r.tables.Events(), store.Key{
			"SystemId":     store.S(systemID),
			"OccurrenceId": store.S(occurrenceID),
		}, store.Update{Set: map[string]any{"Venue": venueRow}}, nil)
		return err
	})

	if r.mirror != nil {
		for _, id := range ids {
			row := rows[id]
			row.Venue = venueRow
			r.mirror.RefreshOccurrenceDetails(ctx, row.toDomain())
		}
	}
}

// OccurrencesAtVenueCovering returns the occurrences at a venue whose
// interval covers t, with a forward allowance so people arriving slightly
// early still count. Only ids are populated.
func (r *EventRepository) OccurrencesAtVenueCovering(ctx context.Context, systemID, venueID string, t, forwardAllowance int64) ([]domain.Occurrence, error) {
	items, err := queryAll(ctx, r.store, r.tables.Events(), store.Query{
		IndexName: VenueIDIndex,
		KeyConditions: []store.Condition{
			store.Eq("SystemId", systemID),
			store.Eq("VenueId", venueID),
		},
		Filter: []store.Condition{
			store.Le("Start", t+forwardAllowance),
			store.Ge("End", t),
		},
		Projection: []string{"OccurrenceId", "EventId", "Contributor"},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to find covering occurrences")
	}
	occurrences := make([]domain.Occurrence, 0, len(items))
	for _, item := range items {
		var row ddbOccurrence
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal occurrence", err)
		}
		occurrences = append(occurrences, row.toDomain())
	}
	return occurrences, nil
}

// eventRows returns every occurrence row of an event, erroring when the
// event has none.
func (r *EventRepository) eventRows(ctx context.Context, systemID, eventID string) ([]ddbOccurrence, error) {
	items, err := queryAll(ctx, r.store, r.tables.Events(), store.Query{
		IndexName: EventIDIndex,
		KeyConditions: []store.Condition{
			store.Eq("SystemId", systemID),
			store.Eq("EventId", eventID),
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list event occurrences")
	}
	if len(items) == 0 {
		return nil, appErrors.NewNotFound("event_not_found", "event does not exist")
	}
	rows := make([]ddbOccurrence, 0, len(items))
	for _, item := range items {
		var row ddbOccurrence
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal occurrence", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// resolveVenues loads and validates every venue referenced by the inputs,
// verifying each referenced room. Lookups are cached per call.
func (r *EventRepository) resolveVenues(ctx context.Context, systemID string, occurrences []OccurrenceInput) (map[string]ddbVenue, error) {
	venues := map[string]ddbVenue{}
	for _, occ := range occurrences {
		row, cached := venues[occ.VenueID]
		if !cached {
			item, err := r.store.Get(ctx, r.tables.Venues(), store.Key{
				"SystemId": store.S(systemID),
				"VenueId":  store.S(occ.VenueID),
			})
			if err != nil {
				return nil, appErrors.Wrap(err, "failed to resolve venue")
			}
			if item == nil {
				return nil, appErrors.NewValidation(appErrors.CodeBadVenue, "venue does not exist")
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				return nil, appErrors.NewInternal("failed to unmarshal venue", err)
			}
			venues[occ.VenueID] = row
		}
		if !utils.ContainsString(row.Rooms, occ.Room) {
			return nil, appErrors.NewValidation(appErrors.CodeBadRoom, "room does not exist in venue")
		}
	}
	return venues, nil
}

// checkCategories verifies every category is defined in the system.
func (r *EventRepository) checkCategories(ctx context.Context, systemID string, categories []string) error {
	if len(categories) == 0 {
		return nil
	}
	items, err := queryAll(ctx, r.store, r.tables.Categories(), store.Query{
		KeyConditions: []store.Condition{store.Eq("SystemId", systemID)},
		Projection:    []string{"Name"},
	})
	if err != nil {
		return appErrors.Wrap(err, "failed to list categories")
	}
	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		var row struct {
			Name string `dynamodbav:"Name"`
		}
		if err := attributevalue.UnmarshalMap(item, &row); err == nil {
			known[row.Name] = struct{}{}
		}
	}
	for _, c := range categories {
		if _, ok := known[c]; !ok {
			return appErrors.NewValidation(appErrors.CodeBadCategories, "unknown category "+c)
		}
	}
	return nil
}

func (r *EventRepository) writeRows(ctx context.Context, rows []ddbOccurrence) error {
	writes := make([]store.Write, 0, len(rows))
	for _, row := range rows {
		item, err := attributevalue.MarshalMap(row)
		if err != nil {
			return appErrors.NewInternal("failed to marshal occurrence", err)
		}
		writes = append(writes, store.Write{Put: item})
	}
	if err := r.store.BatchWrite(ctx, r.tables.Events(), writes); err != nil {
		return appErrors.Wrap(err, "failed to write occurrences")
	}
	return nil
}
