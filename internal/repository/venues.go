package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

type ddbVenue struct {
	SystemID    string   `dynamodbav:"SystemId"`
	VenueID     string   `dynamodbav:"VenueId"`
	Name        string   `dynamodbav:"Name"`
	Description string   `dynamodbav:"Description"`
	Address     string   `dynamodbav:"Address"`
	Lat         float64  `dynamodbav:"Lat"`
	Lon         float64  `dynamodbav:"Lon"`
	Rooms       []string `dynamodbav:"Rooms,stringset"`
	Contributor string   `dynamodbav:"Contributor"`
}

func toDdbVenue(v domain.Venue) ddbVenue {
	return ddbVenue{
		SystemID:    v.SystemID,
		VenueID:     v.VenueID,
		Name:        v.Name,
		Description: v.Description,
		Address:     v.Address,
		Lat:         v.Lat,
		Lon:         v.Lon,
		Rooms:       v.Rooms,
		Contributor: v.Contributor,
	}
}

func (r ddbVenue) toDomain() domain.Venue {
	return domain.Venue{
		VenueID:     r.VenueID,
		SystemID:    r.SystemID,
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		Lat:         r.Lat,
		Lon:         r.Lon,
		Rooms:       r.Rooms,
		Contributor: r.Contributor,
	}
}

// VenueSnapshotRefresher pushes an updated venue record into the occurrence
// rows and agenda mirrors that embed it. EventRepository implements it.
type VenueSnapshotRefresher interface {
	RefreshVenueDetails(ctx context.Context, systemID string, venue domain.Venue)
}

// VenuePage is one page of a venue listing.
type VenuePage struct {
	Venues     []domain.Venue
	NextCursor string
}

// VenueListOptions controls a venue listing page.
type VenueListOptions struct {
	SortByName   bool
	NameContains string
	Limit        int32
	Cursor       string
}

// VenueRepository manages venues and their room sets.
type VenueRepository struct {
	store     store.Store
	tables    Tables
	logger    *zap.Logger
	refresher VenueSnapshotRefresher
}

// NewVenueRepository creates a VenueRepository. The refresher may be set
// later to break the construction cycle with the event repository.
func NewVenueRepository(s store.Store, tables Tables, logger *zap.Logger) *VenueRepository {
	return &VenueRepository{store: s, tables: tables, logger: logger}
}

// SetRefresher wires the occurrence-snapshot refresher.
func (r *VenueRepository) SetRefresher(refresher VenueSnapshotRefresher) {
	r.refresher = refresher
}

func (r *VenueRepository) refresh(ctx context.Context, venue ddbVenue) {
	if r.refresher == nil {
		return
	}
	r.refresher.RefreshVenueDetails(ctx, venue.SystemID, venue.toDomain())
}

// CreateVenue writes a new venue with a generated id.
func (r *VenueRepository) CreateVenue(ctx context.Context, venue domain.Venue) (domain.Venue, error) {
	venue.VenueID = uuid.NewString()
	item, err := attributevalue.MarshalMap(toDdbVenue(venue))
	if err != nil {
		return domain.Venue{}, appErrors.NewInternal("failed to marshal venue", err)
	}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrNotExists("VenueId")}}
	if err := r.store.Put(ctx, r.tables.Venues(), item, cond); err != nil {
		return domain.Venue{}, appErrors.Wrap(err, "failed to create venue")
	}
	r.logger.Debug("created venue",
		zap.String("systemId", venue.SystemID),
		zap.String("venueId", venue.VenueID))
	return venue, nil
}

// GetVenue fetches a venue by id.
func (r *VenueRepository) GetVenue(ctx context.Context, systemID, venueID string) (domain.Venue, error) {
	row, err := r.getVenueRow(ctx, systemID, venueID)
	if err != nil {
		return domain.Venue{}, err
	}
	return row.toDomain(), nil
}

func (r *VenueRepository) getVenueRow(ctx context.Context, systemID, venueID string) (ddbVenue, error) {
	item, err := r.store.Get(ctx, r.tables.Venues(), store.Key{
		"SystemId": store.S(systemID),
		"VenueId":  store.S(venueID),
	})
	if err != nil {
		return ddbVenue{}, appErrors.Wrap(err, "failed to get venue")
	}
	if item == nil {
		return ddbVenue{}, appErrors.NewNotFound(appErrors.CodeBadVenue, "venue does not exist")
	}
	var row ddbVenue
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return ddbVenue{}, appErrors.NewInternal("failed to unmarshal venue", err)
	}
	return row, nil
}

// ListVenuesPage returns one raw page of venues. Callers accumulate pages
// until they have enough results.
func (r *VenueRepository) ListVenuesPage(ctx context.Context, systemID string, opts VenueListOptions) (VenuePage, error) {
	startKey, err := DecodeCursor(opts.Cursor)
	if err != nil {
		return VenuePage{}, err
	}
	q := store.Query{
		KeyConditions:     []store.Condition{store.Eq("SystemId", systemID)},
		Limit:             opts.Limit,
		ExclusiveStartKey: startKey,
	}
	if opts.SortByName {
		q.IndexName = NameIndex
	}
	if opts.NameContains != "" {
		q.Filter = append(q.Filter, store.ContainsValue("Name", opts.NameContains))
	}
	page, err := r.store.Query(ctx, r.tables.Venues(), q)
	if err != nil {
		return VenuePage{}, appErrors.Wrap(err, "failed to list venues")
	}
	venues := make([]domain.Venue, 0, len(page.Items))
	for _, item := range page.Items {
		var row ddbVenue
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return VenuePage{}, appErrors.NewInternal("failed to unmarshal venue", err)
		}
		venues = append(venues, row.toDomain())
	}
	next, err := EncodeCursor(page.LastEvaluatedKey)
	if err != nil {
		return VenuePage{}, err
	}
	return VenuePage{Venues: venues, NextCursor: next}, nil
}

// VenueChanges carries the fields an update may touch. Nil means unchanged.
type VenueChanges struct {
	Name        *string
	Description *string
	Address     *string
	Lat         *float64
	Lon         *float64
}

// UpdateVenue rewrites mutable venue fields. Only the contributor who created
// the venue may edit it; anything else fails the write condition. The updated
// record is fanned out to every occurrence embedding it.
func (r *VenueRepository) UpdateVenue(ctx context.Context, systemID, venueID, contributor string, changes VenueChanges) (domain.Venue, error) {
	set := map[string]any{}
	if changes.Name != nil {
		set["Name"] = *changes.Name
	}
	if changes.Description != nil {
		set["Description"] = *changes.Description
	}
	if changes.Address != nil {
		set["Address"] = *changes.Address
	}
	if changes.Lat != nil {
		set["Lat"] = *changes.Lat
	}
	if changes.Lon != nil {
		set["Lon"] = *changes.Lon
	}
	if len(set) == 0 {
		return r.GetVenue(ctx, systemID, venueID)
	}

	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("VenueId"),
		store.Eq("Contributor", contributor),
	}}
	item, err := r.store.Update(ctx, r.tables.Venues(), store.Key{
		"SystemId": store.S(systemID),
		"VenueId":  store.S(venueID),
	}, store.Update{Set: set}, cond)
	if err != nil {
		return domain.Venue{}, appErrors.Wrap(err, "failed to update venue")
	}
	var row ddbVenue
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.Venue{}, appErrors.NewInternal("failed to unmarshal venue", err)
	}
	r.refresh(ctx, row)
	return row.toDomain(), nil
}

// AddRoom adds a room name to the venue's room set.
func (r *VenueRepository) AddRoom(ctx context.Context, systemID, venueID, contributor, room string) (domain.Venue, error) {
	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("VenueId"),
		store.Eq("Contributor", contributor),
	}}
	upd := store.Update{Add: map[string]any{"Rooms": store.StringSet{room}}}
	item, err := r.store.Update(ctx, r.tables.Venues(), store.Key{
		"SystemId": store.S(systemID),
		"VenueId":  store.S(venueID),
	}, upd, cond)
	if err != nil {
		return domain.Venue{}, appErrors.Wrap(err, "failed to add room")
	}
	var row ddbVenue
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.Venue{}, appErrors.NewInternal("failed to unmarshal venue", err)
	}
	r.refresh(ctx, row)
	return row.toDomain(), nil
}

// DeleteRoom removes a room from the venue's room set. The room must still
// be unused by occurrences, and must not be the last room left: the
// conditional delete re-verifies membership and rejects emptying the set.
func (r *VenueRepository) DeleteRoom(ctx context.Context, systemID, venueID, contributor, room string) (domain.Venue, error) {
	inUse, err := r.roomHasOccurrences(ctx, systemID, venueID, room)
	if err != nil {
		return domain.Venue{}, err
	}
	if inUse {
		return domain.Venue{}, appErrors.NewConflict(appErrors.CodeRoomHasEvents, "room still has event occurrences")
	}

	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("VenueId"),
		store.Eq("Contributor", contributor),
		store.ContainsValue("Rooms", room),
		store.Ne("Rooms", store.StringSet{room}),
	}}
	upd := store.Update{DeleteFromSet: map[string]any{"Rooms": store.StringSet{room}}}
	item, err := r.store.Update(ctx, r.tables.Venues(), store.Key{
		"SystemId": store.S(systemID),
		"VenueId":  store.S(venueID),
	}, upd, cond)
	if err != nil {
		return domain.Venue{}, appErrors.Wrap(err, "failed to delete room")
	}
	var row ddbVenue
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.Venue{}, appErrors.NewInternal("failed to unmarshal venue", err)
	}
	r.refresh(ctx, row)
	return row.toDomain(), nil
}

// DeleteVenue removes a venue that has no occurrences left.
func (r *VenueRepository) DeleteVenue(ctx context.Context, systemID, venueID, contributor string) error {
	hasEvents, err := r.venueHasOccurrences(ctx, systemID, venueID)
	if err != nil {
		return err
	}
	if hasEvents {
		return appErrors.NewConflict(appErrors.CodeVenueHasEvents, "venue still has event occurrences")
	}

	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("VenueId"),
		store.Eq("Contributor", contributor),
	}}
	err = r.store.Delete(ctx, r.tables.Venues(), store.Key{
		"SystemId": store.S(systemID),
		"VenueId":  store.S(venueID),
	}, cond)
	if err != nil {
		return appErrors.Wrap(err, "failed to delete venue")
	}
	r.logger.Debug("deleted venue",
		zap.String("systemId", systemID),
		zap.String("venueId", venueID))
	return nil
}

func (r *VenueRepository) roomHasOccurrences(ctx context.Context, systemID, venueID, room string) (bool, error) {
	items, err := queryAll(ctx, r.store, r.tables.Events(), store.Query{
		IndexName: VenueIDIndex,
		KeyConditions: []store.Condition{
			store.Eq("SystemId", systemID),
			store.Eq("VenueId", venueID),
		},
		Filter:     []store.Condition{store.Eq("Room", room)},
		Projection: []string{"OccurrenceId"},
	})
	if err != nil {
		return false, appErrors.Wrap(err, "failed to check room usage")
	}
	return len(items) > 0, nil
}

func (r *VenueRepository) venueHasOccurrences(ctx context.Context, systemID, venueID string) (bool, error) {
	items, err := queryAll(ctx, r.store, r.tables.Events(), store.Query{
		IndexName: VenueIDIndex,
		KeyConditions: []store.Condition{
			store.Eq("SystemId", systemID),
			store.Eq("VenueId", venueID),
		},
		Projection: []string{"OccurrenceId"},
	})
	if err != nil {
		return false, appErrors.Wrap(err, "failed to check venue usage")
	}
	return len(items) > 0, nil
}
