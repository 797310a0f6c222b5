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

type ddbAgenda struct {
	SystemID string `dynamodbav:"SystemId"`
	AgendaID string `dynamodbav:"AgendaId"`
	Owner    string `dynamodbav:"Owner"`
	Name     string `dynamodbav:"Name"`
}

// Agenda items snapshot the occurrence they reference; the snapshot is
// refreshed best-effort when the occurrence changes.
type ddbAgendaItem struct {
	SystemID     string   `dynamodbav:"SystemId"`
	AgendaItemID string   `dynamodbav:"AgendaItemId"`
	AgendaID     string   `dynamodbav:"AgendaId"`
	OccurrenceID string   `dynamodbav:"OccurrenceId"`
	EventID      string   `dynamodbav:"EventId"`
	Name         string   `dynamodbav:"Name"`
	Description  string   `dynamodbav:"Description"`
	Categories   []string `dynamodbav:"Categories,stringset,omitempty"`
	Start        int64    `dynamodbav:"Start"`
	End          int64    `dynamodbav:"End"`
	Room         string   `dynamodbav:"Room"`
	VenueName    string   `dynamodbav:"VenueName"`
	VenueAddress string   `dynamodbav:"VenueAddress"`
	VenueLat     float64  `dynamodbav:"VenueLat"`
	VenueLon     float64  `dynamodbav:"VenueLon"`
	IsCancelled  bool     `dynamodbav:"IsCancelled"`
}

func agendaItemID(agendaID, occurrenceID string) string {
	return agendaID + "#" + occurrenceID
}

func (r ddbAgendaItem) toDomain() domain.AgendaItem {
	return domain.AgendaItem{
		AgendaID:     r.AgendaID,
		AgendaItemID: r.AgendaItemID,
		OccurrenceID: r.OccurrenceID,
		EventID:      r.EventID,
		Name:         r.Name,
		Description:  r.Description,
		Categories:   r.Categories,
		Start:        r.Start,
		End:          r.End,
		Room:         r.Room,
		VenueName:    r.VenueName,
		VenueAddress: r.VenueAddress,
		VenueLat:     r.VenueLat,
		VenueLon:     r.VenueLon,
		IsCancelled:  r.IsCancelled,
	}
}

// AgendaRepository manages agendas and their occurrence-snapshot items, and
// implements the occurrence mirror used by the event repository.
type AgendaRepository struct {
	store      store.Store
	tables     Tables
	logger     *zap.Logger
	propagator *Propagator
}

var _ OccurrenceMirror = (*AgendaRepository)(nil)

// NewAgendaRepository creates an AgendaRepository.
func NewAgendaRepository(s store.Store, tables Tables, logger *zap.Logger) *AgendaRepository {
	return &AgendaRepository{store: s, tables: tables, logger: logger, propagator: NewPropagator(logger)}
}

// CreateAgenda writes a new agenda with a generated id.
func (r *AgendaRepository) CreateAgenda(ctx context.Context, agenda domain.Agenda) (domain.Agenda, error) {
	agenda.AgendaID = uuid.NewString()
	item, err := attributevalue.MarshalMap(ddbAgenda{
		SystemID: agenda.SystemID,
		AgendaID: agenda.AgendaID,
		Owner:    agenda.Owner,
		Name:     agenda.Name,
	})
	if err != nil {
		return domain.Agenda{}, appErrors.NewInternal("failed to marshal agenda", err)
	}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrNotExists("AgendaId")}}
	if err := r.store.Put(ctx, r.tables.Agendas(), item, cond); err != nil {
		return domain.Agenda{}, appErrors.Wrap(err, "failed to create agenda")
	}
	return agenda, nil
}

// GetAgenda fetches an agenda by id.
func (r *AgendaRepository) GetAgenda(ctx context.Context, systemID, agendaID string) (domain.Agenda, error) {
	item, err := r.store.Get(ctx, r.tables.Agendas(), store.Key{
		"SystemId": store.S(systemID),
		"AgendaId": store.S(agendaID),
	})
	if err != nil {
		return domain.Agenda{}, appErrors.Wrap(err, "failed to get agenda")
	}
	if item == nil {
		return domain.Agenda{}, appErrors.NewNotFound(appErrors.CodeAgendaNotFound, "agenda does not exist")
	}
	var row ddbAgenda
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.Agenda{}, appErrors.NewInternal("failed to unmarshal agenda", err)
	}
	return domain.Agenda{SystemID: row.SystemID, AgendaID: row.AgendaID, Owner: row.Owner, Name: row.Name}, nil
}

// ListAgendasByOwner returns every agenda a user owns.
func (r *AgendaRepository) ListAgendasByOwner(ctx context.Context, owner string) ([]domain.Agenda, error) {
	items, err := queryAll(ctx, r.store, r.tables.Agendas(), store.Query{
		IndexName:     OwnerIndex,
		KeyConditions: []store.Condition{store.Eq("Owner", owner)},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list agendas")
	}
	agendas := make([]domain.Agenda, 0, len(items))
	for _, item := range items {
		var row ddbAgenda
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal agenda", err)
		}
		agendas = append(agendas, domain.Agenda{SystemID: row.SystemID, AgendaID: row.AgendaID, Owner: row.Owner, Name: row.Name})
	}
	return agendas, nil
}

// DeleteAgenda removes an agenda and all of its items.
func (r *AgendaRepository) DeleteAgenda(ctx context.Context, systemID, agendaID, owner string) error {
	cond := &store.ConditionSet{All: []store.Condition{
		store.AttrExists("AgendaId"),
		store.Eq("Owner", owner),
	}}
	err := r.store.Delete(ctx, r.tables.Agendas(), store.Key{
		"SystemId": store.S(systemID),
		"AgendaId": store.S(agendaID),
	}, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewNotFound(appErrors.CodeAgendaNotFound, "agenda does not exist")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to delete agenda")
	}

	items, err := r.itemRows(ctx, systemID, agendaID)
	if err != nil {
		return err
	}
	writes := make([]store.Write, 0, len(items))
	for _, item := range items {
		writes = append(writes, store.Write{Delete: store.Key{
			"SystemId":     store.S(systemID),
			"AgendaItemId": store.S(item.AgendaItemID),
		}})
	}
	if len(writes) > 0 {
		if err := r.store.BatchWrite(ctx, r.tables.AgendaItems(), writes); err != nil {
			return appErrors.Wrap(err, "failed to delete agenda items")
		}
	}
	return nil
}

// AddAgendaItem snapshots an occurrence into an agenda. An occurrence can
// sit on an agenda once; re-adding it fails the write condition.
func (r *AgendaRepository) AddAgendaItem(ctx context.Context, agenda domain.Agenda, occurrence domain.Occurrence) (domain.AgendaItem, error) {
	row := ddbAgendaItem{
		SystemID:     agenda.SystemID,
		AgendaItemID: agendaItemID(agenda.AgendaID, occurrence.OccurrenceID),
		AgendaID:     agenda.AgendaID,
		OccurrenceID: occurrence.OccurrenceID,
		EventID:      occurrence.Event.EventID,
		Name:         occurrence.Event.Name,
		Description:  occurrence.Event.Description,
		Categories:   occurrence.Event.Categories,
		Start:        occurrence.Start,
		End:          occurrence.End,
		Room:         occurrence.Room,
		VenueName:    occurrence.Venue.Name,
		VenueAddress: occurrence.Venue.Address,
		VenueLat:     occurrence.Venue.Lat,
		VenueLon:     occurrence.Venue.Lon,
		IsCancelled:  occurrence.IsCancelled,
	}
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return domain.AgendaItem{}, appErrors.NewInternal("failed to marshal agenda item", err)
	}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrNotExists("AgendaItemId")}}
	if err := r.store.Put(ctx, r.tables.AgendaItems(), item, cond); err != nil {
		return domain.AgendaItem{}, appErrors.Wrap(err, "failed to add agenda item")
	}
	return row.toDomain(), nil
}

// ListAgendaItems returns every item of an agenda.
func (r *AgendaRepository) ListAgendaItems(ctx context.Context, systemID, agendaID string) ([]domain.AgendaItem, error) {
	rows, err := r.itemRows(ctx, systemID, agendaID)
	if err != nil {
		return nil, err
	}
	items := make([]domain.AgendaItem, len(rows))
	for i, row := range rows {
		items[i] = row.toDomain()
	}
	return items, nil
}

// DeleteAgendaItem removes one occurrence from an agenda.
func (r *AgendaRepository) DeleteAgendaItem(ctx context.Context, systemID, agendaID, occurrenceID string) error {
	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("AgendaItemId")}}
	err := r.store.Delete(ctx, r.tables.AgendaItems(), store.Key{
		"SystemId":     store.S(systemID),
		"AgendaItemId": store.S(agendaItemID(agendaID, occurrenceID)),
	}, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewNotFound("agenda_item_not_found", "agenda item does not exist")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to delete agenda item")
	}
	return nil
}

// RefreshOccurrenceDetails rewrites the full snapshot on every agenda item
// that mirrors the occurrence. Best-effort.
func (r *AgendaRepository) RefreshOccurrenceDetails(ctx context.Context, occurrence domain.Occurrence) {
	upd := store.Update{Set: map[string]any{
		"Name":         occurrence.Event.Name,
		"Description":  occurrence.Event.Description,
		"Start":        occurrence.Start,
		"End":          occurrence.End,
		"Room":         occurrence.Room,
		"VenueName":    occurrence.Venue.Name,
		"VenueAddress": occurrence.Venue.Address,
		"VenueLat":     occurrence.Venue.Lat,
		"VenueLon":     occurrence.Venue.Lon,
		"IsCancelled":  occurrence.IsCancelled,
	}}
	if len(occurrence.Event.Categories) > 0 {
		upd.Set["Categories"] = store.StringSet(occurrence.Event.Categories)
	} else {
		upd.Remove = []string{"Categories"}
	}
	r.updateMirrors(ctx, "refreshOccurrenceDetails", occurrence.OccurrenceID, upd)
}

// MarkOccurrenceCancelled flags every mirror of the occurrence as cancelled.
// Best-effort.
func (r *AgendaRepository) MarkOccurrenceCancelled(ctx context.Context, occurrenceID string) {
	r.updateMirrors(ctx, "markEventOccurrenceAsCancelled", occurrenceID, store.Update{
		Set: map[string]any{"IsCancelled": true},
	})
}

func (r *AgendaRepository) updateMirrors(ctx context.Context, name, occurrenceID string, upd store.Update) {
	items, err := queryAll(ctx, r.store, r.tables.AgendaItems(), store.Query{
		IndexName:     OccurrenceIndex,
		KeyConditions: []store.Condition{store.Eq("OccurrenceId", occurrenceID)},
		Projection:    []string{"SystemId", "AgendaItemId"},
	})
	if err != nil {
		r.logger.Warn("failed to list agenda mirrors",
			zap.String("propagation", name),
			zap.String("occurrenceId", occurrenceID),
			zap.Error(err))
		return
	}
	type mirrorKey struct{ systemID, itemID string }
	keys := make(map[string]mirrorKey, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var row struct {
			SystemID     string `dynamodbav:"SystemId"`
			AgendaItemID string `dynamodbav:"AgendaItemId"`
		}
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			continue
		}
		id := row.SystemID + "/" + row.AgendaItemID
		keys[id] = mirrorKey{systemID: row.SystemID, itemID: row.AgendaItemID}
		ids = append(ids, id)
	}
	r.propagator.Apply(ctx, name, ids, func(ctx context.Context, id string) error {
		k := keys[id]
		_, err := r.store.Update(ctx, r.tables.AgendaItems(), store.Key{
			"SystemId":     store.S(k.systemID),
			"AgendaItemId": store.S(k.itemID),
		}, upd, nil)
		return err
	})
}

func (r *AgendaRepository) itemRows(ctx context.Context, systemID, agendaID string) ([]ddbAgendaItem, error) {
	items, err := queryAll(ctx, r.store, r.tables.AgendaItems(), store.Query{
		KeyConditions: []store.Condition{
			store.Eq("SystemId", systemID),
			store.HasPrefix("AgendaItemId", agendaID+"#"),
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list agenda items")
	}
	rows := make([]ddbAgendaItem, 0, len(items))
	for _, item := range items {
		var row ddbAgendaItem
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal agenda item", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
