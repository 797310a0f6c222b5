package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

type ddbSystem struct {
	SystemID              string  `dynamodbav:"SystemId"`
	Name                  string  `dynamodbav:"Name"`
	Lat                   float64 `dynamodbav:"Lat"`
	Lon                   float64 `dynamodbav:"Lon"`
	AppendToLocationQuery string  `dynamodbav:"AppendToLocationQuery"`
	Locked                bool    `dynamodbav:"Locked"`
	InAnalysisQueue       bool    `dynamodbav:"InAnalysisQueue"`
}

func toDdbSystem(s domain.System) ddbSystem {
	return ddbSystem{
		SystemID:              s.SystemID,
		Name:                  s.Name,
		Lat:                   s.Lat,
		Lon:                   s.Lon,
		AppendToLocationQuery: s.AppendToLocationQuery,
		Locked:                s.Locked,
		InAnalysisQueue:       s.InAnalysisQueue,
	}
}

func (r ddbSystem) toDomain() domain.System {
	return domain.System{
		SystemID:              r.SystemID,
		Name:                  r.Name,
		Lat:                   r.Lat,
		Lon:                   r.Lon,
		AppendToLocationQuery: r.AppendToLocationQuery,
		Locked:                r.Locked,
		InAnalysisQueue:       r.InAnalysisQueue,
	}
}

// SystemRepository manages deployment systems and keeps the system snapshot
// embedded on user records in sync.
type SystemRepository struct {
	store      store.Store
	tables     Tables
	logger     *zap.Logger
	propagator *Propagator
}

// NewSystemRepository creates a SystemRepository.
func NewSystemRepository(s store.Store, tables Tables, logger *zap.Logger) *SystemRepository {
	return &SystemRepository{store: s, tables: tables, logger: logger, propagator: NewPropagator(logger)}
}

// CreateSystem writes a new system. The id must be unused.
func (r *SystemRepository) CreateSystem(ctx context.Context, system domain.System) error {
	item, err := attributevalue.MarshalMap(toDdbSystem(system))
	if err != nil {
		return appErrors.NewInternal("failed to marshal system", err)
	}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrNotExists("SystemId")}}
	err = r.store.Put(ctx, r.tables.Systems(), item, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewConflict(appErrors.CodeSystemIDExists, "system id already in use")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to create system")
	}
	r.logger.Debug("created system", zap.String("systemId", system.SystemID))
	return nil
}

// GetSystem fetches a system by id.
func (r *SystemRepository) GetSystem(ctx context.Context, systemID string) (domain.System, error) {
	item, err := r.store.Get(ctx, r.tables.Systems(), store.Key{"SystemId": store.S(systemID)})
	if err != nil {
		return domain.System{}, appErrors.Wrap(err, "failed to get system")
	}
	if item == nil {
		return domain.System{}, appErrors.NewNotFound(appErrors.CodeSystemIDNotFound, "system does not exist")
	}
	var row ddbSystem
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.System{}, appErrors.NewInternal("failed to unmarshal system", err)
	}
	return row.toDomain(), nil
}

// ListSystems returns every system.
func (r *SystemRepository) ListSystems(ctx context.Context) ([]domain.System, error) {
	items, err := r.store.Scan(ctx, r.tables.Systems())
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list systems")
	}
	systems := make([]domain.System, 0, len(items))
	for _, item := range items {
		var row ddbSystem
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, appErrors.NewInternal("failed to unmarshal system", err)
		}
		systems = append(systems, row.toDomain())
	}
	return systems, nil
}

// UpdateSystem rewrites a system's mutable fields, then refreshes the
// snapshot embedded on every user of the system.
func (r *SystemRepository) UpdateSystem(ctx context.Context, system domain.System) (domain.System, error) {
	upd := store.Update{Set: map[string]any{
		"Name":                  system.Name,
		"Lat":                   system.Lat,
		"Lon":                   system.Lon,
		"AppendToLocationQuery": system.AppendToLocationQuery,
		"Locked":                system.Locked,
	}}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("SystemId")}}
	item, err := r.store.Update(ctx, r.tables.Systems(), store.Key{"SystemId": store.S(system.SystemID)}, upd, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return domain.System{}, appErrors.NewNotFound(appErrors.CodeSystemIDNotFound, "system does not exist")
	}
	if err != nil {
		return domain.System{}, appErrors.Wrap(err, "failed to update system")
	}
	var row ddbSystem
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return domain.System{}, appErrors.NewInternal("failed to unmarshal system", err)
	}
	r.refreshUserSnapshots(ctx, row)
	return row.toDomain(), nil
}

// SetLock flips the write-lock flag on a system.
func (r *SystemRepository) SetLock(ctx context.Context, systemID string, locked bool) error {
	upd := store.Update{Set: map[string]any{"Locked": locked}}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("SystemId")}}
	item, err := r.store.Update(ctx, r.tables.Systems(), store.Key{"SystemId": store.S(systemID)}, upd, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewNotFound(appErrors.CodeSystemIDNotFound, "system does not exist")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to set system lock")
	}
	var row ddbSystem
	if err := attributevalue.UnmarshalMap(item, &row); err != nil {
		return appErrors.NewInternal("failed to unmarshal system", err)
	}
	r.refreshUserSnapshots(ctx, row)
	return nil
}

// SetInAnalysisQueue records whether the system is already queued for
// analysis, so repeat activity does not enqueue it again.
func (r *SystemRepository) SetInAnalysisQueue(ctx context.Context, systemID string, queued bool) error {
	upd := store.Update{Set: map[string]any{"InAnalysisQueue": queued}}
	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("SystemId")}}
	_, err := r.store.Update(ctx, r.tables.Systems(), store.Key{"SystemId": store.S(systemID)}, upd, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewNotFound(appErrors.CodeSystemIDNotFound, "system does not exist")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to flag system for analysis")
	}
	return nil
}

// DeleteSystem removes a system record.
func (r *SystemRepository) DeleteSystem(ctx context.Context, systemID string) error {
	cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("SystemId")}}
	err := r.store.Delete(ctx, r.tables.Systems(), store.Key{"SystemId": store.S(systemID)}, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		return appErrors.NewNotFound(appErrors.CodeSystemIDNotFound, "system does not exist")
	}
	if err != nil {
		return appErrors.Wrap(err, "failed to delete system")
	}
	return nil
}

// refreshUserSnapshots pushes the current system record onto every user of
// the system. Best-effort: failures leave stale snapshots behind and are
// only logged.
func (r *SystemRepository) refreshUserSnapshots(ctx context.Context, system ddbSystem) {
	items, err := queryAll(ctx, r.store, r.tables.Users(), store.Query{
		KeyConditions: []store.Condition{store.Eq("SystemId", system.SystemID)},
		Projection:    []string{"Username"},
	})
	if err != nil {
		r.logger.Warn("failed to list users for system snapshot refresh",
			zap.String("systemId", system.SystemID), zap.Error(err))
		return
	}
	usernames := make([]string, 0, len(items))
	for _, item := range items {
		var row struct {
			Username string `dynamodbav:"Username"`
		}
		if err := attributevalue.UnmarshalMap(item, &row); err == nil && row.Username != "" {
			usernames = append(usernames, row.Username)
		}
	}
	r.propagator.Apply(ctx, "refreshSystemDetails", usernames, func(ctx context.Context, username string) error {
		upd := store.Update{Set: map[string]any{"System": system}}
		cond := &store.ConditionSet{All: []store.Condition{store.AttrExists("Username")}}
		_, err := r.store.Update(ctx, r.tables.Users(), store.Key{
			"SystemId": store.S(system.SystemID),
			"Username": store.S(username),
		}, upd, cond)
		return err
	})
}
