package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/store"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

// StalenessMillis is the minimum gap between two accepted geo entries for
// the same device at the same venue: 15 minutes.
const StalenessMillis int64 = 15 * 60 * 1000

type ddbGeoEntry struct {
	SysVenueID string `dynamodbav:"SysVenueId"`
	DeviceID   string `dynamodbav:"DeviceId"`
	Username   string `dynamodbav:"Username"`
	SystemID   string `dynamodbav:"SystemId"`
	VenueID    string `dynamodbav:"VenueId"`
	Time       int64  `dynamodbav:"Time"`
}

func sysVenueID(systemID, venueID string) string {
	return systemID + "#" + venueID
}

// GeoEventRepository deduplicates device presence reports per venue.
type GeoEventRepository struct {
	store  store.Store
	tables Tables
	logger *zap.Logger
}

// NewGeoEventRepository creates a GeoEventRepository.
func NewGeoEventRepository(s store.Store, tables Tables, logger *zap.Logger) *GeoEventRepository {
	return &GeoEventRepository{store: s, tables: tables, logger: logger}
}

// RecordEntry stores a presence report unless a fresh one already exists.
// The write condition accepts the report only when no earlier entry exists
// or the stored entry is at least the staleness window old. A rejected
// report is not an error: it returns accepted=false.
func (r *GeoEventRepository) RecordEntry(ctx context.Context, entry domain.GeoEntry) (bool, error) {
	item, err := attributevalue.MarshalMap(ddbGeoEntry{
		SysVenueID: sysVenueID(entry.SystemID, entry.VenueID),
		DeviceID:   entry.DeviceID,
		Username:   entry.Username,
		SystemID:   entry.SystemID,
		VenueID:    entry.VenueID,
		Time:       entry.Time,
	})
	if err != nil {
		return false, appErrors.NewInternal("failed to marshal geo entry", err)
	}

	cond := &store.ConditionSet{Any: []store.Condition{
		store.AttrNotExists("Time"),
		store.Le("Time", entry.Time-StalenessMillis),
	}}
	err = r.store.Put(ctx, r.tables.GeoEvents(), item, cond)
	if appErrors.HasCode(err, appErrors.CodeConditionViolated) {
		r.logger.Debug("dropped stale geo entry",
			zap.String("deviceId", entry.DeviceID),
			zap.String("venueId", entry.VenueID))
		return false, nil
	}
	if err != nil {
		return false, appErrors.Wrap(err, "failed to record geo entry")
	}
	return true, nil
}
