package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/repository"
)

// forwardAllowanceMillis lets an arrival count towards an occurrence that
// starts up to 10 minutes later.
const forwardAllowanceMillis int64 = 10 * 60 * 1000

// GeoEntryService accepts presence reports and turns accepted ones into
// venue and occurrence attendance counts.
type GeoEntryService struct {
	geoEvents *repository.GeoEventRepository
	events    *repository.EventRepository
	counters  *repository.CounterRepository
	logger    *zap.Logger
}

// NewGeoEntryService creates a GeoEntryService.
func NewGeoEntryService(geoEvents *repository.GeoEventRepository, events *repository.EventRepository, counters *repository.CounterRepository, logger *zap.Logger) *GeoEntryService {
	return &GeoEntryService{geoEvents: geoEvents, events: events, counters: counters, logger: logger}
}

// RecordEntry stores a presence report and, when accepted, bumps the
// counters in the background so the caller is not kept waiting.
func (s *GeoEntryService) RecordEntry(ctx context.Context, entry domain.GeoEntry) (bool, error) {
	accepted, err := s.geoEvents.RecordEntry(ctx, entry)
	if err != nil || !accepted {
		return accepted, err
	}
	go s.CountEntry(context.WithoutCancel(ctx), entry)
	return true, nil
}

// CountEntry increments the venue counter and the counter of every
// occurrence running at the venue around the entry time. Failures are
// logged; the entry itself is already accepted.
func (s *GeoEntryService) CountEntry(ctx context.Context, entry domain.GeoEntry) {
	if err := s.counters.IncrementVenueCounter(ctx, entry.SystemID, entry.VenueID, entry.Time); err != nil {
		s.logger.Warn("failed to count venue entry",
			zap.String("venueId", entry.VenueID), zap.Error(err))
	}

	occurrences, err := s.events.OccurrencesAtVenueCovering(ctx, entry.SystemID, entry.VenueID, entry.Time, forwardAllowanceMillis)
	if err != nil {
		s.logger.Warn("failed to find occurrences for entry",
			zap.String("venueId", entry.VenueID), zap.Error(err))
		return
	}
	for _, occ := range occurrences {
		if err := s.counters.IncrementEventCounter(ctx, entry.SystemID, occ.Event.EventID, occ.OccurrenceID, entry.Time); err != nil {
			s.logger.Warn("failed to count occurrence entry",
				zap.String("occurrenceId", occ.OccurrenceID), zap.Error(err))
		}
	}
}
