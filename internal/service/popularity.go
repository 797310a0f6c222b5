package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/repository"
)

// PopularityService aggregates attendance counters into rankings.
type PopularityService struct {
	counters *repository.CounterRepository
}

// NewPopularityService creates a PopularityService.
func NewPopularityService(counters *repository.CounterRepository) *PopularityService {
	return &PopularityService{counters: counters}
}

// Popular fetches the venue and event rankings of a system in parallel.
func (s *PopularityService) Popular(ctx context.Context, systemID string) ([]domain.PopularVenue, []domain.PopularEvent, error) {
	var (
		venues []domain.PopularVenue
		events []domain.PopularEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		venues, err = s.counters.PopularVenues(gctx, systemID)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.counters.PopularEvents(gctx, systemID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return venues, events, nil
}
