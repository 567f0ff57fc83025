package availability

import (
	"context"
	"log/slog"
	"time"

	"tablebook/pkg/logger"
)

// Service answers which calendar dates have reached the reservation cap.
type Service interface {
	GetFullyBookedDates(ctx context.Context) ([]string, error)
}

type service struct {
	repo      Repository
	sheet     string
	threshold int
	location  *time.Location
	log       *logger.Logger
}

func NewService(repo Repository, sheet string, threshold int, loc *time.Location) Service {
	return &service{
		repo:      repo,
		sheet:     sheet,
		threshold: threshold,
		location:  loc,
		log:       logger.GetDefault(),
	}
}

// GetFullyBookedDates re-reads the sheet on every call; counts are never cached.
func (s *service) GetFullyBookedDates(ctx context.Context) ([]string, error) {
	rows, err := s.repo.GetRows(ctx, s.sheet)
	if err != nil {
		return nil, err
	}

	index, skipped := CountByDate(rows, s.location)
	dates := FullyBooked(index, s.threshold)

	s.log.DebugContext(ctx, "Fully booked dates computed",
		slog.Int("rows", len(rows)),
		slog.Int("skipped", skipped),
		slog.Int("distinct_dates", len(index)),
		slog.Int("threshold", s.threshold),
		slog.Any("fully_booked", dates),
	)
	return dates, nil
}
