package service

import (
	"context"
	"errors"
	"time"

	"thebes/thebes-server/internal/analytics"
	"thebes/thebes-server/internal/repository"
)

// AnalyticsService fetches the exercise history behind a filter and runs the
// pure computation over it. Metrics are recomputed from scratch on every
// call; history sizes are hundreds of sets, not millions.
type AnalyticsService interface {
	GetExerciseProgress(ctx context.Context, userID, exerciseName string, from, to time.Time) (*analytics.Progress, error)
}

// analyticsService implements the AnalyticsService interface.
type analyticsService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewAnalyticsService creates a new instance of analyticsService.
func NewAnalyticsService(exerciseRepo repository.ExerciseRepository) AnalyticsService {
	return &analyticsService{exerciseRepo: exerciseRepo}
}

// GetExerciseProgress computes the progress metrics for one exercise name
// over [from, to]. Only workout-linked records count; template exercises
// have no date and are never part of history.
func (s *analyticsService) GetExerciseProgress(ctx context.Context, userID, exerciseName string, from, to time.Time) (*analytics.Progress, error) {
	if exerciseName == "" {
		return nil, errors.New("exercise name is required")
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	history, err := s.exerciseRepo.GetHistoryByName(ctx, userID, exerciseName, from, to)
	if err != nil {
		return nil, err
	}

	progress := analytics.ComputeProgress(history)
	return &progress, nil
}
