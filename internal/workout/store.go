package workout

import (
	"context"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
)

// Store is the durable record store the service writes through.
type Store interface {
	CreateWorkout(ctx context.Context, w models.Workout) (int64, error)
	ListWorkoutsByDate(ctx context.Context, date models.Date) ([]models.Workout, error)
	ListSetsByWorkout(ctx context.Context, workoutID int64) ([]models.WorkoutSet, error)
	UpdateSet(ctx context.Context, s models.WorkoutSet) (storage.UpdateResult, error)
	DeleteWorkout(ctx context.Context, id int64) error
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)
