package storage

import (
	"context"

	"github.com/claude/setlog/internal/models"
)

// ListSetsByWorkout returns the workout's sets ordered by setIndex. An unknown
// workout yields an empty slice, not an error.
func (db *DB) ListSetsByWorkout(ctx context.Context, workoutID int64) ([]models.WorkoutSet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, workoutId, setIndex, reps, done
		 FROM sets
		 WHERE workoutId = ?
		 ORDER BY setIndex ASC`,
		workoutID)
	if err != nil {
		return nil, storageErr("querying sets", err)
	}
	defer rows.Close()

	result := []models.WorkoutSet{}
	for rows.Next() {
		var s models.WorkoutSet
		var done int
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.SetIndex, &s.Reps, &done); err != nil {
			return nil, storageErr("scanning set", err)
		}
		s.Done = done != 0
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("querying sets", err)
	}
	return result, nil
}

// UpdateSet writes every column of the set row keyed by s.ID. A missing row is
// reported as NotFound with a nil error.
func (db *DB) UpdateSet(ctx context.Context, s models.WorkoutSet) (UpdateResult, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sets SET workoutId = ?, setIndex = ?, reps = ?, done = ? WHERE id = ?`,
		s.WorkoutID, s.SetIndex, s.Reps, boolToInt(s.Done), s.ID)
	if err != nil {
		return NotFound, storageErr("updating set", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NotFound, storageErr("updating set", err)
	}
	if n == 0 {
		return NotFound, nil
	}
	return Updated, nil
}

// CountSetsByWorkout counts set rows referencing workoutID.
func (db *DB) CountSetsByWorkout(ctx context.Context, workoutID int64) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sets WHERE workoutId = ?`, workoutID).Scan(&n)
	if err != nil {
		return 0, storageErr("counting sets", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
