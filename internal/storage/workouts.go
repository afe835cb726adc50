package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/claude/setlog/internal/models"
)

// CreateWorkout inserts the workout row and one set row per target set
// (setIndex 0..sets-1, reps = w.Reps, done = false) in a single transaction.
// Either all rows become visible or none do. Returns the assigned workout id.
func (db *DB) CreateWorkout(ctx context.Context, w models.Workout) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin create workout", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO workouts (date, name, sets, reps, comment) VALUES (?, ?, ?, ?, ?)`,
		string(w.Date), w.Name, w.Sets, w.Reps, w.Comment)
	if err != nil {
		return 0, storageErr("inserting workout", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("reading workout id", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sets (workoutId, setIndex, reps, done) VALUES (?, ?, ?, 0)`)
	if err != nil {
		return 0, storageErr("preparing set insert", err)
	}
	defer stmt.Close()

	for i := 0; i < w.Sets; i++ {
		if db.beforeSetInsert != nil {
			if err := db.beforeSetInsert(i); err != nil {
				return 0, storageErr(fmt.Sprintf("inserting set %d", i), err)
			}
		}
		if _, err := stmt.ExecContext(ctx, id, i, w.Reps); err != nil {
			return 0, storageErr(fmt.Sprintf("inserting set %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit create workout", err)
	}
	return id, nil
}

// ListWorkoutsByDate returns the workouts logged on date, newest first.
func (db *DB) ListWorkoutsByDate(ctx context.Context, date models.Date) ([]models.Workout, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, date, name, sets, reps, comment
		 FROM workouts
		 WHERE date = ?
		 ORDER BY id DESC`,
		string(date))
	if err != nil {
		return nil, storageErr("querying workouts", err)
	}
	defer rows.Close()

	result := []models.Workout{}
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, storageErr("scanning workout", err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("querying workouts", err)
	}
	return result, nil
}

// GetWorkout retrieves a single workout by id. Returns ErrNotFound if absent.
func (db *DB) GetWorkout(ctx context.Context, id int64) (models.Workout, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, date, name, sets, reps, comment FROM workouts WHERE id = ?`, id)
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workout{}, fmt.Errorf("workout %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Workout{}, storageErr("querying workout", err)
	}
	return w, nil
}

// DeleteWorkout removes the workout's set rows and then the workout row,
// in one transaction. Deleting an unknown id is not an error.
func (db *DB) DeleteWorkout(ctx context.Context, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin delete workout", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE workoutId = ?`, id); err != nil {
		return storageErr("deleting sets", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id); err != nil {
		return storageErr("deleting workout", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit delete workout", err)
	}
	return nil
}

func scanWorkout(row interface{ Scan(dest ...any) error }) (models.Workout, error) {
	var w models.Workout
	var date string
	if err := row.Scan(&w.ID, &date, &w.Name, &w.Sets, &w.Reps, &w.Comment); err != nil {
		return models.Workout{}, err
	}
	w.Date = models.Date(date)
	return w, nil
}
