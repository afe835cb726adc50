package storage

import (
	"context"
)

// DataStats holds row counts for the whole database.
type DataStats struct {
	SchemaVersion int   `json:"schema_version"`
	TotalWorkouts int64 `json:"total_workouts"`
	TotalSets     int64 `json:"total_sets"`
	OrphanSets    int64 `json:"orphan_sets"`
}

// GetDataStats counts stored rows. OrphanSets counts set rows whose workout
// no longer exists and should always be zero.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{SchemaVersion: SchemaVersion}

	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM workouts`).Scan(&stats.TotalWorkouts)
	if err != nil {
		return nil, storageErr("counting workouts", err)
	}

	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sets`).Scan(&stats.TotalSets)
	if err != nil {
		return nil, storageErr("counting sets", err)
	}

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sets s
		 WHERE NOT EXISTS (SELECT 1 FROM workouts w WHERE w.id = s.workoutId)`,
	).Scan(&stats.OrphanSets)
	if err != nil {
		return nil, storageErr("counting orphan sets", err)
	}

	return stats, nil
}
