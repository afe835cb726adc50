package models

// Workout is a row of the workouts table. ID is zero until the store assigns one.
type Workout struct {
	ID      int64  `json:"id"`
	Date    Date   `json:"date"`
	Name    string `json:"name"`
	Sets    int    `json:"sets"`
	Reps    int    `json:"reps"`
	Comment string `json:"comment"`
}

// WorkoutSet is a row of the sets table.
type WorkoutSet struct {
	ID        int64 `json:"id"`
	WorkoutID int64 `json:"workout_id"`
	SetIndex  int   `json:"set_index"`
	Reps      int   `json:"reps"`
	Done      bool  `json:"done"`
}

// CloneSets returns a copy of sets that shares no backing array with it.
func CloneSets(sets []WorkoutSet) []WorkoutSet {
	if sets == nil {
		return nil
	}
	out := make([]WorkoutSet, len(sets))
	copy(out, sets)
	return out
}
