package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NewWorkout is the (name, sets, reps, comment) tuple a form submits.
type NewWorkout struct {
	Name    string `json:"name"`
	Sets    int    `json:"sets"`
	Reps    int    `json:"reps"`
	Comment string `json:"comment"`
}

// MaxSets bounds the set rows one workout may create.
const MaxSets = 100

var (
	ErrEmptyName     = errors.New("name is required")
	ErrNegativeCount = errors.New("sets and reps must not be negative")
	ErrTooManySets   = fmt.Errorf("sets must not exceed %d", MaxSets)
)

// Validate trims the name and comment and checks the numeric fields.
// Zero sets or reps are accepted: the log has always allowed them and
// a zero-set workout simply has no sets and zero progress.
func (n *NewWorkout) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Comment = strings.TrimSpace(n.Comment)
	if n.Name == "" {
		return ErrEmptyName
	}
	if n.Sets < 0 || n.Reps < 0 {
		return ErrNegativeCount
	}
	if n.Sets > MaxSets {
		return ErrTooManySets
	}
	return nil
}

// Workout builds the row to insert for day d.
func (n NewWorkout) Workout(d Date) Workout {
	return Workout{
		Date:    d,
		Name:    n.Name,
		Sets:    n.Sets,
		Reps:    n.Reps,
		Comment: n.Comment,
	}
}

// ParseNewWorkout builds a NewWorkout from raw text fields, as typed into a form.
func ParseNewWorkout(name, sets, reps, comment string) (NewWorkout, error) {
	s, err := strconv.Atoi(strings.TrimSpace(sets))
	if err != nil {
		return NewWorkout{}, fmt.Errorf("sets: %q is not a whole number", sets)
	}
	r, err := strconv.Atoi(strings.TrimSpace(reps))
	if err != nil {
		return NewWorkout{}, fmt.Errorf("reps: %q is not a whole number", reps)
	}
	n := NewWorkout{Name: name, Sets: s, Reps: r, Comment: comment}
	if err := n.Validate(); err != nil {
		return NewWorkout{}, err
	}
	return n, nil
}
