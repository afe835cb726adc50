package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
)

// ErrReloadFailed marks an error from the reload that follows a committed
// mutation. The mutation itself is durable; only the cache refresh failed.
var ErrReloadFailed = errors.New("reload after write failed")

// Service owns the session cache for the selected date. It is the only
// writer of the cache: every mutation goes to the store first and the cache
// is then brought in line with what the store holds.
type Service struct {
	store  Store
	log    *slog.Logger
	events *Notifier

	// opMu serializes every operation that touches the store, so a reload
	// never interleaves with a point mutation.
	opMu sync.Mutex

	// mu guards the fields below. Readers only take mu and never wait on I/O.
	mu       sync.RWMutex
	date     models.Date
	gen      uint64
	loaded   models.Date // date workouts and cache were last filled for
	workouts []models.Workout
	cache    map[int64][]models.WorkoutSet
}

// NewService creates a service scoped to date. Nothing is loaded until
// SelectDate or Reload is called.
func NewService(store Store, date models.Date, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		log:      log,
		events:   NewNotifier(),
		date:     date,
		workouts: []models.Workout{},
		cache:    make(map[int64][]models.WorkoutSet),
	}
}

// Subscribe registers fn for change notifications.
func (s *Service) Subscribe(fn func(Event)) (cancel func()) {
	return s.events.Subscribe(fn)
}

// SelectDate moves the cursor to date and reloads. A later SelectDate
// supersedes this one: if the date changes while the reload is in flight,
// its results are discarded and the newer selection's reload wins.
func (s *Service) SelectDate(ctx context.Context, date models.Date) error {
	s.mu.Lock()
	s.date = date
	s.gen++
	s.mu.Unlock()
	s.events.publish(Event{Kind: EventDateSelected, Date: date})

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.reloadLocked(ctx)
}

// Reload re-derives the workout list and the whole cache from the store for
// the selected date.
func (s *Service) Reload(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *Service) reloadLocked(ctx context.Context) error {
	s.mu.RLock()
	date, gen := s.date, s.gen
	s.mu.RUnlock()

	workouts, err := s.store.ListWorkoutsByDate(ctx, date)
	if err != nil {
		s.clearIfMoved(date, gen)
		return fmt.Errorf("reloading %s: %w", date, err)
	}
	cache := make(map[int64][]models.WorkoutSet, len(workouts))
	for _, w := range workouts {
		sets, err := s.store.ListSetsByWorkout(ctx, w.ID)
		if err != nil {
			s.clearIfMoved(date, gen)
			return fmt.Errorf("reloading sets of workout %d: %w", w.ID, err)
		}
		cache[w.ID] = sets
	}

	s.mu.Lock()
	if s.gen != gen || s.date != date {
		current := s.date
		s.mu.Unlock()
		s.log.Debug("discarding stale reload", "loaded", date, "selected", current)
		return nil
	}
	s.workouts = workouts
	s.cache = cache
	s.loaded = date
	s.mu.Unlock()

	s.log.Debug("reloaded", "date", date, "workouts", len(workouts))
	s.events.publish(Event{Kind: EventReloaded, Date: date})
	return nil
}

// clearIfMoved runs after a failed reload of date. If the state still
// belongs to an earlier date it is emptied, so nothing from that day is shown
// under the new one. A failed reload of the date already loaded keeps the
// existing state, and a newer selection is left alone.
func (s *Service) clearIfMoved(date models.Date, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.date != date || s.loaded == date {
		return
	}
	s.workouts = []models.Workout{}
	s.cache = make(map[int64][]models.WorkoutSet)
	s.loaded = date
	s.log.Warn("reload failed, cleared state of previous date", "date", date)
}

// AddWorkout validates n, creates it with its sets on the selected date and
// reloads so the new workout appears first with its full set list. If only
// the reload fails, the id is returned with an error wrapping ErrReloadFailed.
func (s *Service) AddWorkout(ctx context.Context, n models.NewWorkout) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	date := s.SelectedDate()
	id, err := s.store.CreateWorkout(ctx, n.Workout(date))
	if err != nil {
		return 0, fmt.Errorf("adding workout: %w", err)
	}
	s.log.Info("workout created", "id", id, "date", date, "sets", n.Sets, "reps", n.Reps)
	s.events.publish(Event{Kind: EventWorkoutAdded, Date: date, WorkoutID: id})

	if err := s.reloadLocked(ctx); err != nil {
		return id, fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return id, nil
}

// DeleteWorkout removes the workout and its sets, then reloads. A failed
// reload is reported wrapping ErrReloadFailed.
func (s *Service) DeleteWorkout(ctx context.Context, id int64) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.store.DeleteWorkout(ctx, id); err != nil {
		return fmt.Errorf("deleting workout %d: %w", id, err)
	}
	s.log.Info("workout deleted", "id", id)
	s.events.publish(Event{Kind: EventWorkoutDeleted, Date: s.SelectedDate(), WorkoutID: id})
	if err := s.reloadLocked(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}

// ToggleSetDone sets the done flag of one set.
//
// A missing cache entry is fetched from the store and installed first. When
// the set is present the store row is updated and the cached copy patched in
// place. When the set cannot be found in the cache, or the store no longer
// has the row, the cache has diverged and a full reload is done instead;
// the caller never sees that case as an error.
func (s *Service) ToggleSetDone(ctx context.Context, workoutID, setID int64, done bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	sets, ok := s.cache[workoutID]
	s.mu.RUnlock()

	if !ok {
		fetched, err := s.store.ListSetsByWorkout(ctx, workoutID)
		if err != nil {
			return fmt.Errorf("loading sets of workout %d: %w", workoutID, err)
		}
		s.mu.Lock()
		s.cache[workoutID] = fetched
		s.mu.Unlock()
		s.log.Debug("repaired missing cache entry", "workout_id", workoutID, "sets", len(fetched))
		sets = fetched
	}

	idx := -1
	for i := range sets {
		if sets[i].ID == setID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.log.Warn("set missing from cache, reloading", "workout_id", workoutID, "set_id", setID)
		return s.reloadLocked(ctx)
	}

	updated := sets[idx]
	updated.Done = done
	res, err := s.store.UpdateSet(ctx, updated)
	if err != nil {
		return fmt.Errorf("updating set %d: %w", setID, err)
	}
	if res == storage.NotFound {
		s.log.Warn("set missing from store, reloading", "workout_id", workoutID, "set_id", setID)
		return s.reloadLocked(ctx)
	}

	s.mu.Lock()
	s.cache[workoutID][idx].Done = done
	date := s.date
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventSetToggled, Date: date, WorkoutID: workoutID, SetID: setID})
	return nil
}

// SelectedDate returns the current date cursor.
func (s *Service) SelectedDate() models.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.date
}

// Workouts returns a copy of the selected date's workouts, newest first.
func (s *Service) Workouts() []models.Workout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Workout, len(s.workouts))
	copy(out, s.workouts)
	return out
}

// Sets returns a copy of the cached set list for workoutID and whether an
// entry exists.
func (s *Service) Sets(workoutID int64) ([]models.WorkoutSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sets, ok := s.cache[workoutID]
	return models.CloneSets(sets), ok
}

// Progress returns the done ratio of the cached sets of workoutID, in [0, 1].
func (s *Service) Progress(workoutID int64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ratio(s.cache[workoutID])
}

// TotalCompletion returns the rounded percentage of done sets across every
// workout of the selected date.
func (s *Service) TotalCompletion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalLocked()
}

func (s *Service) totalLocked() int {
	var done, total int
	for _, w := range s.workouts {
		d, t := countDone(s.cache[w.ID])
		done += d
		total += t
	}
	return percent(done, total)
}

// WorkoutSummary is a workout with its cached sets and progress.
type WorkoutSummary struct {
	models.Workout
	SetList  []models.WorkoutSet `json:"set_list"`
	Progress float64             `json:"progress"`
}

// Summary is a consistent snapshot of the selected date.
type Summary struct {
	Date              models.Date      `json:"date"`
	Workouts          []WorkoutSummary `json:"workouts"`
	CompletionPercent int              `json:"completion_percent"`
}

// Summary returns a snapshot taken under a single read lock.
func (s *Service) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Summary{
		Date:              s.date,
		Workouts:          make([]WorkoutSummary, 0, len(s.workouts)),
		CompletionPercent: s.totalLocked(),
	}
	for _, w := range s.workouts {
		sets := s.cache[w.ID]
		if sets == nil {
			sets = []models.WorkoutSet{}
		}
		out.Workouts = append(out.Workouts, WorkoutSummary{
			Workout:  w,
			SetList:  models.CloneSets(sets),
			Progress: ratio(sets),
		})
	}
	return out
}
