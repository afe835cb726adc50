package workout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/storage"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestStore(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:", discard)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T, date models.Date) (*Service, *storage.DB) {
	t.Helper()
	db := newTestStore(t)
	svc := NewService(db, date, discard)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return svc, db
}

// assertConverged checks that the cache entry for id equals the store rows.
func assertConverged(t *testing.T, svc *Service, db *storage.DB, id int64) {
	t.Helper()
	stored, err := db.ListSetsByWorkout(context.Background(), id)
	if err != nil {
		t.Fatalf("ListSetsByWorkout(%d): %v", id, err)
	}
	cached, ok := svc.Sets(id)
	if !ok {
		t.Fatalf("no cache entry for workout %d", id)
	}
	if diff := cmp.Diff(stored, cached); diff != "" {
		t.Errorf("cache diverged from store for workout %d (-store +cache):\n%s", id, diff)
	}
}

// TestAddWorkoutReloads verifies a new workout surfaces first with its full set list.
func TestAddWorkoutReloads(t *testing.T) {
	svc, db := newTestService(t, "2024-04-01")
	ctx := context.Background()

	first, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Squat", Sets: 3, Reps: 5})
	if err != nil {
		t.Fatalf("AddWorkout: %v", err)
	}
	second, err := svc.AddWorkout(ctx, models.NewWorkout{Name: " Press ", Sets: 2, Reps: 8, Comment: "light"})
	if err != nil {
		t.Fatalf("AddWorkout: %v", err)
	}

	ws := svc.Workouts()
	if len(ws) != 2 || ws[0].ID != second || ws[1].ID != first {
		t.Fatalf("Workouts() = %+v, want [%d %d]", ws, second, first)
	}
	if ws[0].Name != "Press" || ws[0].Date != "2024-04-01" {
		t.Errorf("newest workout = %+v", ws[0])
	}
	assertConverged(t, svc, db, first)
	assertConverged(t, svc, db, second)
}

// TestAddWorkoutValidation verifies invalid input never reaches the store.
func TestAddWorkoutValidation(t *testing.T) {
	svc, _ := newTestService(t, "2024-04-01")
	_, err := svc.AddWorkout(context.Background(), models.NewWorkout{Name: "  ", Sets: 3, Reps: 5})
	if !errors.Is(err, models.ErrEmptyName) {
		t.Fatalf("AddWorkout error = %v, want ErrEmptyName", err)
	}
	if n := len(svc.Workouts()); n != 0 {
		t.Errorf("%d workouts after rejected add", n)
	}
}

// TestZeroSetWorkout verifies the accepted zero-set case: no sets and zero progress.
func TestZeroSetWorkout(t *testing.T) {
	svc, _ := newTestService(t, "2024-04-01")
	id, err := svc.AddWorkout(context.Background(), models.NewWorkout{Name: "Stretch", Sets: 0, Reps: 0})
	if err != nil {
		t.Fatalf("AddWorkout: %v", err)
	}
	sets, ok := svc.Sets(id)
	if !ok || len(sets) != 0 {
		t.Errorf("Sets(%d) = %v, %v; want empty entry", id, sets, ok)
	}
	if p := svc.Progress(id); p != 0 {
		t.Errorf("Progress = %v, want 0", p)
	}
}

// TestDateScoping verifies a reload for one date never shows another date's workouts.
func TestDateScoping(t *testing.T) {
	svc, _ := newTestService(t, "2024-04-01")
	ctx := context.Background()

	a, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "A", Sets: 2, Reps: 5})
	if err := svc.SelectDate(ctx, "2024-04-02"); err != nil {
		t.Fatal(err)
	}
	b, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "B", Sets: 2, Reps: 5})

	ws := svc.Workouts()
	if len(ws) != 1 || ws[0].ID != b {
		t.Fatalf("2024-04-02 workouts = %+v, want only %d", ws, b)
	}
	if _, ok := svc.Sets(a); ok {
		t.Errorf("cache kept workout %d from the previous date", a)
	}

	if err := svc.SelectDate(ctx, "2024-04-01"); err != nil {
		t.Fatal(err)
	}
	ws = svc.Workouts()
	if len(ws) != 1 || ws[0].ID != a {
		t.Fatalf("2024-04-01 workouts = %+v, want only %d", ws, a)
	}
	if _, ok := svc.Sets(b); ok {
		t.Errorf("cache kept workout %d from the previous date", b)
	}
}

// TestToggleConvergence verifies cache and store agree after a run of toggles,
// including toggles that take the reload fallback.
func TestToggleConvergence(t *testing.T) {
	svc, db := newTestService(t, "2024-04-01")
	ctx := context.Background()

	id, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Deadlift", Sets: 4, Reps: 3})
	if err != nil {
		t.Fatal(err)
	}
	sets, _ := svc.Sets(id)

	steps := []struct {
		setID int64
		done  bool
	}{
		{sets[0].ID, true},
		{sets[2].ID, true},
		{sets[0].ID, false},
		{999999, true}, // unknown set: reload fallback
		{sets[3].ID, true},
		{sets[3].ID, true},
	}
	for i, st := range steps {
		if err := svc.ToggleSetDone(ctx, id, st.setID, st.done); err != nil {
			t.Fatalf("step %d: ToggleSetDone: %v", i, err)
		}
		assertConverged(t, svc, db, id)
	}

	got, _ := svc.Sets(id)
	want := []bool{false, false, true, true}
	for i, s := range got {
		if s.Done != want[i] {
			t.Errorf("set %d done = %v, want %v", i, s.Done, want[i])
		}
	}
}

// TestToggleLazyRepair verifies toggling a workout missing from the cache
// fetches its sets and ends in the same state a reload would produce.
func TestToggleLazyRepair(t *testing.T) {
	svc, db := newTestService(t, "2024-04-01")
	ctx := context.Background()

	// Written behind the service's back, so the cache has no entry.
	id, err := db.CreateWorkout(ctx, models.Workout{Date: "2024-04-01", Name: "Lunge", Sets: 3, Reps: 10})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.Sets(id); ok {
		t.Fatal("precondition: cache should not have the workout yet")
	}

	stored, _ := db.ListSetsByWorkout(ctx, id)
	if err := svc.ToggleSetDone(ctx, id, stored[1].ID, true); err != nil {
		t.Fatalf("ToggleSetDone: %v", err)
	}
	assertConverged(t, svc, db, id)
	repaired, _ := svc.Sets(id)

	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	reloaded, _ := svc.Sets(id)
	if diff := cmp.Diff(reloaded, repaired); diff != "" {
		t.Errorf("lazy repair differs from reload (-reload +repair):\n%s", diff)
	}
}

// TestToggleStoreRowGone verifies that when the store lost the row the cache
// still holds, the toggle heals by reloading instead of failing.
func TestToggleStoreRowGone(t *testing.T) {
	svc, db := newTestService(t, "2024-04-01")
	ctx := context.Background()

	id, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "Dip", Sets: 2, Reps: 10})
	sets, _ := svc.Sets(id)

	if err := db.DeleteWorkout(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := svc.ToggleSetDone(ctx, id, sets[0].ID, true); err != nil {
		t.Fatalf("ToggleSetDone: %v", err)
	}
	if _, ok := svc.Sets(id); ok {
		t.Error("stale entry survived the fallback reload")
	}
	if n := len(svc.Workouts()); n != 0 {
		t.Errorf("%d workouts listed after the row vanished", n)
	}
}

// TestProgressIdempotence verifies toggling on then off restores both metrics.
func TestProgressIdempotence(t *testing.T) {
	svc, _ := newTestService(t, "2024-04-01")
	ctx := context.Background()

	a, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "A", Sets: 3, Reps: 5})
	b, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "B", Sets: 4, Reps: 5})
	setsA, _ := svc.Sets(a)
	setsB, _ := svc.Sets(b)
	if err := svc.ToggleSetDone(ctx, b, setsB[0].ID, true); err != nil {
		t.Fatal(err)
	}

	beforeP, beforeT := svc.Progress(a), svc.TotalCompletion()
	if err := svc.ToggleSetDone(ctx, a, setsA[1].ID, true); err != nil {
		t.Fatal(err)
	}
	if svc.Progress(a) == beforeP {
		t.Error("progress did not move after toggling a set on")
	}
	if err := svc.ToggleSetDone(ctx, a, setsA[1].ID, false); err != nil {
		t.Fatal(err)
	}
	if p, tot := svc.Progress(a), svc.TotalCompletion(); p != beforeP || tot != beforeT {
		t.Errorf("after on/off: progress=%v total=%d, want %v %d", p, tot, beforeP, beforeT)
	}
}

// TestTotalCompletionBoundaries covers the empty day and the worked examples.
func TestTotalCompletionBoundaries(t *testing.T) {
	ctx := context.Background()

	t.Run("no sets", func(t *testing.T) {
		svc, _ := newTestService(t, "2024-04-01")
		if got := svc.TotalCompletion(); got != 0 {
			t.Errorf("empty day = %d, want 0", got)
		}
		if _, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Zero", Sets: 0, Reps: 5}); err != nil {
			t.Fatal(err)
		}
		if got := svc.TotalCompletion(); got != 0 {
			t.Errorf("zero-set day = %d, want 0", got)
		}
	})

	t.Run("one of four", func(t *testing.T) {
		svc, _ := newTestService(t, "2024-04-01")
		id, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "A", Sets: 4, Reps: 5})
		sets, _ := svc.Sets(id)
		if err := svc.ToggleSetDone(ctx, id, sets[0].ID, true); err != nil {
			t.Fatal(err)
		}
		if got := svc.TotalCompletion(); got != 25 {
			t.Errorf("total = %d, want 25", got)
		}
		if got := svc.Progress(id); got != 0.25 {
			t.Errorf("progress = %v, want 0.25", got)
		}
	})

	t.Run("one of two workouts done", func(t *testing.T) {
		svc, _ := newTestService(t, "2024-04-01")
		full, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "Full", Sets: 2, Reps: 5})
		if _, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Empty", Sets: 2, Reps: 5}); err != nil {
			t.Fatal(err)
		}
		sets, _ := svc.Sets(full)
		for _, s := range sets {
			if err := svc.ToggleSetDone(ctx, full, s.ID, true); err != nil {
				t.Fatal(err)
			}
		}
		if got := svc.TotalCompletion(); got != 50 {
			t.Errorf("total = %d, want 50", got)
		}
		if got := svc.Progress(full); got != 1 {
			t.Errorf("progress = %v, want 1", got)
		}
	})

	t.Run("rounding", func(t *testing.T) {
		svc, _ := newTestService(t, "2024-04-01")
		id, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "A", Sets: 3, Reps: 5})
		sets, _ := svc.Sets(id)
		svc.ToggleSetDone(ctx, id, sets[0].ID, true)
		svc.ToggleSetDone(ctx, id, sets[1].ID, true)
		if got := svc.TotalCompletion(); got != 67 {
			t.Errorf("total = %d, want 67", got)
		}
	})
}

// TestProgressUnknownWorkout verifies absent entries report zero progress.
func TestProgressUnknownWorkout(t *testing.T) {
	svc, _ := newTestService(t, "2024-04-01")
	if p := svc.Progress(12345); p != 0 {
		t.Errorf("Progress(unknown) = %v, want 0", p)
	}
}

// TestDeleteWorkout verifies the service removes the workout and its cache entry.
func TestDeleteWorkout(t *testing.T) {
	svc, db := newTestService(t, "2024-04-01")
	ctx := context.Background()

	id, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "Row", Sets: 3, Reps: 8})
	if err := svc.DeleteWorkout(ctx, id); err != nil {
		t.Fatalf("DeleteWorkout: %v", err)
	}
	if _, ok := svc.Sets(id); ok {
		t.Error("cache entry survived delete")
	}
	if _, err := db.GetWorkout(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetWorkout after delete = %v, want ErrNotFound", err)
	}
	if n, _ := db.CountSetsByWorkout(ctx, id); n != 0 {
		t.Errorf("%d orphan sets", n)
	}
}

// TestNotifications verifies each state-affecting operation emits an event.
func TestNotifications(t *testing.T) {
	svc, _ := newTestService(t, "2024-04-01")
	ctx := context.Background()

	var mu sync.Mutex
	var kinds []EventKind
	cancel := svc.Subscribe(func(ev Event) {
		mu.Lock()
		kinds = append(kinds, ev.Kind)
		mu.Unlock()
	})

	id, _ := svc.AddWorkout(ctx, models.NewWorkout{Name: "A", Sets: 1, Reps: 1})
	sets, _ := svc.Sets(id)
	svc.ToggleSetDone(ctx, id, sets[0].ID, true)
	svc.SelectDate(ctx, "2024-04-02")
	cancel()
	svc.Reload(ctx)

	want := []EventKind{
		EventWorkoutAdded, EventReloaded,
		EventSetToggled,
		EventDateSelected, EventReloaded,
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

// blockingStore holds ListWorkoutsByDate for one date until released.
type blockingStore struct {
	Store
	date    models.Date
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) ListWorkoutsByDate(ctx context.Context, date models.Date) ([]models.Workout, error) {
	if date == b.date {
		close(b.entered)
		<-b.release
	}
	return b.Store.ListWorkoutsByDate(ctx, date)
}

// TestSelectDateSupersedesInFlightReload verifies that a reload for an older
// selection cannot overwrite the state of a newer one.
func TestSelectDateSupersedesInFlightReload(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	if _, err := db.CreateWorkout(ctx, models.Workout{Date: "2024-04-01", Name: "Old", Sets: 1, Reps: 1}); err != nil {
		t.Fatal(err)
	}
	newID, err := db.CreateWorkout(ctx, models.Workout{Date: "2024-04-02", Name: "New", Sets: 2, Reps: 1})
	if err != nil {
		t.Fatal(err)
	}

	bs := &blockingStore{Store: db, date: "2024-04-01", entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(bs, "2024-03-31", discard)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = svc.SelectDate(ctx, "2024-04-01")
	}()
	<-bs.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[1] = svc.SelectDate(ctx, "2024-04-02")
	}()
	deadline := time.Now().Add(5 * time.Second)
	for svc.SelectedDate() != "2024-04-02" {
		if time.Now().After(deadline) {
			t.Fatal("second selection never landed")
		}
		time.Sleep(time.Millisecond)
	}
	close(bs.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("SelectDate #%d: %v", i, err)
		}
	}
	ws := svc.Workouts()
	if len(ws) != 1 || ws[0].ID != newID {
		t.Fatalf("Workouts() = %+v, want only workout %d", ws, newID)
	}
	if sets, ok := svc.Sets(newID); !ok || len(sets) != 2 {
		t.Errorf("Sets(%d) = %v, %v", newID, sets, ok)
	}
}

// failingStore fails CreateWorkout with a storage error.
type failingStore struct {
	Store
}

func (failingStore) CreateWorkout(context.Context, models.Workout) (int64, error) {
	return 0, &storage.StorageError{Op: "inserting set 1", Err: errors.New("disk I/O error")}
}

// TestAddWorkoutStorageError verifies store failures propagate as StorageError
// and leave the visible state untouched.
func TestAddWorkoutStorageError(t *testing.T) {
	db := newTestStore(t)
	svc := NewService(failingStore{Store: db}, "2024-04-01", discard)

	_, err := svc.AddWorkout(context.Background(), models.NewWorkout{Name: "A", Sets: 2, Reps: 2})
	var se *storage.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("AddWorkout error = %v, want StorageError", err)
	}
	if n := len(svc.Workouts()); n != 0 {
		t.Errorf("%d workouts visible after failed add", n)
	}
}

// reloadFailStore fails reads for one date or one workout's sets once armed.
type reloadFailStore struct {
	Store
	failDate   models.Date
	failSetsOf int64
}

func (f *reloadFailStore) ListWorkoutsByDate(ctx context.Context, date models.Date) ([]models.Workout, error) {
	if f.failDate != "" && date == f.failDate {
		return nil, &storage.StorageError{Op: "listing workouts", Err: errors.New("disk I/O error")}
	}
	return f.Store.ListWorkoutsByDate(ctx, date)
}

func (f *reloadFailStore) ListSetsByWorkout(ctx context.Context, workoutID int64) ([]models.WorkoutSet, error) {
	if f.failSetsOf != 0 && workoutID == f.failSetsOf {
		return nil, &storage.StorageError{Op: "listing sets", Err: errors.New("disk I/O error")}
	}
	return f.Store.ListSetsByWorkout(ctx, workoutID)
}

// TestReloadFailure verifies a failed reload propagates the storage error and
// never leaves another day's workouts visible under the selected date.
func TestReloadFailure(t *testing.T) {
	cases := []struct {
		name string
		// act arms the store and runs the failing operation.
		act       func(ctx context.Context, svc *Service, fs *reloadFailStore, other int64) error
		wantDate  models.Date
		wantCount int
		wantPct   int
		reloadErr bool
	}{
		{
			name: "select date, workouts fail",
			act: func(ctx context.Context, svc *Service, fs *reloadFailStore, _ int64) error {
				fs.failDate = "2024-04-02"
				return svc.SelectDate(ctx, "2024-04-02")
			},
			wantDate: "2024-04-02",
		},
		{
			name: "select date, sets fail",
			act: func(ctx context.Context, svc *Service, fs *reloadFailStore, other int64) error {
				fs.failSetsOf = other
				return svc.SelectDate(ctx, "2024-04-02")
			},
			wantDate: "2024-04-02",
		},
		{
			name: "reload of loaded date",
			act: func(ctx context.Context, svc *Service, fs *reloadFailStore, _ int64) error {
				fs.failDate = "2024-04-01"
				return svc.Reload(ctx)
			},
			wantDate:  "2024-04-01",
			wantCount: 1,
			wantPct:   25,
		},
		{
			name: "reload after add",
			act: func(ctx context.Context, svc *Service, fs *reloadFailStore, _ int64) error {
				fs.failDate = "2024-04-01"
				id, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Row", Sets: 2, Reps: 8})
				if id == 0 {
					return errors.New("AddWorkout returned no id")
				}
				return err
			},
			wantDate:  "2024-04-01",
			wantCount: 1,
			wantPct:   25,
			reloadErr: true,
		},
		{
			name: "reload after delete",
			act: func(ctx context.Context, svc *Service, fs *reloadFailStore, other int64) error {
				fs.failDate = "2024-04-01"
				return svc.DeleteWorkout(ctx, other)
			},
			wantDate:  "2024-04-01",
			wantCount: 1,
			wantPct:   25,
			reloadErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			fs := &reloadFailStore{Store: newTestStore(t)}
			svc := NewService(fs, "2024-04-02", discard)
			other, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Bike", Sets: 1, Reps: 1})
			if err != nil {
				t.Fatalf("AddWorkout: %v", err)
			}
			if err := svc.SelectDate(ctx, "2024-04-01"); err != nil {
				t.Fatalf("SelectDate: %v", err)
			}
			id, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Squat", Sets: 4, Reps: 5})
			if err != nil {
				t.Fatalf("AddWorkout: %v", err)
			}
			sets, _ := svc.Sets(id)
			if err := svc.ToggleSetDone(ctx, id, sets[0].ID, true); err != nil {
				t.Fatalf("ToggleSetDone: %v", err)
			}

			err = tc.act(ctx, svc, fs, other)
			var se *storage.StorageError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want StorageError", err)
			}
			if got := errors.Is(err, ErrReloadFailed); got != tc.reloadErr {
				t.Errorf("errors.Is(ErrReloadFailed) = %v, want %v", got, tc.reloadErr)
			}

			if d := svc.SelectedDate(); d != tc.wantDate {
				t.Errorf("SelectedDate = %q, want %q", d, tc.wantDate)
			}
			sum := svc.Summary()
			if sum.Date != tc.wantDate {
				t.Errorf("Summary.Date = %q, want %q", sum.Date, tc.wantDate)
			}
			for _, w := range sum.Workouts {
				if w.Date != sum.Date {
					t.Errorf("summary for %s lists workout %d of %s", sum.Date, w.ID, w.Date)
				}
			}
			if n := len(svc.Workouts()); n != tc.wantCount {
				t.Errorf("%d workouts visible, want %d", n, tc.wantCount)
			}
			if pct := svc.TotalCompletion(); pct != tc.wantPct {
				t.Errorf("TotalCompletion = %d, want %d", pct, tc.wantPct)
			}
		})
	}
}

// TestFailedSelectionDoesNotClobberNewer verifies that clearing after a failed
// reload only happens while its selection is still current.
func TestFailedSelectionDoesNotClobberNewer(t *testing.T) {
	ctx := context.Background()
	fs := &reloadFailStore{Store: newTestStore(t)}
	svc := NewService(fs, "2024-04-01", discard)
	if _, err := svc.AddWorkout(ctx, models.NewWorkout{Name: "Squat", Sets: 2, Reps: 5}); err != nil {
		t.Fatalf("AddWorkout: %v", err)
	}

	fs.failDate = "2024-04-02"
	if err := svc.SelectDate(ctx, "2024-04-02"); err == nil {
		t.Fatal("SelectDate succeeded, want error")
	}
	fs.failDate = ""
	if err := svc.SelectDate(ctx, "2024-04-01"); err != nil {
		t.Fatalf("SelectDate: %v", err)
	}
	if n := len(svc.Workouts()); n != 1 {
		t.Errorf("%d workouts after reselecting 2024-04-01, want 1", n)
	}
}
