package workout

import (
	"sync"

	"github.com/claude/setlog/internal/models"
	"github.com/google/uuid"
)

// EventKind names the state change a notification reports.
type EventKind string

const (
	EventDateSelected   EventKind = "date_selected"
	EventReloaded       EventKind = "reloaded"
	EventWorkoutAdded   EventKind = "workout_added"
	EventWorkoutDeleted EventKind = "workout_deleted"
	EventSetToggled     EventKind = "set_toggled"
)

// Event is delivered to subscribers after every state-affecting operation.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Date      models.Date `json:"date"`
	WorkoutID int64       `json:"workout_id,omitempty"`
	SetID     int64       `json:"set_id,omitempty"`
}

// Notifier fans events out to subscribers. Callbacks run synchronously on the
// publishing goroutine and must not block.
type Notifier struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]func(Event)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uuid.UUID]func(Event))}
}

// Subscribe registers fn and returns a func that removes it.
func (n *Notifier) Subscribe(fn func(Event)) (cancel func()) {
	id := uuid.New()
	n.mu.Lock()
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

// Len returns the number of live subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

func (n *Notifier) publish(ev Event) {
	n.mu.RLock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
