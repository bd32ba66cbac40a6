package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"todo-share/app/dateview"
	"todo-share/app/metrics"
	"todo-share/app/models"
	"todo-share/app/slot"
)

// DefaultStorageKey is the slot key holding the serialized task list.
const DefaultStorageKey = "perfect-todo-v1"

// TaskStore owns the task list and mirrors it into a durable slot.
//
// Every mutation is applied to memory under the lock and then handed to a
// background writer that serializes the whole list to the slot. Callers never
// wait for the write; Flush and Close exist for shutdown and tests.
type TaskStore struct {
	mu     sync.Mutex
	tasks  []models.Task
	ready  bool
	closed bool

	slot         slot.Slot
	key          string
	now          func() time.Time
	newID        func() string
	logger       *slog.Logger
	writeTimeout time.Duration
	writer       *writer
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithKey sets the slot key.
func WithKey(key string) Option {
	return func(s *TaskStore) { s.key = key }
}

// WithClock sets the time source used for createdAt and default dates.
func WithClock(now func() time.Time) Option {
	return func(s *TaskStore) { s.now = now }
}

// WithIDGenerator sets the task id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *TaskStore) { s.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *TaskStore) { s.logger = logger }
}

// WithWriteTimeout bounds each slot write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *TaskStore) { s.writeTimeout = d }
}

// NewTaskStore creates an empty, not yet ready store on top of sl.
// Call Load before serving it.
func NewTaskStore(sl slot.Slot, opts ...Option) *TaskStore {
	s := &TaskStore{
		tasks:        []models.Task{},
		slot:         sl,
		key:          DefaultStorageKey,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
		logger:       slog.Default(),
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = newWriter(s.persist)
	return s
}

// Load reads the persisted list and marks the store ready. An empty slot
// gives an empty list. Content that does not parse is logged and discarded.
// A slot read error is returned and leaves the store not ready, so nothing
// overwrites the slot. Tasks added before Load stay ahead of the loaded ones.
// Calling Load on a ready store does nothing.
func (s *TaskStore) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	var loaded []models.Task
	data, err := s.slot.Get(ctx, s.key)
	switch {
	case errors.Is(err, slot.ErrEmpty):
		metrics.SlotLoads.WithLabelValues("empty").Inc()
	case err != nil:
		metrics.SlotLoads.WithLabelValues("error").Inc()
		return fmt.Errorf("read tasks from slot: %w", err)
	default:
		if err := json.Unmarshal(data, &loaded); err != nil {
			metrics.SlotLoads.WithLabelValues("discarded").Inc()
			s.logger.Error("Failed to parse tasks", "key", s.key, "error", err)
			loaded = nil
		} else {
			metrics.SlotLoads.WithLabelValues("ok").Inc()
		}
	}

	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	early := len(s.tasks) > 0
	s.tasks = append(s.tasks, loaded...)
	s.ready = true
	count := len(s.tasks)
	s.mu.Unlock()

	if early {
		s.writer.schedule()
	}
	s.logger.Info("Tasks loaded", "key", s.key, "count", count)
	return nil
}

// Ready reports whether Load has completed.
func (s *TaskStore) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Tasks returns a copy of the full list, newest first.
func (s *TaskStore) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Task{}, s.tasks...)
}

// GetTask returns the task with id, if present.
func (s *TaskStore) GetTask(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return models.Task{}, false
}

// AddTask inserts a new task at the head of the list. A zero priority means
// medium and a zero date means today. text is expected to be non-empty and
// trimmed already (see models.NormalizeText).
func (s *TaskStore) AddTask(text string, priority models.Priority, date time.Time) models.Task {
	now := s.now()
	if priority == "" {
		priority = models.PriorityMedium
	}
	if date.IsZero() {
		date = now
	}

	task := models.Task{
		Text:      text,
		Completed: false,
		CreatedAt: now.UnixMilli(),
		Date:      models.FormatDate(date),
		Priority:  priority,
	}

	s.mu.Lock()
	task.ID = s.newID()
	for s.indexOf(task.ID) >= 0 {
		task.ID = s.newID()
	}
	s.tasks = append([]models.Task{task}, s.tasks...)
	s.mu.Unlock()

	s.changed("add")
	return task
}

// ToggleTask flips completed on the task with id. Unknown ids are ignored.
func (s *TaskStore) ToggleTask(id string) (models.Task, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Task{}, false
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	task := s.tasks[i]
	s.mu.Unlock()

	s.changed("toggle")
	return task, true
}

// DeleteTask removes the task with id. Unknown ids are ignored.
func (s *TaskStore) DeleteTask(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.mu.Unlock()

	s.changed("delete")
	return true
}

// UpdateTask merges the non-nil fields of upd into the task with id.
// The id and createdAt never change. Unknown ids are ignored.
func (s *TaskStore) UpdateTask(id string, upd models.TaskUpdate) (models.Task, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Task{}, false
	}
	t := &s.tasks[i]
	if upd.Text != nil {
		t.Text = *upd.Text
	}
	if upd.Completed != nil {
		t.Completed = *upd.Completed
	}
	if upd.Date != nil {
		t.Date = models.FormatDate(*upd.Date)
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.Category != nil {
		t.Category = *upd.Category
	}
	task := *t
	s.mu.Unlock()

	s.changed("update")
	return task, true
}

// FilterTasksByView returns the tasks visible in view around ref.
func (s *TaskStore) FilterTasksByView(view models.View, ref time.Time) []models.Task {
	return dateview.Filter(s.Tasks(), view, ref)
}

// Flush waits until the slot holds every mutation accepted before the call.
func (s *TaskStore) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// Close flushes pending changes and stops persisting. The in-memory list
// stays usable. It does not close the slot.
func (s *TaskStore) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.writer.Close(ctx)
}

func (s *TaskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TaskStore) changed(op string) {
	metrics.StoreMutations.WithLabelValues(op).Inc()

	s.mu.Lock()
	persist := s.ready && !s.closed
	s.mu.Unlock()
	if persist {
		s.writer.schedule()
	}
}

// persist serializes the current list into the slot. Failures are logged;
// memory stays authoritative and nothing is retried.
func (s *TaskStore) persist() {
	s.mu.Lock()
	data, err := json.Marshal(s.tasks)
	s.mu.Unlock()
	if err != nil {
		metrics.SlotWrites.WithLabelValues("error").Inc()
		s.logger.Error("Failed to serialize tasks", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.slot.Set(ctx, s.key, data); err != nil {
		metrics.SlotWrites.WithLabelValues("error").Inc()
		s.logger.Error("Failed to persist tasks", "key", s.key, "error", err)
		return
	}
	metrics.SlotWrites.WithLabelValues("ok").Inc()
	s.logger.Debug("Tasks persisted", "key", s.key, "bytes", len(data))
}
