package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-share/app/logger"
	"todo-share/app/models"
	"todo-share/app/slot"
)

var fixedNow = time.Date(2024, time.June, 12, 9, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("task-%d", n)
	}
}

func testOptions() []Option {
	return []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
		WithLogger(logger.Discard()),
	}
}

// setupTestStore returns a loaded store on a fresh memory slot.
func setupTestStore(t *testing.T) (*TaskStore, *slot.Memory) {
	t.Helper()
	mem := slot.NewMemory()
	s := NewTaskStore(mem, testOptions()...)
	require.NoError(t, s.Load(context.Background()))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mem
}

func TestLoadEmptySlot(t *testing.T) {
	mem := slot.NewMemory()
	s := NewTaskStore(mem, testOptions()...)
	defer s.Close(context.Background())

	assert.False(t, s.Ready())
	require.NoError(t, s.Load(context.Background()))
	assert.True(t, s.Ready())
	assert.Empty(t, s.Tasks())
	assert.Equal(t, 0, mem.Writes(), "loading must not write")
}

func TestLoadDiscardsCorruptState(t *testing.T) {
	ctx := context.Background()
	for name, blob := range map[string]string{
		"not json":    "{{{",
		"object":      `{"id":"1"}`,
		"wrong types": `[{"id":1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			mem := slot.NewMemory()
			require.NoError(t, mem.Set(ctx, DefaultStorageKey, []byte(blob)))

			s := NewTaskStore(mem, testOptions()...)
			defer s.Close(ctx)

			require.NoError(t, s.Load(ctx))
			assert.True(t, s.Ready())
			assert.Empty(t, s.Tasks())
		})
	}
}

type failingSlot struct{ *slot.Memory }

func (f *failingSlot) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestLoadReadErrorLeavesStoreNotReady(t *testing.T) {
	ctx := context.Background()
	fs := &failingSlot{Memory: slot.NewMemory()}
	s := NewTaskStore(fs, testOptions()...)
	defer s.Close(ctx)

	err := s.Load(ctx)
	require.Error(t, err)
	assert.False(t, s.Ready())

	s.AddTask("kept in memory", "", time.Time{})
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, 0, fs.Writes(), "a store that is not ready must not overwrite the slot")
	assert.Len(t, s.Tasks(), 1)
}

func TestAddTask(t *testing.T) {
	s, _ := setupTestStore(t)

	first := s.AddTask("write report", models.PriorityHigh, time.Date(2024, time.June, 14, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, models.Task{
		ID:        "task-1",
		Text:      "write report",
		CreatedAt: fixedNow.UnixMilli(),
		Date:      "2024-06-14",
		Priority:  models.PriorityHigh,
	}, first)

	second := s.AddTask("call mum", "", time.Time{})
	assert.Equal(t, models.PriorityMedium, second.Priority)
	assert.Equal(t, "2024-06-12", second.Date)
	assert.False(t, second.Completed)

	tasks := s.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID, "newest task first")
	assert.Equal(t, first.ID, tasks[1].ID)
}

func TestAddTaskRegeneratesCollidingIDs(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	i := 0
	mem := slot.NewMemory()
	s := NewTaskStore(mem, WithLogger(logger.Discard()), WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))
	defer s.Close(context.Background())
	require.NoError(t, s.Load(context.Background()))

	a := s.AddTask("a", "", time.Time{})
	b := s.AddTask("b", "", time.Time{})
	assert.Equal(t, "dup", a.ID)
	assert.Equal(t, "fresh", b.ID)
}

func TestAddTaskRejectsBlankAtBoundary(t *testing.T) {
	s, _ := setupTestStore(t)

	for _, text := range []string{"", "   "} {
		if clean, err := models.NormalizeText(text); err == nil {
			s.AddTask(clean, "", time.Time{})
		}
	}
	assert.Empty(t, s.Tasks())
}

func TestToggleTask(t *testing.T) {
	s, _ := setupTestStore(t)
	task := s.AddTask("toggle me", "", time.Time{})

	toggled, ok := s.ToggleTask(task.ID)
	require.True(t, ok)
	assert.True(t, toggled.Completed)

	toggled, ok = s.ToggleTask(task.ID)
	require.True(t, ok)
	assert.False(t, toggled.Completed)

	before := s.Tasks()
	_, ok = s.ToggleTask("missing")
	assert.False(t, ok)
	assert.Equal(t, before, s.Tasks())
}

func TestDeleteTask(t *testing.T) {
	s, _ := setupTestStore(t)
	a := s.AddTask("a", "", time.Time{})
	b := s.AddTask("b", "", time.Time{})
	c := s.AddTask("c", "", time.Time{})

	assert.True(t, s.DeleteTask(b.ID))
	assert.Equal(t, []models.Task{c, a}, s.Tasks())

	assert.False(t, s.DeleteTask("missing"))
	assert.False(t, s.DeleteTask(b.ID))
	assert.Equal(t, []models.Task{c, a}, s.Tasks())
}

func TestUpdateTask(t *testing.T) {
	s, _ := setupTestStore(t)
	task := s.AddTask("draft", models.PriorityLow, time.Time{})

	text := "final"
	category := "work"
	date := time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)
	updated, ok := s.UpdateTask(task.ID, models.TaskUpdate{Text: &text, Category: &category, Date: &date})
	require.True(t, ok)

	assert.Equal(t, task.ID, updated.ID)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "final", updated.Text)
	assert.Equal(t, "work", updated.Category)
	assert.Equal(t, "2024-12-31", updated.Date)
	assert.Equal(t, models.PriorityLow, updated.Priority, "unspecified fields stay")
	assert.False(t, updated.Completed)

	got, ok := s.GetTask(task.ID)
	require.True(t, ok)
	assert.Equal(t, updated, got)

	_, ok = s.UpdateTask("missing", models.TaskUpdate{Text: &text})
	assert.False(t, ok)
}

func TestTasksReturnsCopy(t *testing.T) {
	s, _ := setupTestStore(t)
	s.AddTask("original", "", time.Time{})

	snapshot := s.Tasks()
	snapshot[0].Text = "mutated"
	assert.Equal(t, "original", s.Tasks()[0].Text)
}

func TestFilterTasksByView(t *testing.T) {
	s, _ := setupTestStore(t)
	s.AddTask("today", "", time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC))
	s.AddTask("monday", "", time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC))
	s.AddTask("month end", "", time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC))
	s.AddTask("new year", "", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	s.AddTask("last year", "", time.Date(2023, time.June, 12, 0, 0, 0, 0, time.UTC))

	texts := func(tasks []models.Task) []string {
		out := []string{}
		for _, t := range tasks {
			out = append(out, t.Text)
		}
		return out
	}

	ref := fixedNow
	assert.Equal(t, []string{"today"}, texts(s.FilterTasksByView(models.ViewDay, ref)))
	assert.Equal(t, []string{"monday", "today"}, texts(s.FilterTasksByView(models.ViewWeek, ref)))
	assert.Equal(t, []string{"month end", "monday", "today"}, texts(s.FilterTasksByView(models.ViewMonth, ref)))
	assert.Equal(t, []string{"new year", "month end", "monday", "today"}, texts(s.FilterTasksByView(models.ViewYear, ref)))
	assert.Len(t, s.FilterTasksByView("all", ref), 5)
	assert.Len(t, s.Tasks(), 5, "filtering must not mutate the store")
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mem := setupTestStore(t)

	s.AddTask("first", models.PriorityLow, time.Time{})
	second := s.AddTask("second", models.PriorityHigh, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	s.ToggleTask(second.ID)
	require.NoError(t, s.Flush(ctx))

	before := s.Tasks()

	reloaded := NewTaskStore(mem, testOptions()...)
	defer reloaded.Close(ctx)
	require.NoError(t, reloaded.Load(ctx))

	assert.Equal(t, before, reloaded.Tasks())
}

func TestPersistenceReflectsLatestState(t *testing.T) {
	ctx := context.Background()
	s, mem := setupTestStore(t)

	for i := 0; i < 50; i++ {
		s.AddTask(fmt.Sprintf("task %d", i), "", time.Time{})
	}
	victim := s.Tasks()[10]
	s.DeleteTask(victim.ID)
	require.NoError(t, s.Flush(ctx))

	assert.LessOrEqual(t, mem.Writes(), 51, "writes may coalesce")

	reloaded := NewTaskStore(mem, testOptions()...)
	defer reloaded.Close(ctx)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.Tasks(), reloaded.Tasks())
	assert.Len(t, reloaded.Tasks(), 49)
}

func TestPersistenceFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	s, mem := setupTestStore(t)

	mem.FailWith(errors.New("quota exceeded"))
	task := s.AddTask("survives", "", time.Time{})
	require.NoError(t, s.Flush(ctx))

	got, ok := s.GetTask(task.ID)
	require.True(t, ok)
	assert.Equal(t, task, got)
	_, err := mem.Get(ctx, DefaultStorageKey)
	assert.ErrorIs(t, err, slot.ErrEmpty)

	mem.FailWith(nil)
	s.ToggleTask(task.ID)
	require.NoError(t, s.Flush(ctx))
	_, err = mem.Get(ctx, DefaultStorageKey)
	assert.NoError(t, err)
}

func TestTasksAddedBeforeLoadAreKept(t *testing.T) {
	ctx := context.Background()
	mem := slot.NewMemory()

	seed := NewTaskStore(mem, testOptions()...)
	require.NoError(t, seed.Load(ctx))
	old := seed.AddTask("persisted", "", time.Time{})
	require.NoError(t, seed.Close(ctx))

	s := NewTaskStore(mem, WithLogger(logger.Discard()))
	defer s.Close(ctx)
	early := s.AddTask("early", "", time.Time{})
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Flush(ctx))

	assert.Equal(t, []string{early.ID, old.ID}, []string{s.Tasks()[0].ID, s.Tasks()[1].ID})

	reloaded := NewTaskStore(mem, WithLogger(logger.Discard()))
	defer reloaded.Close(ctx)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.Tasks(), reloaded.Tasks())
}

func TestCustomKey(t *testing.T) {
	ctx := context.Background()
	mem := slot.NewMemory()
	s := NewTaskStore(mem, append(testOptions(), WithKey("other"))...)
	require.NoError(t, s.Load(ctx))
	s.AddTask("x", "", time.Time{})
	require.NoError(t, s.Close(ctx))

	_, err := mem.Get(ctx, "other")
	assert.NoError(t, err)
	_, err = mem.Get(ctx, DefaultStorageKey)
	assert.ErrorIs(t, err, slot.ErrEmpty)
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	s, mem := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task := s.AddTask(fmt.Sprintf("t%d", i), "", time.Time{})
			s.ToggleTask(task.ID)
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Flush(ctx))

	tasks := s.Tasks()
	require.Len(t, tasks, 20)
	seen := map[string]bool{}
	for _, task := range tasks {
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
		assert.True(t, task.Completed)
	}

	reloaded := NewTaskStore(mem, testOptions()...)
	defer reloaded.Close(ctx)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, tasks, reloaded.Tasks())
}

func TestFlushAfterClose(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)
	require.NoError(t, s.Close(ctx))
	assert.NoError(t, s.Flush(ctx))
	assert.NoError(t, s.Close(ctx))
}
