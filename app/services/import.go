package services

import (
	"time"

	"todo-share/app/models"
)

// ImportTasks re-creates shared tasks in the store. Only text and priority
// carry over: each task gets a fresh id, today's date and completed=false.
// Tasks with blank text are skipped. The created tasks are returned in the
// order they were added.
func (s *TaskStore) ImportTasks(shared []models.Task) []models.Task {
	created := make([]models.Task, 0, len(shared))
	for _, t := range shared {
		text, err := models.NormalizeText(t.Text)
		if err != nil {
			continue
		}
		priority := t.Priority
		if !priority.Valid() {
			priority = models.PriorityMedium
		}
		created = append(created, s.AddTask(text, priority, time.Time{}))
	}
	return created
}
