package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"todo-share/app/models"
	"todo-share/app/services"

	"github.com/gorilla/mux"
)

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Store *services.TaskStore
	Now   func() time.Time
}

// NewTaskController creates a new TaskController.
func NewTaskController(store *services.TaskStore) *TaskController {
	return &TaskController{Store: store, Now: time.Now}
}

type taskListResponse struct {
	View      models.View   `json:"view"`
	Date      string        `json:"date"`
	Active    []models.Task `json:"active"`
	Completed []models.Task `json:"completed"`
}

type createTaskRequest struct {
	Text     string          `json:"text"`
	Priority models.Priority `json:"priority"`
	Date     string          `json:"date"`
}

type updateTaskRequest struct {
	Text      *string          `json:"text"`
	Completed *bool            `json:"completed"`
	Date      *string          `json:"date"`
	Priority  *models.Priority `json:"priority"`
	Category  *string          `json:"category"`
}

// GetTasks handles GET /tasks?view=&date=.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	ref, err := referenceDate(r, c.Now())
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	view := models.View(r.URL.Query().Get("view"))

	active, completed := models.Partition(c.Store.FilterTasksByView(view, ref))
	writeJSON(w, http.StatusOK, taskListResponse{
		View:      view,
		Date:      models.FormatDate(ref),
		Active:    active,
		Completed: completed,
	})
}

// CreateTask handles POST /tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	text, err := models.NormalizeText(req.Text)
	if err != nil {
		http.Error(w, "Task text is required", http.StatusBadRequest)
		return
	}
	if req.Priority != "" && !req.Priority.Valid() {
		http.Error(w, "Priority must be low, medium or high", http.StatusBadRequest)
		return
	}
	var date time.Time
	if req.Date != "" {
		if date, err = models.ParseDate(req.Date, c.Now().Location()); err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	writeJSON(w, http.StatusCreated, c.Store.AddTask(text, req.Priority, date))
}

// GetTaskByID handles GET /tasks/{taskID}.
func (c *TaskController) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	task, ok := c.Store.GetTask(mux.Vars(r)["taskID"])
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PATCH and PUT /tasks/{taskID}. Only the fields present
// in the body are changed.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	upd, err := req.toUpdate(c.Now().Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task, ok := c.Store.UpdateTask(mux.Vars(r)["taskID"], upd)
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ToggleTask handles POST /tasks/{taskID}/toggle.
func (c *TaskController) ToggleTask(w http.ResponseWriter, r *http.Request) {
	task, ok := c.Store.ToggleTask(mux.Vars(r)["taskID"])
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{taskID}. Deleting an unknown task succeeds.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	c.Store.DeleteTask(mux.Vars(r)["taskID"])
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz.
func (c *TaskController) Health(w http.ResponseWriter, r *http.Request) {
	ready := c.Store.Ready()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]bool{"ready": ready})
}

func (req updateTaskRequest) toUpdate(loc *time.Location) (models.TaskUpdate, error) {
	upd := models.TaskUpdate{
		Completed: req.Completed,
		Category:  req.Category,
	}
	if req.Text != nil {
		text, err := models.NormalizeText(*req.Text)
		if err != nil {
			return upd, errors.New("Task text is required")
		}
		upd.Text = &text
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return upd, errors.New("Priority must be low, medium or high")
		}
		upd.Priority = req.Priority
	}
	if req.Date != nil {
		date, err := models.ParseDate(*req.Date, loc)
		if err != nil {
			return upd, errors.New("Invalid date, expected YYYY-MM-DD")
		}
		upd.Date = &date
	}
	return upd, nil
}

// referenceDate reads ?date=YYYY-MM-DD, defaulting to now.
func referenceDate(r *http.Request, now time.Time) (time.Time, error) {
	v := r.URL.Query().Get("date")
	if v == "" {
		return now, nil
	}
	return models.ParseDate(v, now.Location())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
