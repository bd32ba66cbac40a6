package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"todo-share/app/models"
	"todo-share/app/services"
	"todo-share/app/sharing"
)

// ShareController handles share links: creating them, previewing and importing.
type ShareController struct {
	Store     *services.TaskStore
	Codec     *sharing.Codec
	PublicURL string
	Now       func() time.Time
}

// NewShareController creates a new ShareController. publicURL is the page
// the share links point at.
func NewShareController(store *services.TaskStore, codec *sharing.Codec, publicURL string) *ShareController {
	return &ShareController{Store: store, Codec: codec, PublicURL: publicURL, Now: time.Now}
}

type shareResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

type importRequest struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type importResponse struct {
	Imported []models.Task `json:"imported"`
	URL      string        `json:"url"`
}

// Share handles GET /share?date=. It shares the day view of the given date.
func (c *ShareController) Share(w http.ResponseWriter, r *http.Request) {
	ref, err := referenceDate(r, c.Now())
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	tasks := c.Store.FilterTasksByView(models.ViewDay, ref)
	if len(tasks) == 0 {
		http.Error(w, "No tasks to share for this day", http.StatusNotFound)
		return
	}

	link, err := c.Codec.Link(c.PublicURL, tasks)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		Token: sharing.TokenFrom(link),
		URL:   link,
		Count: len(tasks),
	})
}

// Preview handles GET /shared?tasks=.
func (c *ShareController) Preview(w http.ResponseWriter, r *http.Request) {
	tasks := c.Codec.Decode(r.URL.Query().Get(sharing.Param))
	if len(tasks) == 0 {
		http.Error(w, "No shared tasks", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Task{"tasks": tasks})
}

// Import handles POST /shared/import. The token comes from ?tasks=, or from a
// JSON body carrying either the token or the full shared URL.
func (c *ShareController) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get(sharing.Param)
	switch {
	case req.Token != "":
		token = sharing.TokenFrom(req.Token)
	case req.URL != "":
		token = sharing.TokenFrom(req.URL)
	}

	tasks := c.Codec.Decode(token)
	if len(tasks) == 0 {
		http.Error(w, "No shared tasks", http.StatusNotFound)
		return
	}

	page := req.URL
	if page == "" {
		page = c.PublicURL
	}
	cleared, err := sharing.StripParam(page)
	if err != nil {
		cleared = c.PublicURL
	}

	writeJSON(w, http.StatusCreated, importResponse{
		Imported: c.Store.ImportTasks(tasks),
		URL:      cleared,
	})
}
