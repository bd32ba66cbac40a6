package routes

import (
	"log/slog"
	"net/http"

	"todo-share/app/controllers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up all routes for the application.
func RegisterRoutes(router *mux.Router, taskController *controllers.TaskController, shareController *controllers.ShareController, logger *slog.Logger) {
	router.Use(controllers.Instrument(logger))

	router.HandleFunc("/tasks", taskController.GetTasks).Methods(http.MethodGet)
	router.HandleFunc("/tasks", taskController.CreateTask).Methods(http.MethodPost)
	router.HandleFunc("/tasks/{taskID}", taskController.GetTaskByID).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{taskID}", taskController.UpdateTask).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc("/tasks/{taskID}", taskController.DeleteTask).Methods(http.MethodDelete)
	router.HandleFunc("/tasks/{taskID}/toggle", taskController.ToggleTask).Methods(http.MethodPost)

	router.HandleFunc("/share", shareController.Share).Methods(http.MethodGet)
	router.HandleFunc("/shared", shareController.Preview).Methods(http.MethodGet)
	router.HandleFunc("/shared/import", shareController.Import).Methods(http.MethodPost)

	router.HandleFunc("/healthz", taskController.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}
