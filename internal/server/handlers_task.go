package server

import (
	"net/http"
	"strings"

	"github.com/nhle/todo-assistant/internal/model"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleListTasks returns all tasks owned by the user, oldest first.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	tasks, err := s.store.GetTasksByUser(r.Context(), user.ID)
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	s.respondJSON(w, http.StatusOK, tasks)
}

// handleCreateTask creates a task from the request body.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req createTaskRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.respondError(w, http.StatusBadRequest, "Title is required")
		return
	}

	task, err := s.store.CreateTask(r.Context(), user.ID, req.Title, req.Description)
	if err != nil {
		s.respondStoreError(w, err, "")
		return
	}
	s.respondJSON(w, http.StatusCreated, task)
}

// handleGetTask returns one task by id.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	task, err := s.store.GetTaskByID(r.Context(), r.PathValue("task_id"), user.ID)
	if err != nil {
		s.respondStoreError(w, err, "Task not found")
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

// handleUpdateTask applies a partial update; absent fields are untouched.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var update model.TaskUpdate
	if !s.decodeJSON(w, r, &update) {
		return
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		s.respondError(w, http.StatusBadRequest, "Title must not be empty")
		return
	}

	task, err := s.store.UpdateTask(r.Context(), r.PathValue("task_id"), user.ID, update)
	if err != nil {
		s.respondStoreError(w, err, "Task not found")
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

// handleDeleteTask removes a task.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := s.store.DeleteTask(r.Context(), r.PathValue("task_id"), user.ID); err != nil {
		s.respondStoreError(w, err, "Task not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

// handleCompleteTask sets the completion state. The "completed" query
// parameter defaults to true; re-completing a completed task succeeds.
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	completed := true
	if v := r.URL.Query().Get("completed"); v != "" {
		completed = v == "true" || v == "1"
	}

	task, err := s.store.SetTaskCompletion(r.Context(), r.PathValue("task_id"), user.ID, completed)
	if err != nil {
		s.respondStoreError(w, err, "Task not found")
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}
