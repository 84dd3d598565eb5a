// Scheduled task HTTP handlers.
//
//   - GET    /tasks
//   - POST   /tasks
//   - GET    /tasks/{id}
//   - PUT    /tasks/{id}
//   - DELETE /tasks/{id}
//   - GET    /tasks/{id}/history
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

// TaskRequest is the writable part of a scheduled task. Updates replace
// every field.
type TaskRequest struct {
	Title      string `json:"title,omitempty" example:"Morning brief"`
	Prompt     string `json:"prompt" binding:"required" example:"Summarise today's top tech news"`
	Model      string `json:"model,omitempty" example:"gpt-4o-mini"`
	Recurrence string `json:"recurrence" binding:"required,oneof=once daily weekly monthly" example:"daily"`
	TimeOfDay  string `json:"time_of_day" binding:"required" example:"08:30"`
	Weekday    int    `json:"weekday,omitempty" binding:"min=0,max=6" example:"1"`
	MonthDay   int    `json:"month_day,omitempty" binding:"min=0,max=31" example:"15"`
	Timezone   string `json:"timezone,omitempty" example:"Europe/Lisbon"`
	IsActive   *bool  `json:"is_active,omitempty" example:"true"`
}

func (r TaskRequest) toService() services.TaskInput {
	return services.TaskInput{
		Title:      r.Title,
		Prompt:     r.Prompt,
		Model:      r.Model,
		Recurrence: r.Recurrence,
		TimeOfDay:  r.TimeOfDay,
		Weekday:    r.Weekday,
		MonthDay:   r.MonthDay,
		Timezone:   r.Timezone,
		IsActive:   r.IsActive,
	}
}

// ListTasksResponse lists the caller's tasks.
type ListTasksResponse struct {
	Tasks []domain.ScheduledTask `json:"tasks"`
}

// TaskHistoryResponse lists recent executions, newest first.
type TaskHistoryResponse struct {
	History []domain.TaskHistory `json:"history"`
}

// ListTasks godoc
// @ID          listTasks
// @Summary     List scheduled tasks
// @Tags        Tasks
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} handlers.ListTasksResponse
// @Router      /tasks [get]
func (h *Handlers) ListTasks(c *gin.Context) {
	items, err := h.svc.Tasks.List(c.Request.Context(), identity(c).UserID)
	if err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.ScheduledTask{}
	}
	ok(c, http.StatusOK, ListTasksResponse{Tasks: items})
}

// CreateTask godoc
// @ID          createTask
// @Summary     Create a scheduled task
// @Description The prompt runs at time_of_day in timezone on the given recurrence, each run in a new chat.
// @Tags        Tasks
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.TaskRequest  true  "Task"
//
// @Success     201  {object} domain.ScheduledTask
// @Failure     400  {object} handlers.ErrorResponse "Invalid schedule or prompt"
// @Router      /tasks [post]
func (h *Handlers) CreateTask(c *gin.Context) {
	var req TaskRequest
	if !bindJSON(c, &req, "prompt, recurrence and time_of_day are required") {
		return
	}
	t, err := h.svc.Tasks.Create(c.Request.Context(), identity(c).UserID, req.toService())
	if err != nil {
		respondError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, t)
}

// GetTask godoc
// @ID          getTask
// @Summary     Get a scheduled task
// @Tags        Tasks
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Task ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.ScheduledTask
// @Failure     404  {object} handlers.ErrorResponse "Task not found"
// @Router      /tasks/{id} [get]
func (h *Handlers) GetTask(c *gin.Context) {
	id, valid := uuidParam(c, "id", "task")
	if !valid {
		return
	}
	t, err := h.svc.Tasks.Get(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdateTask godoc
// @ID          updateTask
// @Summary     Replace a scheduled task
// @Description The next run is recomputed from now.
// @Tags        Tasks
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                true  "Task ID (UUID)"  format(uuid)
// @Param       body  body  handlers.TaskRequest  true  "Task"
//
// @Success     200  {object} domain.ScheduledTask
// @Failure     400  {object} handlers.ErrorResponse "Invalid schedule or prompt"
// @Failure     404  {object} handlers.ErrorResponse "Task not found"
// @Router      /tasks/{id} [put]
func (h *Handlers) UpdateTask(c *gin.Context) {
	id, valid := uuidParam(c, "id", "task")
	if !valid {
		return
	}
	var req TaskRequest
	if !bindJSON(c, &req, "prompt, recurrence and time_of_day are required") {
		return
	}
	t, err := h.svc.Tasks.Update(c.Request.Context(), identity(c).UserID, id, req.toService())
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, t)
}

// DeleteTask godoc
// @ID          deleteTask
// @Summary     Delete a scheduled task
// @Tags        Tasks
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Task ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Task not found"
// @Router      /tasks/{id} [delete]
func (h *Handlers) DeleteTask(c *gin.Context) {
	id, valid := uuidParam(c, "id", "task")
	if !valid {
		return
	}
	if err := h.svc.Tasks.Delete(c.Request.Context(), identity(c).UserID, id); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// TaskHistory godoc
// @ID          taskHistory
// @Summary     Recent executions of a task
// @Tags        Tasks
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Task ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.TaskHistoryResponse
// @Failure     404  {object} handlers.ErrorResponse "Task not found"
// @Router      /tasks/{id}/history [get]
func (h *Handlers) TaskHistory(c *gin.Context) {
	id, valid := uuidParam(c, "id", "task")
	if !valid {
		return
	}
	hist, err := h.svc.Tasks.History(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	if hist == nil {
		hist = []domain.TaskHistory{}
	}
	ok(c, http.StatusOK, TaskHistoryResponse{History: hist})
}
