package handlers

import (
	"errors"
	"net/http"

	"tasktrack/internal/domain"
	"tasktrack/internal/dto"
	"tasktrack/internal/query"
	"tasktrack/internal/service"

	"github.com/gin-gonic/gin"
)

// defaultTaskLimit bounds task listings when the caller omits limit
// entirely. An explicit limit, including 0, is always preserved.
const defaultTaskLimit = "100"

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List godoc
// @Summary      List or count tasks
// @Tags         tasks
// @Produce      json
// @Param        where   query  string  false  "JSON filter"
// @Param        select  query  string  false  "JSON projection (wins over filter)"
// @Param        filter  query  string  false  "JSON projection"
// @Param        sort    query  string  false  "JSON sort spec"
// @Param        skip    query  int     false  "Offset"
// @Param        limit   query  int     false  "Bound (default 100 when omitted)"
// @Param        count   query  bool    false  "Return a count instead of documents"
// @Success      200  {object}  dto.Envelope
// @Failure      400  {object}  dto.Envelope
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	params := c.Request.URL.Query()
	if _, ok := params["limit"]; !ok {
		params.Set("limit", defaultTaskLimit)
	}
	plan := query.Build(params)

	if plan.Count {
		n, err := h.svc.Count(c.Request.Context(), &plan)
		if err != nil {
			respond(c, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		respond(c, http.StatusOK, "OK", n)
		return
	}

	list, err := h.svc.List(c.Request.Context(), &plan)
	if err != nil {
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respond(c, http.StatusOK, "OK", projectDocs(plan.Projection, tasksToResponses(list)))
}

// Create godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TaskRequest  true  "Task body"
// @Success      201   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	t, err := h.svc.Create(c.Request.Context(), service.TaskFields{
		Name:         req.Name,
		Description:  req.Description,
		Deadline:     req.Deadline.Ptr(),
		Completed:    bool(req.Completed),
		AssignedUser: req.AssignedUser,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserRef) {
			respond(c, http.StatusBadRequest, "assignedUser not found", nil)
			return
		}
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respond(c, http.StatusCreated, "Task created", taskToResponse(t))
}

// GetByID godoc
// @Summary      Get a task by ID
// @Tags         tasks
// @Produce      json
// @Param        id      path   string  true   "Task ID"
// @Param        select  query  string  false  "JSON projection"
// @Success      200  {object}  dto.Envelope
// @Failure      400  {object}  dto.Envelope
// @Failure      404  {object}  dto.Envelope
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	t, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond(c, http.StatusNotFound, "Task not found", nil)
			return
		}
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	proj := query.Projection(c.Request.URL.Query())
	respond(c, http.StatusOK, "OK", projectDoc(proj, taskToResponse(t)))
}

// Update godoc
// @Summary      Replace a task and reconcile assignment
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Task ID"
// @Param        body  body      dto.TaskRequest  true  "Full task state"
// @Success      200   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      404   {object}  dto.Envelope
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	var req dto.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), service.TaskFields{
		Name:         req.Name,
		Description:  req.Description,
		Deadline:     req.Deadline.Ptr(),
		Completed:    bool(req.Completed),
		AssignedUser: req.AssignedUser,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respond(c, http.StatusBadRequest, "name and deadline are required", nil)
		case errors.Is(err, service.ErrNotFound):
			respond(c, http.StatusNotFound, "Task not found", nil)
		case errors.Is(err, service.ErrUserRef):
			respond(c, http.StatusBadRequest, "assignedUser not found", nil)
		default:
			respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		}
		return
	}
	respond(c, http.StatusOK, "Task updated", taskToResponse(t))
}

// Delete godoc
// @Summary      Delete a task
// @Tags         tasks
// @Param        id  path  string  true  "Task ID"
// @Success      204
// @Failure      404  {object}  dto.Envelope
// @Failure      500  {object}  dto.Envelope
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond(c, http.StatusNotFound, "Task not found", nil)
			return
		}
		respond(c, http.StatusInternalServerError, "Server Error", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func taskToResponse(t domain.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		Deadline:         t.Deadline,
		Completed:        t.Completed,
		AssignedUser:     t.AssignedUser,
		AssignedUserName: t.AssignedUserName,
	}
}

func tasksToResponses(list []domain.Task) []dto.TaskResponse {
	out := make([]dto.TaskResponse, len(list))
	for i := range list {
		out[i] = taskToResponse(list[i])
	}
	return out
}
