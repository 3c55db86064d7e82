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

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List godoc
// @Summary      List or count users
// @Tags         users
// @Produce      json
// @Param        where   query  string  false  "JSON filter"
// @Param        select  query  string  false  "JSON projection (wins over filter)"
// @Param        filter  query  string  false  "JSON projection"
// @Param        sort    query  string  false  "JSON sort spec"
// @Param        skip    query  int     false  "Offset"
// @Param        limit   query  int     false  "Bound"
// @Param        count   query  bool    false  "Return a count instead of documents"
// @Success      200  {object}  dto.Envelope
// @Failure      400  {object}  dto.Envelope
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	plan := query.Build(c.Request.URL.Query())

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
	respond(c, http.StatusOK, "OK", projectDocs(plan.Projection, usersToResponses(list)))
}

// Create godoc
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      dto.UserRequest  true  "User body"
// @Success      201   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	u, err := h.svc.Create(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			respond(c, http.StatusBadRequest, "Email already exists", err.Error())
			return
		}
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	respond(c, http.StatusCreated, "User created", userToResponse(u))
}

// GetByID godoc
// @Summary      Get a user by ID
// @Tags         users
// @Produce      json
// @Param        id      path   string  true   "User ID"
// @Param        select  query  string  false  "JSON projection"
// @Success      200  {object}  dto.Envelope
// @Failure      400  {object}  dto.Envelope
// @Failure      404  {object}  dto.Envelope
// @Router       /users/{id} [get]
func (h *UserHandler) GetByID(c *gin.Context) {
	u, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond(c, http.StatusNotFound, "User not found", nil)
			return
		}
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	proj := query.Projection(c.Request.URL.Query())
	respond(c, http.StatusOK, "OK", projectDoc(proj, userToResponse(u)))
}

// Update godoc
// @Summary      Replace a user and reconcile its task list
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "User ID"
// @Param        body  body      dto.UserRequest  true  "Full user state"
// @Success      200   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      404   {object}  dto.Envelope
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	u, err := h.svc.Update(c.Request.Context(), c.Param("id"), req.Name, req.Email, req.PendingTasks)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respond(c, http.StatusBadRequest, "name and email are required", nil)
		case errors.Is(err, service.ErrNotFound):
			respond(c, http.StatusNotFound, "User not found", nil)
		case errors.Is(err, service.ErrEmailTaken):
			respond(c, http.StatusBadRequest, "Email already exists", err.Error())
		default:
			respond(c, http.StatusBadRequest, "Bad Request", err.Error())
		}
		return
	}
	respond(c, http.StatusOK, "User updated", userToResponse(u))
}

// Delete godoc
// @Summary      Delete a user
// @Tags         users
// @Param        id  path  string  true  "User ID"
// @Success      204
// @Failure      404  {object}  dto.Envelope
// @Failure      500  {object}  dto.Envelope
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond(c, http.StatusNotFound, "User not found", nil)
			return
		}
		respond(c, http.StatusInternalServerError, "Server Error", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func userToResponse(u domain.User) dto.UserResponse {
	pending := u.PendingTasks
	if pending == nil {
		pending = []string{}
	}
	return dto.UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, PendingTasks: pending}
}

func usersToResponses(list []domain.User) []dto.UserResponse {
	out := make([]dto.UserResponse, len(list))
	for i := range list {
		out[i] = userToResponse(list[i])
	}
	return out
}
