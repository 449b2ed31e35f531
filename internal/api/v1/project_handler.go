package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/api/response"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
)

// ProjectHandler serves the utility-date and view-photo updates on top of the
// shared CRUD routes.
type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func RegisterProjectRoutes(group *gin.RouterGroup, projects *service.ProjectService) {
	handler := NewProjectHandler(projects)
	routes := group.Group("/projects")

	routes.PATCH("/:id/dates", handler.UpdateDates)
	routes.PATCH("/:id/views", handler.UpdateViews)
}

func (h *ProjectHandler) UpdateDates(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.projects.UpdateDates(c.Request.Context(), id, body, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم تحديث تواريخ المرافق بنجاح", record.Document())
}

func (h *ProjectHandler) UpdateViews(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	_, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.projects.UpdateViews(c.Request.Context(), id, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم تحديث الصور بنجاح", record.Document())
}
