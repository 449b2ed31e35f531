package v1

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/api/response"
	inputsanitize "github.com/YassinSultan/CoreSystem-Backend/internal/api/sanitize"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
)

type SystemHandler struct {
	system *service.SystemService
}

func NewSystemHandler(system *service.SystemService) *SystemHandler {
	return &SystemHandler{system: system}
}

// RegisterSystemRoutes mounts the admin-only status and log endpoints. The
// caller passes an authenticated group.
func RegisterSystemRoutes(group *gin.RouterGroup, system *service.SystemService) {
	if system == nil {
		return
	}

	handler := NewSystemHandler(system)
	routes := group.Group("/system")
	routes.Use(middleware.RequireRole(string(model.UserRoleAdmin)))
	routes.GET("/status", handler.Status)
	routes.GET("/logs", handler.QueryLogs)
}

func (h *SystemHandler) Status(c *gin.Context) {
	response.Success(c, "تمت العملية بنجاح", h.system.Status(c.Request.Context()))
}

func (h *SystemHandler) QueryLogs(c *gin.Context) {
	level := strings.TrimSpace(c.Query("level"))
	keyword := inputsanitize.Text(c.Query("keyword"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries := h.system.Logs(level, keyword, limit)
	response.Success(c, "تمت العملية بنجاح", entries)
}
