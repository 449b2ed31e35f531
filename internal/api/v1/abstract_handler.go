package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/api/response"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
)

// AbstractHandler serves the review updates layered over the shared CRUD
// routes: the full edit plus the leadership, management, financial and
// central stamping flows.
type AbstractHandler struct {
	abstracts *service.AbstractService
}

func NewAbstractHandler(abstracts *service.AbstractService) *AbstractHandler {
	return &AbstractHandler{abstracts: abstracts}
}

func RegisterAbstractRoutes(group *gin.RouterGroup, abstracts *service.AbstractService) {
	handler := NewAbstractHandler(abstracts)
	routes := group.Group("/abstracts")

	routes.PATCH("/:id/edit", handler.Update)
	routes.PATCH("/:id/leadership", handler.branchUpdate(abstracts.UpdateLeadership, "تم تعديل القيادة بنجاح"))
	routes.PATCH("/:id/management", handler.branchUpdate(abstracts.UpdateManagement, "تم تعديل الادارة بنجاح"))
	routes.PATCH("/:id/financial", handler.branchUpdate(abstracts.UpdateFinancial, "تم تعديل الفرع المالي بنجاح"))
	routes.PATCH("/:id/central", handler.branchUpdate(abstracts.UpdateCentral, "تم تعديل الادارة المركزية بنجاح"))
}

func (h *AbstractHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.abstracts.Update(c.Request.Context(), id, body, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم تحديث المستخلص بنجاح", record.Document())
}

// branchUpdate adapts one stamping flow into a handler; the branches differ
// only in the field set they may touch and the success message.
func (h *AbstractHandler) branchUpdate(
	update func(ctx context.Context, id uuid.UUID, body map[string]interface{}, principal uuid.UUID) (*model.Record, error),
	message string,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		body, _, err := parseBodyAndParts(c)
		if err != nil {
			response.Error(c, err)
			return
		}

		record, err := update(c.Request.Context(), id, body, middleware.Principal(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, message, record.Document())
	}
}
