package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/api/response"
	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
)

// EstimateHandler serves the step flow and lifecycle transitions that go
// beyond the shared CRUD routes.
type EstimateHandler struct {
	estimates *service.EstimateService
}

func NewEstimateHandler(estimates *service.EstimateService) *EstimateHandler {
	return &EstimateHandler{estimates: estimates}
}

func RegisterEstimateRoutes(group *gin.RouterGroup, estimates *service.EstimateService) {
	handler := NewEstimateHandler(estimates)
	routes := group.Group("/estimates")

	routes.PATCH("/:id/step/:step", handler.UpdateStep)
	routes.PATCH("/:id/cancel", handler.Cancel)
	routes.PATCH("/:id/contract", handler.Contract)
	routes.PATCH("/:id/complete", handler.Complete)
	routes.PATCH("/:id/restudy", handler.Restudy)
}

func (h *EstimateHandler) UpdateStep(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		response.Error(c, apierr.Validation("رقم الخطوة غير صالح"))
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.estimates.UpdateStep(c.Request.Context(), id, step, body, parts, middleware.Principal(c), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم تحديث المقايسة بنجاح", record.Document())
}

func (h *EstimateHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.estimates.Cancel(c.Request.Context(), id, body, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم تحديث حالة الإلغاء بنجاح", record.Document())
}

func (h *EstimateHandler) Contract(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.estimates.Contract(c.Request.Context(), id, body, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم تحديث حالة التعاقد بنجاح", record.Document())
}

func (h *EstimateHandler) Complete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, _, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.estimates.Complete(c.Request.Context(), id, body, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم إنهاء المقايسة بنجاح", record.Document())
}

func (h *EstimateHandler) Restudy(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.estimates.Restudy(c.Request.Context(), id, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تمت إعادة الدراسة بنجاح", record.Document())
}
