package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/api/response"
	"github.com/YassinSultan/CoreSystem-Backend/internal/apierr"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/query"
)

// ResourceHandler serves the shared CRUD surface of one resource type. Every
// registered resource gets the same routes; resource-specific behavior lives
// in the descriptor and, for estimates and projects, in extra routes
// registered alongside these.
type ResourceHandler struct {
	rt     model.ResourceType
	engine *crud.Engine
	logger *zap.Logger
}

func NewResourceHandler(rt model.ResourceType, engine *crud.Engine, logger *zap.Logger) *ResourceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceHandler{rt: rt, engine: engine, logger: logger}
}

// RegisterResourceRoutes mounts the CRUD routes of one resource under
// /<resource>. The caller is expected to pass an authenticated group.
func RegisterResourceRoutes(group *gin.RouterGroup, rt model.ResourceType, engine *crud.Engine, logger *zap.Logger) {
	handler := NewResourceHandler(rt, engine, logger)
	routes := group.Group("/" + rt.Name)

	routes.POST("", handler.Create)
	routes.GET("", handler.List)
	routes.GET("/:id", handler.Get)
	routes.PUT("/:id", handler.Update)
	routes.DELETE("/:id", handler.SoftDelete)
	routes.PATCH("/:id/recover", handler.Recover)
	routes.DELETE("/:id/hard", middleware.RequireRole(string(model.UserRoleAdmin)), handler.HardDelete)

	routes.POST("/:id/items/:field", handler.AddItem)
	routes.PUT("/:id/items/:field/:itemId", handler.UpdateItem)
	routes.DELETE("/:id/items/:field/:itemId", handler.RemoveItem)
}

// Create persists a new record and attaches any uploaded files.
func (h *ResourceHandler) Create(c *gin.Context) {
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.engine.CreateOne(c.Request.Context(), h.rt, body, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "تم الإنشاء بنجاح", record.Document())
}

// List returns records filtered, searched and paginated per query params.
func (h *ResourceHandler) List(c *gin.Context) {
	opts := query.Parse(c.Request.URL.Query())
	list, err := h.engine.GetAll(c.Request.Context(), h.rt, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, list)
}

func (h *ResourceHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	opts := query.Parse(c.Request.URL.Query())
	doc, err := h.engine.GetOne(c.Request.Context(), h.rt, id, opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تمت العملية بنجاح", doc)
}

// Update applies a tracked update over the resource's allowed fields. Field
// diffs are appended to the record's update history.
func (h *ResourceHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.engine.UpdateTracked(c.Request.Context(), h.rt, id, body, h.rt.Allowed, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم التحديث بنجاح", record.Document())
}

func (h *ResourceHandler) SoftDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.engine.SoftDeleteOne(c.Request.Context(), h.rt, id, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم الحذف بنجاح", record.Document())
}

func (h *ResourceHandler) Recover(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.engine.RecoverOne(c.Request.Context(), h.rt, id, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم استرجاع العنصر بنجاح", record.Document())
}

func (h *ResourceHandler) HardDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.engine.HardDeleteOne(c.Request.Context(), h.rt, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم الحذف النهائي بنجاح", nil)
}

func (h *ResourceHandler) AddItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.engine.AddArrayItem(c.Request.Context(), h.rt, id, c.Param("field"), body, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "تمت الإضافة بنجاح", record.Document())
}

func (h *ResourceHandler) UpdateItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	body, parts, err := parseBodyAndParts(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.engine.UpdateArrayItem(c.Request.Context(), h.rt, id, c.Param("field"), c.Param("itemId"), body, parts, middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم التحديث بنجاح", record.Document())
}

func (h *ResourceHandler) RemoveItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.engine.RemoveArrayItem(c.Request.Context(), h.rt, id, c.Param("field"), c.Param("itemId"), middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "تم الحذف بنجاح", record.Document())
}

// parseID reads the :id route param and writes the error response itself on
// failure so callers can bail with a bare return.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apierr.Validation("المعرّف غير صالح"))
		return uuid.Nil, false
	}
	return id, true
}
