package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	v1 "github.com/YassinSultan/CoreSystem-Backend/internal/api/v1"
	"github.com/YassinSultan/CoreSystem-Backend/internal/crud"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
)

type Deps struct {
	Engine    *crud.Engine
	Auth      *service.AuthService
	Estimates *service.EstimateService
	Abstracts *service.AbstractService
	Projects  *service.ProjectService
	System    *service.SystemService
	JWTSecret []byte
	Logger    *zap.Logger
}

// RegisterRoutes mounts the versioned API. Every registered resource gets the
// shared CRUD surface; estimates, abstracts and projects get their extra
// transition routes on top.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	root := router.Group("/api/v1")

	v1.RegisterAuthRoutes(root, deps.Auth, deps.JWTSecret)

	authed := root.Group("")
	authed.Use(middleware.JWTAuth(deps.JWTSecret))

	for _, rt := range model.Resources {
		v1.RegisterResourceRoutes(authed, rt, deps.Engine, deps.Logger)
	}
	v1.RegisterEstimateRoutes(authed, deps.Estimates)
	v1.RegisterAbstractRoutes(authed, deps.Abstracts)
	v1.RegisterProjectRoutes(authed, deps.Projects)
	v1.RegisterSystemRoutes(authed, deps.System)
}
