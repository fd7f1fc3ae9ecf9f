package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/merchandising/internal/interfaces/http/handler"
	"github.com/storefront/merchandising/internal/interfaces/http/middleware"
)

// NewMerchandisingGroup wires the category and placement endpoints under
// /merchandising. Every route is merchant scoped. JSON bodies are capped
// at maxBodySize; the media upload enforces its own, larger limit.
func NewMerchandisingGroup(categories *handler.CategoryHandler, placements *handler.PlacementHandler, maxBodySize int64, scope ...gin.HandlerFunc) *DomainGroup {
	group := NewDomainGroup("merchandising", "/merchandising").Use(scope...)

	var jsonLimit []gin.HandlerFunc
	if maxBodySize > 0 {
		jsonLimit = append(jsonLimit, middleware.BodyLimit(maxBodySize))
	}

	group.Group("categories", "/categories").
		Use(jsonLimit...).
		POST("", categories.Create).
		GET("", categories.List).
		GET("/tree", categories.GetTree).
		GET("/slug-suggestion", categories.SuggestSlug).
		GET("/:id", categories.GetByID).
		PUT("/:id", categories.Update).
		POST("/:id/move", categories.Move).
		POST("/:id/visibility", categories.SetVisibility).
		DELETE("/:id", categories.Delete)

	group.Group("placements", "/placements/:position").
		Use(jsonLimit...).
		GET("", placements.List).
		POST("/items", placements.Add).
		DELETE("/items/:category_id", placements.Remove).
		PUT("/order", placements.Reorder).
		POST("/items/:category_id/move", placements.Move).
		PUT("/items/:category_id/media", placements.SetMedia).
		POST("/save", placements.Save).
		POST("/discard", placements.Discard)

	group.Group("placement-media", "/placements/:position").
		POST("/items/:category_id/media/upload", placements.UploadMedia)

	return group
}

// NewSystemGroup wires the system info endpoint under /system
func NewSystemGroup(system *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").GET("/info", system.Info)
}

// EngineConfig carries the HTTP settings the engine is built with
type EngineConfig struct {
	Mode           string
	CORS           middleware.CORSConfig
	TrustedProxies []string
}

// NewEngine creates a gin engine with the common middleware chain in
// order: the caller's chain (recovery, request ID, request logging), then
// security headers and CORS. The health endpoints sit outside the API group.
func NewEngine(cfg EngineConfig, system *handler.SystemHandler, chain ...gin.HandlerFunc) (*gin.Engine, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(chain...)
	engine.Use(middleware.Secure(), middleware.CORSWithConfig(cfg.CORS))

	engine.GET("/health", system.Health)
	engine.GET("/ready", system.Ready)
	return engine, nil
}
