// Package api exposes the sizing engine over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"hpp-sizer/internal/api/handlers"
	"hpp-sizer/internal/api/middleware"
	"hpp-sizer/internal/config"
	"hpp-sizer/internal/data"

	"github.com/gin-gonic/gin"
)

// Deps are the shared services behind the routes. Catalog may be nil.
type Deps struct {
	Server  *config.ServerConfig
	Catalog *data.Catalog
	Cache   *data.SiteCache
	Logger  *slog.Logger
}

// NewRouter builds the gin engine with middleware and all API routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.ErrorHandler(d.Logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(d.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(d.Logger))

	sites := &handlers.SiteResolver{
		Catalog:         d.Catalog,
		Cache:           d.Cache,
		MaxSeriesLength: d.Server.MaxSeriesLength,
	}
	storage := handlers.NewStorageHandler(d.Server.StorageDir)
	sizing := handlers.NewSizingHandler(sites, storage, handlers.Limits{
		MaxGridPoints:   d.Server.MaxGridPoints,
		MaxDEIterations: d.Server.MaxDEIterations,
		MaxDEPopSize:    d.Server.MaxDEPopSize,
	}, d.Logger)
	strategies := handlers.NewStrategyHandler()
	datasets := handlers.NewDatasetHandler(d.Catalog)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cached_sites": d.Cache.Len()})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/evaluate", sizing.Evaluate)
		v1.POST("/optimize", sizing.Optimize)
		v1.POST("/npc", sizing.NPC)

		v1.GET("/strategies", strategies.ListStrategies)
		v1.GET("/storage", storage.ListStorage)
		v1.GET("/datasets", datasets.ListDatasets)
		v1.GET("/datasets/:id", datasets.GetDataset)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
