package handler

import (
	"fmt"
	"strings"

	"github.com/stellaephile/whats-up-doc/internal/model"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups the route handlers. Facilities is nil when no database is configured.
type Handlers struct {
	Assess     *AssessHandler
	Facilities *FacilityHandler
	Health     *HealthHandler
}

// NewRouter builds the gin engine with middleware and all API routes
func NewRouter(h Handlers, allowedOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), RequestID())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	if origins := splitOrigins(allowedOrigins); len(origins) == 0 || origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader, "Retry-After"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", h.Health.Health)

	api := router.Group("/api")
	{
		// Assessment endpoints
		api.POST("/assess", h.Assess.Assess)
		api.POST("/assess/stream", h.Assess.AssessStream)
		api.POST("/symptoms/classify", h.Assess.Classify)

		// Facility endpoints
		facilities := api.Group("/facilities")
		if h.Facilities != nil {
			facilities.POST("/nearby", h.Facilities.Nearby)
			facilities.GET("/:id", h.Facilities.GetFacility)
			facilities.POST("/embeddings/batch", h.Facilities.BatchUpdateEmbeddings)
		} else {
			facilities.Any("/*path", func(c *gin.Context) {
				respondError(c, fmt.Errorf("%w: facility directory is not configured", model.ErrUnavailable))
			})
		}
	}

	return router
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
