package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/api/handlers"
	"github.com/andresuchdata/controltower/backend-go/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Services struct {
	KPI      handlers.KPIRunner
	Metrics  http.Handler
	Database Pinger
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	if services == nil {
		services = &Services{}
	}

	router.GET("/health", healthHandler(services.Database))
	if services.Metrics != nil {
		router.GET("/metrics", gin.WrapH(services.Metrics))
	}

	apiGroup := router.Group("/api/v1")
	if services.KPI != nil {
		kpiHandler := handlers.NewKPIHandler(services.KPI)
		kpiGroup := apiGroup.Group("/kpi")
		{
			kpiGroup.POST("/run", kpiHandler.Run)
			kpiGroup.GET("/runs/latest", kpiHandler.Latest)
		}
	}

	return router
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// normalizeAllowedOrigins flattens comma separated entries; "*" allows all.
func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
