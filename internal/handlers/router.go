package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"library-lending/internal/services"
)

// RouterConfig carries the optional outer layers of the HTTP surface.
type RouterConfig struct {
	// Auth gates /api routes when non-nil.
	Auth gin.HandlerFunc
	// Gatherer backs GET /metrics when non-nil.
	Gatherer prometheus.Gatherer
	// DevToken is served on GET /dev. Empty means no token was generated.
	DevToken string
}

// NewRouter builds the gin engine with recovery, request logging, CORS,
// the optional auth gate and all routes.
func NewRouter(svc services.LibraryService, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestID, gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:   []string{requestIDHeader},
	}))

	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/dev", func(c *gin.Context) {
		if cfg.DevToken == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Token not generated", "token": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Jwt token", "token": cfg.DevToken})
	})

	var api gin.IRouter = router
	if cfg.Auth != nil {
		api = router.Group("/", cfg.Auth)
	}
	RegisterRoutes(api, svc)
	return router
}

const requestIDHeader = "X-Request-ID"

// requestID echoes the caller's X-Request-ID or assigns a fresh one.
func requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDHeader, id)
	c.Header(requestIDHeader, id)
	c.Next()
}
