package router

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/trashunter/controllers"
	"github.com/yeremiapane/trashunter/hub"
	"github.com/yeremiapane/trashunter/middlewares"
	"github.com/yeremiapane/trashunter/services"
	"github.com/yeremiapane/trashunter/storage"
)

// Deps are the collaborators the HTTP layer is built from. UploadDir is only
// set for the local storage driver; the S3 driver serves its own URLs.
type Deps struct {
	Markers        *services.MarkerService
	Hunters        *services.HunterService
	Hub            *hub.Hub
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())

	if deps.UploadDir != "" {
		uploads := r.Group(storage.URLPrefix)
		uploads.Use(imagesOnly())
		uploads.Static("/", deps.UploadDir)
	}

	markerCtrl := controllers.NewMarkerController(deps.Markers, deps.MaxUploadBytes)
	hunterCtrl := controllers.NewHunterController(deps.Hunters)
	limiter := middlewares.NewRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// The web client calls the API under /api; the bare paths stay for
	// older clients.
	for _, g := range []*gin.RouterGroup{r.Group("/"), r.Group("/api")} {
		g.GET("/markers", markerCtrl.GetAllMarkers)
		g.GET("/markers/:id", markerCtrl.GetMarkerByID)

		writes := g.Group("/")
		writes.Use(limiter.RateLimit(), middlewares.OptionalAuth())
		{
			writes.POST("/markers", markerCtrl.CreateMarker)
			writes.PUT("/markers/:id/clean", markerCtrl.CleanMarker)
		}

		public := g.Group("/")
		public.Use(limiter.RateLimit())
		{
			public.POST("/register", hunterCtrl.Register)
			public.POST("/login", hunterCtrl.Login)
		}

		g.GET("/leaderboard", hunterCtrl.Leaderboard)
		g.GET("/me", middlewares.RequireAuth(), hunterCtrl.Me)
		g.GET("/ws", controllers.MarkerEventsHandler(deps.Hub))
	}

	return r
}

// imagesOnly refuses anything under /uploads that is not an image file.
func imagesOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		ext := strings.ToLower(path.Ext(c.Request.URL.Path))
		if !imageExtensions[ext] {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
