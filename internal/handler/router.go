package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/filmhub/filmhub-api/internal/middleware"
	"github.com/filmhub/filmhub-api/internal/service"
	"github.com/filmhub/filmhub-api/pkg/config"
	"github.com/filmhub/filmhub-api/pkg/logger"
	corsmiddleware "github.com/filmhub/filmhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/filmhub/filmhub-api/pkg/middleware/requestid"
	"github.com/filmhub/filmhub-api/pkg/response"

	"go.uber.org/zap"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Config       *config.Config
	Logger       *zap.Logger
	Auth         *service.AuthService
	Users        *service.UserService
	Films        *service.FilmService
	Reviews      *service.ReviewService
	EditRequests *service.EditRequestService
	Exports      *service.ExportService
	Metrics      *service.MetricsService
	Ready        func() error
}

// NewRouter builds the gin engine with all routes and middleware wired.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := NewAuthHandler(deps.Auth)
	userHandler := NewUserHandler(deps.Users)
	filmHandler := NewFilmHandler(deps.Films)
	reviewHandler := NewReviewHandler(deps.Reviews)
	editRequestHandler := NewEditRequestHandler(deps.EditRequests)
	exportHandler := NewExportHandler(deps.Exports)

	authRequired := middleware.JWT(deps.Auth)

	api := r.Group(deps.Config.APIPrefix)
	api.GET("", linkIndex(deps.Config.APIPrefix))

	authGroup := api.Group("/users/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	users := api.Group("/users", authRequired)
	{
		users.GET("", userHandler.List)
		users.GET("/:userId", userHandler.Get)
	}

	films := api.Group("/films", authRequired)
	{
		films.POST("", filmHandler.Create)
		films.GET("/public", filmHandler.ListPublic)
		films.GET("/private", filmHandler.ListPrivate)
		films.GET("/:filmId", filmHandler.Get)
		films.PUT("/:filmId", filmHandler.Update)
		films.DELETE("/:filmId", filmHandler.Delete)

		films.GET("/public/reviews/editRequests/received", editRequestHandler.Received)
		films.GET("/public/reviews/editRequests/sent", editRequestHandler.Sent)

		reviews := films.Group("/public/:filmId/reviews")
		{
			reviews.POST("", reviewHandler.Assign)
			reviews.GET("", reviewHandler.List)
			reviews.GET("/:reviewerId", reviewHandler.Get)
			reviews.PUT("/:reviewerId", reviewHandler.Update)
			reviews.DELETE("/:reviewerId", reviewHandler.Delete)

			editRequests := reviews.Group("/:reviewerId/editRequests")
			{
				editRequests.POST("", editRequestHandler.Issue)
				editRequests.GET("", editRequestHandler.List)
				editRequests.GET("/:requestId", editRequestHandler.Get)
				editRequests.PUT("/:requestId", editRequestHandler.Decide)
				editRequests.DELETE("/:requestId", editRequestHandler.Delete)
			}
		}
	}

	exports := api.Group("/exports")
	{
		exports.GET("/download", exportHandler.Download)
		exports.POST("", authRequired, exportHandler.Create)
		exports.GET("/:jobId", authRequired, exportHandler.Status)
	}

	return r
}

// linkIndex advertises the API entry points.
func linkIndex(prefix string) gin.HandlerFunc {
	links := map[string]string{
		"users":        prefix + "/users",
		"films":        prefix + "/films",
		"publicFilms":  prefix + "/films/public",
		"privateFilms": prefix + "/films/private",
		"received":     prefix + "/films/public/reviews/editRequests/received",
		"sent":         prefix + "/films/public/reviews/editRequests/sent",
		"exports":      prefix + "/exports",
	}
	return func(c *gin.Context) {
		response.JSON(c, http.StatusOK, links, nil)
	}
}
