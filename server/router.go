package server

import (
	"time"

	httpHandler "social-scheduler/interfaces/http"
	"social-scheduler/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	OAuth     httpHandler.IOAuthHandler
	Debug     httpHandler.IDebugHandler
	Scheduler httpHandler.ISchedulerHandler
	Post      httpHandler.IPostHandler
	Health    httpHandler.IHealthHandler
}

func InitiateRouter(h Handlers, secretKey string, corsOrigins []string) *gin.Engine {
	allowed := make(map[string]struct{}, len(corsOrigins))
	for _, o := range corsOrigins {
		allowed[o] = struct{}{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			_, ok := allowed[origin]
			return ok
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/debug/oauth", h.Debug.OAuth)

	// Provider redirects land here without a bearer token; the owner comes from the pending verifier.
	router.GET("/auth/:provider/callback", h.OAuth.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	oauth := api.Group("/oauth")
	{
		oauth.GET("/connections", h.OAuth.Connections)
		oauth.GET("/:provider/authorize", h.OAuth.Authorize)
		oauth.DELETE("/:provider", h.OAuth.Unlink)
	}

	scheduler := api.Group("/scheduler")
	{
		scheduler.GET("/status", h.Scheduler.Status)
		scheduler.POST("/start", h.Scheduler.Start)
		scheduler.POST("/stop", h.Scheduler.Stop)
		scheduler.POST("/run", h.Scheduler.Run)
		scheduler.GET("/stream", h.Scheduler.Stream)
		scheduler.GET("/history", h.Scheduler.History)
	}

	posts := api.Group("/posts")
	{
		posts.POST("", h.Post.Create)
		posts.GET("", h.Post.List)
		posts.GET("/:id", h.Post.Get)
		posts.PUT("/:id", h.Post.Update)
		posts.POST("/:id/schedule", h.Post.Schedule)
	}

	return router
}
