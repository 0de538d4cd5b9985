package routes

import (
	"os"
	"strings"

	"queueless-backend/config"
	"queueless-backend/controllers"
	"queueless-backend/models"
	"queueless-backend/realtime"
	"queueless-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(hub *realtime.Hub) *gin.Engine {
	r := gin.Default()

	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	// Websocket feed for live queue updates and turn alerts
	r.GET("/ws", utils.AuthMiddleware(), realtime.ServeWS(hub))

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Business routes
		businesses := api.Group("/businesses")
		{
			businesses.GET("", controllers.GetBusinesses)
			businesses.POST("", controllers.CreateBusiness)
			businesses.POST("/:id/services", controllers.AddService)
			businesses.POST("/:id/like", controllers.ToggleLike)
			businesses.GET("/:id/logs", controllers.GetBusinessLogs)
			businesses.POST("/:id/call-next", utils.RequireRole(models.RoleAdmin), controllers.CallNext)
		}

		// Token routes
		tokens := api.Group("/tokens")
		{
			tokens.POST("", controllers.JoinQueue)
			tokens.GET("", controllers.GetTokens)
			tokens.GET("/active", controllers.GetActiveToken)
			tokens.GET("/history", controllers.GetVisitHistory)
			tokens.POST("/:id/cancel", controllers.CancelToken)
			tokens.PUT("/:id/status", controllers.UpdateTokenStatus)
		}

		// Prediction routes
		api.GET("/predictions/wait-time", controllers.GetWaitTimePrediction)
		api.GET("/predictions/analytics", utils.RequireRole(models.RoleAdmin), controllers.GetQueueAnalytics)

		// Profile route
		api.GET("/profile", controllers.GetProfile)

		// Inquiry routes
		inquiries := api.Group("/inquiries")
		{
			inquiries.POST("", controllers.CreateInquiry)
			inquiries.GET("", utils.RequireRole(models.RoleAdmin), controllers.GetInquiries)
			inquiries.PUT("/:id", utils.RequireRole(models.RoleAdmin), controllers.UpdateInquiry)
		}
	}

	return r
}
