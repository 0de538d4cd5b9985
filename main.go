package main

import (
	"fmt"
	"log"
	"os"
	"queueless-backend/config"
	"queueless-backend/controllers"
	"queueless-backend/models"
	"queueless-backend/realtime"
	"queueless-backend/routes"
	"queueless-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.Service{},
		&models.Token{},
		&models.LikedPlace{},
		&models.BusinessLog{},
		&models.Inquiry{},
	)
}

func main() {
	hub := realtime.New()
	notifier := services.NewNotifier()
	queue := services.NewQueueService(config.DB, hub, notifier)
	prediction := services.NewPredictionService()
	controllers.Init(queue, prediction)

	sweeper := services.NewSweeperService(config.DB, hub)
	sweeper.StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter(hub)
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
