package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"rentdesk/cache"
	"rentdesk/config"
	"rentdesk/controllers"
	"rentdesk/database"
	"rentdesk/notifications"
	"rentdesk/receipts"
	"rentdesk/routes"
	"rentdesk/scheduler"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize config
	config.InitConfig()

	if config.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup router
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Initialize DB
	if err := database.InitDB(); err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}
	database.SeedSuperAdmin()

	// Side-effect plumbing: in-app/email/event notifications and
	// receipt storage
	notifications.Init(database.DB)
	defer notifications.Shutdown()

	store, err := receipts.NewStoreFromConfig()
	if err != nil {
		logrus.Fatalf("Failed to initialize receipt storage: %v", err)
	}
	controllers.SetReceiptStore(store)

	redisAddr := ""
	if config.AppConfig.RedisHost != "" {
		redisAddr = config.AppConfig.RedisHost + ":" + config.AppConfig.RedisPort
	}
	redisClient := cache.NewRedisClient(redisAddr, os.Getenv("REDIS_PASSWORD"))
	flags := cache.NewFlagCache(database.DB, redisClient, 5*time.Minute)
	controllers.SetFlagCache(flags)

	// Scheduled sweeps
	cronRunner := scheduler.Start(database.DB)
	defer cronRunner.Stop()

	// Setup routes (real AuthMiddleware is applied inside routes)
	routes.SetupRoutes(r)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	logrus.Infof("Server running at http://0.0.0.0:%s", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		logrus.Fatalf("Server failed: %v", err)
	}
}
