package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "cocoaguard/internal/app"
	"cocoaguard/internal/bootstrap"
	"cocoaguard/internal/cache"
	"cocoaguard/internal/platform/rabbitmq"
	"cocoaguard/internal/repository"
	"cocoaguard/internal/transport/http/handler"
	"cocoaguard/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.LoadHTMLGlob("web/templates/*.html")
	router.Static(handler.UploadsRoutePrefix, app.Config.Uploads.Dir)

	farmerRepo := repository.NewFarmerRepository(app.MySQL)
	predictionRepo := repository.NewPredictionRepository(app.MySQL)
	predictionCache := cache.NewPredictionCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtySeconds)*time.Second,
	)
	publisher := rabbitmq.NewPredictionPublisher(app.MQConn, app.Config.RabbitMQ.PredictionPersistQueue)

	sessionExpire := time.Duration(app.Config.Auth.SessionExpireMinute) * time.Minute
	authService := appsvc.NewAuthService(farmerRepo, app.Config.Auth.SessionSecret, sessionExpire)
	predictService := appsvc.NewPredictService(
		app.UploadStore,
		app.Classifier,
		publisher,
		predictionCache,
		predictionRepo,
		app.Config.Vision.MaxConcurrent,
	)

	authHandler := handler.NewAuthHandler(authService, app.Config.Auth.CookieName, int(sessionExpire.Seconds()))
	pageHandler := handler.NewPageHandler(predictService)
	predictHandler := handler.NewPredictHandler(predictService, app.Config.Uploads.MaxSizeBytes)
	healthHandler := handler.NewHealthHandler(app)

	secret := app.Config.Auth.SessionSecret
	cookieName := app.Config.Auth.CookieName

	router.GET("/", pageHandler.Index)
	router.GET("/register", authHandler.RegisterPage)
	router.POST("/register", authHandler.Register)
	router.GET("/login", authHandler.LoginPage)
	router.POST("/login", authHandler.Login)
	router.GET("/dashboard", middleware.RequireSession(secret, cookieName), pageHandler.Dashboard)
	router.GET("/logout", authHandler.Logout)
	router.POST("/predict", middleware.OptionalSession(secret, cookieName), predictHandler.Predict)

	router.GET("/healthz", healthHandler.Check)

	v1 := router.Group("/api/v1")
	v1.GET("/predictions", middleware.RequireSessionAPI(secret, cookieName), predictHandler.ListPredictions)

	return router
}
