package api

import (
	"net/http"

	"github.com/faunawatch/backend/internal/api/controllers"
	"github.com/faunawatch/backend/internal/api/middleware"
	"github.com/faunawatch/backend/internal/config"
	"github.com/faunawatch/backend/internal/db"
	"github.com/faunawatch/backend/internal/services"
	"github.com/faunawatch/backend/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Router manages the API routes and controllers
type Router struct {
	engine             *gin.Engine
	logger             *utils.Logger
	config             *config.Config
	serviceProvider    *services.ServiceProvider
	db                 *db.Database
	apiV1              *gin.RouterGroup
	animalController   *controllers.AnimalController
	behaviorController *controllers.BehaviorController
	alertController    *controllers.AlertController
	reportController   *controllers.ReportController
	upgrader           websocket.Upgrader
}

// NewRouter creates a new Router instance
func NewRouter(
	config *config.Config,
	logger *utils.Logger,
	db *db.Database,
	serviceProvider *services.ServiceProvider,
) *Router {
	// Set Gin mode based on environment
	if config.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger and recovery middleware
	engine.Use(gin.Recovery())
	engine.Use(middleware.LoggingMiddleware(logger))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Authorization", "Content-Type", "Origin"}
	engine.Use(cors.New(corsConfig))

	return &Router{
		engine:          engine,
		logger:          logger.Named("router"),
		config:          config,
		serviceProvider: serviceProvider,
		db:              db,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from another origin; CORS already
			// allows it for the REST surface.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes() {
	// Health check endpoint
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// API version group - all main API routes are under /api/v1
	r.apiV1 = r.engine.Group("/api/v1")

	// Setup controllers over the provider's services
	animalService := r.serviceProvider.GetAnimalService()
	reportService := r.serviceProvider.GetReportService()

	r.animalController = controllers.NewAnimalController(animalService, reportService, r.logger)
	r.behaviorController = controllers.NewBehaviorController(r.serviceProvider.GetIngestService(), r.logger)
	r.alertController = controllers.NewAlertController(r.serviceProvider.GetAlertService(), r.logger)
	r.reportController = controllers.NewReportController(reportService, r.logger)

	r.animalController.RegisterRoutes(r.apiV1.Group("/animals"))
	r.behaviorController.RegisterRoutes(r.apiV1.Group("/behavior"))
	r.alertController.RegisterRoutes(r.apiV1.Group("/alerts"))
	r.reportController.RegisterRoutes(r.apiV1.Group("/reports"))

	// Websocket endpoint for live behavior updates and alerts
	r.engine.GET("/ws", r.handleWebSocket)

	// Add Swagger documentation if not in production
	if !r.config.Server.IsProduction() {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.logger.Info("API routes setup completed")
}

// handleWebSocket upgrades the connection and hands it to the notification
// service. Clients then subscribe per animal.
func (r *Router) handleWebSocket(c *gin.Context) {
	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	r.serviceProvider.GetNotificationService().RegisterClient(conn)
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
