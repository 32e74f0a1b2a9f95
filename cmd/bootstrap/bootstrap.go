package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-portal/config"
	deliveryHttp "clinic-portal/internal/delivery/http"
	"clinic-portal/internal/delivery/http/handler"
	"clinic-portal/internal/delivery/http/middleware"
	"clinic-portal/internal/infrastructure/cache"
	"clinic-portal/internal/infrastructure/database"
	"clinic-portal/internal/repository"
	"clinic-portal/internal/service"
	"clinic-portal/internal/usecase"
	"clinic-portal/pkg/jwt"
	"clinic-portal/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	RedisClient  *redis.Client
	Server       *http.Server
	SlotCapacity *service.SlotCapacityService
	Log          *logrus.Logger
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	log := setupLogger(cfg)
	app.Log = log
	log.Info("Configuration loaded successfully")

	// Apply schema before the ORM touches any table
	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(cfg.DB, log); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	// Initialize Redis
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initializeServer(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
	if cfg.IsDevelopment() {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// initializeServer wires repositories, services, usecases and handlers into the HTTP server
func (app *App) initializeServer(ctx context.Context) error {
	cfg, db, redisClient, log := app.Config, app.DB, app.RedisClient, app.Log

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	doctorRepo := repository.NewDoctorProfileRepository(db)
	submissionRepo := repository.NewContactSubmissionRepository(db)
	slotRepo := repository.NewAvailabilitySlotRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	tokenStore := service.NewTokenStore(redisClient)
	profileCache := service.NewProfileCache(redisClient, cfg.Session.StaleTTL)
	resolver := service.NewSessionResolver(log, profileRepo, profileCache, cfg.Session)
	auditService := service.NewAuditService(log, auditLogRepo)
	mailer := service.NewMailer(cfg.Mail.RelayURL, log)

	slotCapacity := service.NewSlotCapacityService(slotRepo, redisClient, log)
	app.SlotCapacity = slotCapacity
	if err := slotCapacity.SyncUpcoming(ctx); err != nil {
		return fmt.Errorf("failed to sync slot capacity: %w", err)
	}

	// Initialize usecases
	authUsecase := usecase.NewAuthUsecase(log, profileRepo, jwtService, tokenStore, resolver, auditService, mailer, cfg.App.PublicURL)
	contactUsecase := usecase.NewContactUsecase(log, submissionRepo, auditService, mailer, cfg.Mail.ContactNotifyEmail)
	userUsecase := usecase.NewUserUsecase(log, profileRepo, doctorRepo, resolver, tokenStore, auditService)
	doctorUsecase := usecase.NewDoctorUsecase(log, doctorRepo, auditService)
	availabilityUsecase := usecase.NewAvailabilityUsecase(log, slotRepo, doctorRepo, slotCapacity, auditService)
	appointmentUsecase := usecase.NewAppointmentUsecase(log, appointmentRepo, slotRepo, doctorRepo, slotCapacity, auditService)
	dashboardUsecase := usecase.NewDashboardUsecase(log, submissionRepo, appointmentRepo, profileRepo)
	settingsUsecase := usecase.NewSettingsUsecase(log, profileRepo, resolver, tokenStore, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, auditLogRepo)

	// Initialize handlers
	handlers := deliveryHttp.Handlers{
		Auth:         handler.NewAuthHandler(authUsecase, customValidator),
		Contact:      handler.NewContactHandler(contactUsecase, customValidator),
		User:         handler.NewUserHandler(userUsecase, customValidator),
		Doctor:       handler.NewDoctorHandler(doctorUsecase, availabilityUsecase, customValidator),
		Availability: handler.NewAvailabilityHandler(availabilityUsecase, customValidator),
		Appointment:  handler.NewAppointmentHandler(appointmentUsecase, customValidator),
		Dashboard:    handler.NewDashboardHandler(dashboardUsecase),
		Settings:     handler.NewSettingsHandler(settingsUsecase, customValidator),
		AuditLog:     handler.NewAuditLogHandler(auditLogUsecase),
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenStore, resolver, log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.CORS)
	loggingMiddleware := middleware.NewLoggingMiddleware(log)

	// Initialize router
	router := deliveryHttp.NewRouter(handlers, authMiddleware, corsMiddleware, loggingMiddleware)

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close stops background workers and closes all connections (database, redis)
func (app *App) Close() {
	if app.SlotCapacity != nil {
		app.SlotCapacity.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
