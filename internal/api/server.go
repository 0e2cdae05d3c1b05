package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"magewoo/internal/api/handlers"
	"magewoo/internal/api/middleware"
	"magewoo/internal/config"
	"magewoo/internal/database"
	"magewoo/internal/logger"
	"magewoo/internal/migration"
	"magewoo/internal/services/magento"
	"magewoo/internal/store"
	"magewoo/internal/worker"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, trigger *worker.Trigger) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	jobs := migration.NewJobStore(db.DB)
	target := store.New(db.DB, logger)
	client := magento.NewClient(cfg.MagentoBaseURL, cfg.MagentoAPIKey,
		time.Duration(cfg.RequestTimeoutSecs)*time.Second, logger)

	migrationHandler := handlers.NewMigrationHandler(jobs, client, target, trigger, logger)

	// Routes
	v1 := router.Group("/api/v1")
	{
		m := v1.Group("/migration")
		{
			m.POST("/:type/start", migrationHandler.Start)
			m.GET("/progress", migrationHandler.Progress)
			m.POST("/cancel", migrationHandler.Cancel)
			m.GET("/stats", migrationHandler.Stats)
		}

		source := v1.Group("/source")
		{
			source.POST("/test", migrationHandler.TestSource)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
