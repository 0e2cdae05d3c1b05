// Package connector implements the thin endpoint installed next to a Magento
// store. It serves paginated entity data out of the Magento MySQL database in
// the envelope format internal/services/magento consumes.
package connector

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"magewoo/internal/config"
	"magewoo/internal/logger"
)

const (
	connectorVersion = "1.2.0"
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

type Server struct {
	config  *config.Config
	logger  *logger.Logger
	db      *gorm.DB
	queries *queries
	router  *gin.Engine
	server  *http.Server
}

func New(cfg *config.Config, logger *logger.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MagentoDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Magento database: %w", err)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		db:      db,
		queries: newQueries(db),
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Liveness only; no credentials, no entity data.
	router.GET("/ping", s.ping)

	authed := router.Group("/", s.requireAPIKey())
	{
		authed.GET("/info", s.info)
		authed.GET("/counts", s.counts)
		authed.GET("/products", s.products)
		authed.GET("/categories", s.categories)
		authed.GET("/customers", s.customers)
		authed.GET("/orders", s.orders)
	}

	s.router = router
	return s, nil
}

// requireAPIKey accepts the key via header or query parameter.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if key == "" {
			key = c.Query("api_key")
		}
		if s.config.ConnectorAPIKey == "" || key != s.config.ConnectorAPIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"accessible": true,
		"version":    connectorVersion,
	})
}

func (s *Server) info(c *gin.Context) {
	store, err := s.queries.storeName()
	if err != nil {
		s.fail(c, "failed to read store information", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"store":   store,
		"version": connectorVersion,
	})
}

func (s *Server) counts(c *gin.Context) {
	counts, err := s.queries.entityCounts()
	if err != nil {
		s.fail(c, "failed to count entities", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "counts": counts})
}

func (s *Server) products(c *gin.Context) {
	page, limit := pageParams(c)
	records, total, err := s.queries.products(page, limit)
	if err != nil {
		s.fail(c, "failed to load products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": records, "total": total})
}

func (s *Server) categories(c *gin.Context) {
	page, limit := pageParams(c)
	records, total, err := s.queries.categories(page, limit)
	if err != nil {
		s.fail(c, "failed to load categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": records, "total": total})
}

func (s *Server) customers(c *gin.Context) {
	page, limit := pageParams(c)
	records, total, err := s.queries.customers(page, limit)
	if err != nil {
		s.fail(c, "failed to load customers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "customers": records, "total": total})
}

func (s *Server) orders(c *gin.Context) {
	page, limit := pageParams(c)
	records, total, err := s.queries.orders(page, limit)
	if err != nil {
		s.fail(c, "failed to load orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": records, "total": total})
}

func (s *Server) fail(c *gin.Context, message string, err error) {
	s.logger.Error("%s: %v", message, err)
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("0.0.0.0:%s", s.config.ConnectorPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting connector endpoint on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
