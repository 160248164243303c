package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/server/handlers"
	"github.com/mamadbah2/stylishcuts/web"
)

// Config selects the admin mount point and the origins allowed to call the JSON API.
type Config struct {
	AdminPath          string
	CORSAllowedOrigins []string
}

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.Handler, cfg Config, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("load page templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/healthz", handler.Health)

	api := r.Group("/api")
	api.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	api.GET("/summary", handler.Summary)
	api.GET("/records", handler.Records)

	pages := r.Group("/")
	pages.Use(handler.Session())
	pages.GET("/", handler.Home)
	pages.GET("/events", handler.Events)
	pages.POST("/sales", handler.SubmitSales)
	pages.POST("/sales/rows", handler.SalesRows)
	pages.POST("/expenses", handler.SubmitExpense)

	admin := pages.Group(cfg.AdminPath)
	admin.GET("", handler.Home)
	admin.POST("/login", handler.Login)
	admin.POST("/logout", handler.Logout)
	admin.POST("/filter", handler.Filter)
	admin.POST("/clear", handler.ClearAll)
	admin.GET("/export", handler.Export)
	admin.POST("/records/:collection/:id/edit", handler.EditRecord)
	admin.POST("/records/:collection/:id/save", handler.SaveRecord)
	admin.POST("/records/:collection/:id/cancel", handler.CancelEdit)
	admin.POST("/records/:collection/:id/delete", handler.DeleteRecord)

	if logger != nil {
		logger.Info("router initialized", zap.String("admin_path", cfg.AdminPath))
	}

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
